package crypto

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// EIP712Domain binds signatures to one deployment so they cannot be
// replayed on another chain.
type EIP712Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// CreateFutureEIP712 is the typed message a trader signs to create a future.
// Price travels as a decimal string; uint256 cannot carry fractional strikes.
type CreateFutureEIP712 struct {
	Asset  string
	Price  string
	Expiry *big.Int
	Nonce  *big.Int
	Trader common.Address
}

var createFutureTypes = apitypes.Types{
	"EIP712Domain": []apitypes.Type{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"CreateFuture": []apitypes.Type{
		{Name: "asset", Type: "string"},
		{Name: "price", Type: "string"},
		{Name: "expiry", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "trader", Type: "address"},
	},
}

type EIP712Signer struct {
	domain EIP712Domain
}

func NewEIP712Signer(domain EIP712Domain) *EIP712Signer {
	return &EIP712Signer{domain: domain}
}

// DefaultDomain returns the off-chain signing domain for chainID.
func DefaultDomain(chainID int64) EIP712Domain {
	return EIP712Domain{
		Name:    "FuturesLedger",
		Version: "1",
		ChainID: big.NewInt(chainID),
	}
}

func (e *EIP712Signer) Domain() EIP712Domain { return e.domain }

func (e *EIP712Signer) typedData(req *CreateFutureEIP712) (apitypes.TypedData, error) {
	if req.Expiry == nil || req.Nonce == nil {
		return apitypes.TypedData{}, fmt.Errorf("create future: expiry and nonce are required")
	}
	return apitypes.TypedData{
		Types:       createFutureTypes,
		PrimaryType: "CreateFuture",
		Domain: apitypes.TypedDataDomain{
			Name:              e.domain.Name,
			Version:           e.domain.Version,
			ChainId:           (*math.HexOrDecimal256)(e.domain.ChainID),
			VerifyingContract: e.domain.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"asset":  req.Asset,
			"price":  req.Price,
			"expiry": req.Expiry.String(),
			"nonce":  req.Nonce.String(),
			"trader": req.Trader.Hex(),
		},
	}, nil
}

// HashCreateFuture returns the EIP-712 digest
// keccak256("\x19\x01" || domainSeparator || hashStruct(message)).
func (e *EIP712Signer) HashCreateFuture(req *CreateFutureEIP712) ([]byte, error) {
	typedData, err := e.typedData(req)
	if err != nil {
		return nil, err
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}
	messageHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash message: %w", err)
	}

	rawData := []byte(fmt.Sprintf("\x19\x01%s%s", string(domainSeparator), string(messageHash)))
	return crypto.Keccak256Hash(rawData).Bytes(), nil
}

func (e *EIP712Signer) SignCreateFuture(signer *Signer, req *CreateFutureEIP712) ([]byte, error) {
	hash, err := e.HashCreateFuture(req)
	if err != nil {
		return nil, fmt.Errorf("failed to hash create future: %w", err)
	}
	return signer.Sign(hash)
}

func (e *EIP712Signer) RecoverCreateFutureSigner(req *CreateFutureEIP712, signature []byte) (common.Address, error) {
	hash, err := e.HashCreateFuture(req)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to hash create future: %w", err)
	}
	return RecoverAddress(hash, signature)
}

// VerifyCreateFutureSignature reports whether signature was made by req.Trader.
func (e *EIP712Signer) VerifyCreateFutureSignature(req *CreateFutureEIP712, signature []byte) (bool, error) {
	recovered, err := e.RecoverCreateFutureSigner(req, signature)
	if err != nil {
		return false, err
	}
	return recovered == req.Trader, nil
}

// CreateFutureToJSON renders the typed data in the eth_signTypedData_v4
// format wallets expect.
func (e *EIP712Signer) CreateFutureToJSON(req *CreateFutureEIP712) (string, error) {
	typedData, err := e.typedData(req)
	if err != nil {
		return "", err
	}
	out, err := json.MarshalIndent(typedData, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(out), nil
}
