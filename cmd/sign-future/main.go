package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/uhyunpark/futures-ledger/pkg/api"
	"github.com/uhyunpark/futures-ledger/pkg/crypto"
)

func main() {
	var (
		keyHex  = flag.String("key", os.Getenv("PRIVATE_KEY"), "hex private key (generates one if empty)")
		asset   = flag.String("asset", "BTC", "asset symbol")
		price   = flag.String("price", "50000", "strike price as a decimal string")
		expiry  = flag.Uint64("expiry", 1500, "expiry block height")
		nonce   = flag.Uint64("nonce", 0, "request nonce (random if 0)")
		chainID = flag.Int64("chain-id", 1337, "EIP-712 domain chain id")
		apiURL  = flag.String("api", "http://localhost:8080", "API base URL shown in the submit hint")
		typed   = flag.Bool("typed-data", false, "also print the eth_signTypedData_v4 payload")
	)
	flag.Parse()

	// Step 1: Generate or load key
	signer, err := loadSigner(*keyHex)
	if err != nil {
		fail("key", err)
	}
	fmt.Fprintf(os.Stderr, "Address: %s\n", signer.Address().Hex())

	if *nonce == 0 {
		if *nonce, err = crypto.GenerateNonce(); err != nil {
			fail("nonce", err)
		}
	}

	// Step 2: Build and sign the typed request
	req := &crypto.CreateFutureEIP712{
		Asset:  *asset,
		Price:  *price,
		Expiry: new(big.Int).SetUint64(*expiry),
		Nonce:  new(big.Int).SetUint64(*nonce),
		Trader: signer.Address(),
	}
	eip712 := crypto.NewEIP712Signer(crypto.DefaultDomain(*chainID))
	signature, err := eip712.SignCreateFuture(signer, req)
	if err != nil {
		fail("sign", err)
	}

	// Step 3: Verify before printing
	ok, err := eip712.VerifyCreateFutureSignature(req, signature)
	if err != nil || !ok {
		fail("verify", fmt.Errorf("signature does not recover to %s: %v", signer.Address().Hex(), err))
	}

	if *typed {
		td, err := eip712.CreateFutureToJSON(req)
		if err != nil {
			fail("typed data", err)
		}
		fmt.Fprintln(os.Stderr, "Typed data:")
		fmt.Fprintln(os.Stderr, td)
	}

	body, err := json.MarshalIndent(api.CreateFutureRequest{
		Trader:    signer.Address().Hex(),
		Asset:     *asset,
		Price:     *price,
		Expiry:    *expiry,
		Nonce:     *nonce,
		Signature: hexutil.Encode(signature),
	}, "", "  ")
	if err != nil {
		fail("marshal", err)
	}

	fmt.Fprintf(os.Stderr, "Submit with: curl -X POST %s/api/v1/futures -H 'Content-Type: application/json' -d @-\n", *apiURL)
	fmt.Println(string(body))
}

func loadSigner(keyHex string) (*crypto.Signer, error) {
	if keyHex != "" {
		return crypto.FromPrivateKeyHex(keyHex)
	}
	signer, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(os.Stderr, "Generated key: %s (KEEP SECRET!)\n", signer.PrivateKeyHex())
	return signer, nil
}

func fail(step string, err error) {
	fmt.Fprintf(os.Stderr, "Error (%s): %v\n", step, err)
	os.Exit(1)
}
