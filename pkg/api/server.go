package api

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/uhyunpark/futures-ledger/pkg/app/futures"
	"github.com/uhyunpark/futures-ledger/pkg/chain"
	"github.com/uhyunpark/futures-ledger/pkg/crypto"
)

// maxCreateBody caps POST /api/v1/futures request bodies.
const maxCreateBody = 16 << 10

// Options configures a Server. Zero values fall back to defaults.
type Options struct {
	Domain          crypto.EIP712Domain
	ReplayCacheSize int
	AllowedOrigins  []string
	// Default thresholds for /futures/buckets when the query omits them.
	BucketNearMax   chain.Height
	BucketMediumMax chain.Height
	Gatherer        prometheus.Gatherer
	Logger          *zap.SugaredLogger
}

// Server handles REST API and WebSocket connections
type Server struct {
	ledger   *futures.Ledger
	heights  chain.HeightSource
	verifier *crypto.EIP712Signer
	replay   *ReplayGuard
	hub      *Hub
	router   *mux.Router
	opts     Options
	log      *zap.SugaredLogger
}

func NewServer(ledger *futures.Ledger, heights chain.HeightSource, opts Options) (*Server, error) {
	if opts.ReplayCacheSize <= 0 {
		opts.ReplayCacheSize = 100_000
	}
	if opts.Domain.ChainID == nil {
		opts.Domain = crypto.DefaultDomain(1337)
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}

	replay, err := NewReplayGuard(opts.ReplayCacheSize)
	if err != nil {
		return nil, err
	}

	s := &Server{
		ledger:   ledger,
		heights:  heights,
		verifier: crypto.NewEIP712Signer(opts.Domain),
		replay:   replay,
		hub:      NewHub(opts.Logger),
		router:   mux.NewRouter(),
		opts:     opts,
		log:      opts.Logger,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Futures
	api.HandleFunc("/futures", s.handleCreateFuture).Methods("POST")
	api.HandleFunc("/futures", s.handleListFutures).Methods("GET")
	api.HandleFunc("/futures/count", s.handleFutureCount).Methods("GET")
	api.HandleFunc("/futures/buckets", s.handleBuckets).Methods("GET")
	api.HandleFunc("/futures/{id:[0-9]+}", s.handleGetFuture).Methods("GET")
	api.HandleFunc("/futures/{id:[0-9]+}/expired", s.handleIsExpired).Methods("GET")

	// Assets
	api.HandleFunc("/assets/{asset}/average-price", s.handleAveragePrice).Methods("GET")

	// Chain
	api.HandleFunc("/chain/status", s.handleGetChainStatus).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router wrapped in CORS.
func (s *Server) Handler() http.Handler {
	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("api_listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleCreateFuture(w http.ResponseWriter, r *http.Request) {
	var req CreateFutureRequest
	body := http.MaxBytesReader(w, r.Body, maxCreateBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if !futures.IsHexTrader(req.Trader) {
		respondError(w, http.StatusBadRequest, "invalid trader", req.Trader)
		return
	}
	trader := futures.HexToTrader(req.Trader)

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid price", err.Error())
		return
	}
	sig, err := hexutil.Decode(req.Signature)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid signature encoding", err.Error())
		return
	}

	signed := &crypto.CreateFutureEIP712{
		Asset:  req.Asset,
		Price:  req.Price,
		Expiry: new(big.Int).SetUint64(req.Expiry),
		Nonce:  new(big.Int).SetUint64(req.Nonce),
		Trader: trader.Address(),
	}
	ok, err := s.verifier.VerifyCreateFutureSignature(signed, sig)
	if err != nil || !ok {
		s.log.Debugw("create_future_bad_signature", "trader", trader.Hex(), "err", err)
		respondError(w, http.StatusUnauthorized, "invalid signature", "signature does not match trader")
		return
	}

	// The nonce is spent even if the ledger rejects the request.
	if !s.replay.Consume(trader, req.Nonce) {
		respondError(w, http.StatusConflict, "nonce already used", strconv.FormatUint(req.Nonce, 10))
		return
	}

	height := s.heights.CurrentHeight()
	id, err := s.ledger.CreateFuture(trader, req.Asset, price, chain.Height(req.Expiry), height)
	if err != nil {
		respondLedgerError(w, err)
		return
	}

	respondJSON(w, CreateFutureResponse{FutureID: id})
}

func (s *Server) handleListFutures(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	var q futures.Query

	if v := params.Get("trader"); v != "" {
		if !futures.IsHexTrader(v) {
			respondError(w, http.StatusBadRequest, "invalid trader", v)
			return
		}
		t := futures.HexToTrader(v)
		q.Trader = &t
	}
	q.Asset = params.Get("asset")

	var err error
	if q.MinExpiry, err = optionalHeight(params.Get("minExpiry")); err != nil {
		respondError(w, http.StatusBadRequest, "invalid minExpiry", err.Error())
		return
	}
	if q.MaxExpiry, err = optionalHeight(params.Get("maxExpiry")); err != nil {
		respondError(w, http.StatusBadRequest, "invalid maxExpiry", err.Error())
		return
	}
	if v := params.Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid active", err.Error())
			return
		}
		if active {
			h := s.heights.CurrentHeight()
			q.ActiveAt = &h
		}
	}

	respondJSON(w, s.ledger.Find(q))
}

func (s *Server) handleFutureCount(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, FutureCountResponse{
		Count:  s.ledger.GetFutureCount(),
		NextID: s.ledger.PeekNextID(),
	})
}

func (s *Server) handleBuckets(w http.ResponseWriter, r *http.Request) {
	nearMax, mediumMax := s.opts.BucketNearMax, s.opts.BucketMediumMax

	if h, err := optionalHeight(r.URL.Query().Get("near")); err != nil {
		respondError(w, http.StatusBadRequest, "invalid near", err.Error())
		return
	} else if h != nil {
		nearMax = *h
	}
	if h, err := optionalHeight(r.URL.Query().Get("medium")); err != nil {
		respondError(w, http.StatusBadRequest, "invalid medium", err.Error())
		return
	} else if h != nil {
		mediumMax = *h
	}

	buckets, err := s.ledger.BucketByExpiry(nearMax, mediumMax)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, buckets)
}

func (s *Server) handleGetFuture(w http.ResponseWriter, r *http.Request) {
	id, err := futureIDFromPath(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid future id", err.Error())
		return
	}
	f, err := s.ledger.GetFuture(id)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, f)
}

func (s *Server) handleIsExpired(w http.ResponseWriter, r *http.Request) {
	id, err := futureIDFromPath(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid future id", err.Error())
		return
	}

	height := s.heights.CurrentHeight()
	if h, err := optionalHeight(r.URL.Query().Get("height")); err != nil {
		respondError(w, http.StatusBadRequest, "invalid height", err.Error())
		return
	} else if h != nil {
		height = *h
	}

	expired, err := s.ledger.IsExpired(id, height)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	blocks, err := s.ledger.BlocksUntilExpiry(id, height)
	if err != nil {
		respondLedgerError(w, err)
		return
	}

	respondJSON(w, ExpiryStatus{
		FutureID:          id,
		Height:            height,
		Expired:           expired,
		BlocksUntilExpiry: blocks,
	})
}

func (s *Server) handleAveragePrice(w http.ResponseWriter, r *http.Request) {
	asset := mux.Vars(r)["asset"]

	avg, err := s.ledger.AveragePrice(asset)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, AveragePriceResponse{
		Asset:        asset,
		AveragePrice: avg,
		Count:        len(s.ledger.GetFuturesByAsset(asset)),
	})
}

func (s *Server) handleGetChainStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.chainStatus(s.heights.CurrentHeight()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) chainStatus(h chain.Height) ChainStatus {
	return ChainStatus{
		Height:       h,
		FutureCount:  s.ledger.GetFutureCount(),
		NextFutureID: s.ledger.PeekNextID(),
	}
}

// ==============================
// Broadcast Methods
// ==============================

// Emit pushes a future-created event to the "futures" channel and to the
// asset's own channel. It implements futures.EventSink.
func (s *Server) Emit(ev futures.FutureCreated) {
	msg := WSMessage{Type: futures.EventFutureCreated, Data: ev}
	s.hub.BroadcastToChannel(ChannelFutures, msg)
	s.hub.BroadcastToChannel(AssetChannel(ev.Asset), msg)
}

// BroadcastBlock pushes the chain status for a new block. It must not be
// called while the ledger lock is held.
func (s *Server) BroadcastBlock(h chain.Height) {
	s.hub.BroadcastToChannel(ChannelChain, WSMessage{Type: "block", Data: s.chainStatus(h)})
}

var _ futures.EventSink = (*Server)(nil)

// ==============================
// Helper Functions
// ==============================

func futureIDFromPath(r *http.Request) (futures.FutureID, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, err
	}
	return futures.FutureID(id), nil
}

func optionalHeight(v string) (*chain.Height, error) {
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return nil, err
	}
	h := chain.Height(n)
	return &h, nil
}

// statusFor maps ledger errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case futures.IsValidationError(err), errors.Is(err, futures.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, futures.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondLedgerError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	label := http.StatusText(status)
	if status == http.StatusInternalServerError {
		respondError(w, status, label, "internal ledger error")
		return
	}
	respondError(w, status, label, err.Error())
}

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
