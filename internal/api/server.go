// Package api exposes discovery and price inference over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"solana-nft-lab/internal/domain"
	"solana-nft-lab/internal/observability"
	"solana-nft-lab/internal/pricing"
	"solana-nft-lab/internal/solana"
)

// DefaultRequestTimeout bounds each request when Options leaves it zero.
const DefaultRequestTimeout = 60 * time.Second

// Error kinds returned to clients.
const (
	KindInvalidRequest   = "invalid_request"
	KindDumpNotFound     = "dump_not_found"
	KindChainUnavailable = "chain_unavailable"
	KindTimeout          = "timeout"
	KindInternal         = "internal"
)

// Discoverer enumerates the NFTs of a wallet.
type Discoverer interface {
	Discover(ctx context.Context, wallet string) ([]*domain.NftDump, error)
}

// PriceInferrer infers purchase prices of discovered NFTs.
type PriceInferrer interface {
	Infer(ctx context.Context, wallet, mint string) (*domain.PriceResult, error)
	InferAll(ctx context.Context, wallet string) ([]pricing.MintOutcome, error)
}

// Options configures the HTTP handler.
type Options struct {
	Discovery      Discoverer
	Pricing        PriceInferrer
	RequestTimeout time.Duration
	Metrics        http.Handler // Default: observability.Handler()
	Logger         *log.Logger
}

// Server serves the HTTP routes.
type Server struct {
	discovery      Discoverer
	pricing        PriceInferrer
	requestTimeout time.Duration
	logger         *log.Logger
	mux            *http.ServeMux
}

// NewServer creates the HTTP handler.
func NewServer(opts Options) *Server {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.Handler()
	}

	s := &Server{
		discovery:      opts.Discovery,
		pricing:        opts.Pricing,
		requestTimeout: timeout,
		logger:         logger,
		mux:            http.NewServeMux(),
	}

	s.mux.Handle("GET /{$}", s.instrument("discover", s.handleDiscover))
	s.mux.Handle("GET /nft", s.instrument("nft", s.handleNFT))
	s.mux.Handle("GET /nfts/prices", s.instrument("prices", s.handlePrices))
	s.mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	s.mux.Handle("GET /metrics", metrics)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument applies the request deadline and records route metrics.
func (s *Server) instrument(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
		defer cancel()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r.WithContext(ctx))
		observability.RecordHTTPRequest(route, rec.status, time.Since(start).Seconds())
	})
}

// handleDiscover runs discovery for ?address= and returns the dumps.
func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	wallet := strings.TrimSpace(r.URL.Query().Get("address"))
	if wallet == "" {
		s.writeError(w, http.StatusBadRequest, KindInvalidRequest, "address is required")
		return
	}
	s.logger.Printf("requested wallet address %s", wallet)

	dumps, err := s.discovery.Discover(r.Context(), wallet)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if dumps == nil {
		dumps = []*domain.NftDump{}
	}
	s.writeJSON(w, http.StatusOK, dumps)
}

// handleNFT runs price inference for ?address=&mint=.
func (s *Server) handleNFT(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	wallet := strings.TrimSpace(q.Get("address"))
	mint := strings.TrimSpace(q.Get("mint"))
	if wallet == "" || mint == "" {
		s.writeError(w, http.StatusBadRequest, KindInvalidRequest, "address and mint are required")
		return
	}

	result, err := s.pricing.Infer(r.Context(), wallet, mint)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if result.Transactions == nil {
		result.Transactions = []domain.TransactionRecord{}
	}
	s.writeJSON(w, http.StatusOK, result)
}

// PriceFailure reports one mint of a batch that could not be priced.
type PriceFailure struct {
	Mint  string    `json:"mint"`
	Error errorBody `json:"error"`
}

// PricesResponse is the body of /nfts/prices.
type PricesResponse struct {
	Wallet   string                `json:"wallet"`
	Results  []*domain.PriceResult `json:"results"`
	Failures []PriceFailure        `json:"failures"`
}

// handlePrices runs price inference over every cached mint for ?address=.
func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	wallet := strings.TrimSpace(r.URL.Query().Get("address"))
	if wallet == "" {
		s.writeError(w, http.StatusBadRequest, KindInvalidRequest, "address is required")
		return
	}

	outcomes, err := s.pricing.InferAll(r.Context(), wallet)
	if err != nil && len(outcomes) == 0 {
		s.fail(w, r, err)
		return
	}

	resp := PricesResponse{
		Wallet:   wallet,
		Results:  []*domain.PriceResult{},
		Failures: []PriceFailure{},
	}
	for _, o := range outcomes {
		if o.Err != nil {
			_, kind, msg := classify(o.Err)
			resp.Failures = append(resp.Failures, PriceFailure{Mint: o.Mint, Error: errorBody{Kind: kind, Message: msg}})
			continue
		}
		resp.Results = append(resp.Results, o.Result)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// classify maps an error to a status, a stable kind and a client-safe message.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, solana.ErrInvalidAddress):
		return http.StatusBadRequest, KindInvalidRequest, "address and mint must be base58 public keys"
	case errors.Is(err, pricing.ErrDumpNotFound):
		return http.StatusNotFound, KindDumpNotFound, "nft has not been discovered yet; request / with the wallet address first"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, KindTimeout, "request timed out"
	}

	var rpcErr *solana.RPCError
	if errors.Is(err, solana.ErrTransport) || errors.As(err, &rpcErr) {
		return http.StatusBadGateway, KindChainUnavailable, "solana rpc is unavailable"
	}
	return http.StatusInternalServerError, KindInternal, "internal error"
}

// fail logs the internal error and writes only its classification.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, kind, msg := classify(err)
	s.logger.Printf("%s %s: %s: %v", r.Method, r.URL.Path, kind, err)
	s.writeError(w, status, kind, msg)
}

func (s *Server) writeError(w http.ResponseWriter, status int, kind, msg string) {
	s.writeJSON(w, status, errorResponse{Error: errorBody{Kind: kind, Message: msg}})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}
