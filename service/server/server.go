package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/solscope/service/analytics"
	"github.com/brojonat/solscope/service/config"
	"github.com/brojonat/solscope/service/metrics"
	natspkg "github.com/brojonat/solscope/service/nats"
	"github.com/brojonat/solscope/service/solana"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetcher is the slice of the Solana client the handlers need.
// *solana.Client satisfies it.
type Fetcher interface {
	GetBlock(ctx context.Context, slot uint64) (*analytics.Block, error)
	GetSignatures(ctx context.Context, address solanago.PublicKey, limit int) ([]analytics.SignatureRecord, error)
}

// Server represents the HTTP server for the analytics service.
type Server struct {
	addr       string
	cfg        *config.Config
	fetcher    Fetcher
	publisher  natspkg.Publisher
	subscriber natspkg.Subscriber
	metrics    *metrics.Metrics
	logger     *slog.Logger
	server     *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The publisher is optional - if nil, activity reports are not published.
// The subscriber is optional - if nil, SSE endpoints won't be available.
// The metrics is optional - if nil, metrics endpoints won't be available.
func New(addr string, cfg *config.Config, fetcher Fetcher, publisher natspkg.Publisher, subscriber natspkg.Subscriber, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:       addr,
		cfg:        cfg,
		fetcher:    fetcher,
		publisher:  publisher,
		subscriber: subscriber,
		metrics:    m,
		logger:     logger,
	}
}

// Handler builds the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	rpcTimeout := 15 * time.Second
	walletLimit := solana.DefaultWalletLimit
	programLimit := solana.DefaultProgramLimit
	if s.cfg != nil {
		rpcTimeout = s.cfg.RPCTimeout
		walletLimit = s.cfg.DefaultWalletLimit
		programLimit = s.cfg.DefaultProgramLimit
	}

	mux := http.NewServeMux()

	// Analytics routes
	mux.Handle("GET /api/v1/blocks/{slot}",
		s.instrument("/api/v1/blocks", handleGetBlock(s.fetcher, rpcTimeout, s.metrics, s.logger)))
	mux.Handle("GET /api/v1/wallets/{address}/activity",
		s.instrument("/api/v1/wallets/activity", handleGetActivity(analytics.KindWallet, walletLimit, s.fetcher, s.publisher, rpcTimeout, s.metrics, s.logger)))
	mux.Handle("GET /api/v1/programs/{address}/activity",
		s.instrument("/api/v1/programs/activity", handleGetActivity(analytics.KindProgram, programLimit, s.fetcher, s.publisher, rpcTimeout, s.metrics, s.logger)))

	// SSE streaming endpoints (if a subscriber is configured)
	if s.subscriber != nil {
		mux.Handle("GET /api/v1/stream/activity/{address}",
			s.instrument("/api/v1/stream/activity", handleStreamActivity(s.subscriber, s.metrics, s.logger)))
		mux.Handle("GET /api/v1/stream/activity",
			s.instrument("/api/v1/stream/activity", handleStreamActivity(s.subscriber, s.metrics, s.logger)))
		s.logger.Info("SSE streaming endpoints enabled")
	} else {
		s.logger.Warn("NATS not configured, streaming endpoints disabled")
	}

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	// Wrap mux with CORS middleware
	return corsMiddleware(mux)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:        s.addr,
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
		// SSE handlers clear their own write deadline.
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) instrument(name string, h http.Handler) http.Handler {
	return metrics.HTTPMetricsMiddleware(s.metrics, name)(h)
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Set CORS headers for all requests
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		// Handle preflight OPTIONS requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
