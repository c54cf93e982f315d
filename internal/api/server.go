package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"poseidon/internal/api/health"
	"poseidon/internal/metrics"
	"poseidon/internal/services/oracle"
	"poseidon/internal/services/pipeline"
	"poseidon/internal/services/pools"
	"poseidon/internal/services/positions"
	"poseidon/internal/services/wallet"
	"poseidon/internal/store"
	"poseidon/internal/venues"
	"poseidon/internal/workers"
	"poseidon/pkg/errors"
	"poseidon/pkg/logger"
)

// ServerConfig contains the HTTP server's wiring.
type ServerConfig struct {
	Port        int
	ServiceName string
	Version     string
}

// Server wraps the HTTP server with lifecycle management.
type Server struct {
	httpServer *http.Server

	wallets  *wallet.Service
	pools    *pools.Aggregator
	oracle   *oracle.Aggregator
	composer *pipeline.Composer
	indexer  *positions.Indexer
	registry *venues.Registry
	store    *store.Store
	monitor  *workers.Monitor

	log *logger.Logger
}

// NewServer creates and configures the HTTP server with all routes.
func NewServer(
	cfg ServerConfig,
	wallets *wallet.Service,
	poolAgg *pools.Aggregator,
	oracleAgg *oracle.Aggregator,
	composer *pipeline.Composer,
	indexer *positions.Indexer,
	registry *venues.Registry,
	st *store.Store,
	monitor *workers.Monitor,
	healthHandler *health.Handler,
) *Server {
	s := &Server{
		wallets:  wallets,
		pools:    poolAgg,
		oracle:   oracleAgg,
		composer: composer,
		indexer:  indexer,
		registry: registry,
		store:    st,
		monitor:  monitor,
		log:      logger.Get().With("component", "http"),
	}

	mux := http.NewServeMux()

	// Wallets
	mux.HandleFunc("POST /api/wallets", s.handleWalletCreate)
	mux.HandleFunc("GET /api/wallets/{id}", s.handleWalletGet)
	mux.HandleFunc("GET /api/wallets/{id}/balance", s.handleWalletBalance)

	// Pools
	mux.HandleFunc("GET /api/pools", s.handlePoolsTop)
	mux.HandleFunc("GET /api/pools/best", s.handleBestPool)
	mux.HandleFunc("GET /api/pools/{address}", s.handlePoolDetails)

	// LP intents
	mux.HandleFunc("POST /api/lp/open", s.handleAtomicOpen)
	mux.HandleFunc("POST /api/lp/execute", s.handleExecuteOpen)
	mux.HandleFunc("POST /api/lp/withdraw", s.handleWithdraw)
	mux.HandleFunc("POST /api/lp/rebalance", s.handleRebalance)
	mux.HandleFunc("POST /api/lp/claim", s.handleClaim)

	// Positions
	mux.HandleFunc("GET /api/positions/{wallet}", s.handlePositions)

	// Oracle
	mux.HandleFunc("GET /api/oracle/price/{mint}", s.handlePrice)
	mux.HandleFunc("POST /api/oracle/prices", s.handlePrices)

	// DCA schedules
	mux.HandleFunc("POST /api/dca", s.handleScheduleCreate)
	mux.HandleFunc("GET /api/dca/wallet/{wallet}", s.handleSchedulesByWallet)
	mux.HandleFunc("POST /api/dca/{id}/pause", s.handleSchedulePause)
	mux.HandleFunc("POST /api/dca/{id}/resume", s.handleScheduleResume)
	mux.HandleFunc("POST /api/dca/{id}/cancel", s.handleScheduleCancel)
	mux.HandleFunc("GET /api/dca/{id}/history", s.handleScheduleHistory)

	// Notifications
	mux.HandleFunc("POST /api/recipients", s.handleRecipientRegister)
	mux.HandleFunc("PUT /api/recipients/{wallet}/preferences", s.handleRecipientPreferences)

	// Worker
	mux.HandleFunc("GET /api/worker/status", s.handleWorkerStatus)
	mux.HandleFunc("POST /api/worker/trigger", s.handleWorkerTrigger)

	// Operational endpoints
	mux.HandleFunc("/health", healthHandler.HandleHealth)
	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"service":%q,"version":%q,"status":"running"}`, cfg.ServiceName, cfg.Version)
	})

	port := cfg.Port
	if port == 0 {
		port = 8080
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      withRequestID(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // bundle polling can hold a request open
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start begins listening; blocks until stopped.
func (s *Server) Start() error {
	s.log.Infof("HTTP server listening on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server failed")
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}
