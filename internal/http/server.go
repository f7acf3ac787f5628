// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"budgetkeeper/internal/log"
	"budgetkeeper/internal/middleware/ratelimit"
	"budgetkeeper/internal/middleware/security"
	"budgetkeeper/internal/middleware/trace"
	"budgetkeeper/internal/services"
)

// ReadinessCheck reports whether a dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	http.Server
	svc         *services.LedgerService
	logger      *log.Logger
	rateLimiter *ratelimit.Limiter
	checks      map[string]ReadinessCheck
	started     time.Time
	now         func() time.Time

	shutdownOnce sync.Once
}

type ServerOption func(*Server)

// WithReadinessCheck adds a named dependency to /readyz.
func WithReadinessCheck(name string, check ReadinessCheck) ServerOption {
	return func(s *Server) { s.checks[name] = check }
}

func WithLogger(logger *log.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// WithRateLimit limits write requests per client IP.
func WithRateLimit(cfg ratelimit.Config) ServerOption {
	return func(s *Server) { s.rateLimiter = ratelimit.NewLimiter(cfg) }
}

// WithClock replaces the clock used for default timestamps and reports.
func WithClock(now func() time.Time) ServerOption {
	return func(s *Server) { s.now = now }
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, svc *services.LedgerService, opts ...ServerOption) *Server {
	s := &Server{
		svc:     svc,
		checks:  make(map[string]ReadinessCheck),
		started: time.Now(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}

	r := mux.NewRouter()
	r.Use(trace.Middleware, log.Middleware(s.logger), log.RequestIDMiddleware(trace.FromRequest), log.AccessLog, security.Headers)
	if s.rateLimiter != nil {
		r.Use(s.rateLimiter.Middleware(security.ClientIP))
	}
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/balance", s.handleBalance).Methods(http.MethodGet)
	r.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	r.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	r.HandleFunc("/budgets", s.handleBudgetReport).Methods(http.MethodGet)
	r.HandleFunc("/budgets", s.handleCreateBudget).Methods(http.MethodPost)
	r.HandleFunc("/budgets/totals", s.handleBudgetTotals).Methods(http.MethodGet)
	r.HandleFunc("/messages", s.handleMessage).Methods(http.MethodPost)
	r.HandleFunc("/recurring/trigger", s.handleTriggerRecurring).Methods(http.MethodPost)
	r.HandleFunc("/recurring", s.handleUpcoming).Methods(http.MethodGet)
	r.HandleFunc("/inbox/misses", s.handleMisses).Methods(http.MethodGet)
	r.HandleFunc("/inbox/stats", s.handleInboxStats).Methods(http.MethodGet)
	r.HandleFunc("/inbox/{id:[0-9]+}", s.handleInboxMessage).Methods(http.MethodGet)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
