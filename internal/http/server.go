// Package http exposes the REST API: auth, transaction entry, CSV bulk
// import, summaries, the revenue forecast and the report pipeline.
package http

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"microerp/internal/cache"
	"microerp/internal/core"
	"microerp/internal/services"
)

// AuthProvider issues and verifies owner tokens.
type AuthProvider interface {
	Register(ctx context.Context, name, email, password string) (*core.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	VerifyToken(token string) (string, error)
}

// TransactionProvider records manual entries and serves the history.
type TransactionProvider interface {
	Add(ctx context.Context, ownerID string, in services.NewTransaction) (*core.Transaction, error)
	List(ctx context.Context, ownerID string, page, limit int) ([]core.Transaction, int, error)
}

// Importer handles CSV bulk uploads.
type Importer interface {
	ImportCSV(ctx context.Context, ownerID string, r io.Reader) ([]core.Transaction, error)
}

// AnalyticsProvider computes summaries and forecasts.
type AnalyticsProvider interface {
	Summary(ctx context.Context, ownerID string) (core.FinancialSummary, error)
	Forecast(ctx context.Context, ownerID string) ([]core.ForecastPoint, error)
}

// ReportProvider runs the report pipeline and serves the registry.
type ReportProvider interface {
	Generate(ctx context.Context, ownerID string) (*core.Report, error)
	List(ctx context.Context, ownerID string) ([]core.Report, error)
	Download(ctx context.Context, id, ownerID string) (*core.Report, io.ReadCloser, error)
}

// Pinger reports data-layer reachability for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps bundles everything the server needs.
type Deps struct {
	Auth         AuthProvider
	Transactions TransactionProvider
	Importer     Importer
	Analytics    AnalyticsProvider
	Reports      ReportProvider
	DB           Pinger
}

type Server struct {
	http.Server
	deps        Deps
	rateLimiter *rateLimiter

	// Per-owner analytics caches, invalidated on writes
	summaryCache     *cache.Cache[summaryJSON]
	forecastCache    *cache.Cache[[]forecastPointJSON]
	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		deps:             deps,
		rateLimiter:      newRateLimiter(),
		summaryCache:     cache.New[summaryJSON](1000, 5*time.Minute),
		forecastCache:    cache.New[[]forecastPointJSON](1000, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("POST /api/auth/register", s.withCommon(s.handleRegister))
	mux.HandleFunc("POST /api/auth/login", s.withCommon(s.handleLogin))

	mux.HandleFunc("POST /api/data/add", s.withCommon(s.requireAuth(s.handleAddTransaction)))
	mux.HandleFunc("GET /api/data", s.withCommon(s.requireAuth(s.handleListTransactions)))
	mux.HandleFunc("POST /api/data/upload", s.withCommon(s.requireAuth(s.handleUploadCSV)))

	mux.HandleFunc("GET /api/reports", s.withCommon(s.requireAuth(s.handleSummary)))
	mux.HandleFunc("GET /api/reports/forecast", s.withCommon(s.requireAuth(s.handleForecast)))
	mux.HandleFunc("GET /api/reports/generate-pdf", s.withCommon(s.requireAuth(s.handleGenerateReport)))
	mux.HandleFunc("GET /api/reports/list", s.withCommon(s.requireAuth(s.handleListReports)))
	mux.HandleFunc("GET /api/reports/download/{reportID}", s.withCommon(s.requireAuth(s.handleDownloadReport)))

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	return s
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(2 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.summaryCache.CleanExpired()
			s.forecastCache.CleanExpired()
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// invalidateAnalytics drops an owner's cached summary and forecast after a
// write.
func (s *Server) invalidateAnalytics(ownerID string) {
	s.summaryCache.Delete(ownerID)
	s.forecastCache.Delete(ownerID)
}

// Shutdown stops the background cleanup goroutines before shutting the HTTP
// server down.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		close(s.stopCacheCleanup)
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.DB != nil {
		if err := s.deps.DB.Ping(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
