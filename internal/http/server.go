package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"finance/internal/cache"
	flog "finance/internal/log"
	"finance/internal/middleware/ratelimit"
	"finance/internal/middleware/security"
	"finance/internal/middleware/trace"
	"finance/internal/services"
)

const (
	defaultRateLimit     = "60-M"
	cacheCleanupInterval = 10 * time.Minute
)

// Options tunes the server. Zero values pick the defaults.
type Options struct {
	// RateLimit uses the ulule format, e.g. "60-M".
	RateLimit      string
	ReportCacheTTL time.Duration
	Logger         *flog.Logger
}

type Server struct {
	http.Server
	service *services.TransactionService

	reports      *cache.Reports
	cacheManager *cache.Manager

	detector  *security.Detector
	limiter   *ratelimit.Limiter
	tracer    *trace.Middleware
	startTime time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, svc *services.TransactionService, opts Options) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("transaction service is required")
	}
	if opts.RateLimit == "" {
		opts.RateLimit = defaultRateLimit
	}
	if opts.Logger == nil {
		opts.Logger = flog.New(flog.Config{Component: flog.ComponentHTTP})
	}

	limiter, err := ratelimit.NewLimiter(opts.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", opts.RateLimit, err)
	}

	s := &Server{
		service:      svc,
		reports:      cache.NewReports(opts.ReportCacheTTL),
		cacheManager: cache.NewManager(),
		detector:     security.NewDetector(),
		limiter:      limiter,
		startTime:    time.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	s.reports.Register(s.cacheManager)
	if opts.ReportCacheTTL > 0 {
		s.cacheManager.StartCleanup(cacheCleanupInterval)
		opts.Logger.WithComponent(flog.ComponentCache).Info("Report cache enabled",
			"ttl", opts.ReportCacheTTL,
			"cleanup_interval", cacheCleanupInterval)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/reports/income-vs-expense", s.handleIncomeVsExpense)
	mux.HandleFunc("GET /api/reports/expenses-by-category", s.handleExpensesByCategory)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limitLog := opts.Logger.WithComponent(flog.ComponentRateLimit)
	rateLimited := limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		limitLog.WarnContext(r.Context(), "Rate limit exceeded",
			flog.FieldClientIP, s.detector.ExtractClientIP(r),
			flog.FieldMethod, r.Method,
			flog.FieldPath, r.URL.Path,
			flog.FieldRequestID, trace.GetRequestID(r.Context()))
		TooManyRequestsError("60").Write(w)
	})

	var handler http.Handler = mux
	handler = rateLimited(handler)
	handler = s.detector.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = s.tracer.Middleware(handler)
	handler = flog.Middleware(opts.Logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s, nil
}

// Shutdown stops the cache cleanup goroutine and gracefully shuts down the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
