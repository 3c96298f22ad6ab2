package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/llm"
	applog "finanzas/internal/log"
	"finanzas/internal/middleware/ratelimit"
	"finanzas/internal/middleware/security"
	"finanzas/internal/middleware/trace"
	"finanzas/internal/services"

	"github.com/rs/cors"
)

// StatementParser categorises a raw bank statement.
type StatementParser interface {
	ParseStatement(ctx context.Context, req llm.StatementRequest) ([]core.ParsedTransaction, error)
}

// CacheStats reports the statement cache for /metrics.
type CacheStats interface {
	Stats() cache.Stats
}

// Options configures the listener and the middleware chain.
type Options struct {
	Addr               string
	AllowedOrigins     []string
	RateLimitPerMinute int
	RequestTimeout     time.Duration
	TrustedProxies     []string
}

// Dependencies are the services the handlers call. Parser and ParseCache
// may be nil when Gemini is not configured.
type Dependencies struct {
	Logger     *applog.Logger
	Ledger     *services.LedgerService
	Summaries  *services.SummaryService
	Reports    *services.ReportService
	Parser     StatementParser
	ParseCache CacheStats
}

type Server struct {
	http.Server
	logger    *applog.Logger
	ledger    *services.LedgerService
	summaries *services.SummaryService
	reports   *services.ReportService
	parser    StatementParser

	parseCache       CacheStats
	traceMiddleware  *trace.Middleware
	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector

	startedAt    time.Time
	now          func() time.Time
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, deps Dependencies) (*Server, error) {
	detector, err := security.NewDetector(opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:           logger.WithComponent(applog.ComponentHTTP),
		ledger:           deps.Ledger,
		summaries:        deps.Summaries,
		reports:          deps.Reports,
		parser:           deps.Parser,
		parseCache:       deps.ParseCache,
		securityDetector: detector,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		startedAt:        time.Now(),
		now:              time.Now,
	}
	s.traceMiddleware = trace.NewMiddleware(detector.ExtractClientIP)

	api := http.NewServeMux()
	s.registerAPI(api)

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	apiHandler := s.rateLimiter.Middleware(detector.ExtractClientIP, s.handleRateLimited)(withTimeout(timeout, api))

	root := http.NewServeMux()
	root.Handle("/api/", apiHandler)
	root.HandleFunc("GET /healthz", s.handleHealth)
	root.HandleFunc("GET /readyz", s.handleReady)
	root.HandleFunc("GET /metrics", s.handleMetrics)

	var handler http.Handler = root
	handler = cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", trace.HeaderRequestID},
		ExposedHeaders: []string{trace.HeaderRequestID, "Retry-After"},
		MaxAge:         600,
	}).Handler(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = detector.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = applog.Middleware(logger)(handler)
	s.Handler = handler

	return s, nil
}

func (s *Server) registerAPI(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/profiles", s.handleProfiles)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/dashboard/yearly", s.handleYearlyDashboard)

	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("POST /api/budgets", s.handleCreateBudget)
	mux.HandleFunc("PATCH /api/budgets/{id}", s.handlePatchBudget)
	mux.HandleFunc("DELETE /api/budgets/{id}", s.handleDeleteBudget)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleIngestTransactions)
	mux.HandleFunc("DELETE /api/transactions", s.handleDeleteBatch)
	mux.HandleFunc("PATCH /api/transactions/{id}", s.handlePatchTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("GET /api/transactions/bulk", s.handleDistinctValues)
	mux.HandleFunc("PATCH /api/transactions/bulk", s.handleBulkReplace)
	mux.HandleFunc("GET /api/transactions/duplicates", s.handleDuplicates)
	mux.HandleFunc("POST /api/transactions/duplicates/delete", s.handleDeleteDuplicates)

	mux.HandleFunc("POST /api/parse-csv", s.handleParseCSV)
	mux.HandleFunc("GET /api/reports", s.handleGetReport)
	mux.HandleFunc("POST /api/reports", s.handleCreateReport)
}

// withTimeout bounds every API request; services see the deadline through ctx.
func withTimeout(d time.Duration, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
}

// Shutdown gracefully shuts down the server and the limiter's cleanup loop.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
