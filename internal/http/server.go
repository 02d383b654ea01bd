package http

import (
	"context"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"smartspend/internal/cache"
	"smartspend/internal/core"
	"smartspend/internal/insight"
	"smartspend/internal/log"
	"smartspend/internal/middleware/ratelimit"
	"smartspend/internal/middleware/security"
	"smartspend/internal/middleware/trace"
	"smartspend/internal/services"
)

// ExpenseService is the slice of services.ExpenseService the handlers use.
type ExpenseService interface {
	CreateExpense(ctx context.Context, in services.ExpenseInput) (core.Expense, error)
	UpdateExpense(ctx context.Context, id int64, in services.ExpenseInput) (core.Expense, error)
	DeleteExpense(ctx context.Context, id int64) error
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	Snapshot(ctx context.Context) ([]core.Expense, uint64, error)
}

// InsightGenerator produces the canned insight for a collection snapshot.
type InsightGenerator interface {
	Generate(ctx context.Context, version uint64, expenses []core.Expense, cur core.Currency) (insight.Result, error)
}

// ReadyCheck reports whether an optional dependency is usable.
type ReadyCheck func(ctx context.Context) error

// Options configures NewServer. Expenses and Insights are required.
type Options struct {
	Addr               string
	Expenses           ExpenseService
	Insights           InsightGenerator
	Logger             *log.Logger
	DefaultCurrency    core.Currency
	RateLimitPerMinute int
	Caches             *cache.Manager
	ReadyChecks        map[string]ReadyCheck
}

type Server struct {
	http.Server
	templates *template.Template
	expenses  ExpenseService
	insights  InsightGenerator
	logger    *log.Logger

	defaultCurrency core.Currency
	readyChecks     map[string]ReadyCheck

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	caches           *cache.Manager

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

// NewServer parses the embedded templates, registers the routes and wraps
// them in the tracing, security and rate limiting middleware.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	cur := opts.DefaultCurrency
	if cur == "" {
		cur = core.DefaultCurrency
	}
	caches := opts.Caches
	if caches == nil {
		caches = cache.NewManager()
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 16,
		},
		expenses:         opts.Expenses,
		insights:         opts.Insights,
		logger:           logger,
		defaultCurrency:  cur,
		readyChecks:      opts.ReadyChecks,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		securityDetector: security.NewDetector(logger),
		caches:           caches,
		appMetrics:       newAppMetrics(),
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	t, err := parseTemplates()
	if err != nil {
		logger.WithComponent(log.ComponentTemplate).Error("Failed parsing templates", "error", err)
	}
	s.templates = t

	s.routes(mux)

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, ratelimit.MutatingOnly, s.onRateLimit)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = s.securityDetector.Middleware(handler)
	s.Handler = handler

	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := staticFS(); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	page := func(h http.HandlerFunc) http.Handler { return security.NoStore(h) }

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.Handle("GET /dashboard", page(s.handleDashboard))

	mux.Handle("GET /expenses", page(s.handleExpensesPage))
	mux.Handle("GET /expenses/list", page(s.handleExpenseList))
	mux.Handle("GET /expenses/new", page(s.handleNewExpenseForm))
	mux.Handle("GET /expenses/{id}/edit", page(s.handleEditExpenseForm))
	mux.HandleFunc("POST /expenses", s.handleCreateExpense)
	mux.HandleFunc("POST /expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /expenses/{id}", s.handleDeleteExpense)
	mux.HandleFunc("POST /expenses/{id}/delete", s.handleDeleteExpense)

	mux.Handle("GET /insights", page(s.handleInsightsPage))
	mux.HandleFunc("POST /insights", s.handleGenerateInsight)

	mux.HandleFunc("POST /prefs/currency", s.handleSetCurrency)
	mux.HandleFunc("POST /prefs/theme", s.handleSetTheme)

	mux.HandleFunc("GET /api/expenses", s.handleAPIListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleAPICreateExpense)
	mux.HandleFunc("GET /api/expenses/{id}", s.handleAPIGetExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleAPIUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleAPIDeleteExpense)
	mux.HandleFunc("GET /api/summary", s.handleAPISummary)
	mux.HandleFunc("POST /api/insights", s.handleAPIInsight)

	mux.HandleFunc("GET /export.xlsx", s.handleExport)
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	clientIP := s.securityDetector.ExtractClientIP(r)
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, clientIP,
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	w.Header().Set("Retry-After", itoa(s.rateLimiter.RetryAfter(clientIP)))

	const msg = "Rate limit exceeded. Please try again later."
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSONError(w, http.StatusTooManyRequests, msg)
		return
	}
	ErrorResponse(http.StatusTooManyRequests, msg).Retarget("#notifications").Write(w)
}

// Start begins the periodic cache cleanup and serves until Shutdown.
func (s *Server) Start() error {
	s.caches.StartCleanup(10 * time.Minute)
	return s.ListenAndServe()
}

// Shutdown stops background cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// eventLog writes domain events through the request logger so they carry
// the request ID assigned by the trace middleware.
func (s *Server) eventLog(r *http.Request) *log.StructuredLogger {
	return log.NewStructuredLogger(log.FromContextOr(r.Context(), s.logger))
}
