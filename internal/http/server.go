package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"compras/internal/core"
	"compras/internal/log"
	"compras/internal/metrics"
	"compras/internal/middleware/ratelimit"
	"compras/internal/middleware/security"
	"compras/internal/middleware/trace"
	appweb "compras/web"
)

// Ledger is what the web UI needs from the ledger service
type Ledger interface {
	CurrentPeriod() core.Period
	Create(ctx context.Context, req core.CreateRecordRequest) (core.PurchaseRecord, error)
	Update(ctx context.Context, id int64, req core.UpdateRecordRequest) (core.PurchaseRecord, error)
	Delete(ctx context.Context, id int64) error
	ClearPeriod(ctx context.Context, period core.Period) (int64, error)
	Get(ctx context.Context, id int64) (core.PurchaseRecord, error)
	Report(ctx context.Context, period core.Period, ceiling decimal.Decimal) (core.PeriodReport, error)
	Records(ctx context.Context, period core.Period) ([]core.PurchaseRecord, error)
	Periods(ctx context.Context) ([]core.Period, error)
	Summaries(ctx context.Context) ([]core.PeriodSummary, error)
	Search(ctx context.Context, f core.SearchFilter) ([]core.PurchaseRecord, error)
	Categories(ctx context.Context) ([]string, error)
}

type ProductLookup interface {
	Lookup(ctx context.Context, barcode string) (core.ProductInfo, bool, error)
}

// lookupForgetter is implemented by lookups that cache "not found" answers
type lookupForgetter interface {
	Forget(barcode string)
}

type ProductRegistrar interface {
	Register(ctx context.Context, p core.ProductRegistration) core.RegistrationResult
}

type SnapshotRunner interface {
	Run(ctx context.Context, now time.Time) (string, error)
}

// ReadinessChecker reports whether a dependency can serve requests
type ReadinessChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	http.Server
	templates *template.Template

	ledger        Ledger
	lookup        ProductLookup
	registrar     ProductRegistrar
	snapshots     SnapshotRunner
	readiness     ReadinessChecker
	defaultCredit decimal.Decimal

	logger      *log.Logger
	detector    *security.Detector
	rateLimiter *ratelimit.Limiter
	startedAt   time.Time

	shutdownOnce sync.Once
}

type Option func(*Server)

func WithLookup(l ProductLookup) Option {
	return func(s *Server) { s.lookup = l }
}

func WithRegistrar(r ProductRegistrar) Option {
	return func(s *Server) { s.registrar = r }
}

func WithSnapshots(r SnapshotRunner) Option {
	return func(s *Server) { s.snapshots = r }
}

func WithReadiness(c ReadinessChecker) Option {
	return func(s *Server) { s.readiness = c }
}

// WithDefaultCredit sets the ceiling used when the request carries none
func WithDefaultCredit(d decimal.Decimal) Option {
	return func(s *Server) { s.defaultCredit = d }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithDetector sets how client addresses are resolved behind proxies
func WithDetector(d *security.Detector) Option {
	return func(s *Server) { s.detector = d }
}

func NewServer(addr string, ledger Ledger, opts ...Option) *Server {
	s := &Server{
		ledger:        ledger,
		defaultCredit: decimal.NewFromInt(200),
		startedAt:     time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(log.ComponentHTTP)
	if s.detector == nil {
		s.detector, _ = security.NewDetector(nil)
	}
	s.rateLimiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Error("Failed parsing templates", log.FieldError, err, log.FieldComponent, log.ComponentTemplate)
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.limitWrites(handler)
	handler = log.RequestMiddleware(s.logger, trace.RequestIDFromRequest)(handler)
	handler = trace.NewMiddleware(s.detector.ExtractClientIP, s.logger).Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, trace.RecordRoute(h))
	}

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", trace.RecordRoute(security.StaticAssetMiddleware(3600)(static)))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	handle("GET /{$}", s.handleIndex)
	handle("POST /lookup", s.handleLookup)
	handle("POST /register", s.handleRegister)
	handle("POST /records", s.handleCreateRecord)
	handle("POST /records/{id}", s.handleUpdateRecord)
	handle("POST /records/{id}/delete", s.handleDeleteRecord)
	handle("POST /periods/{period}/clear", s.handleClearPeriod)
	handle("GET /periods/{period}/export.csv", s.handleExportCSV)
	handle("GET /periods/{period}/export.xlsx", s.handleExportXLSX)
	handle("GET /history", s.handleHistory)
	handle("GET /api/summary", s.handleSummary)
	handle("POST /snapshots", s.handleSnapshot)
	handle("GET /healthz", s.handleHealth)
	handle("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", trace.RecordRoute(metrics.Handler()))
}

// limitWrites rate limits form submissions only; page views stay unlimited
func (s *Server) limitWrites(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			limited.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops background work and drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
