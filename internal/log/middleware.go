package log

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type loggerKey struct{}

// NewContext returns a copy of ctx carrying logger
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext extracts the request logger, falling back to the default one
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// RequestMiddleware gives every request its own logger tagged with the
// request id and method, so lines written by handlers can be joined with
// the access log. requestID may be nil.
func RequestMiddleware(base *Logger, requestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := base.With(FieldMethod, r.Method)
			if requestID != nil {
				if id := requestID(r); id != "" {
					logger = logger.With(FieldRequestID, id)
				}
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// StructuredLogger writes the app's fixed-shape log events
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// RequestOutcome describes a finished HTTP request
type RequestOutcome struct {
	Status   int
	Duration time.Duration
	ClientIP string
	// Route is the matched mux pattern, empty when nothing matched
	Route string
}

// probeRoutes are polled by orchestrators and scrapers
var probeRoutes = map[string]bool{
	"GET /healthz": true,
	"GET /readyz":  true,
	"GET /metrics": true,
}

func accessLevel(out RequestOutcome) slog.Level {
	switch {
	case out.Status >= 500:
		return slog.LevelError
	case out.Status >= 400:
		return slog.LevelWarn
	case probeRoutes[out.Route], strings.HasPrefix(out.Route, "GET /static/"):
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// LogHTTPEnd writes the access log line for r. Client errors log at warn,
// server errors at error, successful probes and static files at debug.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, out RequestOutcome) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithHTTPResponse(out.Status, out.Duration.Milliseconds(), out.Status < 400).
		WithClientIP(out.ClientIP).
		WithComponent(ComponentHTTP)
	if out.Route != "" {
		fields[FieldRoute] = out.Route
	}

	sl.logger.Logger.Log(ctx, accessLevel(out), "HTTP request completed", fields.ToSlice()...)
}

// LogRecordCreated logs a successful purchase insert
func (sl *StructuredLogger) LogRecordCreated(ctx context.Context, id int64, barcode, period string, quantity int, subtotal string) {
	fields := NewFields().
		WithRecord(id, barcode, period, quantity, subtotal).
		WithOperation(OpCreate).
		WithComponent(ComponentLedger)

	sl.logger.Logger.InfoContext(ctx, "Purchase recorded", fields.ToSlice()...)
}
