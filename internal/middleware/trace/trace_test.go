package trace

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"compras/internal/metrics"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var seen string
	h := NewMiddleware(nil, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("request id %q is not a uuid", seen)
	}
	if rec.Header().Get(HeaderRequestID) != seen {
		t.Errorf("response header = %q, want %q", rec.Header().Get(HeaderRequestID), seen)
	}
}

func TestMiddlewareKeepsIncomingRequestID(t *testing.T) {
	id := uuid.NewString()
	var seen string
	h := NewMiddleware(nil, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromRequest(r)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, id)
	h.ServeHTTP(httptest.NewRecorder(), r)
	if seen != id {
		t.Fatalf("request id = %q, want %q", seen, id)
	}
}

func TestMiddlewareRecordsRouteMetrics(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /records/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	h := NewMiddleware(nil, nil).Middleware(mux)

	counter := metrics.HTTPRequests.WithLabelValues(http.MethodGet, "GET /records/{id}", "404")
	before := testutil.ToFloat64(counter)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/records/42", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/records/43", nil))

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Fatalf("counter increased by %v, want 2", got)
	}
}

func TestRecordRouteThroughWrappingMiddleware(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("POST /periods/{period}/clear", RecordRoute(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusSeeOther)
	})))
	rewrap := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r.WithContext(r.Context()))
	})
	h := NewMiddleware(nil, nil).Middleware(rewrap)

	counter := metrics.HTTPRequests.WithLabelValues(http.MethodPost, "POST /periods/{period}/clear", "303")
	before := testutil.ToFloat64(counter)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/periods/2025-01/clear", nil))

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Fatalf("counter increased by %v, want 1", got)
	}
}
