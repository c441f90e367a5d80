package openfoodfacts

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"compras/internal/cache"
	"compras/internal/core"
	"compras/internal/metrics"
)

// Lookuper is satisfied by Client and CachedLookup
type Lookuper interface {
	Lookup(ctx context.Context, barcode string) (core.ProductInfo, bool, error)
}

// CacheEntry is a remembered lookup answer. Found is false for barcodes the
// catalog did not know.
type CacheEntry struct {
	Info  core.ProductInfo
	Found bool
}

// CachedLookup remembers products for the cache's lifetime and unknown
// barcodes for missTTL, so rescanning an unregistered product does not hit
// the service every time. Errors are never cached.
type CachedLookup struct {
	next    Lookuper
	cache   cache.Cache[CacheEntry]
	missTTL time.Duration
}

// NewCachedLookup wraps next. A zero missTTL disables caching of misses.
func NewCachedLookup(next Lookuper, c cache.Cache[CacheEntry], missTTL time.Duration) *CachedLookup {
	return &CachedLookup{next: next, cache: c, missTTL: missTTL}
}

func (l *CachedLookup) Lookup(ctx context.Context, barcode string) (core.ProductInfo, bool, error) {
	key := strings.TrimSpace(barcode)
	if hit, ok := l.cache.Get(key); ok {
		metrics.Lookups.WithLabelValues(metrics.OutcomeCached).Inc()
		return hit.Info, hit.Found, nil
	}

	info, found, err := l.next.Lookup(ctx, key)
	switch {
	case err != nil:
		metrics.Lookups.WithLabelValues(metrics.OutcomeError).Inc()
		slog.WarnContext(ctx, "Product lookup failed", "component", "lookup", "barcode", key, "error", err)
		return core.ProductInfo{}, false, err
	case !found:
		metrics.Lookups.WithLabelValues(metrics.OutcomeNotFound).Inc()
		l.cache.SetFor(key, CacheEntry{}, l.missTTL)
		return core.ProductInfo{}, false, nil
	}

	metrics.Lookups.WithLabelValues(metrics.OutcomeFound).Inc()
	l.cache.Set(key, CacheEntry{Info: info, Found: true})
	return info, true, nil
}

// Forget drops whatever is remembered for barcode. Called after a product
// is registered so the next lookup sees it.
func (l *CachedLookup) Forget(barcode string) {
	l.cache.Delete(strings.TrimSpace(barcode))
}
