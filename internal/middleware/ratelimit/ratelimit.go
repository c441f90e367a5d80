// Package ratelimit throttles form submissions per client IP.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"compras/internal/log"
	"compras/internal/metrics"
)

// Limiter admits up to Limit requests per client in each window. A window
// opens with the client's first request and closes Window later no matter
// how many requests arrived in between.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time

	limit     int
	span      time.Duration
	idleAfter time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

type window struct {
	opened time.Time
	count  int
}

type Config struct {
	Limit  int
	Window time.Duration
	// IdleAfter is how long a client goes unseen before it is forgotten
	IdleAfter     time.Duration
	SweepInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Limit:         60,
		Window:        time.Minute,
		IdleAfter:     10 * time.Minute,
		SweepInterval: 5 * time.Minute,
	}
}

// NewLimiter starts a limiter and its sweeper goroutine. Call Stop when done.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.Limit <= 0 {
		cfg.Limit = def.Limit
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.IdleAfter < cfg.Window {
		cfg.IdleAfter = max(def.IdleAfter, cfg.Window)
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}

	l := &Limiter{
		windows:   make(map[string]*window),
		now:       time.Now,
		limit:     cfg.Limit,
		span:      cfg.Window,
		idleAfter: cfg.IdleAfter,
		stop:      make(chan struct{}),
	}
	go l.sweepEvery(cfg.SweepInterval)
	return l
}

// Allow counts a request from clientIP. When the request is over the limit
// it also returns how long until the client's window closes.
func (l *Limiter) Allow(clientIP string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[clientIP]
	if !ok || now.Sub(w.opened) >= l.span {
		l.windows[clientIP] = &window{opened: now, count: 1}
		return true, 0
	}

	if w.count >= l.limit {
		return false, w.opened.Add(l.span).Sub(now)
	}
	w.count++
	return true, 0
}

func (l *Limiter) sweepEvery(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

// sweep forgets clients whose window opened more than IdleAfter ago
func (l *Limiter) sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idleAfter)
	removed := 0
	for ip, w := range l.windows {
		if w.opened.Before(cutoff) {
			delete(l.windows, ip)
			removed++
		}
	}
	return removed
}

// Clients returns the number of tracked clients
func (l *Limiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Stop ends the sweeper. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
}

// Middleware answers 429 with a Retry-After header once a client is over
// the limit.
func (l *Limiter) Middleware(clientIP func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			ok, wait := l.Allow(ip)
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			metrics.RateLimited.Inc()
			log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Request rate limited",
				log.FieldClientIP, ip,
				log.FieldPath, r.URL.Path)

			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
			http.Error(w, "Muitas requisições. Tente novamente em instantes.", http.StatusTooManyRequests)
		})
	}
}

func retryAfterSeconds(wait time.Duration) int {
	return max(1, int(math.Ceil(wait.Seconds())))
}
