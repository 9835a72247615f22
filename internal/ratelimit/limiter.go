// Package ratelimit keeps one token bucket per client key.
package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/render"
	"github.com/vadimbarashkov/shortlink/pkg/response"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter admits or rejects requests per client key. Buckets idle for longer
// than the idle timeout are reclaimed by Sweep.
type Limiter struct {
	name        string
	limit       rate.Limit
	burst       int
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
}

// New creates a limiter refilling rps tokens per second up to burst.
// A non-positive rps disables limiting.
func New(name string, rps float64, burst int, idleTimeout time.Duration) *Limiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}

	return &Limiter{
		name:        name,
		limit:       limit,
		burst:       burst,
		idleTimeout: idleTimeout,
		now:         time.Now,
		visitors:    make(map[string]*visitor),
	}
}

func (l *Limiter) Name() string {
	return l.name
}

func (l *Limiter) visitor(key string) *visitor {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = l.now()

	return v
}

// Allow consumes one token for key.
func (l *Limiter) Allow(key string) bool {
	v := l.visitor(key)
	return v.limiter.AllowN(l.now(), 1)
}

// retryAfter is the whole number of seconds until key regains a token.
func (l *Limiter) retryAfter(key string) int {
	v := l.visitor(key)

	now := l.now()
	r := v.limiter.ReserveN(now, 1)
	if !r.OK() {
		return 1
	}
	delay := r.DelayFrom(now)
	r.CancelAt(now)

	return int(math.Max(1, math.Ceil(delay.Seconds())))
}

// Sweep drops buckets idle for longer than the idle timeout and returns how many remain.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idleTimeout)
	for key, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, key)
		}
	}

	return len(l.visitors)
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.visitors)
}

// Run sweeps every interval until ctx is cancelled.
func (l *Limiter) Run(ctx context.Context, interval time.Duration, logger *slog.Logger) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			remaining := l.Sweep()
			logger.Debug("rate limiter swept", slog.String("limiter", l.name), slog.Int("buckets", remaining))
		}
	}
}

// ClientKey identifies the caller by IP. It expects RemoteAddr to have been
// rewritten by middleware.RealIP when running behind a proxy.
func ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware rejects requests over the limit with 429 before they reach next.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ClientKey(r)

		if !l.Allow(key) {
			w.Header().Set("Retry-After", strconv.Itoa(l.retryAfter(key)))
			render.Status(r, http.StatusTooManyRequests)
			render.JSON(w, r, response.TooManyRequestsResponse)
			return
		}

		next.ServeHTTP(w, r)
	})
}
