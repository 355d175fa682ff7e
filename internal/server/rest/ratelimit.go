package rest

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"golang.org/x/time/rate"
)

const (
	limiterBurst   = 5
	visitorIdleTTL = 5 * time.Minute
)

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	visitors sync.Map
	rps      rate.Limit
	burst    int
	logger   logging.Logger
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

// NewIPRateLimiter allows perMinute requests per IP with a small burst.
// perMinute <= 0 disables limiting.
func NewIPRateLimiter(perMinute int, logger logging.Logger) *IPRateLimiter {
	return &IPRateLimiter{
		rps:    rate.Limit(float64(perMinute) / 60.0),
		burst:  limiterBurst,
		logger: logger.With("module", "rate_limiter"),
		now:    time.Now,
	}
}

// newVisitor is stamped at construction so a concurrent sweep never sees a
// zero lastSeen.
func (l *IPRateLimiter) newVisitor() *visitor {
	return &visitor{limiter: rate.NewLimiter(l.rps, l.burst), lastSeen: l.now()}
}

func (l *IPRateLimiter) allow(ip string) bool {
	v, _ := l.visitors.LoadOrStore(ip, l.newVisitor())
	vi := v.(*visitor)
	vi.mu.Lock()
	vi.lastSeen = l.now()
	vi.mu.Unlock()
	return vi.limiter.Allow()
}

// Cleanup forgets idle visitors every interval until ctx is done.
func (l *IPRateLimiter) Cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *IPRateLimiter) sweep() {
	cutoff := l.now().Add(-visitorIdleTTL)
	l.visitors.Range(func(k, v any) bool {
		vi := v.(*visitor)
		vi.mu.Lock()
		idle := vi.lastSeen.Before(cutoff)
		vi.mu.Unlock()
		if idle {
			l.visitors.Delete(k)
		}
		return true
	})
}

// Middleware answers 429 once an IP has used up its bucket.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	if l == nil || l.rps <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !l.allow(ip) {
			l.logger.Warn(r.Context(), "rate limit exceeded", "ip", ip, "path", r.URL.Path)
			writeDetail(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP is the socket peer. Forwarding headers are client controlled and
// are ignored.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	return host
}
