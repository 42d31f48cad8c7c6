package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/isdelr/accounts-be/internal/api/respond"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter throttles requests per client address with a token bucket.
type IPRateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	perMinute int
	burst     int
	now       func() time.Time
}

// NewIPRateLimiter allows perMinute requests per address with the given burst.
// A non-positive perMinute disables limiting.
func NewIPRateLimiter(perMinute, burst int) *IPRateLimiter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60)
	}
	if burst < 1 {
		burst = 1
	}
	return &IPRateLimiter{
		visitors:  make(map[string]*visitor),
		limit:     limit,
		perMinute: perMinute,
		burst:     burst,
		now:       time.Now,
	}
}

// Allow reports whether one more request from key may proceed now.
func (l *IPRateLimiter) Allow(key string) bool {
	if l.limit == rate.Inf {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Sweep forgets addresses idle for longer than idle and returns how many were removed.
func (l *IPRateLimiter) Sweep(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idle)
	removed := 0
	for key, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, key)
			removed++
		}
	}
	return removed
}

// Middleware rejects requests over the limit with 429.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !l.Allow(ip) {
			hlog.FromRequest(r).Warn().Str("ip", ip).Msg("Rate limit exceeded")
			// Seconds until the next token, rounded up.
			w.Header().Set("Retry-After", strconv.Itoa((60+l.perMinute-1)/l.perMinute))
			respond.Detail(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr, which RealIP may already have rewritten.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
