package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an unused client bucket is kept.
const limiterIdleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterMiddleware holds one token bucket per client address.
type RateLimiterMiddleware struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	// Rate is the number of events per second.
	rate rate.Limit
	// Burst is the burst size.
	burst int
	// trustProxy makes the first X-Forwarded-For hop the client address.
	trustProxy  bool
	lastCleanup time.Time
	now         func() time.Time
	logger      zerolog.Logger
}

// NewRateLimiterMiddleware creates a new RateLimiterMiddleware. X-Forwarded-For
// is only honoured when trustProxy is set, i.e. behind a reverse proxy that
// overwrites it.
func NewRateLimiterMiddleware(r rate.Limit, b int, trustProxy bool, logger zerolog.Logger) *RateLimiterMiddleware {
	return &RateLimiterMiddleware{
		visitors:    make(map[string]*visitor),
		rate:        r,
		burst:       b,
		trustProxy:  trustProxy,
		lastCleanup: time.Now(),
		now:         time.Now,
		logger:      logger,
	}
}

// Middleware is the actual middleware handler.
func (rl *RateLimiterMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := remoteHost(r)
		if rl.trustProxy {
			client = forwardedHost(r, client)
		}

		if !rl.limiter(client).Allow() {
			rl.logger.Warn().Str("remote", client).Msg("Rate limit exceeded")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiterMiddleware) limiter(client string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastCleanup) >= limiterIdleTTL {
		for key, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= limiterIdleTTL {
				delete(rl.visitors, key)
			}
		}
		rl.lastCleanup = now
	}

	v, exists := rl.visitors[client]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[client] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (rl *RateLimiterMiddleware) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// remoteHost is the socket peer without its port.
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// forwardedHost returns the first X-Forwarded-For hop, or fallback.
func forwardedHost(r *http.Request, fallback string) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return fallback
}
