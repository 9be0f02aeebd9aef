package wrap

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the RateLimit middleware.
type RateLimitConfig struct {
	Rate    float64                      // requests per second
	Burst   int                          // max burst
	KeyFunc func(r *http.Request) string // default: route name and client IP
	// OnLimit writes the rejection. Default: a JSON {"error": ...} body with 429.
	OnLimit     http.Handler
	IdleTimeout time.Duration // drop limiters unused this long (default: 5m)
}

// RateLimit returns middleware that throttles each key separately. Keys
// default to the matched route plus the client IP, so one busy endpoint
// does not exhaust a client's budget for the others.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = routeClientKey
	}
	if cfg.OnLimit == nil {
		cfg.OnLimit = &Response{
			Body:        []byte(`{"error": "rate limit exceeded"}`),
			Status:      http.StatusTooManyRequests,
			ContentType: "application/json",
		}
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}

	retryAfter := "1"
	if cfg.Rate > 0 && cfg.Rate < 1 {
		retryAfter = strconv.FormatFloat(1/cfg.Rate, 'f', 0, 64)
	}

	var (
		mu       sync.Mutex
		limiters = make(map[string]*limiterEntry)
		swept    time.Time
	)

	allow := func(key string) bool {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()
		if now.Sub(swept) >= cfg.IdleTimeout {
			for k, e := range limiters {
				if now.Sub(e.lastSeen) > cfg.IdleTimeout {
					delete(limiters, k)
				}
			}
			swept = now
		}

		entry, ok := limiters[key]
		if !ok {
			entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst)}
			limiters[key] = entry
		}
		entry.lastSeen = now
		return entry.limiter.AllowN(now, 1)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allow(cfg.KeyFunc(r)) {
				w.Header().Set("Retry-After", retryAfter)
				cfg.OnLimit.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func routeClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return RouteName(r) + "|" + host
}
