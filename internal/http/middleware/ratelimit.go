package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	visitorIdleTimeout   = 3 * time.Minute
	visitorSweepInterval = time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitorRegistry hands out one token bucket per client IP and evicts
// buckets that have been idle past visitorIdleTimeout.
type visitorRegistry struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
}

func newVisitorRegistry(rps float64, burst int) *visitorRegistry {
	registry := &visitorRegistry{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
	go registry.sweep()
	return registry
}

func (reg *visitorRegistry) limiter(ip string) *rate.Limiter {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	v, ok := reg.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(reg.rps, reg.burst)}
		reg.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

func (reg *visitorRegistry) sweep() {
	ticker := time.NewTicker(visitorSweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		reg.mu.Lock()
		for key, item := range reg.visitors {
			if time.Since(item.lastSeen) > visitorIdleTimeout {
				delete(reg.visitors, key)
			}
		}
		reg.mu.Unlock()
	}
}

func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	if rps <= 0 {
		rps = 20
	}
	if burst <= 0 {
		burst = 40
	}

	registry := newVisitorRegistry(rps, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := extractIP(r.RemoteAddr)
			if !registry.limiter(ip).Allow() {
				w.Header().Set("Retry-After", "1")
				writeEnvelopeError(w, r, http.StatusTooManyRequests, "rate_limited", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil || host == "" {
		return remoteAddr
	}
	return host
}
