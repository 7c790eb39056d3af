package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	sweepInterval = time.Minute
	clientIdleTTL = 3 * time.Minute
)

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// RateLimiter applies a per-client token bucket keyed by remote IP.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*bucket
	rate    float64
	burst   float64
}

func NewRateLimiter(rps, burst int) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*bucket),
		rate:    float64(rps),
		burst:   float64(burst),
	}
	go rl.sweep()
	return rl
}

func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.clients[ip]
	if !ok {
		b = &bucket{tokens: rl.burst, lastSeen: now}
		rl.clients[ip] = b
	}

	b.tokens += now.Sub(b.lastSeen).Seconds() * rl.rate
	if b.tokens > rl.burst {
		b.tokens = rl.burst
	}
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (rl *RateLimiter) sweep() {
	for {
		time.Sleep(sweepInterval)
		rl.mu.Lock()
		for ip, b := range rl.clients {
			if time.Since(b.lastSeen) > clientIdleTTL {
				delete(rl.clients, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// clientIP keys the bucket on the host part so a client's ephemeral source
// ports all share one budget.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
