package httpapi

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// rateLimiter is a per-client token bucket used on the credential
// endpoints to slow down guessing. State is in-process, so the limit
// applies per instance.
type rateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	capacity  float64
	refill    float64 // tokens per second
	lastSweep time.Time
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

func newRateLimiter(capacity int, per time.Duration) *rateLimiter {
	return &rateLimiter{
		buckets:   make(map[string]*bucket),
		capacity:  float64(capacity),
		refill:    float64(capacity) / per.Seconds(),
		lastSweep: time.Now(),
	}
}

// staleAfter is the idle time after which a bucket has refilled
// completely and carries no state worth keeping.
func (rl *rateLimiter) staleAfter() time.Duration {
	return time.Duration(rl.capacity / rl.refill * float64(time.Second))
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.sweep(now)
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: rl.capacity, lastSeen: now}
		rl.buckets[key] = b
	}

	b.tokens += now.Sub(b.lastSeen).Seconds() * rl.refill
	if b.tokens > rl.capacity {
		b.tokens = rl.capacity
	}
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweep evicts idle buckets so the map does not grow with client IP
// churn. Runs at most once per staleAfter window; caller holds the
// lock.
func (rl *rateLimiter) sweep(now time.Time) {
	stale := rl.staleAfter()
	if now.Sub(rl.lastSweep) < stale {
		return
	}
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) >= stale {
			delete(rl.buckets, key)
		}
	}
	rl.lastSweep = now
}

// middleware limits requests per client IP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(1/rl.refill)+1))
			respond(w, http.StatusTooManyRequests, errorResponse{Error: "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
