package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/WaterWatchLabs/aquasense-backend/pkg/clientip"
	"golang.org/x/time/rate"
)

// SecurityHeaders sets security-related response headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// --- In-process rate limiting (per-IP token bucket) ---
// Used when Redis is not configured. State is per-process only.

const (
	memoryRatePerSecond = 5
	memoryBurst         = 20
	memoryEntryTTL      = 10 * time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	memMu       sync.Mutex
	memEntries  = make(map[string]*limiterEntry)
	lastCleanup = time.Now()
)

// MemoryRateLimit limits each client IP to a steady rate with a small burst.
func MemoryRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientip.RealClientIP(r)

		memMu.Lock()
		entry, ok := memEntries[ip]
		if !ok {
			entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(memoryRatePerSecond), memoryBurst)}
			memEntries[ip] = entry
		}
		entry.lastSeen = time.Now()
		if time.Since(lastCleanup) > memoryEntryTTL {
			for key, e := range memEntries {
				if time.Since(e.lastSeen) > memoryEntryTTL {
					delete(memEntries, key)
				}
			}
			lastCleanup = time.Now()
		}
		allowed := entry.limiter.Allow()
		memMu.Unlock()

		if !allowed {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"success":false,"message":"Too many requests. Please slow down."}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
