package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/WaterWatchLabs/aquasense-backend/internal/database"
	"github.com/WaterWatchLabs/aquasense-backend/pkg/clientip"
)

const (
	// RateLimitWindow is the counting window per IP
	RateLimitWindow = 60 * time.Second
	// RateLimitMaxRequests is the maximum number of requests allowed in the window
	RateLimitMaxRequests = 60
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting
	RateLimitKeyPrefix = "ratelimit:"
	// BlockedIPKeyPrefix is the Redis key prefix for blocked IPs
	BlockedIPKeyPrefix = "blocked_ip:"
	// BlockedIPDuration is how long an IP stays blocked after exceeding the limit
	BlockedIPDuration = 1 * time.Hour
)

// RedisRateLimit provides rate limiting with temporary IP blocking, shared
// across instances through Redis. Fails open when Redis is unreachable so a
// cache outage never takes the API down with it.
func RedisRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientip.RealClientIP(r)
		ctx := r.Context()

		blockedKey := BlockedIPKeyPrefix + ip
		isBlocked, err := database.RedisClient.Exists(ctx, blockedKey).Result()
		if err == nil && isBlocked > 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"success":false,"message":"Your IP has been temporarily blocked due to excessive requests. Please try again later."}`))
			return
		}

		rateLimitKey := RateLimitKeyPrefix + ip

		count, err := database.RedisClient.Incr(ctx, rateLimitKey).Result()
		if err != nil {
			// Fail open
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			database.RedisClient.Expire(ctx, rateLimitKey, RateLimitWindow)
		}

		if count > RateLimitMaxRequests {
			database.RedisClient.Set(ctx, blockedKey, "1", BlockedIPDuration)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(fmt.Sprintf(`{"success":false,"message":"Rate limit exceeded. Your IP has been temporarily blocked. Please try again later.","retry_after":%d}`, int(RateLimitWindow.Seconds()))))
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(RateLimitMaxRequests))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(RateLimitMaxRequests-count, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(RateLimitWindow).Unix(), 10))

		next.ServeHTTP(w, r)
	})
}

// UnblockIP removes an IP from the blocked list (operator function).
func UnblockIP(ip string) error {
	return database.RedisClient.Del(context.Background(), BlockedIPKeyPrefix+ip).Err()
}

// RateLimit picks the Redis-backed limiter when Redis is connected,
// otherwise the in-process one.
func RateLimit(next http.Handler) http.Handler {
	if database.RedisClient != nil {
		return RedisRateLimit(next)
	}
	return MemoryRateLimit(next)
}
