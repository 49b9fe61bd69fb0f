package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/ylayali/personalisedcolpage/internal/pkg/response"
)

// RateLimit returns middleware that caps requests per user inside a rolling
// window using a Redis counter. A nil client disables limiting (Redis is
// optional in development).
func RateLimit(client *redis.Client, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if client == nil || limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			userID := GetUserID(r.Context())
			key := fmt.Sprintf("ratelimit:generate:%s", userID)

			count, err := client.Incr(r.Context(), key).Result()
			if err != nil {
				// Redis being down should not block paid traffic
				log.Warn().Err(err).Msg("rate limit counter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				client.Expire(r.Context(), key, window)
			}

			if count > int64(limit) {
				response.TooManyRequests(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
