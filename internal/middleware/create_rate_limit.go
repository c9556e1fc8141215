package middleware

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// CreateRateLimit caps funding-request creation per authenticated user using
// Redis if available. Each user gets maxPerMin new requests per minute;
// anonymous callers fall back to IP. Fail-open on cache errors so a Redis
// hiccup never blocks deposits.
func CreateRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 10
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		subject, ok := UserEmail(c)
		if !ok {
			subject = c.IP()
		}
		key := "rl:create:" + subject
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err == nil && cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if err != nil {
			return c.Next()
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many funding requests, slow down")
		}
		return c.Next()
	}
}
