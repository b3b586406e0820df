package redis

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/getevo/evo/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/taskdesk/taskdesk-backend/lib/response"
)

// RateLimitConfig holds the configuration for a rate limit rule
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
	Enabled     bool
}

// DefaultRateLimitConfig returns a default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 60,
		Window:      1 * time.Minute,
		Enabled:     true,
	}
}

// rateLimitCache stores rate limit configurations in memory
var rateLimitCache sync.Map

// SetRateLimitConfig sets a rate limit configuration for a key
func SetRateLimitConfig(key string, config RateLimitConfig) {
	rateLimitCache.Store(key, config)
}

// GetRateLimitConfig gets a rate limit configuration for a key
func GetRateLimitConfig(key string) RateLimitConfig {
	if cached, ok := rateLimitCache.Load(key); ok {
		return cached.(RateLimitConfig)
	}
	return DefaultRateLimitConfig()
}

// ClearRateLimitCache clears all cached rate limit configurations
func ClearRateLimitCache() {
	rateLimitCache = sync.Map{}
	log.Println("Rate limit cache cleared")
}

// RateLimitByIP creates a generic IP-based rate limiter for fiber
// routes.
func RateLimitByIP(maxRequests int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !IsAvailable() {
			return c.Next()
		}

		clientIP := c.IP()
		if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
			clientIP = forwarded
		}

		redisKey := fmt.Sprintf("rate_limit:ip:%s", clientIP)

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		count, err := Client.Incr(ctx, redisKey).Result()
		if err != nil {
			return c.Next()
		}

		if count == 1 {
			Client.Expire(ctx, redisKey, window)
		}

		ttl, _ := Client.TTL(ctx, redisKey).Result()

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", max(0, maxRequests-int(count))))
		c.Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(ttl).Unix()))

		if int(count) > maxRequests {
			c.Set("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too many requests",
				"retry_after": int(ttl.Seconds()),
			})
		}

		return c.Next()
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ErrRateLimited is returned to clients that exhausted their budget.
var ErrRateLimited = response.NewError(response.ErrorCodeTooManyRequests, "Too many requests. Please try again later.", 429)

// CheckRateLimit reports whether another request under the endpoint key
// is allowed for this client. Fails open when Redis is unavailable or
// errors, so a cache outage never locks users out.
func CheckRateLimit(key string, clientIP string) bool {
	if !IsAvailable() {
		return true
	}

	config := GetRateLimitConfig(key)
	if !config.Enabled {
		return true
	}

	redisKey := fmt.Sprintf("rate_limit:%s:%s", key, clientIP)

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	count, err := Client.Incr(ctx, redisKey).Result()
	if err != nil {
		log.Printf("Redis rate limit error: %v", err)
		return true
	}

	if count == 1 {
		Client.Expire(ctx, redisKey, config.Window)
	}

	return int(count) <= config.MaxRequests
}

// EvoRateLimitMiddleware creates an evo-compatible rate limiting
// middleware for a configured endpoint key.
func EvoRateLimitMiddleware(key string) func(*evo.Request) error {
	return func(req *evo.Request) error {
		clientIP := req.IP()
		if forwarded := req.Header("X-Forwarded-For"); forwarded != "" {
			clientIP = forwarded
		}
		if !CheckRateLimit(key, clientIP) {
			return ErrRateLimited
		}
		return req.Next()
	}
}
