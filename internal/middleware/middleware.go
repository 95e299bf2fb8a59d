package middleware

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/iamgideonidoko/persona/internal/config"
	"github.com/iamgideonidoko/persona/pkg/cache"
)

type RateLimiter struct {
	cache  *cache.Cache
	config *config.RateLimitConfig
}

func NewRateLimiter(cache *cache.Cache, config *config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		cache:  cache,
		config: config,
	}
}

// LimitByIP rate limits requests by IP address. A cache failure fails open:
// generation latency matters more than strict accounting.
func (rl *RateLimiter) LimitByIP() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier := fmt.Sprintf("ip:%s", c.IP())

		allowed, err := rl.cache.CheckRateLimit(
			c.Context(),
			identifier,
			rl.config.Requests,
			rl.config.Window,
		)

		if err != nil {
			return c.Next()
		}

		if !allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Rate limit exceeded",
				"retry_after": rl.config.Window.Seconds(),
			})
		}

		return c.Next()
	}
}

func CORS(origins []string) fiber.Handler {
	allowedOrigins := make(map[string]bool)
	for _, origin := range origins {
		allowedOrigins[origin] = true
	}

	return func(c *fiber.Ctx) error {
		origin := c.Get("Origin")

		if allowedOrigins["*"] || allowedOrigins[origin] {
			c.Set("Access-Control-Allow-Origin", origin)
			c.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Set("Access-Control-Max-Age", "3600")
		}

		if c.Method() == "OPTIONS" {
			return c.SendStatus(http.StatusNoContent)
		}

		return c.Next()
	}
}

func Logger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := c.Context().Time()
		err := c.Next()
		duration := c.Context().Time().Sub(start)

		fmt.Printf("[%s] %s %s - %d (%v) - IP: %s\n",
			start.Format("2006-01-02 15:04:05"),
			c.Method(), c.Path(), c.Response().StatusCode(), duration, c.IP(),
		)

		return err
	}
}

func Recover() fiber.Handler {
	return func(c *fiber.Ctx) error {
		defer func() {
			if r := recover(); r != nil {
				fmt.Printf("PANIC: %v\n", r)
				_ = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Internal server error",
				})
			}
		}()
		return c.Next()
	}
}
