package middleware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/newsroom-service/internal/utils"
)

// Allower is a shared fixed-window counter, backed by Redis in production.
type Allower interface {
	Allow(ctx context.Context, bucket string, limit int, window time.Duration) (bool, error)
}

type RateLimiter struct {
	store  Allower
	prefix string
	limit  int
	window time.Duration
	log    *zap.Logger
}

func NewRateLimiter(store Allower, prefix string, limit int, window time.Duration, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{store: store, prefix: prefix, limit: limit, window: window, log: logger}
}

// MiddlewareByKey counts requests per keyFunc(c). A store failure lets the
// request through.
func (r *RateLimiter) MiddlewareByKey(keyFunc func(c *fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := r.prefix + ":" + keyFunc(c)
		ok, err := r.store.Allow(c.UserContext(), key, r.limit, r.window)
		if err != nil {
			r.log.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			return c.Next()
		}
		if !ok {
			return utils.JSONError(c, fiber.StatusTooManyRequests, "too many attempts, try again later")
		}
		return c.Next()
	}
}

// ByIP keys the limiter on the client address.
func ByIP(c *fiber.Ctx) string { return getIP(c) }
