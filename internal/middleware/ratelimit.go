package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/college-admin/backend/internal/http/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitMiddleware is a fixed-window counter in Redis, keyed by the
// authenticated user when known and by client IP otherwise. Redis errors
// fail open.
func RateLimitMiddleware(rdb *redis.Client, limit int, window time.Duration, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limit <= 0 {
			return c.Next()
		}

		subject := c.IP()
		if uid := GetUserID(c); uid != uuid.Nil {
			subject = uid.String()
		}
		secs := int64(window / time.Second)
		if secs <= 0 {
			secs = 60
		}
		bucket := time.Now().Unix() / secs
		key := fmt.Sprintf("rl:%s:%d", subject, bucket)

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		pipe := rdb.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window)
		if _, err := pipe.Exec(ctx); err != nil {
			log.Debug("rate limit unavailable", zap.Error(err))
			return c.Next() // fail open
		}

		remaining := int64(limit) - incr.Val()
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", fmt.Sprint(limit))
		c.Set("X-RateLimit-Remaining", fmt.Sprint(remaining))

		if incr.Val() > int64(limit) {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
				Error:     "rate limit exceeded",
				RequestID: GetRequestID(c),
			})
		}

		return c.Next()
	}
}
