package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

// Quota is one named fixed-window limit.
type Quota struct {
	Name   string
	Max    int
	Window time.Duration
	Policy FailPolicy
	// Key identifies the caller. Defaults to CallerKey.
	Key func(*fiber.Ctx) string
}

// Usage is a caller's position in the current window.
type Usage struct {
	Count int64
	Reset time.Duration
}

func rateLimitDisabled() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development":
		return true
	}
	return false
}

func rateLimitKey(resource, id string) string {
	return fmt.Sprintf("rl:%s:%s", resource, id)
}

// consume counts one request against the window of key.
func consume(ctx context.Context, rdb *redis.Client, key string, window time.Duration) (Usage, error) {
	if rdb == nil {
		return Usage{}, fmt.Errorf("redis client is nil")
	}
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		ttl = p.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return Usage{}, err
	}
	u := Usage{Count: incr.Val(), Reset: ttl.Val()}
	if u.Count == 1 || u.Reset < 0 {
		rdb.Expire(ctx, key, window)
		u.Reset = window
	}
	return u, nil
}

// CheckRateLimit checks if a resource has exceeded its rate limit.
// Returns true if allowed, false if limit exceeded.
// Rate limiting is disabled when APP_ENV is "test" or "development".
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if rateLimitDisabled() {
		return true, nil
	}
	u, err := consume(ctx, rdb, rateLimitKey(resource, id), window)
	if err != nil {
		return false, err
	}
	return u.Count <= int64(limit), nil
}

// CallerKey keys by authenticated user when known, otherwise by remote IP.
func CallerKey(c *fiber.Ctx) string {
	if uid := c.Locals("userID"); uid != nil {
		return fmt.Sprintf("user:%v", uid)
	}
	return "ip:" + c.IP()
}

// LoginKey keys login attempts by remote IP and the submitted username, so
// guessing against one account does not lock out an office sharing an IP.
func LoginKey(c *fiber.Ctx) string {
	var body struct {
		Username string `json:"username"`
	}
	_ = c.BodyParser(&body)
	username := strings.ToLower(strings.TrimSpace(body.Username))
	if username == "" {
		return "ip:" + c.IP()
	}
	return "ip:" + c.IP() + ":user:" + username
}

// Limit enforces q and reports the window state in X-RateLimit-* headers.
func Limit(rdb *redis.Client, q Quota) fiber.Handler {
	keyFn := q.Key
	if keyFn == nil {
		keyFn = CallerKey
	}
	return func(c *fiber.Ctx) error {
		if rateLimitDisabled() {
			return c.Next()
		}

		resource := q.Name
		if resource == "" {
			resource = c.Path()
		}

		u, err := consume(c.UserContext(), rdb, rateLimitKey(resource, keyFn(c)), q.Window)
		if err != nil {
			if q.Policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit store unavailable, failing closed",
					slog.String("path", c.Path()),
					slog.String("resource", resource),
					slog.String("error", err.Error()),
				)
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "rate limit unavailable",
				})
			}
			return c.Next()
		}

		remaining := int64(q.Max) - u.Count
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(q.Max))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if u.Count > int64(q.Max) {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(u.Reset.Round(time.Second)/time.Second)))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
