package middleware

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens to a request when Redis cannot be reached.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

var errNoLimiterStore = errors.New("rate limit store not configured")

// Window is the state of one fixed-window counter after a hit.
type Window struct {
	Count    int64
	Limit    int
	ResetsIn time.Duration
	Exempt   bool
}

func (w Window) Allowed() bool { return w.Exempt || w.Count <= int64(w.Limit) }

func (w Window) Remaining() int {
	if left := int64(w.Limit) - w.Count; left > 0 {
		return int(left)
	}
	return 0
}

// limitingDisabled is true for local development and test runs.
func limitingDisabled() bool {
	switch os.Getenv("APP_ENV") {
	case "", "development", "test":
		return true
	}
	return false
}

// Hit counts one request for id against resource in a fixed window of the
// given length. The window starts with the first hit.
func Hit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (Window, error) {
	w := Window{Limit: limit, ResetsIn: window}
	if limitingDisabled() {
		w.Exempt = true
		return w, nil
	}
	if rdb == nil {
		return w, errNoLimiterStore
	}

	key := "rl:" + resource + ":" + id
	count, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return w, err
	}
	w.Count = count
	if count == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return w, err
		}
		return w, nil
	}
	if ttl, err := rdb.TTL(ctx, key).Result(); err == nil && ttl > 0 {
		w.ResetsIn = ttl
	}
	return w, nil
}

// RateLimit allows limit requests per window for each caller and fails open.
// Callers are keyed by user id once authenticated, by IP before that.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit FailPolicy. name picks
// the counter; it defaults to the request path.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}
		caller := "ip:" + c.IP()
		if uid := c.Locals("userID"); uid != nil {
			caller = fmt.Sprintf("user:%v", uid)
		}

		w, err := Hit(c.UserContext(), rdb, resource, caller, limit, window)
		if err != nil {
			if policy == FailOpen {
				return c.Next()
			}
			Logger.WarnContext(c.UserContext(), "rate limit store unavailable, failing closed",
				"resource", resource, "error", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "rate limit unavailable"})
		}
		if w.Exempt {
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(w.Remaining()))
		if !w.Allowed() {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(w.ResetsIn.Round(time.Second).Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
		}
		return c.Next()
	}
}
