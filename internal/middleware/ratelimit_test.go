package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestHit(t *testing.T) {
	ctx := context.Background()

	t.Run("exempt outside production", func(t *testing.T) {
		for _, env := range []string{"", "development", "test"} {
			t.Setenv("APP_ENV", env)
			w, err := Hit(ctx, nil, "login", "ip:1", 1, time.Minute)
			require.NoError(t, err, env)
			assert.True(t, w.Exempt, env)
			assert.True(t, w.Allowed(), env)
		}
	})

	t.Run("missing store", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		_, err := Hit(ctx, nil, "login", "ip:1", 1, time.Minute)
		assert.ErrorIs(t, err, errNoLimiterStore)
	})

	t.Run("fixed window", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		mr, rdb := newTestRedis(t)

		var w Window
		var err error
		for i := 0; i < 3; i++ {
			w, err = Hit(ctx, rdb, "vote", "user:1", 2, time.Minute)
			require.NoError(t, err)
		}
		assert.Equal(t, int64(3), w.Count)
		assert.False(t, w.Allowed())
		assert.Zero(t, w.Remaining())
		assert.Equal(t, time.Minute, mr.TTL("rl:vote:user:1"))

		mr.FastForward(2 * time.Minute)
		w, err = Hit(ctx, rdb, "vote", "user:1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, w.Allowed())
		assert.Equal(t, 1, w.Remaining())
	})
}

func limitedApp(handler fiber.Handler, authenticate bool) *fiber.App {
	app := fiber.New()
	if authenticate {
		app.Use(func(c *fiber.Ctx) error {
			c.Locals("userID", uint(7))
			return c.Next()
		})
	}
	app.Post("/api/observations", handler, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})
	return app
}

func post(t *testing.T, app *fiber.App) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/observations", nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestRateLimitStoreOutage(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	open := limitedApp(RateLimit(nil, 1, time.Minute), false)
	assert.Equal(t, fiber.StatusCreated, post(t, open).StatusCode)

	closed := limitedApp(RateLimitWithPolicy(nil, 1, time.Minute, FailClosed, "login"), false)
	assert.Equal(t, fiber.StatusServiceUnavailable, post(t, closed).StatusCode)
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr, rdb := newTestRedis(t)
	app := limitedApp(RateLimit(rdb, 1, time.Minute, "create_observation"), true)

	first := post(t, app)
	assert.Equal(t, fiber.StatusCreated, first.StatusCode)
	assert.Equal(t, "0", first.Header.Get("X-RateLimit-Remaining"))

	second := post(t, app)
	assert.Equal(t, fiber.StatusTooManyRequests, second.StatusCode)
	assert.Equal(t, "60", second.Header.Get(fiber.HeaderRetryAfter))
	assert.True(t, mr.Exists("rl:create_observation:user:7"), "authenticated callers are keyed by user id")
}

func TestRateLimitSkipsHeadersWhenExempt(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	app := limitedApp(RateLimit(nil, 1, time.Minute), false)

	resp := post(t, app)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("X-RateLimit-Limit"))
}
