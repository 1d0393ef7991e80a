package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"openobservatory/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webOrigin = "http://localhost:5173"

// middlewareApp mounts only the global middleware chain in front of a
// stub observation endpoint.
func middlewareApp(t *testing.T) *fiber.App {
	t.Helper()
	srv := &Server{config: &config.Config{AllowedOrigins: webOrigin}}
	app := fiber.New()
	srv.SetupMiddleware(app)
	app.Get("/api/observations", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Post("/api/observations", func(c *fiber.Ctx) error {
		c.Location("/api/observations/1")
		return c.SendStatus(fiber.StatusCreated)
	})
	return app
}

func sendFromOrigin(t *testing.T, app *fiber.App, method string, header map[string]string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, "/api/observations", nil)
	req.Header.Set("Origin", webOrigin)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// exhaustLimiter burns the global per-IP budget of 100 requests a minute.
func exhaustLimiter(t *testing.T, app *fiber.App, method string) {
	t.Helper()
	for i := 0; i < 100; i++ {
		resp := sendFromOrigin(t, app, method, nil)
		require.Less(t, resp.StatusCode, 400, "request %d", i)
	}
}

func TestCORS_RateLimitedResponseKeepsHeaders(t *testing.T) {
	app := middlewareApp(t)
	exhaustLimiter(t, app, http.MethodGet)

	resp := sendFromOrigin(t, app, http.MethodGet, nil)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, webOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORS_PreflightBypassesLimiter(t *testing.T) {
	app := middlewareApp(t)
	exhaustLimiter(t, app, http.MethodPost)
	require.Equal(t, fiber.StatusTooManyRequests, sendFromOrigin(t, app, http.MethodPost, nil).StatusCode)

	resp := sendFromOrigin(t, app, http.MethodOptions, map[string]string{
		"Access-Control-Request-Method":  http.MethodPost,
		"Access-Control-Request-Headers": "authorization,content-type",
	})
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, webOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestCORS_ExposesLocationAndTraceHeaders(t *testing.T) {
	resp := sendFromOrigin(t, middlewareApp(t), http.MethodPost, nil)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	exposed := resp.Header.Get("Access-Control-Expose-Headers")
	assert.Contains(t, exposed, "Location")
	assert.Contains(t, exposed, "X-Trace-ID")
}
