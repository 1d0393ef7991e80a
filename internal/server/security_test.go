package server

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityHeaders(t *testing.T) {
	app := middlewareApp(t)

	resp := sendFromOrigin(t, app, http.MethodGet, nil)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
	assert.Len(t, resp.Header.Get("X-Trace-ID"), 32)
}

func TestHealthEndpoints(t *testing.T) {
	env := newAPIEnv(t)

	live := env.do(http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, live.StatusCode)

	ready := env.do(http.MethodGet, "/health/ready", nil, "")
	require.Equal(t, http.StatusOK, ready.StatusCode)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decodeJSON(t, ready, &body)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Checks["database"])
	assert.Equal(t, "healthy", body.Checks["redis"])

	env.mr.Close()
	degraded := env.do(http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, degraded.StatusCode)
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	env := newAPIEnv(t)
	resp := env.do(http.MethodGet, "/api/nowhere", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, decodeError(t, resp).Error)
}
