package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"openobservatory/internal/cache"
	"openobservatory/internal/config"
	"openobservatory/internal/middleware"
	"openobservatory/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signedToken builds an access token for user 123 and lets the caller
// break one claim at a time.
func signedToken(t *testing.T, secret string, mutate func(jwt.MapClaims)) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": "123",
		"iss": middleware.TokenIssuer,
		"aud": middleware.TokenAudience,
		"exp": time.Now().Add(time.Hour).Unix(),
		"jti": "test-jti-valid-length",
	}
	if mutate != nil {
		mutate(claims)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestServer_AuthRequired(t *testing.T) {
	s := &Server{config: &config.Config{JWTSecret: testSecret}}
	app := fiber.New()
	app.Get("/api/users/@me", s.AuthRequired(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": currentUserID(c)})
	})

	rejected := map[string]string{
		"missing header":    "",
		"basic scheme":      "Basic dmVnYTpzZWNyZXQ=",
		"wrong issuer":      "Bearer " + signedToken(t, testSecret, func(c jwt.MapClaims) { c["iss"] = "someone-else" }),
		"wrong audience":    "Bearer " + signedToken(t, testSecret, func(c jwt.MapClaims) { c["aud"] = "another-client" }),
		"expired":           "Bearer " + signedToken(t, testSecret, func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Hour).Unix() }),
		"foreign signature": "Bearer " + signedToken(t, "another-secret", nil),
	}
	for name, header := range rejected {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/users/@me", nil)
			if header != "" {
				req.Header.Set(fiber.HeaderAuthorization, header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users/@me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+signedToken(t, testSecret, nil))
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]float64
	decodeJSON(t, resp, &body)
	assert.Equal(t, float64(123), body["userID"])
}

func TestServer_AuthRequired_WebsocketNeedsTicket(t *testing.T) {
	_, rdb := testutil.NewRedis(t)
	s := &Server{config: &config.Config{JWTSecret: testSecret}, redis: rdb}
	app := fiber.New()
	app.Get("/api/ws", s.AuthRequired(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	token, _, err := middleware.IssueAccessToken(testSecret, 5, "deneb", time.Now())
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/ws", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "WebSocket ticket required", decodeError(t, resp).Error)
}

func TestServer_AuthRequired_RevokedToken(t *testing.T) {
	_, rdb := testutil.NewRedis(t)
	s := &Server{config: &config.Config{JWTSecret: testSecret}, redis: rdb}
	app := fiber.New()
	app.Get("/protected", s.AuthRequired(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	token, claims, err := middleware.IssueAccessToken(testSecret, 7, "vega", time.Now())
	require.NoError(t, err)
	require.NoError(t, rdb.Set(context.Background(), cache.BlacklistKey(claims.JTI), 7, time.Hour).Err())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Token has been revoked", decodeError(t, resp).Error)
}

func TestServer_OptionalAuth(t *testing.T) {
	s := &Server{config: &config.Config{JWTSecret: testSecret}}
	app := fiber.New()
	app.Get("/maybe", s.OptionalAuth(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": currentUserID(c)})
	})

	token, _, err := middleware.IssueAccessToken(testSecret, 42, "altair", time.Now())
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		userID float64
	}{
		{"anonymous", "", 0},
		{"valid token", "Bearer " + token, 42},
		{"garbage token", "Bearer not-a-jwt", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/maybe", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			var body map[string]float64
			decodeJSON(t, resp, &body)
			assert.Equal(t, tt.userID, body["userID"])
		})
	}
}
