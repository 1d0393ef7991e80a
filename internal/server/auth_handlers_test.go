package server

import (
	"net/http"
	"testing"

	"openobservatory/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	env := newAPIEnv(t)
	env.user("vega")

	t.Run("valid credentials", func(t *testing.T) {
		resp := env.do(http.MethodPost, "/api/auth/login",
			LoginRequest{Username: "vega", Password: "password123"}, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body LoginResponse
		decodeJSON(t, resp, &body)
		require.NotEmpty(t, body.Token)
		require.NotNil(t, body.User)
		assert.Equal(t, "vega", body.User.Username)
		assert.True(t, body.ExpiresAt.After(body.User.CreatedAt))

		me := env.do(http.MethodGet, "/api/users/@me", nil, body.Token)
		assert.Equal(t, http.StatusOK, me.StatusCode)
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := env.do(http.MethodPost, "/api/auth/login",
			LoginRequest{Username: "vega", Password: "password999"}, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, models.CodeInvalidCredentials, decodeError(t, resp).Code)
	})

	t.Run("unknown user looks like a wrong password", func(t *testing.T) {
		resp := env.do(http.MethodPost, "/api/auth/login",
			LoginRequest{Username: "nobody", Password: "password123"}, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, models.CodeInvalidCredentials, decodeError(t, resp).Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		resp := env.do(http.MethodPost, "/api/auth/login", LoginRequest{Username: "vega"}, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp := env.do(http.MethodPost, "/api/auth/login", "{", "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Invalid request body", decodeError(t, resp).Error)
	})
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newAPIEnv(t)
	_, token := env.user("deneb")

	resp := env.do(http.MethodPost, "/api/auth/logout", nil, token)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	me := env.do(http.MethodGet, "/api/users/@me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, me.StatusCode)

	// A revoked token no longer identifies the caller on optional routes.
	reg := env.do(http.MethodPost, "/api/users/register",
		RegisterRequest{Username: "deneb2", Password: "password123"}, token)
	assert.Equal(t, http.StatusCreated, reg.StatusCode)
}

func TestLogoutRequiresToken(t *testing.T) {
	env := newAPIEnv(t)
	resp := env.do(http.MethodPost, "/api/auth/logout", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
