package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFeatureFlags(t *testing.T) {
	env := newAPIEnv(t)
	_, userToken := env.user("ursa")
	_, adminToken := env.admin("root")

	resp := env.do(http.MethodGet, "/api/admin/feature-flags", nil, userToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(http.MethodGet, "/api/admin/feature-flags", nil, adminToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Raw       map[string]string `json:"raw"`
		Evaluated map[string]bool   `json:"evaluated"`
	}
	decodeJSON(t, resp, &body)
	assert.Equal(t, "on", body.Raw["nearby_notifications"])
	assert.True(t, body.Evaluated["achievement_events"])
}
