package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"openobservatory/internal/config"
	"openobservatory/internal/middleware"
	"openobservatory/internal/models"
	"openobservatory/internal/service"
	"openobservatory/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

// apiEnv runs the full application against sqlite and miniredis.
type apiEnv struct {
	t   *testing.T
	srv *Server
	app *fiber.App
	db  *gorm.DB
	mr  *miniredis.Miniredis
	rdb *redis.Client
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	mr, rdb := testutil.NewRedis(t)

	cfg := &config.Config{
		JWTSecret:            testSecret,
		BcryptCost:           bcrypt.MinCost,
		FeatureFlags:         "nearby_notifications=on,achievement_events=on",
		ImageUploadDir:       t.TempDir(),
		ImageMaxUploadSizeMB: 1,
	}
	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)

	return &apiEnv{t: t, srv: srv, app: srv.newApp(), db: db, mr: mr, rdb: rdb}
}

// do sends a JSON request. body may be nil, a string, or any value to encode.
func (e *apiEnv) do(method, path string, body interface{}, token string) *http.Response {
	e.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	e.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// user registers username through the service and returns it with a token.
func (e *apiEnv) user(username string) (*models.User, string) {
	e.t.Helper()
	ctx := context.Background()
	_, err := e.srv.userService.Register(ctx, service.RegisterInput{
		Username: username,
		Password: "password123",
	})
	require.NoError(e.t, err)
	user, err := e.srv.userService.Authenticate(ctx, username, "password123")
	require.NoError(e.t, err)
	return user, e.token(user)
}

func (e *apiEnv) admin(username string) (*models.User, string) {
	e.t.Helper()
	user, token := e.user(username)
	_, err := e.srv.userService.SetRole(context.Background(), username, models.RoleAdmin)
	require.NoError(e.t, err)
	return user, token
}

func (e *apiEnv) token(user *models.User) string {
	e.t.Helper()
	token, _, err := middleware.IssueAccessToken(testSecret, user.ID, user.Username, time.Now())
	require.NoError(e.t, err)
	return token
}

func (e *apiEnv) body(name string, validity int) *models.CelestialBody {
	e.t.Helper()
	body, err := e.srv.celestialBodyService.Create(context.Background(), service.CreateCelestialBodyInput{
		Name:         name,
		ValidityTime: validity,
	})
	require.NoError(e.t, err)
	return body
}

func (e *apiEnv) observation(author *models.User, body *models.CelestialBody, lat, lng float64) *models.ObservationDetail {
	e.t.Helper()
	detail, err := e.srv.observationService.Create(context.Background(), service.CreateObservationInput{
		AuthorID:        author.ID,
		CelestialBodyID: body.ID,
		Latitude:        lat,
		Longitude:       lng,
		Visibility:      models.VisibilityNakedEye,
	})
	require.NoError(e.t, err)
	return detail
}

func decodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func decodeError(t *testing.T, resp *http.Response) models.ErrorResponse {
	t.Helper()
	var out models.ErrorResponse
	decodeJSON(t, resp, &out)
	return out
}
