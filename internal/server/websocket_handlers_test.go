package server

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"openobservatory/internal/models"
	"openobservatory/internal/notifications"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listen serves env.app on a loopback port with the hub wired to Redis.
func (e *apiEnv) listen() string {
	e.t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(e.t, e.srv.hub.StartWiring(ctx, e.srv.notifier))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(e.t, err)
	go func() { _ = e.app.Listener(ln) }()

	e.t.Cleanup(func() { _ = e.app.ShutdownWithTimeout(2 * time.Second) })
	e.t.Cleanup(func() { _ = e.srv.hub.Shutdown(context.Background()) })
	e.t.Cleanup(cancel)
	return ln.Addr().String()
}

func (e *apiEnv) dial(addr, token string) *gorillaws.Conn {
	e.t.Helper()
	resp := e.do(http.MethodPost, "/api/ws/ticket", nil, token)
	require.Equal(e.t, http.StatusOK, resp.StatusCode)
	var ticket WSTicketResponse
	decodeJSON(e.t, resp, &ticket)

	conn, _, err := gorillaws.DefaultDialer.Dial("ws://"+addr+"/api/ws?ticket="+ticket.Ticket, nil)
	require.NoError(e.t, err)
	e.t.Cleanup(func() { _ = conn.Close() })
	require.NoError(e.t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	// The greeting is sent after registration, so events published from
	// here on reach this connection.
	var hello map[string]interface{}
	require.NoError(e.t, conn.ReadJSON(&hello))
	require.Equal(e.t, "connected", hello["type"])
	return conn
}

func TestWebsocketDeliversUserEvents(t *testing.T) {
	env := newAPIEnv(t)
	user, token := env.user("hale")
	addr := env.listen()
	conn := env.dial(addr, token)

	err := env.srv.notifier.PublishEvent(context.Background(), user.ID, notifications.Event{
		Type:    notifications.EventAchievementLevel,
		Payload: notifications.AchievementPayload{Achievement: "OBSERVER", Level: "BRONZE"},
	})
	require.NoError(t, err)

	var ev struct {
		Type    string                           `json:"type"`
		Payload notifications.AchievementPayload `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, notifications.EventAchievementLevel, ev.Type)
	assert.Equal(t, "OBSERVER", ev.Payload.Achievement)
	assert.Equal(t, 1, env.srv.hub.ConnectionCount())
}

func TestWebsocketNearbyObservationNotification(t *testing.T) {
	env := newAPIEnv(t)
	_, watcherToken := env.user("hale")
	_, authorToken := env.user("bopp")
	body := env.body("Hale-Bopp", 12)

	enabled := true
	resp := env.do(http.MethodPatch, "/api/users/hale", UpdateUserRequest{NotificationsEnabled: &enabled}, watcherToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	lat, lng := 32.90, -105.53
	resp = env.do(http.MethodPost, "/api/users/hale/position",
		UpdatePositionRequest{Latitude: &lat, Longitude: &lng}, watcherToken)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	addr := env.listen()
	conn := env.dial(addr, watcherToken)

	resp = env.do(http.MethodPost, "/api/observations", CreateObservationRequest{
		CelestialBodyID: body.ID,
		Latitude:        32.92,
		Longitude:       -105.53,
		Visibility:      models.VisibilityNakedEye,
	}, authorToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var ev struct {
		Type    string                                  `json:"type"`
		Payload notifications.ObservationNearbyPayload `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, notifications.EventObservationNearby, ev.Type)
	assert.Equal(t, "Hale-Bopp", ev.Payload.CelestialBody)
	assert.Equal(t, "bopp", ev.Payload.Author)
	assert.InDelta(t, 2.22, ev.Payload.DistanceKm, 0.05)
}

func TestWebsocketRejectsReplayedTicket(t *testing.T) {
	env := newAPIEnv(t)
	_, token := env.user("swift")
	addr := env.listen()

	resp := env.do(http.MethodPost, "/api/ws/ticket", nil, token)
	var ticket WSTicketResponse
	decodeJSON(t, resp, &ticket)
	url := "ws://" + addr + "/api/ws?ticket=" + ticket.Ticket

	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	_, replay, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, replay)
	defer func() { _ = replay.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, replay.StatusCode)
}

// Run with -race: the going-away frame must be written by the client's own
// write loop, never by the goroutine calling Shutdown.
func TestWebsocketHubShutdownClosesLiveSocket(t *testing.T) {
	env := newAPIEnv(t)
	user, token := env.user("lyra")
	addr := env.listen()
	conn := env.dial(addr, token)

	require.NoError(t, env.srv.notifier.PublishEvent(context.Background(), user.ID, notifications.Event{
		Type:    notifications.EventAchievementLevel,
		Payload: notifications.AchievementPayload{Achievement: "OBSERVER", Level: "BRONZE"},
	}))
	require.NoError(t, env.srv.hub.Shutdown(context.Background()))

	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var closeErr *gorillaws.CloseError
		require.ErrorAs(t, err, &closeErr)
		assert.Equal(t, gorillaws.CloseGoingAway, closeErr.Code)
		assert.Equal(t, "Server shutting down", closeErr.Text)
		break
	}
	assert.Zero(t, env.srv.hub.ConnectionCount())
}
