package server

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"openobservatory/internal/cache"
	"openobservatory/internal/middleware"
	"openobservatory/internal/models"
	"openobservatory/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// WSTicketResponse is returned by POST /api/ws/ticket.
type WSTicketResponse struct {
	Ticket    string    `json:"ticket"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueWSTicket handles POST /api/ws/ticket
// @Summary Issue a single-use websocket ticket
// @Description Browsers cannot set headers on websocket upgrades; the ticket is passed as ?ticket= on GET /api/ws instead.
// @Tags realtime
// @Security BearerAuth
// @Produce json
// @Success 200 {object} WSTicketResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil || s.hub == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(nil).WithMessage("Realtime notifications unavailable"))
	}

	ticket := uuid.NewString()
	userID := currentUserID(c)
	if err := s.redis.Set(c.UserContext(), cache.WSTicketKey(ticket), userID, cache.WSTicketTTL).Err(); err != nil {
		return respondError(c, err)
	}
	return c.JSON(WSTicketResponse{Ticket: ticket, ExpiresAt: time.Now().Add(cache.WSTicketTTL)})
}

// redeemWSTicket consumes a ticket atomically; a ticket opens at most one
// connection.
func (s *Server) redeemWSTicket(ctx context.Context, ticket string) (uint, bool) {
	if s.redis == nil {
		return 0, false
	}
	raw, err := s.redis.GetDel(ctx, cache.WSTicketKey(ticket)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			middleware.Logger.WarnContext(ctx, "failed to redeem websocket ticket", "error", err)
		}
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// WebsocketUpgrade rejects plain HTTP requests on the websocket route.
func (s *Server) WebsocketUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return models.RespondWithError(c, fiber.StatusUpgradeRequired,
			models.NewValidationError("WebSocket upgrade required"))
	}
	if s.hub == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(nil).WithMessage("Realtime notifications unavailable"))
	}
	return c.Next()
}

// WebsocketHandler streams the caller's notifications.
// @Summary Notification stream
// @Tags realtime
// @Param ticket query string true "Ticket from POST /ws/ticket"
// @Router /ws [get]
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(uint)
		if userID == 0 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("websocket registration refused", "user_id", userID, "error", err)
			msg, _ := json.Marshal(fiber.Map{"error": err.Error()})
			_ = conn.WriteMessage(websocket.TextMessage, msg)
			_ = conn.Close()
			return
		}
		defer s.hub.UnregisterClient(client)

		if hello, err := json.Marshal(notifications.Event{
			Type:    "connected",
			Payload: fiber.Map{"user_id": userID},
		}); err == nil {
			client.TrySend(hello)
		}

		go client.WritePump()
		client.ReadPump()
	})
}
