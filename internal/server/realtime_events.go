package server

import (
	"context"
	"encoding/json"

	"openobservatory/internal/middleware"
	"openobservatory/internal/models"
	"openobservatory/internal/notifications"
)

// Catalog events are broadcast to every connected client so maps and
// pickers can refresh without polling.
const (
	EventCelestialBodyCreated = "celestial_body_created"
	EventCelestialBodyUpdated = "celestial_body_updated"
	EventCelestialBodyDeleted = "celestial_body_deleted"
)

// publishBroadcastEvent goes through Redis when it is configured so every
// instance's hub receives it; otherwise it is delivered to the local hub.
func (s *Server) publishBroadcastEvent(eventType string, payload interface{}) {
	eventJSON, err := json.Marshal(notifications.Event{Type: eventType, Payload: payload})
	if err != nil {
		middleware.Logger.Warn("failed to marshal broadcast event", "type", eventType, "error", err)
		return
	}
	message := string(eventJSON)

	if s.notifier != nil {
		if err := s.notifier.PublishBroadcast(context.Background(), message); err != nil {
			middleware.Logger.Warn("failed to publish broadcast event", "type", eventType, "error", err)
		}
		return
	}
	if s.hub != nil {
		s.hub.BroadcastAll(message)
	}
}

func celestialBodySummary(body *models.CelestialBody) map[string]interface{} {
	return map[string]interface{}{
		"id":            body.ID,
		"name":          body.Name,
		"image":         body.Image,
		"validity_time": body.ValidityTime,
	}
}
