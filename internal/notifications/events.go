package notifications

import "time"

// Event types delivered over the notification channel.
const (
	EventObservationNearby = "observation_nearby"
	EventAchievementLevel  = "achievement_unlocked"
)

// Event is the JSON envelope pushed to websocket clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ObservationNearbyPayload tells a user that someone observed a body close
// to their last known position.
type ObservationNearbyPayload struct {
	ObservationID uint      `json:"observation_id"`
	CelestialBody string    `json:"celestial_body"`
	Author        string    `json:"author"`
	DistanceKm    float64   `json:"distance_km"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	Timestamp     time.Time `json:"timestamp"`
}

// AchievementPayload announces a newly reached achievement level.
type AchievementPayload struct {
	Achievement string `json:"achievement"`
	Level       string `json:"level"`
}
