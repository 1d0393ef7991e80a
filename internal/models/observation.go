package models

import "time"

// ObservationVisibility is the optical means used for an observation.
type ObservationVisibility string

const (
	VisibilityNakedEye   ObservationVisibility = "NAKED_EYE"
	VisibilityBinoculars ObservationVisibility = "BINOCULARS"
	VisibilityTelescope  ObservationVisibility = "TELESCOPE"
	VisibilityImagery    ObservationVisibility = "IMAGERY"
)

// Valid reports whether v is one of the known visibilities.
func (v ObservationVisibility) Valid() bool {
	switch v {
	case VisibilityNakedEye, VisibilityBinoculars, VisibilityTelescope, VisibilityImagery:
		return true
	}
	return false
}

// Instrumented reports whether the observation needed optical equipment
// beyond binoculars.
func (v ObservationVisibility) Instrumented() bool {
	return v == VisibilityTelescope || v == VisibilityImagery
}

// Observation is a sighting of a celestial body reported by a user.
type Observation struct {
	ID              uint                  `gorm:"primaryKey" json:"id"`
	AuthorID        uint                  `gorm:"not null;index" json:"author_id"`
	Author          User                  `gorm:"foreignKey:AuthorID" json:"author"`
	CelestialBodyID uint                  `gorm:"not null;index" json:"celestial_body_id"`
	CelestialBody   CelestialBody         `gorm:"foreignKey:CelestialBodyID" json:"celestial_body"`
	Latitude        float64               `gorm:"not null" json:"latitude"`
	Longitude       float64               `gorm:"not null" json:"longitude"`
	Orientation     int                   `gorm:"not null" json:"orientation"`
	Visibility      ObservationVisibility `gorm:"size:32;not null" json:"visibility"`
	Description     string                `gorm:"type:text" json:"description"`
	Timestamp       time.Time             `gorm:"not null" json:"timestamp"`
	CreatedAt       time.Time             `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// ExpiresAt is the creation time shifted by the body's validity time.
func (o *Observation) ExpiresAt() time.Time {
	return o.CreatedAt.Add(o.CelestialBody.ValidityDuration())
}

// Expired reports whether the observation's validity window ended before now.
// CelestialBody must be loaded.
func (o *Observation) Expired(now time.Time) bool {
	return o.ExpiresAt().Before(now)
}

// CanBeEditedBy reports whether viewer is the author or an admin.
func (o *Observation) CanBeEditedBy(viewer *User) bool {
	if viewer == nil {
		return false
	}
	return viewer.ID == o.AuthorID || viewer.IsAdmin()
}

// ObservationDetail is the API projection of an observation.
type ObservationDetail struct {
	ID            uint                  `json:"id"`
	Author        string                `json:"author"`
	CelestialBody CelestialBody         `json:"celestial_body"`
	Latitude      float64               `json:"latitude"`
	Longitude     float64               `json:"longitude"`
	Orientation   int                   `json:"orientation"`
	Visibility    ObservationVisibility `json:"visibility"`
	Description   string                `json:"description"`
	Timestamp     time.Time             `json:"timestamp"`
	CreatedAt     time.Time             `json:"created_at"`
	Expired       bool                  `json:"expired"`
	Karma         int                   `json:"karma"`
	CurrentVote   *VoteValue            `json:"current_vote"`
}
