package models

import "time"

// CelestialBody is an observable object (planet, comet, nebula...).
// ValidityTime is the number of hours an observation of it stays relevant.
type CelestialBody struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:64;not null" json:"name"`
	Image        string    `json:"image"`
	ValidityTime int       `gorm:"not null" json:"validity_time"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ValidityDuration returns ValidityTime as a duration.
func (b CelestialBody) ValidityDuration() time.Duration {
	return time.Duration(b.ValidityTime) * time.Hour
}
