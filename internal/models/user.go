// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Role is the authorization level of a user account.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// DefaultRadiusKm is the search radius assigned to new accounts.
const DefaultRadiusKm = 5

// User represents an observer account in Open Observatory.
type User struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	Username             string     `gorm:"size:32;not null" json:"username"`
	Password             string     `gorm:"not null" json:"-"`
	Biography            string     `gorm:"type:text" json:"biography"`
	Avatar               string     `json:"avatar"`
	IsPublic             bool       `gorm:"not null" json:"is_public"`
	Role                 Role       `gorm:"size:16;not null" json:"role"`
	NotificationsEnabled bool       `gorm:"not null" json:"notifications_enabled"`
	Radius               int        `gorm:"not null" json:"radius"`
	Latitude             *float64   `json:"latitude,omitempty"`
	Longitude            *float64   `json:"longitude,omitempty"`
	LastPositionUpdate   *time.Time `json:"last_position_update,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// IsAdmin reports whether the user holds the ADMIN role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// HasPosition reports whether a last known position was recorded.
func (u *User) HasPosition() bool {
	return u.Latitude != nil && u.Longitude != nil
}

// CanBeViewedBy applies the profile visibility rule: public profiles are
// readable by anyone, private ones only by their owner or an admin.
func (u *User) CanBeViewedBy(viewer *User) bool {
	if u.IsPublic {
		return true
	}
	return u.CanBeEditedBy(viewer)
}

// CanBeEditedBy reports whether viewer may mutate this account.
func (u *User) CanBeEditedBy(viewer *User) bool {
	if viewer == nil {
		return false
	}
	return viewer.ID == u.ID || viewer.IsAdmin()
}

// UserProfile is the public projection of a user.
type UserProfile struct {
	Username     string            `json:"username"`
	Biography    string            `json:"biography"`
	Avatar       string            `json:"avatar"`
	IsPublic     bool              `json:"is_public"`
	Role         Role              `json:"role"`
	Karma        int               `json:"karma"`
	Achievements []UserAchievement `json:"achievements"`
	CreatedAt    time.Time         `json:"created_at"`
}

// SelfUser is what an authenticated user sees about their own account.
type SelfUser struct {
	UserProfile
	NotificationsEnabled bool       `json:"notifications_enabled"`
	Radius               int        `json:"radius"`
	Latitude             *float64   `json:"latitude,omitempty"`
	Longitude            *float64   `json:"longitude,omitempty"`
	LastPositionUpdate   *time.Time `json:"last_position_update,omitempty"`
}
