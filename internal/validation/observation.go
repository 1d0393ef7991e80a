package validation

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"openobservatory/internal/models"
)

const (
	MinCelestialBodyNameLength = 2
	MaxCelestialBodyNameLength = 64
	MinValidityTimeHours       = 1
	MaxValidityTimeHours       = 12
	MaxDescriptionLength       = 512
	MaxItemsPerPage            = 100

	// Keeps page*itemsPerPage inside a 32-bit OFFSET on every platform.
	MaxPage = math.MaxInt32 / MaxItemsPerPage

	// Clock skew tolerated on client supplied observation timestamps.
	timestampSkew = 5 * time.Minute
)

// ValidateCoordinates checks latitude and longitude ranges.
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return models.ErrInvalidCoordinates
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return models.ErrInvalidCoordinates
	}
	return nil
}

// NormalizeCelestialBodyName trims surrounding whitespace.
func NormalizeCelestialBodyName(name string) string {
	return strings.TrimSpace(name)
}

// ValidateCelestialBodyName checks the trimmed name length.
func ValidateCelestialBodyName(name string) error {
	n := utf8.RuneCountInString(NormalizeCelestialBodyName(name))
	if n < MinCelestialBodyNameLength || n > MaxCelestialBodyNameLength {
		return models.ErrInvalidCelestialBodyName
	}
	return nil
}

// ValidateValidityTime bounds a celestial body's validity time in hours.
func ValidateValidityTime(hours int) error {
	if hours < MinValidityTimeHours || hours > MaxValidityTimeHours {
		return models.ErrInvalidCelestialBodyValidityTime
	}
	return nil
}

// ValidatePagination requires 0 <= page <= MaxPage and 1 <= itemsPerPage <= 100.
func ValidatePagination(page, itemsPerPage int) error {
	if page < 0 || page > MaxPage || itemsPerPage < 1 || itemsPerPage > MaxItemsPerPage {
		return models.ErrInvalidPagination
	}
	return nil
}

// ValidateOrientation accepts whole degrees in [0, 359].
func ValidateOrientation(degrees int) error {
	if degrees < 0 || degrees > 359 {
		return models.ErrInvalidOrientation
	}
	return nil
}

func ValidateVisibility(v models.ObservationVisibility) error {
	if !v.Valid() {
		return models.ErrInvalidVisibility
	}
	return nil
}

func ValidateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return models.ErrInvalidDescription
	}
	return nil
}

// ValidateObservationTimestamp rejects timestamps in the future.
func ValidateObservationTimestamp(ts, now time.Time) error {
	if ts.After(now.Add(timestampSkew)) {
		return models.ErrInvalidTimestamp
	}
	return nil
}
