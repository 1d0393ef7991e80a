// Package validation holds the field rules shared by services and handlers.
package validation

import (
	"regexp"
	"unicode"
	"unicode/utf8"

	"openobservatory/internal/models"
)

const (
	MinPasswordLength  = 8
	MaxPasswordLength  = 128
	MaxBiographyLength = 500
	MinRadiusKm        = 1
	MaxRadiusKm        = 50
)

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)

// ValidateUsername checks the username pattern.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return models.ErrInvalidUsername
	}
	return nil
}

// ValidatePassword requires MinPasswordLength..MaxPasswordLength characters
// including at least one letter and one digit.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength || n > MaxPasswordLength {
		return models.ErrInvalidPassword
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return models.ErrInvalidPassword
	}
	return nil
}

// ValidateBiography bounds the free-text profile biography.
func ValidateBiography(bio string) error {
	if utf8.RuneCountInString(bio) > MaxBiographyLength {
		return models.ErrInvalidBiography
	}
	return nil
}

// ValidateRadius bounds the notification search radius in kilometers.
func ValidateRadius(radius int) error {
	if radius < MinRadiusKm || radius > MaxRadiusKm {
		return models.ErrInvalidRadius
	}
	return nil
}
