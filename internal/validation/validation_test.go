package validation

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"openobservatory/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"Valid", "star_gazer-42", false},
		{"Exactly Min Length", "abc", false},
		{"Exactly Max Length", strings.Repeat("a", 32), false},
		{"Too Short", "ab", true},
		{"Too Long", strings.Repeat("a", 33), true},
		{"Illegal Chars", "user@123", true},
		{"Space", "star gazer", true},
		{"Empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrInvalidUsername)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "nebula2024", false},
		{"Exactly Min Length", "abcdefg1", false},
		{"Exactly Max Length", strings.Repeat("a", 127) + "1", false},
		{"Too Short", "abc1", true},
		{"Too Long", strings.Repeat("a", 128) + "1", true},
		{"No Digit", "onlyletters", true},
		{"No Letter", "1234567890", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrInvalidPassword)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateCelestialBodyName(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateCelestialBodyName("Io"))
	assert.NoError(t, ValidateCelestialBodyName(strings.Repeat("x", 64)))
	assert.NoError(t, ValidateCelestialBodyName("  Neptune  "))
	assert.ErrorIs(t, ValidateCelestialBodyName("X"), models.ErrInvalidCelestialBodyName)
	assert.ErrorIs(t, ValidateCelestialBodyName(" X "), models.ErrInvalidCelestialBodyName)
	assert.ErrorIs(t, ValidateCelestialBodyName(strings.Repeat("x", 65)), models.ErrInvalidCelestialBodyName)
}

func TestValidateValidityTime(t *testing.T) {
	t.Parallel()
	for h := 1; h <= 12; h++ {
		assert.NoError(t, ValidateValidityTime(h))
	}
	for _, h := range []int{-1, 0, 13, 100} {
		assert.ErrorIs(t, ValidateValidityTime(h), models.ErrInvalidCelestialBodyValidityTime)
	}
}

func TestValidatePagination(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidatePagination(0, 1))
	assert.NoError(t, ValidatePagination(3, 100))
	assert.ErrorIs(t, ValidatePagination(-1, 10), models.ErrInvalidPagination)
	assert.ErrorIs(t, ValidatePagination(0, 0), models.ErrInvalidPagination)
	assert.ErrorIs(t, ValidatePagination(0, 101), models.ErrInvalidPagination)
	assert.NoError(t, ValidatePagination(MaxPage, MaxItemsPerPage))
	assert.ErrorIs(t, ValidatePagination(MaxPage+1, 10), models.ErrInvalidPagination)
	assert.ErrorIs(t, ValidatePagination(math.MaxInt/10+1, 10), models.ErrInvalidPagination)
}

func TestValidateCoordinates(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateCoordinates(48.85, 2.35))
	assert.NoError(t, ValidateCoordinates(-90, 180))
	assert.ErrorIs(t, ValidateCoordinates(90.1, 0), models.ErrInvalidCoordinates)
	assert.ErrorIs(t, ValidateCoordinates(0, -180.5), models.ErrInvalidCoordinates)
	assert.ErrorIs(t, ValidateCoordinates(math.NaN(), 0), models.ErrInvalidCoordinates)
}

func TestObservationFieldRules(t *testing.T) {
	t.Parallel()
	now := time.Now()

	assert.NoError(t, ValidateOrientation(0))
	assert.NoError(t, ValidateOrientation(359))
	assert.Error(t, ValidateOrientation(360))

	assert.NoError(t, ValidateVisibility(models.VisibilityBinoculars))
	assert.Error(t, ValidateVisibility("RADIO"))

	assert.NoError(t, ValidateDescription(strings.Repeat("d", 512)))
	assert.Error(t, ValidateDescription(strings.Repeat("d", 513)))

	assert.NoError(t, ValidateObservationTimestamp(now.Add(-time.Hour), now))
	err := ValidateObservationTimestamp(now.Add(time.Hour), now)
	assert.True(t, errors.Is(err, models.ErrInvalidTimestamp))
}

func TestValidateRadiusAndBiography(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateRadius(1))
	assert.NoError(t, ValidateRadius(50))
	assert.ErrorIs(t, ValidateRadius(0), models.ErrInvalidRadius)
	assert.ErrorIs(t, ValidateRadius(51), models.ErrInvalidRadius)

	assert.NoError(t, ValidateBiography(""))
	assert.ErrorIs(t, ValidateBiography(strings.Repeat("b", 501)), models.ErrInvalidBiography)
}
