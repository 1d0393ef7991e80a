package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("lookup: %w", ErrUnknownUser.WithMessage("no such observer"))

	assert.True(t, errors.Is(wrapped, ErrUnknownUser))
	assert.False(t, errors.Is(wrapped, ErrUnknownObservation))
	assert.Equal(t, "no such observer", ErrUnknownUser.WithMessage("no such observer").Message)
}

func TestUserVisibilityAndEditRules(t *testing.T) {
	owner := &User{ID: 1, IsPublic: false, Role: RoleUser}
	other := &User{ID: 2, Role: RoleUser}
	admin := &User{ID: 3, Role: RoleAdmin}

	assert.True(t, owner.CanBeViewedBy(owner))
	assert.True(t, owner.CanBeViewedBy(admin))
	assert.False(t, owner.CanBeViewedBy(other))
	assert.False(t, owner.CanBeViewedBy(nil))

	owner.IsPublic = true
	assert.True(t, owner.CanBeViewedBy(nil))
	assert.True(t, owner.CanBeViewedBy(other))

	assert.True(t, owner.CanBeEditedBy(owner))
	assert.True(t, owner.CanBeEditedBy(admin))
	assert.False(t, owner.CanBeEditedBy(other))
	assert.False(t, owner.CanBeEditedBy(nil))
}

func TestObservationExpired(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	obs := &Observation{
		CreatedAt:     now.Add(-3 * time.Hour),
		CelestialBody: CelestialBody{ValidityTime: 2},
	}
	assert.True(t, obs.Expired(now))

	obs.CelestialBody.ValidityTime = 4
	assert.False(t, obs.Expired(now))
}

func TestKarmaOf(t *testing.T) {
	counts := []VoteCount{{Vote: VoteUp, Count: 7}, {Vote: VoteDown, Count: 3}}
	assert.Equal(t, 4, KarmaOf(counts))
	assert.Equal(t, 0, KarmaOf(nil))
}

func TestAchievementLevelRank(t *testing.T) {
	assert.Less(t, LevelBronze.Rank(), LevelSilver.Rank())
	assert.Less(t, LevelSilver.Rank(), LevelGold.Rank())
	assert.Equal(t, 0, AchievementLevel("").Rank())
}
