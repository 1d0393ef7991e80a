package service

import (
	"context"
	"testing"

	"openobservatory/internal/featureflags"
	"openobservatory/internal/models"
	"openobservatory/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		achievement models.Achievement
		value       int64
		expected    models.AchievementLevel
	}{
		{models.AchievementObserver, 0, ""},
		{models.AchievementObserver, 1, models.LevelBronze},
		{models.AchievementObserver, 10, models.LevelSilver},
		{models.AchievementObserver, 50, models.LevelGold},
		{models.AchievementJudge, 9, ""},
		{models.AchievementJudge, 49, models.LevelBronze},
		{models.AchievementFamous, -5, ""},
		{models.AchievementFamous, 100, models.LevelSilver},
		{models.AchievementHubble, 3, models.LevelBronze},
		{models.AchievementHubble, 1000, models.LevelGold},
		{models.AchievementJamesWebb, 10, models.LevelSilver},
		{models.Achievement("UNKNOWN"), 1000, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, LevelFor(tt.achievement, tt.value), "%s=%d", tt.achievement, tt.value)
	}
}

func TestAchievementServiceEvaluateVoter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	voter := env.seedUser(t, "judge")
	for i := uint(1); i <= 10; i++ {
		env.store.votes[voteKey{observationID: 1000 + i, userID: voter.ID}] = models.VoteUp
	}

	require.NoError(t, env.achievements.EvaluateVoter(ctx, voter.ID))
	list, err := env.achievements.List(ctx, voter.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.AchievementJudge, list[0].Achievement)
	assert.Equal(t, models.LevelBronze, list[0].Level)

	events := env.publisher.ofType(notifications.EventAchievementLevel)
	require.Len(t, events, 1)
	assert.Equal(t, notifications.AchievementPayload{Achievement: "JUDGE", Level: "BRONZE"}, events[0].Event.Payload)

	// Re-evaluating at the same level is silent.
	require.NoError(t, env.achievements.EvaluateVoter(ctx, voter.ID))
	assert.Len(t, env.publisher.ofType(notifications.EventAchievementLevel), 1)
}

func TestAchievementServiceNeverLowersLevels(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedUser(t, "veteran")
	env.store.achievements[user.ID] = map[models.Achievement]models.AchievementLevel{
		models.AchievementObserver: models.LevelGold,
	}

	require.NoError(t, env.achievements.EvaluateAuthor(ctx, user.ID))
	list, err := env.achievements.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.LevelGold, list[0].Level)
}

func TestAchievementServiceFlagGatesEvents(t *testing.T) {
	store := newMemStore()
	pub := &recordingPublisher{}
	svc := NewAchievementService(fakeAchievements{store}, fakeObservations{store}, fakeVotes{store}, pub, featureflags.NewManager("achievement_events=off"))
	ctx := context.Background()
	store.observations[1] = models.Observation{ID: 1, AuthorID: 7, CelestialBodyID: 1, Visibility: models.VisibilityNakedEye}

	require.NoError(t, svc.EvaluateAuthor(ctx, 7))
	list, err := svc.List(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Empty(t, pub.events)

	empty, err := svc.List(ctx, 8)
	require.NoError(t, err)
	assert.NotNil(t, empty)
}
