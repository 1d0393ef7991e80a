package service

import (
	"context"

	"openobservatory/internal/featureflags"
	"openobservatory/internal/middleware"
	"openobservatory/internal/models"
	"openobservatory/internal/notifications"
	"openobservatory/internal/repository"
)

// thresholds holds the BRONZE, SILVER and GOLD counter values.
type thresholds [3]int64

var achievementThresholds = map[models.Achievement]thresholds{
	models.AchievementObserver:  {1, 10, 50},
	models.AchievementJudge:     {10, 50, 200},
	models.AchievementFamous:    {10, 100, 500},
	models.AchievementHubble:    {3, 10, 25},
	models.AchievementJamesWebb: {1, 10, 50},
}

var levelsByRank = [3]models.AchievementLevel{models.LevelBronze, models.LevelSilver, models.LevelGold}

// LevelFor returns the level reached by value, or "" below BRONZE.
func LevelFor(a models.Achievement, value int64) models.AchievementLevel {
	t, ok := achievementThresholds[a]
	if !ok {
		return ""
	}
	var level models.AchievementLevel
	for i, threshold := range t {
		if value >= threshold {
			level = levelsByRank[i]
		}
	}
	return level
}

type AchievementService struct {
	achievements repository.AchievementRepository
	observations repository.ObservationRepository
	votes        repository.VoteRepository
	publisher    EventPublisher
	flags        *featureflags.Manager
}

func NewAchievementService(
	achievements repository.AchievementRepository,
	observations repository.ObservationRepository,
	votes repository.VoteRepository,
	publisher EventPublisher,
	flags *featureflags.Manager,
) *AchievementService {
	return &AchievementService{
		achievements: achievements,
		observations: observations,
		votes:        votes,
		publisher:    publisherOrNoop(publisher),
		flags:        flags,
	}
}

func (s *AchievementService) List(ctx context.Context, userID uint) ([]models.UserAchievement, error) {
	list, err := s.achievements.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.UserAchievement{}
	}
	return list, nil
}

// EvaluateAuthor refreshes the achievements that depend on what userID
// reported and on the karma it earned.
func (s *AchievementService) EvaluateAuthor(ctx context.Context, userID uint) error {
	stats, err := s.observations.AuthorStats(ctx, userID)
	if err != nil {
		return err
	}
	counts, err := s.votes.CountsForAuthor(ctx, userID)
	if err != nil {
		return err
	}
	return s.evaluate(ctx, userID, map[models.Achievement]int64{
		models.AchievementObserver:  stats.Observations,
		models.AchievementHubble:    stats.DistinctBodies,
		models.AchievementJamesWebb: stats.Instrumented,
		models.AchievementFamous:    int64(models.KarmaOf(counts)),
	})
}

// EvaluateVoter refreshes the achievement earned by casting votes.
func (s *AchievementService) EvaluateVoter(ctx context.Context, userID uint) error {
	cast, err := s.votes.CountCastBy(ctx, userID)
	if err != nil {
		return err
	}
	return s.evaluate(ctx, userID, map[models.Achievement]int64{
		models.AchievementJudge: cast,
	})
}

// evaluate only ever raises levels; a user keeps an achievement once earned.
func (s *AchievementService) evaluate(ctx context.Context, userID uint, values map[models.Achievement]int64) error {
	current, err := s.achievements.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	held := make(map[models.Achievement]models.AchievementLevel, len(current))
	for _, a := range current {
		held[a.Achievement] = a.Level
	}

	for achievement, value := range values {
		level := LevelFor(achievement, value)
		if level.Rank() <= held[achievement].Rank() {
			continue
		}
		if err := s.achievements.Upsert(ctx, &models.UserAchievement{
			UserID:      userID,
			Achievement: achievement,
			Level:       level,
		}); err != nil {
			return err
		}
		s.announce(ctx, userID, achievement, level)
	}
	return nil
}

func (s *AchievementService) announce(ctx context.Context, userID uint, a models.Achievement, level models.AchievementLevel) {
	if !s.flags.Enabled(featureflags.AchievementEvents, userID) {
		return
	}
	err := s.publisher.PublishEvent(ctx, userID, notifications.Event{
		Type:    notifications.EventAchievementLevel,
		Payload: notifications.AchievementPayload{Achievement: string(a), Level: string(level)},
	})
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish achievement event", "user_id", userID, "error", err)
	}
}
