package models

import "time"

// Achievement names a family of milestones.
type Achievement string

const (
	AchievementObserver  Achievement = "OBSERVER"
	AchievementJudge     Achievement = "JUDGE"
	AchievementFamous    Achievement = "FAMOUS"
	AchievementHubble    Achievement = "HUBBLE"
	AchievementJamesWebb Achievement = "JAMES_WEBB"
)

// AchievementLevel ranks how far a user progressed in an achievement.
type AchievementLevel string

const (
	LevelBronze AchievementLevel = "BRONZE"
	LevelSilver AchievementLevel = "SILVER"
	LevelGold   AchievementLevel = "GOLD"
)

// Rank orders levels; zero means "not reached".
func (l AchievementLevel) Rank() int {
	switch l {
	case LevelBronze:
		return 1
	case LevelSilver:
		return 2
	case LevelGold:
		return 3
	}
	return 0
}

// UserAchievement records the highest level reached by a user.
type UserAchievement struct {
	ID          uint             `gorm:"primaryKey" json:"-"`
	UserID      uint             `gorm:"not null;uniqueIndex:idx_user_achievements_pair" json:"-"`
	Achievement Achievement      `gorm:"size:32;not null;uniqueIndex:idx_user_achievements_pair" json:"achievement"`
	Level       AchievementLevel `gorm:"size:16;not null" json:"level"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
