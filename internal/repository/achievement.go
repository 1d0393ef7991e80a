package repository

import (
	"context"

	"openobservatory/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AchievementRepository interface {
	ListByUser(ctx context.Context, userID uint) ([]models.UserAchievement, error)
	Upsert(ctx context.Context, achievement *models.UserAchievement) error
}

type achievementRepository struct {
	db *gorm.DB
}

func NewAchievementRepository(db *gorm.DB) AchievementRepository {
	return &achievementRepository{db: db}
}

func (r *achievementRepository) ListByUser(ctx context.Context, userID uint) ([]models.UserAchievement, error) {
	var list []models.UserAchievement
	err := readDB(r.db).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("achievement ASC").
		Find(&list).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return list, nil
}

// Upsert stores the level of the (user, achievement) pair.
func (r *achievementRepository) Upsert(ctx context.Context, achievement *models.UserAchievement) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement"}},
			DoUpdates: clause.AssignmentColumns([]string{"level", "updated_at"}),
		}).Create(achievement).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
