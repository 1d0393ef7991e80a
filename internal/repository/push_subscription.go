package repository

import (
	"context"

	"openobservatory/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PushSubscriptionRepository keeps the browser push endpoints of users.
type PushSubscriptionRepository interface {
	Save(ctx context.Context, sub *models.PushSubscription) error
	ListByUser(ctx context.Context, userID uint) ([]models.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, userID uint, endpoint string) (bool, error)
	DeleteAllForUser(ctx context.Context, userID uint) error
}

type pushSubscriptionRepository struct {
	db *gorm.DB
}

func NewPushSubscriptionRepository(db *gorm.DB) PushSubscriptionRepository {
	return &pushSubscriptionRepository{db: db}
}

// Save registers the endpoint, moving it to sub.UserID and refreshing its
// keys if it was already known.
func (r *pushSubscriptionRepository) Save(ctx context.Context, sub *models.PushSubscription) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth"}),
	}).Create(sub).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *pushSubscriptionRepository) ListByUser(ctx context.Context, userID uint) ([]models.PushSubscription, error) {
	var subs []models.PushSubscription
	if err := readDB(r.db).WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&subs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return subs, nil
}

func (r *pushSubscriptionRepository) DeleteByEndpoint(ctx context.Context, userID uint, endpoint string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND endpoint = ?", userID, endpoint).
		Delete(&models.PushSubscription{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *pushSubscriptionRepository) DeleteAllForUser(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.PushSubscription{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
