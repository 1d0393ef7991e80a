package repository

import (
	"context"

	"openobservatory/internal/geo"
	"openobservatory/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines the persistence operations on accounts.
// Lookups return (nil, nil) when the user does not exist.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdateAndUnsubscribe(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	ListNotificationTargets(ctx context.Context, excludeID uint, box geo.Box) ([]models.User, error)
	ListAdmins(ctx context.Context) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	return optional(&user, readDB(r.db).WithContext(ctx).First(&user, id).Error)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := readDB(r.db).WithContext(ctx).Where("LOWER(username) = LOWER(?)", username).First(&user).Error
	return optional(&user, err)
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return writeError(r.db.WithContext(ctx).Create(user).Error, models.ErrUsernameAlreadyUsed)
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return writeError(r.db.WithContext(ctx).Save(user).Error, models.ErrUsernameAlreadyUsed)
}

// UpdateAndUnsubscribe saves user and removes all of its push
// subscriptions in one transaction.
func (r *userRepository) UpdateAndUnsubscribe(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(user).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", user.ID).Delete(&models.PushSubscription{}).Error
	})
	return writeError(err, models.ErrUsernameAlreadyUsed)
}

// Delete removes the account together with everything that references it.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	// Karma of every author this user voted for changes with the votes.
	var affected []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		votedOn := tx.Model(&models.ObservationVote{}).Select("observation_id").Where("user_id = ?", id)
		if err := tx.Model(&models.Observation{}).Distinct().Where("id IN (?)", votedOn).Pluck("author_id", &affected).Error; err != nil {
			return err
		}
		authored := tx.Model(&models.Observation{}).Select("id").Where("author_id = ?", id)
		if err := tx.Where("observation_id IN (?)", authored).Delete(&models.ObservationVote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.ObservationVote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", id).Delete(&models.Observation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.UserAchievement{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.PushSubscription{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	invalidateKarma(ctx, append(affected, id))
	return nil
}

// ListNotificationTargets returns users with notifications enabled whose
// last known position falls inside box. The caller applies the exact
// per-user radius check.
func (r *userRepository) ListNotificationTargets(ctx context.Context, excludeID uint, box geo.Box) ([]models.User, error) {
	var users []models.User
	err := readDB(r.db).WithContext(ctx).
		Where("notifications_enabled = ?", true).
		Where("id <> ?", excludeID).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Where("latitude BETWEEN ? AND ?", box.MinLat, box.MaxLat).
		Where("longitude BETWEEN ? AND ?", box.MinLng, box.MaxLng).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) ListAdmins(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := readDB(r.db).WithContext(ctx).
		Where("role = ?", models.RoleAdmin).
		Order("username ASC").
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
