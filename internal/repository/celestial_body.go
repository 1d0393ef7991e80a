package repository

import (
	"context"

	"openobservatory/internal/cache"
	"openobservatory/internal/models"

	"gorm.io/gorm"
)

// CelestialBodyRepository defines storage operations for the body catalog.
type CelestialBodyRepository interface {
	GetByID(ctx context.Context, id uint) (*models.CelestialBody, error)
	GetByName(ctx context.Context, name string) (*models.CelestialBody, error)
	List(ctx context.Context, page, perPage int) ([]models.CelestialBody, int64, error)
	Create(ctx context.Context, body *models.CelestialBody) error
	Update(ctx context.Context, body *models.CelestialBody) error
	Delete(ctx context.Context, id uint) error
}

type celestialBodyRepository struct {
	db *gorm.DB
}

// NewCelestialBodyRepository returns a cache-aware catalog repository.
func NewCelestialBodyRepository(db *gorm.DB) CelestialBodyRepository {
	return &celestialBodyRepository{db: db}
}

func (r *celestialBodyRepository) GetByID(ctx context.Context, id uint) (*models.CelestialBody, error) {
	var body models.CelestialBody
	err := cache.Aside(ctx, cache.CelestialBodyKey(id), &body, cache.CelestialBodyTTL, func() error {
		return readDB(r.db).WithContext(ctx).First(&body, id).Error
	})
	return optional(&body, err)
}

// GetByName matches case-insensitively.
func (r *celestialBodyRepository) GetByName(ctx context.Context, name string) (*models.CelestialBody, error) {
	var body models.CelestialBody
	err := readDB(r.db).WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", name).
		First(&body).Error
	return optional(&body, err)
}

func (r *celestialBodyRepository) List(ctx context.Context, page, perPage int) ([]models.CelestialBody, int64, error) {
	db := readDB(r.db).WithContext(ctx)

	var total int64
	if err := db.Model(&models.CelestialBody{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var bodies []models.CelestialBody
	err := db.Order("name ASC").
		Offset(offsetFor(page, perPage)).
		Limit(perPage).
		Find(&bodies).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return bodies, total, nil
}

func (r *celestialBodyRepository) Create(ctx context.Context, body *models.CelestialBody) error {
	return writeError(r.db.WithContext(ctx).Create(body).Error, models.ErrCelestialBodyNameAlreadyUsed)
}

func (r *celestialBodyRepository) Update(ctx context.Context, body *models.CelestialBody) error {
	if err := writeError(r.db.WithContext(ctx).Save(body).Error, models.ErrCelestialBodyNameAlreadyUsed); err != nil {
		return err
	}
	cache.InvalidateCelestialBody(ctx, body.ID)
	return nil
}

// Delete removes the body, its observations and the votes on them.
func (r *celestialBodyRepository) Delete(ctx context.Context, id uint) error {
	var affected []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Observation{}).Distinct().Where("celestial_body_id = ?", id).Pluck("author_id", &affected).Error
		if err != nil {
			return err
		}
		observations := tx.Model(&models.Observation{}).Select("id").Where("celestial_body_id = ?", id)
		if err := tx.Where("observation_id IN (?)", observations).Delete(&models.ObservationVote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("celestial_body_id = ?", id).Delete(&models.Observation{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.CelestialBody{}, id).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateCelestialBody(ctx, id)
	invalidateKarma(ctx, affected)
	return nil
}
