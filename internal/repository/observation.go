package repository

import (
	"context"

	"openobservatory/internal/geo"
	"openobservatory/internal/models"

	"gorm.io/gorm"
)

// ObservationRepository defines storage operations for observations.
// Returned observations have Author and CelestialBody loaded.
type ObservationRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Observation, error)
	List(ctx context.Context, page, perPage int) ([]models.Observation, int64, error)
	ListInBox(ctx context.Context, box geo.Box) ([]models.Observation, error)
	ListByAuthor(ctx context.Context, authorID uint, limit int) ([]models.Observation, error)
	Create(ctx context.Context, obs *models.Observation) error
	UpdateFields(ctx context.Context, obs *models.Observation, fields ...string) error
	Delete(ctx context.Context, id uint) error
	AuthorStats(ctx context.Context, authorID uint) (AuthorStats, error)
}

// AuthorStats are the counters behind observation achievements.
type AuthorStats struct {
	Observations   int64
	DistinctBodies int64
	Instrumented   int64
}

type observationRepository struct {
	db *gorm.DB
}

func NewObservationRepository(db *gorm.DB) ObservationRepository {
	return &observationRepository{db: db}
}

func (r *observationRepository) withRelations(ctx context.Context) *gorm.DB {
	return readDB(r.db).WithContext(ctx).
		Preload("Author").
		Preload("CelestialBody")
}

func (r *observationRepository) GetByID(ctx context.Context, id uint) (*models.Observation, error) {
	var obs models.Observation
	return optional(&obs, r.withRelations(ctx).First(&obs, id).Error)
}

// List returns one page ordered newest first.
func (r *observationRepository) List(ctx context.Context, page, perPage int) ([]models.Observation, int64, error) {
	var total int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.Observation{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var list []models.Observation
	err := r.withRelations(ctx).
		Order("created_at DESC, id DESC").
		Offset(offsetFor(page, perPage)).
		Limit(perPage).
		Find(&list).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return list, total, nil
}

// ListInBox returns every observation whose position lies in box.
func (r *observationRepository) ListInBox(ctx context.Context, box geo.Box) ([]models.Observation, error) {
	var list []models.Observation
	err := r.withRelations(ctx).
		Where("latitude BETWEEN ? AND ?", box.MinLat, box.MaxLat).
		Where("longitude BETWEEN ? AND ?", box.MinLng, box.MaxLng).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return list, nil
}

func (r *observationRepository) ListByAuthor(ctx context.Context, authorID uint, limit int) ([]models.Observation, error) {
	if limit <= 0 {
		limit = 100
	}
	var list []models.Observation
	err := r.withRelations(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return list, nil
}

func (r *observationRepository) Create(ctx context.Context, obs *models.Observation) error {
	err := r.db.WithContext(ctx).
		Omit("Author", "CelestialBody").
		Create(obs).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// UpdateFields writes only the named columns, zero values included.
func (r *observationRepository) UpdateFields(ctx context.Context, obs *models.Observation, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Model(obs).
		Select(fields).
		Omit("Author", "CelestialBody").
		Updates(obs).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *observationRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("observation_id = ?", id).Delete(&models.ObservationVote{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Observation{}, id).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *observationRepository) AuthorStats(ctx context.Context, authorID uint) (AuthorStats, error) {
	var stats AuthorStats
	db := readDB(r.db).WithContext(ctx)

	if err := db.Model(&models.Observation{}).
		Where("author_id = ?", authorID).
		Count(&stats.Observations).Error; err != nil {
		return stats, models.NewInternalError(err)
	}
	if err := db.Model(&models.Observation{}).
		Where("author_id = ?", authorID).
		Distinct("celestial_body_id").
		Count(&stats.DistinctBodies).Error; err != nil {
		return stats, models.NewInternalError(err)
	}
	if err := db.Model(&models.Observation{}).
		Where("author_id = ? AND visibility IN ?", authorID,
			[]models.ObservationVisibility{models.VisibilityTelescope, models.VisibilityImagery}).
		Count(&stats.Instrumented).Error; err != nil {
		return stats, models.NewInternalError(err)
	}
	return stats, nil
}
