package repository

import (
	"context"
	"time"

	"openobservatory/internal/cache"
	"openobservatory/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteRepository stores the single vote a user may cast per observation
// and aggregates them into karma.
type VoteRepository interface {
	Get(ctx context.Context, observationID, userID uint) (*models.ObservationVote, error)
	Upsert(ctx context.Context, vote *models.ObservationVote) error
	Delete(ctx context.Context, observationID, userID uint) error
	CountsForObservations(ctx context.Context, observationIDs []uint) (map[uint][]models.VoteCount, error)
	CountsForAuthor(ctx context.Context, authorID uint) ([]models.VoteCount, error)
	VotesByUser(ctx context.Context, userID uint, observationIDs []uint) (map[uint]models.VoteValue, error)
	CountCastBy(ctx context.Context, userID uint) (int64, error)
}

type voteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

func (r *voteRepository) Get(ctx context.Context, observationID, userID uint) (*models.ObservationVote, error) {
	var vote models.ObservationVote
	err := r.db.WithContext(ctx).
		Where("observation_id = ? AND user_id = ?", observationID, userID).
		First(&vote).Error
	return optional(&vote, err)
}

// Upsert inserts the vote or overwrites the value of the existing
// (observation, user) row.
func (r *voteRepository) Upsert(ctx context.Context, vote *models.ObservationVote) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "observation_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"vote": vote.Vote, "updated_at": time.Now().UTC()}),
		}).Create(vote).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	r.invalidateAuthorKarma(ctx, vote.ObservationID)
	return nil
}

func (r *voteRepository) Delete(ctx context.Context, observationID, userID uint) error {
	err := r.db.WithContext(ctx).
		Where("observation_id = ? AND user_id = ?", observationID, userID).
		Delete(&models.ObservationVote{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	r.invalidateAuthorKarma(ctx, observationID)
	return nil
}

func (r *voteRepository) invalidateAuthorKarma(ctx context.Context, observationID uint) {
	var authorID uint
	err := r.db.WithContext(ctx).
		Model(&models.Observation{}).
		Select("author_id").
		Where("id = ?", observationID).
		Scan(&authorID).Error
	if err == nil && authorID != 0 {
		cache.InvalidateKarma(ctx, authorID)
	}
}

// invalidateKarma drops the cached karma of authors whose observations
// gained or lost votes. Call it after the write has committed.
func invalidateKarma(ctx context.Context, authors []uint) {
	for _, id := range authors {
		cache.InvalidateKarma(ctx, id)
	}
}

type observationVoteCount struct {
	ObservationID uint
	Vote          models.VoteValue
	Count         int64
}

func (r *voteRepository) CountsForObservations(ctx context.Context, observationIDs []uint) (map[uint][]models.VoteCount, error) {
	out := make(map[uint][]models.VoteCount, len(observationIDs))
	if len(observationIDs) == 0 {
		return out, nil
	}
	var rows []observationVoteCount
	err := readDB(r.db).WithContext(ctx).
		Model(&models.ObservationVote{}).
		Select("observation_id, vote, COUNT(*) AS count").
		Where("observation_id IN ?", observationIDs).
		Group("observation_id, vote").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range rows {
		out[row.ObservationID] = append(out[row.ObservationID], models.VoteCount{Vote: row.Vote, Count: row.Count})
	}
	return out, nil
}

// CountsForAuthor groups every vote received by authorID's observations.
// The result is cached for cache.KarmaTTL.
func (r *voteRepository) CountsForAuthor(ctx context.Context, authorID uint) ([]models.VoteCount, error) {
	var counts []models.VoteCount
	err := cache.Aside(ctx, cache.KarmaKey(authorID), &counts, cache.KarmaTTL, func() error {
		return readDB(r.db).WithContext(ctx).
			Table("observation_votes").
			Select("observation_votes.vote AS vote, COUNT(*) AS count").
			Joins("JOIN observations ON observations.id = observation_votes.observation_id").
			Where("observations.author_id = ?", authorID).
			Group("observation_votes.vote").
			Scan(&counts).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return counts, nil
}

// VotesByUser returns userID's vote on each of observationIDs that has one.
func (r *voteRepository) VotesByUser(ctx context.Context, userID uint, observationIDs []uint) (map[uint]models.VoteValue, error) {
	out := make(map[uint]models.VoteValue)
	if userID == 0 || len(observationIDs) == 0 {
		return out, nil
	}
	var votes []models.ObservationVote
	err := readDB(r.db).WithContext(ctx).
		Where("user_id = ? AND observation_id IN ?", userID, observationIDs).
		Find(&votes).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, v := range votes {
		out[v.ObservationID] = v.Vote
	}
	return out, nil
}

func (r *voteRepository) CountCastBy(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := readDB(r.db).WithContext(ctx).
		Model(&models.ObservationVote{}).
		Where("user_id = ?", userID).
		Count(&n).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
