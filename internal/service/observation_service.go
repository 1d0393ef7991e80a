package service

import (
	"context"
	"strings"
	"time"

	"openobservatory/internal/cache"
	"openobservatory/internal/featureflags"
	"openobservatory/internal/geo"
	"openobservatory/internal/middleware"
	"openobservatory/internal/models"
	"openobservatory/internal/notifications"
	"openobservatory/internal/observability"
	"openobservatory/internal/repository"
	"openobservatory/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

const (
	// NearbyRadiusKm bounds FindNearby.
	NearbyRadiusKm = 30
	// MaxAuthorObservations caps per-author listings.
	MaxAuthorObservations = 100
)

type CreateObservationInput struct {
	AuthorID        uint
	CelestialBodyID uint
	Latitude        float64
	Longitude       float64
	Orientation     int
	Visibility      models.ObservationVisibility
	Description     string
	Timestamp       *time.Time
}

type UpdateObservationInput struct {
	ID          uint
	IssuerID    uint
	Description *string
	Visibility  *models.ObservationVisibility
}

type ObservationService struct {
	observations repository.ObservationRepository
	bodies       repository.CelestialBodyRepository
	users        repository.UserRepository
	votes        repository.VoteRepository
	achievements *AchievementService
	publisher    EventPublisher
	flags        *featureflags.Manager
	now          func() time.Time
}

func NewObservationService(
	observations repository.ObservationRepository,
	bodies repository.CelestialBodyRepository,
	users repository.UserRepository,
	votes repository.VoteRepository,
	achievements *AchievementService,
	publisher EventPublisher,
	flags *featureflags.Manager,
) *ObservationService {
	return &ObservationService{
		observations: observations,
		bodies:       bodies,
		users:        users,
		votes:        votes,
		achievements: achievements,
		publisher:    publisherOrNoop(publisher),
		flags:        flags,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *ObservationService) FindByID(ctx context.Context, id, viewerID uint) (*models.ObservationDetail, error) {
	obs, err := s.observations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if obs == nil {
		return nil, models.ErrUnknownObservation
	}
	return s.describeOne(ctx, obs, viewerID)
}

// Search lists observations newest first.
func (s *ObservationService) Search(ctx context.Context, limit, page int, viewerID uint) (*models.Page[models.ObservationDetail], error) {
	if err := validation.ValidatePagination(page, limit); err != nil {
		return nil, err
	}
	list, total, err := s.observations.List(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	details, err := describeObservations(ctx, s.votes, list, viewerID, s.now())
	if err != nil {
		return nil, err
	}
	return &models.Page[models.ObservationDetail]{
		Data:         details,
		Page:         page,
		ItemsPerPage: limit,
		TotalItems:   total,
	}, nil
}

// FindNearby returns observations at most NearbyRadiusKm from (lat, lng).
func (s *ObservationService) FindNearby(ctx context.Context, lng, lat float64, viewerID uint) ([]models.ObservationDetail, error) {
	if err := validation.ValidateCoordinates(lat, lng); err != nil {
		return nil, err
	}
	center := geo.Point{Lat: lat, Lng: lng}
	candidates, err := s.observations.ListInBox(ctx, geo.BoundingBox(center, NearbyRadiusKm))
	if err != nil {
		return nil, err
	}
	nearby := candidates[:0]
	for _, obs := range candidates {
		if geo.Within(center, geo.Point{Lat: obs.Latitude, Lng: obs.Longitude}, NearbyRadiusKm) {
			nearby = append(nearby, obs)
		}
	}
	return describeObservations(ctx, s.votes, nearby, viewerID, s.now())
}

// FindByAuthor applies the profile visibility rule of the author.
func (s *ObservationService) FindByAuthor(ctx context.Context, username string, viewerID uint) ([]models.ObservationDetail, error) {
	author, err := visibleUser(ctx, s.users, username, viewerID)
	if err != nil {
		return nil, err
	}
	return authorObservations(ctx, s.observations, s.votes, author.ID, viewerID, s.now())
}

func (s *ObservationService) Create(ctx context.Context, in CreateObservationInput) (_ *models.ObservationDetail, err error) {
	ctx, end := observability.StartSpan(ctx, "service", "observation.create",
		attribute.Int64("celestial_body_id", int64(in.CelestialBodyID)))
	defer func() { end(err) }()

	author, err := s.users.GetByID(ctx, in.AuthorID)
	if err != nil {
		return nil, err
	}
	if author == nil {
		return nil, models.ErrUnavailableUser
	}
	body, err := s.bodies.GetByID(ctx, in.CelestialBodyID)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, models.ErrUnknownCelestialBody
	}

	now := s.now()
	timestamp := now
	if in.Timestamp != nil {
		timestamp = in.Timestamp.UTC()
	}
	description := strings.TrimSpace(in.Description)
	if err := validateObservationFields(in.Latitude, in.Longitude, in.Orientation, in.Visibility, description, timestamp, now); err != nil {
		return nil, err
	}

	obs := &models.Observation{
		AuthorID:        author.ID,
		CelestialBodyID: body.ID,
		Latitude:        in.Latitude,
		Longitude:       in.Longitude,
		Orientation:     in.Orientation,
		Visibility:      in.Visibility,
		Description:     description,
		Timestamp:       timestamp,
	}
	if err := s.observations.Create(ctx, obs); err != nil {
		return nil, err
	}
	obs.Author = *author
	obs.CelestialBody = *body
	observability.ObservationsCreated.WithLabelValues(string(obs.Visibility)).Inc()

	if s.achievements != nil {
		if err := s.achievements.EvaluateAuthor(ctx, author.ID); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to evaluate achievements", "user_id", author.ID, "error", err)
		}
	}
	s.notifyNearby(ctx, obs)

	return s.describeOne(ctx, obs, author.ID)
}

func validateObservationFields(lat, lng float64, orientation int, vis models.ObservationVisibility, description string, timestamp, now time.Time) error {
	if err := validation.ValidateCoordinates(lat, lng); err != nil {
		return err
	}
	if err := validation.ValidateOrientation(orientation); err != nil {
		return err
	}
	if err := validation.ValidateVisibility(vis); err != nil {
		return err
	}
	if err := validation.ValidateDescription(description); err != nil {
		return err
	}
	return validation.ValidateObservationTimestamp(timestamp, now)
}

// notifyNearby tells every other user whose own radius covers the
// observation. Delivery failures are logged, never returned.
func (s *ObservationService) notifyNearby(ctx context.Context, obs *models.Observation) {
	if !s.flags.Enabled(featureflags.NearbyNotifications, obs.AuthorID) {
		return
	}
	point := geo.Point{Lat: obs.Latitude, Lng: obs.Longitude}
	targets, err := s.users.ListNotificationTargets(ctx, obs.AuthorID, geo.BoundingBox(point, validation.MaxRadiusKm))
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to list notification targets", "observation_id", obs.ID, "error", err)
		return
	}

	for _, u := range targets {
		if !u.HasPosition() {
			continue
		}
		distance := geo.DistanceKm(geo.Point{Lat: *u.Latitude, Lng: *u.Longitude}, point)
		if distance > float64(u.Radius) {
			continue
		}
		err := s.publisher.PublishEvent(ctx, u.ID, notifications.Event{
			Type: notifications.EventObservationNearby,
			Payload: notifications.ObservationNearbyPayload{
				ObservationID: obs.ID,
				CelestialBody: obs.CelestialBody.Name,
				Author:        obs.Author.Username,
				DistanceKm:    distance,
				Latitude:      obs.Latitude,
				Longitude:     obs.Longitude,
				Timestamp:     obs.Timestamp,
			},
		})
		if err != nil {
			middleware.Logger.WarnContext(ctx, "failed to publish nearby notification", "user_id", u.ID, "error", err)
			continue
		}
		observability.NearbyNotifications.Inc()
	}
}

func (s *ObservationService) Update(ctx context.Context, in UpdateObservationInput) (*models.ObservationDetail, error) {
	obs, err := s.editableObservation(ctx, in.ID, in.IssuerID)
	if err != nil {
		return nil, err
	}

	var fields []string
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		if err := validation.ValidateDescription(description); err != nil {
			return nil, err
		}
		obs.Description = description
		fields = append(fields, "description")
	}
	visibilityChanged := false
	if in.Visibility != nil {
		if err := validation.ValidateVisibility(*in.Visibility); err != nil {
			return nil, err
		}
		visibilityChanged = obs.Visibility != *in.Visibility
		obs.Visibility = *in.Visibility
		fields = append(fields, "visibility")
	}

	if len(fields) > 0 {
		if err := s.observations.UpdateFields(ctx, obs, append(fields, "updated_at")...); err != nil {
			return nil, err
		}
	}
	if visibilityChanged && s.achievements != nil {
		if err := s.achievements.EvaluateAuthor(ctx, obs.AuthorID); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to evaluate achievements", "user_id", obs.AuthorID, "error", err)
		}
	}
	return s.describeOne(ctx, obs, in.IssuerID)
}

func (s *ObservationService) Delete(ctx context.Context, id, issuerID uint) error {
	obs, err := s.editableObservation(ctx, id, issuerID)
	if err != nil {
		return err
	}
	if err := s.observations.Delete(ctx, obs.ID); err != nil {
		return err
	}
	cache.InvalidateKarma(ctx, obs.AuthorID)
	return nil
}

func (s *ObservationService) editableObservation(ctx context.Context, id, issuerID uint) (*models.Observation, error) {
	obs, err := s.observations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if obs == nil {
		return nil, models.ErrUnknownObservation
	}
	issuer, err := s.users.GetByID(ctx, issuerID)
	if err != nil {
		return nil, err
	}
	if issuer == nil {
		return nil, models.ErrUnavailableUser
	}
	if !obs.CanBeEditedBy(issuer) {
		return nil, models.ErrObservationNotEditable
	}
	return obs, nil
}

// Vote sets, replaces or (with a nil vote) clears userID's vote.
func (s *ObservationService) Vote(ctx context.Context, observationID, userID uint, vote *models.VoteValue) (err error) {
	ctx, end := observability.StartSpan(ctx, "service", "observation.vote",
		attribute.Int64("observation_id", int64(observationID)))
	defer func() { end(err) }()

	obs, err := s.observations.GetByID(ctx, observationID)
	if err != nil {
		return err
	}
	if obs == nil {
		return models.ErrUnknownObservation
	}
	voter, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if voter == nil {
		return models.ErrUnavailableUser
	}

	if vote == nil {
		existing, err := s.votes.Get(ctx, obs.ID, voter.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return nil
		}
		if err := s.votes.Delete(ctx, obs.ID, voter.ID); err != nil {
			return err
		}
		observability.VotesCast.WithLabelValues("cleared").Inc()
	} else {
		if !vote.Valid() {
			return models.ErrInvalidVote
		}
		if err := s.votes.Upsert(ctx, &models.ObservationVote{
			ObservationID: obs.ID,
			UserID:        voter.ID,
			Vote:          *vote,
		}); err != nil {
			return err
		}
		observability.VotesCast.WithLabelValues(string(*vote)).Inc()
	}

	if s.achievements != nil {
		if err := s.achievements.EvaluateVoter(ctx, voter.ID); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to evaluate achievements", "user_id", voter.ID, "error", err)
		}
		if err := s.achievements.EvaluateAuthor(ctx, obs.AuthorID); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to evaluate achievements", "user_id", obs.AuthorID, "error", err)
		}
	}
	return nil
}

func (s *ObservationService) describeOne(ctx context.Context, obs *models.Observation, viewerID uint) (*models.ObservationDetail, error) {
	details, err := describeObservations(ctx, s.votes, []models.Observation{*obs}, viewerID, s.now())
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// describeObservations maps observations to their API form with karma and
// the viewer's own vote.
func describeObservations(ctx context.Context, votes repository.VoteRepository, list []models.Observation, viewerID uint, now time.Time) ([]models.ObservationDetail, error) {
	out := make([]models.ObservationDetail, 0, len(list))
	if len(list) == 0 {
		return out, nil
	}

	ids := make([]uint, len(list))
	for i, obs := range list {
		ids[i] = obs.ID
	}
	counts, err := votes.CountsForObservations(ctx, ids)
	if err != nil {
		return nil, err
	}
	mine, err := votes.VotesByUser(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}

	for _, obs := range list {
		detail := models.ObservationDetail{
			ID:            obs.ID,
			Author:        obs.Author.Username,
			CelestialBody: obs.CelestialBody,
			Latitude:      obs.Latitude,
			Longitude:     obs.Longitude,
			Orientation:   obs.Orientation,
			Visibility:    obs.Visibility,
			Description:   obs.Description,
			Timestamp:     obs.Timestamp,
			CreatedAt:     obs.CreatedAt,
			Expired:       obs.Expired(now),
			Karma:         models.KarmaOf(counts[obs.ID]),
		}
		if v, ok := mine[obs.ID]; ok {
			detail.CurrentVote = &v
		}
		out = append(out, detail)
	}
	return out, nil
}

func authorObservations(ctx context.Context, observations repository.ObservationRepository, votes repository.VoteRepository, authorID, viewerID uint, now time.Time) ([]models.ObservationDetail, error) {
	list, err := observations.ListByAuthor(ctx, authorID, MaxAuthorObservations)
	if err != nil {
		return nil, err
	}
	return describeObservations(ctx, votes, list, viewerID, now)
}
