// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"context"
	"fmt"

	"openobservatory/internal/featureflags"
	"openobservatory/internal/middleware"
	"openobservatory/internal/models"
	"openobservatory/internal/repository"
	"openobservatory/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	Catalog             bool
	NumUsers            int
	NumObservations     int
	MaxVotesPerObserver int
	MaxDays             int
	Clean               bool
	DryRun              bool
	BcryptCost          int
	Seed                int64
}

// Result counts what a run produced.
type Result struct {
	CelestialBodies int
	Users           int
	Observations    int
	Votes           int
}

// Seeder orchestrates catalog and fake-data seeding.
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a seeder bound to db.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// ClearAll removes every domain row, dependents first.
func (s *Seeder) ClearAll() error {
	middleware.Logger.Info("clearing existing data")
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&models.ObservationVote{},
			&models.UserAchievement{},
			&models.PushSubscription{},
			&models.Observation{},
			&models.CelestialBody{},
			&models.User{},
		} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Run executes a seeding pass according to opts.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	res := &Result{}

	if opts.Clean && !opts.DryRun {
		if err := s.ClearAll(); err != nil {
			return nil, fmt.Errorf("clear data: %w", err)
		}
	}

	var bodies []models.CelestialBody
	if opts.Catalog {
		entries, err := BuiltInCatalog()
		if err != nil {
			return nil, err
		}
		if opts.DryRun {
			for i, e := range entries {
				bodies = append(bodies, models.CelestialBody{ID: uint(i + 1), Name: e.Name, Image: e.Image, ValidityTime: e.ValidityTime})
			}
		} else if bodies, err = Catalog(s.db.WithContext(ctx), entries); err != nil {
			return nil, err
		}
		res.CelestialBodies = len(bodies)
		middleware.Logger.Info("celestial body catalog seeded", "count", len(bodies))
	} else if err := s.db.WithContext(ctx).Find(&bodies).Error; err != nil {
		return nil, fmt.Errorf("load celestial bodies: %w", err)
	}

	if opts.NumUsers <= 0 {
		return res, nil
	}

	factory, err := NewFactory(s.db.WithContext(ctx), opts)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := factory.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, user)
	}
	res.Users = len(users)
	middleware.Logger.Info("users seeded", "count", len(users), "password", DefaultPassword)

	if opts.NumObservations <= 0 {
		return res, nil
	}
	if len(bodies) == 0 {
		return nil, fmt.Errorf("no celestial bodies to observe; seed the catalog first")
	}

	observations := make([]*models.Observation, 0, opts.NumObservations)
	for i := 0; i < opts.NumObservations; i++ {
		author := users[gofakeit.Number(0, len(users)-1)]
		body := &bodies[gofakeit.Number(0, len(bodies)-1)]
		observations = append(observations, factory.BuildObservation(author, body))
	}
	if err := factory.CreateObservationsBatch(observations); err != nil {
		return nil, fmt.Errorf("create observations: %w", err)
	}
	res.Observations = len(observations)
	middleware.Logger.Info("observations seeded", "count", len(observations))

	votes, err := s.seedVotes(factory, users, observations, opts.MaxVotesPerObserver)
	if err != nil {
		return nil, err
	}
	res.Votes = votes

	if !opts.DryRun {
		if err := s.evaluateAchievements(ctx, users); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// seedVotes lets every user vote on up to maxPerUser observations written
// by someone else, at most once each.
func (s *Seeder) seedVotes(f *Factory, users []*models.User, observations []*models.Observation, maxPerUser int) (int, error) {
	if maxPerUser <= 0 {
		return 0, nil
	}
	total := 0
	for _, voter := range users {
		want := gofakeit.Number(0, maxPerUser)
		voted := make(map[uint]struct{}, want)
		for attempt := 0; len(voted) < want && attempt < want*3; attempt++ {
			obs := observations[gofakeit.Number(0, len(observations)-1)]
			if obs.AuthorID == voter.ID {
				continue
			}
			if _, dup := voted[obs.ID]; dup {
				continue
			}
			value := models.VoteUp
			if gofakeit.Number(1, 10) <= 3 {
				value = models.VoteDown
			}
			if _, err := f.CreateVote(voter, obs, value); err != nil {
				return total, fmt.Errorf("create vote: %w", err)
			}
			voted[obs.ID] = struct{}{}
			total++
		}
	}
	middleware.Logger.Info("votes seeded", "count", total)
	return total, nil
}

// evaluateAchievements replays the achievement rules for every seeded user
// so profiles match the generated activity. No events are published.
func (s *Seeder) evaluateAchievements(ctx context.Context, users []*models.User) error {
	achievements := service.NewAchievementService(
		repository.NewAchievementRepository(s.db),
		repository.NewObservationRepository(s.db),
		repository.NewVoteRepository(s.db),
		nil,
		featureflags.NewManager(""),
	)
	for _, u := range users {
		if err := achievements.EvaluateAuthor(ctx, u.ID); err != nil {
			return fmt.Errorf("evaluate achievements for %s: %w", u.Username, err)
		}
		if err := achievements.EvaluateVoter(ctx, u.ID); err != nil {
			return fmt.Errorf("evaluate achievements for %s: %w", u.Username, err)
		}
	}
	return nil
}
