package seed

import (
	"fmt"
	"regexp"
	"time"

	"openobservatory/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password of every generated account.
const DefaultPassword = "password123"

var usernameStrip = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// darkSkySite anchors generated observations so nearby searches return
// clusters instead of points scattered over the globe.
type darkSkySite struct {
	Name      string
	Latitude  float64
	Longitude float64
}

var darkSkySites = []darkSkySite{
	{Name: "Pic du Midi", Latitude: 42.936, Longitude: 0.142},
	{Name: "Mauna Kea", Latitude: 19.821, Longitude: -155.468},
	{Name: "Atacama", Latitude: -24.627, Longitude: -70.404},
	{Name: "Cherry Springs", Latitude: 41.664, Longitude: -77.823},
	{Name: "Aoraki Mackenzie", Latitude: -43.986, Longitude: 170.465},
	{Name: "La Palma", Latitude: 28.756, Longitude: -17.892},
}

var visibilities = []models.ObservationVisibility{
	models.VisibilityNakedEye,
	models.VisibilityBinoculars,
	models.VisibilityTelescope,
	models.VisibilityImagery,
}

// Factory builds domain entities and persists them to the database.
// In DryRun mode nothing is written and IDs are synthetic.
type Factory struct {
	db     *gorm.DB
	opts   Options
	hash   string
	nextID uint
}

// NewFactory creates a Factory bound to db. Passwords are hashed once and
// shared by every generated account.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	if opts.Seed != 0 {
		gofakeit.Seed(opts.Seed)
	}
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	return &Factory{db: db, opts: opts, hash: string(hash), nextID: 1000}, nil
}

func (f *Factory) syntheticID() uint {
	f.nextID++
	return f.nextID
}

// NewUsername returns a username that satisfies the account rules.
func NewUsername() string {
	name := usernameStrip.ReplaceAllString(gofakeit.Username(), "")
	if len(name) > 24 {
		name = name[:24]
	}
	return fmt.Sprintf("%s_%d", name, gofakeit.Number(100, 9999))
}

// CreateUser persists a generated observer account.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username:             NewUsername(),
		Password:             f.hash,
		Biography:            gofakeit.Sentence(12),
		Avatar:               fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		IsPublic:             gofakeit.Number(1, 10) > 2,
		Role:                 models.RoleUser,
		NotificationsEnabled: gofakeit.Bool(),
		Radius:               gofakeit.Number(1, 50),
	}
	if gofakeit.Bool() {
		site := darkSkySites[gofakeit.Number(0, len(darkSkySites)-1)]
		lat, lng := jitter(site, 20)
		now := time.Now()
		user.Latitude, user.Longitude, user.LastPositionUpdate = &lat, &lng, &now
	}

	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		user.ID = f.syntheticID()
		return user, nil
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildObservation constructs an observation of body by author without
// persisting it. Creation times spread over the last MaxDays days.
func (f *Factory) BuildObservation(author *models.User, body *models.CelestialBody) *models.Observation {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}
	now := time.Now()
	created := gofakeit.DateRange(now.Add(-time.Duration(maxDays)*24*time.Hour), now)
	seen := created.Add(-time.Duration(gofakeit.Number(0, 120)) * time.Minute)

	site := darkSkySites[gofakeit.Number(0, len(darkSkySites)-1)]
	lat, lng := jitter(site, 25)

	return &models.Observation{
		AuthorID:        author.ID,
		CelestialBodyID: body.ID,
		Latitude:        lat,
		Longitude:       lng,
		Orientation:     gofakeit.Number(0, 359),
		Visibility:      visibilities[gofakeit.Number(0, len(visibilities)-1)],
		Description:     fmt.Sprintf("%s seen from near %s. %s", body.Name, site.Name, gofakeit.Sentence(8)),
		Timestamp:       seen,
		CreatedAt:       created,
	}
}

// CreateObservationsBatch persists observations in a single statement.
func (f *Factory) CreateObservationsBatch(observations []*models.Observation) error {
	if len(observations) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, o := range observations {
			o.ID = f.syntheticID()
		}
		return nil
	}
	return f.db.Omit(clause.Associations).CreateInBatches(observations, 200).Error
}

// CreateVote records voter's opinion on an observation.
func (f *Factory) CreateVote(voter *models.User, observation *models.Observation, value models.VoteValue) (*models.ObservationVote, error) {
	vote := &models.ObservationVote{
		ObservationID: observation.ID,
		UserID:        voter.ID,
		Vote:          value,
	}
	if f.opts.DryRun {
		vote.ID = f.syntheticID()
		return vote, nil
	}
	if err := f.db.Create(vote).Error; err != nil {
		return nil, err
	}
	return vote, nil
}

// jitter offsets a site by up to maxKm in each axis. One degree of latitude
// is about 111 km; longitude degrees shrink with latitude but the error is
// irrelevant for demo data.
func jitter(site darkSkySite, maxKm float64) (float64, float64) {
	d := maxKm / 111.0
	lat := site.Latitude + gofakeit.Float64Range(-d, d)
	lng := site.Longitude + gofakeit.Float64Range(-d, d)
	return lat, lng
}
