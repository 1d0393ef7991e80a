package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"openobservatory/internal/featureflags"
	"openobservatory/internal/geo"
	"openobservatory/internal/models"
	"openobservatory/internal/notifications"
	"openobservatory/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type voteKey struct {
	observationID uint
	userID        uint
}

// memStore backs the in-memory repositories used by service tests.
type memStore struct {
	mu           sync.Mutex
	nextID       uint
	users        map[uint]models.User
	bodies       map[uint]models.CelestialBody
	observations map[uint]models.Observation
	votes        map[voteKey]models.VoteValue
	achievements map[uint]map[models.Achievement]models.AchievementLevel
	subs         map[string]models.PushSubscription
	voteWrites   int
}

func newMemStore() *memStore {
	return &memStore{
		users:        map[uint]models.User{},
		bodies:       map[uint]models.CelestialBody{},
		observations: map[uint]models.Observation{},
		votes:        map[voteKey]models.VoteValue{},
		achievements: map[uint]map[models.Achievement]models.AchievementLevel{},
		subs:         map[string]models.PushSubscription{},
	}
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

type fakeUsers struct{ *memStore }

func (f fakeUsers) GetByID(_ context.Context, id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f fakeUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Username, username) {
			return &u, nil
		}
	}
	return nil, nil
}

func (f fakeUsers) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Username, user.Username) {
			return models.ErrUsernameAlreadyUsed
		}
	}
	user.ID = f.id()
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	f.users[user.ID] = *user
	return nil
}

func (f fakeUsers) Update(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.UpdatedAt = time.Now().UTC()
	f.users[user.ID] = *user
	return nil
}

func (f fakeUsers) UpdateAndUnsubscribe(ctx context.Context, user *models.User) error {
	if err := f.Update(ctx, user); err != nil {
		return err
	}
	return fakePush(f).DeleteAllForUser(ctx, user.ID)
}

func (f fakeUsers) Delete(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for obsID, obs := range f.observations {
		if obs.AuthorID == id {
			delete(f.observations, obsID)
		}
	}
	for k := range f.votes {
		if k.userID == id {
			delete(f.votes, k)
		} else if _, ok := f.observations[k.observationID]; !ok {
			delete(f.votes, k)
		}
	}
	delete(f.achievements, id)
	delete(f.users, id)
	return nil
}

func (f fakeUsers) ListNotificationTargets(_ context.Context, excludeID uint, box geo.Box) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.users {
		if u.ID == excludeID || !u.NotificationsEnabled || !u.HasPosition() {
			continue
		}
		if *u.Latitude < box.MinLat || *u.Latitude > box.MaxLat || *u.Longitude < box.MinLng || *u.Longitude > box.MaxLng {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (f fakeUsers) ListAdmins(_ context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.users {
		if u.IsAdmin() {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeBodies struct{ *memStore }

func (f fakeBodies) GetByID(_ context.Context, id uint) (*models.CelestialBody, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bodies[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (f fakeBodies) GetByName(_ context.Context, name string) (*models.CelestialBody, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bodies {
		if strings.EqualFold(b.Name, name) {
			return &b, nil
		}
	}
	return nil, nil
}

func (f fakeBodies) List(_ context.Context, page, perPage int) ([]models.CelestialBody, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]models.CelestialBody, 0, len(f.bodies))
	for _, b := range f.bodies {
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return paginate(all, page, perPage), int64(len(all)), nil
}

func (f fakeBodies) Create(_ context.Context, body *models.CelestialBody) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	body.ID = f.id()
	body.CreatedAt = time.Now().UTC()
	body.UpdatedAt = body.CreatedAt
	f.bodies[body.ID] = *body
	return nil
}

func (f fakeBodies) Update(_ context.Context, body *models.CelestialBody) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[body.ID] = *body
	return nil
}

func (f fakeBodies) Delete(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for obsID, obs := range f.observations {
		if obs.CelestialBodyID == id {
			delete(f.observations, obsID)
		}
	}
	delete(f.bodies, id)
	return nil
}

type fakeObservations struct{ *memStore }

// hydrate fills the associations the gorm repository preloads.
func (f fakeObservations) hydrate(obs models.Observation) models.Observation {
	obs.Author = f.users[obs.AuthorID]
	obs.CelestialBody = f.bodies[obs.CelestialBodyID]
	return obs
}

func (f fakeObservations) GetByID(_ context.Context, id uint) (*models.Observation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obs, ok := f.observations[id]
	if !ok {
		return nil, nil
	}
	obs = f.hydrate(obs)
	return &obs, nil
}

func (f fakeObservations) sorted(keep func(models.Observation) bool) []models.Observation {
	var out []models.Observation
	for _, obs := range f.observations {
		if keep(obs) {
			out = append(out, f.hydrate(obs))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (f fakeObservations) List(_ context.Context, page, perPage int) ([]models.Observation, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.sorted(func(models.Observation) bool { return true })
	return paginate(all, page, perPage), int64(len(all)), nil
}

func (f fakeObservations) ListInBox(_ context.Context, box geo.Box) ([]models.Observation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(func(o models.Observation) bool {
		return o.Latitude >= box.MinLat && o.Latitude <= box.MaxLat && o.Longitude >= box.MinLng && o.Longitude <= box.MaxLng
	}), nil
}

func (f fakeObservations) ListByAuthor(_ context.Context, authorID uint, limit int) ([]models.Observation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.sorted(func(o models.Observation) bool { return o.AuthorID == authorID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f fakeObservations) Create(_ context.Context, obs *models.Observation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	obs.ID = f.id()
	obs.CreatedAt = time.Now().UTC()
	obs.UpdatedAt = obs.CreatedAt
	stored := *obs
	stored.Author = models.User{}
	stored.CelestialBody = models.CelestialBody{}
	f.observations[obs.ID] = stored
	return nil
}

func (f fakeObservations) UpdateFields(_ context.Context, obs *models.Observation, fields ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := f.observations[obs.ID]
	for _, field := range fields {
		switch field {
		case "description":
			stored.Description = obs.Description
		case "visibility":
			stored.Visibility = obs.Visibility
		case "updated_at":
			stored.UpdatedAt = time.Now().UTC()
		}
	}
	f.observations[obs.ID] = stored
	return nil
}

func (f fakeObservations) Delete(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.votes {
		if k.observationID == id {
			delete(f.votes, k)
		}
	}
	delete(f.observations, id)
	return nil
}

func (f fakeObservations) AuthorStats(_ context.Context, authorID uint) (repository.AuthorStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var stats repository.AuthorStats
	distinct := map[uint]bool{}
	for _, obs := range f.observations {
		if obs.AuthorID != authorID {
			continue
		}
		stats.Observations++
		distinct[obs.CelestialBodyID] = true
		if obs.Visibility.Instrumented() {
			stats.Instrumented++
		}
	}
	stats.DistinctBodies = int64(len(distinct))
	return stats, nil
}

type fakeVotes struct{ *memStore }

func (f fakeVotes) Get(_ context.Context, observationID, userID uint) (*models.ObservationVote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.votes[voteKey{observationID, userID}]
	if !ok {
		return nil, nil
	}
	return &models.ObservationVote{ObservationID: observationID, UserID: userID, Vote: v}, nil
}

func (f fakeVotes) Upsert(_ context.Context, vote *models.ObservationVote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voteWrites++
	f.votes[voteKey{vote.ObservationID, vote.UserID}] = vote.Vote
	return nil
}

func (f fakeVotes) Delete(_ context.Context, observationID, userID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voteWrites++
	delete(f.votes, voteKey{observationID, userID})
	return nil
}

func (f fakeVotes) CountsForObservations(_ context.Context, ids []uint) (map[uint][]models.VoteCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := map[uint]bool{}
	for _, id := range ids {
		wanted[id] = true
	}
	tally := map[uint]map[models.VoteValue]int64{}
	for k, v := range f.votes {
		if !wanted[k.observationID] {
			continue
		}
		if tally[k.observationID] == nil {
			tally[k.observationID] = map[models.VoteValue]int64{}
		}
		tally[k.observationID][v]++
	}
	out := map[uint][]models.VoteCount{}
	for id, byValue := range tally {
		for value, n := range byValue {
			out[id] = append(out[id], models.VoteCount{Vote: value, Count: n})
		}
	}
	return out, nil
}

func (f fakeVotes) CountsForAuthor(_ context.Context, authorID uint) ([]models.VoteCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byValue := map[models.VoteValue]int64{}
	for k, v := range f.votes {
		if obs, ok := f.observations[k.observationID]; ok && obs.AuthorID == authorID {
			byValue[v]++
		}
	}
	var out []models.VoteCount
	for value, n := range byValue {
		out = append(out, models.VoteCount{Vote: value, Count: n})
	}
	return out, nil
}

func (f fakeVotes) VotesByUser(_ context.Context, userID uint, ids []uint) (map[uint]models.VoteValue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[uint]models.VoteValue{}
	for _, id := range ids {
		if v, ok := f.votes[voteKey{id, userID}]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (f fakeVotes) CountCastBy(_ context.Context, userID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k := range f.votes {
		if k.userID == userID {
			n++
		}
	}
	return n, nil
}

type fakeAchievements struct{ *memStore }

func (f fakeAchievements) ListByUser(_ context.Context, userID uint) ([]models.UserAchievement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.UserAchievement
	for a, level := range f.achievements[userID] {
		out = append(out, models.UserAchievement{UserID: userID, Achievement: a, Level: level})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Achievement < out[j].Achievement })
	return out, nil
}

func (f fakeAchievements) Upsert(_ context.Context, a *models.UserAchievement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.achievements[a.UserID] == nil {
		f.achievements[a.UserID] = map[models.Achievement]models.AchievementLevel{}
	}
	f.achievements[a.UserID][a.Achievement] = a.Level
	return nil
}

type fakePush struct{ *memStore }

func (f fakePush) Save(_ context.Context, sub *models.PushSubscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[sub.Endpoint] = *sub
	return nil
}

func (f fakePush) ListByUser(_ context.Context, userID uint) ([]models.PushSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PushSubscription
	for _, s := range f.subs {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f fakePush) DeleteByEndpoint(_ context.Context, userID uint, endpoint string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[endpoint]
	if !ok || s.UserID != userID {
		return false, nil
	}
	delete(f.subs, endpoint)
	return true, nil
}

func (f fakePush) DeleteAllForUser(_ context.Context, userID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for endpoint, s := range f.subs {
		if s.UserID == userID {
			delete(f.subs, endpoint)
		}
	}
	return nil
}

func paginate[T any](all []T, page, perPage int) []T {
	start := page * perPage
	if start >= len(all) {
		return []T{}
	}
	end := min(start+perPage, len(all))
	return all[start:end]
}

type publishedEvent struct {
	UserID uint
	Event  notifications.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) PublishEvent(_ context.Context, userID uint, ev notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{UserID: userID, Event: ev})
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.Event.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// testEnv wires every service over one memStore.
type testEnv struct {
	store        *memStore
	publisher    *recordingPublisher
	users        *UserService
	bodies       *CelestialBodyService
	observations *ObservationService
	achievements *AchievementService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	pub := &recordingPublisher{}
	flags := featureflags.NewManager("nearby_notifications=on,achievement_events=on")

	achievements := NewAchievementService(fakeAchievements{store}, fakeObservations{store}, fakeVotes{store}, pub, flags)
	return &testEnv{
		store:        store,
		publisher:    pub,
		users:        NewUserService(fakeUsers{store}, fakeObservations{store}, fakeVotes{store}, fakeAchievements{store}, fakePush{store}, bcrypt.MinCost),
		bodies:       NewCelestialBodyService(fakeBodies{store}),
		observations: NewObservationService(fakeObservations{store}, fakeBodies{store}, fakeUsers{store}, fakeVotes{store}, achievements, pub, flags),
		achievements: achievements,
	}
}

// seedUser inserts an account directly, bypassing password hashing.
func (e *testEnv) seedUser(t *testing.T, username string, mutate ...func(*models.User)) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Password: "x",
		IsPublic: true,
		Role:     models.RoleUser,
		Radius:   models.DefaultRadiusKm,
	}
	for _, m := range mutate {
		m(u)
	}
	require.NoError(t, fakeUsers{e.store}.Create(context.Background(), u))
	return u
}

func (e *testEnv) seedBody(t *testing.T, name string, validity int) *models.CelestialBody {
	t.Helper()
	b, err := e.bodies.Create(context.Background(), CreateCelestialBodyInput{Name: name, ValidityTime: validity})
	require.NoError(t, err)
	return b
}

func (e *testEnv) seedObservation(t *testing.T, author *models.User, body *models.CelestialBody, lat, lng float64) *models.ObservationDetail {
	t.Helper()
	obs, err := e.observations.Create(context.Background(), CreateObservationInput{
		AuthorID:        author.ID,
		CelestialBodyID: body.ID,
		Latitude:        lat,
		Longitude:       lng,
		Visibility:      models.VisibilityNakedEye,
	})
	require.NoError(t, err)
	return obs
}

func at(lat, lng float64) func(*models.User) {
	return func(u *models.User) {
		u.Latitude = &lat
		u.Longitude = &lng
	}
}

func admin(u *models.User) { u.Role = models.RoleAdmin }

func private(u *models.User) { u.IsPublic = false }

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assert.ErrorIs(t, err, models.NewValidationError(""))
}
