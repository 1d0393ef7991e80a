package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"openobservatory/internal/models"
	"openobservatory/internal/repository"
	"openobservatory/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	users         repository.UserRepository
	observations  repository.ObservationRepository
	votes         repository.VoteRepository
	achievements  repository.AchievementRepository
	subscriptions repository.PushSubscriptionRepository
	bcryptCost    int
	now           func() time.Time
}

type RegisterInput struct {
	Username  string
	Password  string
	Biography string
}

type UpdatePasswordInput struct {
	Username    string
	OldPassword string
	NewPassword string
	IssuerID    uint
}

// UpdateUserInput carries optional fields; nil means "leave unchanged".
type UpdateUserInput struct {
	Username             string
	IssuerID             uint
	Biography            *string
	Avatar               *string
	IsPublic             *bool
	Radius               *int
	NotificationsEnabled *bool
}

type UpdatePositionInput struct {
	Username  string
	IssuerID  uint
	Latitude  float64
	Longitude float64
}

type PushSubscriptionInput struct {
	Endpoint string
	P256DH   string
	Auth     string
}

func NewUserService(
	users repository.UserRepository,
	observations repository.ObservationRepository,
	votes repository.VoteRepository,
	achievements repository.AchievementRepository,
	subscriptions repository.PushSubscriptionRepository,
	bcryptCost int,
) *UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{
		users:         users,
		observations:  observations,
		votes:         votes,
		achievements:  achievements,
		subscriptions: subscriptions,
		bcryptCost:    bcryptCost,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.UserProfile, error) {
	username := strings.TrimSpace(in.Username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	if err := validation.ValidateBiography(in.Biography); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.ErrUsernameAlreadyUsed
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:             username,
		Password:             hash,
		Biography:            in.Biography,
		IsPublic:             true,
		Role:                 models.RoleUser,
		NotificationsEnabled: false,
		Radius:               models.DefaultRadiusKm,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return &models.UserProfile{
		Username:     user.Username,
		Biography:    user.Biography,
		Avatar:       user.Avatar,
		IsPublic:     user.IsPublic,
		Role:         user.Role,
		Karma:        0,
		Achievements: []models.UserAchievement{},
		CreatedAt:    user.CreatedAt,
	}, nil
}

// dummyHash keeps Authenticate's timing similar for unknown usernames.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("open-observatory-dummy"), bcrypt.MinCost)

// Authenticate checks a username/password pair.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, models.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, models.ErrInvalidCredentials
	}
	return user, nil
}

// GetByID resolves an authenticated principal.
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.ErrUnavailableUser
	}
	return user, nil
}

func (s *UserService) FindByUsername(ctx context.Context, username string, viewerID uint) (*models.UserProfile, error) {
	target, err := visibleUser(ctx, s.users, username, viewerID)
	if err != nil {
		return nil, err
	}
	return s.profile(ctx, target)
}

func (s *UserService) FindSelf(ctx context.Context, viewerID uint) (*models.SelfUser, error) {
	user, err := s.GetByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return s.self(ctx, user)
}

func (s *UserService) FindObservationsByUsername(ctx context.Context, username string, viewerID uint) ([]models.ObservationDetail, error) {
	target, err := visibleUser(ctx, s.users, username, viewerID)
	if err != nil {
		return nil, err
	}
	return authorObservations(ctx, s.observations, s.votes, target.ID, viewerID, s.now())
}

func (s *UserService) UpdatePassword(ctx context.Context, in UpdatePasswordInput) error {
	target, err := s.editableUser(ctx, in.Username, in.IssuerID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(target.Password), []byte(in.OldPassword)) != nil {
		return models.ErrPasswordMismatch
	}
	if err := validation.ValidatePassword(in.NewPassword); err != nil {
		return err
	}
	hash, err := s.hashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	target.Password = hash
	return s.users.Update(ctx, target)
}

func (s *UserService) Update(ctx context.Context, in UpdateUserInput) (*models.SelfUser, error) {
	target, err := s.editableUser(ctx, in.Username, in.IssuerID)
	if err != nil {
		return nil, err
	}

	if in.Biography != nil {
		if err := validation.ValidateBiography(*in.Biography); err != nil {
			return nil, err
		}
		target.Biography = *in.Biography
	}
	if in.Avatar != nil {
		target.Avatar = strings.TrimSpace(*in.Avatar)
	}
	if in.IsPublic != nil {
		target.IsPublic = *in.IsPublic
	}
	if in.Radius != nil {
		if err := validation.ValidateRadius(*in.Radius); err != nil {
			return nil, err
		}
		target.Radius = *in.Radius
	}
	if in.NotificationsEnabled != nil {
		target.NotificationsEnabled = *in.NotificationsEnabled
	}

	// Turning notifications off drops every push subscription with it.
	save := s.users.Update
	if in.NotificationsEnabled != nil && !*in.NotificationsEnabled {
		save = s.users.UpdateAndUnsubscribe
	}
	if err := save(ctx, target); err != nil {
		return nil, err
	}
	return s.self(ctx, target)
}

func (s *UserService) UpdatePosition(ctx context.Context, in UpdatePositionInput) error {
	target, err := s.editableUser(ctx, in.Username, in.IssuerID)
	if err != nil {
		return err
	}
	if err := validation.ValidateCoordinates(in.Latitude, in.Longitude); err != nil {
		return err
	}
	lat, lng, now := in.Latitude, in.Longitude, s.now()
	target.Latitude = &lat
	target.Longitude = &lng
	target.LastPositionUpdate = &now
	return s.users.Update(ctx, target)
}

// Karma is the sum of vote weights over every observation userID authored.
func (s *UserService) Karma(ctx context.Context, userID uint) (int, error) {
	counts, err := s.votes.CountsForAuthor(ctx, userID)
	if err != nil {
		return 0, err
	}
	return models.KarmaOf(counts), nil
}

func (s *UserService) Delete(ctx context.Context, username string, issuerID uint) error {
	target, err := s.editableUser(ctx, username, issuerID)
	if err != nil {
		return err
	}
	return s.users.Delete(ctx, target.ID)
}

// SetRole promotes or demotes username. Callers enforce who may do it.
func (s *UserService) SetRole(ctx context.Context, username string, role models.Role) (*models.User, error) {
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, models.NewValidationError("Unknown role")
	}
	target, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, models.ErrUnknownUser
	}
	if target.Role == role {
		return target, nil
	}
	target.Role = role
	if err := s.users.Update(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

func (s *UserService) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.users.ListAdmins(ctx)
}

// AddPushSubscription registers a browser endpoint for userID and turns
// notifications on.
func (s *UserService) AddPushSubscription(ctx context.Context, userID uint, in PushSubscriptionInput) (*models.PushSubscription, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	endpoint := strings.TrimSpace(in.Endpoint)
	if u, err := url.Parse(endpoint); err != nil || u.Scheme != "https" || u.Host == "" {
		return nil, models.NewValidationError("Push endpoint must be an https URL")
	}
	if strings.TrimSpace(in.P256DH) == "" || strings.TrimSpace(in.Auth) == "" {
		return nil, models.NewValidationError("Push subscription keys are required")
	}

	sub := &models.PushSubscription{
		UserID:   user.ID,
		Endpoint: endpoint,
		P256DH:   strings.TrimSpace(in.P256DH),
		Auth:     strings.TrimSpace(in.Auth),
	}
	if err := s.subscriptions.Save(ctx, sub); err != nil {
		return nil, err
	}
	if !user.NotificationsEnabled {
		user.NotificationsEnabled = true
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

func (s *UserService) RemovePushSubscription(ctx context.Context, userID uint, endpoint string) error {
	removed, err := s.subscriptions.DeleteByEndpoint(ctx, userID, strings.TrimSpace(endpoint))
	if err != nil {
		return err
	}
	if !removed {
		return models.NewNotFoundError("Push subscription", endpoint)
	}
	return nil
}

func (s *UserService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return string(hash), nil
}

// editableUser loads username and checks issuerID may modify it.
func (s *UserService) editableUser(ctx context.Context, username string, issuerID uint) (*models.User, error) {
	issuer, err := s.GetByID(ctx, issuerID)
	if err != nil {
		return nil, err
	}
	target, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, models.ErrUnknownUser
	}
	if !target.CanBeEditedBy(issuer) {
		return nil, models.ErrUserNotEditable
	}
	return target, nil
}

func (s *UserService) profile(ctx context.Context, user *models.User) (*models.UserProfile, error) {
	karma, err := s.Karma(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	achievements, err := s.achievements.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if achievements == nil {
		achievements = []models.UserAchievement{}
	}
	return &models.UserProfile{
		Username:     user.Username,
		Biography:    user.Biography,
		Avatar:       user.Avatar,
		IsPublic:     user.IsPublic,
		Role:         user.Role,
		Karma:        karma,
		Achievements: achievements,
		CreatedAt:    user.CreatedAt,
	}, nil
}

func (s *UserService) self(ctx context.Context, user *models.User) (*models.SelfUser, error) {
	profile, err := s.profile(ctx, user)
	if err != nil {
		return nil, err
	}
	return &models.SelfUser{
		UserProfile:          *profile,
		NotificationsEnabled: user.NotificationsEnabled,
		Radius:               user.Radius,
		Latitude:             user.Latitude,
		Longitude:            user.Longitude,
		LastPositionUpdate:   user.LastPositionUpdate,
	}, nil
}

// visibleUser resolves username for viewerID (0 = anonymous) and applies
// the profile visibility rule.
func visibleUser(ctx context.Context, users repository.UserRepository, username string, viewerID uint) (*models.User, error) {
	var viewer *models.User
	if viewerID != 0 {
		v, err := users.GetByID(ctx, viewerID)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, models.ErrUnavailableUser
		}
		viewer = v
	}

	target, err := users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, models.ErrUnknownUser
	}
	if !target.CanBeViewedBy(viewer) {
		return nil, models.ErrUserNotVisible
	}
	return target, nil
}
