package server

import (
	"net/url"

	"openobservatory/internal/models"
	"openobservatory/internal/service"

	"github.com/gofiber/fiber/v2"
)

// RegisterRequest is the body of POST /api/users/register.
type RegisterRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Biography string `json:"biography"`
}

// UpdateUserRequest carries optional profile fields.
type UpdateUserRequest struct {
	Biography            *string `json:"biography"`
	Avatar               *string `json:"avatar"`
	IsPublic             *bool   `json:"is_public"`
	Radius               *int    `json:"radius"`
	NotificationsEnabled *bool   `json:"notifications_enabled"`
}

type UpdatePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type UpdatePositionRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type PushSubscriptionRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256DH string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// Register handles POST /api/users/register
// @Summary Create an account
// @Tags users
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "New account"
// @Success 201 {object} models.UserProfile
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	if currentUserID(c) != 0 {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Already authenticated"))
	}

	var req RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	profile, err := s.userService.Register(c.UserContext(), service.RegisterInput{
		Username:  req.Username,
		Password:  req.Password,
		Biography: req.Biography,
	})
	if err != nil {
		return respondError(c, err)
	}

	c.Location("/api/users/" + url.PathEscape(profile.Username))
	return c.Status(fiber.StatusCreated).JSON(profile)
}

// GetSelf handles GET /api/users/@me
// @Summary Current user's profile and settings
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.SelfUser
// @Router /users/@me [get]
func (s *Server) GetSelf(c *fiber.Ctx) error {
	self, err := s.userService.FindSelf(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(self)
}

// GetUser handles GET /api/users/:username
// @Summary Public profile of a user
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} models.UserProfile
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{username} [get]
func (s *Server) GetUser(c *fiber.Ctx) error {
	profile, err := s.userService.FindByUsername(c.UserContext(), usernameParam(c), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// GetUserObservations handles GET /api/users/:username/observations
// @Summary Observations reported by a user
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {array} models.ObservationDetail
// @Router /users/{username}/observations [get]
func (s *Server) GetUserObservations(c *fiber.Ctx) error {
	list, err := s.userService.FindObservationsByUsername(c.UserContext(), usernameParam(c), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}

// UpdateUser handles PATCH /api/users/:username
// @Summary Update profile fields
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param username path string true "Username"
// @Param request body UpdateUserRequest true "Fields to change"
// @Success 200 {object} models.SelfUser
// @Router /users/{username} [patch]
func (s *Server) UpdateUser(c *fiber.Ctx) error {
	var req UpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	self, err := s.userService.Update(c.UserContext(), service.UpdateUserInput{
		Username:             usernameParam(c),
		IssuerID:             currentUserID(c),
		Biography:            req.Biography,
		Avatar:               req.Avatar,
		IsPublic:             req.IsPublic,
		Radius:               req.Radius,
		NotificationsEnabled: req.NotificationsEnabled,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(self)
}

// UpdatePassword handles PATCH /api/users/:username/password
// @Summary Change password
// @Tags users
// @Security BearerAuth
// @Accept json
// @Param username path string true "Username"
// @Param request body UpdatePasswordRequest true "Old and new password"
// @Success 204
// @Router /users/{username}/password [patch]
func (s *Server) UpdatePassword(c *fiber.Ctx) error {
	var req UpdatePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	err := s.userService.UpdatePassword(c.UserContext(), service.UpdatePasswordInput{
		Username:    usernameParam(c),
		IssuerID:    currentUserID(c),
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UpdatePosition handles POST /api/users/:username/position
// @Summary Record the user's last known position
// @Tags users
// @Security BearerAuth
// @Accept json
// @Param username path string true "Username"
// @Param request body UpdatePositionRequest true "Coordinates"
// @Success 204
// @Router /users/{username}/position [post]
func (s *Server) UpdatePosition(c *fiber.Ctx) error {
	var req UpdatePositionRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.Latitude == nil || req.Longitude == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.ErrInvalidCoordinates)
	}

	err := s.userService.UpdatePosition(c.UserContext(), service.UpdatePositionInput{
		Username:  usernameParam(c),
		IssuerID:  currentUserID(c),
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteUser handles DELETE /api/users/:username
// @Summary Delete an account and everything it owns
// @Tags users
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 204
// @Router /users/{username} [delete]
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	if err := s.userService.Delete(c.UserContext(), usernameParam(c), currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddPushSubscription handles POST /api/users/@me/push-subscriptions
// @Summary Register a browser push endpoint
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body PushSubscriptionRequest true "PushSubscription JSON"
// @Success 201 {object} models.PushSubscription
// @Router /users/@me/push-subscriptions [post]
func (s *Server) AddPushSubscription(c *fiber.Ctx) error {
	var req PushSubscriptionRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	sub, err := s.userService.AddPushSubscription(c.UserContext(), currentUserID(c), service.PushSubscriptionInput{
		Endpoint: req.Endpoint,
		P256DH:   req.Keys.P256DH,
		Auth:     req.Keys.Auth,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sub)
}

// RemovePushSubscription handles DELETE /api/users/@me/push-subscriptions
// @Summary Remove a browser push endpoint
// @Tags users
// @Security BearerAuth
// @Accept json
// @Param request body PushSubscriptionRequest true "Endpoint to remove"
// @Success 204
// @Router /users/@me/push-subscriptions [delete]
func (s *Server) RemovePushSubscription(c *fiber.Ctx) error {
	var req PushSubscriptionRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := s.userService.RemovePushSubscription(c.UserContext(), currentUserID(c), req.Endpoint); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PromoteToAdmin handles POST /api/users/:username/promote-admin
// @Summary Grant the ADMIN role
// @Tags admin
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 200 {object} models.User
// @Router /users/{username}/promote-admin [post]
func (s *Server) PromoteToAdmin(c *fiber.Ctx) error {
	return s.setRole(c, models.RoleAdmin)
}

// DemoteFromAdmin handles POST /api/users/:username/demote-admin
// @Summary Revoke the ADMIN role
// @Tags admin
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 200 {object} models.User
// @Router /users/{username}/demote-admin [post]
func (s *Server) DemoteFromAdmin(c *fiber.Ctx) error {
	return s.setRole(c, models.RoleUser)
}

func (s *Server) setRole(c *fiber.Ctx, role models.Role) error {
	user, err := s.userService.SetRole(c.UserContext(), usernameParam(c), role)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// ListAdmins handles GET /api/admin/users
func (s *Server) ListAdmins(c *fiber.Ctx) error {
	admins, err := s.userService.ListAdmins(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	if admins == nil {
		admins = []models.User{}
	}
	return c.JSON(admins)
}

// usernameParam returns the unescaped :username route parameter.
func usernameParam(c *fiber.Ctx) string {
	raw := c.Params("username")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		return unescaped
	}
	return raw
}
