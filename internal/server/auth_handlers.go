package server

import (
	"time"

	"openobservatory/internal/cache"
	"openobservatory/internal/middleware"
	"openobservatory/internal/models"

	"github.com/gofiber/fiber/v2"
)

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the access token and the caller's own profile.
type LoginResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	User      *models.SelfUser `json:"user"`
}

// Login handles POST /api/auth/login
// @Summary User login
// @Description Authenticate with username and password and return a JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.Username == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username and password are required"))
	}

	ctx := c.UserContext()
	user, err := s.userService.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	token, claims, err := middleware.IssueAccessToken(s.config.JWTSecret, user.ID, user.Username, time.Now())
	if err != nil {
		return respondError(c, err)
	}

	self, err := s.userService.FindSelf(ctx, user.ID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(LoginResponse{Token: token, ExpiresAt: claims.ExpiresAt, User: self})
}

// Logout handles POST /api/auth/logout
// @Summary Revoke the current access token
// @Tags auth
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, ok := c.Locals("tokenClaims").(middleware.AccessClaims)
	if !ok || claims.JTI == "" {
		return c.SendStatus(fiber.StatusNoContent)
	}
	if s.redis == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(nil).WithMessage("Token revocation unavailable"))
	}

	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}
	if err := s.redis.Set(c.UserContext(), cache.BlacklistKey(claims.JTI), claims.UserID, ttl).Err(); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
