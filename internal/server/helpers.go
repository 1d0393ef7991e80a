package server

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode"

	"openobservatory/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// statusByCode maps AppError codes to HTTP statuses.
var statusByCode = map[string]int{
	models.CodeNotFound:             fiber.StatusNotFound,
	models.CodeUnknownUser:          fiber.StatusNotFound,
	models.CodeUnknownCelestialBody: fiber.StatusNotFound,
	models.CodeUnknownObservation:   fiber.StatusNotFound,

	models.CodeUsernameAlreadyUsed:          fiber.StatusConflict,
	models.CodeCelestialBodyNameAlreadyUsed: fiber.StatusConflict,

	models.CodeUnauthorized:       fiber.StatusUnauthorized,
	models.CodeInvalidCredentials: fiber.StatusUnauthorized,
	models.CodeUnavailableUser:    fiber.StatusUnauthorized,

	models.CodeForbidden:              fiber.StatusForbidden,
	models.CodeUserNotVisible:         fiber.StatusForbidden,
	models.CodeUserNotEditable:        fiber.StatusForbidden,
	models.CodeObservationNotEditable: fiber.StatusForbidden,

	models.CodeInternal: fiber.StatusInternalServerError,
}

// mapServiceError picks the HTTP status for an error returned by a service.
// Unknown AppError codes are validation failures; anything else is a 500.
func mapServiceError(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return fiber.StatusGatewayTimeout
	}
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	if status, ok := statusByCode[appErr.Code]; ok {
		return status
	}
	return fiber.StatusBadRequest
}

// respondError writes err with the status mapServiceError selects. Errors
// that are not AppErrors are wrapped so internals never reach the client.
func respondError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		err = models.NewInternalError(err)
	}
	return models.RespondWithError(c, mapServiceError(err), err)
}

// parseID reads a positive integer route parameter. On failure the 400 is
// already written and errResponseWritten comes back; callers return nil.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam turns a route parameter name into an error label:
// "id" is "ID", "celestialBodyId" is "celestial body ID".
func humanizeParam(param string) string {
	stem, isID := strings.CutSuffix(param, "Id")
	if param == "id" {
		stem, isID = "", true
	}
	if !isID {
		return param
	}
	var b strings.Builder
	for _, r := range stem {
		if unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	if b.Len() > 0 {
		b.WriteByte(' ')
	}
	b.WriteString("ID")
	return b.String()
}

// parseBody decodes the JSON body into dst or writes a 400.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// currentUserID returns the authenticated caller, or 0 for anonymous requests.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

// isAdmin loads only the role column. A vanished account is reported as
// unavailable rather than not found.
func (s *Server) isAdmin(ctx context.Context, userID uint) (bool, error) {
	var user models.User
	err := s.db.WithContext(ctx).Select("role").First(&user, userID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, models.ErrUnavailableUser
	case err != nil:
		return false, models.NewInternalError(err)
	}
	return user.IsAdmin(), nil
}

// queryInt reads an integer query parameter, falling back to def when it is
// absent. Malformed values are reported as invalid.
func queryInt(c *fiber.Ctx, key string, def int, invalid error) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalid
	}
	return v, nil
}

// queryFloat reads a required float query parameter.
func queryFloat(c *fiber.Ctx, key string, invalid error) (float64, error) {
	v, err := strconv.ParseFloat(c.Query(key), 64)
	if err != nil {
		return 0, invalid
	}
	return v, nil
}
