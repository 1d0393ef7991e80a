package server

import "github.com/gofiber/fiber/v2"

// GetFeatureFlags handles GET /api/admin/feature-flags
// @Summary Configured feature flags and their state for the caller
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /admin/feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	raw, evaluated := map[string]string{}, map[string]bool{}
	if flags := s.featureFlags; flags != nil {
		raw, evaluated = flags.Raw(), flags.Snapshot(currentUserID(c))
	}
	return c.JSON(fiber.Map{"raw": raw, "evaluated": evaluated})
}
