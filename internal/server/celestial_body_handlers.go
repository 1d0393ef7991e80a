package server

import (
	"strconv"

	"openobservatory/internal/models"
	"openobservatory/internal/service"

	"github.com/gofiber/fiber/v2"
)

const defaultItemsPerPage = 20

type CreateCelestialBodyRequest struct {
	Name         string `json:"name"`
	ValidityTime int    `json:"validity_time"`
	Image        string `json:"image"`
}

type UpdateCelestialBodyRequest struct {
	Name         *string `json:"name"`
	ValidityTime *int    `json:"validity_time"`
	Image        *string `json:"image"`
}

// ListCelestialBodies handles GET /api/celestial-bodies
// @Summary List the celestial body catalog
// @Tags celestial-bodies
// @Produce json
// @Param page query int false "Zero-based page" default(0)
// @Param itemsPerPage query int false "Page size (1-100)" default(20)
// @Success 200 {object} models.Page[models.CelestialBody]
// @Failure 400 {object} models.ErrorResponse
// @Router /celestial-bodies [get]
func (s *Server) ListCelestialBodies(c *fiber.Ctx) error {
	page, err := queryInt(c, "page", 0, models.ErrInvalidPagination)
	if err != nil {
		return respondError(c, err)
	}
	itemsPerPage, err := queryInt(c, "itemsPerPage", defaultItemsPerPage, models.ErrInvalidPagination)
	if err != nil {
		return respondError(c, err)
	}

	result, err := s.celestialBodyService.Search(c.UserContext(), page, itemsPerPage)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetCelestialBody handles GET /api/celestial-bodies/:id
// @Summary Get a celestial body
// @Tags celestial-bodies
// @Produce json
// @Param id path int true "Celestial body ID"
// @Success 200 {object} models.CelestialBody
// @Failure 404 {object} models.ErrorResponse
// @Router /celestial-bodies/{id} [get]
func (s *Server) GetCelestialBody(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	body, err := s.celestialBodyService.FindByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(body)
}

// CreateCelestialBody handles POST /api/celestial-bodies
// @Summary Add a celestial body to the catalog
// @Tags celestial-bodies
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body CreateCelestialBodyRequest true "Celestial body"
// @Success 201 {object} models.CelestialBody
// @Failure 409 {object} models.ErrorResponse
// @Router /celestial-bodies [post]
func (s *Server) CreateCelestialBody(c *fiber.Ctx) error {
	var req CreateCelestialBodyRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	body, err := s.celestialBodyService.Create(c.UserContext(), service.CreateCelestialBodyInput{
		Name:         req.Name,
		ValidityTime: req.ValidityTime,
		Image:        req.Image,
	})
	if err != nil {
		return respondError(c, err)
	}

	s.publishBroadcastEvent(EventCelestialBodyCreated, celestialBodySummary(body))
	c.Location("/api/celestial-bodies/" + strconv.FormatUint(uint64(body.ID), 10))
	return c.Status(fiber.StatusCreated).JSON(body)
}

// UpdateCelestialBody handles PATCH /api/celestial-bodies/:id
// @Summary Update a celestial body
// @Tags celestial-bodies
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Celestial body ID"
// @Param request body UpdateCelestialBodyRequest true "Fields to change"
// @Success 200 {object} models.CelestialBody
// @Router /celestial-bodies/{id} [patch]
func (s *Server) UpdateCelestialBody(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req UpdateCelestialBodyRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	body, err := s.celestialBodyService.Update(c.UserContext(), service.UpdateCelestialBodyInput{
		ID:           id,
		Name:         req.Name,
		ValidityTime: req.ValidityTime,
		Image:        req.Image,
	})
	if err != nil {
		return respondError(c, err)
	}

	s.publishBroadcastEvent(EventCelestialBodyUpdated, celestialBodySummary(body))
	return c.JSON(body)
}

// DeleteCelestialBody handles DELETE /api/celestial-bodies/:id
// @Summary Remove a celestial body and its observations
// @Tags celestial-bodies
// @Security BearerAuth
// @Param id path int true "Celestial body ID"
// @Success 204
// @Router /celestial-bodies/{id} [delete]
func (s *Server) DeleteCelestialBody(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.celestialBodyService.Delete(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}

	s.publishBroadcastEvent(EventCelestialBodyDeleted, fiber.Map{"id": id})
	return c.SendStatus(fiber.StatusNoContent)
}
