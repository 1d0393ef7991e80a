package server

import (
	"strconv"
	"time"

	"openobservatory/internal/models"
	"openobservatory/internal/service"

	"github.com/gofiber/fiber/v2"
)

type CreateObservationRequest struct {
	CelestialBodyID uint                         `json:"celestial_body_id"`
	Latitude        float64                      `json:"latitude"`
	Longitude       float64                      `json:"longitude"`
	Orientation     int                          `json:"orientation"`
	Visibility      models.ObservationVisibility `json:"visibility"`
	Description     string                       `json:"description"`
	Timestamp       *time.Time                   `json:"timestamp"`
}

type UpdateObservationRequest struct {
	Description *string                       `json:"description"`
	Visibility  *models.ObservationVisibility `json:"visibility"`
}

// VoteRequest sets the caller's vote. A null vote removes it.
type VoteRequest struct {
	Vote *models.VoteValue `json:"vote"`
}

// ListObservations handles GET /api/observations
// @Summary List observations, newest first
// @Tags observations
// @Produce json
// @Param limit query int false "Page size (1-100)" default(20)
// @Param page query int false "Zero-based page" default(0)
// @Success 200 {object} models.Page[models.ObservationDetail]
// @Failure 400 {object} models.ErrorResponse
// @Router /observations [get]
func (s *Server) ListObservations(c *fiber.Ctx) error {
	limit, err := queryInt(c, "limit", defaultItemsPerPage, models.ErrInvalidPagination)
	if err != nil {
		return respondError(c, err)
	}
	page, err := queryInt(c, "page", 0, models.ErrInvalidPagination)
	if err != nil {
		return respondError(c, err)
	}

	result, err := s.observationService.Search(c.UserContext(), limit, page, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// NearbyObservations handles GET /api/observations/nearby
// @Summary Observations within 30 km of a point
// @Tags observations
// @Produce json
// @Param lng query number true "Longitude"
// @Param lat query number true "Latitude"
// @Success 200 {array} models.ObservationDetail
// @Failure 400 {object} models.ErrorResponse
// @Router /observations/nearby [get]
func (s *Server) NearbyObservations(c *fiber.Ctx) error {
	lng, err := queryFloat(c, "lng", models.ErrInvalidCoordinates)
	if err != nil {
		return respondError(c, err)
	}
	lat, err := queryFloat(c, "lat", models.ErrInvalidCoordinates)
	if err != nil {
		return respondError(c, err)
	}

	list, err := s.observationService.FindNearby(c.UserContext(), lng, lat, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}

// GetObservation handles GET /api/observations/:id
// @Summary Get an observation
// @Tags observations
// @Produce json
// @Param id path int true "Observation ID"
// @Success 200 {object} models.ObservationDetail
// @Failure 404 {object} models.ErrorResponse
// @Router /observations/{id} [get]
func (s *Server) GetObservation(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	detail, err := s.observationService.FindByID(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(detail)
}

// CreateObservation handles POST /api/observations
// @Summary Report an observation
// @Tags observations
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body CreateObservationRequest true "Observation"
// @Success 201 {object} models.ObservationDetail
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /observations [post]
func (s *Server) CreateObservation(c *fiber.Ctx) error {
	var req CreateObservationRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	detail, err := s.observationService.Create(c.UserContext(), service.CreateObservationInput{
		AuthorID:        currentUserID(c),
		CelestialBodyID: req.CelestialBodyID,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		Orientation:     req.Orientation,
		Visibility:      req.Visibility,
		Description:     req.Description,
		Timestamp:       req.Timestamp,
	})
	if err != nil {
		return respondError(c, err)
	}

	c.Location("/api/observations/" + strconv.FormatUint(uint64(detail.ID), 10))
	return c.Status(fiber.StatusCreated).JSON(detail)
}

// UpdateObservation handles PATCH /api/observations/:id
// @Summary Edit an observation's description or visibility
// @Tags observations
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Observation ID"
// @Param request body UpdateObservationRequest true "Fields to change"
// @Success 200 {object} models.ObservationDetail
// @Failure 403 {object} models.ErrorResponse
// @Router /observations/{id} [patch]
func (s *Server) UpdateObservation(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req UpdateObservationRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	detail, err := s.observationService.Update(c.UserContext(), service.UpdateObservationInput{
		ID:          id,
		IssuerID:    currentUserID(c),
		Description: req.Description,
		Visibility:  req.Visibility,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(detail)
}

// DeleteObservation handles DELETE /api/observations/:id
// @Summary Delete an observation
// @Tags observations
// @Security BearerAuth
// @Param id path int true "Observation ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Router /observations/{id} [delete]
func (s *Server) DeleteObservation(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.observationService.Delete(c.UserContext(), id, currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// VoteObservation handles PUT /api/observations/:id/vote
// @Summary Set, replace or clear the caller's vote
// @Tags observations
// @Security BearerAuth
// @Accept json
// @Param id path int true "Observation ID"
// @Param request body VoteRequest true "UPVOTE, DOWNVOTE or null"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /observations/{id}/vote [put]
func (s *Server) VoteObservation(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req VoteRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := s.observationService.Vote(c.UserContext(), id, currentUserID(c), req.Vote); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
