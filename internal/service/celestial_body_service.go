package service

import (
	"context"
	"strings"

	"openobservatory/internal/models"
	"openobservatory/internal/repository"
	"openobservatory/internal/validation"
)

type CreateCelestialBodyInput struct {
	Name         string
	ValidityTime int
	Image        string
}

// UpdateCelestialBodyInput carries optional fields; nil means "leave unchanged".
type UpdateCelestialBodyInput struct {
	ID           uint
	Name         *string
	ValidityTime *int
	Image        *string
}

type CelestialBodyService struct {
	bodies repository.CelestialBodyRepository
}

func NewCelestialBodyService(bodies repository.CelestialBodyRepository) *CelestialBodyService {
	return &CelestialBodyService{bodies: bodies}
}

func (s *CelestialBodyService) Create(ctx context.Context, in CreateCelestialBodyInput) (*models.CelestialBody, error) {
	name := validation.NormalizeCelestialBodyName(in.Name)
	if err := validation.ValidateCelestialBodyName(name); err != nil {
		return nil, err
	}
	if err := validation.ValidateValidityTime(in.ValidityTime); err != nil {
		return nil, err
	}

	existing, err := s.bodies.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.ErrCelestialBodyNameAlreadyUsed
	}

	body := &models.CelestialBody{
		Name:         name,
		ValidityTime: in.ValidityTime,
		Image:        strings.TrimSpace(in.Image),
	}
	if err := s.bodies.Create(ctx, body); err != nil {
		return nil, err
	}
	return body, nil
}

func (s *CelestialBodyService) FindByID(ctx context.Context, id uint) (*models.CelestialBody, error) {
	body, err := s.bodies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, models.ErrUnknownCelestialBody
	}
	return body, nil
}

// Search lists the catalog ordered by name.
func (s *CelestialBodyService) Search(ctx context.Context, page, itemsPerPage int) (*models.Page[models.CelestialBody], error) {
	if err := validation.ValidatePagination(page, itemsPerPage); err != nil {
		return nil, err
	}
	bodies, total, err := s.bodies.List(ctx, page, itemsPerPage)
	if err != nil {
		return nil, err
	}
	if bodies == nil {
		bodies = []models.CelestialBody{}
	}
	return &models.Page[models.CelestialBody]{
		Data:         bodies,
		Page:         page,
		ItemsPerPage: itemsPerPage,
		TotalItems:   total,
	}, nil
}

// Update checks existence before validating any field.
func (s *CelestialBodyService) Update(ctx context.Context, in UpdateCelestialBodyInput) (*models.CelestialBody, error) {
	body, err := s.FindByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := validation.NormalizeCelestialBodyName(*in.Name)
		if err := validation.ValidateCelestialBodyName(name); err != nil {
			return nil, err
		}
		if !strings.EqualFold(name, body.Name) {
			other, err := s.bodies.GetByName(ctx, name)
			if err != nil {
				return nil, err
			}
			if other != nil && other.ID != body.ID {
				return nil, models.ErrCelestialBodyNameAlreadyUsed
			}
		}
		body.Name = name
	}
	if in.ValidityTime != nil {
		if err := validation.ValidateValidityTime(*in.ValidityTime); err != nil {
			return nil, err
		}
		body.ValidityTime = *in.ValidityTime
	}
	if in.Image != nil {
		body.Image = strings.TrimSpace(*in.Image)
	}

	if err := s.bodies.Update(ctx, body); err != nil {
		return nil, err
	}
	return body, nil
}

func (s *CelestialBodyService) Delete(ctx context.Context, id uint) error {
	if _, err := s.FindByID(ctx, id); err != nil {
		return err
	}
	return s.bodies.Delete(ctx, id)
}
