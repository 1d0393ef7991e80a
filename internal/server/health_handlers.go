package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	probeHealthy     = "healthy"
	probeUnhealthy   = "unhealthy"
	probeUnavailable = "unavailable"
)

// probes returns one check per backing store. Redis is required: without it
// tickets, token revocation and realtime delivery stop working.
func (s *Server) probes() map[string]func(context.Context) string {
	return map[string]func(context.Context) string{
		"database": func(ctx context.Context) string {
			sqlDB, err := s.db.DB()
			if err != nil || sqlDB.PingContext(ctx) != nil {
				return probeUnhealthy
			}
			return probeHealthy
		},
		"redis": func(ctx context.Context) string {
			if s.redis == nil {
				return probeUnavailable
			}
			if s.redis.Ping(ctx).Err() != nil {
				return probeUnhealthy
			}
			return probeHealthy
		},
	}
}

// HealthCheck serves GET /api/ with the readiness report.
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return s.ReadinessCheck(c)
}

// LivenessCheck only proves the process is serving requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "up", "time": time.Now()})
}

// ReadinessCheck answers 503 unless every probe reports healthy.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	checks := fiber.Map{}
	overall, code := probeHealthy, fiber.StatusOK
	for name, probe := range s.probes() {
		result := probe(ctx)
		checks[name] = result
		if result != probeHealthy {
			overall, code = probeUnhealthy, fiber.StatusServiceUnavailable
		}
	}

	return c.Status(code).JSON(fiber.Map{
		"message": "Open Observatory",
		"status":  overall,
		"checks":  checks,
		"time":    time.Now(),
	})
}
