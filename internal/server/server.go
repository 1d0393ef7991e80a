// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"strings"
	"time"

	_ "openobservatory/docs" // swagger docs
	"openobservatory/internal/cache"
	"openobservatory/internal/config"
	"openobservatory/internal/featureflags"
	"openobservatory/internal/middleware"
	"openobservatory/internal/models"
	"openobservatory/internal/notifications"
	"openobservatory/internal/repository"
	"openobservatory/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	featureFlags   *featureflags.Manager

	userService          *service.UserService
	celestialBodyService *service.CelestialBodyService
	observationService   *service.ObservationService
	achievementService   *service.AchievementService
	imageService         *service.ImageService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if db == nil {
		return nil, errors.New("database is required")
	}

	users := repository.NewUserRepository(db)
	bodies := repository.NewCelestialBodyRepository(db)
	observations := repository.NewObservationRepository(db)
	votes := repository.NewVoteRepository(db)
	achievements := repository.NewAchievementRepository(db)
	subscriptions := repository.NewPushSubscriptionRepository(db)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("openobservatory-api"),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}

	// Initialize notifier and hub if Redis is available
	var publisher service.EventPublisher
	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
		server.hub = notifications.NewHub()
		publisher = server.notifier
	}

	server.achievementService = service.NewAchievementService(achievements, observations, votes, publisher, server.featureFlags)
	server.userService = service.NewUserService(users, observations, votes, achievements, subscriptions, cfg.BcryptCost)
	server.celestialBodyService = service.NewCelestialBodyService(bodies)
	server.observationService = service.NewObservationService(
		observations, bodies, users, votes, server.achievementService, publisher, server.featureFlags)
	server.imageService = service.NewImageService(cfg)

	return server, nil
}

const defaultOrigins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"

// SetupMiddleware installs the global chain. CORS sits before the limiter
// so throttled responses still carry CORS headers.
func (s *Server) SetupMiddleware(app *fiber.App) {
	chain := []fiber.Handler{
		recover.New(),
		requestid.New(),
		middleware.TracingMiddleware(),
		middleware.ContextMiddleware(),
	}
	if s.promMiddleware != nil {
		chain = append(chain, middleware.MetricsMiddleware(s.promMiddleware))
	}
	chain = append(chain,
		helmet.New(),
		middleware.StructuredLogger(),
		cors.New(s.corsConfig()),
		limiter.New(ipLimiterConfig()),
	)
	for _, h := range chain {
		app.Use(h)
	}
}

func (s *Server) corsConfig() cors.Config {
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = defaultOrigins
	}
	return cors.Config{
		AllowOrigins: origins,
		AllowMethods: strings.Join([]string{
			fiber.MethodGet, fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch, fiber.MethodDelete, fiber.MethodOptions,
		}, ","),
		AllowHeaders: strings.Join([]string{
			fiber.HeaderOrigin, fiber.HeaderContentType, fiber.HeaderAccept, fiber.HeaderAuthorization,
			fiber.HeaderUpgrade, fiber.HeaderConnection, "Sec-WebSocket-Key", "Sec-WebSocket-Version",
		}, ", "),
		ExposeHeaders:    fiber.HeaderLocation + ", X-Trace-ID",
		AllowCredentials: true,
		MaxAge:           int((24 * time.Hour).Seconds()),
	}
}

// ipLimiterConfig allows 100 requests a minute per client IP. Preflights
// are not counted.
func ipLimiterConfig() limiter.Config {
	return limiter.Config{
		Max:          100,
		Expiration:   time.Minute,
		Next:         func(c *fiber.Ctx) bool { return c.Method() == fiber.MethodOptions },
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() },
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).
				JSON(models.ErrorResponse{Error: "Too many requests, please try again later."})
		},
	}
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Static(service.MediaURLPrefix, s.imageService.UploadDir(), fiber.Static{
		MaxAge: 86400,
	})

	api := app.Group("/api")
	api.Get("/", s.HealthCheck)
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Open Observatory Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/login",
		middleware.RateLimitWithPolicy(s.redis, 10, 5*time.Minute, middleware.FailClosed, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)

	// User routes; the literal @me routes come before /:username.
	users := api.Group("/users")
	users.Post("/register", s.OptionalAuth(),
		middleware.RateLimit(s.redis, 3, 10*time.Minute, "register"), s.Register)
	users.Get("/@me", s.AuthRequired(), s.GetSelf)
	users.Post("/@me/push-subscriptions", s.AuthRequired(), s.AddPushSubscription)
	users.Delete("/@me/push-subscriptions", s.AuthRequired(), s.RemovePushSubscription)
	users.Get("/:username/observations", s.OptionalAuth(), s.GetUserObservations)
	users.Patch("/:username/password", s.AuthRequired(), s.UpdatePassword)
	users.Post("/:username/position", s.AuthRequired(), s.UpdatePosition)
	users.Post("/:username/promote-admin", s.AuthRequired(), s.AdminRequired(), s.PromoteToAdmin)
	users.Post("/:username/demote-admin", s.AuthRequired(), s.AdminRequired(), s.DemoteFromAdmin)
	users.Get("/:username", s.OptionalAuth(), s.GetUser)
	users.Patch("/:username", s.AuthRequired(), s.UpdateUser)
	users.Delete("/:username", s.AuthRequired(), s.DeleteUser)

	// Celestial bodies: public reads, admin writes
	bodies := api.Group("/celestial-bodies")
	bodies.Get("/", s.ListCelestialBodies)
	bodies.Get("/:id", s.GetCelestialBody)
	bodies.Post("/", s.AuthRequired(), s.AdminRequired(), s.CreateCelestialBody)
	bodies.Patch("/:id", s.AuthRequired(), s.AdminRequired(), s.UpdateCelestialBody)
	bodies.Delete("/:id", s.AuthRequired(), s.AdminRequired(), s.DeleteCelestialBody)

	// Observations; /nearby must be registered before /:id
	observations := api.Group("/observations")
	observations.Get("/", s.OptionalAuth(), s.ListObservations)
	observations.Get("/nearby", s.OptionalAuth(),
		middleware.RateLimit(s.redis, 30, time.Minute, "nearby"), s.NearbyObservations)
	observations.Get("/:id", s.OptionalAuth(), s.GetObservation)
	observations.Post("/", s.AuthRequired(),
		middleware.RateLimit(s.redis, 10, time.Minute, "create_observation"), s.CreateObservation)
	observations.Patch("/:id", s.AuthRequired(), s.UpdateObservation)
	observations.Delete("/:id", s.AuthRequired(), s.DeleteObservation)
	observations.Put("/:id/vote", s.AuthRequired(),
		middleware.RateLimit(s.redis, 60, time.Minute, "vote"), s.VoteObservation)

	// Images
	api.Post("/images", s.AuthRequired(),
		middleware.RateLimit(s.redis, 10, time.Minute, "upload_image"), s.UploadImage)

	// Realtime
	api.Post("/ws/ticket", s.AuthRequired(), s.IssueWSTicket)
	api.Get("/ws", s.AuthRequired(), s.WebsocketUpgrade, s.WebsocketHandler())

	// Admin routes
	admin := api.Group("/admin", s.AuthRequired(), s.AdminRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Get("/users", s.ListAdmins)
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("userID").(uint)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		admin, err := s.isAdmin(c.UserContext(), userID)
		if err != nil {
			return models.RespondWithError(c, mapServiceError(err), err)
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}

		return c.Next()
	}
}

// AuthRequired rejects anonymous requests with 401. The websocket route
// is reached from browsers that cannot set headers, so it takes a
// single-use ticket in the query string instead of a bearer token.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authenticate := s.bearerUser
		if strings.TrimSuffix(c.Path(), "/") == "/api/ws" {
			authenticate = s.ticketUser
		}
		userID, err := authenticate(c)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}
		setUser(c, userID)
		return c.Next()
	}
}

// OptionalAuth identifies the caller when a valid bearer token is present
// and otherwise lets the request through anonymously.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if userID, err := s.bearerUser(c); err == nil {
			setUser(c, userID)
		}
		return c.Next()
	}
}

func (s *Server) bearerUser(c *fiber.Ctx) (uint, error) {
	raw, err := middleware.BearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return 0, models.NewUnauthorizedError("Authorization required")
	}
	claims, err := middleware.ParseAccessToken(s.config.JWTSecret, raw)
	if err != nil {
		return 0, models.NewUnauthorizedError("Invalid or expired token")
	}
	if s.isRevoked(c.UserContext(), claims.JTI) {
		return 0, models.NewUnauthorizedError("Token has been revoked")
	}
	c.Locals("tokenClaims", claims)
	return claims.UserID, nil
}

func (s *Server) ticketUser(c *fiber.Ctx) (uint, error) {
	ticket := c.Query("ticket")
	if ticket == "" {
		return 0, models.NewUnauthorizedError("WebSocket ticket required")
	}
	userID, ok := s.redeemWSTicket(c.UserContext(), ticket)
	if !ok {
		return 0, models.NewUnauthorizedError("Invalid or expired WebSocket ticket")
	}
	return userID, nil
}

func (s *Server) isRevoked(ctx context.Context, jti string) bool {
	if jti == "" || s.redis == nil {
		return false
	}
	n, err := s.redis.Exists(ctx, cache.BlacklistKey(jti)).Result()
	return err == nil && n > 0
}

func setUser(c *fiber.Ctx, userID uint) {
	c.Locals("userID", userID)
	ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, userID)
	c.SetUserContext(ctx)
}

// newApp builds the fiber application with middleware and routes.
func (s *Server) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Open Observatory API",
		BodyLimit: int(s.imageService.MaxUploadSizeBytes()) + 1024*1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.newApp()

	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring", "hub", s.hub.Name(), "error", err)
			}
		}()
	}

	middleware.Logger.Info("server starting", "port", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests, then closes the hub and the stores.
// Errors are logged and do not stop the remaining steps.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"http server", func() error {
			if s.app == nil {
				return nil
			}
			return s.app.ShutdownWithContext(ctx)
		}},
		{"notification hub", func() error {
			if s.hub == nil {
				return nil
			}
			return s.hub.Shutdown(ctx)
		}},
		{"database", func() error {
			sqlDB, err := s.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		}},
		{"redis", func() error {
			if s.redis == nil {
				return nil
			}
			return s.redis.Close()
		}},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			middleware.Logger.Error("shutdown step failed", "step", step.name, "error", err)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
