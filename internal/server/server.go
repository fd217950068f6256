// Package server contains HTTP and WebSocket handlers for the wall's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "wall/docs" // swagger docs
	"wall/internal/backend"
	"wall/internal/blobstore"
	"wall/internal/cache"
	"wall/internal/config"
	"wall/internal/database"
	"wall/internal/feed"
	"wall/internal/middleware"
	"wall/internal/models"
	"wall/internal/notifications"
	"wall/internal/observability"
	"wall/internal/repository"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the already-initialized collaborators of a Server.
type Deps struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Backend feed.Backend
	Blobs   feed.BlobStore
	// MediaRoot is served under /media when non-empty.
	MediaRoot string
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	promMiddleware *fiberprometheus.FiberPrometheus
	wall           *feed.Wall
	hub            *notifications.Hub
	mediaRoot      string
	now            func() time.Time

	unwatch func()
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	blobs, err := blobstore.NewLocal(cfg.ImageUploadDir, cfg.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("blob store: %w", err)
	}

	store := backend.NewDataStore(
		repository.NewPostRepository(db),
		notifications.NewNotifier(redisClient),
	)

	return NewServerWithDeps(cfg, Deps{
		DB:        db,
		Redis:     redisClient,
		Backend:   store,
		Blobs:     blobs,
		MediaRoot: blobs.Root(),
	}), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Tests use it to inject fakes for the backend and blob store.
func NewServerWithDeps(cfg *config.Config, deps Deps) *Server {
	wallCfg := feed.WallConfig{
		Backend:             deps.Backend,
		Blobs:               deps.Blobs,
		Author:              cfg.Author(),
		OptimisticRetention: cfg.FeedOptimisticRetention,
		DiscardStale:        cfg.FeedDiscardStale,
	}
	if cfg.FeedSnapshotPath != "" {
		wallCfg.Persister = feed.NewFileSnapshot(cfg.FeedSnapshotPath)
	}

	return &Server{
		config:         cfg,
		db:             deps.DB,
		redis:          deps.Redis,
		promMiddleware: middleware.InitMetrics(observability.ServiceName),
		wall:           feed.NewWall(wallCfg),
		hub:            notifications.NewHub(0),
		mediaRoot:      deps.MediaRoot,
		now:            time.Now,
	}
}

// Wall returns the feed the server exposes.
func (s *Server) Wall() *feed.Wall { return s.wall }

// AppConfig returns the Fiber configuration the server expects. The body
// limit leaves room above the upload ceiling so oversized images are
// rejected by validation with a readable error.
func AppConfig() fiber.Config {
	return fiber.Config{
		AppName:      "Wall API",
		BodyLimit:    2 * models.MaxUploadBytes,
		ErrorHandler: errorHandler,
	}
}

// errorHandler reports errors escaping handlers in the standard error shape.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	return models.RespondWithError(c, models.StatusFor(err), err)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Context Middleware to propagate request and trace IDs
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers. Images under /media are embedded cross-origin by the client.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		MaxAge:       86400, // 24 hours
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Post("/", middleware.RateLimit(
		s.redis, s.config.PostRateLimitPerMinute, time.Minute, "create_post", middleware.FailOpen), s.CreatePost)

	draft := api.Group("/draft")
	draft.Get("/", s.GetDraft)
	draft.Put("/", s.UpdateDraft)
	draft.Post("/submit", middleware.RateLimit(
		s.redis, s.config.PostRateLimitPerMinute, time.Minute, "create_post", middleware.FailOpen), s.SubmitDraft)

	api.Post("/feed/reload", s.ReloadFeed)

	if s.mediaRoot != "" {
		app.Static(strings.TrimSuffix(blobstore.MediaPrefix, "/"), s.mediaRoot, fiber.Static{
			MaxAge: 3600,
		})
	}

	app.Use("/ws", s.upgradeRequired)
	app.Get("/ws", s.FeedWebSocketHandler())
}

// Mount starts the feed and forwards every change of the view to websocket
// clients.
func (s *Server) Mount(ctx context.Context) error {
	if err := s.wall.Mount(ctx); err != nil {
		return fmt.Errorf("mount wall: %w", err)
	}
	s.unwatch = s.wall.Store().Watch(func(posts []models.Post) {
		msg, err := s.feedMessage(msgFeedUpdated, posts)
		if err != nil {
			observability.GlobalLogger.Error("encode feed update", slog.String("error", err.Error()))
			return
		}
		s.hub.BroadcastAll(msg)
	})
	return nil
}

// LivenessCheck handles liveness probe requests
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/live [get]
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   s.now(),
	})
}

// ReadinessCheck handles readiness probe requests
// @Summary Readiness probe
// @Description Pings the database and Redis.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/ready [get]
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "unavailable"
	} else if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis == nil {
		redisStatus = "unavailable"
	} else if err := s.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"feed_size": s.wall.Store().Len(),
		"time":      s.now(),
	})
}

// Shutdown releases the wall and closes the server's connections. The Fiber
// app is shut down by the caller.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.unwatch != nil {
		s.unwatch()
		s.unwatch = nil
	}

	s.wall.Unmount(ctx)

	if err := s.hub.Shutdown(ctx); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "hub shutdown failed",
			slog.String("hub", s.hub.Name()),
			slog.String("error", err.Error()),
		)
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				observability.GlobalLogger.WarnContext(ctx, "error closing sql DB", slog.String("error", cerr.Error()))
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			observability.GlobalLogger.WarnContext(ctx, "error closing redis", slog.String("error", rerr.Error()))
		}
	}

	observability.GlobalLogger.InfoContext(ctx, "server shutdown complete")
	return nil
}
