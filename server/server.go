// Package server contains the HTTP gateway: clean-URL page routing, the
// backend proxy endpoints, the AI generation proxy and the image proxy.
package server

import (
	"context"
	"time"

	"anoo/cache"
	"anoo/client"
	"anoo/config"
	"anoo/database"
	"anoo/gemini"
	"anoo/middleware"
	"anoo/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config  *config.Config
	api     *client.Client
	gemini  *gemini.Client
	redis   *redis.Client
	db      *gorm.DB
	drafts  DraftStore
	quota   *Quota
	started time.Time
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	// Redis backs the feed cache, the draft store and the AI quota fast
	// path; the gateway runs degraded without it.
	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	// Optional generation ledger.
	db := database.Connect(cfg)

	api, err := client.New(client.Config{BaseURL: cfg.APIBaseURL})
	if err != nil {
		return nil, err
	}

	gem := gemini.New(gemini.Config{
		BaseURL: cfg.GeminiBaseURL,
		APIKey:  cfg.GeminiAPIKey,
	})

	return &Server{
		config:  cfg,
		api:     api,
		gemini:  gem,
		redis:   redisClient,
		db:      db,
		drafts:  newRedisDraftStore(),
		quota:   NewQuota(redisClient, db, cfg.AIDailyLimit),
		started: time.Now(),
	}, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Request ID for tracing
	app.Use(requestid.New())

	// Security headers
	app.Use(helmet.New(helmet.Config{
		// Pages load their own scripts and S3 images; the default CSP
		// would blank every page.
		ContentSecurityPolicy: "",
	}))

	// Anonymous device identity (drafts, AI quota)
	app.Use(middleware.DeviceToken(s.config.DeviceTokenSecret))

	// Structured Logging middleware
	app.Use(middleware.StructuredLogger())

	// Global rate limiting (300 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:8080,http://localhost:3000",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health", s.HealthCheck)
	app.Get("/config", s.ClientConfig)

	api := app.Group("/api")

	api.Get("/image-proxy", s.ImageProxy)

	// AI generation proxy
	ai := api.Group("/ai")
	ai.Post("/generate-prompt", middleware.RateLimit(s.redis, 20, time.Hour, "ai_prompt"), s.GeneratePrompt)
	ai.Post("/generate-image", middleware.RateLimit(s.redis, 20, time.Hour, "ai_image"), s.GenerateImage)
	api.Get("/ai-generations/remaining", s.RemainingGenerations)

	// Backend proxy: posts, comments, likes
	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	// Specific /me route before the generic /:id route
	posts.Get("/me", s.GetMyPosts)
	posts.Post("/", s.CreatePost)
	posts.Get("/:id/comments", s.GetComments)
	posts.Post("/:id/comments", s.CreateComment)
	posts.Patch("/:id/comments/:commentId", s.UpdateComment)
	posts.Delete("/:id/comments/:commentId", s.DeleteComment)
	posts.Post("/:id/likes", s.LikePost)
	posts.Delete("/:id/likes", s.UnlikePost)
	posts.Get("/:id", s.GetPost)
	posts.Patch("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	// Post detail view: post + first comment page in one round trip
	api.Get("/views/post/:id", s.GetPostView)

	// Backend proxy: auth and account
	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 5, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.Logout)

	users := api.Group("/users")
	users.Get("/me", s.GetCurrentUser)
	users.Patch("/me", s.UpdateProfile)
	users.Patch("/me/password", s.ChangePassword)
	users.Delete("/me", s.DeleteAccount)

	// Backend proxy: image metadata registration
	api.Post("/images/metadata", s.RegisterImage)
	api.Post("/images/metadata/batch", s.RegisterImages)

	api.Post("/feedbacks", middleware.RateLimit(s.redis, 5, time.Hour, "feedback"), s.SubmitFeedback)

	// Per-device draft recovery
	drafts := api.Group("/drafts")
	drafts.Get("/", s.GetDraft)
	drafts.Put("/", s.SaveDraft)
	drafts.Delete("/", s.ClearDraft)

	// Static assets and clean-URL pages
	app.Static("/public", s.config.PublicDir)
	s.setupPageRoutes(app)
}

// HealthCheck handles health check requests
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	dbStatus := "healthy"
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			dbStatus = "unhealthy"
		} else if err := sqlDB.PingContext(ctx); err != nil {
			dbStatus = "unhealthy"
		}
	} else {
		dbStatus = "disabled"
	}

	overall := "healthy"
	status := fiber.StatusOK
	if redisStatus == "unhealthy" || dbStatus == "unhealthy" {
		overall = "unhealthy"
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"status":  overall,
		"version": s.config.AppVersion,
		"uptime":  time.Since(s.started).Seconds(),
		"checks": fiber.Map{
			"redis":    redisStatus,
			"database": dbStatus,
		},
		"time": time.Now(),
	})
}

// ClientConfig exposes the environment the pages need. Secrets never appear
// here; the Gemini key in particular stays server-side.
func (s *Server) ClientConfig(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"API_BASE_URL":     s.config.APIBaseURL,
		"IMAGE_UPLOAD_API": s.config.ImageUploadAPI,
		"APP_VERSION":      s.config.AppVersion,
	})
}

// Shutdown releases server resources.
func (s *Server) Shutdown(ctx context.Context) error {
	cache.Close()
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			return sqlDB.Close()
		}
	}
	return nil
}

// session builds the outbound context carrying the caller's backend session.
func session(c *fiber.Ctx) context.Context {
	return client.WithSession(c.Context(), c.Get("Cookie"))
}

// respondError relays an error with its own status when it carries one.
func respondError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, fiber.StatusInternalServerError, err)
}
