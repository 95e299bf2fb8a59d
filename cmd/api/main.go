package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"github.com/iamgideonidoko/persona/internal/config"
	"github.com/iamgideonidoko/persona/internal/handlers"
	"github.com/iamgideonidoko/persona/internal/middleware"
	"github.com/iamgideonidoko/persona/internal/repository"
	"github.com/iamgideonidoko/persona/internal/services"
	"github.com/iamgideonidoko/persona/pkg/cache"
	"github.com/iamgideonidoko/persona/pkg/logger"
	"github.com/iamgideonidoko/persona/pkg/scoring"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load config", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Monitoring.LogLevel))
	logger.Info("Starting Persona API", map[string]any{
		"version":     services.GeneratorVersion,
		"environment": cfg.API.Environment,
	})

	// Initialize database with retry logic
	var repo *repository.Repository
	err = repository.WithRetry(context.Background(), repository.DefaultRetryConfig, func() error {
		var retryErr error
		repo, retryErr = repository.NewRepository(
			cfg.Database.URL,
			cfg.Database.MaxConns,
			cfg.Database.MaxIdleConns,
		)
		return retryErr
	})
	if err != nil {
		logger.Error("Failed to connect to database", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("Connected to PostgreSQL")

	if err := repo.HealthCheck(context.Background()); err != nil {
		logger.Error("Database health check failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	// Initialize Redis cache
	var redisCache *cache.Cache
	err = repository.WithRetry(context.Background(), repository.DefaultRetryConfig, func() error {
		var retryErr error
		redisCache, retryErr = cache.NewCache(
			cfg.Redis.Addr,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.CacheTTL,
		)
		return retryErr
	})
	if err != nil {
		logger.Error("Failed to connect to Redis", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer redisCache.Close()
	logger.Info("Connected to Redis", map[string]any{"addr": cfg.Redis.Addr})

	// Initialize services
	catalogService := services.NewCatalogService(repo, redisCache)

	if cfg.Generator.SeedCatalogOnBoot {
		if err := catalogService.SeedDefault(context.Background()); err != nil {
			logger.Error("Failed to seed catalog", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	}
	if cfg.Generator.DatasetDir != "" {
		if err := catalogService.SeedFromFolder(context.Background(), cfg.Generator.DatasetDir); err != nil {
			logger.Warn("Dataset folder seeding failed", map[string]any{"error": err.Error()})
		}
	}
	if _, err := catalogService.Reload(context.Background()); err != nil {
		logger.Error("Failed to load catalog snapshot", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	fingerprintService := services.NewFingerprintService(repo, redisCache, catalogService)
	validationService := services.NewValidationService(
		repo, redisCache, scoring.NewScorer(cfg.Generator.CurrentChromeMajor),
	)
	logger.Info("Initialized fingerprint services")

	handler := handlers.NewHandler(fingerprintService, validationService, catalogService, redisCache)

	app := fiber.New(fiber.Config{
		DisableStartupMessage: false,
		ServerHeader:          "Persona",
		AppName:               "Persona API v1.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			logger.Error("Request error", map[string]any{
				"error": err.Error(),
				"path":  c.Path(),
				"code":  code,
			})
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(middleware.Recover())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS(cfg.Security.CORSOrigins))

	rateLimiter := middleware.NewRateLimiter(redisCache, &cfg.RateLimit)

	// Routes
	app.Get("/health", handler.Health)
	app.Get("/metrics", handler.Metrics)

	v1 := app.Group("/v1")
	v1.Post("/profiles/generate",
		rateLimiter.LimitByIP(),
		handler.GenerateProfile,
	)
	v1.Get("/profiles/:id", handler.GetProfile)
	v1.Post("/profiles/:id/compile", handler.CompileProfile)
	v1.Post("/profiles/:id/validate", handler.ValidateProfile)
	v1.Get("/profiles/:id/reports", handler.GetReports)

	v1.Post("/traits/validate", handler.ValidateTraits)
	v1.Post("/traits/resolve", handler.ResolveTraits)

	v1.Post("/catalog/import", handler.ImportCatalog)
	v1.Get("/catalog/export", handler.ExportCatalog)

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down gracefully...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_ = app.ShutdownWithContext(ctx)
		logger.Info("Server shutdown complete")
		os.Exit(0)
	}()

	addr := fmt.Sprintf("%s:%s", cfg.API.Host, cfg.API.Port)
	logger.Info("Persona API started", map[string]any{"address": addr})

	if err := app.Listen(addr); err != nil {
		logger.Error("Server error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}
