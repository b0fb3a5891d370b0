package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/server"
	"github.com/pageza/foodgram/backend/internal/service"
)

func main() {
	// A missing .env is fine outside development.
	if err := godotenv.Load(); err != nil && config.GetEnvironment() == config.Development {
		logging.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr})

	db, err := database.New(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.RunMigrations(db, cfg.MigrationsDir); err != nil {
		logging.Fatal().Err(err).Msg("failed to run migrations")
	}

	redisClient, err := database.NewRedisClient(cfg)
	if err != nil {
		logging.Warn().Err(err).Msg("redis unavailable, rate limiting and token revocation disabled")
		redisClient = nil
	}

	images, err := newImageStore(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to set up image storage")
	}

	catalog, err := service.NewCatalogService(db)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create catalog service")
	}

	var revoked service.TokenStore
	if redisClient != nil {
		revoked = service.NewRedisTokenStore(redisClient)
	}

	srv := server.New(cfg, server.Dependencies{
		DB:    db,
		Redis: redisClient,
		Services: api.Services{
			Auth:         service.NewAuthService(db, cfg.JWTSecret, cfg.JWTTokenTTL, revoked),
			Users:        service.NewUserService(db),
			Recipes:      service.NewRecipeService(db, images),
			Membership:   service.NewMembershipService(db),
			ShoppingList: service.NewShoppingListService(db),
			Catalog:      catalog,
		},
		Limiters: newLimiters(redisClient),
	})

	// Channel to listen for errors coming from the server
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	// Channel to listen for an interrupt or terminate signal from the OS
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			logging.Fatal().Err(err).Msg("server error")
		}
	case sig := <-quit:
		logging.Info().Str("signal", sig.String()).Msg("received signal")
	}

	logging.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("server shutdown error")
	}
	if redisClient != nil {
		redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	logging.Info().Msg("server stopped")
}

func newImageStore(cfg *config.Config) (service.ImageStore, error) {
	if cfg.MediaStorage != "s3" {
		if err := os.MkdirAll(cfg.MediaRoot, 0o755); err != nil {
			return nil, err
		}
		return service.NewLocalImageStore(cfg.MediaRoot, cfg.MediaURL), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s3Config, err := config.NewS3Config(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := s3Config.SetupBucketPolicy(ctx); err != nil {
		logging.Warn().Err(err).Str("bucket", s3Config.BucketName).Msg("failed to apply public read policy")
	}
	return service.NewS3ImageStore(s3Config), nil
}

func newLimiters(client *redis.Client) api.Limiters {
	if client == nil {
		return api.Limiters{}
	}
	return api.Limiters{
		RecipeCreation:     middleware.NewRecipeCreationRateLimiter(client),
		RecipeModification: middleware.NewRecipeModificationRateLimiter(client),
	}
}
