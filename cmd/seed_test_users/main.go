// Command seed_test_users registers a handful of development accounts.
// Accounts that already exist are left alone.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/joho/godotenv"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

const password = "testpassword123"

var testUsers = []types.RegisterRequest{
	{Email: "john.doe@example.com", Username: "johndoe", FirstName: "John", LastName: "Doe"},
	{Email: "jane.smith@example.com", Username: "janesmith", FirstName: "Jane", LastName: "Smith"},
	{Email: "chef.mario@example.com", Username: "chefmario", FirstName: "Mario", LastName: "Rossi"},
	{Email: "baker.anna@example.com", Username: "bakeranna", FirstName: "Anna", LastName: "Ivanova"},
}

func main() {
	_ = godotenv.Load()

	if config.IsProduction() {
		logging.Fatal().Msg("refusing to seed test users in production")
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

	auth := service.NewAuthService(db, cfg.JWTSecret, cfg.JWTTokenTTL, nil)
	ctx := context.Background()
	for _, u := range testUsers {
		req := u
		req.Password = password
		user, err := auth.Register(ctx, &req)
		switch {
		case errors.Is(err, service.ErrAlreadyExists):
			logging.Info().Str("username", req.Username).Msg("user already exists, skipping")
		case err != nil:
			logging.Fatal().Err(err).Str("username", req.Username).Msg("failed to create user")
		default:
			logging.Info().Str("username", user.Username).Str("id", user.ID.String()).Msg("created test user")
		}
	}
	logging.Info().Str("password", password).Msg("test users ready")
}
