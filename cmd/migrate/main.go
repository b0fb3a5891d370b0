// Command migrate brings the database schema up to date and exits.
package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
)

func main() {
	dir := flag.String("dir", "", "directory of SQL migrations (defaults to MIGRATIONS_DIR)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr})

	migrationsDir := cfg.MigrationsDir
	if *dir != "" {
		migrationsDir = *dir
	}

	db, err := database.New(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.RunMigrations(db, migrationsDir); err != nil {
		logging.Fatal().Err(err).Msg("migration failed")
	}
	logging.Info().Str("driver", cfg.DBDriver).Str("dir", migrationsDir).Msg("migrations applied")
}
