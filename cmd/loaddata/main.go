// Command loaddata imports the ingredient or tag catalog from a CSV file.
//
//	loaddata -kind ingredients -path data/ingredients.csv
//	loaddata -kind tags -path data/tags.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/service"
)

func main() {
	kind := flag.String("kind", "ingredients", "catalog to import: ingredients or tags")
	path := flag.String("path", "", "CSV file to import")
	flag.Parse()

	_ = godotenv.Load()

	if err := run(context.Background(), *kind, *path); err != nil {
		logging.Fatal().Err(err).Str("kind", *kind).Str("path", *path).Msg("import failed")
	}
}

func run(ctx context.Context, kind, path string) error {
	if path == "" {
		return fmt.Errorf("-path is required")
	}
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr})

	db, err := database.New(cfg)
	if err != nil {
		return err
	}
	if err := database.RunMigrations(db, cfg.MigrationsDir); err != nil {
		return err
	}

	catalog, err := service.NewCatalogService(db)
	if err != nil {
		return err
	}

	var importer func(context.Context, io.Reader) (int64, error)
	switch kind {
	case "ingredients":
		importer = catalog.ImportIngredients
	case "tags":
		importer = catalog.ImportTags
	default:
		return fmt.Errorf("unknown kind %q: want ingredients or tags", kind)
	}

	inserted, err := importer(ctx, file)
	if err != nil {
		return err
	}
	logging.Info().Str("kind", kind).Int64("inserted", inserted).Msg("catalog loaded")
	return nil
}
