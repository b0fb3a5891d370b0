package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

const importBatchSize = 500

// CatalogService serves and imports the read-only tag and ingredient catalogs.
type CatalogService struct {
	db       *gorm.DB
	validate *validator.Validate
}

func NewCatalogService(db *gorm.DB) (*CatalogService, error) {
	v := validator.New()
	if err := types.RegisterValidations(v); err != nil {
		return nil, fmt.Errorf("failed to register validations: %w", err)
	}
	return &CatalogService{db: db, validate: v}, nil
}

func (s *CatalogService) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

func (s *CatalogService) GetTag(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrNotFound, "Tag not found.")
		}
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return &tag, nil
}

// ListIngredients returns ingredients whose name starts with prefix, ignoring case.
func (s *CatalogService) ListIngredients(ctx context.Context, prefix string) ([]models.Ingredient, error) {
	query := s.db.WithContext(ctx).Order("name ASC, measurement_unit ASC")
	if prefix = strings.TrimSpace(prefix); prefix != "" {
		query = query.Where("LOWER(name) LIKE ? ESCAPE '\\'", escapeLike(strings.ToLower(prefix))+"%")
	}
	var ingredients []models.Ingredient
	if err := query.Find(&ingredients).Error; err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	return ingredients, nil
}

func (s *CatalogService) GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := s.db.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrNotFound, "Ingredient not found.")
		}
		return nil, fmt.Errorf("failed to get ingredient: %w", err)
	}
	return &ingredient, nil
}

// ImportIngredients loads "name,measurement_unit" rows. Rows already in the
// catalog are skipped; the number of inserted rows is returned.
func (s *CatalogService) ImportIngredients(ctx context.Context, r io.Reader) (int64, error) {
	records, err := readCSV(r, 2)
	if err != nil {
		return 0, err
	}

	rows := make([]models.Ingredient, 0, len(records))
	for i, rec := range records {
		item := types.IngredientRecord{Name: rec[0], MeasurementUnit: rec[1]}
		if err := s.validate.Struct(item); err != nil {
			return 0, fmt.Errorf("line %d: %w", i+1, err)
		}
		rows = append(rows, models.Ingredient{Name: item.Name, MeasurementUnit: item.MeasurementUnit})
	}
	return s.insertIgnoringDuplicates(ctx, "ingredients", &rows, len(rows))
}

// ImportTags loads "name,color,slug" rows. Rows already in the catalog are skipped.
func (s *CatalogService) ImportTags(ctx context.Context, r io.Reader) (int64, error) {
	records, err := readCSV(r, 3)
	if err != nil {
		return 0, err
	}

	rows := make([]models.Tag, 0, len(records))
	for i, rec := range records {
		item := types.TagRecord{Name: rec[0], Color: strings.ToUpper(rec[1]), Slug: rec[2]}
		if err := s.validate.Struct(item); err != nil {
			return 0, fmt.Errorf("line %d: %w", i+1, err)
		}
		rows = append(rows, models.Tag{Name: item.Name, Color: item.Color, Slug: item.Slug})
	}
	return s.insertIgnoringDuplicates(ctx, "tags", &rows, len(rows))
}

func (s *CatalogService) insertIgnoringDuplicates(ctx context.Context, kind string, rows interface{}, n int) (int64, error) {
	if n == 0 {
		return 0, nil
	}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(rows, importBatchSize)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to import %s: %w", kind, result.Error)
	}
	metrics.CatalogImported.WithLabelValues(kind).Add(float64(result.RowsAffected))
	logging.Ctx(ctx).Info().Str("kind", kind).Int("rows", n).Int64("inserted", result.RowsAffected).Msg("catalog imported")
	return result.RowsAffected, nil
}

// readCSV reads every record, trimming fields and skipping blank lines.
func readCSV(r io.Reader, fields int) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = fields
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		records = append(records, rec)
	}
	return records, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
