package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// ViewerState holds the per-viewer flags of a set of recipes and their authors.
type ViewerState struct {
	Favorited      map[uuid.UUID]bool
	InShoppingCart map[uuid.UUID]bool
	Following      map[uuid.UUID]bool
}

// RecipeService handles recipe CRUD and listing.
type RecipeService struct {
	db     *gorm.DB
	images ImageStore
}

func NewRecipeService(db *gorm.DB, images ImageStore) *RecipeService {
	return &RecipeService{db: db, images: images}
}

func (s *RecipeService) CreateRecipe(ctx context.Context, authorID uuid.UUID, req *types.CreateRecipeRequest) (*models.Recipe, error) {
	tags, err := s.resolveTags(ctx, req.Tags)
	if err != nil {
		return nil, err
	}
	if err := s.checkIngredients(ctx, req.Ingredients); err != nil {
		return nil, err
	}

	imageURL, err := s.storeImage(ctx, authorID, req.Image)
	if err != nil {
		return nil, err
	}

	recipe := &models.Recipe{
		AuthorID:    authorID,
		Name:        strings.TrimSpace(req.Name),
		Image:       imageURL,
		Text:        req.Text,
		CookingTime: req.CookingTime,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(recipe).Error; err != nil {
			return fmt.Errorf("failed to create recipe: %w", err)
		}
		if err := replaceIngredients(tx, recipe.ID, req.Ingredients); err != nil {
			return err
		}
		if err := tx.Model(recipe).Association("Tags").Replace(tags); err != nil {
			return fmt.Errorf("failed to set recipe tags: %w", err)
		}
		return nil
	})
	if err != nil {
		s.discardImage(ctx, imageURL)
		return nil, err
	}

	metrics.RecipeWrites.WithLabelValues("create").Inc()
	logging.Ctx(ctx).Info().Str("recipe_id", recipe.ID.String()).Str("author_id", authorID.String()).Msg("recipe created")
	return s.GetRecipe(ctx, recipe.ID)
}

// UpdateRecipe applies a partial update. Only the author may modify a recipe.
func (s *RecipeService) UpdateRecipe(ctx context.Context, userID, recipeID uuid.UUID, req *types.UpdateRecipeRequest) (*models.Recipe, error) {
	recipe, err := s.getRecipeRow(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if recipe.AuthorID != userID {
		return nil, newError(ErrForbidden, "You do not have permission to perform this action.")
	}

	var tags []models.Tag
	if req.Tags != nil {
		if tags, err = s.resolveTags(ctx, req.Tags); err != nil {
			return nil, err
		}
	}
	if req.Ingredients != nil {
		if err := s.checkIngredients(ctx, req.Ingredients); err != nil {
			return nil, err
		}
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Text != nil {
		updates["text"] = *req.Text
	}
	if req.CookingTime != nil {
		updates["cooking_time"] = *req.CookingTime
	}

	var newImage string
	if req.Image != nil && *req.Image != recipe.Image {
		if newImage, err = s.storeImage(ctx, userID, *req.Image); err != nil {
			return nil, err
		}
		updates["image"] = newImage
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(recipe).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update recipe: %w", err)
			}
		}
		if req.Ingredients != nil {
			if err := replaceIngredients(tx, recipe.ID, req.Ingredients); err != nil {
				return err
			}
		}
		if req.Tags != nil {
			if err := tx.Model(recipe).Association("Tags").Replace(tags); err != nil {
				return fmt.Errorf("failed to replace recipe tags: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.discardImage(ctx, newImage)
		return nil, err
	}
	if newImage != "" {
		s.discardImage(ctx, recipe.Image)
	}

	metrics.RecipeWrites.WithLabelValues("update").Inc()
	return s.GetRecipe(ctx, recipe.ID)
}

// DeleteRecipe removes a recipe with its ingredient rows, tag links and
// every favorite and cart entry that points at it.
func (s *RecipeService) DeleteRecipe(ctx context.Context, userID, recipeID uuid.UUID) error {
	recipe, err := s.getRecipeRow(ctx, recipeID)
	if err != nil {
		return err
	}
	if recipe.AuthorID != userID {
		return newError(ErrForbidden, "You do not have permission to perform this action.")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.Favorite{}, &models.ShoppingCartItem{}, &models.RecipeIngredient{}} {
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to delete recipe references: %w", err)
			}
		}
		if err := tx.Model(recipe).Association("Tags").Clear(); err != nil {
			return fmt.Errorf("failed to clear recipe tags: %w", err)
		}
		if err := tx.Delete(recipe).Error; err != nil {
			return fmt.Errorf("failed to delete recipe: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.discardImage(ctx, recipe.Image)
	metrics.RecipeWrites.WithLabelValues("delete").Inc()
	logging.Ctx(ctx).Info().Str("recipe_id", recipe.ID.String()).Msg("recipe deleted")
	return nil
}

// GetRecipe loads a recipe with its author, tags and ingredients.
func (s *RecipeService) GetRecipe(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.withDetails(s.db.WithContext(ctx)).First(&recipe, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrNotFound, "Recipe not found.")
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return &recipe, nil
}

// ListRecipes returns one page of recipes, newest first. The favorited and
// shopping cart filters are ignored for anonymous viewers.
func (s *RecipeService) ListRecipes(ctx context.Context, viewer *uuid.UUID, filter types.RecipeFilter, page types.Pagination) ([]models.Recipe, int64, error) {
	var total int64
	if err := s.filtered(ctx, viewer, filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count recipes: %w", err)
	}

	var recipes []models.Recipe
	if err := s.withDetails(s.filtered(ctx, viewer, filter)).
		Order("recipes.pub_date DESC").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&recipes).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, total, nil
}

// filtered builds a fresh recipe query with the filter applied. Tag slugs
// match through a subquery so a recipe with several listed tags appears once.
func (s *RecipeService) filtered(ctx context.Context, viewer *uuid.UUID, filter types.RecipeFilter) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Recipe{})
	if filter.AuthorID != nil {
		query = query.Where("recipes.author_id = ?", *filter.AuthorID)
	}
	if len(filter.Tags) > 0 {
		query = query.Where("recipes.id IN (?)",
			s.db.Table("recipe_tags").
				Select("recipe_tags.recipe_id").
				Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
				Where("tags.slug IN ?", filter.Tags))
	}
	if viewer != nil && filter.Favorited {
		query = query.Where("recipes.id IN (?)",
			s.db.Model(&models.Favorite{}).Select("recipe_id").Where("user_id = ?", *viewer))
	}
	if viewer != nil && filter.InShoppingCart {
		query = query.Where("recipes.id IN (?)",
			s.db.Model(&models.ShoppingCartItem{}).Select("recipe_id").Where("user_id = ?", *viewer))
	}
	return query
}

// ViewerState reports which of recipes the viewer has favorited or put in the
// cart, and which of their authors the viewer follows.
func (s *RecipeService) ViewerState(ctx context.Context, viewer *uuid.UUID, recipes []models.Recipe) (*ViewerState, error) {
	state := &ViewerState{
		Favorited:      map[uuid.UUID]bool{},
		InShoppingCart: map[uuid.UUID]bool{},
		Following:      map[uuid.UUID]bool{},
	}
	if viewer == nil || len(recipes) == 0 {
		return state, nil
	}

	recipeIDs := make([]uuid.UUID, len(recipes))
	authorIDs := make([]uuid.UUID, len(recipes))
	for i, r := range recipes {
		recipeIDs[i] = r.ID
		authorIDs[i] = r.AuthorID
	}

	lookups := []struct {
		model  interface{}
		column string
		in     []uuid.UUID
		into   map[uuid.UUID]bool
	}{
		{&models.Favorite{}, "recipe_id", recipeIDs, state.Favorited},
		{&models.ShoppingCartItem{}, "recipe_id", recipeIDs, state.InShoppingCart},
		{&models.Follow{}, "author_id", authorIDs, state.Following},
	}
	for _, l := range lookups {
		var ids []uuid.UUID
		if err := s.db.WithContext(ctx).Model(l.model).
			Where("user_id = ? AND "+l.column+" IN ?", *viewer, l.in).
			Pluck(l.column, &ids).Error; err != nil {
			return nil, fmt.Errorf("failed to load viewer state: %w", err)
		}
		for _, id := range ids {
			l.into[id] = true
		}
	}
	return state, nil
}

func (s *RecipeService) withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name ASC") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("recipe_ingredients.id ASC") }).
		Preload("Ingredients.Ingredient")
}

func (s *RecipeService) getRecipeRow(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrNotFound, "Recipe not found.")
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return &recipe, nil
}

// resolveTags loads the tags for ids, failing on duplicates or unknown ids.
func (s *RecipeService) resolveTags(ctx context.Context, ids []uint) ([]models.Tag, error) {
	if len(ids) == 0 {
		return nil, newError(ErrValidation, "At least one tag is required.")
	}
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, newError(ErrValidation, "Tags must be unique.")
		}
		seen[id] = true
	}

	var tags []models.Tag
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	if len(tags) != len(ids) {
		return nil, newError(ErrValidation, "Unknown tag id.")
	}
	return tags, nil
}

// checkIngredients fails on duplicate or unknown ingredient ids.
func (s *RecipeService) checkIngredients(ctx context.Context, items []types.IngredientAmount) error {
	if len(items) == 0 {
		return newError(ErrValidation, "At least one ingredient is required.")
	}
	ids := make([]uint, 0, len(items))
	seen := make(map[uint]bool, len(items))
	for _, item := range items {
		if seen[item.ID] {
			return newError(ErrValidation, "Ingredients must be unique.")
		}
		if item.Amount < 1 {
			return newError(ErrValidation, "Ingredient amount must be at least 1.")
		}
		seen[item.ID] = true
		ids = append(ids, item.ID)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Ingredient{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to load ingredients: %w", err)
	}
	if count != int64(len(ids)) {
		return newError(ErrValidation, "Unknown ingredient id.")
	}
	return nil
}

// replaceIngredients swaps the ingredient rows of recipeID inside tx.
func replaceIngredients(tx *gorm.DB, recipeID uuid.UUID, items []types.IngredientAmount) error {
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeIngredient{}).Error; err != nil {
		return fmt.Errorf("failed to clear recipe ingredients: %w", err)
	}
	rows := make([]models.RecipeIngredient, len(items))
	for i, item := range items {
		rows[i] = models.RecipeIngredient{RecipeID: recipeID, IngredientID: item.ID, Amount: item.Amount}
	}
	if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to create recipe ingredients: %w", err)
	}
	return nil
}

func (s *RecipeService) storeImage(ctx context.Context, authorID uuid.UUID, dataURI string) (string, error) {
	img, err := DecodeImage(dataURI)
	if err != nil {
		return "", err
	}
	url, err := s.images.Save(ctx, imageKey(authorID, img.Extension), img.Data, img.ContentType)
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return url, nil
}

// discardImage removes an image that is no longer referenced. Failures only leave an orphan file.
func (s *RecipeService) discardImage(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := s.images.Delete(ctx, url); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("image", url).Msg("failed to delete image")
	}
}
