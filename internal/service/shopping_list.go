package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/metrics"
)

const shoppingListHeader = "Your shopping list"

// ShoppingListItem is one aggregated line of a shopping list.
type ShoppingListItem struct {
	Name            string
	MeasurementUnit string
	TotalAmount     int64
}

// ShoppingListService aggregates the ingredients of the recipes in a user's cart.
type ShoppingListService struct {
	db *gorm.DB
}

func NewShoppingListService(db *gorm.DB) *ShoppingListService {
	return &ShoppingListService{db: db}
}

// Items sums ingredient amounts over every recipe in userID's cart, one row
// per ingredient, ordered by name then unit.
func (s *ShoppingListService) Items(ctx context.Context, userID uuid.UUID) ([]ShoppingListItem, error) {
	var items []ShoppingListItem
	err := s.db.WithContext(ctx).
		Table("recipe_ingredients").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS total_amount").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Joins("JOIN shopping_cart_items ON shopping_cart_items.recipe_id = recipe_ingredients.recipe_id").
		Where("shopping_cart_items.user_id = ?", userID).
		Group("ingredients.id, ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name ASC, ingredients.measurement_unit ASC").
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate shopping list: %w", err)
	}
	return items, nil
}

// Render builds the downloadable text of userID's shopping list.
func (s *ShoppingListService) Render(ctx context.Context, userID uuid.UUID) (string, error) {
	items, err := s.Items(ctx, userID)
	if err != nil {
		return "", err
	}
	metrics.ShoppingListDownloads.Inc()
	return RenderShoppingList(items), nil
}

// RenderShoppingList formats items as the header, a blank line and one
// numbered line per item. An empty list renders the header alone.
func RenderShoppingList(items []ShoppingListItem) string {
	var b strings.Builder
	b.WriteString(shoppingListHeader)
	if len(items) == 0 {
		return b.String()
	}
	b.WriteString("\n")
	for i, item := range items {
		b.WriteString("\n")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(item.Name)
		b.WriteString(": ")
		b.WriteString(strconv.FormatInt(item.TotalAmount, 10))
		b.WriteString(" ")
		b.WriteString(item.MeasurementUnit)
	}
	return b.String()
}
