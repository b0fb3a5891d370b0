package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/models"
)

// membershipList describes one per-user recipe list.
type membershipList struct {
	name       string
	newRow     func(userID, recipeID uuid.UUID) interface{}
	existsMsg  string
	missingMsg string
}

var (
	favoritesList = membershipList{
		name: "favorite",
		newRow: func(userID, recipeID uuid.UUID) interface{} {
			return &models.Favorite{UserID: userID, RecipeID: recipeID}
		},
		existsMsg:  "The recipe is already in your favorites",
		missingMsg: "The recipe isn't yet in your favorites",
	}
	shoppingCartList = membershipList{
		name: "shopping_cart",
		newRow: func(userID, recipeID uuid.UUID) interface{} {
			return &models.ShoppingCartItem{UserID: userID, RecipeID: recipeID}
		},
		existsMsg:  "The recipe is already in your shopping cart",
		missingMsg: "The recipe isn't yet in your shopping cart",
	}
)

// MembershipService manages the favorites and shopping cart of users.
type MembershipService struct {
	db *gorm.DB
}

func NewMembershipService(db *gorm.DB) *MembershipService {
	return &MembershipService{db: db}
}

func (s *MembershipService) AddFavorite(ctx context.Context, userID, recipeID uuid.UUID) (*models.Recipe, error) {
	return s.add(ctx, favoritesList, userID, recipeID)
}

func (s *MembershipService) RemoveFavorite(ctx context.Context, userID, recipeID uuid.UUID) error {
	return s.remove(ctx, favoritesList, userID, recipeID)
}

func (s *MembershipService) AddToShoppingCart(ctx context.Context, userID, recipeID uuid.UUID) (*models.Recipe, error) {
	return s.add(ctx, shoppingCartList, userID, recipeID)
}

func (s *MembershipService) RemoveFromShoppingCart(ctx context.Context, userID, recipeID uuid.UUID) error {
	return s.remove(ctx, shoppingCartList, userID, recipeID)
}

func (s *MembershipService) add(ctx context.Context, list membershipList, userID, recipeID uuid.UUID) (*models.Recipe, error) {
	recipe, err := s.recipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	row := list.newRow(userID, recipeID)
	var count int64
	if err := s.db.WithContext(ctx).Model(row).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check %s: %w", list.name, err)
	}
	if count > 0 {
		return nil, newError(ErrAlreadyExists, list.existsMsg)
	}

	// The unique index settles concurrent adds that both passed the check above.
	if err := s.db.WithContext(ctx).Omit("User", "Recipe").Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, newError(ErrAlreadyExists, list.existsMsg)
		}
		return nil, fmt.Errorf("failed to add %s: %w", list.name, err)
	}

	metrics.MembershipChanges.WithLabelValues(list.name, "add").Inc()
	return recipe, nil
}

func (s *MembershipService) remove(ctx context.Context, list membershipList, userID, recipeID uuid.UUID) error {
	if _, err := s.recipe(ctx, recipeID); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(list.newRow(userID, recipeID))
	if result.Error != nil {
		return fmt.Errorf("failed to remove %s: %w", list.name, result.Error)
	}
	if result.RowsAffected == 0 {
		return newError(ErrNotMember, list.missingMsg)
	}

	metrics.MembershipChanges.WithLabelValues(list.name, "remove").Inc()
	return nil
}

func (s *MembershipService) recipe(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrNotFound, "Recipe not found.")
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return &recipe, nil
}
