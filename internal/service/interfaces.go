package service

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// IAuthService defines the interface for authentication operations
type IAuthService interface {
	Register(ctx context.Context, req *types.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context, claims *types.TokenClaims) error
	SetPassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error
	ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// IUserService defines the interface for user and subscription operations
type IUserService interface {
	ListUsers(ctx context.Context, viewer *uuid.UUID, page types.Pagination) ([]UserView, int64, error)
	GetUser(ctx context.Context, viewer *uuid.UUID, id uuid.UUID) (*UserView, error)
	Subscribe(ctx context.Context, userID, authorID uuid.UUID, recipesLimit int) (*SubscriptionView, error)
	Unsubscribe(ctx context.Context, userID, authorID uuid.UUID) error
	Subscriptions(ctx context.Context, userID uuid.UUID, page types.Pagination, recipesLimit int) ([]SubscriptionView, int64, error)
}

// IRecipeService defines the interface for recipe operations
type IRecipeService interface {
	CreateRecipe(ctx context.Context, authorID uuid.UUID, req *types.CreateRecipeRequest) (*models.Recipe, error)
	GetRecipe(ctx context.Context, id uuid.UUID) (*models.Recipe, error)
	UpdateRecipe(ctx context.Context, userID, recipeID uuid.UUID, req *types.UpdateRecipeRequest) (*models.Recipe, error)
	DeleteRecipe(ctx context.Context, userID, recipeID uuid.UUID) error
	ListRecipes(ctx context.Context, viewer *uuid.UUID, filter types.RecipeFilter, page types.Pagination) ([]models.Recipe, int64, error)
	ViewerState(ctx context.Context, viewer *uuid.UUID, recipes []models.Recipe) (*ViewerState, error)
}

// IMembershipService defines the interface for favorites and shopping cart operations
type IMembershipService interface {
	AddFavorite(ctx context.Context, userID, recipeID uuid.UUID) (*models.Recipe, error)
	RemoveFavorite(ctx context.Context, userID, recipeID uuid.UUID) error
	AddToShoppingCart(ctx context.Context, userID, recipeID uuid.UUID) (*models.Recipe, error)
	RemoveFromShoppingCart(ctx context.Context, userID, recipeID uuid.UUID) error
}

// IShoppingListService defines the interface for shopping list export
type IShoppingListService interface {
	Render(ctx context.Context, userID uuid.UUID) (string, error)
}

// ICatalogService defines the interface for the tag and ingredient catalogs
type ICatalogService interface {
	ListTags(ctx context.Context) ([]models.Tag, error)
	GetTag(ctx context.Context, id uint) (*models.Tag, error)
	ListIngredients(ctx context.Context, prefix string) ([]models.Ingredient, error)
	GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error)
	ImportIngredients(ctx context.Context, r io.Reader) (int64, error)
	ImportTags(ctx context.Context, r io.Reader) (int64, error)
}

var (
	_ IAuthService         = (*AuthService)(nil)
	_ IUserService         = (*UserService)(nil)
	_ IRecipeService       = (*RecipeService)(nil)
	_ IMembershipService   = (*MembershipService)(nil)
	_ IShoppingListService = (*ShoppingListService)(nil)
	_ ICatalogService      = (*CatalogService)(nil)
	_ ImageStore           = (*S3ImageStore)(nil)
	_ ImageStore           = (*LocalImageStore)(nil)
	_ TokenStore           = (*RedisTokenStore)(nil)
)
