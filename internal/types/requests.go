package types

import "github.com/google/uuid"

// RegisterRequest represents the request body for creating a user
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=254"`
	Username  string `json:"username" binding:"required,max=150,username"`
	FirstName string `json:"first_name" binding:"required,max=150"`
	LastName  string `json:"last_name" binding:"required,max=150"`
	Password  string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest represents the request body for obtaining a token
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SetPasswordRequest represents the request body for changing the current user's password
type SetPasswordRequest struct {
	NewPassword     string `json:"new_password" binding:"required,min=8,max=128"`
	CurrentPassword string `json:"current_password" binding:"required"`
}

// IngredientAmount is one ingredient line of a recipe write request
type IngredientAmount struct {
	ID     uint `json:"id" binding:"required"`
	Amount int  `json:"amount" binding:"required,min=1"`
}

// CreateRecipeRequest represents the request body for creating a recipe.
// Image is a base64 data URI.
type CreateRecipeRequest struct {
	Name        string             `json:"name" binding:"required,max=200"`
	Image       string             `json:"image" binding:"required"`
	Text        string             `json:"text" binding:"required"`
	CookingTime int                `json:"cooking_time" binding:"required,min=1"`
	Ingredients []IngredientAmount `json:"ingredients" binding:"required,min=1,dive"`
	Tags        []uint             `json:"tags" binding:"required,min=1,dive,min=1"`
}

// UpdateRecipeRequest represents the request body for a partial recipe update.
// A nil field is left untouched; supplied ingredients and tags replace the old sets.
type UpdateRecipeRequest struct {
	Name        *string            `json:"name" binding:"omitempty,min=1,max=200"`
	Image       *string            `json:"image" binding:"omitempty,min=1"`
	Text        *string            `json:"text" binding:"omitempty,min=1"`
	CookingTime *int               `json:"cooking_time" binding:"omitempty,min=1"`
	Ingredients []IngredientAmount `json:"ingredients" binding:"omitempty,min=1,dive"`
	Tags        []uint             `json:"tags" binding:"omitempty,min=1,dive,min=1"`
}

// RecipeFilter narrows a recipe listing. Favorited and InShoppingCart only
// apply when the viewer is authenticated.
type RecipeFilter struct {
	AuthorID       *uuid.UUID
	Tags           []string
	Favorited      bool
	InShoppingCart bool
}

// Pagination selects one page of a listing.
type Pagination struct {
	Page  int
	Limit int
}

// Offset returns the number of rows preceding the page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}
