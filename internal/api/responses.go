package api

import (
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

func toUserResponse(user models.User, isSubscribed bool) types.UserResponse {
	return types.UserResponse{
		Email:        user.Email,
		ID:           user.ID,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		IsSubscribed: isSubscribed,
	}
}

func toTagResponse(tag models.Tag) types.TagResponse {
	return types.TagResponse{ID: tag.ID, Name: tag.Name, Color: tag.Color, Slug: tag.Slug}
}

func toIngredientResponse(ingredient models.Ingredient) types.IngredientResponse {
	return types.IngredientResponse{
		ID:              ingredient.ID,
		Name:            ingredient.Name,
		MeasurementUnit: ingredient.MeasurementUnit,
	}
}

// toRecipeResponse shapes the full recipe for a viewer. state may be nil for
// anonymous viewers.
func toRecipeResponse(recipe models.Recipe, state *service.ViewerState) types.RecipeResponse {
	if state == nil {
		state = &service.ViewerState{}
	}

	tags := make([]types.TagResponse, len(recipe.Tags))
	for i, tag := range recipe.Tags {
		tags[i] = toTagResponse(tag)
	}
	ingredients := make([]types.RecipeIngredientResponse, len(recipe.Ingredients))
	for i, ri := range recipe.Ingredients {
		ingredients[i] = types.RecipeIngredientResponse{
			ID:              ri.IngredientID,
			Name:            ri.Ingredient.Name,
			MeasurementUnit: ri.Ingredient.MeasurementUnit,
			Amount:          ri.Amount,
		}
	}

	return types.RecipeResponse{
		ID:               recipe.ID,
		Tags:             tags,
		Author:           toUserResponse(recipe.Author, state.Following[recipe.AuthorID]),
		Ingredients:      ingredients,
		IsFavorited:      state.Favorited[recipe.ID],
		IsInShoppingCart: state.InShoppingCart[recipe.ID],
		Name:             recipe.Name,
		Image:            recipe.Image,
		Text:             recipe.Text,
		CookingTime:      recipe.CookingTime,
		PubDate:          recipe.PubDate,
	}
}

func toRecipeMinified(recipe models.Recipe) types.RecipeSummary {
	return types.RecipeSummary{
		ID:          recipe.ID,
		Name:        recipe.Name,
		Image:       recipe.Image,
		CookingTime: recipe.CookingTime,
	}
}

// toSubscriptionResponse shapes a followed author. The viewer follows them by
// definition, so is_subscribed is always true.
func toSubscriptionResponse(view service.SubscriptionView) types.SubscriptionResponse {
	recipes := make([]types.RecipeSummary, len(view.Recipes))
	for i, r := range view.Recipes {
		recipes[i] = toRecipeMinified(r)
	}
	return types.SubscriptionResponse{
		UserResponse: toUserResponse(view.Author, true),
		Recipes:      recipes,
		RecipesCount: view.RecipesCount,
	}
}
