package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

const recipeNotFound = "Recipe not found."

type RecipeHandler struct {
	auth         service.IAuthService
	recipes      service.IRecipeService
	membership   service.IMembershipService
	shoppingList service.IShoppingListService
	pageSize     int
	limiters     Limiters
}

func NewRecipeHandler(
	auth service.IAuthService,
	recipes service.IRecipeService,
	membership service.IMembershipService,
	shoppingList service.IShoppingListService,
	pageSize int,
	limiters Limiters,
) *RecipeHandler {
	return &RecipeHandler{
		auth:         auth,
		recipes:      recipes,
		membership:   membership,
		shoppingList: shoppingList,
		pageSize:     pageSize,
		limiters:     limiters,
	}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	required := middleware.AuthMiddleware(h.auth)
	optional := middleware.OptionalAuth(h.auth)

	recipes := router.Group("/recipes")
	{
		recipes.GET("", optional, h.ListRecipes)
		recipes.POST("", required, h.limiters.RecipeCreation.RateLimitMiddleware(), h.CreateRecipe)
		recipes.GET("/download_shopping_cart", required, h.DownloadShoppingCart)
		recipes.GET("/:id", optional, h.GetRecipe)
		recipes.PATCH("/:id", required, h.limiters.RecipeModification.PerRecipeRateLimitMiddleware(), h.UpdateRecipe)
		recipes.DELETE("/:id", required, h.DeleteRecipe)
		recipes.POST("/:id/favorite", required, h.AddFavorite)
		recipes.DELETE("/:id/favorite", required, h.RemoveFavorite)
		recipes.POST("/:id/shopping_cart", required, h.AddToShoppingCart)
		recipes.DELETE("/:id/shopping_cart", required, h.RemoveFromShoppingCart)
	}
}

func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	page, err := pagination(c, h.pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	filter := types.RecipeFilter{
		Tags:           c.QueryArray("tags"),
		Favorited:      queryFlag(c, "is_favorited"),
		InShoppingCart: queryFlag(c, "is_in_shopping_cart"),
	}
	if raw := c.Query("author"); raw != "" {
		authorID, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, &service.Error{Kind: service.ErrValidation, Message: "author: Enter a valid UUID."})
			return
		}
		filter.AuthorID = &authorID
	}

	viewer := middleware.ViewerFromContext(c)
	recipes, total, err := h.recipes.ListRecipes(c.Request.Context(), viewer, filter, page)
	if err != nil {
		respondError(c, err)
		return
	}
	results, err := h.recipeResponses(c.Request.Context(), viewer, recipes)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, page, total, results)
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, ok := pathUUID(c, "id", recipeNotFound)
	if !ok {
		return
	}
	recipe, err := h.recipes.GetRecipe(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondRecipe(c, http.StatusOK, middleware.ViewerFromContext(c), recipe)
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req types.CreateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	recipe, err := h.recipes.CreateRecipe(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondRecipe(c, http.StatusCreated, &userID, recipe)
}

func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", recipeNotFound)
	if !ok {
		return
	}
	var req types.UpdateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	recipe, err := h.recipes.UpdateRecipe(c.Request.Context(), userID, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondRecipe(c, http.StatusOK, &userID, recipe)
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", recipeNotFound)
	if !ok {
		return
	}
	if err := h.recipes.DeleteRecipe(c.Request.Context(), userID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) AddFavorite(c *gin.Context) {
	h.addMembership(c, h.membership.AddFavorite)
}

func (h *RecipeHandler) RemoveFavorite(c *gin.Context) {
	h.removeMembership(c, h.membership.RemoveFavorite)
}

func (h *RecipeHandler) AddToShoppingCart(c *gin.Context) {
	h.addMembership(c, h.membership.AddToShoppingCart)
}

func (h *RecipeHandler) RemoveFromShoppingCart(c *gin.Context) {
	h.removeMembership(c, h.membership.RemoveFromShoppingCart)
}

func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	text, err := h.shoppingList.Render(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="shopping_list.txt"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

func (h *RecipeHandler) addMembership(c *gin.Context, add func(ctx context.Context, userID, recipeID uuid.UUID) (*models.Recipe, error)) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	recipeID, ok := pathUUID(c, "id", recipeNotFound)
	if !ok {
		return
	}
	recipe, err := add(c.Request.Context(), userID, recipeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRecipeMinified(*recipe))
}

func (h *RecipeHandler) removeMembership(c *gin.Context, remove func(ctx context.Context, userID, recipeID uuid.UUID) error) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	recipeID, ok := pathUUID(c, "id", recipeNotFound)
	if !ok {
		return
	}
	if err := remove(c.Request.Context(), userID, recipeID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) respondRecipe(c *gin.Context, status int, viewer *uuid.UUID, recipe *models.Recipe) {
	results, err := h.recipeResponses(c.Request.Context(), viewer, []models.Recipe{*recipe})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, results[0])
}

func (h *RecipeHandler) recipeResponses(ctx context.Context, viewer *uuid.UUID, recipes []models.Recipe) ([]types.RecipeResponse, error) {
	state, err := h.recipes.ViewerState(ctx, viewer, recipes)
	if err != nil {
		return nil, err
	}
	results := make([]types.RecipeResponse, len(recipes))
	for i, r := range recipes {
		results[i] = toRecipeResponse(r, state)
	}
	return results, nil
}

// queryFlag reports whether a boolean filter is switched on ("1" or "true").
func queryFlag(c *gin.Context, name string) bool {
	switch c.Query(name) {
	case "1", "true", "True":
		return true
	}
	return false
}
