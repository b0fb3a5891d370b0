package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

// These tests run the store-level queries against PostgreSQL.

func TestShoppingListOnPostgres(t *testing.T) {
	db := testhelpers.SetupPostgresDatabase(t, "../../migrations")
	ctx := context.Background()

	author := testhelpers.CreateUser(t, db, "author")
	buyer := testhelpers.CreateUser(t, db, "buyer")
	salt := testhelpers.CreateIngredient(t, db, "salt", "g")
	flour := testhelpers.CreateIngredient(t, db, "Flour", "g")
	a := testhelpers.CreateRecipe(t, db, author, testhelpers.RecipeOptions{Ingredients: map[uint]int{salt.ID: 10, flour.ID: 200}})
	b := testhelpers.CreateRecipe(t, db, author, testhelpers.RecipeOptions{Ingredients: map[uint]int{salt.ID: 5}})

	membership := service.NewMembershipService(db)
	for _, r := range []*models.Recipe{a, b} {
		_, err := membership.AddToShoppingCart(ctx, buyer.ID, r.ID)
		require.NoError(t, err)
	}
	_, err := membership.AddToShoppingCart(ctx, buyer.ID, a.ID)
	assert.ErrorIs(t, err, service.ErrAlreadyExists)

	text, err := service.NewShoppingListService(db).Render(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Your shopping list\n\n1. Flour: 200 g\n2. salt: 15 g", text)
}

func TestRecipeFiltersOnPostgres(t *testing.T) {
	db := testhelpers.SetupPostgresDatabase(t, "../../migrations")
	ctx := context.Background()

	author := testhelpers.CreateUser(t, db, "author")
	lunch := testhelpers.CreateTag(t, db, "Lunch", "lunch")
	dinner := testhelpers.CreateTag(t, db, "Dinner", "dinner")
	testhelpers.CreateRecipe(t, db, author, testhelpers.RecipeOptions{Tags: []models.Tag{*lunch}})
	testhelpers.CreateRecipe(t, db, author, testhelpers.RecipeOptions{Tags: []models.Tag{*lunch, *dinner}})
	testhelpers.CreateRecipe(t, db, author, testhelpers.RecipeOptions{})

	recipes := service.NewRecipeService(db, service.NewLocalImageStore(t.TempDir(), "/media"))
	got, total, err := recipes.ListRecipes(ctx, nil,
		types.RecipeFilter{Tags: []string{"lunch", "dinner"}},
		types.Pagination{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, got, 2)
}

func TestIngredientPrefixOnPostgres(t *testing.T) {
	db := testhelpers.SetupPostgresDatabase(t, "../../migrations")
	catalog, err := service.NewCatalogService(db)
	require.NoError(t, err)
	ctx := context.Background()

	for _, name := range []string{"Salt", "salted butter", "sugar", "50%_cream"} {
		testhelpers.CreateIngredient(t, db, name, "g")
	}

	got, err := catalog.ListIngredients(ctx, "sal")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = catalog.ListIngredients(ctx, "50%_")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "50%_cream", got[0].Name)
}
