package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

const testSecret = "api-test-secret-that-is-long-enough"

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	auth   *service.AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testhelpers.SetupTestDatabase(t)
	auth := service.NewAuthService(db, testSecret, time.Hour, nil)
	catalog, err := service.NewCatalogService(db)
	require.NoError(t, err)

	router := gin.New()
	router.Use(middleware.Recovery())
	RegisterRoutes(router, Services{
		Auth:         auth,
		Users:        service.NewUserService(db),
		Recipes:      service.NewRecipeService(db, service.NewLocalImageStore(t.TempDir(), "/media")),
		Membership:   service.NewMembershipService(db),
		ShoppingList: service.NewShoppingListService(db),
		Catalog:      catalog,
	}, Limiters{}, 6)

	return &testEnv{router: router, db: db, auth: auth}
}

func (e *testEnv) token(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := e.auth.GenerateToken(user)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), into), w.Body.String())
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body types.ErrorResponse
	decode(t, w, &body)
	return body.Errors
}

func TestRegisterLoginLogout(t *testing.T) {
	env := newTestEnv(t)

	register := map[string]string{
		"email":      "vasya@example.com",
		"username":   "vasya.pupkin",
		"first_name": "Vasya",
		"last_name":  "Pupkin",
		"password":   "supersecret",
	}
	w := env.do(t, http.MethodPost, "/api/users", "", register)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created types.UserResponse
	decode(t, w, &created)
	assert.Equal(t, "vasya.pupkin", created.Username)
	assert.NotContains(t, w.Body.String(), "password")

	w = env.do(t, http.MethodPost, "/api/users", "", register)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, errorMessage(t, w))

	bad := map[string]string{"email": "x@example.com", "username": "no spaces!", "first_name": "a", "last_name": "b", "password": "supersecret"}
	w = env.do(t, http.MethodPost, "/api/users", "", bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorMessage(t, w), "username")

	w = env.do(t, http.MethodPost, "/api/auth/token/login", "", map[string]string{"email": "vasya@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/auth/token/login", "", map[string]string{"email": "vasya@example.com", "password": "supersecret"})
	require.Equal(t, http.StatusOK, w.Code)
	var token types.TokenResponse
	decode(t, w, &token)
	require.NotEmpty(t, token.AuthToken)

	w = env.do(t, http.MethodGet, "/api/users/me", token.AuthToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me types.UserResponse
	decode(t, w, &me)
	assert.Equal(t, created.ID, me.ID)

	w = env.do(t, http.MethodPost, "/api/users/set_password", token.AuthToken, map[string]string{
		"current_password": "supersecret",
		"new_password":     "evenmoresecret",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodPost, "/api/auth/token/logout", token.AuthToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRecipeLifecycle(t *testing.T) {
	env := newTestEnv(t)
	author := testhelpers.CreateUser(t, env.db, "author")
	reader := testhelpers.CreateUser(t, env.db, "reader")
	breakfast := testhelpers.CreateTag(t, env.db, "Breakfast", "breakfast")
	eggs := testhelpers.CreateIngredient(t, env.db, "eggs", "pcs")
	authorToken := env.token(t, author)
	readerToken := env.token(t, reader)

	w := env.do(t, http.MethodPost, "/api/recipes", authorToken, map[string]interface{}{
		"name":         "Omelette",
		"image":        testhelpers.PNGDataURI(t),
		"text":         "Whisk and fry.",
		"cooking_time": 10,
		"ingredients":  []map[string]interface{}{{"id": eggs.ID, "amount": 3}},
		"tags":         []uint{breakfast.ID},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created types.RecipeResponse
	decode(t, w, &created)
	assert.Equal(t, "Omelette", created.Name)
	assert.Equal(t, author.ID, created.Author.ID)
	require.Len(t, created.Ingredients, 1)
	assert.Equal(t, types.RecipeIngredientResponse{ID: eggs.ID, Name: "eggs", MeasurementUnit: "pcs", Amount: 3}, created.Ingredients[0])
	require.Len(t, created.Tags, 1)
	assert.Equal(t, "breakfast", created.Tags[0].Slug)
	assert.Contains(t, created.Image, "/media/recipes/")

	recipePath := "/api/recipes/" + created.ID.String()

	w = env.do(t, http.MethodGet, recipePath, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var anonymous types.RecipeResponse
	decode(t, w, &anonymous)
	assert.False(t, anonymous.IsFavorited)
	assert.False(t, anonymous.Author.IsSubscribed)

	w = env.do(t, http.MethodPost, recipePath+"/favorite", readerToken, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var minified types.RecipeSummary
	decode(t, w, &minified)
	assert.Equal(t, types.RecipeSummary{ID: created.ID, Name: "Omelette", Image: created.Image, CookingTime: 10}, minified)

	w = env.do(t, http.MethodPost, recipePath+"/favorite", readerToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "The recipe is already in your favorites", errorMessage(t, w))

	w = env.do(t, http.MethodGet, recipePath, readerToken, nil)
	var seen types.RecipeResponse
	decode(t, w, &seen)
	assert.True(t, seen.IsFavorited)
	assert.False(t, seen.IsInShoppingCart)

	w = env.do(t, http.MethodPatch, recipePath, readerToken, map[string]interface{}{"name": "Stolen"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPatch, recipePath, authorToken, map[string]interface{}{"cooking_time": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPatch, recipePath, authorToken, map[string]interface{}{
		"name":        "Fluffy omelette",
		"ingredients": []map[string]interface{}{{"id": eggs.ID, "amount": 4}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated types.RecipeResponse
	decode(t, w, &updated)
	assert.Equal(t, "Fluffy omelette", updated.Name)
	assert.Equal(t, 4, updated.Ingredients[0].Amount)
	assert.Equal(t, created.Image, updated.Image)

	w = env.do(t, http.MethodDelete, recipePath+"/favorite", readerToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodDelete, recipePath+"/favorite", readerToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodDelete, recipePath, readerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = env.do(t, http.MethodDelete, recipePath, authorToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodGet, recipePath, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateRecipeValidation(t *testing.T) {
	env := newTestEnv(t)
	author := testhelpers.CreateUser(t, env.db, "author")
	tag := testhelpers.CreateTag(t, env.db, "Lunch", "lunch")
	salt := testhelpers.CreateIngredient(t, env.db, "salt", "g")
	token := env.token(t, author)

	valid := func() map[string]interface{} {
		return map[string]interface{}{
			"name":         "Soup",
			"image":        testhelpers.PNGDataURI(t),
			"text":         "Boil.",
			"cooking_time": 5,
			"ingredients":  []map[string]interface{}{{"id": salt.ID, "amount": 1}},
			"tags":         []uint{tag.ID},
		}
	}

	tests := []struct {
		name   string
		mutate func(body map[string]interface{})
	}{
		{"no ingredients", func(b map[string]interface{}) { b["ingredients"] = []map[string]interface{}{} }},
		{"zero amount", func(b map[string]interface{}) { b["ingredients"] = []map[string]interface{}{{"id": salt.ID, "amount": 0}} }},
		{"unknown ingredient", func(b map[string]interface{}) { b["ingredients"] = []map[string]interface{}{{"id": 999, "amount": 1}} }},
		{"duplicate ingredient", func(b map[string]interface{}) {
			b["ingredients"] = []map[string]interface{}{{"id": salt.ID, "amount": 1}, {"id": salt.ID, "amount": 2}}
		}},
		{"no tags", func(b map[string]interface{}) { b["tags"] = []uint{} }},
		{"unknown tag", func(b map[string]interface{}) { b["tags"] = []uint{999} }},
		{"zero cooking time", func(b map[string]interface{}) { b["cooking_time"] = 0 }},
		{"bad image", func(b map[string]interface{}) { b["image"] = "not-an-image" }},
		{"missing name", func(b map[string]interface{}) { delete(b, "name") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := valid()
			tt.mutate(body)
			w := env.do(t, http.MethodPost, "/api/recipes", token, body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.NotEmpty(t, errorMessage(t, w))
		})
	}

	var count int64
	require.NoError(t, env.db.Model(&models.Recipe{}).Count(&count).Error)
	assert.Zero(t, count)

	w := env.do(t, http.MethodPost, "/api/recipes", "", valid())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListRecipesPaginationAndFilters(t *testing.T) {
	env := newTestEnv(t)
	author := testhelpers.CreateUser(t, env.db, "author")
	other := testhelpers.CreateUser(t, env.db, "other")
	lunch := testhelpers.CreateTag(t, env.db, "Lunch", "lunch")
	dinner := testhelpers.CreateTag(t, env.db, "Dinner", "dinner")

	base := time.Now().Add(-time.Hour)
	var recipes []*models.Recipe
	for i := 0; i < 8; i++ {
		opts := testhelpers.RecipeOptions{PubDate: base.Add(time.Duration(i) * time.Minute)}
		switch i % 3 {
		case 0:
			opts.Tags = []models.Tag{*lunch}
		case 1:
			opts.Tags = []models.Tag{*lunch, *dinner}
		}
		owner := author
		if i == 7 {
			owner = other
		}
		recipes = append(recipes, testhelpers.CreateRecipe(t, env.db, owner, opts))
	}
	testhelpers.AddFavorite(t, env.db, other, recipes[0])

	var page struct {
		Count    int64                  `json:"count"`
		Next     *string                `json:"next"`
		Previous *string                `json:"previous"`
		Results  []types.RecipeResponse `json:"results"`
	}

	w := env.do(t, http.MethodGet, "/api/recipes?limit=3&page=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &page)
	assert.Equal(t, int64(8), page.Count)
	require.Len(t, page.Results, 3)
	assert.Equal(t, recipes[4].ID, page.Results[0].ID)
	require.NotNil(t, page.Next)
	assert.Contains(t, *page.Next, "page=3")
	require.NotNil(t, page.Previous)
	assert.NotContains(t, *page.Previous, "page=")

	w = env.do(t, http.MethodGet, "/api/recipes", "", nil)
	decode(t, w, &page)
	assert.Len(t, page.Results, 6)
	assert.Nil(t, page.Previous)

	w = env.do(t, http.MethodGet, "/api/recipes?page=99", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodGet, "/api/recipes?page=abc", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/recipes?tags=lunch&tags=dinner&limit=100", "", nil)
	decode(t, w, &page)
	assert.Equal(t, int64(6), page.Count)

	w = env.do(t, http.MethodGet, "/api/recipes?author="+other.ID.String(), "", nil)
	decode(t, w, &page)
	assert.Equal(t, int64(1), page.Count)

	w = env.do(t, http.MethodGet, "/api/recipes?author=nope", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/recipes?is_favorited=1", env.token(t, other), nil)
	decode(t, w, &page)
	require.Equal(t, int64(1), page.Count)
	assert.True(t, page.Results[0].IsFavorited)

	w = env.do(t, http.MethodGet, "/api/recipes?is_favorited=1", "", nil)
	decode(t, w, &page)
	assert.Equal(t, int64(8), page.Count)
}

func TestShoppingCartDownload(t *testing.T) {
	env := newTestEnv(t)
	author := testhelpers.CreateUser(t, env.db, "author")
	buyer := testhelpers.CreateUser(t, env.db, "buyer")
	salt := testhelpers.CreateIngredient(t, env.db, "salt", "g")
	a := testhelpers.CreateRecipe(t, env.db, author, testhelpers.RecipeOptions{Ingredients: map[uint]int{salt.ID: 10}})
	b := testhelpers.CreateRecipe(t, env.db, author, testhelpers.RecipeOptions{Ingredients: map[uint]int{salt.ID: 5}})
	token := env.token(t, buyer)

	for _, r := range []*models.Recipe{a, b} {
		w := env.do(t, http.MethodPost, "/api/recipes/"+r.ID.String()+"/shopping_cart", token, nil)
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := env.do(t, http.MethodPost, "/api/recipes/"+a.ID.String()+"/shopping_cart", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/recipes/download_shopping_cart", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="shopping_list.txt"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Your shopping list\n\n1. salt: 15 g", w.Body.String())

	w = env.do(t, http.MethodGet, "/api/recipes/download_shopping_cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRemoveAbsentMembership(t *testing.T) {
	env := newTestEnv(t)
	author := testhelpers.CreateUser(t, env.db, "author")
	reader := testhelpers.CreateUser(t, env.db, "reader")
	recipe := testhelpers.CreateRecipe(t, env.db, author, testhelpers.RecipeOptions{})
	token := env.token(t, reader)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantError  string
	}{
		{"favorite", "/api/recipes/" + recipe.ID.String() + "/favorite", http.StatusBadRequest, "The recipe isn't yet in your favorites"},
		{"shopping cart", "/api/recipes/" + recipe.ID.String() + "/shopping_cart", http.StatusBadRequest, "The recipe isn't yet in your shopping cart"},
		{"subscription", "/api/users/" + author.ID.String() + "/subscribe", http.StatusBadRequest, "You are not subscribed yet"},
		{"unknown recipe", "/api/recipes/" + uuid.New().String() + "/favorite", http.StatusNotFound, "Recipe not found."},
		{"unknown author", "/api/users/" + uuid.New().String() + "/subscribe", http.StatusNotFound, "User not found."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodDelete, tt.path, token, nil)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantError, errorMessage(t, w))
		})
	}
}

func TestSubscriptionEndpoints(t *testing.T) {
	env := newTestEnv(t)
	reader := testhelpers.CreateUser(t, env.db, "reader")
	author := testhelpers.CreateUser(t, env.db, "author")
	for i := 0; i < 3; i++ {
		testhelpers.CreateRecipe(t, env.db, author, testhelpers.RecipeOptions{})
	}
	token := env.token(t, reader)

	w := env.do(t, http.MethodPost, "/api/users/"+reader.ID.String()+"/subscribe", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "You cannot subscribe to yourself", errorMessage(t, w))

	w = env.do(t, http.MethodPost, "/api/users/"+author.ID.String()+"/subscribe?recipes_limit=2", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sub types.SubscriptionResponse
	decode(t, w, &sub)
	assert.True(t, sub.IsSubscribed)
	assert.Equal(t, int64(3), sub.RecipesCount)
	assert.Len(t, sub.Recipes, 2)

	w = env.do(t, http.MethodPost, "/api/users/"+author.ID.String()+"/subscribe", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/users/subscriptions?recipes_limit=1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Count   int64                        `json:"count"`
		Results []types.SubscriptionResponse `json:"results"`
	}
	decode(t, w, &page)
	require.Equal(t, int64(1), page.Count)
	assert.Len(t, page.Results[0].Recipes, 1)

	w = env.do(t, http.MethodGet, "/api/users/subscriptions?recipes_limit=0", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &page)
	assert.Empty(t, page.Results[0].Recipes)
	assert.Contains(t, w.Body.String(), `"recipes":[]`)

	w = env.do(t, http.MethodGet, "/api/users/subscriptions?recipes_limit=abc", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &page)
	assert.Len(t, page.Results[0].Recipes, 3)

	w = env.do(t, http.MethodGet, "/api/users/"+author.ID.String(), token, nil)
	var profile types.UserResponse
	decode(t, w, &profile)
	assert.True(t, profile.IsSubscribed)

	w = env.do(t, http.MethodDelete, "/api/users/"+author.ID.String()+"/subscribe", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodDelete, "/api/users/"+author.ID.String()+"/subscribe", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "You are not subscribed yet", errorMessage(t, w))

	w = env.do(t, http.MethodGet, "/api/users/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	env := newTestEnv(t)
	tag := testhelpers.CreateTag(t, env.db, "Breakfast", "breakfast")
	testhelpers.CreateIngredient(t, env.db, "salt", "g")
	testhelpers.CreateIngredient(t, env.db, "sugar", "g")
	testhelpers.CreateIngredient(t, env.db, "pepper", "g")

	w := env.do(t, http.MethodGet, "/api/tags", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tags []types.TagResponse
	decode(t, w, &tags)
	require.Len(t, tags, 1)
	assert.Equal(t, tag.Color, tags[0].Color)

	w = env.do(t, http.MethodGet, "/api/tags/999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodGet, "/api/tags/abc", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/ingredients?name=S", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ingredients []types.IngredientResponse
	decode(t, w, &ingredients)
	require.Len(t, ingredients, 2)
	assert.Equal(t, "salt", ingredients[0].Name)
	assert.Equal(t, "sugar", ingredients[1].Name)
}
