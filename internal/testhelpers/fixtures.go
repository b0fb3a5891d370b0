package testhelpers

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/models"
)

// TestPassword is the password of every user created by CreateUser.
const TestPassword = "testpassword123"

// CreateUser inserts a user named username with TestPassword.
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := &models.User{
		Email:        username + "@example.com",
		Username:     username,
		FirstName:    "Test",
		LastName:     username,
		PasswordHash: string(hash),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

// CreateTag inserts a tag; the color is derived from the slug to keep it unique.
func CreateTag(t *testing.T, db *gorm.DB, name, slug string) *models.Tag {
	t.Helper()
	var sum int
	for _, r := range slug {
		sum = sum*31 + int(r)
	}
	tag := &models.Tag{Name: name, Slug: slug, Color: fmt.Sprintf("#%06X", sum&0xFFFFFF)}
	if err := db.Create(tag).Error; err != nil {
		t.Fatalf("failed to create tag: %v", err)
	}
	return tag
}

func CreateIngredient(t *testing.T, db *gorm.DB, name, unit string) *models.Ingredient {
	t.Helper()
	ingredient := &models.Ingredient{Name: name, MeasurementUnit: unit}
	if err := db.Create(ingredient).Error; err != nil {
		t.Fatalf("failed to create ingredient: %v", err)
	}
	return ingredient
}

// RecipeOptions describe a recipe inserted by CreateRecipe.
type RecipeOptions struct {
	Name        string
	Ingredients map[uint]int // ingredient id -> amount
	Tags        []models.Tag
	PubDate     time.Time
}

// CreateRecipe inserts a recipe for author directly, bypassing the service layer.
func CreateRecipe(t *testing.T, db *gorm.DB, author *models.User, opts RecipeOptions) *models.Recipe {
	t.Helper()
	if opts.Name == "" {
		opts.Name = "Recipe " + uuid.New().String()[:8]
	}
	recipe := &models.Recipe{
		AuthorID:    author.ID,
		Name:        opts.Name,
		Image:       "/media/recipes/test.png",
		Text:        "Mix and serve.",
		CookingTime: 10,
		PubDate:     opts.PubDate,
	}
	if err := db.Omit(clause.Associations).Create(recipe).Error; err != nil {
		t.Fatalf("failed to create recipe: %v", err)
	}
	for id, amount := range opts.Ingredients {
		row := &models.RecipeIngredient{RecipeID: recipe.ID, IngredientID: id, Amount: amount}
		if err := db.Omit(clause.Associations).Create(row).Error; err != nil {
			t.Fatalf("failed to create recipe ingredient: %v", err)
		}
	}
	if len(opts.Tags) > 0 {
		if err := db.Model(recipe).Association("Tags").Append(opts.Tags); err != nil {
			t.Fatalf("failed to tag recipe: %v", err)
		}
	}
	return recipe
}

// AddToCart puts recipe in user's shopping cart.
func AddToCart(t *testing.T, db *gorm.DB, user *models.User, recipe *models.Recipe) {
	t.Helper()
	item := &models.ShoppingCartItem{UserID: user.ID, RecipeID: recipe.ID}
	if err := db.Omit(clause.Associations).Create(item).Error; err != nil {
		t.Fatalf("failed to add to cart: %v", err)
	}
}

// AddFavorite puts recipe in user's favorites.
func AddFavorite(t *testing.T, db *gorm.DB, user *models.User, recipe *models.Recipe) {
	t.Helper()
	fav := &models.Favorite{UserID: user.ID, RecipeID: recipe.ID}
	if err := db.Omit(clause.Associations).Create(fav).Error; err != nil {
		t.Fatalf("failed to add favorite: %v", err)
	}
}

// PNGDataURI returns a tiny valid PNG encoded as a data URI.
func PNGDataURI(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}
