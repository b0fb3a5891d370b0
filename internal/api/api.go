package api

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// Services are the dependencies of the HTTP handlers.
type Services struct {
	Auth         service.IAuthService
	Users        service.IUserService
	Recipes      service.IRecipeService
	Membership   service.IMembershipService
	ShoppingList service.IShoppingListService
	Catalog      service.ICatalogService
}

// Limiters throttle recipe writes. Nil limiters disable throttling.
type Limiters struct {
	RecipeCreation     *middleware.RateLimiter
	RecipeModification *middleware.RateLimiter
}

var validationOnce sync.Once

// RegisterRoutes registers all API routes under /api
func RegisterRoutes(router *gin.Engine, services Services, limiters Limiters, pageSize int) {
	registerValidations()

	group := router.Group("/api")
	NewAuthHandler(services.Auth).RegisterRoutes(group)
	NewUserHandler(services.Auth, services.Users, pageSize).RegisterRoutes(group)
	NewRecipeHandler(services.Auth, services.Recipes, services.Membership, services.ShoppingList, pageSize, limiters).RegisterRoutes(group)
	NewCatalogHandler(services.Catalog).RegisterRoutes(group)
}

// registerValidations teaches gin's validator the custom tags and makes
// validation errors use JSON field names.
func registerValidations() {
	validationOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})
		if err := types.RegisterValidations(v); err != nil {
			logging.Error().Err(err).Msg("failed to register validations")
		}
	})
}

// pathUUID parses a UUID route parameter. Malformed IDs cannot match any
// row, so they are reported as missing.
func pathUUID(c *gin.Context, name, notFound string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, &service.Error{Kind: service.ErrNotFound, Message: notFound})
		return uuid.Nil, false
	}
	return id, true
}

// currentUser returns the authenticated user's ID; routes using it sit
// behind AuthMiddleware.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.UserIDFromContext(c)
	if !ok {
		respondError(c, &service.Error{Kind: service.ErrUnauthorized, Message: "Authentication credentials were not provided."})
	}
	return id, ok
}
