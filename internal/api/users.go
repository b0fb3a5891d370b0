package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

type UserHandler struct {
	auth     service.IAuthService
	users    service.IUserService
	pageSize int
}

func NewUserHandler(auth service.IAuthService, users service.IUserService, pageSize int) *UserHandler {
	return &UserHandler{auth: auth, users: users, pageSize: pageSize}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	required := middleware.AuthMiddleware(h.auth)
	optional := middleware.OptionalAuth(h.auth)

	users := router.Group("/users")
	{
		users.POST("", h.Register)
		users.GET("", optional, h.ListUsers)
		users.GET("/me", required, h.Me)
		users.POST("/set_password", required, h.SetPassword)
		users.GET("/subscriptions", required, h.Subscriptions)
		users.GET("/:id", optional, h.GetUser)
		users.POST("/:id/subscribe", required, h.Subscribe)
		users.DELETE("/:id/subscribe", required, h.Unsubscribe)
	}
}

func (h *UserHandler) Register(c *gin.Context) {
	var req types.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	user, err := h.auth.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(*user, false))
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	page, err := pagination(c, h.pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	views, total, err := h.users.ListUsers(c.Request.Context(), middleware.ViewerFromContext(c), page)
	if err != nil {
		respondError(c, err)
		return
	}
	results := make([]types.UserResponse, len(views))
	for i, v := range views {
		results[i] = toUserResponse(v.User, v.IsSubscribed)
	}
	respondPage(c, page, total, results)
}

func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	user, err := h.auth.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(*user, false))
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := pathUUID(c, "id", "User not found.")
	if !ok {
		return
	}
	view, err := h.users.GetUser(c.Request.Context(), middleware.ViewerFromContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(view.User, view.IsSubscribed))
}

func (h *UserHandler) SetPassword(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req types.SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	if err := h.auth.SetPassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Subscriptions(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	page, err := pagination(c, h.pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	views, total, err := h.users.Subscriptions(c.Request.Context(), userID, page, recipesLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	results := make([]types.SubscriptionResponse, len(views))
	for i, v := range views {
		results[i] = toSubscriptionResponse(v)
	}
	respondPage(c, page, total, results)
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	authorID, ok := pathUUID(c, "id", "User not found.")
	if !ok {
		return
	}

	view, err := h.users.Subscribe(c.Request.Context(), userID, authorID, recipesLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSubscriptionResponse(*view))
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	authorID, ok := pathUUID(c, "id", "User not found.")
	if !ok {
		return
	}

	if err := h.users.Unsubscribe(c.Request.Context(), userID, authorID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// recipesLimit reads ?recipes_limit. A missing or malformed value is -1,
// which lets the service apply its default.
func recipesLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("recipes_limit"))
	if err != nil || n < 0 {
		return -1
	}
	return n
}
