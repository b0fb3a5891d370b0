package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubValidator struct {
	token  string
	userID uuid.UUID
}

func (v stubValidator) ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error) {
	if token != v.token {
		return nil, errors.New("invalid token")
	}
	return &types.TokenClaims{UserID: v.userID, Username: "cook"}, nil
}

func decodeErrors(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body types.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Errors
}

func whoAmI(c *gin.Context) {
	viewer := ViewerFromContext(c)
	if viewer == nil {
		c.String(http.StatusOK, "anonymous")
		return
	}
	c.String(http.StatusOK, viewer.String())
}

func TestAuthMiddleware(t *testing.T) {
	validator := stubValidator{token: "good", userID: uuid.New()}
	router := gin.New()
	router.GET("/private", AuthMiddleware(validator), whoAmI)
	router.GET("/public", OptionalAuth(validator), whoAmI)

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"token scheme", "/private", "Token good", http.StatusOK, validator.userID.String()},
		{"bearer scheme", "/private", "Bearer good", http.StatusOK, validator.userID.String()},
		{"missing header", "/private", "", http.StatusUnauthorized, ""},
		{"unknown scheme", "/private", "Basic good", http.StatusUnauthorized, ""},
		{"bad token", "/private", "Token bad", http.StatusUnauthorized, ""},
		{"optional anonymous", "/public", "", http.StatusOK, "anonymous"},
		{"optional with token", "/public", "Token good", http.StatusOK, validator.userID.String()},
		{"optional bad token", "/public", "Token bad", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantBody, w.Body.String())
			} else {
				assert.NotEmpty(t, decodeErrors(t, w))
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	router := gin.New()
	router.Use(RequestLogger(), Recovery())
	router.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decodeErrors(t, w))
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestLogger(), Metrics())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestCORS(t *testing.T) {
	router := gin.New()
	router.Use(CORS([]string{"http://localhost:3000"}))
	router.GET("/api/tags", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/tags", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/tags", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimiterWithoutRedisPassesThrough(t *testing.T) {
	var nilLimiter *RateLimiter
	router := gin.New()
	router.POST("/a", nilLimiter.RateLimitMiddleware(), func(c *gin.Context) { c.Status(http.StatusCreated) })
	router.POST("/b", NewRecipeCreationRateLimiter(nil).RateLimitMiddleware(), func(c *gin.Context) { c.Status(http.StatusCreated) })

	for _, path := range []string{"/a", "/b"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, http.StatusCreated, w.Code)
	}
}

func TestRateLimiterWithRedis(t *testing.T) {
	client := testhelpers.SetupRedis(t)
	limiter := NewRateLimiter(client, RateLimitConfig{Window: time.Hour, Limit: 2, KeyPrefix: "test"})
	validator := stubValidator{token: "good", userID: uuid.New()}

	router := gin.New()
	router.PATCH("/recipes/:id", AuthMiddleware(validator), limiter.PerRecipeRateLimitMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	patch := func(id string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/recipes/"+id, nil)
		req.Header.Set("Authorization", "Token good")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, patch("one").Code)
	w := patch("one")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = patch("one")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, decodeErrors(t, w))

	assert.Equal(t, http.StatusOK, patch("two").Code)
}
