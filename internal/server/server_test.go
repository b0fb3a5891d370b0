package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	db := testhelpers.SetupTestDatabase(t)
	mediaRoot := t.TempDir()
	cfg := &config.Config{
		ServerHost:   "localhost",
		ServerPort:   "0",
		CORSOrigins:  []string{"http://localhost:3000"},
		MediaStorage: "local",
		MediaRoot:    mediaRoot,
		MediaURL:     "/media",
		PageSize:     6,
	}
	catalog, err := service.NewCatalogService(db)
	require.NoError(t, err)

	srv := New(cfg, Dependencies{
		DB: db,
		Services: api.Services{
			Auth:         service.NewAuthService(db, "server-test-secret-long-enough-123", time.Hour, nil),
			Users:        service.NewUserService(db),
			Recipes:      service.NewRecipeService(db, service.NewLocalImageStore(mediaRoot, cfg.MediaURL)),
			Membership:   service.NewMembershipService(db),
			ShoppingList: service.NewShoppingListService(db),
			Catalog:      catalog,
		},
	})
	return srv, mediaRoot
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	srv.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/tags", nil))

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "foodgram_api_requests_total"))
}

func TestServesLocalMedia(t *testing.T) {
	srv, mediaRoot := newTestServer(t)
	require.NoError(t, os.MkdirAll(filepath.Join(mediaRoot, "recipes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(mediaRoot, "recipes", "a.txt"), []byte("hello"), 0o644))

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/media/recipes/a.txt", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", w.Body.String())
}
