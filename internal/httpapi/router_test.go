package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelapi/docs"
	"hotelapi/internal/auth"
	"hotelapi/pkg/blob"
	"hotelapi/pkg/cache"
	"hotelapi/pkg/config"
	"hotelapi/pkg/metrics"
)

func testRouter() http.Handler {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := config.Config{
		Hotel: config.HotelConfig{Timezone: "UTC", DefaultCurrency: "PEN", APIVersion: "1.2.3"},
	}
	return NewRouter(Dependencies{
		Cfg:     cfg,
		Auth:    &auth.Service{Cache: cache.NewMemory()},
		Blobs:   blob.NewMemory(),
		Metrics: metrics.New(),
		Now:     func() time.Time { return fixed },
	})
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/hotel/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.2.3", body["version"])
	assert.Equal(t, "2025-03-01T12:00:00Z", body["timestamp"])
}

func TestPublicRoutes(t *testing.T) {
	router := testRouter()
	for _, path := range []string{
		"/healthz",
		"/metrics",
		"/api/v1/hotel/states",
		"/api/v1/hotel/states/validate-transition?type=booking&from_state=confirmed&to_state=checkin",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestProtectedRoutesNeedCredentials(t *testing.T) {
	router := testRouter()
	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/hotel/reservas", nil),
		httptest.NewRequest(http.MethodGet, "/api/hotel/gantt/data", nil),
		httptest.NewRequest(http.MethodGet, "/api/hotel/hoteles", nil),
		httptest.NewRequest(http.MethodGet, "/api/v1/hotel/states/booking", nil),
		httptest.NewRequest(http.MethodGet, "/api/v1/contacts", nil),
		httptest.NewRequest(http.MethodGet, "/api/v1/responsables/stats", nil),
		httptest.NewRequest(http.MethodPost, "/api/auth/generate_key", nil),
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, req.URL.Path)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"), req.URL.Path)
	}
}

func TestSwaggerCoversRoutes(t *testing.T) {
	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(docs.SwaggerInfo.ReadDoc()), &doc))

	routes, ok := testRouter().(chi.Routes)
	require.True(t, ok)

	seen := 0
	err := chi.Walk(routes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if !strings.HasPrefix(route, "/api/") {
			return nil
		}
		route = strings.TrimSuffix(route, "/")
		ops, ok := doc.Paths[route]
		if assert.True(t, ok, "undocumented path %s", route) {
			assert.Contains(t, ops, strings.ToLower(method), "undocumented %s %s", method, route)
		}
		seen++
		return nil
	})
	require.NoError(t, err)
	assert.Greater(t, seen, 70)
}
