package dealerhandler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motortrade/internal/domain"
	"motortrade/internal/http/middleware"
	"motortrade/internal/services/dealer"
	"motortrade/internal/store/memstore"
)

type tokens struct{}

func (tokens) Verify(raw string) (string, error) {
	if raw == "" {
		return "", errors.New("missing")
	}
	return raw, nil
}

func setup() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	New(dealer.NewDealerService(memstore.New(), time.Second, nil)).Register(r, middleware.AuthRequired(tokens{}))
	return r
}

func do(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestProfileRoutes(t *testing.T) {
	r := setup()

	require.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodGet, "/users/me", "", nil).Code)
	require.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/users/me", "d1", nil).Code)

	w := do(t, r, http.MethodPut, "/users/me", "d1", map[string]any{"name": "North Bikes", "latitude": 53.8, "longitude": -1.5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, "/users/me/favorites", "d1", map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, r, http.MethodPost, "/users/me/favorites", "d1", map[string]any{"dealerId": "d2"})
	require.Equal(t, http.StatusOK, w.Code)

	var u domain.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &u))
	assert.Equal(t, []string{"d2"}, u.Favorites)

	w = do(t, r, http.MethodDelete, "/users/me/favorites/d2", "d1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &u))
	assert.Empty(t, u.Favorites)
}

func TestMotorcycleRoutes(t *testing.T) {
	r := setup()

	w := do(t, r, http.MethodPost, "/motorcycles", "d1", map[string]any{"make": "Triumph"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/motorcycles", "d1", map[string]any{"make": "Triumph", "model": "Street Triple", "year": 2019, "mileage": 12000})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var m domain.Motorcycle
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))

	w = do(t, r, http.MethodGet, "/motorcycles", "d1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []domain.Motorcycle
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	require.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/motorcycles/"+m.ID, "d2", nil).Code)
	require.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/motorcycles/nope", "d2", nil).Code)

	w = do(t, r, http.MethodPatch, "/motorcycles/"+m.ID, "d2", map[string]any{"mileage": 1})
	require.Equal(t, http.StatusForbidden, w.Code)
	w = do(t, r, http.MethodPatch, "/motorcycles/"+m.ID, "d1", map[string]any{"mileage": 12500})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, 12500, m.Mileage)
}
