package notificationhandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motortrade/internal/domain"
	"motortrade/internal/http/middleware"
	"motortrade/internal/services/notification"
	"motortrade/internal/store/memstore"
)

type tokens struct{}

func (tokens) Verify(raw string) (string, error) {
	if raw == "" {
		return "", errors.New("missing")
	}
	return raw, nil
}

func call(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListAndMarkRead(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := notification.NewRecorder(memstore.New(), nil, nil)
	n, err := rec.Record(context.Background(), "d1", domain.NotificationNewBid, "New bid of £7,200", "a1")
	require.NoError(t, err)

	r := gin.New()
	New(rec).Register(r, middleware.AuthRequired(tokens{}))

	require.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/notifications", "").Code)

	w := call(r, http.MethodGet, "/notifications", "d1")
	require.Equal(t, http.StatusOK, w.Code)
	var list []domain.Notification
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.False(t, list[0].Read)

	require.Equal(t, http.StatusNotFound, call(r, http.MethodPatch, "/notifications/"+n.ID+"/read", "d2").Code)

	w = call(r, http.MethodPatch, "/notifications/"+n.ID+"/read", "d1")
	require.Equal(t, http.StatusOK, w.Code)
	var got domain.Notification
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.Read)
}
