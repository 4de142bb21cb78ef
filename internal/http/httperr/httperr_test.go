package httperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motortrade/internal/domain"
)

func TestStatus(t *testing.T) {
	cases := map[error]int{
		domain.ErrAuctionNotActive:                           http.StatusConflict,
		domain.ErrNotSeller:                                  http.StatusForbidden,
		domain.NotFoundf("auction %s", "x"):                  http.StatusNotFound,
		domain.ErrInvalidAmount:                              http.StatusBadRequest,
		fmt.Errorf("wrapped: %w", domain.ErrAlreadyAccepted): http.StatusConflict,
		errors.New("connection refused"):                     http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, Status(err), err.Error())
	}
}

func TestWriteHidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

	Write(c, errors.New("pq: password authentication failed"))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal error", body.Error)
}
