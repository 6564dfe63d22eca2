package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-shop-backend/internal/apperrs"
	"github.com/ariefcatur/go-shop-backend/internal/inventory"
)

func doWriteError(t *testing.T, err error) (*httptest.ResponseRecorder, errorBody) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	writeError(rec, req, err)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestWriteErrorMapsTaxonomy(t *testing.T) {
	t.Run("validation -> 400", func(t *testing.T) {
		rec, body := doWriteError(t, apperrs.Invalid("qty", "must be >= 1"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, body.Error, "qty")
	})

	t.Run("not found -> 404", func(t *testing.T) {
		rec, _ := doWriteError(t, apperrs.ErrNotFound)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("stock -> 409 with detail", func(t *testing.T) {
		rec, body := doWriteError(t, &inventory.RejectedError{
			Index: 1, ProductID: "p1",
			Err: &apperrs.StockError{ProductID: "p1", Requested: 6, Available: 5},
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "p1", body.ProductID)
		assert.Equal(t, 6, body.Requested)
		assert.Equal(t, 5, body.Available)
	})

	t.Run("rejected missing product -> 404", func(t *testing.T) {
		rec, body := doWriteError(t, &inventory.RejectedError{Index: 0, ProductID: "ghost", Err: apperrs.ErrNotFound})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "ghost", body.ProductID)
	})

	t.Run("conflict -> 409", func(t *testing.T) {
		rec, _ := doWriteError(t, &apperrs.ConflictError{Msg: "review already exists"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("transition -> 409", func(t *testing.T) {
		rec, body := doWriteError(t, &apperrs.TransitionError{From: "cancelled", To: "shipped"})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, body.Error, "cancelled")
	})

	t.Run("upstream -> 502", func(t *testing.T) {
		rec, _ := doWriteError(t, &apperrs.UpstreamError{Op: "media upload", Err: errors.New("timeout")})
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("unknown -> opaque 500", func(t *testing.T) {
		rec, body := doWriteError(t, errors.New("pq: connection reset"))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "internal server error", body.Error)
		assert.NotContains(t, body.Error, "pq:")
	})
}
