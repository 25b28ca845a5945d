package stock

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestHandler(repo *memoryStockRepo) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, NewService(repo))
	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r
}

func TestHandlerAdjustStock(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.records[1] = StockRecord{ProductID: 1, Quantity: 10, LowStockThreshold: 5}
	router := newTestHandler(repo)

	req := httptest.NewRequest(http.MethodPatch, "/inventory/1",
		strings.NewReader(`{"quantity_change": -4, "reason": "Damaged"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body StockRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 6, body.Quantity)
}

func TestHandlerAdjustRejectsBothModes(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.records[1] = StockRecord{ProductID: 1, Quantity: 10, LowStockThreshold: 5}
	router := newTestHandler(repo)

	req := httptest.NewRequest(http.MethodPut, "/inventory/1",
		strings.NewReader(`{"quantity_change": 1, "absolute_quantity": 5}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestHandlerAdjustUnknownProduct(t *testing.T) {
	router := newTestHandler(newMemoryStockRepo())

	req := httptest.NewRequest(http.MethodPatch, "/inventory/99",
		strings.NewReader(`{"quantity_change": 1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerListLowStock(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.records[1] = StockRecord{ProductID: 1, Quantity: 2, LowStockThreshold: 5}
	repo.records[2] = StockRecord{ProductID: 2, Quantity: 50, LowStockThreshold: 5}
	router := newTestHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/inventory?low_stock=true", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Items      []StockRecord `json:"items"`
		TotalItems int           `json:"total_items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.TotalItems)
	require.Len(t, body.Items, 1)
	require.Equal(t, int64(1), body.Items[0].ProductID)
}

func TestHandlerRejectsMalformedBody(t *testing.T) {
	repo := newMemoryStockRepo()
	repo.records[1] = StockRecord{ProductID: 1, Quantity: 10, LowStockThreshold: 5}
	router := newTestHandler(repo)

	req := httptest.NewRequest(http.MethodPatch, "/inventory/1",
		strings.NewReader(`{"quantity_change": `))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
