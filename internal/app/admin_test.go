package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/shopledger/shopledger/jobs"
)

type stubTaskClient struct {
	lastLimit int
	calls     int
	err       error
}

func (s *stubTaskClient) EnqueueLowStockScan(ctx context.Context, payload jobs.LowStockScanPayload) (*asynq.TaskInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.calls++
	s.lastLimit = payload.Limit
	return &asynq.TaskInfo{ID: "task-1", Queue: jobs.QueueDefault}, nil
}

func adminTestRouter(tasks TaskClient) http.Handler {
	r := chi.NewRouter()
	mountAdminRoutes(r, slog.New(slog.NewTextHandler(io.Discard, nil)), tasks)
	return r
}

func TestAdminLowStockScanEnqueues(t *testing.T) {
	stub := &stubTaskClient{}
	router := adminTestRouter(stub)

	req := httptest.NewRequest(http.MethodPost, "/admin/tasks/low-stock-scan",
		bytes.NewBufferString(`{"limit":100}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, 1, stub.calls)
	require.Equal(t, 100, stub.lastLimit)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "task-1", body["task_id"])
	require.Equal(t, jobs.QueueDefault, body["queue"])
}

func TestAdminLowStockScanAcceptsEmptyBody(t *testing.T) {
	stub := &stubTaskClient{}
	router := adminTestRouter(stub)

	req := httptest.NewRequest(http.MethodPost, "/admin/tasks/low-stock-scan", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, 0, stub.lastLimit)
}

func TestAdminLowStockScanRejectsNegativeLimit(t *testing.T) {
	stub := &stubTaskClient{}
	router := adminTestRouter(stub)

	req := httptest.NewRequest(http.MethodPost, "/admin/tasks/low-stock-scan",
		bytes.NewBufferString(`{"limit":-5}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, stub.calls)
}
