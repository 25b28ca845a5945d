package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/shopledger/shopledger/internal/platform/httpx"
	"github.com/shopledger/shopledger/internal/shared"
	"github.com/shopledger/shopledger/jobs"
)

// TaskClient submits background work to the queue on demand.
type TaskClient interface {
	EnqueueLowStockScan(ctx context.Context, payload jobs.LowStockScanPayload) (*asynq.TaskInfo, error)
}

// mountAdminRoutes exposes operational triggers backed by the task queue.
// The nightly schedule covers routine runs; this endpoint is for kicking a
// scan off right now, after a large delivery or a threshold change.
func mountAdminRoutes(r chi.Router, logger *slog.Logger, tasks TaskClient) {
	r.Post("/admin/tasks/low-stock-scan", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Limit int `json:"limit"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			httpx.RespondError(w, fmt.Errorf("%w: invalid body", shared.ErrValidation))
			return
		}
		if body.Limit < 0 {
			httpx.RespondError(w, fmt.Errorf("%w: limit cannot be negative", shared.ErrValidation))
			return
		}

		info, err := tasks.EnqueueLowStockScan(req.Context(), jobs.LowStockScanPayload{Limit: body.Limit})
		if err != nil {
			logger.Error("enqueue low stock scan", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusAccepted, map[string]string{"task_id": info.ID, "queue": info.Queue})
	})
}
