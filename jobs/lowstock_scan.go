package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/shopledger/shopledger/internal/shared"
	"github.com/shopledger/shopledger/internal/stock"
)

// LowStockScanJob walks the stock ledger and logs every product at or below
// its threshold, so operators notice depletion without polling the API.
type LowStockScanJob struct {
	Repo   stock.Repository
	Logger *slog.Logger
}

// NewLowStockScanJob initialises the low stock scan handler.
func NewLowStockScanJob(repo stock.Repository, logger *slog.Logger) *LowStockScanJob {
	return &LowStockScanJob{Repo: repo, Logger: logger}
}

// Handle executes the scan.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Repo == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Limit <= 0 {
		payload.Limit = 500
	}

	low := true
	records, total, err := j.Repo.ListRecords(ctx, stock.RecordFilter{LowStock: &low},
		shared.Page{Number: 1, Size: payload.Limit})
	if err != nil {
		j.Logger.Error("low stock scan failed", slog.Any("error", err))
		return err
	}

	for _, rec := range records {
		j.Logger.Warn("product low on stock",
			slog.Int64("product_id", rec.ProductID),
			slog.Int("quantity", rec.Quantity),
			slog.Int("threshold", rec.LowStockThreshold))
	}
	j.Logger.Info("low stock scan finished",
		slog.Int("reported", len(records)),
		slog.Int("total_low", total))
	return nil
}
