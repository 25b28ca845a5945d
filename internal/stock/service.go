package stock

import (
	"context"
	"fmt"

	"github.com/shopledger/shopledger/internal/shared"
)

// Service owns every mutation of stock quantities. The manual adjustment
// policy here clamps at zero and never fails on underflow; the sale policy
// (DeductForSale, driven by the order engine) fails instead of clamping.
type Service struct {
	repo Repository
}

// NewService builds the stock ledger service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Adjust applies a manual stock adjustment: a relative delta XOR an absolute
// target, clamped at zero. A log entry is written only when the quantity
// actually changes or a non-zero change was explicitly requested; updating
// just the threshold leaves the audit trail untouched.
func (s *Service) Adjust(ctx context.Context, input AdjustmentInput) (StockRecord, error) {
	if input.QuantityChange != nil && input.AbsoluteQuantity != nil {
		return StockRecord{}, fmt.Errorf("%w: supply quantity_change or absolute_quantity, not both", shared.ErrValidation)
	}
	if input.QuantityChange == nil && input.AbsoluteQuantity == nil && input.LowStockThreshold == nil {
		return StockRecord{}, fmt.Errorf("%w: nothing to update", shared.ErrValidation)
	}
	if input.AbsoluteQuantity != nil && *input.AbsoluteQuantity < 0 {
		// An explicit negative target clamps the same way a delta does.
		target := 0
		input.AbsoluteQuantity = &target
	}
	if input.LowStockThreshold != nil && *input.LowStockThreshold < 0 {
		return StockRecord{}, fmt.Errorf("%w: low stock threshold cannot be negative", shared.ErrValidation)
	}

	reason := input.Reason
	if reason == "" {
		reason = "Manual update"
	}

	var updated StockRecord
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		record, err := tx.GetRecordForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}

		original := record.Quantity
		newQuantity := original
		if input.QuantityChange != nil {
			newQuantity += *input.QuantityChange
		} else if input.AbsoluteQuantity != nil {
			newQuantity = *input.AbsoluteQuantity
		}
		if newQuantity < 0 {
			newQuantity = 0
		}
		change := newQuantity - original

		record.Quantity = newQuantity
		if input.LowStockThreshold != nil {
			record.LowStockThreshold = *input.LowStockThreshold
		}
		if err := tx.UpdateRecord(ctx, record); err != nil {
			return err
		}

		requestedChange := input.QuantityChange != nil && *input.QuantityChange != 0
		requestedAbsolute := input.AbsoluteQuantity != nil && *input.AbsoluteQuantity != original
		if change != 0 || requestedChange || requestedAbsolute {
			if err := tx.InsertLogEntry(ctx, LogEntry{
				ProductID:      input.ProductID,
				ChangeQuantity: change,
				NewQuantity:    newQuantity,
				Reason:         reason,
			}); err != nil {
				return err
			}
		}

		updated = record
		return nil
	})
	if err != nil {
		return StockRecord{}, err
	}
	return updated, nil
}

// GetRecord returns the stock record for a product.
func (s *Service) GetRecord(ctx context.Context, productID int64) (StockRecord, error) {
	return s.repo.GetRecord(ctx, productID)
}

// ListRecords lists stock records with filtering and pagination.
func (s *Service) ListRecords(ctx context.Context, filter RecordFilter, page shared.Page) ([]StockRecord, int, error) {
	return s.repo.ListRecords(ctx, filter, page.Normalize())
}

// ListLog lists audit trail entries, newest first.
func (s *Service) ListLog(ctx context.Context, filter LogFilter, page shared.Page) ([]LogEntry, int, error) {
	if err := filter.Range.Validate(); err != nil {
		return nil, 0, err
	}
	return s.repo.ListLog(ctx, filter, page.Normalize())
}
