package stock

import (
	"fmt"
	"time"

	"github.com/shopledger/shopledger/internal/shared"
)

// StockRecord tracks the on-hand quantity for a product, 1:1 by product id.
// Quantity never goes negative: the manual adjustment path clamps at zero,
// the sale path fails the whole order instead.
type StockRecord struct {
	ProductID         int64     `json:"product_id"`
	Quantity          int       `json:"quantity"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	LastUpdated       time.Time `json:"last_updated"`
}

// IsLow reports whether the record is at or below its threshold.
func (r StockRecord) IsLow() bool {
	return r.Quantity <= r.LowStockThreshold
}

// LogEntry is one row of the append-only stock audit trail. Every quantity
// mutation produces exactly one entry in the same transaction; entries are
// never edited or deleted, even when their product is.
type LogEntry struct {
	ID             int64     `json:"id"`
	ProductID      int64     `json:"product_id"`
	ChangeQuantity int       `json:"change_quantity"`
	NewQuantity    int       `json:"new_quantity"`
	Reason         string    `json:"reason"`
	Timestamp      time.Time `json:"timestamp"`
}

// AdjustmentInput describes a manual stock adjustment: a relative delta XOR
// an absolute target, optionally with a new low-stock threshold.
type AdjustmentInput struct {
	ProductID         int64
	QuantityChange    *int
	AbsoluteQuantity  *int
	Reason            string
	LowStockThreshold *int
}

// RecordFilter narrows stock listings. LowStock is tri-state: nil means no
// filter, true selects quantity <= threshold, false the complement.
type RecordFilter struct {
	ProductID  *int64
	CategoryID *int64
	LowStock   *bool
}

// LogFilter narrows audit trail listings. The date range is inclusive by
// calendar day.
type LogFilter struct {
	ProductID      *int64
	Range          shared.DateRange
	ReasonContains string
}

// ErrInsufficientStock rejects a sale deduction that would oversell.
var ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", shared.ErrValidation)
