package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopledger/shopledger/internal/shared"
)

// StatusCompleted is the only status the engine writes today. Orders commit
// fully or not at all, so there is no pending state to represent.
const StatusCompleted = "completed"

// Order is a committed sale. TotalAmount and every line subtotal are exact
// decimals computed from the price snapshot taken at commit time; later
// catalog price changes never touch them.
type Order struct {
	ID           int64           `json:"id"`
	OrderDate    time.Time       `json:"order_date"`
	CustomerName *string         `json:"customer_name"`
	Status       string          `json:"status"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Lines        []OrderLine     `json:"items"`
}

// OrderLine is one product position on an order.
type OrderLine struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	ProductID   int64           `json:"product_id"`
	Quantity    int             `json:"quantity"`
	PriceAtSale decimal.Decimal `json:"price_at_sale"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// LineInput is one requested product/quantity pair.
type LineInput struct {
	ProductID int64
	Quantity  int
}

// CreateOrderInput describes a new order request. IdempotencyKey is optional;
// when set, replays of the same key are rejected as conflicts.
type CreateOrderInput struct {
	CustomerName   *string
	Lines          []LineInput
	IdempotencyKey string
}

// Filter narrows order listings.
type Filter struct {
	CustomerContains string
	StatusContains   string
	Range            shared.DateRange
}
