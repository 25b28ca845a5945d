package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopledger/shopledger/internal/shared"
)

// SaleItem is one sold order line enriched with catalog context, the unit of
// the sales listing report.
type SaleItem struct {
	OrderID      int64           `json:"order_id"`
	OrderDate    time.Time       `json:"order_date"`
	CustomerName *string         `json:"customer_name"`
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	CategoryName string          `json:"category_name"`
	Quantity     int             `json:"quantity"`
	PriceAtSale  decimal.Decimal `json:"price_at_sale"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

// SalesFilter narrows the sales listing.
type SalesFilter struct {
	ProductID        *int64
	CategoryID       *int64
	CustomerContains string
	Range            shared.DateRange
}

// RevenueBucket is one aggregation period of the revenue summary. PeriodEnd
// is the inclusive calendar end of the bucket, not the last sale in it.
type RevenueBucket struct {
	PeriodStart  time.Time       `json:"period_start"`
	PeriodEnd    time.Time       `json:"period_end"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	CategoryName *string         `json:"category_name,omitempty"`
}

// RevenueSummary is the full summary payload.
type RevenueSummary struct {
	Period       string          `json:"period"`
	Buckets      []RevenueBucket `json:"buckets"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

// PeriodRevenue is one side of a comparison.
type PeriodRevenue struct {
	StartDate    time.Time       `json:"start_date"`
	EndDate      time.Time       `json:"end_date"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

// Comparison contrasts the revenue of two date ranges.
type Comparison struct {
	Period1       PeriodRevenue   `json:"period1"`
	Period2       PeriodRevenue   `json:"period2"`
	Difference    decimal.Decimal `json:"difference"`
	PercentChange PercentChange   `json:"percent_change"`
}

// PercentChange carries the relative change between two revenue totals.
// When the baseline is zero and the comparison period is not, no finite
// percentage exists; the value serialises as the string "unbounded" instead
// of smuggling an infinity through JSON.
type PercentChange struct {
	Unbounded bool
	Value     decimal.Decimal
}

// MarshalJSON renders either the numeric percentage or "unbounded".
func (p PercentChange) MarshalJSON() ([]byte, error) {
	if p.Unbounded {
		return []byte(`"unbounded"`), nil
	}
	return []byte(p.Value.String()), nil
}
