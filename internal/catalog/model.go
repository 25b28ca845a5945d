package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products. Names are unique case-insensitively.
type Category struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// Product is a sellable item. Price is exact fixed-point money; changing it
// never touches the price snapshots recorded on historical order lines.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  int64           `json:"category_id"`
	SKU         *string         `json:"sku,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateCategoryInput carries a parsed category creation request.
type CreateCategoryInput struct {
	Name        string
	Description *string
}

// UpdateCategoryInput applies partial updates field by field.
type UpdateCategoryInput struct {
	Name        *string
	Description *string
}

// CreateProductInput carries a parsed product creation request. The stock
// record and its initial log entry are created in the same transaction as
// the product row.
type CreateProductInput struct {
	Name              string
	Description       *string
	Price             decimal.Decimal
	CategoryID        int64
	SKU               *string
	InitialQuantity   int
	LowStockThreshold *int
}

// UpdateProductInput applies partial updates field by field. Stock quantity
// is managed by the stock ledger, never here.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	CategoryID  *int64
	SKU         *string
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	CategoryID   *int64
	NameContains string
}

// DefaultLowStockThreshold applies when product creation omits a threshold.
const DefaultLowStockThreshold = 10
