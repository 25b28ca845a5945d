package reports

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/shopledger/shopledger/internal/shared"
)

// Repository runs the read-only reporting queries. It never writes; the
// source of truth lives with the catalog, stock and order repositories.
type Repository interface {
	ListSales(ctx context.Context, filter SalesFilter, page shared.Page) ([]SaleItem, int, error)
	RevenueByPeriod(ctx context.Context, period string, rng shared.DateRange, categoryID *int64) ([]RevenueBucket, error)
	RevenueTotal(ctx context.Context, rng shared.DateRange, categoryID *int64) (decimal.Decimal, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) ListSales(ctx context.Context, filter SalesFilter, page shared.Page) ([]SaleItem, int, error) {
	from := ` FROM order_lines ol
		JOIN orders o ON o.id = ol.order_id
		JOIN products p ON p.id = ol.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE 1=1`
	var args []interface{}
	argPos := 1

	if filter.ProductID != nil {
		from += ` AND ol.product_id = $` + strconv.Itoa(argPos)
		args = append(args, *filter.ProductID)
		argPos++
	}
	if filter.CategoryID != nil {
		from += ` AND p.category_id = $` + strconv.Itoa(argPos)
		args = append(args, *filter.CategoryID)
		argPos++
	}
	if filter.CustomerContains != "" {
		from += ` AND o.customer_name ILIKE $` + strconv.Itoa(argPos)
		args = append(args, "%"+filter.CustomerContains+"%")
		argPos++
	}
	if start := filter.Range.FromStart(); !start.IsZero() {
		from += ` AND o.order_date >= $` + strconv.Itoa(argPos)
		args = append(args, start)
		argPos++
	}
	if end := filter.Range.ToEnd(); !end.IsZero() {
		from += ` AND o.order_date <= $` + strconv.Itoa(argPos)
		args = append(args, end)
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+from, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT o.id, o.order_date, o.customer_name, ol.product_id, p.name, c.name,
			ol.quantity, ol.price_at_sale, ol.subtotal` + from +
		` ORDER BY o.order_date DESC, ol.id DESC LIMIT $` + strconv.Itoa(argPos) + ` OFFSET $` + strconv.Itoa(argPos+1)
	args = append(args, page.Size, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []SaleItem
	for rows.Next() {
		var item SaleItem
		var orderDate pgtype.Timestamptz
		var customer pgtype.Text
		var price, subtotal pgtype.Numeric
		if err := rows.Scan(&item.OrderID, &orderDate, &customer, &item.ProductID,
			&item.ProductName, &item.CategoryName, &item.Quantity, &price, &subtotal); err != nil {
			return nil, 0, err
		}
		item.OrderDate = orderDate.Time
		if customer.Valid {
			item.CustomerName = &customer.String
		}
		item.PriceAtSale = numericToDecimal(price)
		item.Subtotal = numericToDecimal(subtotal)
		items = append(items, item)
	}
	return items, total, rows.Err()
}

// RevenueByPeriod groups sold line subtotals into calendar buckets via
// date_trunc. PeriodEnd is filled in by the caller; the database only knows
// bucket starts.
func (r *repository) RevenueByPeriod(ctx context.Context, period string, rng shared.DateRange, categoryID *int64) ([]RevenueBucket, error) {
	unit, err := truncUnit(period)
	if err != nil {
		return nil, err
	}

	query := `SELECT date_trunc('` + unit + `', o.order_date) AS period_start, SUM(ol.subtotal)
		FROM order_lines ol
		JOIN orders o ON o.id = ol.order_id
		JOIN products p ON p.id = ol.product_id
		WHERE 1=1`
	var args []interface{}
	argPos := 1

	if categoryID != nil {
		query += ` AND p.category_id = $` + strconv.Itoa(argPos)
		args = append(args, *categoryID)
		argPos++
	}
	if start := rng.FromStart(); !start.IsZero() {
		query += ` AND o.order_date >= $` + strconv.Itoa(argPos)
		args = append(args, start)
		argPos++
	}
	if end := rng.ToEnd(); !end.IsZero() {
		query += ` AND o.order_date <= $` + strconv.Itoa(argPos)
		args = append(args, end)
		argPos++
	}
	query += ` GROUP BY period_start ORDER BY period_start`

	var categoryName *string
	if categoryID != nil {
		var name string
		if err := r.pool.QueryRow(ctx, `SELECT name FROM categories WHERE id = $1`, *categoryID).Scan(&name); err == nil {
			categoryName = &name
		}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buckets []RevenueBucket
	for rows.Next() {
		var start pgtype.Timestamptz
		var sum pgtype.Numeric
		if err := rows.Scan(&start, &sum); err != nil {
			return nil, err
		}
		buckets = append(buckets, RevenueBucket{
			PeriodStart:  start.Time.In(time.UTC),
			TotalRevenue: numericToDecimal(sum),
			CategoryName: categoryName,
		})
	}
	return buckets, rows.Err()
}

// RevenueTotal sums sold line subtotals in the range, optionally scoped to
// one category.
func (r *repository) RevenueTotal(ctx context.Context, rng shared.DateRange, categoryID *int64) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(ol.subtotal), 0)
		FROM order_lines ol
		JOIN orders o ON o.id = ol.order_id
		WHERE o.order_date >= $1 AND o.order_date <= $2`
	args := []interface{}{rng.FromStart(), rng.ToEnd()}
	if categoryID != nil {
		query = `SELECT COALESCE(SUM(ol.subtotal), 0)
			FROM order_lines ol
			JOIN orders o ON o.id = ol.order_id
			JOIN products p ON p.id = ol.product_id
			WHERE o.order_date >= $1 AND o.order_date <= $2 AND p.category_id = $3`
		args = append(args, *categoryID)
	}

	var sum pgtype.Numeric
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return numericToDecimal(sum), nil
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
