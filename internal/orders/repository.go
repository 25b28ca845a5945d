package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/shopledger/shopledger/internal/platform/db"
	"github.com/shopledger/shopledger/internal/shared"
	"github.com/shopledger/shopledger/internal/stock"
)

// Repository persists orders in PostgreSQL.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Order, error)
	List(ctx context.Context, filter Filter, page shared.Page) ([]Order, int, error)
}

// TxRepository exposes the transactional operations of the commit path. The
// stock deduction lives here so the whole order, its lines, the quantity
// changes and the log entries share one transaction.
type TxRepository interface {
	GetProductPrices(ctx context.Context, ids []int64) (map[int64]decimal.Decimal, error)
	InsertOrder(ctx context.Context, customerName *string, orderDate time.Time) (int64, error)
	SetOrderTotal(ctx context.Context, orderID int64, total decimal.Decimal) error
	InsertLine(ctx context.Context, line OrderLine) (int64, error)
	DeductStock(ctx context.Context, productID int64, quantity int, reason string) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (r *repository) Get(ctx context.Context, id int64) (Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, order_date, customer_name, status, total_amount
		 FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("%w: order %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return Order{}, err
	}

	lines, err := r.linesFor(ctx, []int64{id})
	if err != nil {
		return Order{}, err
	}
	order.Lines = lines[id]
	return order, nil
}

func (r *repository) List(ctx context.Context, filter Filter, page shared.Page) ([]Order, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	argPos := 1

	if filter.CustomerContains != "" {
		where += ` AND customer_name ILIKE $` + strconv.Itoa(argPos)
		args = append(args, "%"+filter.CustomerContains+"%")
		argPos++
	}
	if filter.StatusContains != "" {
		where += ` AND status ILIKE $` + strconv.Itoa(argPos)
		args = append(args, "%"+filter.StatusContains+"%")
		argPos++
	}
	if from := filter.Range.FromStart(); !from.IsZero() {
		where += ` AND order_date >= $` + strconv.Itoa(argPos)
		args = append(args, from)
		argPos++
	}
	if to := filter.Range.ToEnd(); !to.IsZero() {
		where += ` AND order_date <= $` + strconv.Itoa(argPos)
		args = append(args, to)
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, order_date, customer_name, status, total_amount FROM orders` +
		where + ` ORDER BY order_date DESC, id DESC LIMIT $` + strconv.Itoa(argPos) + ` OFFSET $` + strconv.Itoa(argPos+1)
	args = append(args, page.Size, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []Order
	var ids []int64
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(ids) > 0 {
		lines, err := r.linesFor(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range orders {
			orders[i].Lines = lines[orders[i].ID]
		}
	}
	return orders, total, nil
}

func (r *repository) linesFor(ctx context.Context, orderIDs []int64) (map[int64][]OrderLine, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, product_id, quantity, price_at_sale, subtotal
		 FROM order_lines WHERE order_id = ANY($1) ORDER BY id`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make(map[int64][]OrderLine)
	for rows.Next() {
		var line OrderLine
		var price, subtotal pgtype.Numeric
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.Quantity, &price, &subtotal); err != nil {
			return nil, err
		}
		line.PriceAtSale = numericToDecimal(price)
		line.Subtotal = numericToDecimal(subtotal)
		lines[line.OrderID] = append(lines[line.OrderID], line)
	}
	return lines, rows.Err()
}

func (t *txRepo) GetProductPrices(ctx context.Context, ids []int64) (map[int64]decimal.Decimal, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, price FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prices := make(map[int64]decimal.Decimal, len(ids))
	for rows.Next() {
		var id int64
		var price pgtype.Numeric
		if err := rows.Scan(&id, &price); err != nil {
			return nil, err
		}
		prices[id] = numericToDecimal(price)
	}
	return prices, rows.Err()
}

func (t *txRepo) InsertOrder(ctx context.Context, customerName *string, orderDate time.Time) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO orders (order_date, customer_name, status, total_amount)
		 VALUES ($1, $2, $3, 0) RETURNING id`,
		orderDate, customerName, StatusCompleted).Scan(&id)
	return id, err
}

func (t *txRepo) SetOrderTotal(ctx context.Context, orderID int64, total decimal.Decimal) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE orders SET total_amount = $2 WHERE id = $1`,
		orderID, decimalToNumeric(total))
	return err
}

func (t *txRepo) InsertLine(ctx context.Context, line OrderLine) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO order_lines (order_id, product_id, quantity, price_at_sale, subtotal)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		line.OrderID, line.ProductID, line.Quantity,
		decimalToNumeric(line.PriceAtSale), decimalToNumeric(line.Subtotal)).Scan(&id)
	return id, err
}

func (t *txRepo) DeductStock(ctx context.Context, productID int64, quantity int, reason string) error {
	_, err := stock.DeductForSale(ctx, t.tx, productID, quantity, reason)
	return err
}

func scanOrder(row pgx.Row) (Order, error) {
	var order Order
	var orderDate pgtype.Timestamptz
	var customer pgtype.Text
	var total pgtype.Numeric
	if err := row.Scan(&order.ID, &orderDate, &customer, &order.Status, &total); err != nil {
		return Order{}, err
	}
	order.OrderDate = orderDate.Time
	if customer.Valid {
		order.CustomerName = &customer.String
	}
	order.TotalAmount = numericToDecimal(total)
	return order, nil
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.String())
	return n
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
