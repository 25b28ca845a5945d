package stock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopledger/shopledger/internal/platform/db"
	"github.com/shopledger/shopledger/internal/shared"
)

// Repository persists the stock ledger in PostgreSQL.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetRecord(ctx context.Context, productID int64) (StockRecord, error)
	ListRecords(ctx context.Context, filter RecordFilter, page shared.Page) ([]StockRecord, int, error)
	ListLog(ctx context.Context, filter LogFilter, page shared.Page) ([]LogEntry, int, error)
}

// TxRepository exposes the transactional operations used by the service.
type TxRepository interface {
	GetRecordForUpdate(ctx context.Context, productID int64) (StockRecord, error)
	UpdateRecord(ctx context.Context, record StockRecord) error
	InsertLogEntry(ctx context.Context, entry LogEntry) error
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

func (r *repository) GetRecord(ctx context.Context, productID int64) (StockRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT product_id, quantity, low_stock_threshold, last_updated
		 FROM stock_records WHERE product_id = $1`, productID)
	return scanRecord(row, productID)
}

func (r *repository) ListRecords(ctx context.Context, filter RecordFilter, page shared.Page) ([]StockRecord, int, error) {
	from := ` FROM stock_records sr JOIN products p ON p.id = sr.product_id WHERE 1=1`
	var args []interface{}
	argPos := 1

	if filter.ProductID != nil {
		from += ` AND sr.product_id = $` + strconv.Itoa(argPos)
		args = append(args, *filter.ProductID)
		argPos++
	}
	if filter.CategoryID != nil {
		from += ` AND p.category_id = $` + strconv.Itoa(argPos)
		args = append(args, *filter.CategoryID)
		argPos++
	}
	if filter.LowStock != nil {
		if *filter.LowStock {
			from += ` AND sr.quantity <= sr.low_stock_threshold`
		} else {
			from += ` AND sr.quantity > sr.low_stock_threshold`
		}
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+from, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT sr.product_id, sr.quantity, sr.low_stock_threshold, sr.last_updated` + from +
		` ORDER BY sr.product_id LIMIT $` + strconv.Itoa(argPos) + ` OFFSET $` + strconv.Itoa(argPos+1)
	args = append(args, page.Size, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []StockRecord
	for rows.Next() {
		var rec StockRecord
		var lastUpdated pgtype.Timestamptz
		if err := rows.Scan(&rec.ProductID, &rec.Quantity, &rec.LowStockThreshold, &lastUpdated); err != nil {
			return nil, 0, err
		}
		rec.LastUpdated = lastUpdated.Time
		records = append(records, rec)
	}
	return records, total, rows.Err()
}

func (r *repository) ListLog(ctx context.Context, filter LogFilter, page shared.Page) ([]LogEntry, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	argPos := 1

	if filter.ProductID != nil {
		where += ` AND product_id = $` + strconv.Itoa(argPos)
		args = append(args, *filter.ProductID)
		argPos++
	}
	if from := filter.Range.FromStart(); !from.IsZero() {
		where += ` AND created_at >= $` + strconv.Itoa(argPos)
		args = append(args, from)
		argPos++
	}
	if to := filter.Range.ToEnd(); !to.IsZero() {
		where += ` AND created_at <= $` + strconv.Itoa(argPos)
		args = append(args, to)
		argPos++
	}
	if filter.ReasonContains != "" {
		where += ` AND reason ILIKE $` + strconv.Itoa(argPos)
		args = append(args, "%"+filter.ReasonContains+"%")
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_log`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, product_id, change_quantity, new_quantity, reason, created_at FROM stock_log` +
		where + ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(argPos) + ` OFFSET $` + strconv.Itoa(argPos+1)
	args = append(args, page.Size, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		var ts pgtype.Timestamptz
		if err := rows.Scan(&e.ID, &e.ProductID, &e.ChangeQuantity, &e.NewQuantity, &e.Reason, &ts); err != nil {
			return nil, 0, err
		}
		e.Timestamp = ts.Time
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func (t *txRepo) GetRecordForUpdate(ctx context.Context, productID int64) (StockRecord, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT product_id, quantity, low_stock_threshold, last_updated
		 FROM stock_records WHERE product_id = $1 FOR UPDATE`, productID)
	return scanRecord(row, productID)
}

func (t *txRepo) UpdateRecord(ctx context.Context, record StockRecord) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE stock_records SET quantity = $2, low_stock_threshold = $3, last_updated = $4
		 WHERE product_id = $1`,
		record.ProductID, record.Quantity, record.LowStockThreshold, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: stock record for product %d", shared.ErrNotFound, record.ProductID)
	}
	return nil
}

func (t *txRepo) InsertLogEntry(ctx context.Context, entry LogEntry) error {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO stock_log (product_id, change_quantity, new_quantity, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.ProductID, entry.ChangeQuantity, entry.NewQuantity, entry.Reason, ts)
	return err
}

// DeductForSale atomically decrements a stock record and appends the paired
// log entry inside the caller's transaction. The conditional update is the
// oversell guard: zero affected rows means the stock is gone and the whole
// order must roll back.
func DeductForSale(ctx context.Context, tx pgx.Tx, productID int64, quantity int, reason string) (int, error) {
	var newQuantity int
	err := tx.QueryRow(ctx,
		`UPDATE stock_records
		 SET quantity = quantity - $2, last_updated = NOW()
		 WHERE product_id = $1 AND quantity >= $2
		 RETURNING quantity`,
		productID, quantity).Scan(&newQuantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w for product %d", ErrInsufficientStock, productID)
	}
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO stock_log (product_id, change_quantity, new_quantity, reason, created_at)
		 VALUES ($1, $2, $3, $4, NOW())`,
		productID, -quantity, newQuantity, reason); err != nil {
		return 0, err
	}
	return newQuantity, nil
}

func scanRecord(row pgx.Row, productID int64) (StockRecord, error) {
	var rec StockRecord
	var lastUpdated pgtype.Timestamptz
	err := row.Scan(&rec.ProductID, &rec.Quantity, &rec.LowStockThreshold, &lastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return StockRecord{}, fmt.Errorf("%w: stock record for product %d", shared.ErrNotFound, productID)
	}
	if err != nil {
		return StockRecord{}, err
	}
	rec.LastUpdated = lastUpdated.Time
	return rec, nil
}
