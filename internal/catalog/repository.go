package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/shopledger/shopledger/internal/platform/db"
	"github.com/shopledger/shopledger/internal/shared"
)

// Repository persists catalog data in PostgreSQL.
type Repository interface {
	ListCategories(ctx context.Context, page shared.Page) ([]Category, int, error)
	GetCategory(ctx context.Context, id int64) (Category, error)
	GetCategoryByName(ctx context.Context, name string) (Category, error)
	CreateCategory(ctx context.Context, input CreateCategoryInput) (Category, error)
	UpdateCategory(ctx context.Context, id int64, input UpdateCategoryInput) (Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	CountProductsInCategory(ctx context.Context, categoryID int64) (int, error)

	ListProducts(ctx context.Context, filter ProductFilter, page shared.Page) ([]Product, int, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	GetProductBySKU(ctx context.Context, sku string) (Product, error)
	CreateProductWithStock(ctx context.Context, input CreateProductInput, threshold int) (Product, error)
	UpdateProduct(ctx context.Context, id int64, input UpdateProductInput) (Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	CountOrderLinesForProduct(ctx context.Context, productID int64) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) ListCategories(ctx context.Context, page shared.Page) ([]Category, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM categories`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description FROM categories ORDER BY name LIMIT $1 OFFSET $2`,
		page.Size, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, 0, err
		}
		categories = append(categories, c)
	}
	return categories, total, rows.Err()
}

func (r *repository) GetCategory(ctx context.Context, id int64) (Category, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, description FROM categories WHERE id = $1`, id)
	c, err := scanCategory(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, fmt.Errorf("%w: category %d", shared.ErrNotFound, id)
	}
	return c, err
}

func (r *repository) GetCategoryByName(ctx context.Context, name string) (Category, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, description FROM categories WHERE LOWER(name) = LOWER($1)`, name)
	c, err := scanCategory(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, fmt.Errorf("%w: category %q", shared.ErrNotFound, name)
	}
	return c, err
}

func (r *repository) CreateCategory(ctx context.Context, input CreateCategoryInput) (Category, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO categories (name, description) VALUES ($1, $2) RETURNING id, name, description`,
		input.Name, textOrNil(input.Description))
	c, err := scanCategory(row)
	if err != nil {
		return Category{}, mapConstraintError(err, fmt.Sprintf("category %q already exists", input.Name))
	}
	return c, nil
}

func (r *repository) UpdateCategory(ctx context.Context, id int64, input UpdateCategoryInput) (Category, error) {
	query := `UPDATE categories SET id = id`
	var args []interface{}
	argPos := 1

	if input.Name != nil {
		query += `, name = $` + strconv.Itoa(argPos)
		args = append(args, *input.Name)
		argPos++
	}
	if input.Description != nil {
		query += `, description = $` + strconv.Itoa(argPos)
		args = append(args, *input.Description)
		argPos++
	}
	query += ` WHERE id = $` + strconv.Itoa(argPos) + ` RETURNING id, name, description`
	args = append(args, id)

	row := r.pool.QueryRow(ctx, query, args...)
	c, err := scanCategory(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, fmt.Errorf("%w: category %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return Category{}, mapConstraintError(err, "category name already in use")
	}
	return c, nil
}

func (r *repository) DeleteCategory(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return mapConstraintError(err, "category is referenced by products")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: category %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) CountProductsInCategory(ctx context.Context, categoryID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE category_id = $1`, categoryID).Scan(&count)
	return count, err
}

func (r *repository) ListProducts(ctx context.Context, filter ProductFilter, page shared.Page) ([]Product, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	argPos := 1

	if filter.CategoryID != nil {
		where += ` AND category_id = $` + strconv.Itoa(argPos)
		args = append(args, *filter.CategoryID)
		argPos++
	}
	if filter.NameContains != "" {
		where += ` AND name ILIKE $` + strconv.Itoa(argPos)
		args = append(args, "%"+filter.NameContains+"%")
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, name, description, price, category_id, sku, created_at, updated_at FROM products` +
		where + ` ORDER BY name LIMIT $` + strconv.Itoa(argPos) + ` OFFSET $` + strconv.Itoa(argPos+1)
	args = append(args, page.Size, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, description, price, category_id, sku, created_at, updated_at FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
	}
	return p, err
}

func (r *repository) GetProductBySKU(ctx context.Context, sku string) (Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, description, price, category_id, sku, created_at, updated_at FROM products WHERE sku = $1`, sku)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("%w: product with sku %q", shared.ErrNotFound, sku)
	}
	return p, err
}

// CreateProductWithStock inserts the product, its stock record, and the
// "Initial stock" log entry in one transaction. Three writes, one atomic unit.
func (r *repository) CreateProductWithStock(ctx context.Context, input CreateProductInput, threshold int) (Product, error) {
	var created Product
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		row := tx.QueryRow(ctx,
			`INSERT INTO products (name, description, price, category_id, sku, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $6)
			 RETURNING id, name, description, price, category_id, sku, created_at, updated_at`,
			input.Name, textOrNil(input.Description), decimalToNumeric(input.Price),
			input.CategoryID, skuOrNil(input.SKU), now)
		p, err := scanProduct(row)
		if err != nil {
			return mapConstraintError(err, fmt.Sprintf("sku %v already in use", derefOr(input.SKU, "")))
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO stock_records (product_id, quantity, low_stock_threshold, last_updated)
			 VALUES ($1, $2, $3, $4)`,
			p.ID, input.InitialQuantity, threshold, now); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO stock_log (product_id, change_quantity, new_quantity, reason, created_at)
			 VALUES ($1, $2, $2, $3, $4)`,
			p.ID, input.InitialQuantity, "Initial stock", now); err != nil {
			return err
		}

		created = p
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	return created, nil
}

func (r *repository) UpdateProduct(ctx context.Context, id int64, input UpdateProductInput) (Product, error) {
	query := `UPDATE products SET updated_at = NOW()`
	var args []interface{}
	argPos := 1

	if input.Name != nil {
		query += `, name = $` + strconv.Itoa(argPos)
		args = append(args, *input.Name)
		argPos++
	}
	if input.Description != nil {
		query += `, description = $` + strconv.Itoa(argPos)
		args = append(args, *input.Description)
		argPos++
	}
	if input.Price != nil {
		query += `, price = $` + strconv.Itoa(argPos)
		args = append(args, decimalToNumeric(*input.Price))
		argPos++
	}
	if input.CategoryID != nil {
		query += `, category_id = $` + strconv.Itoa(argPos)
		args = append(args, *input.CategoryID)
		argPos++
	}
	if input.SKU != nil {
		query += `, sku = $` + strconv.Itoa(argPos)
		args = append(args, skuOrNil(input.SKU))
		argPos++
	}
	query += ` WHERE id = $` + strconv.Itoa(argPos) +
		` RETURNING id, name, description, price, category_id, sku, created_at, updated_at`
	args = append(args, id)

	row := r.pool.QueryRow(ctx, query, args...)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return Product{}, mapConstraintError(err, "sku already in use")
	}
	return p, nil
}

// DeleteProduct removes the product and its stock record but leaves the
// stock log history untouched.
func (r *repository) DeleteProduct(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM stock_records WHERE product_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			return mapConstraintError(err, "product is referenced by order lines")
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
		}
		return nil
	})
}

func (r *repository) CountOrderLinesForProduct(ctx context.Context, productID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM order_lines WHERE product_id = $1`, productID).Scan(&count)
	return count, err
}

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	var description pgtype.Text
	if err := row.Scan(&c.ID, &c.Name, &description); err != nil {
		return Category{}, err
	}
	if description.Valid {
		c.Description = &description.String
	}
	return c, nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var description, sku pgtype.Text
	var price pgtype.Numeric
	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&p.ID, &p.Name, &description, &price, &p.CategoryID, &sku, &createdAt, &updatedAt); err != nil {
		return Product{}, err
	}
	if description.Valid {
		p.Description = &description.String
	}
	if sku.Valid {
		p.SKU = &sku.String
	}
	p.Price = numericToDecimal(price)
	p.CreatedAt = createdAt.Time
	p.UpdatedAt = updatedAt.Time
	return p, nil
}

// mapConstraintError converts PostgreSQL constraint violations into the
// shared taxonomy: 23505 unique, 23503 foreign key.
func mapConstraintError(err error, detail string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", shared.ErrConflict, detail)
		case "23503":
			return fmt.Errorf("%w: %s", shared.ErrConflict, detail)
		}
	}
	return err
}

func textOrNil(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// skuOrNil maps an absent or cleared SKU to NULL so the unique index only
// constrains real values.
func skuOrNil(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
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
