package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound          = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type Repository interface {
	FindByID(ctx context.Context, id int64) (Product, error)
	FindByName(ctx context.Context, name string) (Product, error)
	DecrementStock(ctx context.Context, productID int64, amount int) error
	Create(ctx context.Context, req CreateProduct) (Product, error)
	Update(ctx context.Context, req UpdateProduct) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f Filter) ([]Product, error)
	LowStock(ctx context.Context, threshold int) ([]Product, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const productColumns = `id, name, description, image, colour, price, stock`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Image, &p.Colour, &p.Price, &p.Stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id)
	return scanProduct(row)
}

func (r *PostgresRepository) FindByName(ctx context.Context, name string) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE name=$1`, name)
	return scanProduct(row)
}

// DecrementStock subtracts amount from the product's stock. The update is
// conditional on enough stock remaining, so stock can never go negative.
func (r *PostgresRepository) DecrementStock(ctx context.Context, productID int64, amount int) error {
	return decrementStock(ctx, r.pool, productID, amount)
}

// DecrementStockTx is DecrementStock inside a caller-owned transaction; the
// checkout transaction uses it so the decrement commits or rolls back with
// the order lines.
func (r *PostgresRepository) DecrementStockTx(ctx context.Context, tx pgx.Tx, productID int64, amount int) error {
	return decrementStock(ctx, tx, productID, amount)
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func decrementStock(ctx context.Context, db execer, productID int64, amount int) error {
	tag, err := db.Exec(ctx, `
		UPDATE products
		SET stock = stock - $2
		WHERE id = $1 AND stock >= $2
	`, productID, amount)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// FindByNameTx resolves a product by name under a caller-owned transaction,
// locking the row for update.
func (r *PostgresRepository) FindByNameTx(ctx context.Context, tx pgx.Tx, name string) (Product, error) {
	row := tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE name=$1 FOR UPDATE`, name)
	return scanProduct(row)
}

func (r *PostgresRepository) Create(ctx context.Context, req CreateProduct) (Product, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO products (name, description, image, colour, price, stock)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+productColumns,
		req.Name, req.Description, req.Image, req.Colour, req.Price, req.Stock)
	p, err := scanProduct(row)
	if err != nil {
		return Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Update(ctx context.Context, req UpdateProduct) error {
	// An empty image keeps whatever is stored; the upload layer only sends a
	// path when a new file arrived.
	tag, err := r.pool.Exec(ctx, `
		UPDATE products
		SET name=$2, description=$3, image=COALESCE(NULLIF($4, ''), image), colour=$5, price=$6, stock=$7
		WHERE id=$1
	`, req.ID, req.Name, req.Description, req.Image, req.Colour, req.Price, req.Stock)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Product, error) {
	column, ok := sortColumns[f.SortBy]
	if !ok {
		return nil, fmt.Errorf("unrecognized sort field %q", f.SortBy)
	}
	direction := "ASC"
	if f.Descending {
		direction = "DESC"
	}

	// column and direction come from the fixed registry above, never from
	// caller input directly.
	query := fmt.Sprintf(
		`SELECT %s FROM products WHERE ($1 = '' OR %s::text ILIKE '%%' || $1 || '%%') ORDER BY %s %s`,
		productColumns, column, column, direction)

	rows, err := r.pool.Query(ctx, query, f.Search)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

func (r *PostgresRepository) LowStock(ctx context.Context, threshold int) ([]Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE stock <= $1 ORDER BY stock ASC`, threshold)
	if err != nil {
		return nil, fmt.Errorf("low stock: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Image, &p.Colour, &p.Price, &p.Stock); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return products, nil
}
