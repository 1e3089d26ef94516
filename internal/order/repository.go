package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("order not found")

	// ErrReferenceExhausted means both the bounded random loop and the
	// counter fallback failed to reserve a unique reference.
	ErrReferenceExhausted = errors.New("reference allocation exhausted")
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type Repository interface {
	FindByReference(ctx context.Context, ref string) (Order, []Line, error)
	List(ctx context.Context, f Filter) ([]Order, error)
	UpdateStatus(ctx context.Context, orderID int64, status Status) error
}

type PostgresRepository struct {
	pool DBPool
	refs *ReferenceAllocator
}

func NewPostgresRepository(pool DBPool, refs *ReferenceAllocator) *PostgresRepository {
	return &PostgresRepository{pool: pool, refs: refs}
}

const orderColumns = `id, ref_number, total_price, order_date, shipping_date, status, customer_id`

// CreateTx reserves a unique reference number and inserts the order under
// the caller's transaction. Checking uniqueness and reserving the value are
// one atomic unit: the insert is conditional on the ref_number unique index,
// and a conflict simply yields the next candidate. The loop is bounded; on
// exhaustion the counter fallback produces a value that cannot collide.
func (r *PostgresRepository) CreateTx(ctx context.Context, tx pgx.Tx, o *Order) error {
	for i := 0; i < r.refs.MaxAttempts(); i++ {
		ok, err := r.insertTx(ctx, tx, o, r.refs.Candidate())
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}

	ref, err := r.refs.Fallback(ctx, tx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReferenceExhausted, err)
	}
	ok, err := r.insertTx(ctx, tx, o, ref)
	if err != nil {
		return err
	}
	if !ok {
		return ErrReferenceExhausted
	}
	return nil
}

func (r *PostgresRepository) insertTx(ctx context.Context, tx pgx.Tx, o *Order, ref string) (bool, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO orders (ref_number, total_price, order_date, shipping_date, status, customer_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (ref_number) DO NOTHING
		RETURNING id
	`, ref, o.TotalPrice, o.OrderDate, o.ShippingDate, o.Status, o.CustomerID)

	err := row.Scan(&o.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// reference already taken
			return false, nil
		}
		return false, fmt.Errorf("insert order: %w", err)
	}
	o.Reference = ref
	return true, nil
}

// InsertLineTx persists one order line under the caller's transaction.
func (r *PostgresRepository) InsertLineTx(ctx context.Context, tx pgx.Tx, l *Line) error {
	row := tx.QueryRow(ctx, `
		INSERT INTO order_lines (order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, l.OrderID, l.ProductID, l.Quantity, l.Price)
	if err := row.Scan(&l.ID); err != nil {
		return fmt.Errorf("insert order line: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByReference(ctx context.Context, ref string) (Order, []Line, error) {
	var o Order
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE ref_number=$1`, ref)
	err := row.Scan(&o.ID, &o.Reference, &o.TotalPrice, &o.OrderDate, &o.ShippingDate, &o.Status, &o.CustomerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, nil, ErrNotFound
		}
		return Order{}, nil, fmt.Errorf("select order: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, product_id, quantity, price FROM order_lines WHERE order_id=$1 ORDER BY id`, o.ID)
	if err != nil {
		return Order{}, nil, fmt.Errorf("select order lines: %w", err)
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.Price); err != nil {
			return Order{}, nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return Order{}, nil, fmt.Errorf("rows: %w", err)
	}

	return o, lines, nil
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Order, error) {
	column, ok := sortColumns[f.SortBy]
	if !ok {
		return nil, fmt.Errorf("unrecognized sort field %q", f.SortBy)
	}
	direction := "ASC"
	if f.Descending {
		direction = "DESC"
	}

	query := fmt.Sprintf(
		`SELECT %s FROM orders WHERE ($1 = '' OR %s::text ILIKE '%%' || $1 || '%%') ORDER BY %s %s`,
		orderColumns, column, column, direction)

	rows, err := r.pool.Query(ctx, query, f.Search)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.Reference, &o.TotalPrice, &o.OrderDate, &o.ShippingDate, &o.Status, &o.CustomerID); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return orders, nil
}

// UpdateStatus lets administration move an order through its lifecycle
// after creation.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, orderID int64, status Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, orderID, status)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
