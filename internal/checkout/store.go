package checkout

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/slimecraft/shop/internal/catalog"
	"github.com/slimecraft/shop/internal/customer"
	"github.com/slimecraft/shop/internal/order"
)

type txBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// PostgresStore runs checkout transactions against the shared pool, routing
// each statement through the domain repositories' tx variants.
type PostgresStore struct {
	pool      txBeginner
	customers *customer.PostgresRepository
	products  *catalog.PostgresRepository
	orders    *order.PostgresRepository
}

func NewPostgresStore(pool txBeginner, customers *customer.PostgresRepository, products *catalog.PostgresRepository, orders *order.PostgresRepository) *PostgresStore {
	return &PostgresStore{pool: pool, customers: customers, products: products, orders: orders}
}

func (s *PostgresStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgxTx{store: s, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type pgxTx struct {
	store *PostgresStore
	tx    pgx.Tx
}

func (t *pgxTx) FindCustomerByEmail(ctx context.Context, email string) (customer.Customer, error) {
	return t.store.customers.FindByEmailTx(ctx, t.tx, email)
}

func (t *pgxTx) CreateCustomer(ctx context.Context, c customer.Customer) (customer.Customer, error) {
	return t.store.customers.CreateTx(ctx, t.tx, c)
}

func (t *pgxTx) CreateOrder(ctx context.Context, o *order.Order) error {
	return t.store.orders.CreateTx(ctx, t.tx, o)
}

func (t *pgxTx) FindProductByName(ctx context.Context, name string) (catalog.Product, error) {
	// locks the row so concurrent checkouts serialise on the same product
	return t.store.products.FindByNameTx(ctx, t.tx, name)
}

func (t *pgxTx) DecrementStock(ctx context.Context, productID int64, amount int) error {
	return t.store.products.DecrementStockTx(ctx, t.tx, productID, amount)
}

func (t *pgxTx) InsertOrderLine(ctx context.Context, l *order.Line) error {
	return t.store.orders.InsertLineTx(ctx, t.tx, l)
}
