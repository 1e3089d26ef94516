package customer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("customer not found")

type Customer struct {
	ID       int64  `json:"id"`
	Forename string `json:"forename"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
	Street   string `json:"street"`
	City     string `json:"city"`
	Postcode string `json:"postcode"`
}

// Querier is the subset of pgx we need; both *pgxpool.Pool and pgx.Tx
// satisfy it, so checkout can run these lookups inside its transaction.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository interface {
	FindByEmail(ctx context.Context, email string) (Customer, error)
	Create(ctx context.Context, c Customer) (Customer, error)
}

type PostgresRepository struct {
	pool Querier
}

func NewPostgresRepository(pool Querier) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const customerColumns = `id, forename, surname, email, street, city, postcode`

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (Customer, error) {
	return findByEmail(ctx, r.pool, email)
}

func (r *PostgresRepository) Create(ctx context.Context, c Customer) (Customer, error) {
	return create(ctx, r.pool, c)
}

// FindByEmailTx and CreateTx run under a caller-owned transaction.
func (r *PostgresRepository) FindByEmailTx(ctx context.Context, tx pgx.Tx, email string) (Customer, error) {
	return findByEmail(ctx, tx, email)
}

func (r *PostgresRepository) CreateTx(ctx context.Context, tx pgx.Tx, c Customer) (Customer, error) {
	return create(ctx, tx, c)
}

func findByEmail(ctx context.Context, db Querier, email string) (Customer, error) {
	var c Customer
	row := db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE email=$1`, email)
	err := row.Scan(&c.ID, &c.Forename, &c.Surname, &c.Email, &c.Street, &c.City, &c.Postcode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, fmt.Errorf("select customer: %w", err)
	}
	return c, nil
}

func create(ctx context.Context, db Querier, c Customer) (Customer, error) {
	row := db.QueryRow(ctx, `
		INSERT INTO customers (forename, surname, email, street, city, postcode)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, c.Forename, c.Surname, c.Email, c.Street, c.City, c.Postcode)
	if err := row.Scan(&c.ID); err != nil {
		return Customer{}, fmt.Errorf("insert customer: %w", err)
	}
	return c, nil
}
