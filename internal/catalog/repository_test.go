package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		mock.Close()
	})
	return mock
}

func productRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "name", "description", "image", "colour", "price", "stock"})
}

func TestFindByName(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery(`SELECT .+ FROM products WHERE name=\$1`).
		WithArgs("green slime").
		WillReturnRows(productRows().AddRow(int64(1), "green slime", "a slime", "/img/1.png", "green", 4.50, 12))

	p, err := repo.FindByName(context.Background(), "green slime")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != 1 || p.Price != 4.50 || p.Stock != 12 {
		t.Fatalf("unexpected product %+v", p)
	}
}

func TestFindByIDMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery(`SELECT .+ FROM products WHERE id=\$1`).
		WithArgs(int64(99)).
		WillReturnRows(productRows())

	if _, err := repo.FindByID(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDecrementStock(t *testing.T) {
	t.Run("decrements when enough stock", func(t *testing.T) {
		mock := newMock(t)
		repo := NewPostgresRepository(mock)

		mock.ExpectExec(`UPDATE products\s+SET stock = stock - \$2\s+WHERE id = \$1 AND stock >= \$2`).
			WithArgs(int64(1), 3).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		if err := repo.DecrementStock(context.Background(), 1, 3); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("insufficient stock leaves the row untouched", func(t *testing.T) {
		mock := newMock(t)
		repo := NewPostgresRepository(mock)

		mock.ExpectExec(`UPDATE products`).
			WithArgs(int64(1), 50).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		if err := repo.DecrementStock(context.Background(), 1, 50); !errors.Is(err, ErrInsufficientStock) {
			t.Fatalf("expected ErrInsufficientStock, got %v", err)
		}
	})
}

func TestCreateAndUpdate(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery(`INSERT INTO products`).
		WithArgs("blue slime", "very blue", "/img/2.png", "blue", 3.00, 5).
		WillReturnRows(productRows().AddRow(int64(2), "blue slime", "very blue", "/img/2.png", "blue", 3.00, 5))

	p, err := repo.Create(context.Background(), CreateProduct{
		Name: "blue slime", Description: "very blue", Image: "/img/2.png", Colour: "blue", Price: 3.00, Stock: 5,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID != 2 {
		t.Fatalf("unexpected id %d", p.ID)
	}

	mock.ExpectExec(`UPDATE products`).
		WithArgs(int64(2), "blue slime", "still blue", "", "blue", 3.50, 8).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.Update(context.Background(), UpdateProduct{
		ID: 2, Name: "blue slime", Description: "still blue", Colour: "blue", Price: 3.50, Stock: 8,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestUpdateMissingProduct(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectExec(`UPDATE products`).
		WithArgs(int64(404), "x", "x", "", "x", 1.0, 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), UpdateProduct{ID: 404, Name: "x", Description: "x", Colour: "x", Price: 1, Stock: 1})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListUsesRegistry(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery(`SELECT .+ FROM products .+ ORDER BY price DESC`).
		WithArgs("slime").
		WillReturnRows(productRows().
			AddRow(int64(1), "green slime", "", "", "green", 4.50, 12).
			AddRow(int64(2), "blue slime", "", "", "blue", 3.00, 5))

	products, err := repo.List(context.Background(), Filter{Search: "slime", SortBy: SortByPrice, Descending: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
}

func TestListRejectsUnknownSortField(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	if _, err := repo.List(context.Background(), Filter{SortBy: SortField("__table__")}); err == nil {
		t.Fatalf("expected rejection of unregistered sort field")
	}
}

func TestParseSortField(t *testing.T) {
	if _, err := ParseSortField("price"); err != nil {
		t.Fatalf("price should parse: %v", err)
	}
	if _, err := ParseSortField("id; DROP TABLE products"); err == nil {
		t.Fatalf("expected error for unrecognized field")
	}
}
