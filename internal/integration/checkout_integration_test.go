package integration

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/slimecraft/shop/internal/cart"
	"github.com/slimecraft/shop/internal/catalog"
	"github.com/slimecraft/shop/internal/checkout"
	"github.com/slimecraft/shop/internal/customer"
	"github.com/slimecraft/shop/internal/order"
	"github.com/slimecraft/shop/internal/sequence"
	"github.com/slimecraft/shop/internal/testutil"
)

func TestCheckoutEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	pool, cleanup := testutil.StartPostgres(ctx, t)
	t.Cleanup(cleanup)

	products := catalog.NewPostgresRepository(pool)
	customers := customer.NewPostgresRepository(pool)
	orders := order.NewPostgresRepository(pool, order.NewReferenceAllocator(sequence.NewRepository(), 0))
	store := checkout.NewPostgresStore(pool, customers, products, orders)
	processor := checkout.NewProcessor(store)

	lamp, err := products.Create(ctx, catalog.CreateProduct{
		Name: "Slime Lamp", Colour: "Green", Price: 12.99, Stock: 10,
	})
	require.NoError(t, err)

	c := cart.New()
	c.Add("Slime Lamp", 2, 12.99)

	fields := checkout.Fields{
		Forename:   "Alice",
		Surname:    "Smith",
		Email:      "alice@example.com",
		Street:     "1 High Street",
		City:       "London",
		Postcode:   "SW1A 1AA",
		CardNumber: "4111111111111111",
		ExpiryDate: "2031-12",
		CVV:        "123",
	}

	outcome, err := processor.Process(ctx, c, fields)
	require.NoError(t, err)
	require.Empty(t, outcome.Rejections)
	require.Regexp(t, regexp.MustCompile(`^SC-\d{16}$`), outcome.Reference)
	require.Equal(t, 0, c.LineCount(), "cart should be emptied after commit")

	o, lines, err := orders.FindByReference(ctx, outcome.Reference)
	require.NoError(t, err)
	require.InDelta(t, 25.98, o.TotalPrice, 0.001)
	require.Equal(t, order.StatusPaid, o.Status)
	require.Len(t, lines, 1)
	require.Equal(t, lamp.ID, lines[0].ProductID)
	require.Equal(t, 2, lines[0].Quantity)

	updated, err := products.FindByID(ctx, lamp.ID)
	require.NoError(t, err)
	require.Equal(t, 8, updated.Stock)

	// the same email on a second checkout reuses the stored customer
	c.Add("Slime Lamp", 1, 12.99)
	second, err := processor.Process(ctx, c, fields)
	require.NoError(t, err)
	require.True(t, second.Completed())
	require.NotEqual(t, outcome.Reference, second.Reference)

	cust, err := customers.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, o.CustomerID, cust.ID)
}

func TestCheckoutInsufficientStockRollsBack(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	pool, cleanup := testutil.StartPostgres(ctx, t)
	t.Cleanup(cleanup)

	products := catalog.NewPostgresRepository(pool)
	customers := customer.NewPostgresRepository(pool)
	orders := order.NewPostgresRepository(pool, order.NewReferenceAllocator(sequence.NewRepository(), 0))
	processor := checkout.NewProcessor(checkout.NewPostgresStore(pool, customers, products, orders))

	mug, err := products.Create(ctx, catalog.CreateProduct{Name: "Slime Mug", Price: 6.50, Stock: 1})
	require.NoError(t, err)

	c := cart.New()
	c.Add("Slime Mug", 3, 6.50)

	_, err = processor.Process(ctx, c, checkout.Fields{
		Forename:   "Bob",
		Surname:    "Jones",
		Email:      "bob@example.com",
		Street:     "2 Low Road",
		City:       "Leeds",
		Postcode:   "LS1 4AP",
		CardNumber: "4111111111111111",
		ExpiryDate: "2031-12",
		CVV:        "999",
	})
	require.ErrorIs(t, err, catalog.ErrInsufficientStock)

	// nothing from the failed transaction may be visible
	require.Equal(t, 1, c.LineCount(), "cart keeps its line")
	unchanged, err := products.FindByID(ctx, mug.ID)
	require.NoError(t, err)
	require.Equal(t, 1, unchanged.Stock)

	_, err = customers.FindByEmail(ctx, "bob@example.com")
	require.ErrorIs(t, err, customer.ErrNotFound)
}
