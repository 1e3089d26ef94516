package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slimecraft/shop/internal/cart"
	"github.com/slimecraft/shop/internal/catalog"
	"github.com/slimecraft/shop/internal/customer"
	"github.com/slimecraft/shop/internal/order"
	"github.com/slimecraft/shop/internal/validate"
)

// ErrEmptyCart rejects a checkout with nothing in it.
var ErrEmptyCart = errors.New("cart is empty")

const shippingLeadDays = 7

// Fields carries the raw customer and payment form values. Card data is
// validated for shape only; it is never stored or charged.
type Fields struct {
	Forename   string
	Surname    string
	Email      string
	Street     string
	City       string
	Postcode   string
	CardNumber string
	ExpiryDate string
	CVV        string
}

// Outcome is either a rejection carrying every accumulated violation, or a
// completed order identified by its reference number.
type Outcome struct {
	Rejections []validate.Violation
	Reference  string
}

// Completed reports whether an order was created.
func (o Outcome) Completed() bool {
	return len(o.Rejections) == 0 && o.Reference != ""
}

// Tx is the persistence collaborator for one checkout transaction. Every
// method runs on the same underlying transaction; the whole set commits or
// rolls back together.
type Tx interface {
	FindCustomerByEmail(ctx context.Context, email string) (customer.Customer, error)
	CreateCustomer(ctx context.Context, c customer.Customer) (customer.Customer, error)
	CreateOrder(ctx context.Context, o *order.Order) error
	FindProductByName(ctx context.Context, name string) (catalog.Product, error)
	DecrementStock(ctx context.Context, productID int64, amount int) error
	InsertOrderLine(ctx context.Context, l *order.Line) error
}

// Store opens checkout transactions.
type Store interface {
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}

// Processor turns a cart plus raw form fields into a persisted order or a
// rejection.
type Processor struct {
	store   Store
	nowFunc func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithClock overrides the time source used for order dates and expiry
// validation.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.nowFunc = now }
}

func NewProcessor(store Store, opts ...Option) *Processor {
	p := &Processor{store: store, nowFunc: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs the full checkout. Validation accumulates every violation
// before anything is persisted; a rejected checkout leaves the cart and the
// catalog untouched. On acceptance the customer lookup, order insert, stock
// decrements and order lines are one transaction, and the cart is cleared
// only after it commits.
func (p *Processor) Process(ctx context.Context, c *cart.Cart, f Fields) (Outcome, error) {
	if rejections := p.validateFields(f); len(rejections) > 0 {
		return Outcome{Rejections: rejections}, nil
	}

	// one snapshot for the whole checkout, so a concurrent cart mutation
	// cannot desync the stored total from the persisted lines
	lines := c.Lines()
	if len(lines) == 0 {
		return Outcome{}, ErrEmptyCart
	}
	total := 0.0
	for _, l := range lines {
		total += l.Total()
	}

	now := p.nowFunc()
	o := order.Order{
		TotalPrice:   total,
		OrderDate:    now,
		ShippingDate: now.AddDate(0, 0, shippingLeadDays),
		Status:       order.StatusPaid,
	}

	err := p.store.RunInTx(ctx, func(tx Tx) error {
		cust, err := p.findOrCreateCustomer(ctx, tx, f)
		if err != nil {
			return err
		}
		o.CustomerID = cust.ID

		if err := tx.CreateOrder(ctx, &o); err != nil {
			return err
		}

		for _, line := range lines {
			product, err := tx.FindProductByName(ctx, line.Name)
			if err != nil {
				return fmt.Errorf("product %q: %w", line.Name, err)
			}
			if err := tx.DecrementStock(ctx, product.ID, line.Quantity); err != nil {
				return fmt.Errorf("product %q: %w", line.Name, err)
			}
			ol := order.Line{
				OrderID:   o.ID,
				ProductID: product.ID,
				Quantity:  line.Quantity,
				Price:     line.UnitPrice,
			}
			if err := tx.InsertOrderLine(ctx, &ol); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	c.Clear()
	return Outcome{Reference: o.Reference}, nil
}

// validateFields runs the full pipeline in the fixed field order; nothing
// short-circuits, so the caller receives every violation at once.
func (p *Processor) validateFields(f Fields) []validate.Violation {
	v := validate.New(validate.WithClock(p.nowFunc))
	v.Reset()

	v.Alphabetic("Forename", f.Forename)
	v.Alphabetic("Surname", f.Surname)
	v.Email(f.Email)
	v.Alphabetic("City", f.City)
	v.Postcode(f.Postcode)
	v.Numeric("Card Number", f.CardNumber)
	v.ExpiryDate(f.ExpiryDate)
	v.Numeric("CVV", f.CVV)

	for _, field := range []struct {
		name  string
		value string
	}{
		{"Forename", f.Forename},
		{"Surname", f.Surname},
		{"Email", f.Email},
		{"Street", f.Street},
		{"City", f.City},
		{"Postcode", f.Postcode},
		{"Card Number", f.CardNumber},
		{"Expiry Date", f.ExpiryDate},
		{"CVV", f.CVV},
	} {
		v.MaxLength(field.name, field.value, validate.MaxFieldLength)
	}

	return v.Violations()
}

// findOrCreateCustomer reuses an existing customer as-is; stored details
// are never updated from a later checkout.
func (p *Processor) findOrCreateCustomer(ctx context.Context, tx Tx, f Fields) (customer.Customer, error) {
	cust, err := tx.FindCustomerByEmail(ctx, f.Email)
	if err == nil {
		return cust, nil
	}
	if !errors.Is(err, customer.ErrNotFound) {
		return customer.Customer{}, err
	}

	return tx.CreateCustomer(ctx, customer.Customer{
		Forename: f.Forename,
		Surname:  f.Surname,
		Email:    f.Email,
		Street:   f.Street,
		City:     f.City,
		Postcode: f.Postcode,
	})
}
