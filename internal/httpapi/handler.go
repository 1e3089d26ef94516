package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/slimecraft/shop/internal/auth"
	"github.com/slimecraft/shop/internal/cart"
	"github.com/slimecraft/shop/internal/catalog"
	"github.com/slimecraft/shop/internal/checkout"
	"github.com/slimecraft/shop/internal/customer"
	"github.com/slimecraft/shop/internal/order"
	"github.com/slimecraft/shop/internal/validate"
)

// ProductCatalog is the catalog surface the handlers need.
type ProductCatalog interface {
	FindByID(ctx context.Context, id int64) (catalog.Product, error)
	FindByName(ctx context.Context, name string) (catalog.Product, error)
	Create(ctx context.Context, req catalog.CreateProduct) (catalog.Product, error)
	Update(ctx context.Context, req catalog.UpdateProduct) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f catalog.Filter) ([]catalog.Product, error)
	LowStock(ctx context.Context, threshold int) ([]catalog.Product, error)
}

// OrderBook is the order surface the handlers need.
type OrderBook interface {
	FindByReference(ctx context.Context, ref string) (order.Order, []order.Line, error)
	List(ctx context.Context, f order.Filter) ([]order.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, status order.Status) error
}

type CustomerLookup interface {
	FindByEmail(ctx context.Context, email string) (customer.Customer, error)
}

type CheckoutRunner interface {
	Process(ctx context.Context, c *cart.Cart, f checkout.Fields) (checkout.Outcome, error)
}

// LoginGuard is the back-office authentication surface.
type LoginGuard interface {
	Authenticate(ctx context.Context, email, password, sourceAddr string) (auth.Decision, error)
	Logout(ctx context.Context, email, sourceAddr string)
	CreateAdmin(ctx context.Context, forename, email, password string) ([]validate.Violation, error)
}

type Handler struct {
	logger    *log.Logger
	carts     *cart.Store
	products  ProductCatalog
	orders    OrderBook
	customers CustomerLookup
	checkout  CheckoutRunner
	guard     LoginGuard
	sessions  *auth.Sessions
}

func NewHandler(
	logger *log.Logger,
	carts *cart.Store,
	products ProductCatalog,
	orders OrderBook,
	customers CustomerLookup,
	co CheckoutRunner,
	guard LoginGuard,
	sessions *auth.Sessions,
) *Handler {
	return &Handler{
		logger:    logger,
		carts:     carts,
		products:  products,
		orders:    orders,
		customers: customers,
		checkout:  co,
		guard:     guard,
		sessions:  sessions,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeRejections carries every accumulated validation message back to the
// caller in one response.
func writeRejections(w http.ResponseWriter, violations []validate.Violation) {
	msgs := make([]string, len(violations))
	for i, v := range violations {
		msgs[i] = v.Message
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"rejections": msgs})
}
