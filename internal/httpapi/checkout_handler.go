package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/slimecraft/shop/internal/catalog"
	"github.com/slimecraft/shop/internal/checkout"
	"github.com/slimecraft/shop/internal/customer"
	"github.com/slimecraft/shop/internal/order"
)

type checkoutRequest struct {
	Forename   string `json:"forename"`
	Surname    string `json:"surname"`
	Email      string `json:"email"`
	Street     string `json:"street"`
	City       string `json:"city"`
	Postcode   string `json:"postcode"`
	CardNumber string `json:"cardNumber"`
	ExpiryDate string `json:"expiryDate"`
	CVV        string `json:"cvv"`
}

// Checkout turns the session cart into an order. A validation rejection
// returns every accumulated message; the cart survives any failure and is
// emptied only once the order is committed.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	c := h.carts.Get(h.cartToken(w, r))
	outcome, err := h.checkout.Process(r.Context(), c, checkout.Fields{
		Forename:   req.Forename,
		Surname:    req.Surname,
		Email:      req.Email,
		Street:     req.Street,
		City:       req.City,
		Postcode:   req.Postcode,
		CardNumber: req.CardNumber,
		ExpiryDate: req.ExpiryDate,
		CVV:        req.CVV,
	})
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrEmptyCart):
			writeError(w, http.StatusConflict, "cart is empty")
		case errors.Is(err, catalog.ErrInsufficientStock):
			writeError(w, http.StatusConflict, "insufficient stock")
		case errors.Is(err, catalog.ErrNotFound):
			writeError(w, http.StatusConflict, "product no longer available")
		default:
			h.logger.Printf("checkout: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	if !outcome.Completed() {
		writeRejections(w, outcome.Rejections)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"referenceNumber": outcome.Reference})
}

type trackedOrder struct {
	ReferenceNumber string       `json:"referenceNumber"`
	TotalPrice      float64      `json:"totalPrice"`
	OrderDate       string       `json:"orderDate"`
	ShippingDate    string       `json:"shippingDate"`
	Status          order.Status `json:"status"`
	Lines           []order.Line `json:"lines"`
}

// TrackOrder looks an order up by reference number and the email it was
// placed under. Requiring both means a reference alone leaks nothing.
func (h *Handler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("reference")
	email := r.URL.Query().Get("email")
	if ref == "" || email == "" {
		writeError(w, http.StatusBadRequest, "reference and email are required")
		return
	}

	cust, err := h.customers.FindByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Printf("track order: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	o, lines, err := h.orders.FindByReference(r.Context(), ref)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Printf("track order: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if o.CustomerID != cust.ID {
		// same response as an unknown reference, so ownership cannot be probed
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	writeJSON(w, http.StatusOK, trackedOrder{
		ReferenceNumber: o.Reference,
		TotalPrice:      o.TotalPrice,
		OrderDate:       o.OrderDate.Format("2006-01-02"),
		ShippingDate:    o.ShippingDate.Format("2006-01-02"),
		Status:          o.Status,
		Lines:           lines,
	})
}
