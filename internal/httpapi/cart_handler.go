package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/slimecraft/shop/internal/cart"
	"github.com/slimecraft/shop/internal/catalog"
)

const cartCookie = "shop_cart"

// cartToken resolves the caller's cart session, issuing a fresh token and
// cookie when none is present.
func (h *Handler) cartToken(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(cartCookie); err == nil && c.Value != "" {
		return c.Value
	}
	token := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     cartCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return token
}

type cartResponse struct {
	Items      []cartItem `json:"items"`
	TotalPrice float64    `json:"totalPrice"`
}

type cartItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Total     float64 `json:"total"`
}

func cartToResponse(c *cart.Cart) cartResponse {
	resp := cartResponse{Items: []cartItem{}, TotalPrice: c.TotalPrice()}
	for _, l := range c.Lines() {
		resp.Items = append(resp.Items, cartItem{
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Total:     l.Total(),
		})
	}
	return resp
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c := h.carts.Get(h.cartToken(w, r))
	writeJSON(w, http.StatusOK, cartToResponse(c))
}

type addItemRequest struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// AddItem puts a product in the cart at its current catalog price. A line
// already in the cart keeps the price it was added at.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" || req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "name and a positive quantity are required")
		return
	}

	p, err := h.products.FindByName(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown product")
			return
		}
		h.logger.Printf("add item: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	c := h.carts.Get(h.cartToken(w, r))
	c.Add(p.Name, req.Quantity, p.Price)
	writeJSON(w, http.StatusOK, cartToResponse(c))
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) SetItemQuantity(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req setQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	c := h.carts.Get(h.cartToken(w, r))
	if req.Quantity <= 0 {
		c.Remove(name)
	} else {
		c.SetQuantity(name, req.Quantity)
	}
	writeJSON(w, http.StatusOK, cartToResponse(c))
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c := h.carts.Get(h.cartToken(w, r))
	c.Remove(chi.URLParam(r, "name"))
	writeJSON(w, http.StatusOK, cartToResponse(c))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	c := h.carts.Get(h.cartToken(w, r))
	c.Clear()
	writeJSON(w, http.StatusOK, cartToResponse(c))
}
