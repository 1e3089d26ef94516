package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/slimecraft/shop/internal/auth"
	"github.com/slimecraft/shop/internal/catalog"
	"github.com/slimecraft/shop/internal/order"
)

const adminCookie = "shop_admin"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a back-office account. Lockout answers with 423 so a
// client can distinguish "wrong password" from "stop trying".
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	decision, err := h.guard.Authenticate(r.Context(), req.Email, req.Password, r.RemoteAddr)
	if err != nil {
		h.logger.Printf("login: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	switch decision {
	case auth.DecisionAuthenticated:
		token := h.sessions.Issue(req.Email)
		http.SetCookie(w, &http.Cookie{
			Name:     adminCookie,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		})
		writeJSON(w, http.StatusOK, map[string]string{"status": "authenticated"})
	case auth.DecisionLocked:
		writeError(w, http.StatusLocked, "too many failed attempts, try again later")
	default:
		writeError(w, http.StatusUnauthorized, "incorrect email or password")
	}
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(adminCookie)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	if email, ok := h.sessions.Check(c.Value); ok {
		h.guard.Logout(r.Context(), email, r.RemoteAddr)
	}
	h.sessions.Revoke(c.Value)
	http.SetCookie(w, &http.Cookie{Name: adminCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// requireAdmin gates the back-office routes behind a live session.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(adminCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		if _, ok := h.sessions.Check(c.Value); !ok {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type createAdminRequest struct {
	Forename string `json:"forename"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req createAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	violations, err := h.guard.CreateAdmin(r.Context(), req.Forename, req.Email, req.Password)
	if err != nil {
		h.logger.Printf("create admin: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if len(violations) > 0 {
		writeRejections(w, violations)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

type productRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Colour      string  `json:"colour"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
}

func (r productRequest) violations() []string {
	var msgs []string
	if r.Name == "" {
		msgs = append(msgs, "Invalid Name")
	}
	if r.Price < 0 {
		msgs = append(msgs, "Invalid Price")
	}
	if r.Stock < 0 {
		msgs = append(msgs, "Invalid Stock")
	}
	return msgs
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if msgs := req.violations(); len(msgs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"rejections": msgs})
		return
	}

	p, err := h.products.Create(r.Context(), catalog.CreateProduct{
		Name:        req.Name,
		Description: req.Description,
		Image:       req.Image,
		Colour:      req.Colour,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		h.logger.Printf("create product: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdateProduct overwrites the identified product. The target comes from
// the path, never from sniffing an id out of the body.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if msgs := req.violations(); len(msgs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"rejections": msgs})
		return
	}

	err = h.products.Update(r.Context(), catalog.UpdateProduct{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Image:       req.Image,
		Colour:      req.Colour,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Printf("update product: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	if err := h.products.Delete(r.Context(), id); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Printf("delete product: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	f := catalog.Filter{
		Search:     r.URL.Query().Get("search"),
		SortBy:     catalog.SortByName,
		Descending: r.URL.Query().Get("order") == "desc",
	}
	if s := r.URL.Query().Get("sort"); s != "" {
		field, err := catalog.ParseSortField(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.SortBy = field
	}

	products, err := h.products.List(r.Context(), f)
	if err != nil {
		h.logger.Printf("list products: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	p, err := h.products.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Printf("get product: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	threshold := 5
	if s := r.URL.Query().Get("threshold"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid threshold")
			return
		}
		threshold = n
	}

	products, err := h.products.LowStock(r.Context(), threshold)
	if err != nil {
		h.logger.Printf("low stock: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	f := order.Filter{
		Search:     r.URL.Query().Get("search"),
		SortBy:     order.SortByOrderDate,
		Descending: r.URL.Query().Get("order") == "desc",
	}
	if s := r.URL.Query().Get("sort"); s != "" {
		field, err := order.ParseSortField(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.SortBy = field
	}

	orders, err := h.orders.List(r.Context(), f)
	if err != nil {
		h.logger.Printf("list orders: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	status, err := order.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), id, status); err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Printf("update order status: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
