package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/scoremash/internal/domain"
	"github.com/fjod/scoremash/internal/logger"
	"github.com/fjod/scoremash/internal/service"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type CartHandler struct {
	cart     CartService
	sessions *SessionManager
	timeout  time.Duration
	maxBody  int64
	log      logrus.FieldLogger
}

func NewCartHandler(cart CartService, sessions *SessionManager, timeout time.Duration, maxBody int64, log logrus.FieldLogger) *CartHandler {
	return &CartHandler{
		cart:     cart,
		sessions: sessions,
		timeout:  timeout,
		maxBody:  maxBody,
		log:      log,
	}
}

type AddItemRequest struct {
	ProductID string `json:"productId" form:"productId"`
	Quantity  *int   `json:"quantity" form:"quantity"`
}

type UpdateItemRequest struct {
	ProductID string `json:"productId" form:"productId"`
	Quantity  *int   `json:"quantity" form:"quantity"`
}

type RemoveItemRequest struct {
	ProductID string `json:"productId" form:"productId"`
}

type CartPage struct {
	*service.CartView
	User *domain.Identity `json:"user"`
}

type CountResponse struct {
	Count int `json:"count"`
}

// GET /cart
// Anyone can look at the cart page; only customers have a cart to show.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess := sessionFrom(r.Context())
	page := CartPage{CartView: &service.CartView{Items: []service.CartRow{}}, User: sess.Identity}
	if !sess.LoggedIn() || sess.IsAdmin() {
		respondJSON(w, http.StatusOK, page)
		return
	}

	view, rec, err := h.cart.View(ctx, sess.Identity.ID, sess.Cart)
	if err != nil {
		h.logger(r).WithError(err).Error("failed to load cart")
		respondJSON(w, http.StatusOK, page)
		return
	}
	h.syncSession(r, sess, rec.Lines)

	page.CartView = view
	respondJSON(w, http.StatusOK, page)
}

// POST /cart/add
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequest
	if err := bind(w, r, h.maxBody, &req); err != nil {
		respondFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	sess := sessionFrom(r.Context())
	cart, err := h.cart.Add(ctx, sess.Identity.ID, req.ProductID, qty)
	if err != nil {
		h.handleCartError(w, r, err, "Error adding product to cart")
		return
	}
	h.syncSession(r, sess, cart)

	respondResult(w, http.StatusOK, "Product added to cart")
}

// POST /cart/update
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateItemRequest
	if err := bind(w, r, h.maxBody, &req); err != nil {
		respondFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ProductID == "" || req.Quantity == nil {
		respondFailure(w, http.StatusBadRequest, "Product ID and quantity are required")
		return
	}

	sess := sessionFrom(r.Context())
	cart, err := h.cart.Update(ctx, sess.Identity.ID, req.ProductID, *req.Quantity)
	if err != nil {
		h.handleCartError(w, r, err, "Error updating cart")
		return
	}
	h.syncSession(r, sess, cart)

	if *req.Quantity <= 0 {
		respondResult(w, http.StatusOK, "Item removed from cart")
		return
	}
	respondResult(w, http.StatusOK, "Cart updated")
}

// POST /cart/remove
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req RemoveItemRequest
	if err := bind(w, r, h.maxBody, &req); err != nil {
		respondFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sess := sessionFrom(r.Context())
	cart, err := h.cart.Remove(ctx, sess.Identity.ID, req.ProductID)
	if err != nil {
		h.handleCartError(w, r, err, "Error removing item from cart")
		return
	}
	h.syncSession(r, sess, cart)

	respondResult(w, http.StatusOK, "Item removed from cart")
}

// GET /cart/count never fails; the badge shows 0 instead.
func (h *CartHandler) Count(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess := sessionFrom(r.Context())
	if !sess.LoggedIn() || sess.IsAdmin() {
		respondJSON(w, http.StatusOK, CountResponse{})
		return
	}

	count, rec, err := h.cart.Count(ctx, sess.Identity.ID, sess.Cart)
	if err != nil {
		h.logger(r).WithError(err).Warn("cart count failed")
		respondJSON(w, http.StatusOK, CountResponse{})
		return
	}
	h.syncSession(r, sess, rec.Lines)

	respondJSON(w, http.StatusOK, CountResponse{Count: count})
}

// syncSession keeps the session mirror of the cart equal to the stored cart.
func (h *CartHandler) syncSession(r *http.Request, sess *domain.Session, lines domain.Cart) {
	if sess.Cart.Equal(lines) {
		return
	}
	sess.Cart = lines.Clone()
	h.sessions.Save(r, sess)
}

func (h *CartHandler) handleCartError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, message, ok := userError(err)
	if !ok {
		h.logger(r).WithError(err).Error(fallback)
		respondFailure(w, http.StatusInternalServerError, fallback)
		return
	}
	respondFailure(w, status, message)
}

func (h *CartHandler) logger(r *http.Request) logrus.FieldLogger {
	log := logger.FromContext(r.Context(), h.log)
	if id := sessionFrom(r.Context()).Identity; id != nil {
		log = log.WithField("account_id", id.ID)
	}
	return log
}

// userError maps service errors to a status and a message fit for the browser.
// ok is false for unexpected failures, which must not leak to the client.
func userError(err error) (status int, message string, ok bool) {
	var verr *service.ValidationError
	var serr *service.StockError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message, true
	case errors.As(err, &serr):
		return http.StatusBadRequest, serr.Error(), true
	case errors.Is(err, service.ErrProductNotFound):
		return http.StatusNotFound, "Product not found", true
	case errors.Is(err, service.ErrAccountNotFound):
		return http.StatusNotFound, "User not found", true
	case errors.Is(err, service.ErrLineNotFound):
		return http.StatusNotFound, "Item not found in cart", true
	case errors.Is(err, service.ErrEmptyCart):
		return http.StatusNotFound, "Cart is empty", true
	case errors.Is(err, service.ErrOrderNotFound):
		return http.StatusNotFound, "Order not found", true
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password", true
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict, "Email already registered", true
	case errors.Is(err, service.ErrIllegalTransition):
		return http.StatusConflict, "Order status cannot change that way", true
	}
	return 0, "", false
}
