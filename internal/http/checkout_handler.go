package http

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/fjod/scoremash/internal/domain"
	"github.com/fjod/scoremash/internal/logger"
	"github.com/fjod/scoremash/internal/service"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type CheckoutHandler struct {
	checkout CheckoutService
	sessions *SessionManager
	timeout  time.Duration
	maxBody  int64
	log      logrus.FieldLogger
}

func NewCheckoutHandler(checkout CheckoutService, sessions *SessionManager, timeout time.Duration, maxBody int64, log logrus.FieldLogger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		sessions: sessions,
		timeout:  timeout,
		maxBody:  maxBody,
		log:      log,
	}
}

type ShippingRequest struct {
	FirstName  string `json:"firstName" form:"firstName"`
	LastName   string `json:"lastName" form:"lastName"`
	Address    string `json:"address" form:"address"`
	City       string `json:"city" form:"city"`
	State      string `json:"state" form:"state"`
	PostalCode string `json:"postalCode" form:"postalCode"`
	Country    string `json:"country" form:"country"`
}

type PaymentRequest struct {
	PaymentMethod string `json:"paymentMethod" form:"paymentMethod"`
	CardNumber    string `json:"cardNumber" form:"cardNumber"`
	CardHolder    string `json:"cardHolder" form:"cardHolder"`
	ExpiryDate    string `json:"expiryDate" form:"expiryDate"`
	CVV           string `json:"cvv" form:"cvv"`
}

type CheckoutPage struct {
	Step     domain.CheckoutStep  `json:"step"`
	Items    []service.CartRow    `json:"items"`
	Totals   *domain.Totals       `json:"totals,omitempty"`
	Shipping *domain.ShippingInfo `json:"shipping,omitempty"`
	Payment  *domain.PaymentInfo  `json:"payment,omitempty"`
	User     *domain.Identity     `json:"user"`
}

type ConfirmationPage struct {
	Order *domain.Order    `json:"order"`
	User  *domain.Identity `json:"user"`
}

// GET /checkout
func (h *CheckoutHandler) Shipping(w http.ResponseWriter, r *http.Request) {
	h.renderStep(w, r, domain.StepShipping)
}

// GET /checkout/payment
func (h *CheckoutHandler) Payment(w http.ResponseWriter, r *http.Request) {
	h.renderStep(w, r, domain.StepPayment)
}

// GET /checkout/review
func (h *CheckoutHandler) Review(w http.ResponseWriter, r *http.Request) {
	h.renderStep(w, r, domain.StepReview)
}

func (h *CheckoutHandler) renderStep(w http.ResponseWriter, r *http.Request, step domain.CheckoutStep) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess := sessionFrom(r.Context())
	if !sess.Draft.Allows(step) {
		redirect(w, r, "/checkout")
		return
	}

	view, rec, err := h.checkout.Summary(ctx, sess.Identity.ID, sess.Cart)
	if rec.Lines != nil && !sess.Cart.Equal(rec.Lines) {
		sess.Cart = rec.Lines.Clone()
		h.sessions.Save(r, sess)
	}
	if err != nil {
		if !errors.Is(err, service.ErrEmptyCart) {
			h.logger(r).WithError(err).Error("failed to load checkout")
		}
		redirect(w, r, "/cart")
		return
	}

	page := CheckoutPage{
		Step:     step,
		Items:    view.Items,
		Shipping: sess.Draft.Shipping,
		User:     sess.Identity,
	}
	if step == domain.StepReview {
		page.Totals = &view.Totals
		page.Payment = sess.Draft.Payment
	}
	respondJSON(w, http.StatusOK, page)
}

// POST /checkout
func (h *CheckoutHandler) SubmitShipping(w http.ResponseWriter, r *http.Request) {
	var req ShippingRequest
	if err := bind(w, r, h.maxBody, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	sess := sessionFrom(r.Context())
	err := h.checkout.SubmitShipping(&sess.Draft, domain.ShippingInfo{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Address:    req.Address,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		Country:    req.Country,
	})
	if err != nil {
		h.handleStepError(w, r, err, "/checkout")
		return
	}
	h.sessions.Save(r, sess)

	redirect(w, r, "/checkout/payment")
}

// POST /checkout/payment
func (h *CheckoutHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := bind(w, r, h.maxBody, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	sess := sessionFrom(r.Context())
	err := h.checkout.SubmitPayment(&sess.Draft, domain.CardDetails{
		Method:     domain.PaymentMethod(req.PaymentMethod),
		CardNumber: req.CardNumber,
		CardHolder: req.CardHolder,
		Expiry:     req.ExpiryDate,
		CVV:        req.CVV,
	})
	if err != nil {
		h.handleStepError(w, r, err, "/checkout/payment")
		return
	}
	h.sessions.Save(r, sess)

	redirect(w, r, "/checkout/review")
}

// POST /checkout/review places the order.
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess := sessionFrom(r.Context())
	order, err := h.checkout.PlaceOrder(ctx, sess.Identity.ID, sess.Draft)
	if err != nil {
		var serr *service.StockError
		switch {
		case errors.Is(err, service.ErrCheckoutIncomplete):
			redirect(w, r, "/checkout")
		case errors.Is(err, service.ErrEmptyCart):
			redirect(w, r, "/cart")
		case errors.As(err, &serr):
			respondError(w, http.StatusConflict, "insufficient_stock", serr.Error())
		default:
			h.logger(r).WithError(err).Error("failed to place order")
			redirect(w, r, "/checkout/review")
		}
		return
	}

	sess.Cart = domain.Cart{}
	sess.Draft = domain.CheckoutDraft{}
	h.sessions.Save(r, sess)

	redirect(w, r, "/checkout/success?order="+url.QueryEscape(order.OrderNumber))
}

// GET /checkout/success?order=
func (h *CheckoutHandler) Success(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess := sessionFrom(r.Context())
	order, err := h.checkout.Confirmation(ctx, sess.Identity.ID, r.URL.Query().Get("order"))
	if err != nil {
		if !service.IsNotFound(err) {
			h.logger(r).WithError(err).Error("failed to load order confirmation")
		}
		redirect(w, r, "/")
		return
	}

	respondJSON(w, http.StatusOK, ConfirmationPage{Order: order, User: sess.Identity})
}

func (h *CheckoutHandler) handleStepError(w http.ResponseWriter, r *http.Request, err error, retry string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   verr.Message,
			Code:    "validation_error",
			Details: verr.Field,
		})
	case errors.Is(err, service.ErrCheckoutIncomplete):
		redirect(w, r, "/checkout")
	default:
		h.logger(r).WithError(err).Error("checkout step failed")
		redirect(w, r, retry)
	}
}

func (h *CheckoutHandler) logger(r *http.Request) logrus.FieldLogger {
	log := logger.FromContext(r.Context(), h.log)
	if id := sessionFrom(r.Context()).Identity; id != nil {
		log = log.WithField("account_id", id.ID)
	}
	return log
}
