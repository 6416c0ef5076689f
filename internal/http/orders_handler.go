package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/scoremash/internal/domain"
	"github.com/fjod/scoremash/internal/logger"
	"github.com/fjod/scoremash/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// OrdersHandler serves the admin order desk.
type OrdersHandler struct {
	orders  OrderService
	timeout time.Duration
	maxBody int64
	log     logrus.FieldLogger
}

func NewOrdersHandler(orders OrderService, timeout time.Duration, maxBody int64, log logrus.FieldLogger) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
		maxBody: maxBody,
		log:     log,
	}
}

type StatusRequest struct {
	Status string `json:"status" form:"status"`
}

type OrderSummaryDTO struct {
	OrderNumber string             `json:"orderNumber"`
	UserID      string             `json:"userId"`
	ItemCount   int                `json:"itemCount"`
	Total       domain.Money       `json:"total"`
	Status      domain.OrderStatus `json:"status"`
	CreatedAt   time.Time          `json:"createdAt"`
}

func convertOrder(o *domain.Order) OrderSummaryDTO {
	return OrderSummaryDTO{
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		ItemCount:   o.ItemCount(),
		Total:       o.Total,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
	}
}

// GET /admin/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.orders.Recent(ctx)
	if err != nil {
		logger.FromContext(r.Context(), h.log).WithError(err).Error("failed to list orders")
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load orders")
		return
	}

	dtos := make([]OrderSummaryDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, convertOrder(o))
	}
	respondJSON(w, http.StatusOK, dtos)
}

// POST /admin/orders/{orderNumber}/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderNumber := chi.URLParam(r, "orderNumber")
	if orderNumber == "" {
		respondError(w, http.StatusBadRequest, "missing_order_number", "order number is required")
		return
	}

	var req StatusRequest
	if err := bind(w, r, h.maxBody, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	order, err := h.orders.UpdateStatus(ctx, orderNumber, domain.OrderStatus(req.Status))
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			respondError(w, http.StatusBadRequest, "invalid_status", verr.Message)
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(w, http.StatusNotFound, "not_found", "Order not found")
		case errors.Is(err, service.ErrIllegalTransition):
			respondError(w, http.StatusConflict, "illegal_transition", err.Error())
		default:
			logger.FromContext(r.Context(), h.log).WithError(err).WithField("order_number", orderNumber).Error("failed to update order status")
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to update order")
		}
		return
	}

	respondJSON(w, http.StatusOK, convertOrder(order))
}
