package http

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/fjod/scoremash/internal/domain"
	"github.com/fjod/scoremash/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminOrders_Gate(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get("/admin/orders", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.get("/admin/orders", ts.customer(t))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminOrders_List(t *testing.T) {
	ts := newTestServer(t)
	ts.orders.orders = []*domain.Order{{
		OrderNumber: "ORD-1",
		UserID:      "u1",
		Items:       []domain.OrderItem{{ProductID: "bat-01", Quantity: 2}},
		Totals:      domain.Totals{Total: 11098},
		Status:      domain.OrderStatusPending,
		CreatedAt:   time.Now(),
	}}

	rec := ts.get("/admin/orders", ts.admin(t))

	require.Equal(t, http.StatusOK, rec.Code)
	var dtos []OrderSummaryDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&dtos))
	require.Len(t, dtos, 1)
	assert.Equal(t, 2, dtos[0].ItemCount)
	assert.Equal(t, domain.Money(11098), dtos[0].Total)
}

func TestAdminOrders_UpdateStatus(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.admin(t)

	rec := ts.postJSON(t, "/admin/orders/ORD-1/status", sid, map[string]string{"status": "processing"})
	require.Equal(t, http.StatusOK, rec.Code)
	var dto OrderSummaryDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&dto))
	assert.Equal(t, domain.OrderStatusProcessing, dto.Status)

	ts.orders.err = service.ErrIllegalTransition
	rec = ts.postJSON(t, "/admin/orders/ORD-1/status", sid, map[string]string{"status": "pending"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	ts.orders.err = service.ErrOrderNotFound
	rec = ts.postJSON(t, "/admin/orders/ORD-404/status", sid, map[string]string{"status": "shipped"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	ts.orders.err = &service.ValidationError{Field: "status", Message: "Invalid order status"}
	rec = ts.postJSON(t, "/admin/orders/ORD-1/status", sid, map[string]string{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid order status", decodeError(t, rec).Error)
}
