package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/fjod/scoremash/internal/domain"
	"github.com/fjod/scoremash/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddItem_AdminForbidden(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.admin(t)

	rec := ts.postJSON(t, "/cart/add", sid, map[string]interface{}{"productId": "bat-01", "quantity": 1})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	res := decodeResult(t, rec)
	assert.False(t, res.Success)
	assert.Equal(t, "Admins cannot add items to cart", res.Error)
	assert.Empty(t, ts.cart.calls)
	assert.Empty(t, ts.session(t, sid).Cart)
}

func TestAddItem_Unauthorized(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.postJSON(t, "/cart/add", "", map[string]interface{}{"productId": "bat-01"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Please login to add items to cart", decodeResult(t, rec).Error)
	assert.Empty(t, ts.cart.calls)
}

func TestAddItem_Success(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.customer(t)
	ts.cart.cart = domain.Cart{{ProductID: "bat-01", Quantity: 2}}

	rec := ts.postJSON(t, "/cart/add", sid, map[string]interface{}{"productId": "bat-01", "quantity": 2})

	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeResult(t, rec)
	assert.True(t, res.Success)
	assert.Equal(t, "Product added to cart", res.Message)
	assert.Equal(t, 2, ts.cart.quantity)
	assert.Equal(t, domain.Cart{{ProductID: "bat-01", Quantity: 2}}, ts.session(t, sid).Cart)
}

func TestAddItem_DefaultsQuantityToOne(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.customer(t)

	rec := ts.postJSON(t, "/cart/add", sid, map[string]interface{}{"productId": "bat-01"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ts.cart.quantity)
}

func TestAddItem_AcceptsFormPost(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.customer(t)

	rec := ts.postForm("/cart/add", sid, url.Values{"productId": {"bat-01"}, "quantity": {"3"}})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, ts.cart.quantity)
}

func TestAddItem_RejectsUnknownFields(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.customer(t)

	rec := ts.postJSON(t, "/cart/add", sid, map[string]interface{}{"productId": "bat-01", "price": 1})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, ts.cart.calls)

	rec = ts.postForm("/cart/add", sid, url.Values{"productId": {"bat-01"}, "discount": {"50"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, ts.cart.calls)
}

func TestAddItem_ServiceErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{
			name:    "missing product id",
			err:     &service.ValidationError{Field: "productId", Message: "Product ID is required"},
			status:  http.StatusBadRequest,
			message: "Product ID is required",
		},
		{
			name:    "out of stock",
			err:     &service.StockError{Kind: service.StockOnAdd, Available: 2, InCart: 1},
			status:  http.StatusBadRequest,
			message: "Only 2 item(s) available in stock. You already have 1 in your cart.",
		},
		{
			name:    "unknown product",
			err:     service.ErrProductNotFound,
			status:  http.StatusNotFound,
			message: "Product not found",
		},
		{
			name:    "unknown account",
			err:     service.ErrAccountNotFound,
			status:  http.StatusNotFound,
			message: "User not found",
		},
		{
			name:    "store failure",
			err:     errors.New("connection reset"),
			status:  http.StatusInternalServerError,
			message: "Error adding product to cart",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			sid := ts.customer(t)
			ts.cart.err = tt.err

			rec := ts.postJSON(t, "/cart/add", sid, map[string]interface{}{"productId": "bat-01"})

			assert.Equal(t, tt.status, rec.Code)
			res := decodeResult(t, rec)
			assert.False(t, res.Success)
			assert.Equal(t, tt.message, res.Error)
		})
	}
}

func TestUpdateQuantity(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.customer(t)

	rec := ts.postJSON(t, "/cart/update", sid, map[string]interface{}{"productId": "bat-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Product ID and quantity are required", decodeResult(t, rec).Error)

	rec = ts.postJSON(t, "/cart/update", sid, map[string]interface{}{"productId": "bat-01", "quantity": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Item removed from cart", decodeResult(t, rec).Message)
	assert.Equal(t, 0, ts.cart.quantity)

	ts.cart.cart = domain.Cart{{ProductID: "bat-01", Quantity: 4}}
	rec = ts.postJSON(t, "/cart/update", sid, map[string]interface{}{"productId": "bat-01", "quantity": 4})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Cart updated", decodeResult(t, rec).Message)
	assert.Equal(t, domain.Cart{{ProductID: "bat-01", Quantity: 4}}, ts.session(t, sid).Cart)

	ts.cart.err = service.ErrLineNotFound
	rec = ts.postJSON(t, "/cart/update", sid, map[string]interface{}{"productId": "ball-01", "quantity": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Item not found in cart", decodeResult(t, rec).Error)
}

func TestRemoveItem(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.customer(t)
	ts.cart.cart = domain.Cart{}

	rec := ts.postJSON(t, "/cart/remove", sid, map[string]interface{}{"productId": "bat-01"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Item removed from cart", decodeResult(t, rec).Message)

	ts.cart.err = service.ErrEmptyCart
	rec = ts.postJSON(t, "/cart/remove", sid, map[string]interface{}{"productId": "bat-01"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Cart is empty", decodeResult(t, rec).Error)
}

func TestCount(t *testing.T) {
	ts := newTestServer(t)

	var res CountResponse
	rec := ts.get("/cart/count", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, 0, res.Count)
	assert.Empty(t, ts.cart.calls)

	sid := ts.customer(t)
	ts.cart.count = 3
	rec = ts.get("/cart/count", sid)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, 3, res.Count)

	ts.cart.err = errors.New("mongo down")
	rec = ts.get("/cart/count", sid)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, 0, res.Count)
}

func TestGetCart_RefreshesStaleSessionCopy(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.customer(t)
	stored := domain.Cart{{ProductID: "bat-01", Quantity: 1}}
	ts.cart.view = &service.CartView{
		Items:     []service.CartRow{{ProductID: "bat-01", Name: "Kashmir Willow", Price: 4999, Quantity: 1, LineTotal: 4999}},
		Subtotal:  4999,
		ItemCount: 1,
	}
	ts.cart.rec = service.Reconciliation{Lines: stored, Outcome: service.StoreWins}

	rec := ts.get("/cart", sid)

	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items     []service.CartRow `json:"items"`
		Subtotal  domain.Money      `json:"subtotal"`
		ItemCount int               `json:"itemCount"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Len(t, page.Items, 1)
	assert.Equal(t, domain.Money(4999), page.Subtotal)
	assert.Equal(t, stored, ts.session(t, sid).Cart)
}

func TestGetCart_GuestSeesEmptyCart(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get("/cart", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, ts.cart.calls)
	assert.NotNil(t, sessionCookie(rec))
}

func TestGetCart_StoreFailureShowsEmptyCart(t *testing.T) {
	ts := newTestServer(t)
	sid := ts.customer(t)
	ts.cart.err = errors.New("mongo down")

	rec := ts.get("/cart", sid)

	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items []service.CartRow `json:"items"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Empty(t, page.Items)
}
