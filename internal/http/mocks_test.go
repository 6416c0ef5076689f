package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/scoremash/internal/domain"
	"github.com/fjod/scoremash/internal/service"
	"github.com/fjod/scoremash/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const testCookie = "scoremash.sid"

type mockCart struct {
	view     *service.CartView
	rec      service.Reconciliation
	cart     domain.Cart
	count    int
	err      error
	calls    []string
	quantity int
}

func (m *mockCart) View(context.Context, string, domain.Cart) (*service.CartView, service.Reconciliation, error) {
	m.calls = append(m.calls, "view")
	if m.err != nil {
		return nil, service.Reconciliation{}, m.err
	}
	return m.view, m.rec, nil
}

func (m *mockCart) Add(_ context.Context, _, _ string, qty int) (domain.Cart, error) {
	m.calls = append(m.calls, "add")
	m.quantity = qty
	return m.cart, m.err
}

func (m *mockCart) Update(_ context.Context, _, _ string, qty int) (domain.Cart, error) {
	m.calls = append(m.calls, "update")
	m.quantity = qty
	return m.cart, m.err
}

func (m *mockCart) Remove(context.Context, string, string) (domain.Cart, error) {
	m.calls = append(m.calls, "remove")
	return m.cart, m.err
}

func (m *mockCart) Count(context.Context, string, domain.Cart) (int, service.Reconciliation, error) {
	m.calls = append(m.calls, "count")
	return m.count, m.rec, m.err
}

// mockCheckout validates forms with the real service and fakes everything
// that needs storage.
type mockCheckout struct {
	*service.CheckoutService
	summary    *service.CheckoutView
	summaryErr error
	order      *domain.Order
	placeErr   error
	confirmErr error
	placed     int
}

func newMockCheckout() *mockCheckout {
	return &mockCheckout{
		CheckoutService: service.NewCheckoutService(nil, nil, nil, nil, nil, quietLogger()),
	}
}

func (m *mockCheckout) Summary(context.Context, string, domain.Cart) (*service.CheckoutView, service.Reconciliation, error) {
	return m.summary, service.Reconciliation{}, m.summaryErr
}

func (m *mockCheckout) PlaceOrder(context.Context, string, domain.CheckoutDraft) (*domain.Order, error) {
	m.placed++
	return m.order, m.placeErr
}

func (m *mockCheckout) Confirmation(_ context.Context, accountID, orderNumber string) (*domain.Order, error) {
	if m.confirmErr != nil {
		return nil, m.confirmErr
	}
	if m.order == nil || m.order.OrderNumber != orderNumber || m.order.UserID != accountID {
		return nil, service.ErrOrderNotFound
	}
	return m.order, nil
}

type mockAccounts struct {
	identity *domain.Identity
	account  *domain.Account
	err      error
	saved    interface{}
}

func (m *mockAccounts) SignIn(context.Context, string, string) (*domain.Identity, error) {
	return m.identity, m.err
}

func (m *mockAccounts) SignUp(_ context.Context, in service.SignUpInput) (*domain.Identity, error) {
	m.saved = in
	return m.identity, m.err
}

func (m *mockAccounts) ResetPassword(context.Context, string, string, string) error {
	return m.err
}

func (m *mockAccounts) Get(context.Context, string) (*domain.Account, error) {
	if m.account == nil {
		return nil, service.ErrAccountNotFound
	}
	return m.account, nil
}

func (m *mockAccounts) UpdateProfile(_ context.Context, id, name, email string) (*domain.Identity, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Identity{ID: id, Name: name, Email: email}, nil
}

func (m *mockAccounts) ChangePassword(context.Context, string, string, string, string) error {
	return m.err
}

func (m *mockAccounts) UpdateNotifications(_ context.Context, _ string, n domain.Notifications) error {
	m.saved = n
	return m.err
}

func (m *mockAccounts) UpdatePreferences(_ context.Context, _ string, in service.PreferencesInput) (domain.Preferences, error) {
	m.saved = in
	return domain.DefaultPreferences(), m.err
}

type mockCatalog struct {
	catalog  *service.Catalog
	detail   *service.ProductDetail
	err      error
	replaced bool
	rating   int
}

func (m *mockCatalog) List(context.Context) (*service.Catalog, error) {
	return m.catalog, m.err
}

func (m *mockCatalog) Detail(context.Context, string, string) (*service.ProductDetail, error) {
	return m.detail, m.err
}

func (m *mockCatalog) AddReview(_ context.Context, _, _ string, rating int, _ string) (bool, error) {
	m.rating = rating
	return m.replaced, m.err
}

type mockOrders struct {
	orders []*domain.Order
	err    error
}

func (m *mockOrders) Recent(context.Context) ([]*domain.Order, error) {
	return m.orders, m.err
}

func (m *mockOrders) UpdateStatus(_ context.Context, number string, next domain.OrderStatus) (*domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Order{OrderNumber: number, Status: next}, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type testServer struct {
	handler  http.Handler
	store    *session.RedisStore
	cart     *mockCart
	checkout *mockCheckout
	accounts *mockAccounts
	catalog  *mockCatalog
	orders   *mockOrders
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ts := &testServer{
		store:    session.NewRedisStore(client, 10*time.Minute),
		cart:     &mockCart{},
		checkout: newMockCheckout(),
		accounts: &mockAccounts{},
		catalog:  &mockCatalog{},
		orders:   &mockOrders{},
	}

	log := quietLogger()
	timeout := 5 * time.Second
	const maxBody = 1 << 20
	sessions := NewSessionManager(ts.store, testCookie, 10*time.Minute, false, log)

	ts.handler = NewRouter(RouterConfig{
		ServiceName:    "scoremash-test",
		RequestTimeout: timeout,
		Sessions:       sessions,
		Log:            log,
	}, Handlers{
		Cart:     NewCartHandler(ts.cart, sessions, timeout, maxBody, log),
		Checkout: NewCheckoutHandler(ts.checkout, sessions, timeout, maxBody, log),
		Auth:     NewAuthHandler(ts.accounts, sessions, timeout, maxBody, log),
		Settings: NewSettingsHandler(ts.accounts, sessions, timeout, maxBody, log),
		Shop:     NewShopHandler(ts.catalog, timeout, maxBody, log),
		Orders:   NewOrdersHandler(ts.orders, timeout, maxBody, log),
	})
	return ts
}

// login stores a session for identity and returns its id.
func (ts *testServer) login(t *testing.T, identity *domain.Identity) string {
	t.Helper()
	sess := session.New()
	sess.Identity = identity
	require.NoError(t, ts.store.Save(context.Background(), sess))
	return sess.ID
}

func (ts *testServer) customer(t *testing.T) string {
	return ts.login(t, &domain.Identity{ID: "u1", Name: "Asha", Email: "asha@example.com"})
}

func (ts *testServer) admin(t *testing.T) string {
	return ts.login(t, &domain.Identity{ID: domain.AdminID, Name: "Admin", Email: "admin@scoremash.local", IsAdmin: true})
}

func (ts *testServer) session(t *testing.T, id string) *domain.Session {
	t.Helper()
	sess, err := ts.store.Get(context.Background(), id)
	require.NoError(t, err)
	return sess
}

func (ts *testServer) do(req *http.Request, sid string) *httptest.ResponseRecorder {
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: testCookie, Value: sid})
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) get(path, sid string) *httptest.ResponseRecorder {
	return ts.do(httptest.NewRequest(http.MethodGet, path, nil), sid)
}

func (ts *testServer) postJSON(t *testing.T, path, sid string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return ts.do(req, sid)
}

func (ts *testServer) postForm(path, sid string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return ts.do(req, sid)
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) Result {
	t.Helper()
	var res Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	return res
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var res ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	return res
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookie {
			return c
		}
	}
	return nil
}

func newPost(path string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}
