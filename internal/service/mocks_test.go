package service

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/fjod/scoremash/internal/domain"
	"github.com/fjod/scoremash/internal/repository"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// memStore is an in-memory stand-in for every repository.
type memStore struct {
	m            sync.RWMutex
	accounts     map[string]*domain.Account
	products     map[string]*domain.Product
	orders       map[string]*domain.Order
	reservations map[string]*domain.Reservation
	events       map[string]*domain.OutboxEvent

	saveCartCalls   int
	getProductCalls int
	decrementErr    map[string]error
	incrementFails  map[string]int
	createOrderErrs []error
	outboxErr       error
}

func newMemStore() *memStore {
	return &memStore{
		accounts:       make(map[string]*domain.Account),
		products:       make(map[string]*domain.Product),
		orders:         make(map[string]*domain.Order),
		reservations:   make(map[string]*domain.Reservation),
		events:         make(map[string]*domain.OutboxEvent),
		decrementErr:   make(map[string]error),
		incrementFails: make(map[string]int),
	}
}

func (s *memStore) addProduct(id string, price domain.Money, stock int) {
	s.m.Lock()
	defer s.m.Unlock()
	s.products[id] = &domain.Product{ID: id, Name: "Product " + id, Price: price, Stock: stock}
}

func (s *memStore) addAccount(id string, cart domain.Cart) {
	s.m.Lock()
	defer s.m.Unlock()
	s.accounts[id] = &domain.Account{
		ID:            id,
		Name:          "User " + id,
		Email:         id + "@example.com",
		Cart:          cart,
		Preferences:   domain.DefaultPreferences(),
		Notifications: domain.DefaultNotifications(),
	}
}

func (s *memStore) stock(id string) int {
	s.m.RLock()
	defer s.m.RUnlock()
	return s.products[id].Stock
}

func (s *memStore) cart(id string) domain.Cart {
	s.m.RLock()
	defer s.m.RUnlock()
	return s.accounts[id].Cart.Clone()
}

// AccountRepository

func (s *memStore) GetAccount(_ context.Context, id string) (*domain.Account, error) {
	s.m.RLock()
	defer s.m.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	cp := *a
	cp.Cart = a.Cart.Clone()
	return &cp, nil
}

func (s *memStore) GetAccountByEmail(_ context.Context, email string) (*domain.Account, error) {
	s.m.RLock()
	defer s.m.RUnlock()
	for _, a := range s.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (s *memStore) CreateAccount(_ context.Context, a *domain.Account) error {
	s.m.Lock()
	defer s.m.Unlock()
	for _, existing := range s.accounts {
		if existing.Email == a.Email {
			return repository.ErrDuplicateEmail
		}
	}
	cp := *a
	s.accounts[a.ID] = &cp
	return nil
}

func (s *memStore) update(id string, fn func(a *domain.Account)) error {
	s.m.Lock()
	defer s.m.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	fn(a)
	return nil
}

func (s *memStore) UpdateProfile(_ context.Context, id, name, email string) error {
	s.m.RLock()
	for _, a := range s.accounts {
		if a.ID != id && a.Email == email {
			s.m.RUnlock()
			return repository.ErrDuplicateEmail
		}
	}
	s.m.RUnlock()
	return s.update(id, func(a *domain.Account) { a.Name, a.Email = name, email })
}

func (s *memStore) UpdatePassword(_ context.Context, id, hash string) error {
	return s.update(id, func(a *domain.Account) { a.PasswordHash = hash })
}

func (s *memStore) UpdateNotifications(_ context.Context, id string, n domain.Notifications) error {
	return s.update(id, func(a *domain.Account) { a.Notifications = n })
}

func (s *memStore) UpdatePreferences(_ context.Context, id string, p domain.Preferences) error {
	return s.update(id, func(a *domain.Account) { a.Preferences = p })
}

func (s *memStore) SaveCart(_ context.Context, id string, cart domain.Cart) error {
	if cart == nil {
		cart = domain.Cart{}
	}
	return s.update(id, func(a *domain.Account) {
		s.saveCartCalls++
		a.Cart = cart.Clone()
	})
}

// ProductRepository

func (s *memStore) ListProducts(context.Context) ([]*domain.Product, error) {
	s.m.RLock()
	defer s.m.RUnlock()
	out := make([]*domain.Product, 0, len(s.products))
	for _, p := range s.products {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.m.Lock()
	defer s.m.Unlock()
	s.getProductCalls++
	p, ok := s.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) GetProducts(_ context.Context, ids []string) (map[string]*domain.Product, error) {
	s.m.RLock()
	defer s.m.RUnlock()
	out := make(map[string]*domain.Product)
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (s *memStore) UpsertProduct(_ context.Context, p *domain.Product) error {
	s.m.Lock()
	defer s.m.Unlock()
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (s *memStore) SaveReviews(_ context.Context, p *domain.Product) error {
	s.m.Lock()
	defer s.m.Unlock()
	existing, ok := s.products[p.ID]
	if !ok {
		return repository.ErrProductNotFound
	}
	existing.UserReviews = append([]domain.Review(nil), p.UserReviews...)
	existing.Rating = p.Rating
	existing.ReviewCount = p.ReviewCount
	return nil
}

func (s *memStore) DecrementStock(_ context.Context, id string, qty int) error {
	s.m.Lock()
	defer s.m.Unlock()
	if err := s.decrementErr[id]; err != nil {
		return err
	}
	p, ok := s.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	if p.Stock < qty {
		return repository.ErrInsufficientStock
	}
	p.Stock -= qty
	return nil
}

func (s *memStore) IncrementStock(_ context.Context, id string, qty int) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.incrementFails[id] > 0 {
		s.incrementFails[id]--
		return errors.New("write conflict")
	}
	p, ok := s.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.Stock += qty
	return nil
}

// OrderRepository

func (s *memStore) CreateOrder(_ context.Context, o *domain.Order) error {
	s.m.Lock()
	defer s.m.Unlock()
	if len(s.createOrderErrs) > 0 {
		err := s.createOrderErrs[0]
		s.createOrderErrs = s.createOrderErrs[1:]
		if err != nil {
			return err
		}
	}
	if _, ok := s.orders[o.OrderNumber]; ok {
		return repository.ErrDuplicateOrderNumber
	}
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	s.orders[o.OrderNumber] = &cp
	return nil
}

func (s *memStore) GetOrder(_ context.Context, number string) (*domain.Order, error) {
	s.m.RLock()
	defer s.m.RUnlock()
	o, ok := s.orders[number]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *memStore) GetOrderForUser(ctx context.Context, number, userID string) (*domain.Order, error) {
	o, err := s.GetOrder(ctx, number)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, repository.ErrOrderNotFound
	}
	return o, nil
}

func (s *memStore) GetOrderByReservation(_ context.Context, reservationID string) (*domain.Order, error) {
	s.m.RLock()
	defer s.m.RUnlock()
	for _, o := range s.orders {
		if o.ReservationID == reservationID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (s *memStore) ListRecentOrders(_ context.Context, limit int) ([]*domain.Order, error) {
	s.m.RLock()
	defer s.m.RUnlock()
	out := make([]*domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) UpdateStatus(_ context.Context, number string, from, to domain.OrderStatus) error {
	s.m.Lock()
	defer s.m.Unlock()
	o, ok := s.orders[number]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if o.Status != from {
		return repository.ErrStatusConflict
	}
	o.Status = to
	return nil
}

// ReservationRepository

func (s *memStore) CreateReservation(_ context.Context, r *domain.Reservation) error {
	s.m.Lock()
	defer s.m.Unlock()
	cp := *r
	cp.Items = append([]domain.ReservationItem(nil), r.Items...)
	s.reservations[r.ID] = &cp
	return nil
}

func (s *memStore) GetReservation(_ context.Context, id string) (*domain.Reservation, error) {
	s.m.RLock()
	defer s.m.RUnlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	cp := *r
	cp.Items = append([]domain.ReservationItem(nil), r.Items...)
	return &cp, nil
}

func (s *memStore) MarkItemApplied(_ context.Context, id string, index int) error {
	s.m.Lock()
	defer s.m.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return repository.ErrReservationNotFound
	}
	r.Items[index].Applied = true
	return nil
}

func (s *memStore) ClearItemApplied(_ context.Context, id string, index int) (bool, error) {
	s.m.Lock()
	defer s.m.Unlock()
	r, ok := s.reservations[id]
	if !ok || !r.Items[index].Applied {
		return false, nil
	}
	r.Items[index].Applied = false
	return true, nil
}

func (s *memStore) SetReservationStatus(_ context.Context, id string, from, to domain.ReservationStatus) error {
	s.m.Lock()
	defer s.m.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return repository.ErrReservationNotFound
	}
	if r.Status != from {
		return repository.ErrInvalidStatus
	}
	r.Status = to
	return nil
}

func (s *memStore) ListExpiredReservations(_ context.Context, before time.Time, limit int) ([]*domain.Reservation, error) {
	s.m.RLock()
	defer s.m.RUnlock()
	var out []*domain.Reservation
	for _, r := range s.reservations {
		if r.Status == domain.ReservationReserved && r.ExpiresAt.Before(before) {
			cp := *r
			cp.Items = append([]domain.ReservationItem(nil), r.Items...)
			out = append(out, &cp)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) reservation(id string) *domain.Reservation {
	s.m.RLock()
	defer s.m.RUnlock()
	return s.reservations[id]
}

func (s *memStore) onlyReservation() *domain.Reservation {
	s.m.RLock()
	defer s.m.RUnlock()
	for _, r := range s.reservations {
		return r
	}
	return nil
}

// OutboxRepository

func (s *memStore) AddEvent(_ context.Context, e *domain.OutboxEvent) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.outboxErr != nil {
		return s.outboxErr
	}
	key := e.EventType + "/" + e.AggregateID
	if _, ok := s.events[key]; !ok {
		cp := *e
		s.events[key] = &cp
	}
	return nil
}

func (s *memStore) GetUnprocessedEvents(_ context.Context, limit int) ([]*domain.OutboxEvent, error) {
	s.m.RLock()
	defer s.m.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range s.events {
		if e.ProcessedAt == nil {
			out = append(out, e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) MarkEventAsProcessed(_ context.Context, id string) error {
	s.m.Lock()
	defer s.m.Unlock()
	now := time.Now()
	for _, e := range s.events {
		if e.ID == id {
			e.ProcessedAt = &now
		}
	}
	return nil
}

type services struct {
	store    *memStore
	cart     *CartService
	ledger   *StockLedger
	checkout *CheckoutService
}

func newServices(opts ...CheckoutOption) *services {
	store := newMemStore()
	log := quietLogger()
	cart := NewCartService(store, store, log)
	ledger := NewStockLedger(store, store, store, store, time.Minute, log)
	checkout := NewCheckoutService(store, store, store, cart, ledger, log, opts...)
	return &services{store: store, cart: cart, ledger: ledger, checkout: checkout}
}
