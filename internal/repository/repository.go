package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/scoremash/internal/domain"
)

var (
	ErrAccountNotFound      = errors.New("user not found")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrProductNotFound      = errors.New("product not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrOrderNotFound        = errors.New("order not found")
	ErrDuplicateOrderNumber = errors.New("order number already exists")
	ErrStatusConflict       = errors.New("order status changed concurrently")
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrInvalidStatus        = errors.New("reservation is not in the expected status")
)

// Consumers depend on these interfaces, not on the MongoDB implementations.

type AccountRepository interface {
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	CreateAccount(ctx context.Context, account *domain.Account) error
	UpdateProfile(ctx context.Context, id, name, email string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateNotifications(ctx context.Context, id string, n domain.Notifications) error
	UpdatePreferences(ctx context.Context, id string, p domain.Preferences) error
	// SaveCart replaces the whole cart array; concurrent writers race last-write-wins.
	SaveCart(ctx context.Context, id string, cart domain.Cart) error
}

type ProductRepository interface {
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetProducts(ctx context.Context, ids []string) (map[string]*domain.Product, error)
	UpsertProduct(ctx context.Context, p *domain.Product) error
	SaveReviews(ctx context.Context, p *domain.Product) error
	// DecrementStock succeeds only when stock >= qty.
	DecrementStock(ctx context.Context, id string, qty int) error
	IncrementStock(ctx context.Context, id string, qty int) error
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, orderNumber string) (*domain.Order, error)
	GetOrderForUser(ctx context.Context, orderNumber, userID string) (*domain.Order, error)
	GetOrderByReservation(ctx context.Context, reservationID string) (*domain.Order, error)
	ListRecentOrders(ctx context.Context, limit int) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, orderNumber string, from, to domain.OrderStatus) error
}

type ReservationRepository interface {
	CreateReservation(ctx context.Context, r *domain.Reservation) error
	GetReservation(ctx context.Context, id string) (*domain.Reservation, error)
	MarkItemApplied(ctx context.Context, id string, index int) error
	// ClearItemApplied reports false when the item was not applied.
	ClearItemApplied(ctx context.Context, id string, index int) (bool, error)
	SetReservationStatus(ctx context.Context, id string, from, to domain.ReservationStatus) error
	ListExpiredReservations(ctx context.Context, before time.Time, limit int) ([]*domain.Reservation, error)
}

type OutboxRepository interface {
	// AddEvent is idempotent per aggregate id and event type.
	AddEvent(ctx context.Context, event *domain.OutboxEvent) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id string) error
}
