package http

import (
	"context"

	"github.com/fjod/scoremash/internal/domain"
	"github.com/fjod/scoremash/internal/service"
)

type CartService interface {
	View(ctx context.Context, accountID string, cached domain.Cart) (*service.CartView, service.Reconciliation, error)
	Add(ctx context.Context, accountID, productID string, qty int) (domain.Cart, error)
	Update(ctx context.Context, accountID, productID string, qty int) (domain.Cart, error)
	Remove(ctx context.Context, accountID, productID string) (domain.Cart, error)
	Count(ctx context.Context, accountID string, cached domain.Cart) (int, service.Reconciliation, error)
}

type CheckoutService interface {
	Summary(ctx context.Context, accountID string, cached domain.Cart) (*service.CheckoutView, service.Reconciliation, error)
	SubmitShipping(draft *domain.CheckoutDraft, form domain.ShippingInfo) error
	SubmitPayment(draft *domain.CheckoutDraft, form domain.CardDetails) error
	PlaceOrder(ctx context.Context, accountID string, draft domain.CheckoutDraft) (*domain.Order, error)
	Confirmation(ctx context.Context, accountID, orderNumber string) (*domain.Order, error)
}

type AccountService interface {
	SignIn(ctx context.Context, email, password string) (*domain.Identity, error)
	SignUp(ctx context.Context, in service.SignUpInput) (*domain.Identity, error)
	ResetPassword(ctx context.Context, email, password, confirm string) error
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	UpdateProfile(ctx context.Context, accountID, name, email string) (*domain.Identity, error)
	ChangePassword(ctx context.Context, accountID, current, next, confirm string) error
	UpdateNotifications(ctx context.Context, accountID string, n domain.Notifications) error
	UpdatePreferences(ctx context.Context, accountID string, in service.PreferencesInput) (domain.Preferences, error)
}

type CatalogService interface {
	List(ctx context.Context) (*service.Catalog, error)
	Detail(ctx context.Context, productID, viewerID string) (*service.ProductDetail, error)
	AddReview(ctx context.Context, accountID, productID string, rating int, comment string) (bool, error)
}

type OrderService interface {
	Recent(ctx context.Context) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, orderNumber string, next domain.OrderStatus) (*domain.Order, error)
}
