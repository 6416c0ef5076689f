package service

import (
	"context"
	"strings"
	"time"

	"github.com/fjod/scoremash/internal/domain"
	"github.com/fjod/scoremash/internal/repository"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultShippingCost domain.Money = 1000
	DefaultTaxPercent   int64        = 1
)

type CheckoutService struct {
	accounts     repository.AccountRepository
	products     repository.ProductRepository
	orders       repository.OrderRepository
	cart         *CartService
	ledger       *StockLedger
	shippingCost domain.Money
	taxPercent   int64
	newNumber    func(time.Time) string
	now          func() time.Time
	log          logrus.FieldLogger
}

type CheckoutOption func(*CheckoutService)

func WithShippingCost(cost domain.Money) CheckoutOption {
	return func(s *CheckoutService) { s.shippingCost = cost }
}

func WithTaxPercent(pct int64) CheckoutOption {
	return func(s *CheckoutService) { s.taxPercent = pct }
}

func WithOrderNumbers(gen func(time.Time) string) CheckoutOption {
	return func(s *CheckoutService) { s.newNumber = gen }
}

func NewCheckoutService(
	accounts repository.AccountRepository,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	cart *CartService,
	ledger *StockLedger,
	log logrus.FieldLogger,
	opts ...CheckoutOption,
) *CheckoutService {
	s := &CheckoutService{
		accounts:     accounts,
		products:     products,
		orders:       orders,
		cart:         cart,
		ledger:       ledger,
		shippingCost: DefaultShippingCost,
		taxPercent:   DefaultTaxPercent,
		newNumber:    NewOrderNumber,
		now:          time.Now,
		log:          log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CheckoutView struct {
	Items  []CartRow     `json:"items"`
	Totals domain.Totals `json:"totals"`
}

// Summary is the live cart with totals computed the same way PlaceOrder does.
// An empty cart gives ErrEmptyCart.
func (s *CheckoutService) Summary(ctx context.Context, accountID string, cached domain.Cart) (*CheckoutView, Reconciliation, error) {
	view, rec, err := s.cart.View(ctx, accountID, cached)
	if err != nil {
		return nil, rec, err
	}
	if len(view.Items) == 0 {
		return nil, rec, ErrEmptyCart
	}

	items := make([]domain.OrderItem, 0, len(view.Items))
	for _, row := range view.Items {
		items = append(items, domain.OrderItem{ProductID: row.ProductID, Price: row.Price, Quantity: row.Quantity})
	}
	return &CheckoutView{
		Items:  view.Items,
		Totals: domain.ComputeTotals(items, s.shippingCost, s.taxPercent),
	}, rec, nil
}

// SubmitShipping validates the shipping form and stores it on the draft.
func (s *CheckoutService) SubmitShipping(draft *domain.CheckoutDraft, form domain.ShippingInfo) error {
	info := form.Trimmed()
	if missing := info.Missing(); len(missing) > 0 {
		return invalid(strings.Join(missing, ","), "Please fill in all shipping fields")
	}
	draft.Shipping = &info
	return nil
}

// SubmitPayment validates the payment form and stores its redacted form on the draft.
func (s *CheckoutService) SubmitPayment(draft *domain.CheckoutDraft, form domain.CardDetails) error {
	if !draft.Allows(domain.StepPayment) {
		return ErrCheckoutIncomplete
	}
	form.Method = domain.PaymentMethod(strings.TrimSpace(string(form.Method)))
	if !form.Method.Valid() {
		return invalid("paymentMethod", "Please select a payment method")
	}
	if form.Method == domain.PaymentCard {
		if strings.TrimSpace(form.CardNumber) == "" || strings.TrimSpace(form.CardHolder) == "" ||
			strings.TrimSpace(form.Expiry) == "" || strings.TrimSpace(form.CVV) == "" {
			return invalid("card", "Please fill in all card details")
		}
	}
	info := form.Redact()
	draft.Payment = &info
	return nil
}

// PlaceOrder turns the persisted cart into an order. Stock is reserved first and
// given back if the order cannot be saved, so either the whole order is placed
// or nothing changes.
func (s *CheckoutService) PlaceOrder(ctx context.Context, accountID string, draft domain.CheckoutDraft) (*domain.Order, error) {
	if draft.Step() != domain.StepReview {
		return nil, ErrCheckoutIncomplete
	}

	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(account.Cart) == 0 {
		return nil, ErrEmptyCart
	}

	products, err := s.products.GetProducts(ctx, account.Cart.ProductIDs())
	if err != nil {
		return nil, errors.Wrap(err, "load products")
	}

	items := make([]domain.OrderItem, 0, len(account.Cart))
	for _, line := range account.Cart {
		p, ok := products[line.ProductID]
		if !ok {
			continue
		}
		if p.Stock < line.Quantity {
			return nil, &StockError{Kind: StockOnCommit, ProductID: p.ID, ProductName: p.Name, Available: p.Stock, InCart: line.Quantity}
		}
		items = append(items, domain.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  line.Quantity,
			Image:     p.DisplayImage(),
		})
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	res, err := s.ledger.Reserve(ctx, accountID, items)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		UserID:        accountID,
		ReservationID: res.ID,
		Items:         items,
		Shipping:      *draft.Shipping,
		Payment:       *draft.Payment,
		Totals:        domain.ComputeTotals(items, s.shippingCost, s.taxPercent),
		Status:        domain.OrderStatusPending,
		CreatedAt:     s.now(),
	}
	if err := s.insertOrder(ctx, order); err != nil {
		s.ledger.compensate(ctx, res)
		return nil, err
	}

	log := s.log.WithFields(logrus.Fields{"account_id": accountID, "order_number": order.OrderNumber})

	// an unconfirmed reservation is finished by the recovery loop
	if err := s.ledger.RecordOrderPlaced(ctx, order); err != nil {
		log.WithError(err).Warn("order event not recorded")
	} else if err := s.ledger.Confirm(ctx, res.ID); err != nil {
		log.WithError(err).Warn("reservation not confirmed")
	}

	if err := s.accounts.SaveCart(ctx, accountID, domain.Cart{}); err != nil {
		log.WithError(err).Error("failed to clear cart after order")
	}

	log.WithField("total", order.Total.String()).Info("order placed")
	return order, nil
}

func (s *CheckoutService) insertOrder(ctx context.Context, order *domain.Order) error {
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		order.OrderNumber = s.newNumber(s.now())
		err := s.orders.CreateOrder(ctx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateOrderNumber) {
			return errors.Wrap(err, "create order")
		}
		s.log.WithField("order_number", order.OrderNumber).Warn("order number taken, regenerating")
	}
	return errors.Errorf("no unique order number after %d attempts", maxOrderNumberAttempts)
}

// Confirmation returns the order only to the account that placed it.
func (s *CheckoutService) Confirmation(ctx context.Context, accountID, orderNumber string) (*domain.Order, error) {
	if orderNumber == "" {
		return nil, ErrOrderNotFound
	}
	return s.orders.GetOrderForUser(ctx, orderNumber, accountID)
}
