package service

import (
	"context"
	"time"

	"github.com/fjod/scoremash/internal/domain"
	"github.com/fjod/scoremash/internal/repository"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	defaultLookupConcurrency = 8
	defaultLookupTimeout     = 5 * time.Second
)

type CartService struct {
	accounts    repository.AccountRepository
	products    repository.ProductRepository
	sfg           singleflight.Group // collapses concurrent lookups of one product
	concurrency   int
	lookupTimeout time.Duration
	log           logrus.FieldLogger
}

func NewCartService(accounts repository.AccountRepository, products repository.ProductRepository, log logrus.FieldLogger) *CartService {
	return &CartService{
		accounts:      accounts,
		products:      products,
		concurrency:   defaultLookupConcurrency,
		lookupTimeout: defaultLookupTimeout,
		log:           log,
	}
}

type CartRow struct {
	ProductID string       `json:"productId"`
	Name      string       `json:"name"`
	Price     domain.Money `json:"price"`
	Image     string       `json:"image"`
	Quantity  int          `json:"quantity"`
	Stock     int          `json:"stock"`
	LineTotal domain.Money `json:"total"`
}

type CartView struct {
	Items     []CartRow    `json:"items"`
	Subtotal  domain.Money `json:"subtotal"`
	ItemCount int          `json:"itemCount"`
}

// View reconciles the cart and joins it with current product data.
// Lines whose product no longer exists are left out of the view but stay persisted.
func (s *CartService) View(ctx context.Context, accountID string, cached domain.Cart) (*CartView, Reconciliation, error) {
	rec, err := s.Reconcile(ctx, accountID, cached)
	if err != nil {
		return nil, rec, err
	}

	rows, err := s.join(ctx, rec.Lines)
	if err != nil {
		return nil, rec, err
	}

	view := &CartView{Items: rows}
	for _, row := range rows {
		view.Subtotal += row.LineTotal
		view.ItemCount += row.Quantity
	}
	return view, rec, nil
}

func (s *CartService) join(ctx context.Context, cart domain.Cart) ([]CartRow, error) {
	found := make([]*domain.Product, len(cart))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, line := range cart {
		g.Go(func() error {
			p, err := s.product(gctx, line.ProductID)
			if errors.Is(err, ErrProductNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			found[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "load cart products")
	}

	rows := make([]CartRow, 0, len(cart))
	for i, line := range cart {
		p := found[i]
		if p == nil {
			continue
		}
		rows = append(rows, CartRow{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Image:     p.DisplayImage(),
			Quantity:  line.Quantity,
			Stock:     p.Stock,
			LineTotal: p.Price.Mul(line.Quantity),
		})
	}
	return rows, nil
}

// product looks id up once for every caller currently waiting on it. The
// shared lookup is detached from any one caller's context; each caller still
// stops waiting when its own context ends.
func (s *CartService) product(ctx context.Context, id string) (*domain.Product, error) {
	ch := s.sfg.DoChan(id, func() (interface{}, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.lookupTimeout)
		defer cancel()
		return s.products.GetProduct(lctx, id)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Product), nil
	}
}

// Add increases the quantity of productID by qty, creating the line if needed.
func (s *CartService) Add(ctx context.Context, accountID, productID string, qty int) (domain.Cart, error) {
	if productID == "" {
		return nil, invalid("productId", "Product ID is required")
	}
	if qty < 1 {
		return nil, invalid("quantity", "Quantity must be at least 1")
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	existing := account.Cart.Quantity(productID)
	if qty > product.Stock-existing {
		return nil, &StockError{
			Kind:        StockOnAdd,
			ProductID:   product.ID,
			ProductName: product.Name,
			Available:   product.Stock,
			InCart:      existing,
		}
	}

	cart := account.Cart.Set(productID, existing+qty)
	if err := s.accounts.SaveCart(ctx, accountID, cart); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return cart, nil
}

// Update sets the quantity of an existing line. A qty of zero or less removes it.
func (s *CartService) Update(ctx context.Context, accountID, productID string, qty int) (domain.Cart, error) {
	if productID == "" {
		return nil, invalid("productId", "Product ID and quantity are required")
	}

	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(account.Cart) == 0 {
		return nil, ErrEmptyCart
	}
	if account.Cart.Index(productID) < 0 {
		return nil, ErrLineNotFound
	}

	if qty > 0 {
		product, err := s.products.GetProduct(ctx, productID)
		if err != nil {
			return nil, err
		}
		if qty > product.Stock {
			return nil, &StockError{
				Kind:        StockOnUpdate,
				ProductID:   product.ID,
				ProductName: product.Name,
				Available:   product.Stock,
				InCart:      account.Cart.Quantity(productID),
			}
		}
	}

	cart := account.Cart.Set(productID, qty)
	if err := s.accounts.SaveCart(ctx, accountID, cart); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return cart, nil
}

func (s *CartService) Remove(ctx context.Context, accountID, productID string) (domain.Cart, error) {
	if productID == "" {
		return nil, invalid("productId", "Product ID is required")
	}

	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(account.Cart) == 0 {
		return nil, ErrEmptyCart
	}

	cart, ok := account.Cart.Remove(productID)
	if !ok {
		return nil, ErrLineNotFound
	}
	if err := s.accounts.SaveCart(ctx, accountID, cart); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return cart, nil
}

// Count is the total quantity of the reconciled cart.
func (s *CartService) Count(ctx context.Context, accountID string, cached domain.Cart) (int, Reconciliation, error) {
	rec, err := s.Reconcile(ctx, accountID, cached)
	if err != nil {
		return 0, rec, err
	}
	return rec.Lines.TotalQuantity(), rec, nil
}

func (s *CartService) Clear(ctx context.Context, accountID string) error {
	if err := s.accounts.SaveCart(ctx, accountID, domain.Cart{}); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}
