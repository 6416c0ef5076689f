package service

import (
	"context"

	"github.com/fjod/scoremash/internal/domain"
	"github.com/fjod/scoremash/internal/repository"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const recentOrdersLimit = 50

// OrderService is the admin side of orders.
type OrderService struct {
	orders repository.OrderRepository
	log    logrus.FieldLogger
}

func NewOrderService(orders repository.OrderRepository, log logrus.FieldLogger) *OrderService {
	return &OrderService{orders: orders, log: log}
}

func (s *OrderService) Recent(ctx context.Context) ([]*domain.Order, error) {
	orders, err := s.orders.ListRecentOrders(ctx, recentOrdersLimit)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// UpdateStatus moves an order along its lifecycle.
func (s *OrderService) UpdateStatus(ctx context.Context, orderNumber string, next domain.OrderStatus) (*domain.Order, error) {
	if !next.Valid() {
		return nil, invalid("status", "Invalid order status")
	}

	order, err := s.orders.GetOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, ErrIllegalTransition
	}

	err = s.orders.UpdateStatus(ctx, orderNumber, order.Status, next)
	if errors.Is(err, repository.ErrStatusConflict) {
		return nil, ErrIllegalTransition
	}
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"order_number": orderNumber,
		"from":         order.Status,
		"to":           next,
	}).Info("order status changed")
	order.Status = next
	return order, nil
}
