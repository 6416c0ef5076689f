package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fjod/scoremash/internal/domain"
	"github.com/fjod/scoremash/internal/repository"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultReservationTTL = 15 * time.Minute
	compensationTimeout   = 10 * time.Second
)

// StockLedger takes stock out of the catalog for an order and gives it back
// when the order cannot be completed.
type StockLedger struct {
	products     repository.ProductRepository
	reservations repository.ReservationRepository
	orders       repository.OrderRepository
	outbox       repository.OutboxRepository
	ttl          time.Duration
	now          func() time.Time
	log          logrus.FieldLogger
}

func NewStockLedger(
	products repository.ProductRepository,
	reservations repository.ReservationRepository,
	orders repository.OrderRepository,
	outbox repository.OutboxRepository,
	ttl time.Duration,
	log logrus.FieldLogger,
) *StockLedger {
	if ttl <= 0 {
		ttl = DefaultReservationTTL
	}
	return &StockLedger{
		products:     products,
		reservations: reservations,
		orders:       orders,
		outbox:       outbox,
		ttl:          ttl,
		now:          time.Now,
		log:          log,
	}
}

// Reserve decrements stock for every item or for none of them.
func (l *StockLedger) Reserve(ctx context.Context, userID string, items []domain.OrderItem) (*domain.Reservation, error) {
	now := l.now()
	res := &domain.Reservation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Items:     make([]domain.ReservationItem, 0, len(items)),
		Status:    domain.ReservationReserved,
		CreatedAt: now,
		ExpiresAt: now.Add(l.ttl),
	}
	for _, item := range items {
		res.Items = append(res.Items, domain.ReservationItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	if err := l.reservations.CreateReservation(ctx, res); err != nil {
		return nil, errors.Wrap(err, "create reservation")
	}

	for i, item := range items {
		err := l.products.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err == nil {
			err = l.reservations.MarkItemApplied(ctx, res.ID, i)
			if err != nil {
				l.restore(ctx, res.ID, item.ProductID, item.Quantity)
			}
		}
		if err == nil {
			continue
		}

		l.compensate(ctx, res)
		if errors.Is(err, repository.ErrInsufficientStock) {
			serr := &StockError{Kind: StockOnCommit, ProductID: item.ProductID, ProductName: item.Name, InCart: item.Quantity}
			if p, perr := l.products.GetProduct(ctx, item.ProductID); perr == nil {
				serr.Available = p.Stock
			}
			return nil, serr
		}
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "reserve %s", item.ProductID)
	}
	return res, nil
}

// Release gives back every applied item and marks the reservation released.
func (l *StockLedger) Release(ctx context.Context, res *domain.Reservation) error {
	for i, item := range res.Items {
		cleared, err := l.reservations.ClearItemApplied(ctx, res.ID, i)
		if err != nil {
			return errors.Wrap(err, "clear reservation item")
		}
		if !cleared {
			continue
		}
		if err := l.products.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			log := l.log.WithError(err).WithFields(logrus.Fields{
				"reservation_id": res.ID,
				"product_id":     item.ProductID,
				"quantity":       item.Quantity,
			})
			// put the flag back so the next Release restores this item
			if merr := l.reservations.MarkItemApplied(context.WithoutCancel(ctx), res.ID, i); merr != nil {
				log.WithField("mark_error", merr.Error()).Error("stock not restored and item no longer marked applied")
			} else {
				log.Error("stock not restored")
			}
			return errors.Wrap(err, "restore stock")
		}
	}

	err := l.reservations.SetReservationStatus(ctx, res.ID, domain.ReservationReserved, domain.ReservationReleased)
	if err != nil {
		return errors.Wrap(err, "release reservation")
	}
	return nil
}

func (l *StockLedger) Confirm(ctx context.Context, reservationID string) error {
	err := l.reservations.SetReservationStatus(ctx, reservationID, domain.ReservationReserved, domain.ReservationConfirmed)
	if err != nil {
		return errors.Wrap(err, "confirm reservation")
	}
	return nil
}

// compensate runs Release on a context that survives the request being cancelled.
func (l *StockLedger) compensate(ctx context.Context, res *domain.Reservation) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if err := l.Release(cctx, res); err != nil {
		l.log.WithError(err).WithField("reservation_id", res.ID).Error("compensation failed, left for recovery")
	}
}

func (l *StockLedger) restore(ctx context.Context, reservationID, productID string, qty int) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if err := l.products.IncrementStock(cctx, productID, qty); err != nil {
		l.log.WithError(err).WithFields(logrus.Fields{
			"reservation_id": reservationID,
			"product_id":     productID,
			"quantity":       qty,
		}).Error("stock not restored")
	}
}

// RecordOrderPlaced writes the order.placed outbox event. It is safe to call twice.
func (l *StockLedger) RecordOrderPlaced(ctx context.Context, order *domain.Order) error {
	payload, err := json.Marshal(domain.NewOrderPlaced(order))
	if err != nil {
		return errors.Wrap(err, "marshal order placed")
	}
	event := &domain.OutboxEvent{
		ID:          uuid.NewString(),
		AggregateID: order.OrderNumber,
		EventType:   domain.EventOrderPlaced,
		Payload:     payload,
		CreatedAt:   l.now(),
	}
	if err := l.outbox.AddEvent(ctx, event); err != nil {
		return errors.Wrap(err, "add outbox event")
	}
	return nil
}

type RecoveryReport struct {
	Confirmed int
	Released  int
	Failed    int
}

// RecoverExpired resolves reservations left reserved past their expiry: confirmed
// when an order references them, released otherwise.
func (l *StockLedger) RecoverExpired(ctx context.Context, limit int) (RecoveryReport, error) {
	var report RecoveryReport

	expired, err := l.reservations.ListExpiredReservations(ctx, l.now(), limit)
	if err != nil {
		return report, errors.Wrap(err, "list expired reservations")
	}

	for _, res := range expired {
		log := l.log.WithField("reservation_id", res.ID)

		order, err := l.orders.GetOrderByReservation(ctx, res.ID)
		switch {
		case err == nil:
			if err := l.RecordOrderPlaced(ctx, order); err != nil {
				log.WithError(err).Warn("failed to record order event during recovery")
				report.Failed++
				continue
			}
			if err := l.Confirm(ctx, res.ID); err != nil {
				log.WithError(err).Warn("failed to confirm reservation during recovery")
				report.Failed++
				continue
			}
			log.WithField("order_number", order.OrderNumber).Info("reservation confirmed by recovery")
			report.Confirmed++
		case errors.Is(err, repository.ErrOrderNotFound):
			if err := l.Release(ctx, res); err != nil {
				log.WithError(err).Warn("failed to release reservation during recovery")
				report.Failed++
				continue
			}
			log.Info("reservation released by recovery")
			report.Released++
		default:
			log.WithError(err).Warn("failed to look up order for reservation")
			report.Failed++
		}
	}
	return report, nil
}
