package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fjod/scoremash/internal/circuitbreaker"
	"github.com/fjod/scoremash/internal/domain"
	"github.com/fjod/scoremash/internal/repository"
	"github.com/fjod/scoremash/internal/service"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const (
	eventBatchSize        = 100
	recoveryBatchSize     = 50
	defaultEventTick      = time.Second
	defaultRecoveryTick   = 30 * time.Second
	defaultPublishTimeout = 5 * time.Second
)

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OrderNotifier interface {
	SendOrderPlaced(ctx context.Context, to, name string, order domain.OrderPlaced) error
}

type ReservationRecoverer interface {
	RecoverExpired(ctx context.Context, limit int) (service.RecoveryReport, error)
}

// OutboxPoller drains the outbox and finishes reservations abandoned mid checkout.
type OutboxPoller struct {
	timeout      time.Duration
	eventTick    time.Duration
	recoveryTick time.Duration
	outbox       repository.OutboxRepository
	accounts     repository.AccountRepository
	recovery     ReservationRecoverer
	writer       MessageWriter
	notifier     OrderNotifier
	kafkaBreaker *circuitbreaker.Breaker
	mailBreaker  *circuitbreaker.Breaker
	log          logrus.FieldLogger
}

type Option func(*OutboxPoller)

// WithKafka publishes events through w. Without it events are only marked processed.
func WithKafka(w MessageWriter) Option {
	return func(p *OutboxPoller) { p.writer = w }
}

// WithNotifier mails customers who opted into order updates.
func WithNotifier(n OrderNotifier) Option {
	return func(p *OutboxPoller) { p.notifier = n }
}

func WithIntervals(eventTick, recoveryTick time.Duration) Option {
	return func(p *OutboxPoller) {
		if eventTick > 0 {
			p.eventTick = eventTick
		}
		if recoveryTick > 0 {
			p.recoveryTick = recoveryTick
		}
	}
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
}

func NewOutboxPoller(
	outbox repository.OutboxRepository,
	accounts repository.AccountRepository,
	recovery ReservationRecoverer,
	log logrus.FieldLogger,
	opts ...Option,
) *OutboxPoller {
	p := &OutboxPoller{
		timeout:      defaultPublishTimeout,
		eventTick:    defaultEventTick,
		recoveryTick: defaultRecoveryTick,
		outbox:       outbox,
		accounts:     accounts,
		recovery:     recovery,
		log:          log,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.kafkaBreaker = circuitbreaker.New(circuitbreaker.Settings{Name: "kafka"}, log)
	p.mailBreaker = circuitbreaker.New(circuitbreaker.Settings{Name: "sendgrid"}, log)
	return p
}

// Run blocks until ctx is cancelled.
func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	recoveryTicker := time.NewTicker(p.recoveryTick)
	defer eventTicker.Stop()
	defer recoveryTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-recoveryTicker.C:
			p.recoverReservations(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.outbox.GetUnprocessedEvents(ctx, eventBatchSize)
	if err != nil {
		p.log.WithError(err).Error("failed to fetch outbox events")
		return
	}

	for _, event := range events {
		log := p.log.WithFields(logrus.Fields{"event_id": event.ID, "aggregate_id": event.AggregateID})

		if err := p.publish(ctx, event); err != nil {
			log.WithError(err).Warn("failed to publish event")
			continue
		}

		if event.EventType == domain.EventOrderPlaced {
			p.notify(ctx, event, log)
		}

		if err := p.outbox.MarkEventAsProcessed(ctx, event.ID); err != nil {
			log.WithError(err).Error("failed to mark event as processed")
		}
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *domain.OutboxEvent) error {
	if p.writer == nil {
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order number keeps events of one order in order
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	return p.kafkaBreaker.Do(func() error {
		wctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return p.writer.WriteMessages(wctx, msg)
	})
}

// notify is best effort: a failed mail never holds back the event.
func (p *OutboxPoller) notify(ctx context.Context, event *domain.OutboxEvent, log logrus.FieldLogger) {
	if p.notifier == nil {
		return
	}

	var placed domain.OrderPlaced
	if err := json.Unmarshal(event.Payload, &placed); err != nil {
		log.WithError(err).Error("bad order.placed payload")
		return
	}

	account, err := p.accounts.GetAccount(ctx, placed.UserID)
	if err != nil {
		log.WithError(err).Warn("no account for order notification")
		return
	}
	if !account.Notifications.OrderUpdates {
		return
	}

	err = p.mailBreaker.Do(func() error {
		mctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return p.notifier.SendOrderPlaced(mctx, account.Email, account.Name, placed)
	})
	if err != nil {
		log.WithError(errors.Wrap(err, "send order mail")).Warn("order notification not sent")
	}
}

func (p *OutboxPoller) recoverReservations(ctx context.Context) {
	report, err := p.recovery.RecoverExpired(ctx, recoveryBatchSize)
	if err != nil {
		p.log.WithError(err).Error("reservation recovery failed")
		return
	}
	if report.Confirmed+report.Released+report.Failed > 0 {
		p.log.WithFields(logrus.Fields{
			"confirmed": report.Confirmed,
			"released":  report.Released,
			"failed":    report.Failed,
		}).Info("reservations recovered")
	}
}

// Close releases the Kafka writer.
func (p *OutboxPoller) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
