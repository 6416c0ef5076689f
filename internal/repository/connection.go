package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	productsCollection     = "products"
	accountsCollection     = "accounts"
	ordersCollection       = "orders"
	reservationsCollection = "reservations"
	outboxCollection       = "outbox"
)

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

// Store bundles the repositories backed by one database.
type Store struct {
	DB           *mongo.Database
	Accounts     AccountRepository
	Products     ProductRepository
	Orders       OrderRepository
	Reservations ReservationRepository
	Outbox       OutboxRepository
}

func NewStore(db *mongo.Database) *Store {
	return &Store{
		DB:           db,
		Accounts:     NewAccountRepository(db),
		Products:     NewProductRepository(db),
		Orders:       NewOrderRepository(db),
		Reservations: NewReservationRepository(db),
		Outbox:       NewOutboxRepository(db),
	}
}

func (s *Store) Close(ctx context.Context) error {
	return s.DB.Client().Disconnect(ctx)
}
