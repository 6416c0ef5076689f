package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/scoremash/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type orderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) OrderRepository {
	return &orderRepository{
		collection: db.Collection(ordersCollection),
	}
}

func (m *orderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = order.CreatedAt

	_, err := m.collection.InsertOne(ctx, order)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateOrderNumber
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (m *orderRepository) GetOrder(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return m.findOne(ctx, bson.M{"order_number": orderNumber})
}

func (m *orderRepository) GetOrderForUser(ctx context.Context, orderNumber, userID string) (*domain.Order, error) {
	return m.findOne(ctx, bson.M{"order_number": orderNumber, "user_id": userID})
}

func (m *orderRepository) GetOrderByReservation(ctx context.Context, reservationID string) (*domain.Order, error) {
	return m.findOne(ctx, bson.M{"reservation_id": reservationID})
}

func (m *orderRepository) findOne(ctx context.Context, filter bson.M) (*domain.Order, error) {
	var order domain.Order
	err := m.collection.FindOne(ctx, filter).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func (m *orderRepository) ListRecentOrders(ctx context.Context, limit int) ([]*domain.Order, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := make([]*domain.Order, 0, limit)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

func (m *orderRepository) UpdateStatus(ctx context.Context, orderNumber string, from, to domain.OrderStatus) error {
	filter := bson.M{"order_number": orderNumber, "status": from}
	update := bson.M{"$set": bson.M{"status": to, "updated_at": time.Now()}}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	if _, err := m.GetOrder(ctx, orderNumber); err != nil {
		return err
	}
	return ErrStatusConflict
}
