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

type reservationRepository struct {
	collection *mongo.Collection
}

func NewReservationRepository(db *mongo.Database) ReservationRepository {
	return &reservationRepository{
		collection: db.Collection(reservationsCollection),
	}
}

func (m *reservationRepository) CreateReservation(ctx context.Context, r *domain.Reservation) error {
	if _, err := m.collection.InsertOne(ctx, r); err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	return nil
}

func (m *reservationRepository) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	var r domain.Reservation
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return &r, nil
}

func (m *reservationRepository) MarkItemApplied(ctx context.Context, id string, index int) error {
	field := fmt.Sprintf("items.%d.applied", index)
	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{field: true}})
	if err != nil {
		return fmt.Errorf("failed to mark reservation item: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrReservationNotFound
	}
	return nil
}

func (m *reservationRepository) ClearItemApplied(ctx context.Context, id string, index int) (bool, error) {
	field := fmt.Sprintf("items.%d.applied", index)
	filter := bson.M{"_id": id, field: true}

	result, err := m.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{field: false}})
	if err != nil {
		return false, fmt.Errorf("failed to clear reservation item: %w", err)
	}
	return result.ModifiedCount > 0, nil
}

func (m *reservationRepository) SetReservationStatus(ctx context.Context, id string, from, to domain.ReservationStatus) error {
	filter := bson.M{"_id": id, "status": from}
	result, err := m.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"status": to}})
	if err != nil {
		return fmt.Errorf("failed to set reservation status: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	if _, err := m.GetReservation(ctx, id); err != nil {
		return err
	}
	return ErrInvalidStatus
}

func (m *reservationRepository) ListExpiredReservations(ctx context.Context, before time.Time, limit int) ([]*domain.Reservation, error) {
	filter := bson.M{
		"status":     domain.ReservationReserved,
		"expires_at": bson.M{"$lt": before},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "expires_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired reservations: %w", err)
	}

	var out []*domain.Reservation
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}
	return out, nil
}
