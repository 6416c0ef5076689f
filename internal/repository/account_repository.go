package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/scoremash/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type accountRepository struct {
	collection *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) AccountRepository {
	return &accountRepository{
		collection: db.Collection(accountsCollection),
	}
}

func (m *accountRepository) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *accountRepository) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return m.findOne(ctx, bson.M{"email": email})
}

func (m *accountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	var account domain.Account
	err := m.collection.FindOne(ctx, filter).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (m *accountRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	_, err := m.collection.InsertOne(ctx, account)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (m *accountRepository) UpdateProfile(ctx context.Context, id, name, email string) error {
	err := m.set(ctx, id, bson.M{"name": name, "email": email})
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (m *accountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return m.set(ctx, id, bson.M{"password_hash": passwordHash})
}

func (m *accountRepository) UpdateNotifications(ctx context.Context, id string, n domain.Notifications) error {
	return m.set(ctx, id, bson.M{"notifications": n})
}

func (m *accountRepository) UpdatePreferences(ctx context.Context, id string, p domain.Preferences) error {
	return m.set(ctx, id, bson.M{"preferences": p})
}

func (m *accountRepository) SaveCart(ctx context.Context, id string, cart domain.Cart) error {
	if cart == nil {
		cart = domain.Cart{}
	}
	return m.set(ctx, id, bson.M{"cart": cart})
}

func (m *accountRepository) set(ctx context.Context, id string, fields bson.M) error {
	fields["updated_at"] = time.Now()

	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return err
		}
		return fmt.Errorf("failed to update account: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrAccountNotFound
	}
	return nil
}
