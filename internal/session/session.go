package session

import (
	"context"
	"errors"

	"github.com/fjod/scoremash/internal/domain"
)

var ErrSessionNotFound = errors.New("session not found")

// Store keeps browser sessions between requests.
type Store interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, s *domain.Session) error
	// Touch pushes the expiry of an existing session forward.
	Touch(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
