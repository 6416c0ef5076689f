package service

import (
	"context"

	"github.com/fjod/scoremash/internal/domain"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Outcome says how the session copy of a cart relates to the stored one.
type Outcome int

const (
	// AlreadySynced: the session copy matches the store.
	AlreadySynced Outcome = iota
	// Adopted: the account had never had a cart and took over the session copy.
	Adopted
	// StoreWins: the copies differed and the stored lines replace the session copy.
	StoreWins
)

func (o Outcome) String() string {
	switch o {
	case Adopted:
		return "adopted"
	case StoreWins:
		return "store_wins"
	default:
		return "already_synced"
	}
}

type Reconciliation struct {
	Lines   domain.Cart
	Outcome Outcome
}

// SessionStale reports whether the caller has to refresh its session copy.
func (r Reconciliation) SessionStale() bool {
	return r.Outcome == StoreWins
}

// Reconcile merges the session copy of a cart with the account store.
// The store is the source of truth; the session copy only survives when the
// account has never had a cart at all.
func (s *CartService) Reconcile(ctx context.Context, accountID string, cached domain.Cart) (Reconciliation, error) {
	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return Reconciliation{}, err
	}

	if account.Cart == nil {
		if len(cached) == 0 {
			return Reconciliation{Lines: domain.Cart{}, Outcome: AlreadySynced}, nil
		}
		lines := cached.Clone()
		if err := s.accounts.SaveCart(ctx, accountID, lines); err != nil {
			return Reconciliation{}, errors.Wrap(err, "adopt session cart")
		}
		s.log.WithFields(logrus.Fields{
			"account_id": accountID,
			"lines":      len(lines),
		}).Info("adopted session cart")
		return Reconciliation{Lines: lines, Outcome: Adopted}, nil
	}

	if account.Cart.Equal(cached) {
		return Reconciliation{Lines: account.Cart.Clone(), Outcome: AlreadySynced}, nil
	}
	return Reconciliation{Lines: account.Cart.Clone(), Outcome: StoreWins}, nil
}
