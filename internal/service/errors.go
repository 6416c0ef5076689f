package service

import (
	"fmt"

	"github.com/fjod/scoremash/internal/repository"
	"github.com/pkg/errors"
)

var (
	ErrProductNotFound = repository.ErrProductNotFound
	ErrAccountNotFound = repository.ErrAccountNotFound
	ErrOrderNotFound   = repository.ErrOrderNotFound

	ErrLineNotFound       = errors.New("item not found in cart")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrCheckoutIncomplete = errors.New("checkout steps incomplete")
	ErrIllegalTransition  = errors.New("illegal order status transition")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
)

// ValidationError is a user input problem. Message is shown to the user as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

type StockErrorKind int

const (
	// StockOnAdd: the product cannot take the requested addition.
	StockOnAdd StockErrorKind = iota
	// StockOnUpdate: the requested quantity exceeds stock.
	StockOnUpdate
	// StockOnCommit: stock ran out before the order could be placed.
	StockOnCommit
)

type StockError struct {
	Kind        StockErrorKind
	ProductID   string
	ProductName string
	Available   int
	InCart      int
}

func (e *StockError) Error() string {
	switch e.Kind {
	case StockOnAdd:
		return fmt.Sprintf("Only %d item(s) available in stock. You already have %d in your cart.", e.Available, e.InCart)
	case StockOnUpdate:
		return fmt.Sprintf("Only %d item(s) available in stock. You currently have %d in your cart.", e.Available, e.InCart)
	default:
		return fmt.Sprintf("Insufficient stock for %s: %d available, %d in your cart", e.ProductName, e.Available, e.InCart)
	}
}

// IsNotFound reports whether err means a missing product, cart line, account or order.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrLineNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrOrderNotFound)
}
