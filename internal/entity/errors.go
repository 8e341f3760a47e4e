package entity

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrNotFound          = errors.New("not found")
	ErrNoActiveCart      = errors.New("no active shopping cart")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyDelivered  = errors.New("order already delivered")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrConflict          = errors.New("conflict")
)

// Refinements keep the class of the error they wrap, so errors.Is works for both.
var (
	ErrLineNotFound      = fmt.Errorf("order line: %w", ErrNotFound)
	ErrProductNotFound   = fmt.Errorf("product: %w", ErrNotFound)
	ErrOrderNotFound     = fmt.Errorf("order: %w", ErrNotFound)
	ErrUserNotFound      = fmt.Errorf("user: %w", ErrNotFound)
	ErrQuantityLimit     = fmt.Errorf("%w: cannot order more than %d units of a product", ErrInvalidRequest, MaxLineQuantity)
	ErrEmptyCart         = fmt.Errorf("%w: shopping cart is empty", ErrInvalidRequest)
	ErrInvalidQuantity   = fmt.Errorf("%w: quantity must be greater than zero", ErrInvalidRequest)
	ErrInvalidPayment    = fmt.Errorf("%w: unknown payment method", ErrInvalidRequest)
	ErrInvalidCategory   = fmt.Errorf("%w: unknown category", ErrInvalidRequest)
	ErrStatusChanged     = fmt.Errorf("%w: order status changed concurrently", ErrConflict)
	ErrDuplicateUsername = fmt.Errorf("%w: username already taken", ErrConflict)
)
