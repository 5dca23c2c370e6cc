package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for checkout validation.
var (
	ErrEmptyCart    = errors.New("cart is empty")
	ErrUnauthorized = errors.New("user identity required")
)

// AddressNotFoundError indicates a referenced address does not exist or is
// owned by another user.
type AddressNotFoundError struct {
	AddressID string
}

func (e *AddressNotFoundError) Error() string {
	return fmt.Sprintf("address %s not found", e.AddressID)
}

// InsufficientStockError indicates a product's stock cannot cover the ordered
// quantity, re-validated at commit time.
type InsufficientStockError struct {
	ProductID string
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (requested %d)", e.ProductID, e.Requested)
}

// ValidationError indicates malformed checkout input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
