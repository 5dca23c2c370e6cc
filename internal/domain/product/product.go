package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID       string
	Title    string
	SKU      string
	Price    decimal.Decimal
	Stock    int
	IsActive bool
}

// Store defines the catalog operations the checkout flow depends on.
//
// DecrementStock must only be called inside the order transaction: it
// conditionally subtracts qty from the product's stock and reports false
// when the remaining stock is insufficient, leaving the row untouched.
type Store interface {
	ListActive(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	DecrementStock(ctx context.Context, id string, qty int) (bool, error)
}
