package cart

import (
	"context"

	"github.com/shopspring/decimal"
)

// LineItem is a single cart entry for one (user, product) pair. UnitPrice and
// the product snapshot fields reflect the catalog state at read time, not the
// state when the item was added.
type LineItem struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
	Title     string
	SKU       string
	Stock     int
}

// Store holds per-user cart line items.
//
// At most one line item exists per (user, product) pair: AddItem merges
// quantities into the existing row instead of creating a duplicate.
type Store interface {
	ListItems(ctx context.Context, userID string) ([]LineItem, error)
	AddItem(ctx context.Context, userID, productID string, quantity int) error
	RemoveItem(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}
