package address

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when an address does not exist or is owned by a
// different user. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("address not found")

// Address is a shipping or billing destination owned by a user. At most one
// address per user carries IsDefault = true.
type Address struct {
	ID         string
	UserID     string
	Name       string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
	Phone      string
	IsDefault  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Store provides owner-scoped address lookup and default selection.
//
// SetDefault unsets the user's previous default and marks the given address
// in one atomic statement, so a concurrent reader never observes two
// defaults.
type Store interface {
	Find(ctx context.Context, id, userID string) (*Address, error)
	ListByUser(ctx context.Context, userID string) ([]Address, error)
	SetDefault(ctx context.Context, userID, id string) error
}
