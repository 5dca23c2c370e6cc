package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/schndra/storefront-api/internal/domain/address"
)

const (
	findAddressSQL = `SELECT id, user_id, name, line1, line2, city, state, postal_code, country, phone, is_default, created_at, updated_at
		FROM addresses WHERE id = $1 AND user_id = $2`

	listAddressesSQL = `SELECT id, user_id, name, line1, line2, city, state, postal_code, country, phone, is_default, created_at, updated_at
		FROM addresses WHERE user_id = $1 ORDER BY is_default DESC, created_at`

	// One statement flips the default flag for the whole owner scope, so no
	// interleaving can observe two defaults or none where one existed.
	setDefaultAddressSQL = `UPDATE addresses
		SET is_default = (id = $2), updated_at = now()
		WHERE user_id = $1
		AND EXISTS (SELECT 1 FROM addresses WHERE id = $2 AND user_id = $1)`
)

var _ address.Store = (*AddressRepository)(nil)

// AddressRepository implements address.Store backed by PostgreSQL.
type AddressRepository struct {
	db DBTX
}

// NewAddressRepository returns an AddressRepository running against db, which
// may be a pool or an open transaction.
func NewAddressRepository(db DBTX) *AddressRepository {
	return &AddressRepository{db: db}
}

// Find returns the address only when it exists and belongs to userID.
func (r *AddressRepository) Find(ctx context.Context, id, userID string) (*address.Address, error) {
	rows, err := r.db.Query(ctx, findAddressSQL, id, userID)
	if err != nil {
		return nil, fmt.Errorf("finding address %q: %w", id, err)
	}

	a, err := pgx.CollectExactlyOneRow(rows, scanAddress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, address.ErrNotFound
		}
		return nil, fmt.Errorf("finding address %q: %w", id, err)
	}
	return &a, nil
}

// ListByUser returns the user's addresses, default first.
func (r *AddressRepository) ListByUser(ctx context.Context, userID string) ([]address.Address, error) {
	rows, err := r.db.Query(ctx, listAddressesSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing addresses for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanAddress)
}

// SetDefault marks the given address as the user's default and unsets all
// others in one atomic statement. Returns address.ErrNotFound when the target
// address does not exist or is owned by another user.
func (r *AddressRepository) SetDefault(ctx context.Context, userID, id string) error {
	tag, err := r.db.Exec(ctx, setDefaultAddressSQL, userID, id)
	if err != nil {
		return fmt.Errorf("setting default address %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return address.ErrNotFound
	}
	return nil
}

func scanAddress(row pgx.CollectableRow) (address.Address, error) {
	var a address.Address
	err := row.Scan(
		&a.ID, &a.UserID, &a.Name, &a.Line1, &a.Line2, &a.City, &a.State,
		&a.PostalCode, &a.Country, &a.Phone, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}
