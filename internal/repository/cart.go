package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/schndra/storefront-api/internal/domain/cart"
)

const (
	// Line items join the catalog so unit price and product snapshot always
	// reflect the current product state at read time.
	listCartItemsSQL = `SELECT ci.product_id, ci.quantity, p.price, p.title, p.sku, p.stock
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at, ci.product_id`

	addCartItemSQL = `INSERT INTO cart_items (user_id, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()`

	removeCartItemSQL = `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`

	clearCartSQL = `DELETE FROM cart_items WHERE user_id = $1`
)

var _ cart.Store = (*CartRepository)(nil)

// CartRepository implements cart.Store backed by PostgreSQL.
type CartRepository struct {
	db DBTX
}

// NewCartRepository returns a CartRepository running against db, which may be
// a pool or an open transaction.
func NewCartRepository(db DBTX) *CartRepository {
	return &CartRepository{db: db}
}

// ListItems returns the user's cart line items with fresh product snapshots.
func (r *CartRepository) ListItems(ctx context.Context, userID string) ([]cart.LineItem, error) {
	rows, err := r.db.Query(ctx, listCartItemsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing cart items for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.LineItem, error) {
		var li cart.LineItem
		err := row.Scan(&li.ProductID, &li.Quantity, &li.UnitPrice, &li.Title, &li.SKU, &li.Stock)
		return li, err
	})
}

// AddItem inserts a line item, merging quantities into the existing row for
// the same (user, product) pair.
func (r *CartRepository) AddItem(ctx context.Context, userID, productID string, quantity int) error {
	_, err := r.db.Exec(ctx, addCartItemSQL, userID, productID, quantity)
	if err != nil {
		return fmt.Errorf("adding product %q to cart: %w", productID, err)
	}
	return nil
}

// RemoveItem deletes one line item from the user's cart.
func (r *CartRepository) RemoveItem(ctx context.Context, userID, productID string) error {
	_, err := r.db.Exec(ctx, removeCartItemSQL, userID, productID)
	if err != nil {
		return fmt.Errorf("removing product %q from cart: %w", productID, err)
	}
	return nil
}

// Clear deletes all of the user's cart line items.
func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, clearCartSQL, userID)
	if err != nil {
		return fmt.Errorf("clearing cart for user %q: %w", userID, err)
	}
	return nil
}
