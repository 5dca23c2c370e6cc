package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/schndra/storefront-api/internal/domain/order"
	"github.com/schndra/storefront-api/internal/domain/pricing"
)

const (
	createOrderSQL = `INSERT INTO orders (
			id, order_number, user_id, status, payment_status,
			subtotal, tax_amount, shipping_amount, discount_amount, total,
			shipping_address_id, billing_address_id, shipping_method,
			payment_method, promo_code, notes, idempotency_key,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $18)`

	createOrderItemSQL = `INSERT INTO order_items (order_id, product_id, title, sku, price, quantity, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	orderColumns = `id, order_number, user_id, status, payment_status,
		subtotal, tax_amount, shipping_amount, discount_amount, total,
		shipping_address_id, billing_address_id, shipping_method,
		payment_method, promo_code, notes, COALESCE(idempotency_key, ''),
		created_at, updated_at`

	getOrderByIDSQL = `SELECT ` + orderColumns + `
		FROM orders WHERE id = $1 AND ($2 = '' OR user_id = $2)`

	listOrdersByUserSQL = `SELECT ` + orderColumns + `
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	findOrderByIdemKeySQL = `SELECT ` + orderColumns + `
		FROM orders WHERE user_id = $1 AND idempotency_key = $2`

	listOrderItemsSQL = `SELECT order_id, product_id, title, sku, price, quantity, total
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db DBTX
}

// NewOrderRepository returns an OrderRepository running against db, which may
// be a pool or an open transaction.
func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists the order and its items in one batch on the caller's
// connection. Unique violations on the order number or the idempotency key
// are reported as order.ErrTxConflict so the service can retry; on the retry
// pass an idempotency winner is found by key instead.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	var idemKey *string
	if o.IdempotencyKey != "" {
		idemKey = &o.IdempotencyKey
	}

	b := &pgx.Batch{}
	b.Queue(createOrderSQL,
		o.ID, o.OrderNumber, o.UserID, string(o.Status), string(o.PaymentStatus),
		o.Subtotal, o.TaxAmount, o.ShippingAmount, o.DiscountAmount, o.Total,
		o.ShippingAddressID, o.BillingAddressID, string(o.ShippingMethod),
		o.PaymentMethod, o.PromoCode, o.Notes, idemKey,
		o.CreatedAt,
	)
	for _, it := range o.Items {
		b.Queue(createOrderItemSQL, o.ID, it.ProductID, it.Title, it.SKU, it.Price, it.Quantity, it.Total)
	}

	if err := r.db.SendBatch(ctx, b).Close(); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return errors.Wrap(order.ErrTxConflict, pgErr.ConstraintName)
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns an order with its items. A non-empty userID scopes the
// lookup in SQL; an order owned by another user is reported as not found.
func (r *OrderRepository) GetByID(ctx context.Context, orderID, userID string) (*order.Order, error) {
	rows, err := r.db.Query(ctx, getOrderByIDSQL, orderID, userID)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", orderID, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", orderID, err)
	}

	if err := r.attachItems(ctx, []*order.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListByUser returns all of the user's orders with items, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.db.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}

	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}

	refs := make([]*order.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	if err := r.attachItems(ctx, refs); err != nil {
		return nil, err
	}
	return orders, nil
}

// FindByIdempotencyKey returns the order previously created with the given
// key, or order.ErrNotFound.
func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, userID, key string) (*order.Order, error) {
	rows, err := r.db.Query(ctx, findOrderByIdemKeySQL, userID, key)
	if err != nil {
		return nil, fmt.Errorf("finding order by idempotency key: %w", err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("finding order by idempotency key: %w", err)
	}

	if err := r.attachItems(ctx, []*order.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// attachItems loads order items for all given orders in one query.
func (r *OrderRepository) attachItems(ctx context.Context, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	byID := make(map[string]*order.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	rows, err := r.db.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			it      order.Item
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Title, &it.SKU, &it.Price, &it.Quantity, &it.Total); err != nil {
			return fmt.Errorf("scanning order item: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		status        string
		paymentStatus string
		method        string
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &status, &paymentStatus,
		&o.Subtotal, &o.TaxAmount, &o.ShippingAmount, &o.DiscountAmount, &o.Total,
		&o.ShippingAddressID, &o.BillingAddressID, &method,
		&o.PaymentMethod, &o.PromoCode, &o.Notes, &o.IdempotencyKey,
		&o.CreatedAt, &o.UpdatedAt,
	)
	o.Status = order.Status(status)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	o.ShippingMethod = pricing.ShippingMethod(method)
	return o, err
}
