package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/schndra/storefront-api/internal/domain/address"
	"github.com/schndra/storefront-api/internal/domain/cart"
	"github.com/schndra/storefront-api/internal/domain/order"
	"github.com/schndra/storefront-api/internal/domain/promo"
)

var _ order.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork runs closures inside a serializable PostgreSQL transaction and
// hands them a transaction-bound repository set.
type UnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork returns a UnitOfWork backed by the given pool.
func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

// WithinTx begins a serializable transaction, builds repositories on it, and
// commits when fn returns nil. Serialization failures and deadlocks are
// reported as order.ErrTxConflict so the caller can retry with fresh reads.
func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(tx order.TxStores) error) error {
	err := pgx.BeginTxFunc(ctx, u.pool,
		pgx.TxOptions{IsoLevel: pgx.Serializable},
		func(tx pgx.Tx) error {
			return fn(txStores{tx: tx})
		},
	)
	if err != nil && isRetryable(err) {
		return errors.Wrap(order.ErrTxConflict, err.Error())
	}
	return err
}

// txStores binds every repository to one pgx.Tx.
type txStores struct {
	tx pgx.Tx
}

func (s txStores) Carts() cart.Store              { return NewCartRepository(s.tx) }
func (s txStores) Addresses() address.Store       { return NewAddressRepository(s.tx) }
func (s txStores) Products() order.ProductMutator { return NewProductRepository(s.tx) }
func (s txStores) Orders() order.Repository       { return NewOrderRepository(s.tx) }
func (s txStores) Promos() promo.Repository       { return NewPromoRepository(s.tx) }

// isRetryable reports whether err is a transient concurrency failure:
// serialization_failure (40001) or deadlock_detected (40P01).
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
