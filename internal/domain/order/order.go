package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/schndra/storefront-api/internal/domain/pricing"
)

// Status tracks an order through fulfilment. Orders are immutable after
// creation except for status transitions.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// PaymentStatus tracks the payment lifecycle independently of fulfilment.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// ErrNotFound is returned when an order does not exist or is not visible to
// the requesting user.
var ErrNotFound = errors.New("order not found")

// ErrTxConflict indicates the order transaction lost a concurrency race
// (serialization failure, order number collision, or a concurrent submit of
// the same idempotency key) and may be retried with fresh reads.
var ErrTxConflict = errors.New("order transaction conflict")

// Order is a placed order with its priced line items.
//
// Invariants: Total = Subtotal + TaxAmount + ShippingAmount - DiscountAmount
// (each rounded to 2 decimals, Total clamped at zero), and the sum of item
// totals equals Subtotal.
type Order struct {
	ID                string
	OrderNumber       string
	UserID            string
	Status            Status
	PaymentStatus     PaymentStatus
	Subtotal          decimal.Decimal
	TaxAmount         decimal.Decimal
	ShippingAmount    decimal.Decimal
	DiscountAmount    decimal.Decimal
	Total             decimal.Decimal
	ShippingAddressID string
	BillingAddressID  string
	ShippingMethod    pricing.ShippingMethod
	PaymentMethod     string
	PromoCode         string
	Notes             string
	IdempotencyKey    string
	Items             []Item
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Item is a single order line. Price is the unit price snapshotted at order
// time, decoupled from the live product price; Total = Price * Quantity.
type Item struct {
	ProductID string
	Title     string
	SKU       string
	Price     decimal.Decimal
	Quantity  int
	Total     decimal.Decimal
}

// Repository defines persistence operations for orders. GetByID scopes by
// user in the query itself when userID is non-empty, so one user can never
// fetch another's order by guessing an id.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID, userID string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	FindByIdempotencyKey(ctx context.Context, userID, key string) (*Order, error)
}
