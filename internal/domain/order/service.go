package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/schndra/storefront-api/internal/domain/address"
	"github.com/schndra/storefront-api/internal/domain/cart"
	"github.com/schndra/storefront-api/internal/domain/pricing"
	"github.com/schndra/storefront-api/internal/domain/promo"
)

const maxOpaqueField = 64

// TxStores is the set of repositories bound to one database transaction.
// Every read and write performed through it commits or rolls back together.
type TxStores interface {
	Carts() cart.Store
	Addresses() address.Store
	Products() ProductMutator
	Orders() Repository
	Promos() promo.Repository
}

// ProductMutator is the slice of the product store the checkout transaction
// needs: a conditional stock decrement that reports whether it applied.
type ProductMutator interface {
	DecrementStock(ctx context.Context, id string, qty int) (bool, error)
}

// UnitOfWork runs a function inside a single serializable database
// transaction. Any error returned from fn aborts every write made through
// the TxStores.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(tx TxStores) error) error
}

// PlaceOrderRequest holds the checkout input for placing an order.
type PlaceOrderRequest struct {
	UserID            string
	ShippingAddressID string
	// BillingAddressID defaults to the shipping address when empty.
	BillingAddressID string
	ShippingMethod   pricing.ShippingMethod
	// PaymentMethod is an opaque payment reference, never raw card data.
	PaymentMethod string
	PromoCode     string
	Notes         string
	// IdempotencyKey, when set, de-duplicates resubmissions: the same key
	// from the same user returns the originally created order.
	IdempotencyKey string
}

// Service assembles orders from the current cart state. All writes of a
// placement (order + items, stock decrements, cart clear, promo usage) happen
// in one transaction; a partial order is never observable.
type Service struct {
	uow     UnitOfWork
	carts   cart.Store
	orders  Repository
	calc    *pricing.Calculator
	numbers NumberGenerator
	now     func() time.Time
}

// NewService creates an order Service with the required collaborators.
func NewService(
	uow UnitOfWork,
	carts cart.Store,
	orders Repository,
	calc *pricing.Calculator,
	numbers NumberGenerator,
) *Service {
	return &Service{
		uow:     uow,
		carts:   carts,
		orders:  orders,
		calc:    calc,
		numbers: numbers,
		now:     time.Now,
	}
}

// PlaceOrder re-reads the user's cart, validates addresses, prices the order,
// and persists the order with its items, stock decrements, and cart clear as
// one atomic unit. A transaction that loses a concurrency race is retried
// exactly once with fresh reads.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if err := validatePlaceOrder(req); err != nil {
		return nil, err
	}

	placed, err := s.placeOnce(ctx, req)
	if errors.Is(err, ErrTxConflict) {
		placed, err = s.placeOnce(ctx, req)
	}
	return placed, err
}

func (s *Service) placeOnce(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	var placed *Order

	err := s.uow.WithinTx(ctx, func(tx TxStores) error {
		// Resubmission with a known key returns the original order. A
		// concurrent first submission surfaces as ErrTxConflict from Create
		// below, and this lookup wins on the retry pass.
		if req.IdempotencyKey != "" {
			existing, err := tx.Orders().FindByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return errors.Wrap(err, "lookup idempotency key")
			}
			if existing != nil {
				placed = existing
				return nil
			}
		}

		// Current cart state, not any client-supplied snapshot.
		items, err := tx.Carts().ListItems(ctx, req.UserID)
		if err != nil {
			return errors.Wrap(err, "list cart items")
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		shipping, err := findAddress(ctx, tx, req.ShippingAddressID, req.UserID)
		if err != nil {
			return err
		}
		billingID := req.BillingAddressID
		if billingID == "" {
			billingID = shipping.ID
		} else if _, err := findAddress(ctx, tx, billingID, req.UserID); err != nil {
			return err
		}

		discount := decimal.Zero
		promoCode := ""
		if req.PromoCode != "" {
			d, err := promo.NewRepoValidator(tx.Promos()).Validate(ctx, req.PromoCode, promoItems(items))
			if err != nil {
				return err
			}
			discount = d.Amount
			promoCode = req.PromoCode
		}

		sum, err := s.calc.Compute(pricingItems(items), req.ShippingMethod, discount)
		if err != nil {
			return err
		}

		now := s.now()
		o := &Order{
			ID:                uuid.New().String(),
			OrderNumber:       s.numbers.Next(),
			UserID:            req.UserID,
			Status:            StatusPending,
			PaymentStatus:     PaymentPending,
			Subtotal:          sum.Subtotal,
			TaxAmount:         sum.Tax,
			ShippingAmount:    sum.Shipping,
			DiscountAmount:    sum.Discount,
			Total:             sum.Total,
			ShippingAddressID: shipping.ID,
			BillingAddressID:  billingID,
			ShippingMethod:    req.ShippingMethod,
			PaymentMethod:     req.PaymentMethod,
			PromoCode:         promoCode,
			Notes:             req.Notes,
			IdempotencyKey:    req.IdempotencyKey,
			Items:             make([]Item, 0, len(items)),
			CreatedAt:         now,
			UpdatedAt:         now,
		}

		for _, li := range items {
			qty := decimal.NewFromInt(int64(li.Quantity))
			o.Items = append(o.Items, Item{
				ProductID: li.ProductID,
				Title:     li.Title,
				SKU:       li.SKU,
				Price:     li.UnitPrice,
				Quantity:  li.Quantity,
				Total:     li.UnitPrice.Mul(qty).Round(2),
			})

			ok, err := tx.Products().DecrementStock(ctx, li.ProductID, li.Quantity)
			if err != nil {
				return errors.Wrapf(err, "decrement stock for product %s", li.ProductID)
			}
			if !ok {
				return &InsufficientStockError{ProductID: li.ProductID, Requested: li.Quantity}
			}
		}

		if err := tx.Orders().Create(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}

		if err := tx.Carts().Clear(ctx, req.UserID); err != nil {
			return errors.Wrap(err, "clear cart")
		}

		placed = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

// QuoteCart prices the user's current cart without placing an order. An empty
// cart yields an all-zero summary.
func (s *Service) QuoteCart(ctx context.Context, userID string, method pricing.ShippingMethod) (pricing.Summary, []cart.LineItem, error) {
	if userID == "" {
		return pricing.Summary{}, nil, ErrUnauthorized
	}
	if !method.Valid() {
		return pricing.Summary{}, nil, &ValidationError{Field: "shipping_method", Reason: "unknown method"}
	}

	items, err := s.carts.ListItems(ctx, userID)
	if err != nil {
		return pricing.Summary{}, nil, errors.Wrap(err, "list cart items")
	}

	sum, err := s.calc.Compute(pricingItems(items), method, decimal.Zero)
	if err != nil {
		return pricing.Summary{}, nil, err
	}
	return sum, items, nil
}

// GetByID returns a single order. When userID is non-empty the lookup is
// scoped to that user; orders owned by others are reported as not found.
func (s *Service) GetByID(ctx context.Context, orderID, userID string) (*Order, error) {
	return s.orders.GetByID(ctx, orderID, userID)
}

// ListByUser returns the user's orders, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	return s.orders.ListByUser(ctx, userID)
}

func findAddress(ctx context.Context, tx TxStores, id, userID string) (*address.Address, error) {
	a, err := tx.Addresses().Find(ctx, id, userID)
	if err != nil {
		if errors.Is(err, address.ErrNotFound) {
			return nil, &AddressNotFoundError{AddressID: id}
		}
		return nil, errors.Wrapf(err, "find address %s", id)
	}
	return a, nil
}

func validatePlaceOrder(req PlaceOrderRequest) error {
	if req.UserID == "" {
		return ErrUnauthorized
	}
	if req.ShippingAddressID == "" {
		return &ValidationError{Field: "shipping_address_id", Reason: "required"}
	}
	if !req.ShippingMethod.Valid() {
		return &ValidationError{Field: "shipping_method", Reason: "unknown method"}
	}
	if req.PaymentMethod == "" {
		return &ValidationError{Field: "payment_method", Reason: "required"}
	}
	if len(req.PaymentMethod) > maxOpaqueField {
		return &ValidationError{Field: "payment_method", Reason: "too long"}
	}
	if len(req.IdempotencyKey) > 255 {
		return &ValidationError{Field: "idempotency_key", Reason: "too long"}
	}
	return nil
}

func pricingItems(items []cart.LineItem) []pricing.LineItem {
	out := make([]pricing.LineItem, len(items))
	for i, li := range items {
		out[i] = pricing.LineItem{
			ProductID: li.ProductID,
			UnitPrice: li.UnitPrice,
			Quantity:  li.Quantity,
		}
	}
	return out
}

func promoItems(items []cart.LineItem) []promo.Item {
	out := make([]promo.Item, len(items))
	for i, li := range items {
		out[i] = promo.Item{
			ProductID: li.ProductID,
			Price:     li.UnitPrice,
			Quantity:  li.Quantity,
		}
	}
	return out
}
