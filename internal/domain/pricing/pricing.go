package pricing

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrUnknownShippingMethod is returned when a shipping method is not one of
// the supported values.
var ErrUnknownShippingMethod = errors.New("unknown shipping method")

// ShippingMethod selects how an order is delivered.
type ShippingMethod string

const (
	ShippingStandard  ShippingMethod = "standard"
	ShippingExpress   ShippingMethod = "express"
	ShippingOvernight ShippingMethod = "overnight"
)

// Valid reports whether m is a supported shipping method.
func (m ShippingMethod) Valid() bool {
	switch m {
	case ShippingStandard, ShippingExpress, ShippingOvernight:
		return true
	}
	return false
}

// LineItem is the pricing view of a cart entry.
type LineItem struct {
	ProductID string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Summary holds the computed totals for a set of line items. Every monetary
// field is rounded to 2 decimal places independently so that persisted
// amounts never drift from what was shown to the customer.
type Summary struct {
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	Shipping   decimal.Decimal
	Discount   decimal.Decimal
	Total      decimal.Decimal
	ItemsCount int
}

// ShippingPolicy computes the shipping fee for a method given the order
// subtotal. Implementations must be pure.
type ShippingPolicy interface {
	Fee(method ShippingMethod, subtotal decimal.Decimal) (decimal.Decimal, error)
}

// MethodTable charges a flat fee per shipping method: standard is free,
// express and overnight carry fixed fees.
type MethodTable struct {
	Express   decimal.Decimal
	Overnight decimal.Decimal
}

func (t MethodTable) Fee(method ShippingMethod, _ decimal.Decimal) (decimal.Decimal, error) {
	switch method {
	case ShippingStandard:
		return decimal.Zero, nil
	case ShippingExpress:
		return t.Express, nil
	case ShippingOvernight:
		return t.Overnight, nil
	default:
		return decimal.Zero, errors.Wrapf(ErrUnknownShippingMethod, "%q", method)
	}
}

// FreeOverThreshold charges a flat fee regardless of method and waives it
// once the subtotal reaches the threshold.
type FreeOverThreshold struct {
	FlatFee   decimal.Decimal
	Threshold decimal.Decimal
}

func (p FreeOverThreshold) Fee(method ShippingMethod, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if !method.Valid() {
		return decimal.Zero, errors.Wrapf(ErrUnknownShippingMethod, "%q", method)
	}
	if subtotal.GreaterThanOrEqual(p.Threshold) {
		return decimal.Zero, nil
	}
	return p.FlatFee, nil
}

// Calculator computes order totals from line items. It performs no I/O.
type Calculator struct {
	taxRate  decimal.Decimal
	shipping ShippingPolicy
}

// NewCalculator creates a Calculator with the given tax rate (e.g. 0.10 for
// 10%) and shipping policy.
func NewCalculator(taxRate decimal.Decimal, shipping ShippingPolicy) *Calculator {
	return &Calculator{taxRate: taxRate, shipping: shipping}
}

// Compute returns the totals for the given line items, shipping method, and
// an already-resolved discount amount. An empty item list yields an all-zero
// summary; callers that require a non-empty cart enforce that themselves.
//
// total = subtotal + tax + shipping - discount, clamped at zero.
func (c *Calculator) Compute(items []LineItem, method ShippingMethod, discount decimal.Decimal) (Summary, error) {
	if len(items) == 0 {
		return Summary{
			Subtotal: decimal.Zero,
			Tax:      decimal.Zero,
			Shipping: decimal.Zero,
			Discount: decimal.Zero,
			Total:    decimal.Zero,
		}, nil
	}

	subtotal := decimal.Zero
	count := 0
	for _, item := range items {
		qty := decimal.NewFromInt(int64(item.Quantity))
		subtotal = subtotal.Add(item.UnitPrice.Mul(qty))
		count += item.Quantity
	}
	subtotal = subtotal.Round(2)

	tax := subtotal.Mul(c.taxRate).Round(2)

	shipping, err := c.shipping.Fee(method, subtotal)
	if err != nil {
		return Summary{}, err
	}
	shipping = shipping.Round(2)

	discount = discount.Round(2)
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	total := subtotal.Add(tax).Add(shipping).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Summary{
		Subtotal:   subtotal,
		Tax:        tax,
		Shipping:   shipping,
		Discount:   discount,
		Total:      total.Round(2),
		ItemsCount: count,
	}, nil
}
