package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/schndra/storefront-api/internal/domain/cart"
	"github.com/schndra/storefront-api/internal/domain/order"
	"github.com/schndra/storefront-api/internal/domain/pricing"
)

// Responses are encoded with jx so monetary values are emitted as exact
// two-fraction-digit JSON numbers instead of going through float64.

func respond(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func respondError(w http.ResponseWriter, status int, message string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(false)
	e.FieldStart("error")
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	e.ObjEnd()
	respond(w, status, &e)
}

func money(e *jx.Encoder, d decimal.Decimal) {
	e.Raw(jx.Raw(d.StringFixed(2)))
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("order_number")
	e.Str(o.OrderNumber)
	e.FieldStart("user_id")
	e.Str(o.UserID)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("payment_status")
	e.Str(string(o.PaymentStatus))
	e.FieldStart("subtotal")
	money(e, o.Subtotal)
	e.FieldStart("tax_amount")
	money(e, o.TaxAmount)
	e.FieldStart("shipping_amount")
	money(e, o.ShippingAmount)
	e.FieldStart("discount_amount")
	money(e, o.DiscountAmount)
	e.FieldStart("total")
	money(e, o.Total)
	e.FieldStart("shipping_address_id")
	e.Str(o.ShippingAddressID)
	e.FieldStart("billing_address_id")
	e.Str(o.BillingAddressID)
	e.FieldStart("shipping_method")
	e.Str(string(o.ShippingMethod))
	e.FieldStart("payment_method")
	e.Str(o.PaymentMethod)
	if o.PromoCode != "" {
		e.FieldStart("promo_code")
		e.Str(o.PromoCode)
	}
	if o.Notes != "" {
		e.FieldStart("notes")
		e.Str(o.Notes)
	}
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Str(it.ProductID)
		e.FieldStart("title")
		e.Str(it.Title)
		e.FieldStart("sku")
		e.Str(it.SKU)
		e.FieldStart("price")
		money(e, it.Price)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("total")
		money(e, it.Total)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("created_at")
	e.Str(o.CreatedAt.Format(time.RFC3339))
	e.ObjEnd()
}

func encodeSummary(e *jx.Encoder, sum pricing.Summary, items []cart.LineItem) {
	e.ObjStart()
	e.FieldStart("subtotal")
	money(e, sum.Subtotal)
	e.FieldStart("tax_amount")
	money(e, sum.Tax)
	e.FieldStart("shipping_amount")
	money(e, sum.Shipping)
	e.FieldStart("discount_amount")
	money(e, sum.Discount)
	e.FieldStart("total")
	money(e, sum.Total)
	e.FieldStart("items_count")
	e.Int(sum.ItemsCount)
	e.FieldStart("items")
	e.ArrStart()
	for _, li := range items {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Str(li.ProductID)
		e.FieldStart("title")
		e.Str(li.Title)
		e.FieldStart("sku")
		e.Str(li.SKU)
		e.FieldStart("unit_price")
		money(e, li.UnitPrice)
		e.FieldStart("quantity")
		e.Int(li.Quantity)
		e.FieldStart("stock")
		e.Int(li.Stock)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}
