package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schndra/storefront-api/internal/domain/address"
	"github.com/schndra/storefront-api/internal/domain/cart"
	"github.com/schndra/storefront-api/internal/domain/order"
	"github.com/schndra/storefront-api/internal/domain/pricing"
	"github.com/schndra/storefront-api/internal/domain/product"
	"github.com/schndra/storefront-api/internal/domain/promo"
)

type memCarts struct {
	items map[string][]cart.LineItem
}

func (m *memCarts) ListItems(_ context.Context, userID string) ([]cart.LineItem, error) {
	return append([]cart.LineItem(nil), m.items[userID]...), nil
}

func (m *memCarts) AddItem(_ context.Context, userID, productID string, quantity int) error {
	for i, li := range m.items[userID] {
		if li.ProductID == productID {
			m.items[userID][i].Quantity += quantity
			return nil
		}
	}
	m.items[userID] = append(m.items[userID], cart.LineItem{
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: decimal.NewFromInt(10),
		Title:     "Widget",
		SKU:       "SKU-" + productID,
		Stock:     100,
	})
	return nil
}

func (m *memCarts) RemoveItem(_ context.Context, userID, productID string) error {
	items := m.items[userID]
	for i, li := range items {
		if li.ProductID == productID {
			m.items[userID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memCarts) Clear(_ context.Context, userID string) error {
	delete(m.items, userID)
	return nil
}

type memAddrs struct {
	byID map[string]*address.Address
}

func (m *memAddrs) Find(_ context.Context, id, userID string) (*address.Address, error) {
	a, ok := m.byID[id]
	if !ok || a.UserID != userID {
		return nil, address.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAddrs) ListByUser(_ context.Context, userID string) ([]address.Address, error) {
	var out []address.Address
	for _, a := range m.byID {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memAddrs) SetDefault(_ context.Context, userID, id string) error {
	target, ok := m.byID[id]
	if !ok || target.UserID != userID {
		return address.ErrNotFound
	}
	for _, a := range m.byID {
		if a.UserID == userID {
			a.IsDefault = a.ID == id
		}
	}
	return nil
}

type memProducts struct {
	byID map[string]*product.Product
}

func (m *memProducts) ListActive(context.Context) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.byID {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProducts) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProducts) DecrementStock(_ context.Context, id string, qty int) (bool, error) {
	p, ok := m.byID[id]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	return true, nil
}

type memOrders struct {
	orders []*order.Order
}

func (m *memOrders) Create(_ context.Context, o *order.Order) error {
	m.orders = append(m.orders, o)
	return nil
}

func (m *memOrders) GetByID(_ context.Context, orderID, userID string) (*order.Order, error) {
	for _, o := range m.orders {
		if o.ID == orderID && (userID == "" || o.UserID == userID) {
			return o, nil
		}
	}
	return nil, order.ErrNotFound
}

func (m *memOrders) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memOrders) FindByIdempotencyKey(_ context.Context, userID, key string) (*order.Order, error) {
	for _, o := range m.orders {
		if o.UserID == userID && o.IdempotencyKey == key {
			return o, nil
		}
	}
	return nil, order.ErrNotFound
}

type memPromos struct{}

func (memPromos) FindByCode(context.Context, string) (*promo.Rule, error) {
	return nil, promo.ErrInvalidCode
}

func (memPromos) IncrementUses(context.Context, string) error { return nil }

type memTx struct {
	carts    *memCarts
	addrs    *memAddrs
	products *memProducts
	orders   *memOrders
}

func (t memTx) Carts() cart.Store              { return t.carts }
func (t memTx) Addresses() address.Store       { return t.addrs }
func (t memTx) Products() order.ProductMutator { return t.products }
func (t memTx) Orders() order.Repository       { return t.orders }
func (t memTx) Promos() promo.Repository       { return memPromos{} }

type memUow struct {
	tx memTx
}

func (u memUow) WithinTx(_ context.Context, fn func(order.TxStores) error) error {
	return fn(u.tx)
}

type fixture struct {
	handler  http.Handler
	carts    *memCarts
	addrs    *memAddrs
	products *memProducts
	orders   *memOrders
}

func newFixture() *fixture {
	carts := &memCarts{items: map[string][]cart.LineItem{
		"u1": {
			{ProductID: "p1", Quantity: 2, UnitPrice: decimal.NewFromInt(10), Title: "Widget", SKU: "SKU-p1", Stock: 5},
		},
	}}
	addrs := &memAddrs{byID: map[string]*address.Address{
		"a1": {ID: "a1", UserID: "u1", Line1: "1 Main St", City: "Springfield", Country: "US", IsDefault: true},
		"a2": {ID: "a2", UserID: "u1", Line1: "2 Oak Ave", City: "Springfield", Country: "US"},
		"b1": {ID: "b1", UserID: "u2", Line1: "9 Elm St", City: "Shelbyville", Country: "US"},
	}}
	products := &memProducts{byID: map[string]*product.Product{
		"p1": {ID: "p1", Title: "Widget", SKU: "SKU-p1", Price: decimal.NewFromInt(10), Stock: 5, IsActive: true},
		"p2": {ID: "p2", Title: "Gadget", SKU: "SKU-p2", Price: decimal.NewFromInt(25), Stock: 3, IsActive: true},
		"p3": {ID: "p3", Title: "Retired", SKU: "SKU-p3", Price: decimal.NewFromInt(7), Stock: 1, IsActive: false},
	}}
	orders := &memOrders{}

	calc := pricing.NewCalculator(
		decimal.RequireFromString("0.10"),
		pricing.FreeOverThreshold{
			FlatFee:   decimal.NewFromInt(5),
			Threshold: decimal.NewFromInt(50),
		},
	)
	svc := order.NewService(
		memUow{tx: memTx{carts: carts, addrs: addrs, products: products, orders: orders}},
		carts, orders, calc, order.TimestampNumbers{},
	)

	h := NewHandler(svc, carts, addrs, products)
	return &fixture{
		handler:  h.Routes(),
		carts:    carts,
		addrs:    addrs,
		products: products,
		orders:   orders,
	}
}

func (f *fixture) do(t *testing.T, method, target, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if userID != "" {
		req.Header.Set(userIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestPlaceOrder_Success(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/api/checkout/orders", "u1",
		`{"shipping_address_id":"a1","shipping_method":"standard","payment_method":"card_tok_1"}`)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Order   struct {
			OrderNumber    string          `json:"order_number"`
			Status         string          `json:"status"`
			Subtotal       decimal.Decimal `json:"subtotal"`
			TaxAmount      decimal.Decimal `json:"tax_amount"`
			ShippingAmount decimal.Decimal `json:"shipping_amount"`
			Total          decimal.Decimal `json:"total"`
			BillingAddress string          `json:"billing_address_id"`
			Items          []struct {
				ProductID string          `json:"product_id"`
				Total     decimal.Decimal `json:"total"`
			} `json:"items"`
		} `json:"order"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.Order.OrderNumber, "ORD-"))
	assert.Equal(t, "PENDING", resp.Order.Status)
	assert.Equal(t, "20", resp.Order.Subtotal.String())
	assert.Equal(t, "2", resp.Order.TaxAmount.String())
	assert.Equal(t, "5", resp.Order.ShippingAmount.String())
	assert.Equal(t, "27", resp.Order.Total.String())
	assert.Equal(t, "a1", resp.Order.BillingAddress)
	require.Len(t, resp.Order.Items, 1)
	assert.Equal(t, "p1", resp.Order.Items[0].ProductID)

	// Stock decremented, cart cleared.
	assert.Equal(t, 3, f.products.byID["p1"].Stock)
	assert.Empty(t, f.carts.items["u1"])
}

func TestPlaceOrder_MoneyEncodedWithTwoFractionDigits(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/api/checkout/orders", "u1",
		`{"shipping_address_id":"a1","shipping_method":"standard","payment_method":"card_tok_1"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"subtotal":20.00`)
	assert.Contains(t, rec.Body.String(), `"total":27.00`)
}

func TestPlaceOrder_MissingUser(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/api/checkout/orders", "",
		`{"shipping_address_id":"a1","shipping_method":"standard","payment_method":"card_tok_1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture()
	f.carts.items = map[string][]cart.LineItem{}

	rec := f.do(t, http.MethodPost, "/api/checkout/orders", "u1",
		`{"shipping_address_id":"a1","shipping_method":"standard","payment_method":"card_tok_1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "cart is empty")
}

func TestPlaceOrder_InvalidBody(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/api/checkout/orders", "u1", `{"shipping`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceOrder_UnknownShippingMethod(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/api/checkout/orders", "u1",
		`{"shipping_address_id":"a1","shipping_method":"teleport","payment_method":"card_tok_1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceOrder_ForeignAddress(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/api/checkout/orders", "u1",
		`{"shipping_address_id":"b1","shipping_method":"standard","payment_method":"card_tok_1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "address b1 not found")
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	f := newFixture()
	f.products.byID["p1"].Stock = 1

	rec := f.do(t, http.MethodPost, "/api/checkout/orders", "u1",
		`{"shipping_address_id":"a1","shipping_method":"standard","payment_method":"card_tok_1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient stock")
}

func TestPlaceOrder_InvalidPromo(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/api/checkout/orders", "u1",
		`{"shipping_address_id":"a1","shipping_method":"standard","payment_method":"card_tok_1","promo_code":"NOPE"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetOrder_ScopedToUser(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/api/checkout/orders", "u1",
		`{"shipping_address_id":"a1","shipping_method":"standard","payment_method":"card_tok_1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, f.orders.orders, 1)
	orderID := f.orders.orders[0].ID

	rec = f.do(t, http.MethodGet, "/api/orders/"+orderID, "u1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/orders/"+orderID, "u2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOrders(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/api/checkout/orders", "u1",
		`{"shipping_address_id":"a1","shipping_method":"standard","payment_method":"card_tok_1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/orders", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Orders []json.RawMessage `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Orders, 1)
}

func TestCartSummary(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodGet, "/api/cart/summary?shipping_method=standard", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Subtotal   decimal.Decimal `json:"subtotal"`
		Total      decimal.Decimal `json:"total"`
		ItemsCount int             `json:"items_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "20", resp.Subtotal.String())
	assert.Equal(t, "27", resp.Total.String())
	assert.Equal(t, 2, resp.ItemsCount)
}

func TestCartSummary_DefaultsToStandardShipping(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodGet, "/api/cart/summary", "u1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAddCartItem(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/api/cart/items", "u1", `{"product_id":"p2","quantity":1}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, f.carts.items["u1"], 2)
}

func TestAddCartItem_Validation(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/cart/items", "u1", `{"quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/cart/items", "u1", `{"product_id":"p2","quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddCartItem_UnknownProduct(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/api/cart/items", "u1", `{"product_id":"ghost","quantity":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddCartItem_InactiveProduct(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/api/cart/items", "u1", `{"product_id":"p3","quantity":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListProducts(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodGet, "/api/products", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var products []struct {
		ID    string          `json:"id"`
		Price decimal.Decimal `json:"price"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	assert.Len(t, products, 2) // inactive product excluded
}

func TestGetProduct(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/products/p1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"price":10.00`)

	rec = f.do(t, http.MethodGet, "/api/products/ghost", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveCartItem(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodDelete, "/api/cart/items/p1", "u1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, f.carts.items["u1"])
}

func TestSetDefaultAddress(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPut, "/api/addresses/a2/default", "u1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, f.addrs.byID["a2"].IsDefault)
	assert.False(t, f.addrs.byID["a1"].IsDefault)
}

func TestSetDefaultAddress_ForeignAddress(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPut, "/api/addresses/b1/default", "u1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAddresses(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodGet, "/api/addresses", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Addresses []json.RawMessage `json:"addresses"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Addresses, 2)
}
