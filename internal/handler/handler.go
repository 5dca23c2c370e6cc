package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/schndra/storefront-api/internal/domain/address"
	"github.com/schndra/storefront-api/internal/domain/cart"
	"github.com/schndra/storefront-api/internal/domain/order"
	"github.com/schndra/storefront-api/internal/domain/product"
)

// userIDHeader carries the caller identity resolved by the upstream gateway.
// Authentication itself happens outside this service.
const userIDHeader = "X-User-ID"

// idempotencyKeyHeader carries the optional client token that de-duplicates
// checkout resubmissions.
const idempotencyKeyHeader = "Idempotency-Key"

// Handler exposes the checkout API over HTTP, delegating business logic to
// the order service and the injected stores.
type Handler struct {
	orders   *order.Service
	carts    cart.Store
	addrs    address.Store
	products product.Store
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(orders *order.Service, carts cart.Store, addrs address.Store, products product.Store) *Handler {
	return &Handler{
		orders:   orders,
		carts:    carts,
		addrs:    addrs,
		products: products,
	}
}

// Routes returns the API router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.listProducts)
		r.Get("/products/{productID}", h.getProduct)

		r.Post("/checkout/orders", h.placeOrder)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/{orderID}", h.getOrder)

		r.Get("/cart/summary", h.cartSummary)
		r.Post("/cart/items", h.addCartItem)
		r.Delete("/cart/items/{productID}", h.removeCartItem)

		r.Get("/addresses", h.listAddresses)
		r.Put("/addresses/{addressID}/default", h.setDefaultAddress)
	})
	return r
}

// userID extracts the caller identity, writing 401 when absent.
func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(userIDHeader)
	if id == "" {
		respondError(w, http.StatusUnauthorized, "user identity required")
		return "", false
	}
	return id, true
}
