package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/schndra/storefront-api/internal/domain/order"
	"github.com/schndra/storefront-api/internal/domain/pricing"
	"github.com/schndra/storefront-api/internal/domain/promo"
)

type placeOrderRequest struct {
	ShippingAddressID string `json:"shipping_address_id"`
	BillingAddressID  string `json:"billing_address_id"`
	ShippingMethod    string `json:"shipping_method"`
	PaymentMethod     string `json:"payment_method"`
	PromoCode         string `json:"promo_code"`
	Notes             string `json:"notes"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	placed, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		UserID:            userID,
		ShippingAddressID: req.ShippingAddressID,
		BillingAddressID:  req.BillingAddressID,
		ShippingMethod:    pricing.ShippingMethod(req.ShippingMethod),
		PaymentMethod:     req.PaymentMethod,
		PromoCode:         req.PromoCode,
		Notes:             req.Notes,
		IdempotencyKey:    r.Header.Get(idempotencyKeyHeader),
	})
	if err != nil {
		h.respondOrderError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(true)
	e.FieldStart("order")
	encodeOrder(&e, placed)
	e.ObjEnd()
	respond(w, http.StatusCreated, &e)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), userID)
	if err != nil {
		h.respondOrderError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("orders")
	e.ArrStart()
	for i := range orders {
		encodeOrder(&e, &orders[i])
	}
	e.ArrEnd()
	e.ObjEnd()
	respond(w, http.StatusOK, &e)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	o, err := h.orders.GetByID(r.Context(), chi.URLParam(r, "orderID"), userID)
	if err != nil {
		h.respondOrderError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeOrder(&e, o)
	respond(w, http.StatusOK, &e)
}

// respondOrderError translates domain errors into HTTP responses. Unexpected
// errors are logged and surface as opaque 500s.
func (h *Handler) respondOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *order.ValidationError
		addrErr       *order.AddressNotFoundError
		stockErr      *order.InsufficientStockError
	)
	switch {
	case errors.As(err, &validationErr):
		respondError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, order.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "cart is empty")
	case errors.Is(err, pricing.ErrUnknownShippingMethod):
		respondError(w, http.StatusBadRequest, "unknown shipping method")
	case errors.Is(err, order.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "user identity required")
	case errors.As(err, &addrErr):
		respondError(w, http.StatusNotFound, addrErr.Error())
	case errors.Is(err, order.ErrNotFound):
		respondError(w, http.StatusNotFound, "order not found")
	case errors.As(err, &stockErr):
		respondError(w, http.StatusConflict, stockErr.Error())
	case errors.Is(err, order.ErrTxConflict):
		respondError(w, http.StatusConflict, "order could not be placed, retry the request")
	case errors.Is(err, promo.ErrInvalidCode),
		errors.Is(err, promo.ErrExpired),
		errors.Is(err, promo.ErrUsageLimitReached):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		zctx.From(r.Context()).Error("Order request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
