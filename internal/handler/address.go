package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/schndra/storefront-api/internal/domain/address"
)

func (h *Handler) listAddresses(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	addrs, err := h.addrs.ListByUser(r.Context(), userID)
	if err != nil {
		zctx.From(r.Context()).Error("Listing addresses failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("addresses")
	e.ArrStart()
	for i := range addrs {
		encodeAddress(&e, &addrs[i])
	}
	e.ArrEnd()
	e.ObjEnd()
	respond(w, http.StatusOK, &e)
}

func (h *Handler) setDefaultAddress(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	err := h.addrs.SetDefault(r.Context(), userID, chi.URLParam(r, "addressID"))
	if err != nil {
		if errors.Is(err, address.ErrNotFound) {
			respondError(w, http.StatusNotFound, "address not found")
			return
		}
		zctx.From(r.Context()).Error("Setting default address failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func encodeAddress(e *jx.Encoder, a *address.Address) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(a.ID)
	e.FieldStart("name")
	e.Str(a.Name)
	e.FieldStart("line1")
	e.Str(a.Line1)
	if a.Line2 != "" {
		e.FieldStart("line2")
		e.Str(a.Line2)
	}
	e.FieldStart("city")
	e.Str(a.City)
	if a.State != "" {
		e.FieldStart("state")
		e.Str(a.State)
	}
	e.FieldStart("postal_code")
	e.Str(a.PostalCode)
	e.FieldStart("country")
	e.Str(a.Country)
	if a.Phone != "" {
		e.FieldStart("phone")
		e.Str(a.Phone)
	}
	e.FieldStart("is_default")
	e.Bool(a.IsDefault)
	e.FieldStart("created_at")
	e.Str(a.CreatedAt.Format(time.RFC3339))
	e.ObjEnd()
}
