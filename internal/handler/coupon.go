package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/monkcommerce/coupon-service/internal/domain/coupon"
)

// couponRequest is the wire shape for create and update operations. Details
// is kept raw: payloads that do not parse for the declared type are stored
// anyway and simply never apply.
type couponRequest struct {
	Type      string          `json:"type"`
	Details   json.RawMessage `json:"details"`
	ExpiresAt time.Time       `json:"expires_at"`
}

type couponResponse struct {
	ID        int64           `json:"id"`
	Type      string          `json:"type"`
	Details   json.RawMessage `json:"details"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func toCouponResponse(c coupon.Coupon) couponResponse {
	return couponResponse{
		ID:        c.ID,
		Type:      string(c.Type),
		Details:   c.Raw,
		ExpiresAt: c.ExpiresAt,
	}
}

func decodeCouponRequest(w http.ResponseWriter, r *http.Request) (*couponRequest, bool) {
	var req couponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if req.Type == "" {
		respondError(w, r, http.StatusBadRequest, "type is required")
		return nil, false
	}
	if req.ExpiresAt.IsZero() {
		respondError(w, r, http.StatusBadRequest, "expires_at is required")
		return nil, false
	}
	if len(req.Details) == 0 {
		req.Details = json.RawMessage(`{}`)
	}
	return &req, true
}

func couponID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid coupon id")
		return 0, false
	}
	return id, true
}

// CreateCoupon handles POST /coupons.
func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCouponRequest(w, r)
	if !ok {
		return
	}

	c := &coupon.Coupon{
		Type:      coupon.Type(req.Type),
		Raw:       req.Details,
		ExpiresAt: req.ExpiresAt,
	}
	if err := h.coupons.Create(r.Context(), c); err != nil {
		zctx.From(r.Context()).Error("Create coupon", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, r, http.StatusCreated, toCouponResponse(*c))
}

// ListCoupons handles GET /coupons.
func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	all, err := h.coupons.List(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("List coupons", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	resp := make([]couponResponse, len(all))
	for i, c := range all {
		resp[i] = toCouponResponse(c)
	}
	respondJSON(w, r, http.StatusOK, resp)
}

// GetCoupon handles GET /coupons/{id}.
func (h *Handler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := couponID(w, r)
	if !ok {
		return
	}

	c, err := h.coupons.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "coupon not found")
			return
		}
		zctx.From(r.Context()).Error("Get coupon", zap.Int64("coupon_id", id), zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, r, http.StatusOK, toCouponResponse(*c))
}

// UpdateCoupon handles PUT /coupons/{id}. Type, details, and expiration are
// replaced wholesale.
func (h *Handler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := couponID(w, r)
	if !ok {
		return
	}
	req, ok := decodeCouponRequest(w, r)
	if !ok {
		return
	}

	c := &coupon.Coupon{
		ID:        id,
		Type:      coupon.Type(req.Type),
		Raw:       req.Details,
		ExpiresAt: req.ExpiresAt,
	}
	if err := h.coupons.Update(r.Context(), c); err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "coupon not found")
			return
		}
		zctx.From(r.Context()).Error("Update coupon", zap.Int64("coupon_id", id), zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, r, http.StatusOK, toCouponResponse(*c))
}

// DeleteCoupon handles DELETE /coupons/{id}.
func (h *Handler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := couponID(w, r)
	if !ok {
		return
	}

	if err := h.coupons.Delete(r.Context(), id); err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "coupon not found")
			return
		}
		zctx.From(r.Context()).Error("Delete coupon", zap.Int64("coupon_id", id), zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
