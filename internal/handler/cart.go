package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/monkcommerce/coupon-service/internal/domain/cart"
	"github.com/monkcommerce/coupon-service/internal/domain/coupon"
)

type cartRequest struct {
	Items []cartItemRequest `json:"items"`
}

type cartItemRequest struct {
	ProductID int64           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type cartItemResponse struct {
	ProductID     int64   `json:"product_id"`
	Quantity      int64   `json:"quantity"`
	Price         float64 `json:"price"`
	TotalDiscount float64 `json:"total_discount"`
}

type cartResponse struct {
	Items         []cartItemResponse `json:"items"`
	TotalPrice    float64            `json:"total_price"`
	TotalDiscount float64            `json:"total_discount"`
	FinalPrice    float64            `json:"final_price"`
}

func toCartResponse(c *cart.Cart) cartResponse {
	items := make([]cartItemResponse, len(c.Items))
	for i, item := range c.Items {
		items[i] = cartItemResponse{
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			Price:         item.Price.InexactFloat64(),
			TotalDiscount: item.Discount.InexactFloat64(),
		}
	}
	return cartResponse{
		Items:         items,
		TotalPrice:    c.Subtotal.InexactFloat64(),
		TotalDiscount: c.TotalDiscount.InexactFloat64(),
		FinalPrice:    c.FinalPrice.InexactFloat64(),
	}
}

func decodeCartItems(w http.ResponseWriter, r *http.Request) ([]cart.LineItem, bool) {
	var req cartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	items := make([]cart.LineItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = cart.LineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}
	return items, true
}

// ApplicableCoupons handles POST /cart/applicable-coupons: it returns every
// stored coupon whose conditions the submitted cart satisfies.
func (h *Handler) ApplicableCoupons(w http.ResponseWriter, r *http.Request) {
	items, ok := decodeCartItems(w, r)
	if !ok {
		return
	}

	applicable, err := h.carts.GetApplicableCoupons(r.Context(), items)
	if err != nil {
		h.respondCartError(w, r, err)
		return
	}

	resp := make([]couponResponse, len(applicable))
	for i, c := range applicable {
		resp[i] = toCouponResponse(c)
	}
	respondJSON(w, r, http.StatusOK, resp)
}

// ApplyCoupon handles POST /cart/apply-coupon/{id}: it prices the submitted
// cart with the coupon's discount applied.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := couponID(w, r)
	if !ok {
		return
	}
	items, ok := decodeCartItems(w, r)
	if !ok {
		return
	}

	priced, err := h.carts.ApplyCoupon(r.Context(), id, items)
	if err != nil {
		h.respondCartError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, toCartResponse(priced))
}

// respondCartError maps domain errors from the cart service to HTTP replies.
func (h *Handler) respondCartError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, cart.ErrEmptyItems),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrNegativePrice):
		respondError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, coupon.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "coupon not found")
	case errors.Is(err, coupon.ErrExpired):
		respondError(w, r, http.StatusBadRequest, "coupon expired")
	case errors.Is(err, coupon.ErrMalformedDetails):
		respondError(w, r, http.StatusUnprocessableEntity, "coupon details are malformed")
	default:
		zctx.From(r.Context()).Error("Cart operation", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
	}
}
