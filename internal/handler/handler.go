// Package handler exposes the coupon CRUD and cart pricing endpoints over
// HTTP. It is a thin layer: request decoding, delegation to the domain, and
// error mapping live here, nothing else.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/monkcommerce/coupon-service/internal/domain/cart"
	"github.com/monkcommerce/coupon-service/internal/domain/coupon"
)

// Handler holds the domain dependencies for all HTTP endpoints.
type Handler struct {
	coupons coupon.Repository
	carts   *cart.Service
}

// New constructs a Handler with the required domain dependencies.
func New(coupons coupon.Repository, carts *cart.Service) *Handler {
	return &Handler{coupons: coupons, carts: carts}
}

// Routes builds the router for all API endpoints.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/coupons", func(r chi.Router) {
		r.Post("/", h.CreateCoupon)
		r.Get("/", h.ListCoupons)
		r.Get("/{id}", h.GetCoupon)
		r.Put("/{id}", h.UpdateCoupon)
		r.Delete("/{id}", h.DeleteCoupon)
	})

	r.Route("/cart", func(r chi.Router) {
		r.Post("/applicable-coupons", h.ApplicableCoupons)
		r.Post("/apply-coupon/{id}", h.ApplyCoupon)
	})

	return r
}

// errorResponse is the JSON body for all error replies.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zctx.From(r.Context()).Error("Encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	respondJSON(w, r, status, errorResponse{Code: status, Message: msg})
}
