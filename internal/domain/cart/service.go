package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/monkcommerce/coupon-service/internal/domain/coupon"
)

// Sentinel errors for cart request validation.
var (
	ErrEmptyItems      = errors.New("items required")
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	ErrNegativePrice   = errors.New("price must not be negative")
)

// Service evaluates coupons against caller-supplied carts. It is stateless:
// every call operates on request-scoped data, so concurrent use is safe as
// long as the repository serializes its own access.
type Service struct {
	coupons coupon.Repository
	now     func() time.Time
}

// NewService creates a Service backed by the given coupon repository.
func NewService(coupons coupon.Repository) *Service {
	return &Service{coupons: coupons, now: time.Now}
}

// GetApplicableCoupons builds a cart from the items and returns every stored
// coupon whose predicate the cart satisfies. Coupons with malformed details
// are logged and skipped so that one bad record never hides the rest.
func (s *Service) GetApplicableCoupons(ctx context.Context, items []LineItem) ([]coupon.Coupon, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}
	c := New(items)

	all, err := s.coupons.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}

	applicable := make([]coupon.Coupon, 0, len(all))
	for _, cp := range all {
		if cp.Details == nil {
			zctx.From(ctx).Warn("Skipping coupon with malformed details",
				zap.Int64("coupon_id", cp.ID),
				zap.String("type", string(cp.Type)),
			)
			continue
		}
		if Applicable(cp.Details, c) {
			applicable = append(applicable, cp)
		}
	}
	return applicable, nil
}

// ApplyCoupon looks up the coupon, rejects expired or malformed records, and
// returns the priced cart with the coupon's effect applied. A coupon whose
// predicate is not met by the cart applies as a zero discount. The stored
// coupon record is never mutated.
func (s *Service) ApplyCoupon(ctx context.Context, id int64, items []LineItem) (*Cart, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}

	cp, err := s.coupons.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get coupon %d", id)
	}

	// Valid only while the expiration is strictly in the future.
	if !cp.ExpiresAt.After(s.now()) {
		return nil, errors.Wrapf(coupon.ErrExpired, "coupon %d", id)
	}

	if cp.Details == nil {
		return nil, errors.Wrapf(coupon.ErrMalformedDetails, "coupon %d", id)
	}

	c := New(items)
	ApplyDiscount(c, cp.Details)
	return c, nil
}

func validateItems(items []LineItem) error {
	if len(items) == 0 {
		return ErrEmptyItems
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return errors.Wrapf(ErrInvalidQuantity, "product %d", item.ProductID)
		}
		if item.Price.IsNegative() {
			return errors.Wrapf(ErrNegativePrice, "product %d", item.ProductID)
		}
	}
	return nil
}
