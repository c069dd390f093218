package coupon

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
)

// Type is the coupon variant tag as it appears on the wire.
type Type string

const (
	// TypeCartWise is a percentage discount on the whole order above a
	// subtotal threshold.
	TypeCartWise Type = "cart-wise"
	// TypeProductWise is a percentage discount restricted to one product's
	// line items.
	TypeProductWise Type = "product-wise"
	// TypeBuyXGetY grants free units of designated products based on
	// purchased quantities of other products, capped by a repetition limit.
	TypeBuyXGetY Type = "bxgy"
)

var (
	// ErrNotFound is returned when no coupon exists for the given identifier.
	ErrNotFound = errors.New("coupon not found")
	// ErrExpired is returned when a coupon's expiration is not strictly in
	// the future at apply time.
	ErrExpired = errors.New("coupon expired")
	// ErrMalformedDetails is returned when a detail payload does not match
	// the coupon's declared type.
	ErrMalformedDetails = errors.New("malformed coupon details")
)

// Coupon is a persisted promotion rule. Details holds the payload parsed for
// the declared Type; it is nil when the stored payload could not be parsed,
// in which case the coupon is never applicable. Raw preserves the original
// wire payload for storage and API responses.
type Coupon struct {
	ID        int64
	Type      Type
	Details   Details
	Raw       json.RawMessage
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository defines persistence operations for coupons. Create assigns the
// identifier; Update replaces type, details, and expiration wholesale.
// Update and Delete return ErrNotFound when the identifier is unknown.
type Repository interface {
	Create(ctx context.Context, c *Coupon) error
	List(ctx context.Context) ([]Coupon, error)
	GetByID(ctx context.Context, id int64) (*Coupon, error)
	Update(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, id int64) error
}
