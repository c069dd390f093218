package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/monkcommerce/coupon-service/internal/domain/coupon"
)

const (
	createCouponSQL = `INSERT INTO coupons (type, details, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	listCouponsSQL = `SELECT id, type, details, expires_at, created_at, updated_at
		FROM coupons ORDER BY id`

	getCouponByIDSQL = `SELECT id, type, details, expires_at, created_at, updated_at
		FROM coupons WHERE id = $1`

	updateCouponSQL = `UPDATE coupons
		SET type = $2, details = $3, expires_at = $4, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`

	deleteCouponSQL = `DELETE FROM coupons WHERE id = $1`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
// Detail payloads are stored as JSONB exactly as received; they are parsed
// into their typed variant on every read, leaving Details nil for rows whose
// payload does not match the declared type.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// Create inserts the coupon and fills in its assigned identifier and
// timestamps. The parsed Details field is populated from the raw payload.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	err := r.pool.QueryRow(ctx, createCouponSQL, c.Type, c.Raw, c.ExpiresAt).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating coupon: %w", err)
	}
	c.Details, _ = coupon.ParseDetails(c.Type, c.Raw)
	return nil
}

// List returns all coupons ordered by identifier.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// GetByID returns a single coupon by its identifier.
// Returns coupon.ErrNotFound when no row matches.
func (r *CouponRepository) GetByID(ctx context.Context, id int64) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting coupon %d: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("getting coupon %d: %w", id, err)
	}
	return &c, nil
}

// Update replaces the coupon's type, details, and expiration wholesale.
// Returns coupon.ErrNotFound when the identifier is unknown.
func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	err := r.pool.QueryRow(ctx, updateCouponSQL, c.ID, c.Type, c.Raw, c.ExpiresAt).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return coupon.ErrNotFound
		}
		return fmt.Errorf("updating coupon %d: %w", c.ID, err)
	}
	c.Details, _ = coupon.ParseDetails(c.Type, c.Raw)
	return nil
}

// Delete removes the coupon. Returns coupon.ErrNotFound when the identifier
// is unknown.
func (r *CouponRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, id)
	if err != nil {
		return fmt.Errorf("deleting coupon %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c   coupon.Coupon
		typ string
		raw []byte
	)
	err := row.Scan(&c.ID, &typ, &raw, &c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return coupon.Coupon{}, err
	}
	c.Type = coupon.Type(typ)
	c.Raw = raw
	// A stored payload that no longer parses leaves Details nil; callers
	// treat such coupons as non-applicable instead of failing the scan.
	c.Details, _ = coupon.ParseDetails(c.Type, raw)
	return c, nil
}
