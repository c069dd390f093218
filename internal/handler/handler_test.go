package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monkcommerce/coupon-service/internal/domain/cart"
	"github.com/monkcommerce/coupon-service/internal/domain/coupon"
)

// memRepo is an in-memory coupon.Repository for handler tests.
type memRepo struct {
	nextID  int64
	coupons map[int64]coupon.Coupon
}

func newMemRepo() *memRepo {
	return &memRepo{nextID: 1, coupons: make(map[int64]coupon.Coupon)}
}

func (m *memRepo) Create(_ context.Context, c *coupon.Coupon) error {
	c.ID = m.nextID
	m.nextID++
	c.Details, _ = coupon.ParseDetails(c.Type, c.Raw)
	m.coupons[c.ID] = *c
	return nil
}

func (m *memRepo) List(_ context.Context) ([]coupon.Coupon, error) {
	out := make([]coupon.Coupon, 0, len(m.coupons))
	for id := int64(1); id < m.nextID; id++ {
		if c, ok := m.coupons[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memRepo) GetByID(_ context.Context, id int64) (*coupon.Coupon, error) {
	c, ok := m.coupons[id]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return &c, nil
}

func (m *memRepo) Update(_ context.Context, c *coupon.Coupon) error {
	if _, ok := m.coupons[c.ID]; !ok {
		return coupon.ErrNotFound
	}
	c.Details, _ = coupon.ParseDetails(c.Type, c.Raw)
	m.coupons[c.ID] = *c
	return nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.coupons[id]; !ok {
		return coupon.ErrNotFound
	}
	delete(m.coupons, id)
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	h := New(repo, cart.NewService(repo))
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv, repo
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func seedCoupon(t *testing.T, repo *memRepo, typ coupon.Type, details string, expiresAt time.Time) int64 {
	t.Helper()
	c := &coupon.Coupon{
		Type:      typ,
		Raw:       json.RawMessage(details),
		ExpiresAt: expiresAt,
	}
	require.NoError(t, repo.Create(context.Background(), c))
	return c.ID
}

func sampleCartBody() map[string]any {
	return map[string]any{
		"items": []map[string]any{
			{"product_id": 1, "quantity": 6, "price": 50},
			{"product_id": 2, "quantity": 3, "price": 30},
			{"product_id": 3, "quantity": 2, "price": 25},
		},
	}
}

func TestCouponCRUD(t *testing.T) {
	srv, _ := newTestServer(t)

	// Create.
	resp := doJSON(t, http.MethodPost, srv.URL+"/coupons", map[string]any{
		"type":       "cart-wise",
		"details":    map[string]any{"threshold": 100, "discount": 10},
		"expires_at": "2027-01-01T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[couponResponse](t, resp)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "cart-wise", created.Type)

	// Get.
	resp = doJSON(t, http.MethodGet, srv.URL+"/coupons/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[couponResponse](t, resp)
	assert.JSONEq(t, `{"threshold": 100, "discount": 10}`, string(got.Details))

	// Update replaces type and details wholesale.
	resp = doJSON(t, http.MethodPut, srv.URL+"/coupons/1", map[string]any{
		"type":       "product-wise",
		"details":    map[string]any{"product_id": 1, "discount": 20},
		"expires_at": "2027-01-01T00:00:00Z",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBody[couponResponse](t, resp)
	assert.Equal(t, "product-wise", updated.Type)

	// List.
	resp = doJSON(t, http.MethodGet, srv.URL+"/coupons", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	all := decodeBody[[]couponResponse](t, resp)
	require.Len(t, all, 1)

	// Delete, then the record is gone.
	resp = doJSON(t, http.MethodDelete, srv.URL+"/coupons/1", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/coupons/1", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestCouponValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{
			name: "missing type",
			body: map[string]any{
				"details":    map[string]any{"threshold": 100, "discount": 10},
				"expires_at": "2027-01-01T00:00:00Z",
			},
		},
		{
			name: "missing expiration",
			body: map[string]any{
				"type":    "cart-wise",
				"details": map[string]any{"threshold": 100, "discount": 10},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, srv.URL+"/coupons", tt.body)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestApplicableCoupons(t *testing.T) {
	srv, repo := newTestServer(t)
	future := time.Now().Add(24 * time.Hour)

	matching := seedCoupon(t, repo, coupon.TypeCartWise, `{"threshold": 100, "discount": 10}`, future)
	seedCoupon(t, repo, coupon.TypeCartWise, `{"threshold": 10000, "discount": 10}`, future)
	seedCoupon(t, repo, coupon.TypeCartWise, `{"threshold": "oops"}`, future) // malformed, skipped

	resp := doJSON(t, http.MethodPost, srv.URL+"/cart/applicable-coupons", sampleCartBody())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[[]couponResponse](t, resp)

	require.Len(t, got, 1)
	assert.Equal(t, matching, got[0].ID)
}

func TestApplyCoupon(t *testing.T) {
	srv, repo := newTestServer(t)
	future := time.Now().Add(24 * time.Hour)

	seedCoupon(t, repo, coupon.TypeProductWise, `{"product_id": 1, "discount": 20}`, future)

	resp := doJSON(t, http.MethodPost, srv.URL+"/cart/apply-coupon/1", sampleCartBody())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[cartResponse](t, resp)

	require.Len(t, got.Items, 3)
	assert.InDelta(t, 60, got.Items[0].TotalDiscount, 1e-9)
	assert.InDelta(t, 440, got.TotalPrice, 1e-9)
	assert.InDelta(t, 60, got.TotalDiscount, 1e-9)
	assert.InDelta(t, 380, got.FinalPrice, 1e-9)
}

func TestApplyCoupon_Errors(t *testing.T) {
	srv, repo := newTestServer(t)
	now := time.Now()

	seedCoupon(t, repo, coupon.TypeCartWise, `{"threshold": 100, "discount": 10}`, now.Add(-time.Hour))
	seedCoupon(t, repo, coupon.TypeBuyXGetY, `{"buy_products": 7}`, now.Add(time.Hour))

	tests := []struct {
		name       string
		path       string
		body       map[string]any
		wantStatus int
	}{
		{
			name:       "unknown coupon id",
			path:       "/cart/apply-coupon/999",
			body:       sampleCartBody(),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "expired coupon",
			path:       "/cart/apply-coupon/1",
			body:       sampleCartBody(),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed details",
			path:       "/cart/apply-coupon/2",
			body:       sampleCartBody(),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "empty cart",
			path:       "/cart/apply-coupon/2",
			body:       map[string]any{"items": []map[string]any{}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "non-numeric coupon id",
			path:       "/cart/apply-coupon/abc",
			body:       sampleCartBody(),
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, srv.URL+tt.path, tt.body)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}
