package coupon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invisifeed/invisifeed/internal/auth"
	"github.com/invisifeed/invisifeed/internal/coupon"
)

type fakeService struct {
	page    coupon.Page
	coupons map[uuid.UUID]*coupon.Coupon
	deleted []uuid.UUID
}

func (f *fakeService) List(_ context.Context, _ uuid.UUID, page coupon.Page) (*coupon.ListResult, error) {
	f.page = page

	res := &coupon.ListResult{Total: len(f.coupons), Page: 1, Size: 10, Pages: 1}
	for _, c := range f.coupons {
		res.Coupons = append(res.Coupons, c)
	}

	return res, nil
}

func (f *fakeService) MarkUsed(_ context.Context, _, id uuid.UUID) (*coupon.Coupon, error) {
	c, ok := f.coupons[id]
	if !ok {
		return nil, coupon.ErrNotFound
	}

	if c.IsUsed {
		return nil, coupon.ErrCouponUsed
	}

	c.IsUsed = true

	return c, nil
}

func (f *fakeService) Delete(_ context.Context, _, id uuid.UUID) error {
	if _, ok := f.coupons[id]; !ok {
		return coupon.ErrNotFound
	}

	f.deleted = append(f.deleted, id)

	return nil
}

var now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func serve(svc Service, method, path string) *httptest.ResponseRecorder {
	h := NewHandler(svc)
	h.now = func() time.Time { return now }

	r := chi.NewRouter()
	r.Route("/coupons", h.Routes)

	req := httptest.NewRequest(method, path, nil)
	req = req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{BusinessID: uuid.New()}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	return rec
}

func TestList(t *testing.T) {
	id := uuid.New()
	svc := &fakeService{coupons: map[uuid.UUID]*coupon.Coupon{
		id: {ID: id, Code: "THANKS-AB12", ExpiryDate: now.Add(-time.Hour)},
	}}

	rec := serve(svc, http.MethodGet, "/coupons/?page=2&size=5")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, coupon.Page{Number: 2, Size: 5}, svc.page)

	var resp ListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	require.Len(t, resp.Coupons, 1)
	assert.Equal(t, "THANKS-AB12", resp.Coupons[0].Code)
	assert.True(t, resp.Coupons[0].Expired)
}

func TestMarkUsed(t *testing.T) {
	id := uuid.New()
	svc := &fakeService{coupons: map[uuid.UUID]*coupon.Coupon{id: {ID: id, ExpiryDate: now.AddDate(0, 0, 7)}}}

	rec := serve(svc, http.MethodPost, "/coupons/"+id.String()+"/mark-used")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"is_used":true`)

	rec = serve(svc, http.MethodPost, "/coupons/"+id.String()+"/mark-used")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDelete(t *testing.T) {
	id := uuid.New()
	svc := &fakeService{coupons: map[uuid.UUID]*coupon.Coupon{id: {ID: id}}}

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"deleted", "/coupons/" + id.String(), http.StatusNoContent},
		{"unknown", "/coupons/" + uuid.NewString(), http.StatusNotFound},
		{"bad id", "/coupons/nope", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(svc, http.MethodDelete, tt.path)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	assert.Equal(t, []uuid.UUID{id}, svc.deleted)
}
