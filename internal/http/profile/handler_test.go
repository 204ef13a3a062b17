package profile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invisifeed/invisifeed/internal/auth"
	"github.com/invisifeed/invisifeed/internal/business"
	"github.com/invisifeed/invisifeed/internal/gstin"
)

type fakeService struct {
	business *business.Business
	update   business.ProfileUpdate
	trialErr error
}

func (f *fakeService) Get(context.Context, uuid.UUID) (*business.Business, error) {
	return f.business, nil
}

func (f *fakeService) UpdateProfile(_ context.Context, _ uuid.UUID, u business.ProfileUpdate) (*business.Business, error) {
	f.update = u
	u.Apply(f.business)

	return f.business, nil
}

func (f *fakeService) SkipProfile(context.Context, uuid.UUID) (*business.Business, error) {
	f.business.ProfileStatus = business.ProfileSkipped
	return f.business, nil
}

func (f *fakeService) VerifyGSTIN(_ context.Context, number string) (*gstin.Result, error) {
	return &gstin.Result{Valid: true, TradeName: "ACME " + number}, nil
}

func (f *fakeService) SaveGSTIN(_ context.Context, _ uuid.UUID, number string) (*business.Business, error) {
	f.business.GSTIN = business.GSTIN{Number: number, Verified: true}
	return f.business, nil
}

func (f *fakeService) StartProTrial(context.Context, uuid.UUID) (*business.Business, error) {
	if f.trialErr != nil {
		return nil, f.trialErr
	}

	return f.business, nil
}

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func serve(t *testing.T, svc Service, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	h := NewHandler(svc, business.DefaultLimits())
	h.now = func() time.Time { return now }

	r := chi.NewRouter()
	r.Route("/profile", h.Routes)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req = req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{BusinessID: uuid.New()}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	return rec
}

func TestGet_ReportsUsage(t *testing.T) {
	start := now.Add(-2 * time.Hour)
	svc := &fakeService{business: &business.Business{
		Username:          "acme",
		Plan:              business.Plan{Name: business.PlanFree},
		DailyUploadCount:  2,
		UploadWindowStart: &start,
	}}

	rec := serve(t, svc, http.MethodGet, "/profile/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	assert.Equal(t, "acme", resp.Username)
	assert.False(t, resp.Plan.IsPro)
	assert.False(t, resp.Features.Coupons)
	assert.Equal(t, Usage{Used: 2, Limit: 3, Remaining: 1, ResetsInSeconds: 22 * 3600}, resp.Usage)
}

func TestGet_ElapsedWindowIsEmpty(t *testing.T) {
	start := now.Add(-25 * time.Hour)
	end := now.Add(time.Hour)
	svc := &fakeService{business: &business.Business{
		Plan:              business.Plan{Name: business.PlanPro, EndDate: &end},
		DailyUploadCount:  9,
		UploadWindowStart: &start,
	}}

	rec := serve(t, svc, http.MethodGet, "/profile/", "")

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	assert.True(t, resp.Plan.IsPro)
	assert.Equal(t, Usage{Used: 0, Limit: 10, Remaining: 10}, resp.Usage)
}

func TestUpdate_OnlySentFields(t *testing.T) {
	svc := &fakeService{business: &business.Business{BusinessName: "Old", PhoneNumber: "123"}}

	rec := serve(t, svc, http.MethodPut, "/profile/", `{"business_name":"New"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, svc.update.BusinessName)
	assert.Equal(t, "New", *svc.update.BusinessName)
	assert.Nil(t, svc.update.PhoneNumber)
	assert.Equal(t, "123", svc.business.PhoneNumber)
}

func TestVerifyGSTIN_RequiresNumber(t *testing.T) {
	svc := &fakeService{business: &business.Business{}}

	rec := serve(t, svc, http.MethodPost, "/profile/gstin/verify", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"gstin_number"`)
}

func TestStartTrial_AlreadyUsed(t *testing.T) {
	svc := &fakeService{business: &business.Business{}, trialErr: business.ErrTrialUsed}

	rec := serve(t, svc, http.MethodPost, "/profile/trial", "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"conflict"`)
}
