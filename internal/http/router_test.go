package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invisifeed/invisifeed/internal/auth"
	"github.com/invisifeed/invisifeed/internal/business"
	apihttp "github.com/invisifeed/invisifeed/internal/http"
	"github.com/invisifeed/invisifeed/internal/http/account"
	"github.com/invisifeed/invisifeed/internal/http/coupon"
	"github.com/invisifeed/invisifeed/internal/http/dashboard"
	"github.com/invisifeed/invisifeed/internal/http/feedback"
	"github.com/invisifeed/invisifeed/internal/http/invoice"
	"github.com/invisifeed/invisifeed/internal/http/profile"
	"github.com/invisifeed/invisifeed/internal/metrics"
)

type dashboards struct {
	businessID uuid.UUID
}

func (d *dashboards) Dashboard(_ context.Context, id uuid.UUID, sel metrics.Selection, _ time.Time) (*metrics.Dashboard, error) {
	d.businessID = id
	return &metrics.Dashboard{Selection: sel}, nil
}

func newRouter(issuer *auth.Issuer, d *dashboards) http.Handler {
	return apihttp.New(apihttp.Handlers{
		Account:   account.NewHandler(nil, issuer, nil, business.DefaultLimits()),
		Profile:   profile.NewHandler(nil, business.DefaultLimits()),
		Invoice:   invoice.NewHandler(nil, nil, 3<<20),
		Coupon:    coupon.NewHandler(nil),
		Dashboard: dashboard.NewHandler(d),
		Feedback:  feedback.NewHandler(nil, nil),
	}, apihttp.Options{
		AllowedOrigins: []string{"https://app.example.com"},
		Authenticate:   issuer.Authenticate,
	})
}

func TestRouter_RequiresSession(t *testing.T) {
	issuer := auth.NewIssuer("secret", "test", time.Hour)
	router := newRouter(issuer, &dashboards{})

	for _, path := range []string{"/api/v1/profile/", "/api/v1/invoices/", "/api/v1/coupons/", "/api/v1/dashboard/"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRouter_PassesClaims(t *testing.T) {
	issuer := auth.NewIssuer("secret", "test", time.Hour)
	d := &dashboards{}
	id := uuid.New()

	token, _, err := issuer.Issue(id, "acme")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/?view=currentWeek", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	newRouter(issuer, d).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, d.businessID)
}

func TestRouter_CORSPreflight(t *testing.T) {
	issuer := auth.NewIssuer("secret", "test", time.Hour)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/invoices/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := httptest.NewRecorder()
	newRouter(issuer, &dashboards{}).ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_Health(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(auth.NewIssuer("s", "t", time.Hour), &dashboards{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
