package dashboard_test

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
	"github.com/invisifeed/invisifeed/internal/http/dashboard"
	"github.com/invisifeed/invisifeed/internal/metrics"
)

type fakeService struct {
	selections []metrics.Selection
}

func (f *fakeService) Dashboard(_ context.Context, _ uuid.UUID, sel metrics.Selection, _ time.Time) (*metrics.Dashboard, error) {
	f.selections = append(f.selections, sel)

	return &metrics.Dashboard{
		Selection:     sel,
		TotalInvoices: 4,
		Locked:        metrics.Locked{SalesAnalysis: true, RatingTrends: true},
	}, nil
}

func get(svc *fakeService, query string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/dashboard", dashboard.NewHandler(svc).Routes)

	req := httptest.NewRequest(http.MethodGet, "/dashboard/"+query, nil)
	req = req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{BusinessID: uuid.New()}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	return rec
}

func TestGet(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		status int
		sel    *metrics.Selection
	}{
		{"default", "", http.StatusOK, &metrics.Selection{View: metrics.ViewCurrentMonth}},
		{"view", "?view=currentWeek", http.StatusOK, &metrics.Selection{View: metrics.ViewCurrentWeek}},
		{"year", "?year=2025", http.StatusOK, &metrics.Selection{Year: 2025}},
		{"both", "?view=currentWeek&year=2025", http.StatusBadRequest, nil},
		{"bad view", "?view=lastDecade", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}

			rec := get(svc, tt.query)
			require.Equal(t, tt.status, rec.Code)

			if tt.sel == nil {
				assert.Empty(t, svc.selections)
				return
			}

			require.Len(t, svc.selections, 1)
			assert.Equal(t, *tt.sel, svc.selections[0])

			var d metrics.Dashboard
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&d))
			assert.Equal(t, 4, d.TotalInvoices)
			assert.True(t, d.Locked.SalesAnalysis)
		})
	}
}
