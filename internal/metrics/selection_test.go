package metrics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invisifeed/invisifeed/internal/metrics"
)

func TestSelection_MutuallyExclusive(t *testing.T) {
	sel := metrics.DefaultSelection()
	assert.Equal(t, metrics.ViewCurrentMonth, sel.View)

	sel = sel.SelectYear(2025)
	assert.Equal(t, 2025, sel.Year)
	assert.Empty(t, sel.View)

	sel = sel.SelectView(metrics.ViewCurrentWeek)
	assert.Equal(t, metrics.ViewCurrentWeek, sel.View)
	assert.Zero(t, sel.Year)
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name    string
		view    string
		year    string
		want    metrics.Selection
		wantErr error
	}{
		{name: "Default", want: metrics.Selection{View: metrics.ViewCurrentMonth}},
		{name: "View", view: "currentYear", want: metrics.Selection{View: metrics.ViewCurrentYear}},
		{name: "Year", year: "2024", want: metrics.Selection{Year: 2024}},
		{name: "Both", view: "currentWeek", year: "2024", wantErr: metrics.ErrAmbiguousSelection},
		{name: "BadView", view: "lastDecade", wantErr: metrics.ErrInvalidSelection},
		{name: "BadYear", year: "twenty", wantErr: metrics.ErrInvalidSelection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := metrics.ParseSelection(tt.view, tt.year)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelection_Buckets(t *testing.T) {
	now := time.Date(2026, 2, 10, 15, 30, 0, 0, time.UTC)

	t.Run("Week", func(t *testing.T) {
		b := metrics.Selection{View: metrics.ViewCurrentWeek}.Buckets(now)

		require.Len(t, b, 7)
		assert.Equal(t, time.Date(2026, 2, 4, 0, 0, 0, 0, time.UTC), b[0].Start)
		assert.Equal(t, time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC), b[6].End)
		assert.Equal(t, "Tue 10", b[6].Label)
	})

	t.Run("Month", func(t *testing.T) {
		b := metrics.Selection{View: metrics.ViewCurrentMonth}.Buckets(now)

		require.Len(t, b, 28)
		assert.Equal(t, "01", b[0].Label)
		assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), b[27].End)
	})

	t.Run("Year", func(t *testing.T) {
		b := metrics.Selection{Year: 2024}.Buckets(now)

		require.Len(t, b, 12)
		assert.Equal(t, "Jan", b[0].Label)
		assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), b[11].Start)
	})

	assert.Equal(t, "view:currentMonth", metrics.DefaultSelection().Key())
	assert.Equal(t, "year:2024", metrics.Selection{Year: 2024}.Key())
}
