package metrics_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invisifeed/invisifeed/internal/feedback"
	"github.com/invisifeed/invisifeed/internal/metrics"
)

func rated(at time.Time, overall, communication int) metrics.FeedbackFact {
	return metrics.FeedbackFact{
		CreatedAt: at,
		Ratings: feedback.Ratings{
			Satisfaction:  4,
			Communication: communication,
			Quality:       5,
			ValueForMoney: 4,
			Recommend:     4,
			Overall:       overall,
		},
	}
}

func TestAggregate(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	sel := metrics.Selection{View: metrics.ViewCurrentWeek}
	buckets := sel.Buckets(now)

	facts := &metrics.Facts{
		Invoices: []metrics.InvoiceFact{
			{CreatedAt: now, Amount: decimal.NewFromInt(239)},
			{CreatedAt: now.AddDate(0, 0, -1), Amount: decimal.NewFromInt(100)},
			{CreatedAt: now.AddDate(0, 0, -1), Amount: decimal.NewFromInt(61)},
			{CreatedAt: now.AddDate(0, 0, -1), Amount: decimal.NewFromInt(1)},
			{CreatedAt: now.AddDate(0, -1, 0), Amount: decimal.NewFromInt(999)},
		},
		Feedbacks: []metrics.FeedbackFact{
			rated(now, 5, 2),
			rated(now, 1, 2),
			rated(now.AddDate(0, 0, -1), 3, 2),
		},
	}

	d := metrics.Aggregate(sel, buckets, facts)

	assert.Equal(t, 4, d.TotalInvoices)
	assert.Equal(t, 3, d.TotalFeedbacks)
	assert.Equal(t, 75.0, d.FeedbackRatio)
	assert.Equal(t, 33.33, d.PositivePercent)
	assert.Equal(t, 33.33, d.NegativePercent)
	assert.Equal(t, 3.0, d.AverageRatings[feedback.Overall])
	assert.Equal(t, feedback.Quality, d.BestCategory)
	assert.Equal(t, feedback.Communication, d.WorstCategory)

	require.NotNil(t, d.Sales)
	assert.Equal(t, "401", d.Sales.Total.String())
	assert.Equal(t, "239", d.Sales.Series[6].Total.String())
	assert.Equal(t, 2, d.Series[6].Feedbacks)
	assert.Equal(t, 3, d.Series[5].Invoices)
	assert.Equal(t, 3.0, d.RatingTrend[6].AverageRating)
}

func TestAggregate_Empty(t *testing.T) {
	sel := metrics.DefaultSelection()
	d := metrics.Aggregate(sel, sel.Buckets(time.Now()), &metrics.Facts{})

	assert.Zero(t, d.TotalInvoices)
	assert.Zero(t, d.FeedbackRatio)
	assert.Empty(t, d.BestCategory)
	assert.NotNil(t, d.Improvements)
}

func TestDashboard_Lock(t *testing.T) {
	sel := metrics.DefaultSelection()
	d := metrics.Aggregate(sel, sel.Buckets(time.Now()), &metrics.Facts{})

	d.Lock(false, false)

	assert.Nil(t, d.Sales)
	assert.Nil(t, d.RatingTrend)
	assert.True(t, d.Locked.SalesAnalysis)
	assert.True(t, d.Locked.RatingTrends)
	assert.NotEmpty(t, d.Series)
}
