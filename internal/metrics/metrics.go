package metrics

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/invisifeed/invisifeed/internal/feedback"
)

// Facts are the raw rows a dashboard is aggregated from.
type Facts struct {
	Invoices  []InvoiceFact
	Feedbacks []FeedbackFact
}

type InvoiceFact struct {
	CreatedAt time.Time
	Amount    decimal.Decimal
}

type FeedbackFact struct {
	CreatedAt  time.Time
	Ratings    feedback.Ratings
	Comment    string
	Suggestion string
}

type Point struct {
	Label     string `json:"label"`
	Invoices  int    `json:"invoices"`
	Feedbacks int    `json:"feedbacks"`
}

type SalesPoint struct {
	Label string          `json:"label"`
	Total decimal.Decimal `json:"total"`
}

type TrendPoint struct {
	Label         string  `json:"label"`
	AverageRating float64 `json:"average_rating"`
}

type Sales struct {
	Total  decimal.Decimal `json:"total"`
	Series []SalesPoint    `json:"series"`
}

// Locked lists plan-gated sections whose data was withheld. Clients render
// them behind an upgrade overlay.
type Locked struct {
	SalesAnalysis bool `json:"sales_analysis"`
	RatingTrends  bool `json:"rating_trends"`
}

// Dashboard is an immutable snapshot for one selection.
type Dashboard struct {
	Selection       Selection                     `json:"selection"`
	TotalInvoices   int                           `json:"total_invoices"`
	TotalFeedbacks  int                           `json:"total_feedbacks"`
	FeedbackRatio   float64                       `json:"feedback_ratio"`
	PositivePercent float64                       `json:"positive_percent"`
	NegativePercent float64                       `json:"negative_percent"`
	AverageRatings  map[feedback.Category]float64 `json:"average_ratings"`
	BestCategory    feedback.Category             `json:"best_category,omitempty"`
	WorstCategory   feedback.Category             `json:"worst_category,omitempty"`
	Series          []Point                       `json:"series"`
	Sales           *Sales                        `json:"sales,omitempty"`
	RatingTrend     []TrendPoint                  `json:"rating_trend,omitempty"`
	Locked          Locked                        `json:"locked"`
	Improvements    []string                      `json:"improvements"`
	Strengths       []string                      `json:"strengths"`
	GeneratedAt     time.Time                     `json:"generated_at"`
}

const (
	positiveFrom = 4
	negativeUpTo = 2
)

// Aggregate folds facts into a dashboard over the given buckets. Facts
// outside every bucket are ignored.
func Aggregate(sel Selection, buckets []Bucket, facts *Facts) *Dashboard {
	d := &Dashboard{
		Selection:      sel,
		AverageRatings: make(map[feedback.Category]float64, len(feedback.Categories)),
		Series:         make([]Point, len(buckets)),
		Sales:          &Sales{Series: make([]SalesPoint, len(buckets))},
		RatingTrend:    make([]TrendPoint, len(buckets)),
		Improvements:   []string{},
		Strengths:      []string{},
	}

	for i, b := range buckets {
		d.Series[i].Label = b.Label
		d.Sales.Series[i].Label = b.Label
		d.RatingTrend[i].Label = b.Label
	}

	for _, inv := range facts.Invoices {
		i := bucketOf(buckets, inv.CreatedAt)
		if i < 0 {
			continue
		}

		d.TotalInvoices++
		d.Series[i].Invoices++
		d.Sales.Series[i].Total = d.Sales.Series[i].Total.Add(inv.Amount)
		d.Sales.Total = d.Sales.Total.Add(inv.Amount)
	}

	sums := make(map[feedback.Category]int, len(feedback.Categories))
	trendSums := make([]int, len(buckets))

	var positive, negative int

	for _, f := range facts.Feedbacks {
		i := bucketOf(buckets, f.CreatedAt)
		if i < 0 {
			continue
		}

		d.TotalFeedbacks++
		d.Series[i].Feedbacks++
		trendSums[i] += f.Ratings.Overall

		for _, c := range feedback.Categories {
			sums[c] += f.Ratings.Get(c)
		}

		switch {
		case f.Ratings.Overall >= positiveFrom:
			positive++
		case f.Ratings.Overall <= negativeUpTo:
			negative++
		}
	}

	for i, p := range d.Series {
		if p.Feedbacks > 0 {
			d.RatingTrend[i].AverageRating = round2(float64(trendSums[i]) / float64(p.Feedbacks))
		}
	}

	if d.TotalInvoices > 0 {
		d.FeedbackRatio = percent(d.TotalFeedbacks, d.TotalInvoices)
	}

	if d.TotalFeedbacks == 0 {
		return d
	}

	d.PositivePercent = percent(positive, d.TotalFeedbacks)
	d.NegativePercent = percent(negative, d.TotalFeedbacks)

	for _, c := range feedback.Categories {
		d.AverageRatings[c] = round2(float64(sums[c]) / float64(d.TotalFeedbacks))
	}

	d.BestCategory, d.WorstCategory = extremes(d.AverageRatings)

	return d
}

// extremes picks the best and worst rated aspects, leaving out the overall
// score. Ties go to the earlier category.
func extremes(avg map[feedback.Category]float64) (best, worst feedback.Category) {
	for _, c := range feedback.Categories {
		if c == feedback.Overall {
			continue
		}

		if best == "" || avg[c] > avg[best] {
			best = c
		}

		if worst == "" || avg[c] < avg[worst] {
			worst = c
		}
	}

	return best, worst
}

// Lock withholds the sections the plan does not include.
func (d *Dashboard) Lock(salesAnalysis, ratingTrends bool) {
	if !salesAnalysis {
		d.Sales = nil
		d.Locked.SalesAnalysis = true
	}

	if !ratingTrends {
		d.RatingTrend = nil
		d.Locked.RatingTrends = true
	}
}

func bucketOf(buckets []Bucket, t time.Time) int {
	t = t.UTC()

	for i, b := range buckets {
		if !t.Before(b.Start) && t.Before(b.End) {
			return i
		}
	}

	return -1
}

func percent(part, whole int) float64 {
	return round2(float64(part) * 100 / float64(whole))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
