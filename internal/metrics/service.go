package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/invisifeed/invisifeed/internal/business"
	"github.com/invisifeed/invisifeed/internal/insights"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=metrics
type Repository interface {
	Facts(ctx context.Context, businessID uuid.UUID, from, to time.Time) (*Facts, error)
}

type Businesses interface {
	GetBusiness(ctx context.Context, id uuid.UUID) (*business.Business, error)
}

// Cache stores dashboards per business and selection. Get returns nil, nil
// on a miss.
type Cache interface {
	Get(ctx context.Context, businessID uuid.UUID, key string) (*Dashboard, error)
	Set(ctx context.Context, businessID uuid.UUID, key string, d *Dashboard) error
	Invalidate(ctx context.Context, businessID uuid.UUID) error
}

type InsightGenerator interface {
	Generate(ctx context.Context, s insights.Summary) (*insights.Insights, error)
}

type Service struct {
	repo       Repository
	businesses Businesses
	cache      Cache
	insights   InsightGenerator
}

func NewService(repo Repository, businesses Businesses, cache Cache, gen InsightGenerator) *Service {
	return &Service{repo: repo, businesses: businesses, cache: cache, insights: gen}
}

const maxInsightTexts = 30

// Dashboard returns the snapshot for the selection, serving it from the
// cache when possible. Plan-gated sections are withheld and flagged as locked.
func (s *Service) Dashboard(ctx context.Context, businessID uuid.UUID, sel Selection, now time.Time) (*Dashboard, error) {
	b, err := s.businesses.GetBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}

	features := business.FeaturesFor(b.Plan, now)

	key := fmt.Sprintf("%s:v%d", sel.Key(), b.DataVersion)
	if b.Plan.IsPro(now) {
		key += ":pro"
	}

	if cached, err := s.cache.Get(ctx, businessID, key); err != nil {
		slog.Warn("metrics cache read failed", "business_id", businessID, "error", err)
	} else if cached != nil {
		return cached, nil
	}

	buckets := sel.Buckets(now)

	facts, err := s.repo.Facts(ctx, businessID, buckets[0].Start, buckets[len(buckets)-1].End)
	if err != nil {
		return nil, err
	}

	d := Aggregate(sel, buckets, facts)
	d.Lock(features.SalesAnalysis, features.RatingTrends)
	d.GeneratedAt = now

	if d.TotalFeedbacks > 0 {
		s.addInsights(ctx, b, d, facts)
	}

	if err := s.cache.Set(ctx, businessID, key, d); err != nil {
		slog.Warn("metrics cache write failed", "business_id", businessID, "error", err)
	}

	return d, nil
}

func (s *Service) addInsights(ctx context.Context, b *business.Business, d *Dashboard, facts *Facts) {
	summary := insights.Summary{
		BusinessName:   b.BusinessName,
		TotalFeedbacks: d.TotalFeedbacks,
		AverageRatings: make(map[string]float64, len(d.AverageRatings)),
	}

	for c, v := range d.AverageRatings {
		summary.AverageRatings[string(c)] = v
	}

	for i := len(facts.Feedbacks) - 1; i >= 0; i-- {
		f := facts.Feedbacks[i]

		if f.Comment != "" && len(summary.Comments) < maxInsightTexts {
			summary.Comments = append(summary.Comments, f.Comment)
		}

		if f.Suggestion != "" && len(summary.Suggestions) < maxInsightTexts {
			summary.Suggestions = append(summary.Suggestions, f.Suggestion)
		}
	}

	out, err := s.insights.Generate(ctx, summary)
	if err != nil {
		slog.Warn("insight generation failed", "business_id", b.ID, "error", err)
		return
	}

	d.Improvements = append(d.Improvements, out.Improvements...)
	d.Strengths = append(d.Strengths, out.Strengths...)
}

func (s *Service) Invalidate(ctx context.Context, businessID uuid.UUID) error {
	return s.cache.Invalidate(ctx, businessID)
}
