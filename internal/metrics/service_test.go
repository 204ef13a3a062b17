package metrics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/invisifeed/invisifeed/internal/business"
	"github.com/invisifeed/invisifeed/internal/insights"
	"github.com/invisifeed/invisifeed/internal/metrics"
)

func TestService_Dashboard(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 1, 0)
	id := uuid.New()

	t.Run("FreePlanComputesAndLocks", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := metrics.NewMockRepository(ctrl)
		businesses := metrics.NewMockBusinesses(ctrl)
		cache := metrics.NewMockCache(ctrl)
		gen := metrics.NewMockInsightGenerator(ctrl)

		businesses.EXPECT().GetBusiness(gomock.Any(), id).Return(&business.Business{ID: id, BusinessName: "Acme"}, nil)
		cache.EXPECT().Get(gomock.Any(), id, "view:currentMonth:v0").Return(nil, nil)
		repo.EXPECT().
			Facts(gomock.Any(), id, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)).
			Return(&metrics.Facts{Feedbacks: []metrics.FeedbackFact{rated(now, 5, 4)}}, nil)
		gen.EXPECT().
			Generate(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, s insights.Summary) (*insights.Insights, error) {
				assert.Equal(t, "Acme", s.BusinessName)
				assert.Equal(t, 1, s.TotalFeedbacks)

				return &insights.Insights{Strengths: []string{"Quality"}}, nil
			})
		cache.EXPECT().Set(gomock.Any(), id, "view:currentMonth:v0", gomock.Any()).Return(nil)

		svc := metrics.NewService(repo, businesses, cache, gen)
		d, err := svc.Dashboard(context.Background(), id, metrics.DefaultSelection(), now)
		require.NoError(t, err)

		assert.True(t, d.Locked.SalesAnalysis)
		assert.Nil(t, d.Sales)
		assert.Equal(t, []string{"Quality"}, d.Strengths)
		assert.Equal(t, now, d.GeneratedAt)
	})

	t.Run("ProPlanServedFromCache", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		businesses := metrics.NewMockBusinesses(ctrl)
		cache := metrics.NewMockCache(ctrl)
		cached := &metrics.Dashboard{TotalInvoices: 9}

		businesses.EXPECT().GetBusiness(gomock.Any(), id).Return(&business.Business{
			ID:   id,
			Plan: business.Plan{Name: business.PlanPro, EndDate: &future},
		}, nil)
		cache.EXPECT().Get(gomock.Any(), id, "year:2025:v0:pro").Return(cached, nil)

		svc := metrics.NewService(metrics.NewMockRepository(ctrl), businesses, cache, metrics.NewMockInsightGenerator(ctrl))
		d, err := svc.Dashboard(context.Background(), id, metrics.Selection{Year: 2025}, now)
		require.NoError(t, err)
		assert.Same(t, cached, d)
	})

	t.Run("InsightFailureIsNotFatal", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := metrics.NewMockRepository(ctrl)
		businesses := metrics.NewMockBusinesses(ctrl)
		cache := metrics.NewMockCache(ctrl)
		gen := metrics.NewMockInsightGenerator(ctrl)

		businesses.EXPECT().GetBusiness(gomock.Any(), id).Return(&business.Business{ID: id}, nil)
		cache.EXPECT().Get(gomock.Any(), id, gomock.Any()).Return(nil, errors.New("redis down"))
		repo.EXPECT().Facts(gomock.Any(), id, gomock.Any(), gomock.Any()).
			Return(&metrics.Facts{Feedbacks: []metrics.FeedbackFact{rated(now, 2, 2)}}, nil)
		gen.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(nil, errors.New("rate limited"))
		cache.EXPECT().Set(gomock.Any(), id, gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

		svc := metrics.NewService(repo, businesses, cache, gen)
		d, err := svc.Dashboard(context.Background(), id, metrics.DefaultSelection(), now)
		require.NoError(t, err)
		assert.Empty(t, d.Improvements)
		assert.Equal(t, 100.0, d.NegativePercent)
	})
}

func TestService_Dashboard_KeyFollowsDataVersion(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	id := uuid.New()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := metrics.NewMockRepository(ctrl)
	businesses := metrics.NewMockBusinesses(ctrl)
	cache := metrics.NewMockCache(ctrl)

	// A snapshot cached before the reset sits under v1 and is never read again.
	businesses.EXPECT().GetBusiness(gomock.Any(), id).Return(&business.Business{ID: id, DataVersion: 2}, nil)
	cache.EXPECT().Get(gomock.Any(), id, "view:currentMonth:v2").Return(nil, nil)
	repo.EXPECT().Facts(gomock.Any(), id, gomock.Any(), gomock.Any()).Return(&metrics.Facts{}, nil)
	cache.EXPECT().Set(gomock.Any(), id, "view:currentMonth:v2", gomock.Any()).Return(nil)

	svc := metrics.NewService(repo, businesses, cache, metrics.NewMockInsightGenerator(ctrl))
	d, err := svc.Dashboard(context.Background(), id, metrics.DefaultSelection(), now)
	require.NoError(t, err)
	assert.Zero(t, d.TotalInvoices)
	assert.Zero(t, d.TotalFeedbacks)
}
