package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/invisifeed/invisifeed/internal/coupon"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=feedback
type Repository interface {
	GetForm(ctx context.Context, token string) (*Form, error)
	CreateFeedback(ctx context.Context, f *Feedback) error
}

type Coupons interface {
	GetByInvoice(ctx context.Context, invoiceID uuid.UUID) (*coupon.Coupon, error)
}

type CacheInvalidator interface {
	Invalidate(ctx context.Context, businessID uuid.UUID) error
}

type Service struct {
	repo    Repository
	coupons Coupons
	cache   CacheInvalidator
	now     func() time.Time
}

func NewService(repo Repository, coupons Coupons, cache CacheInvalidator) *Service {
	return &Service{repo: repo, coupons: coupons, cache: cache, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Form(ctx context.Context, token string) (*Form, error) {
	return s.repo.GetForm(ctx, strings.TrimSpace(token))
}

type SubmitParams struct {
	Ratings    Ratings
	Comment    string
	Suggestion string
	Anonymous  bool
}

func (p SubmitParams) Validate() error {
	for _, c := range Categories {
		if v := p.Ratings.Get(c); v < MinRating || v > MaxRating {
			return fmt.Errorf("%w: %s must be between %d and %d", ErrInvalid, c, MinRating, MaxRating)
		}
	}

	if len(p.Comment) > maxTextLength || len(p.Suggestion) > maxTextLength {
		return fmt.Errorf("%w: comments are limited to %d characters", ErrInvalid, maxTextLength)
	}

	return nil
}

type SubmitResult struct {
	Feedback *Feedback
	// Coupon is the reward revealed after submitting, nil when there is none
	// or it can no longer be used.
	Coupon *coupon.Coupon
}

// Submit stores one feedback per invoice and reveals the invoice's coupon.
func (s *Service) Submit(ctx context.Context, token string, params SubmitParams) (*SubmitResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	form, err := s.Form(ctx, token)
	if err != nil {
		return nil, err
	}

	if form.Submitted {
		return nil, ErrAlreadySubmitted
	}

	f := &Feedback{
		BusinessID: form.BusinessID,
		InvoiceID:  form.InvoiceID,
		Ratings:    params.Ratings,
		Comment:    strings.TrimSpace(params.Comment),
		Suggestion: strings.TrimSpace(params.Suggestion),
		Anonymous:  params.Anonymous,
	}

	if err := s.repo.CreateFeedback(ctx, f); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, form.BusinessID); err != nil {
			slog.Warn("failed to invalidate metrics cache", "business_id", form.BusinessID, "error", err)
		}
	}

	res := &SubmitResult{Feedback: f}

	if form.CouponTeaser == "" {
		return res, nil
	}

	c, err := s.coupons.GetByInvoice(ctx, form.InvoiceID)
	switch {
	case errors.Is(err, coupon.ErrNotFound):
	case err != nil:
		slog.Warn("failed to load coupon after feedback", "invoice_id", form.InvoiceID, "error", err)
	case !c.IsUsed && !c.Expired(s.now()):
		res.Coupon = c
	}

	return res, nil
}
