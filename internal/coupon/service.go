package coupon

import (
	"context"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=coupon
type Repository interface {
	ListCoupons(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*Coupon, int, error)
	GetCoupon(ctx context.Context, businessID, id uuid.UUID) (*Coupon, error)
	GetByInvoice(ctx context.Context, invoiceID uuid.UUID) (*Coupon, error)
	MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error
	DeleteCoupon(ctx context.Context, businessID, id uuid.UUID) error
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

type Page struct {
	Number int
	Size   int
}

func (p Page) normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}

	if p.Size < 1 {
		p.Size = DefaultPageSize
	}

	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}

	return p
}

type ListResult struct {
	Coupons []*Coupon
	Total   int
	Page    int
	Size    int
	Pages   int
}

func (s *Service) List(ctx context.Context, businessID uuid.UUID, page Page) (*ListResult, error) {
	page = page.normalize()

	coupons, total, err := s.repo.ListCoupons(ctx, businessID, page.Size, (page.Number-1)*page.Size)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Coupons: coupons,
		Total:   total,
		Page:    page.Number,
		Size:    page.Size,
		Pages:   (total + page.Size - 1) / page.Size,
	}, nil
}

// MarkUsed records that the customer redeemed the coupon.
func (s *Service) MarkUsed(ctx context.Context, businessID, id uuid.UUID) (*Coupon, error) {
	c, err := s.repo.GetCoupon(ctx, businessID, id)
	if err != nil {
		return nil, err
	}

	if c.IsUsed {
		return nil, ErrCouponUsed
	}

	now := s.now()
	if err := s.repo.MarkUsed(ctx, c.ID, now); err != nil {
		return nil, err
	}

	c.IsUsed = true
	c.UsedAt = &now

	return c, nil
}

// Delete removes an unused coupon. Used coupons stay as a redemption record.
func (s *Service) Delete(ctx context.Context, businessID, id uuid.UUID) error {
	c, err := s.repo.GetCoupon(ctx, businessID, id)
	if err != nil {
		return err
	}

	if c.IsUsed {
		return ErrCouponUsed
	}

	return s.repo.DeleteCoupon(ctx, businessID, id)
}

// Redeem marks the coupon attached to an invoice as used when the presented
// code matches.
func (s *Service) Redeem(ctx context.Context, invoiceID uuid.UUID, code string) (*Coupon, error) {
	c, err := s.repo.GetByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if !SameCode(code, c.Code) {
		return nil, ErrCodeMismatch
	}

	if c.IsUsed {
		return nil, ErrCouponUsed
	}

	now := s.now()
	if c.Expired(now) {
		return nil, ErrCouponExpired
	}

	if err := s.repo.MarkUsed(ctx, c.ID, now); err != nil {
		return nil, err
	}

	c.IsUsed = true
	c.UsedAt = &now

	return c, nil
}
