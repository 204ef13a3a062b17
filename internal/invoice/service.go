package invoice

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/invisifeed/invisifeed/internal/business"
	"github.com/invisifeed/invisifeed/internal/coupon"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=invoice
type Repository interface {
	BeginCreate(ctx context.Context, businessID uuid.UUID) (CreateTx, error)
	NumberExists(ctx context.Context, businessID uuid.UUID, number string) (bool, error)
	ListInvoices(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*Invoice, error)
	GetInvoice(ctx context.Context, businessID uuid.UUID, number string) (*Invoice, error)
	Reset(ctx context.Context, businessID uuid.UUID) ([]string, error)
}

// CreateTx holds the per-business lock for the duration of one invoice insert.
type CreateTx interface {
	Counter(ctx context.Context) (int, *time.Time, error)
	NumberExists(ctx context.Context, number string) (bool, error)
	InsertInvoice(ctx context.Context, inv *Invoice) error
	UpdateCounter(ctx context.Context, count int, windowStart time.Time) error
	Commit() error
	Rollback() error
}

type Businesses interface {
	GetBusiness(ctx context.Context, id uuid.UUID) (*business.Business, error)
}

type Renderer interface {
	RenderInvoice(ctx context.Context, inv *Invoice) ([]byte, error)
	RenderFeedbackPage(ctx context.Context, page FeedbackPage) ([]byte, error)
	Merge(parts ...[]byte) ([]byte, error)
}

type Storage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, keys ...string) error
}

type Extractor interface {
	Extract(ctx context.Context, pdf []byte) (*Extracted, error)
}

type CacheInvalidator interface {
	Invalidate(ctx context.Context, businessID uuid.UUID) error
}

type Options struct {
	// BaseURL is the public origin feedback links point at.
	BaseURL        string
	MaxUploadBytes int64
	Limits         business.Limits
}

type Service struct {
	repo       Repository
	businesses Businesses
	renderer   Renderer
	storage    Storage
	extractor  Extractor
	cache      CacheInvalidator
	opts       Options
	now        func() time.Time
}

func NewService(
	repo Repository,
	businesses Businesses,
	renderer Renderer,
	storage Storage,
	extractor Extractor,
	cache CacheInvalidator,
	opts Options,
) *Service {
	return &Service{
		repo:       repo,
		businesses: businesses,
		renderer:   renderer,
		storage:    storage,
		extractor:  extractor,
		cache:      cache,
		opts:       opts,
		now:        time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type ItemParams struct {
	Description string
	Quantity    decimal.Decimal
	Rate        decimal.Decimal
	Discount    decimal.Decimal
	Tax         decimal.Decimal
}

// rounded matches the scales of the invoice_items columns so the stored
// totals always agree with the stored items.
func (p ItemParams) rounded() ItemParams {
	p.Quantity = p.Quantity.Round(3)
	p.Rate = p.Rate.Round(2)
	p.Discount = p.Discount.Round(2)
	p.Tax = p.Tax.Round(2)

	return p
}

type CreateParams struct {
	// Number is generated when empty.
	Number       string
	InvoiceDate  *time.Time
	DueDate      *time.Time
	PaymentTerms string
	// Empty business fields are filled from the profile.
	Business Party
	Customer Party
	Items    []ItemParams
	Payment  PaymentDetails
	Notes    string
}

type UploadParams struct {
	Filename string
	Data     []byte
}

// Usage reports the caller's quota so clients can disable controls early.
func (s *Service) Usage(ctx context.Context, businessID uuid.UUID) (Quota, error) {
	b, err := s.businesses.GetBusiness(ctx, businessID)
	if err != nil {
		return Quota{}, err
	}

	return s.quotaFor(b, s.now()), nil
}

func (s *Service) quotaFor(b *business.Business, now time.Time) Quota {
	limit := s.opts.Limits.DailyLimit(b.Plan, now)
	return NewQuota(b.DailyUploadCount, b.UploadWindowStart, limit, s.opts.Limits.Window, now)
}

// Create builds an invoice from form data and turns it into a smart invoice.
func (s *Service) Create(ctx context.Context, businessID uuid.UUID, params CreateParams, draft *coupon.Draft) (*ProcessResult, error) {
	b, now, err := s.prepare(ctx, businessID, draft)
	if err != nil {
		return nil, err
	}

	inv, err := s.build(b, params, now)
	if err != nil {
		return nil, err
	}

	inv.Source = SourceCreate

	return s.process(ctx, b, inv, draft, now, nil)
}

// CreateSample produces a ready-made invoice so new accounts can try the flow.
// Samples count against the daily quota like any other invoice.
func (s *Service) CreateSample(ctx context.Context, businessID uuid.UUID) (*ProcessResult, error) {
	b, now, err := s.prepare(ctx, businessID, nil)
	if err != nil {
		return nil, err
	}

	inv, err := s.build(b, sampleParams(b, now), now)
	if err != nil {
		return nil, err
	}

	inv.Source = SourceSample
	inv.IsSample = true

	return s.process(ctx, b, inv, nil, now, nil)
}

// Upload turns an existing PDF into a smart invoice, reading customer details
// from the document.
func (s *Service) Upload(ctx context.Context, businessID uuid.UUID, params UploadParams, draft *coupon.Draft) (*ProcessResult, error) {
	if s.opts.MaxUploadBytes > 0 && int64(len(params.Data)) > s.opts.MaxUploadBytes {
		return nil, ErrFileTooLarge
	}

	if !bytes.HasPrefix(params.Data, []byte("%PDF-")) {
		return nil, ErrNotPDF
	}

	b, now, err := s.prepare(ctx, businessID, draft)
	if err != nil {
		return nil, err
	}

	meta, err := s.extractor.Extract(ctx, params.Data)
	if err != nil {
		slog.Warn("invoice extraction failed, continuing without metadata",
			"business_id", businessID, "filename", params.Filename, "error", err)

		meta = &Extracted{}
	}

	inv := &Invoice{
		BusinessID:  b.ID,
		Number:      strings.TrimSpace(meta.InvoiceNumber),
		Source:      SourceUpload,
		InvoiceDate: dateOnly(now),
		Business:    businessParty(b),
		Customer: Party{
			Name:    meta.CustomerName,
			Email:   meta.CustomerEmail,
			Address: meta.CustomerAddress,
		},
		CustomerAmount: meta.Amount,
	}

	if meta.InvoiceDate != nil {
		inv.InvoiceDate = dateOnly(*meta.InvoiceDate)
	}

	return s.process(ctx, b, inv, draft, now, params.Data)
}

// prepare runs the checks shared by every invoice-producing path: profile
// completion, coupon feature gate and an early quota check.
func (s *Service) prepare(ctx context.Context, businessID uuid.UUID, draft *coupon.Draft) (*business.Business, time.Time, error) {
	now := s.now()

	b, err := s.businesses.GetBusiness(ctx, businessID)
	if err != nil {
		return nil, now, err
	}

	if b.ProfileStatus != business.ProfileCompleted || !b.ProfileComplete() {
		return nil, now, business.ErrProfileIncomplete
	}

	if draft != nil && !draft.Empty() {
		if !business.FeaturesFor(b.Plan, now).Coupons {
			return nil, now, business.ErrFeatureLocked
		}

		if err := draft.Normalize().Validate(); err != nil {
			return nil, now, err
		}
	}

	if err := s.quotaFor(b, now).Check(now); err != nil {
		return nil, now, err
	}

	return b, now, nil
}

func (s *Service) build(b *business.Business, params CreateParams, now time.Time) (*Invoice, error) {
	verr := &ValidationError{}

	inv := &Invoice{
		BusinessID:   b.ID,
		Number:       strings.TrimSpace(params.Number),
		InvoiceDate:  dateOnly(now),
		PaymentTerms: strings.TrimSpace(params.PaymentTerms),
		Business:     mergeParty(params.Business, businessParty(b)),
		Customer:     trimParty(params.Customer),
		Payment:      params.Payment,
		Notes:        strings.TrimSpace(params.Notes),
	}

	if params.InvoiceDate != nil {
		inv.InvoiceDate = dateOnly(*params.InvoiceDate)
	}

	if params.DueDate != nil {
		due := dateOnly(*params.DueDate)
		if due.Before(inv.InvoiceDate) {
			verr.add("due_date", "cannot be before the invoice date")
		}

		inv.DueDate = &due
	}

	if inv.Business.Name == "" {
		verr.add("business.name", "is required")
	}

	if inv.Customer.Name == "" {
		verr.add("customer.name", "is required")
	}

	if len(params.Items) == 0 {
		verr.add("items", "at least one item is required")
	}

	for i, p := range params.Items {
		field := fmt.Sprintf("items[%d]", i)
		p = p.rounded()

		switch {
		case strings.TrimSpace(p.Description) == "":
			verr.add(field+".description", "is required")
		case !p.Quantity.IsPositive():
			verr.add(field+".quantity", "must be greater than zero")
		case p.Rate.IsNegative():
			verr.add(field+".rate", "cannot be negative")
		case p.Discount.IsNegative() || p.Discount.GreaterThan(hundred):
			verr.add(field+".discount", "must be between 0 and 100")
		case p.Tax.IsNegative() || p.Tax.GreaterThan(hundred):
			verr.add(field+".tax", "must be between 0 and 100")
		}

		inv.Items = append(inv.Items, Item{
			Description: strings.TrimSpace(p.Description),
			Quantity:    p.Quantity,
			Rate:        p.Rate,
			Discount:    p.Discount,
			Tax:         p.Tax,
		})
	}

	if len(verr.Fields) > 0 {
		return nil, verr
	}

	inv.Recalculate()
	inv.CustomerAmount = inv.Totals.GrandTotal

	return inv, nil
}

// process renders and stores the smart invoice, then records it under the
// business lock. original is the uploaded PDF, nil for built invoices.
func (s *Service) process(
	ctx context.Context,
	b *business.Business,
	inv *Invoice,
	draft *coupon.Draft,
	now time.Time,
	original []byte,
) (*ProcessResult, error) {
	if inv.Number == "" {
		inv.Number = generateNumber(now)
	} else {
		exists, err := s.repo.NumberExists(ctx, b.ID, inv.Number)
		if err != nil {
			return nil, err
		}

		if exists {
			return nil, ErrDuplicateNumber
		}
	}

	if draft != nil && !draft.Empty() {
		c, err := draft.Build(b.ID, inv.InvoiceDate)
		if err != nil {
			return nil, err
		}

		inv.Coupon = c
	}

	inv.FeedbackToken = uuid.NewString()
	inv.FeedbackURL = strings.TrimRight(s.opts.BaseURL, "/") + "/feedback/" + inv.FeedbackToken

	pdf, err := s.render(ctx, inv, original)
	if err != nil {
		return nil, err
	}

	inv.PDFKey = fmt.Sprintf("invoices/%s/%s.pdf", b.ID, uuid.NewString())

	inv.PDFURL, err = s.storage.Put(ctx, inv.PDFKey, pdf, "application/pdf")
	if err != nil {
		return nil, fmt.Errorf("storing invoice pdf: %w", err)
	}

	count, err := s.record(ctx, b, inv, now)
	if err != nil {
		if delErr := s.storage.Delete(context.WithoutCancel(ctx), inv.PDFKey); delErr != nil {
			slog.Warn("failed to remove orphaned invoice pdf", "key", inv.PDFKey, "error", delErr)
		}

		return nil, err
	}

	s.invalidate(ctx, b.ID)

	slog.Info("invoice processed",
		"business_id", b.ID, "invoice_number", inv.Number, "source", inv.Source, "daily_count", count)

	return &ProcessResult{
		InvoiceNumber:    inv.Number,
		PDFURL:           inv.PDFURL,
		FeedbackURL:      inv.FeedbackURL,
		CustomerName:     inv.Customer.Name,
		CustomerEmail:    inv.Customer.Email,
		CustomerAmount:   inv.Amount(),
		DailyUploadCount: count,
		DailyLimit:       s.opts.Limits.DailyLimit(b.Plan, now),
		Coupon:           inv.Coupon,
	}, nil
}

func (s *Service) render(ctx context.Context, inv *Invoice, original []byte) ([]byte, error) {
	page := FeedbackPage{
		BusinessName:  inv.Business.Name,
		InvoiceNumber: inv.Number,
		FeedbackURL:   inv.FeedbackURL,
	}

	if inv.Coupon != nil {
		page.CouponTeaser = inv.Coupon.Description
	}

	feedback, err := s.renderer.RenderFeedbackPage(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("rendering feedback page: %w", err)
	}

	body := original
	if body == nil {
		body, err = s.renderer.RenderInvoice(ctx, inv)
		if err != nil {
			return nil, fmt.Errorf("rendering invoice: %w", err)
		}
	}

	merged, err := s.renderer.Merge(body, feedback)
	if err != nil {
		return nil, fmt.Errorf("merging invoice: %w", err)
	}

	return merged, nil
}

// record inserts the invoice and bumps the counter in one transaction. The
// quota check here is the authoritative one.
func (s *Service) record(ctx context.Context, b *business.Business, inv *Invoice, now time.Time) (int, error) {
	tx, err := s.repo.BeginCreate(ctx, b.ID)
	if err != nil {
		return 0, fmt.Errorf("begin create: %w", err)
	}
	defer tx.Rollback()

	count, windowStart, err := tx.Counter(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading counter: %w", err)
	}

	quota := NewQuota(count, windowStart, s.opts.Limits.DailyLimit(b.Plan, now), s.opts.Limits.Window, now)
	if err := quota.Check(now); err != nil {
		return 0, err
	}

	exists, err := tx.NumberExists(ctx, inv.Number)
	if err != nil {
		return 0, err
	}

	if exists {
		return 0, ErrDuplicateNumber
	}

	if err := tx.InsertInvoice(ctx, inv); err != nil {
		return 0, err
	}

	next, start := quota.Consume(now)
	if err := tx.UpdateCounter(ctx, next, start); err != nil {
		return 0, fmt.Errorf("updating counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create: %w", err)
	}

	return next, nil
}

func (s *Service) List(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*Invoice, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	return s.repo.ListInvoices(ctx, businessID, limit, max(offset, 0))
}

func (s *Service) Get(ctx context.Context, businessID uuid.UUID, number string) (*Invoice, error) {
	return s.repo.GetInvoice(ctx, businessID, strings.TrimSpace(number))
}

// Reset deletes every invoice, coupon and feedback of the business and zeroes
// its counter in one transaction. Stored PDFs are removed afterwards; a
// failure there is logged and does not undo the reset.
func (s *Service) Reset(ctx context.Context, businessID uuid.UUID) error {
	keys, err := s.repo.Reset(ctx, businessID)
	if err != nil {
		return err
	}

	s.invalidate(ctx, businessID)

	if len(keys) == 0 {
		return nil
	}

	if err := s.storage.Delete(ctx, keys...); err != nil {
		slog.Warn("failed to remove invoice pdfs after reset",
			"business_id", businessID, "count", len(keys), "error", err)
	}

	slog.Info("business data reset", "business_id", businessID, "invoices", len(keys))

	return nil
}

func (s *Service) invalidate(ctx context.Context, businessID uuid.UUID) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Invalidate(ctx, businessID); err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("failed to invalidate metrics cache", "business_id", businessID, "error", err)
	}
}

func businessParty(b *business.Business) Party {
	return Party{
		Name:    b.BusinessName,
		Email:   b.Email,
		Phone:   b.PhoneNumber,
		Address: b.Address.String(),
	}
}

func trimParty(p Party) Party {
	return Party{
		Name:    strings.TrimSpace(p.Name),
		Email:   strings.TrimSpace(p.Email),
		Phone:   strings.TrimSpace(p.Phone),
		Address: strings.TrimSpace(p.Address),
	}
}

func mergeParty(p, fallback Party) Party {
	p = trimParty(p)

	if p.Name == "" {
		p.Name = fallback.Name
	}

	if p.Email == "" {
		p.Email = fallback.Email
	}

	if p.Phone == "" {
		p.Phone = fallback.Phone
	}

	if p.Address == "" {
		p.Address = fallback.Address
	}

	return p
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func generateNumber(now time.Time) string {
	return "INV-" + now.Format("20060102") + "-" + rand.Text()[:5]
}

func sampleParams(b *business.Business, now time.Time) CreateParams {
	due := now.AddDate(0, 0, 15)

	return CreateParams{
		DueDate:      &due,
		PaymentTerms: "Net 15",
		Business:     businessParty(b),
		Customer: Party{
			Name:    "Sample Customer",
			Email:   "customer@example.com",
			Address: "221B Baker Street, London",
		},
		Items: []ItemParams{
			{
				Description: "Website design",
				Quantity:    decimal.NewFromInt(1),
				Rate:        decimal.NewFromInt(1200),
				Discount:    decimal.NewFromInt(10),
				Tax:         decimal.NewFromInt(18),
			},
			{
				Description: "Hosting (monthly)",
				Quantity:    decimal.NewFromInt(12),
				Rate:        decimal.NewFromInt(15),
				Tax:         decimal.NewFromInt(18),
			},
		},
		Payment: PaymentDetails{Method: "Bank transfer"},
		Notes:   "This is a sample invoice. Reset your data before relying on analytics.",
	}
}
