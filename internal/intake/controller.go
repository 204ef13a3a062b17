package intake

import (
	"bytes"
	"errors"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/invisifeed/invisifeed/internal/business"
	"github.com/invisifeed/invisifeed/internal/coupon"
	"github.com/invisifeed/invisifeed/internal/invoice"
	"github.com/invisifeed/invisifeed/internal/session"
)

const DefaultMaxUploadBytes = 3 << 20

var upper = cases.Upper(language.Und)

// Controller holds the local rules. Its quota and profile checks only spare
// a request; the server decides.
type Controller struct {
	MaxUploadBytes int64
	Now            func() time.Time
}

func NewController(maxUploadBytes int64) Controller {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}

	return Controller{MaxUploadBytes: maxUploadBytes, Now: time.Now}
}

// CanSubmit reports whether the upload and create controls are enabled.
func (c Controller) CanSubmit(m Model, sess session.Snapshot) bool {
	return !m.InFlight() && !sess.LimitReached()
}

// BeginUpload checks size, type, quota and profile in that order. Only a
// returned Uploading state may be followed by an upload request.
func (c Controller) BeginUpload(m Model, sess session.Snapshot, f File) Model {
	if m.InFlight() {
		return m
	}

	m.File = &f
	m.UpgradePrompt, m.ProfilePrompt = false, false

	if f.Size() > c.MaxUploadBytes {
		return m.fail(Failure{Kind: FailureValidation, Message: invoice.ErrFileTooLarge.Error()})
	}

	if !bytes.HasPrefix(f.Data, []byte("%PDF-")) {
		return m.fail(Failure{Kind: FailureValidation, Message: invoice.ErrNotPDF.Error()})
	}

	if next, blocked := c.precheck(m, sess); blocked {
		return next
	}

	m.State = Uploading{File: f}

	return m
}

// BeginCreate validates the form, then runs the same quota and profile checks
// as uploads.
func (c Controller) BeginCreate(m Model, sess session.Snapshot, form Form) Model {
	if m.InFlight() {
		return m
	}

	m.UpgradePrompt, m.ProfilePrompt = false, false

	if errs := form.Validate(); len(errs) > 0 {
		verr := &invoice.ValidationError{Fields: errs}
		return m.fail(Failure{Kind: FailureValidation, Message: verr.Error(), Fields: errs})
	}

	if next, blocked := c.precheck(m, sess); blocked {
		return next
	}

	m.State = Submitting{Form: form.Recalculate()}

	return m
}

func (c Controller) precheck(m Model, sess session.Snapshot) (Model, bool) {
	now := c.Now()

	if sess.LimitReached() {
		m.UpgradePrompt = !sess.IsPro(now)
		limit := &invoice.LimitError{Limit: sess.DailyLimit}

		return m.fail(Failure{Kind: FailureLimit, Message: limit.Error()}), true
	}

	if !sess.ProfileCompleted() {
		m.ProfilePrompt = true
		return m.fail(Failure{Kind: FailureProfile, Message: business.ErrProfileIncomplete.Error()}), true
	}

	if m.Coupon.Status == CouponSaved && !sess.Features(now).Coupons {
		m.UpgradePrompt = true
		return m.fail(Failure{Kind: FailureLocked, Message: business.ErrFeatureLocked.Error()}), true
	}

	return m, false
}

func (m Model) fail(f Failure) Model {
	m.State = Failed{Failure: f}
	return m
}

// EditCoupon opens the coupon draft. Coupons need an active pro plan.
func (c Controller) EditCoupon(m Model, sess session.Snapshot) Model {
	if !sess.Features(c.Now()).Coupons {
		m.UpgradePrompt = true
		return m
	}

	m.Coupon.Status = CouponEditing
	m.Coupon.Errors = nil

	return m
}

// SetCoupon records typed values; the code is upper-cased as typed.
func (c Controller) SetCoupon(m Model, d coupon.Draft) Model {
	d.Code = upper.String(d.Code)
	m.Coupon.Draft = d

	if m.Coupon.Status == CouponSaved {
		m.Coupon.Status = CouponEditing
	}

	return m
}

// SaveCoupon marks the draft saved when every field is valid; otherwise the
// draft stays in editing with its field errors.
func (c Controller) SaveCoupon(m Model) Model {
	d := m.Coupon.Draft.Normalize()

	if err := d.Validate(); err != nil {
		var verr *coupon.ValidationError
		if errors.As(err, &verr) {
			m.Coupon.Errors = verr.Fields
		}

		m.Coupon.Status = CouponEditing

		return m
	}

	m.Coupon = CouponDraft{Status: CouponSaved, Draft: d}

	return m
}

func (c Controller) DiscardCoupon(m Model) Model {
	m.Coupon = CouponDraft{}
	return m
}

// CouponForSubmit is the draft to bundle with the next request, nil when none
// is saved.
func (c Controller) CouponForSubmit(m Model) *coupon.Draft {
	if m.Coupon.Status != CouponSaved {
		return nil
	}

	d := m.Coupon.Draft

	return &d
}

// Resolve records a successful response. The file and coupon draft are
// cleared whether or not a coupon was sent.
func (c Controller) Resolve(m Model, res invoice.ProcessResult) (Model, session.Update) {
	if !m.InFlight() {
		return m, nil
	}

	next := Model{State: Success{Result: res}}

	return next, session.CounterChanged{Count: res.DailyUploadCount, Limit: res.DailyLimit}
}

// Fail records a rejected request. The file and coupon draft are kept for a
// retry; nothing is retried automatically.
func (c Controller) Fail(m Model, sess session.Snapshot, err error) Model {
	m.UpgradePrompt, m.ProfilePrompt = false, false

	f := Failure{Kind: FailureServer, Message: err.Error()}

	var (
		limit *invoice.LimitError
		verr  *invoice.ValidationError
		cverr *coupon.ValidationError
	)

	switch {
	case errors.As(err, &limit):
		f.Kind = FailureLimit
		f.ResetsIn = limit.ResetsIn
		m.UpgradePrompt = !sess.IsPro(c.Now())
	case errors.Is(err, business.ErrProfileIncomplete):
		f.Kind = FailureProfile
		m.ProfilePrompt = true
	case errors.Is(err, business.ErrFeatureLocked):
		f.Kind = FailureLocked
		m.UpgradePrompt = true
	case errors.As(err, &verr):
		f.Kind = FailureValidation
		f.Fields = verr.Fields
	case errors.As(err, &cverr):
		f.Kind = FailureValidation
		m.Coupon.Errors = cverr.Fields
	}

	return m.fail(f)
}

// Reset clears everything shown after a successful data reset in one step.
func (c Controller) Reset(Model) (Model, session.Update) {
	return New(), session.CounterChanged{Count: 0}
}

// CanEmail reports whether the current result may be e-mailed.
func (c Controller) CanEmail(m Model) bool {
	res, ok := m.Result()
	return ok && !m.EmailSent && !m.SendingEmail && res.CustomerEmail != ""
}

// BeginEmail marks an e-mail request as outstanding. It returns ok false when
// the result cannot be e-mailed right now.
func (c Controller) BeginEmail(m Model) (Model, bool) {
	if !c.CanEmail(m) {
		return m, false
	}

	m.SendingEmail = true

	return m, true
}

func (c Controller) MarkEmailSent(m Model) Model {
	m.SendingEmail = false

	if _, ok := m.Result(); ok {
		m.EmailSent = true
	}

	return m
}

// EmailFailed re-enables sending after a failed request.
func (c Controller) EmailFailed(m Model) Model {
	m.SendingEmail = false
	return m
}

// Dismiss returns a failed or finished flow to idle, keeping the drafts.
func (c Controller) Dismiss(m Model) Model {
	if m.InFlight() {
		return m
	}

	m.State = Idle{}
	m.UpgradePrompt, m.ProfilePrompt = false, false

	return m
}
