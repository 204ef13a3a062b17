package intake_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invisifeed/invisifeed/internal/business"
	"github.com/invisifeed/invisifeed/internal/coupon"
	"github.com/invisifeed/invisifeed/internal/intake"
	"github.com/invisifeed/invisifeed/internal/invoice"
	"github.com/invisifeed/invisifeed/internal/session"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func controller() intake.Controller {
	c := intake.NewController(0)
	c.Now = func() time.Time { return testNow }

	return c
}

func freeSession(count int) session.Snapshot {
	return session.Snapshot{
		Token:            "tok",
		BusinessID:       uuid.New(),
		Plan:             business.Plan{Name: business.PlanFree},
		ProfileStatus:    business.ProfileCompleted,
		DailyUploadCount: count,
		DailyLimit:       3,
	}
}

func proSession(count int) session.Snapshot {
	end := testNow.Add(24 * time.Hour)

	s := freeSession(count)
	s.Plan = business.Plan{Name: business.PlanPro, EndDate: &end}
	s.DailyLimit = 10

	return s
}

func pdfFile(size int) intake.File {
	data := append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte("x"), max(size-9, 0))...)
	return intake.File{Name: "invoice.pdf", Data: data}
}

func validForm() intake.Form {
	f := intake.Form{
		Business: invoice.Party{Name: "Acme"},
		Customer: invoice.Party{Name: "Bob"},
	}
	f = f.AddItem().SetItem(0, intake.ItemInput{Description: "Design", Quantity: "1", Rate: "100", Discount: "0", Tax: "0"})

	return f
}

func TestBeginUpload(t *testing.T) {
	c := controller()

	tests := []struct {
		name          string
		sess          session.Snapshot
		file          intake.File
		wantKind      intake.FailureKind
		wantMessage   string
		wantUpgrade   bool
		wantProfile   bool
		wantUploading bool
	}{
		{
			name:          "Accepted",
			sess:          freeSession(0),
			file:          pdfFile(1024),
			wantUploading: true,
		},
		{
			name:          "ExactlyThreeMegabytes",
			sess:          freeSession(0),
			file:          pdfFile(3 << 20),
			wantUploading: true,
		},
		{
			name:        "TooLarge",
			sess:        freeSession(0),
			file:        pdfFile(3<<20 + 1),
			wantKind:    intake.FailureValidation,
			wantMessage: invoice.ErrFileTooLarge.Error(),
		},
		{
			name:        "NotPDF",
			sess:        freeSession(0),
			file:        intake.File{Name: "a.png", Data: []byte("\x89PNG")},
			wantKind:    intake.FailureValidation,
			wantMessage: invoice.ErrNotPDF.Error(),
		},
		{
			name:        "FreeLimitReached",
			sess:        freeSession(3),
			file:        pdfFile(1024),
			wantKind:    intake.FailureLimit,
			wantMessage: "Daily upload limit (3) reached",
			wantUpgrade: true,
		},
		{
			name:        "ProLimitReachedNoUpgradePrompt",
			sess:        proSession(10),
			file:        pdfFile(1024),
			wantKind:    intake.FailureLimit,
			wantMessage: "Daily upload limit (10) reached",
		},
		{
			name: "ProfileIncomplete",
			sess: func() session.Snapshot {
				s := freeSession(0)
				s.ProfileStatus = business.ProfileSkipped

				return s
			}(),
			file:        pdfFile(1024),
			wantKind:    intake.FailureProfile,
			wantMessage: business.ErrProfileIncomplete.Error(),
			wantProfile: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := c.BeginUpload(intake.New(), tt.sess, tt.file)

			_, uploading := next.State.(intake.Uploading)
			assert.Equal(t, tt.wantUploading, uploading)
			assert.Equal(t, tt.wantUpgrade, next.UpgradePrompt)
			assert.Equal(t, tt.wantProfile, next.ProfilePrompt)

			if tt.wantUploading {
				return
			}

			f, ok := next.Failure()
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, f.Kind)
			assert.Equal(t, tt.wantMessage, f.Message)
		})
	}
}

func TestBeginUpload_IgnoredWhileInFlight(t *testing.T) {
	c := controller()
	sess := freeSession(0)

	m := c.BeginUpload(intake.New(), sess, pdfFile(10))
	require.True(t, m.InFlight())
	assert.False(t, c.CanSubmit(m, sess))

	again := c.BeginUpload(m, sess, pdfFile(20))
	assert.Equal(t, m, again)
}

func TestCanSubmit_DisabledAtLimit(t *testing.T) {
	c := controller()

	assert.True(t, c.CanSubmit(intake.New(), freeSession(2)))
	assert.False(t, c.CanSubmit(intake.New(), freeSession(3)))
}

func TestBeginCreate(t *testing.T) {
	c := controller()

	t.Run("RequiresNames", func(t *testing.T) {
		form := validForm()
		form.Business.Name = " "
		form.Customer.Name = ""

		next := c.BeginCreate(intake.New(), freeSession(0), form)

		f, ok := next.Failure()
		require.True(t, ok)
		assert.Equal(t, intake.FailureValidation, f.Kind)
		assert.Equal(t, []invoice.FieldError{
			{Field: "business.name", Message: "is required"},
			{Field: "customer.name", Message: "is required"},
		}, f.Fields)
	})

	t.Run("Submits", func(t *testing.T) {
		next := c.BeginCreate(intake.New(), freeSession(0), validForm())

		s, ok := next.State.(intake.Submitting)
		require.True(t, ok)
		assert.Equal(t, "100", s.Form.Totals.GrandTotal.String())
	})

	t.Run("SavedCouponNeedsPro", func(t *testing.T) {
		m := intake.New()
		m.Coupon = intake.CouponDraft{Status: intake.CouponSaved, Draft: coupon.Draft{Code: "A", Description: "b", ExpiryDays: "3"}}

		next := c.BeginCreate(m, freeSession(0), validForm())

		f, ok := next.Failure()
		require.True(t, ok)
		assert.Equal(t, intake.FailureLocked, f.Kind)
		assert.True(t, next.UpgradePrompt)
		assert.Equal(t, intake.CouponSaved, next.Coupon.Status)
	})
}

func TestCouponDraft(t *testing.T) {
	c := controller()
	sess := proSession(0)

	m := c.EditCoupon(intake.New(), sess)
	require.Equal(t, intake.CouponEditing, m.Coupon.Status)

	m = c.SetCoupon(m, coupon.Draft{Code: "save10", Description: "10% off"})
	assert.Equal(t, "SAVE10", m.Coupon.Draft.Code)

	m = c.SaveCoupon(m)
	assert.Equal(t, intake.CouponEditing, m.Coupon.Status)
	require.Len(t, m.Coupon.Errors, 1)
	assert.Equal(t, "expiry_days", m.Coupon.Errors[0].Field)
	assert.Nil(t, c.CouponForSubmit(m))

	m = c.SetCoupon(m, coupon.Draft{Code: "save10", Description: "10% off", ExpiryDays: "30"})
	m = c.SaveCoupon(m)
	assert.Equal(t, intake.CouponSaved, m.Coupon.Status)
	assert.Empty(t, m.Coupon.Errors)

	draft := c.CouponForSubmit(m)
	require.NotNil(t, draft)
	assert.Equal(t, coupon.Draft{Code: "SAVE10", Description: "10% off", ExpiryDays: "30"}, *draft)

	m = c.DiscardCoupon(m)
	assert.Equal(t, intake.CouponNone, m.Coupon.Status)
}

func TestEditCoupon_FreePlanPromptsUpgrade(t *testing.T) {
	m := controller().EditCoupon(intake.New(), freeSession(0))

	assert.Equal(t, intake.CouponNone, m.Coupon.Status)
	assert.True(t, m.UpgradePrompt)
}

func savedCouponModel(c intake.Controller, sess session.Snapshot) intake.Model {
	m := c.EditCoupon(intake.New(), sess)
	m = c.SetCoupon(m, coupon.Draft{Code: "save10", Description: "10% off", ExpiryDays: "30"})

	return c.SaveCoupon(m)
}

func TestFail_KeepsDrafts(t *testing.T) {
	c := controller()
	sess := proSession(0)

	m := savedCouponModel(c, sess)
	m = c.BeginUpload(m, sess, pdfFile(100))
	require.True(t, m.InFlight())

	m = c.Fail(m, sess, errors.New("storage unavailable"))

	f, ok := m.Failure()
	require.True(t, ok)
	assert.Equal(t, intake.FailureServer, f.Kind)
	assert.Equal(t, "storage unavailable", f.Message)
	assert.Equal(t, intake.CouponSaved, m.Coupon.Status)
	require.NotNil(t, m.File)
	assert.Equal(t, "invoice.pdf", m.File.Name)
}

func TestFail_Classifies(t *testing.T) {
	c := controller()

	tests := []struct {
		name        string
		sess        session.Snapshot
		err         error
		wantKind    intake.FailureKind
		wantUpgrade bool
		wantProfile bool
	}{
		{
			name:        "LimitOnFree",
			sess:        freeSession(2),
			err:         &invoice.LimitError{Limit: 3, ResetsIn: time.Hour},
			wantKind:    intake.FailureLimit,
			wantUpgrade: true,
		},
		{
			name:     "LimitOnPro",
			sess:     proSession(9),
			err:      &invoice.LimitError{Limit: 10},
			wantKind: intake.FailureLimit,
		},
		{
			name:        "Profile",
			sess:        freeSession(0),
			err:         business.ErrProfileIncomplete,
			wantKind:    intake.FailureProfile,
			wantProfile: true,
		},
		{
			name:        "Locked",
			sess:        freeSession(0),
			err:         business.ErrFeatureLocked,
			wantKind:    intake.FailureLocked,
			wantUpgrade: true,
		},
		{
			name:     "Validation",
			sess:     freeSession(0),
			err:      &invoice.ValidationError{Fields: []invoice.FieldError{{Field: "items", Message: "x"}}},
			wantKind: intake.FailureValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := c.Fail(intake.New(), tt.sess, tt.err)

			f, ok := m.Failure()
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, f.Kind)
			assert.Equal(t, tt.err.Error(), f.Message)
			assert.Equal(t, tt.wantUpgrade, m.UpgradePrompt)
			assert.Equal(t, tt.wantProfile, m.ProfilePrompt)
		})
	}

	m := c.Fail(intake.New(), freeSession(2), &invoice.LimitError{Limit: 3, ResetsIn: time.Hour})
	f, _ := m.Failure()
	assert.Equal(t, time.Hour, f.ResetsIn)
}

func TestResolve_ClearsDrafts(t *testing.T) {
	c := controller()
	sess := proSession(1)

	m := savedCouponModel(c, sess)
	m = c.BeginUpload(m, sess, pdfFile(100))

	res := invoice.ProcessResult{
		InvoiceNumber:    "INV-1",
		PDFURL:           "https://cdn.test/a.pdf",
		FeedbackURL:      "https://app.test/feedback/t",
		CustomerEmail:    "bob@example.test",
		CustomerAmount:   decimal.NewFromInt(239),
		DailyUploadCount: 2,
		DailyLimit:       10,
	}

	m, update := c.Resolve(m, res)

	got, ok := m.Result()
	require.True(t, ok)
	assert.Equal(t, res, got)
	assert.Nil(t, m.File)
	assert.Equal(t, intake.CouponNone, m.Coupon.Status)

	sess = session.Reduce(sess, update)
	assert.Equal(t, 2, sess.DailyUploadCount)

	assert.True(t, c.CanEmail(m))
	m = c.MarkEmailSent(m)
	assert.False(t, c.CanEmail(m))
}

func TestBeginEmail_SingleRequestInFlight(t *testing.T) {
	c := controller()
	sess := freeSession(0)

	m := c.BeginUpload(intake.New(), sess, pdfFile(100))
	m, _ = c.Resolve(m, invoice.ProcessResult{InvoiceNumber: "INV-1", CustomerEmail: "bob@example.test"})

	m, ok := c.BeginEmail(m)
	require.True(t, ok)
	assert.True(t, m.SendingEmail)
	assert.False(t, c.CanEmail(m))

	_, ok = c.BeginEmail(m)
	assert.False(t, ok)

	m = c.EmailFailed(m)
	assert.True(t, c.CanEmail(m))

	m, ok = c.BeginEmail(m)
	require.True(t, ok)

	m = c.MarkEmailSent(m)
	assert.False(t, m.SendingEmail)
	assert.False(t, c.CanEmail(m))
}

func TestResolve_IgnoredWhenNotInFlight(t *testing.T) {
	m, update := controller().Resolve(intake.New(), invoice.ProcessResult{InvoiceNumber: "X"})

	assert.Equal(t, intake.New(), m)
	assert.Nil(t, update)
}

func TestReset_ClearsEverything(t *testing.T) {
	c := controller()
	sess := proSession(3)

	m := c.BeginUpload(savedCouponModel(c, sess), sess, pdfFile(100))
	m, _ = c.Resolve(m, invoice.ProcessResult{InvoiceNumber: "INV-1", PDFURL: "u", FeedbackURL: "f", CustomerEmail: "e", DailyUploadCount: 4})
	m = c.MarkEmailSent(m)
	m = savedCouponModel(c, sess)

	m, update := c.Reset(m)

	assert.Equal(t, intake.New(), m)
	_, hasResult := m.Result()
	assert.False(t, hasResult)

	sess = session.Reduce(sess, update)
	assert.Zero(t, sess.DailyUploadCount)
	assert.Equal(t, 10, sess.DailyLimit)
}

func TestDismiss(t *testing.T) {
	c := controller()

	m := c.Fail(intake.New(), freeSession(0), business.ErrProfileIncomplete)
	m = c.Dismiss(m)

	assert.IsType(t, intake.Idle{}, m.State)
	assert.False(t, m.ProfilePrompt)
}
