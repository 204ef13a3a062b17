package store_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invisifeed/invisifeed/internal/coupon"
	"github.com/invisifeed/invisifeed/internal/database"
	"github.com/invisifeed/invisifeed/internal/invoice"
	"github.com/invisifeed/invisifeed/internal/invoice/store"
)

func newStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return store.New(db), mock
}

func TestStore_Reset(t *testing.T) {
	s, mock := newStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WithArgs(database.BusinessLockKey(id)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT pdf_key FROM invoices`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"pdf_key"}).AddRow("invoices/a.pdf").AddRow("invoices/b.pdf"))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM feedbacks`)).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM coupons`)).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM invoices`)).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`data_version = data_version + 1`)).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	keys, err := s.Reset(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []string{"invoices/a.pdf", "invoices/b.pdf"}, keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Reset_RollsBackOnFailure(t *testing.T) {
	s, mock := newStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT pdf_key FROM invoices`)).
		WillReturnRows(sqlmock.NewRows([]string{"pdf_key"}))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM feedbacks`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM coupons`)).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := s.Reset(context.Background(), id)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateTx(t *testing.T) {
	s, mock := newStore(t)
	businessID := uuid.New()
	invoiceID := uuid.New()
	couponID := uuid.New()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WithArgs(database.BusinessLockKey(businessID)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT daily_upload_count, upload_window_start FROM businesses`)).
		WithArgs(businessID).
		WillReturnRows(sqlmock.NewRows([]string{"daily_upload_count", "upload_window_start"}).AddRow(2, start))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO invoices`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(invoiceID.String(), now))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO invoice_items`)).
		WithArgs(invoiceID, 0, "Design", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO coupons`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(couponID.String(), now))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE businesses SET daily_upload_count = $1`)).
		WithArgs(3, start, businessID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := s.BeginCreate(context.Background(), businessID)
	require.NoError(t, err)

	count, windowStart, err := tx.Counter(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, start, *windowStart)

	inv := &invoice.Invoice{
		BusinessID:    businessID,
		Number:        "INV-1",
		Source:        invoice.SourceCreate,
		InvoiceDate:   now,
		FeedbackToken: "tok",
		FeedbackURL:   "https://app/feedback/tok",
		Items: []invoice.Item{{
			Description: "Design",
			Quantity:    decimal.NewFromInt(1),
			Rate:        decimal.NewFromInt(100),
		}},
		Coupon: &coupon.Coupon{BusinessID: businessID, Code: "SAVE10-AB2C", Description: "10% off", ExpiryDays: 30},
	}

	require.NoError(t, tx.InsertInvoice(context.Background(), inv))
	assert.Equal(t, invoiceID, inv.ID)
	assert.Equal(t, invoiceID, inv.Coupon.InvoiceID)
	assert.Equal(t, couponID, inv.Coupon.ID)

	require.NoError(t, tx.UpdateCounter(context.Background(), 3, start))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_InsertInvoice_Duplicate(t *testing.T) {
	s, mock := newStore(t)
	businessID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO invoices`)).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	tx, err := s.BeginCreate(context.Background(), businessID)
	require.NoError(t, err)

	err = tx.InsertInvoice(context.Background(), &invoice.Invoice{BusinessID: businessID, Number: "INV-1"})
	assert.ErrorIs(t, err, invoice.ErrDuplicateNumber)
	assert.NoError(t, tx.Rollback())
}

func TestStore_GetInvoice_NotFound(t *testing.T) {
	s, mock := newStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM invoices WHERE business_id = $1 AND invoice_number = $2`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetInvoice(context.Background(), uuid.New(), "missing")
	assert.ErrorIs(t, err, invoice.ErrNotFound)
}

func TestStore_GetInvoice_RecomputesTotalsFromItems(t *testing.T) {
	s, mock := newStore(t)

	businessID, invoiceID := uuid.New(), uuid.New()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	columns := []string{
		"id", "business_id", "invoice_number", "source", "is_sample", "invoice_date", "due_date", "payment_terms",
		"business_name", "business_email", "business_phone", "business_address",
		"customer_name", "customer_email", "customer_phone", "customer_address", "customer_amount",
		"subtotal", "discount_total", "tax_total", "grand_total",
		"bank_details", "payment_method", "payment_instructions", "notes",
		"pdf_key", "pdf_url", "feedback_token", "feedback_url", "created_at",
	}

	mock.ExpectQuery(regexp.QuoteMeta(`FROM invoices WHERE business_id = $1 AND invoice_number = $2`)).
		WithArgs(businessID, "INV-7").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			invoiceID.String(), businessID.String(), "INV-7", "create", false, now, nil, "",
			"Acme", "owner@acme.io", "", "",
			"Globex", "ap@globex.test", "", "", "999.99",
			"999.99", "0", "0", "999.99",
			"", "", "", "",
			"invoices/a.pdf", "https://cdn/a.pdf", "tok", "https://app/feedback/tok", now,
		))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM invoice_items`)).
		WithArgs(invoiceID).
		WillReturnRows(sqlmock.NewRows([]string{"description", "quantity", "rate", "discount", "tax"}).
			AddRow("Design", "2.000", "100.00", "10.00", "5.00").
			AddRow("Hosting", "1.000", "50.00", "0.00", "0.00"))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM coupons`)).
		WithArgs(invoiceID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	inv, err := s.GetInvoice(context.Background(), businessID, "INV-7")
	require.NoError(t, err)

	want := invoice.ComputeTotals(inv.Items)
	assert.Equal(t, want, inv.Totals)
	assert.Equal(t, "239", inv.Totals.GrandTotal.String())
	assert.Equal(t, "239", inv.Amount().String())
	assert.Nil(t, inv.Coupon)
	require.NoError(t, mock.ExpectationsWereMet())
}
