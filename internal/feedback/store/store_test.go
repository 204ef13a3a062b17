package store_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invisifeed/invisifeed/internal/feedback"
	"github.com/invisifeed/invisifeed/internal/feedback/store"
)

func TestStore_GetForm(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	invoiceID, businessID := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE i.feedback_token = $1`)).
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows([]string{"id", "business_id", "business_name", "invoice_number", "teaser", "submitted"}).
			AddRow(invoiceID.String(), businessID.String(), "Acme", "INV-1", "10% off", false))

	got, err := store.New(db).GetForm(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, invoiceID, got.InvoiceID)
	assert.Equal(t, "10% off", got.CouponTeaser)
	assert.False(t, got.Submitted)
}

func TestStore_GetForm_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE i.feedback_token = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = store.New(db).GetForm(context.Background(), "nope")
	assert.ErrorIs(t, err, feedback.ErrNotFound)
}

func TestStore_CreateFeedback(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO feedbacks`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(id.String(), now))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO feedbacks`)).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	s := store.New(db)

	f := &feedback.Feedback{BusinessID: uuid.New(), InvoiceID: uuid.New()}
	require.NoError(t, s.CreateFeedback(context.Background(), f))
	assert.Equal(t, id, f.ID)

	err = s.CreateFeedback(context.Background(), &feedback.Feedback{})
	assert.ErrorIs(t, err, feedback.ErrAlreadySubmitted)
}
