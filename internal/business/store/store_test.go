package store_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invisifeed/invisifeed/internal/business"
	"github.com/invisifeed/invisifeed/internal/business/store"
)

func newStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return store.New(db), mock
}

var businessColumns = []string{
	"id", "username", "email", "password_hash", "business_name", "phone_number",
	"country", "state", "city", "local_address", "pincode",
	"gstin_number", "gstin_holder_name", "gstin_verified",
	"plan_name", "plan_start_date", "plan_end_date",
	"profile_status", "pro_trial_used", "daily_upload_count", "upload_window_start",
	"data_version", "created_at", "updated_at",
}

func TestStore_GetBusiness(t *testing.T) {
	s, mock := newStore(t)

	id := uuid.New()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	end := now.AddDate(0, 1, 0)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM businesses WHERE id = $1`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(businessColumns).AddRow(
			id.String(), "acme", "owner@acme.io", "hash", "Acme", "98765",
			"IN", "MH", "Pune", "", "411001",
			"", "", false,
			"pro", now, end,
			"completed", false, 2, now,
			3, now, now,
		))

	got, err := s.GetBusiness(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, business.PlanPro, got.Plan.Name)
	assert.Equal(t, end, *got.Plan.EndDate)
	assert.Equal(t, business.ProfileCompleted, got.ProfileStatus)
	assert.Equal(t, 2, got.DailyUploadCount)
	assert.Equal(t, 3, got.DataVersion)
	assert.Equal(t, "Pune", got.Address.City)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetBusiness_NotFound(t *testing.T) {
	s, mock := newStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM businesses WHERE id = $1`)).WillReturnError(sql.ErrNoRows)

	_, err := s.GetBusiness(context.Background(), uuid.New())
	assert.ErrorIs(t, err, business.ErrNotFound)
}

func TestStore_CreateBusiness_Duplicate(t *testing.T) {
	s, mock := newStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO businesses`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "businesses_email_key"})

	err := s.CreateBusiness(context.Background(), &business.Business{Username: "acme", Email: "a@b.c"})
	assert.ErrorIs(t, err, business.ErrEmailTaken)
}

func TestStore_UpdatePlan_Missing(t *testing.T) {
	s, mock := newStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE businesses`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdatePlan(context.Background(), uuid.New(), business.Plan{Name: business.PlanFree}, false)
	assert.ErrorIs(t, err, business.ErrNotFound)
}

func TestStore_SweepCounters(t *testing.T) {
	s, mock := newStore(t)

	cutoff := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("SET daily_upload_count = 0, upload_window_start = NULL")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := s.SweepCounters(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ExpirePlans(t *testing.T) {
	s, mock := newStore(t)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("SET plan_name = $1, plan_start_date = $2, plan_end_date = NULL")).
		WithArgs(business.PlanFree, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := s.ExpirePlans(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
