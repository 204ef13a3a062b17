package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/invisifeed/invisifeed/internal/business"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectBusinessColumns = `
	id, username, email, password_hash, business_name, phone_number,
	country, state, city, local_address, pincode,
	gstin_number, gstin_holder_name, gstin_verified,
	plan_name, plan_start_date, plan_end_date,
	profile_status, pro_trial_used, daily_upload_count, upload_window_start,
	data_version, created_at, updated_at
`

func scanBusiness(s scanner) (*business.Business, error) {
	var b business.Business

	var planName, status string

	if err := s.Scan(
		&b.ID, &b.Username, &b.Email, &b.PasswordHash, &b.BusinessName, &b.PhoneNumber,
		&b.Address.Country, &b.Address.State, &b.Address.City, &b.Address.LocalAddress, &b.Address.Pincode,
		&b.GSTIN.Number, &b.GSTIN.HolderName, &b.GSTIN.Verified,
		&planName, &b.Plan.StartDate, &b.Plan.EndDate,
		&status, &b.ProTrialUsed, &b.DailyUploadCount, &b.UploadWindowStart,
		&b.DataVersion, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}

	b.Plan.Name = business.PlanName(planName)
	b.ProfileStatus = business.ProfileStatus(status)

	return &b, nil
}

func (s *Store) CreateBusiness(ctx context.Context, b *business.Business) error {
	query := `
		INSERT INTO businesses (username, email, password_hash, business_name, plan_name, profile_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		b.Username,
		b.Email,
		b.PasswordHash,
		b.BusinessName,
		b.Plan.Name,
		b.ProfileStatus,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "email") {
				return business.ErrEmailTaken
			}

			return business.ErrUsernameTaken
		}

		return fmt.Errorf("creating business: %w", err)
	}

	return nil
}

func (s *Store) GetBusiness(ctx context.Context, id uuid.UUID) (*business.Business, error) {
	query := `SELECT ` + selectBusinessColumns + ` FROM businesses WHERE id = $1`

	b, err := scanBusiness(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, business.ErrNotFound
		}

		return nil, fmt.Errorf("getting business: %w", err)
	}

	return b, nil
}

func (s *Store) GetByLogin(ctx context.Context, login string) (*business.Business, error) {
	query := `SELECT ` + selectBusinessColumns + ` FROM businesses WHERE username = $1 OR email = $1`

	b, err := scanBusiness(s.db.QueryRowContext(ctx, query, login))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, business.ErrNotFound
		}

		return nil, fmt.Errorf("getting business by login: %w", err)
	}

	return b, nil
}

func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool

	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM businesses WHERE username = $1)`, username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking username: %w", err)
	}

	return exists, nil
}

func (s *Store) UpdateProfile(ctx context.Context, b *business.Business) error {
	query := `
		UPDATE businesses
		SET business_name = $1, phone_number = $2,
			country = $3, state = $4, city = $5, local_address = $6, pincode = $7,
			profile_status = $8, updated_at = NOW()
		WHERE id = $9
	`

	res, err := s.db.ExecContext(ctx, query,
		b.BusinessName,
		b.PhoneNumber,
		b.Address.Country,
		b.Address.State,
		b.Address.City,
		b.Address.LocalAddress,
		b.Address.Pincode,
		b.ProfileStatus,
		b.ID,
	)
	if err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}

	return expectOne(res)
}

func (s *Store) UpdateGSTIN(ctx context.Context, id uuid.UUID, g business.GSTIN) error {
	query := `
		UPDATE businesses
		SET gstin_number = $1, gstin_holder_name = $2, gstin_verified = $3, updated_at = NOW()
		WHERE id = $4
	`

	res, err := s.db.ExecContext(ctx, query, g.Number, g.HolderName, g.Verified, id)
	if err != nil {
		return fmt.Errorf("updating gstin: %w", err)
	}

	return expectOne(res)
}

func (s *Store) UpdatePlan(ctx context.Context, id uuid.UUID, plan business.Plan, trialUsed bool) error {
	query := `
		UPDATE businesses
		SET plan_name = $1, plan_start_date = $2, plan_end_date = $3, pro_trial_used = $4, updated_at = NOW()
		WHERE id = $5
	`

	res, err := s.db.ExecContext(ctx, query, plan.Name, plan.StartDate, plan.EndDate, trialUsed, id)
	if err != nil {
		return fmt.Errorf("updating plan: %w", err)
	}

	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n == 0 {
		return business.ErrNotFound
	}

	return nil
}

// SweepCounters zeroes upload counters whose window started before cutoff.
func (s *Store) SweepCounters(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE businesses
		SET daily_upload_count = 0, upload_window_start = NULL
		WHERE upload_window_start IS NOT NULL AND upload_window_start <= $1
	`

	res, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweeping upload counters: %w", err)
	}

	return res.RowsAffected()
}

// ExpirePlans moves businesses whose paid plan ended before now back to free.
func (s *Store) ExpirePlans(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE businesses
		SET plan_name = $1, plan_start_date = $2, plan_end_date = NULL, updated_at = NOW()
		WHERE plan_name <> $1 AND plan_end_date IS NOT NULL AND plan_end_date <= $2
	`

	res, err := s.db.ExecContext(ctx, query, business.PlanFree, now)
	if err != nil {
		return 0, fmt.Errorf("expiring plans: %w", err)
	}

	return res.RowsAffected()
}
