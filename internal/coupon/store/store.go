package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/invisifeed/invisifeed/internal/coupon"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const selectCouponColumns = `
	c.id, c.business_id, c.invoice_id, i.invoice_number, c.code, c.description,
	c.expiry_days, c.expiry_date, c.is_used, c.used_at, c.created_at
`

func scanCoupon(s scanner) (*coupon.Coupon, error) {
	var c coupon.Coupon

	if err := s.Scan(
		&c.ID, &c.BusinessID, &c.InvoiceID, &c.InvoiceNumber, &c.Code, &c.Description,
		&c.ExpiryDays, &c.ExpiryDate, &c.IsUsed, &c.UsedAt, &c.CreatedAt,
	); err != nil {
		return nil, err
	}

	return &c, nil
}

func (s *Store) ListCoupons(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*coupon.Coupon, int, error) {
	var total int

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM coupons WHERE business_id = $1`, businessID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting coupons: %w", err)
	}

	query := `SELECT ` + selectCouponColumns + `
		FROM coupons c
		JOIN invoices i ON i.id = c.invoice_id
		WHERE c.business_id = $1
		ORDER BY c.created_at DESC, c.id
		LIMIT $2 OFFSET $3`

	rows, err := s.db.QueryContext(ctx, query, businessID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing coupons: %w", err)
	}
	defer rows.Close()

	var coupons []*coupon.Coupon

	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning coupon: %w", err)
		}

		coupons = append(coupons, c)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating coupons: %w", err)
	}

	return coupons, total, nil
}

func (s *Store) GetCoupon(ctx context.Context, businessID, id uuid.UUID) (*coupon.Coupon, error) {
	query := `SELECT ` + selectCouponColumns + `
		FROM coupons c
		JOIN invoices i ON i.id = c.invoice_id
		WHERE c.business_id = $1 AND c.id = $2`

	return s.getOne(ctx, query, businessID, id)
}

func (s *Store) GetByInvoice(ctx context.Context, invoiceID uuid.UUID) (*coupon.Coupon, error) {
	query := `SELECT ` + selectCouponColumns + `
		FROM coupons c
		JOIN invoices i ON i.id = c.invoice_id
		WHERE c.invoice_id = $1`

	return s.getOne(ctx, query, invoiceID)
}

func (s *Store) getOne(ctx context.Context, query string, args ...any) (*coupon.Coupon, error) {
	c, err := scanCoupon(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}

		return nil, fmt.Errorf("getting coupon: %w", err)
	}

	return c, nil
}

// MarkUsed flips an unused coupon to used. A coupon that was used in the
// meantime yields coupon.ErrCouponUsed.
func (s *Store) MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE coupons SET is_used = TRUE, used_at = $1 WHERE id = $2 AND is_used = FALSE`, at, id,
	)
	if err != nil {
		return fmt.Errorf("marking coupon used: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n == 0 {
		return coupon.ErrCouponUsed
	}

	return nil
}

func (s *Store) DeleteCoupon(ctx context.Context, businessID, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM coupons WHERE business_id = $1 AND id = $2 AND is_used = FALSE`, businessID, id,
	)
	if err != nil {
		return fmt.Errorf("deleting coupon: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n > 0 {
		return nil
	}

	var used bool

	err = s.db.QueryRowContext(ctx,
		`SELECT is_used FROM coupons WHERE business_id = $1 AND id = $2`, businessID, id,
	).Scan(&used)
	if errors.Is(err, sql.ErrNoRows) {
		return coupon.ErrNotFound
	}

	if err != nil {
		return fmt.Errorf("checking coupon: %w", err)
	}

	if used {
		return coupon.ErrCouponUsed
	}

	// The row was changed between the two statements; report it as gone.
	return coupon.ErrNotFound
}
