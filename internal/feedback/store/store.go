package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/invisifeed/invisifeed/internal/feedback"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetForm(ctx context.Context, token string) (*feedback.Form, error) {
	query := `
		SELECT i.id, i.business_id, i.business_name, i.invoice_number,
			COALESCE(c.description, ''),
			EXISTS (SELECT 1 FROM feedbacks f WHERE f.invoice_id = i.id)
		FROM invoices i
		LEFT JOIN coupons c ON c.invoice_id = i.id
		WHERE i.feedback_token = $1
	`

	var f feedback.Form

	err := s.db.QueryRowContext(ctx, query, token).Scan(
		&f.InvoiceID, &f.BusinessID, &f.BusinessName, &f.InvoiceNumber, &f.CouponTeaser, &f.Submitted,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, feedback.ErrNotFound
		}

		return nil, fmt.Errorf("getting feedback form: %w", err)
	}

	return &f, nil
}

func (s *Store) CreateFeedback(ctx context.Context, f *feedback.Feedback) error {
	query := `
		INSERT INTO feedbacks (
			business_id, invoice_id, satisfaction, communication, quality,
			value_for_money, recommend, overall, comment, suggestion, anonymous
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`

	r := f.Ratings

	err := s.db.QueryRowContext(ctx, query,
		f.BusinessID, f.InvoiceID, r.Satisfaction, r.Communication, r.Quality,
		r.ValueForMoney, r.Recommend, r.Overall, f.Comment, f.Suggestion, f.Anonymous,
	).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return feedback.ErrAlreadySubmitted
		}

		return fmt.Errorf("creating feedback: %w", err)
	}

	return nil
}
