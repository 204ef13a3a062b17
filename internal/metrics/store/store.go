package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/invisifeed/invisifeed/internal/metrics"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Facts loads the invoices and feedback created in [from, to).
func (s *Store) Facts(ctx context.Context, businessID uuid.UUID, from, to time.Time) (*metrics.Facts, error) {
	var facts metrics.Facts

	invRows, err := s.db.QueryContext(ctx, `
		SELECT created_at, CASE WHEN grand_total > 0 THEN grand_total ELSE customer_amount END
		FROM invoices
		WHERE business_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at`,
		businessID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("querying invoice facts: %w", err)
	}
	defer invRows.Close()

	for invRows.Next() {
		var f metrics.InvoiceFact
		if err := invRows.Scan(&f.CreatedAt, &f.Amount); err != nil {
			return nil, fmt.Errorf("scanning invoice fact: %w", err)
		}

		facts.Invoices = append(facts.Invoices, f)
	}

	if err := invRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoice facts: %w", err)
	}

	fbRows, err := s.db.QueryContext(ctx, `
		SELECT created_at, satisfaction, communication, quality, value_for_money, recommend, overall,
			comment, suggestion
		FROM feedbacks
		WHERE business_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at`,
		businessID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("querying feedback facts: %w", err)
	}
	defer fbRows.Close()

	for fbRows.Next() {
		var (
			f metrics.FeedbackFact
			r = &f.Ratings
		)

		if err := fbRows.Scan(
			&f.CreatedAt, &r.Satisfaction, &r.Communication, &r.Quality, &r.ValueForMoney, &r.Recommend, &r.Overall,
			&f.Comment, &f.Suggestion,
		); err != nil {
			return nil, fmt.Errorf("scanning feedback fact: %w", err)
		}

		facts.Feedbacks = append(facts.Feedbacks, f)
	}

	if err := fbRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating feedback facts: %w", err)
	}

	return &facts, nil
}
