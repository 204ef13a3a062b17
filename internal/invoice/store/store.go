package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/invisifeed/invisifeed/internal/coupon"
	"github.com/invisifeed/invisifeed/internal/database"
	"github.com/invisifeed/invisifeed/internal/invoice"
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

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const selectInvoiceColumns = `
	id, business_id, invoice_number, source, is_sample, invoice_date, due_date, payment_terms,
	business_name, business_email, business_phone, business_address,
	customer_name, customer_email, customer_phone, customer_address, customer_amount,
	subtotal, discount_total, tax_total, grand_total,
	bank_details, payment_method, payment_instructions, notes,
	pdf_key, pdf_url, feedback_token, feedback_url, created_at
`

func scanInvoice(s scanner) (*invoice.Invoice, error) {
	var (
		inv    invoice.Invoice
		source string
	)

	if err := s.Scan(
		&inv.ID, &inv.BusinessID, &inv.Number, &source, &inv.IsSample, &inv.InvoiceDate, &inv.DueDate, &inv.PaymentTerms,
		&inv.Business.Name, &inv.Business.Email, &inv.Business.Phone, &inv.Business.Address,
		&inv.Customer.Name, &inv.Customer.Email, &inv.Customer.Phone, &inv.Customer.Address, &inv.CustomerAmount,
		&inv.Totals.Subtotal, &inv.Totals.Discount, &inv.Totals.Tax, &inv.Totals.GrandTotal,
		&inv.Payment.BankDetails, &inv.Payment.Method, &inv.Payment.Instructions, &inv.Notes,
		&inv.PDFKey, &inv.PDFURL, &inv.FeedbackToken, &inv.FeedbackURL, &inv.CreatedAt,
	); err != nil {
		return nil, err
	}

	inv.Source = invoice.Source(source)

	return &inv, nil
}

type createTx struct {
	tx         *sql.Tx
	businessID uuid.UUID
}

// BeginCreate opens a transaction holding the business's advisory lock so
// concurrent creations see each other's counter updates.
func (s *Store) BeginCreate(ctx context.Context, businessID uuid.UUID) (invoice.CreateTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning create tx: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", database.BusinessLockKey(businessID)); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring business lock: %w", err)
	}

	return &createTx{tx: dbTx, businessID: businessID}, nil
}

func (c *createTx) Commit() error   { return c.tx.Commit() }
func (c *createTx) Rollback() error { return c.tx.Rollback() }

func (c *createTx) Counter(ctx context.Context) (int, *time.Time, error) {
	var (
		count int
		start *time.Time
	)

	err := c.tx.QueryRowContext(ctx,
		`SELECT daily_upload_count, upload_window_start FROM businesses WHERE id = $1`, c.businessID,
	).Scan(&count, &start)
	if err != nil {
		return 0, nil, err
	}

	return count, start, nil
}

func (c *createTx) NumberExists(ctx context.Context, number string) (bool, error) {
	return numberExists(ctx, c.tx, c.businessID, number)
}

func (c *createTx) UpdateCounter(ctx context.Context, count int, windowStart time.Time) error {
	_, err := c.tx.ExecContext(ctx,
		`UPDATE businesses SET daily_upload_count = $1, upload_window_start = $2, updated_at = NOW() WHERE id = $3`,
		count, windowStart, c.businessID,
	)

	return err
}

func (c *createTx) InsertInvoice(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		INSERT INTO invoices (
			business_id, invoice_number, source, is_sample, invoice_date, due_date, payment_terms,
			business_name, business_email, business_phone, business_address,
			customer_name, customer_email, customer_phone, customer_address, customer_amount,
			subtotal, discount_total, tax_total, grand_total,
			bank_details, payment_method, payment_instructions, notes,
			pdf_key, pdf_url, feedback_token, feedback_url
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)
		RETURNING id, created_at
	`

	err := c.tx.QueryRowContext(ctx, query,
		inv.BusinessID, inv.Number, inv.Source, inv.IsSample, inv.InvoiceDate, inv.DueDate, inv.PaymentTerms,
		inv.Business.Name, inv.Business.Email, inv.Business.Phone, inv.Business.Address,
		inv.Customer.Name, inv.Customer.Email, inv.Customer.Phone, inv.Customer.Address, inv.CustomerAmount,
		inv.Totals.Subtotal, inv.Totals.Discount, inv.Totals.Tax, inv.Totals.GrandTotal,
		inv.Payment.BankDetails, inv.Payment.Method, inv.Payment.Instructions, inv.Notes,
		inv.PDFKey, inv.PDFURL, inv.FeedbackToken, inv.FeedbackURL,
	).Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return invoice.ErrDuplicateNumber
		}

		return fmt.Errorf("inserting invoice: %w", err)
	}

	for i, it := range inv.Items {
		_, err := c.tx.ExecContext(ctx, `
			INSERT INTO invoice_items (invoice_id, position, description, quantity, rate, discount, tax)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			inv.ID, i, it.Description, it.Quantity, it.Rate, it.Discount, it.Tax,
		)
		if err != nil {
			return fmt.Errorf("inserting item %d: %w", i, err)
		}
	}

	if inv.Coupon != nil {
		cp := inv.Coupon
		cp.InvoiceID = inv.ID
		cp.InvoiceNumber = inv.Number

		err := c.tx.QueryRowContext(ctx, `
			INSERT INTO coupons (business_id, invoice_id, code, description, expiry_days, expiry_date)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at`,
			cp.BusinessID, cp.InvoiceID, cp.Code, cp.Description, cp.ExpiryDays, cp.ExpiryDate,
		).Scan(&cp.ID, &cp.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting coupon: %w", err)
		}
	}

	return nil
}

func (s *Store) NumberExists(ctx context.Context, businessID uuid.UUID, number string) (bool, error) {
	return numberExists(ctx, s.db, businessID, number)
}

func numberExists(ctx context.Context, q querier, businessID uuid.UUID, number string) (bool, error) {
	var exists bool

	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM invoices WHERE business_id = $1 AND invoice_number = $2)`,
		businessID, number,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking invoice number: %w", err)
	}

	return exists, nil
}

func (s *Store) ListInvoices(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*invoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + `
		FROM invoices
		WHERE business_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	rows, err := s.db.QueryContext(ctx, query, businessID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*invoice.Invoice

	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning invoice: %w", err)
		}

		invoices = append(invoices, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoices: %w", err)
	}

	return invoices, nil
}

// GetInvoice loads an invoice with its items and coupon.
func (s *Store) GetInvoice(ctx context.Context, businessID uuid.UUID, number string) (*invoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + ` FROM invoices WHERE business_id = $1 AND invoice_number = $2`

	inv, err := scanInvoice(s.db.QueryRowContext(ctx, query, businessID, number))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invoice.ErrNotFound
		}

		return nil, fmt.Errorf("getting invoice: %w", err)
	}

	if inv.Items, err = s.items(ctx, inv.ID); err != nil {
		return nil, err
	}

	if len(inv.Items) > 0 {
		inv.Recalculate()
		inv.CustomerAmount = inv.Totals.GrandTotal
	}

	if inv.Coupon, err = s.coupon(ctx, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

func (s *Store) items(ctx context.Context, invoiceID uuid.UUID) ([]invoice.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT description, quantity, rate, discount, tax
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY position`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []invoice.Item

	for rows.Next() {
		var it invoice.Item
		if err := rows.Scan(&it.Description, &it.Quantity, &it.Rate, &it.Discount, &it.Tax); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}

		items = append(items, it)
	}

	return items, rows.Err()
}

func (s *Store) coupon(ctx context.Context, inv *invoice.Invoice) (*coupon.Coupon, error) {
	c := coupon.Coupon{BusinessID: inv.BusinessID, InvoiceID: inv.ID, InvoiceNumber: inv.Number}

	err := s.db.QueryRowContext(ctx, `
		SELECT id, code, description, expiry_days, expiry_date, is_used, used_at, created_at
		FROM coupons
		WHERE invoice_id = $1`, inv.ID,
	).Scan(&c.ID, &c.Code, &c.Description, &c.ExpiryDays, &c.ExpiryDate, &c.IsUsed, &c.UsedAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("getting invoice coupon: %w", err)
	}

	return &c, nil
}

// Reset removes all invoice data for the business and zeroes its counter in a
// single transaction. It returns the storage keys of the deleted PDFs.
func (s *Store) Reset(ctx context.Context, businessID uuid.UUID) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning reset tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", database.BusinessLockKey(businessID)); err != nil {
		return nil, fmt.Errorf("acquiring business lock: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT pdf_key FROM invoices WHERE business_id = $1 AND pdf_key <> ''`, businessID)
	if err != nil {
		return nil, fmt.Errorf("listing pdf keys: %w", err)
	}

	var keys []string

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning pdf key: %w", err)
		}

		keys = append(keys, key)
	}

	rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pdf keys: %w", err)
	}

	for _, stmt := range []string{
		`DELETE FROM feedbacks WHERE business_id = $1`,
		`DELETE FROM coupons WHERE business_id = $1`,
		`DELETE FROM invoices WHERE business_id = $1`,
		`UPDATE businesses SET daily_upload_count = 0, upload_window_start = NULL, data_version = data_version + 1, updated_at = NOW() WHERE id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, businessID); err != nil {
			return nil, fmt.Errorf("resetting business data: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reset: %w", err)
	}

	return keys, nil
}
