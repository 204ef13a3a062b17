package coupon

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxExpiryDays caps how long a coupon stays valid after its invoice date.
const MaxExpiryDays = 365

var (
	ErrNotFound      = errors.New("coupon not found")
	ErrCouponUsed    = errors.New("coupon has already been used")
	ErrCouponExpired = errors.New("coupon has expired")
	ErrCodeMismatch  = errors.New("coupon code does not match")
	ErrInvalidDraft  = errors.New("invalid coupon")
)

type Coupon struct {
	ID            uuid.UUID
	BusinessID    uuid.UUID
	InvoiceID     uuid.UUID
	InvoiceNumber string
	Code          string
	Description   string
	ExpiryDays    int
	ExpiryDate    time.Time
	IsUsed        bool
	UsedAt        *time.Time
	CreatedAt     time.Time
}

func (c *Coupon) Expired(now time.Time) bool {
	return !now.Before(c.ExpiryDate)
}

// Draft is a coupon as typed into the invoice form, before the invoice exists.
type Draft struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	ExpiryDays  string `json:"expiry_days"`
}

var upper = cases.Upper(language.Und)

// Normalize trims the draft, uppercases the code and caps a numeric expiry
// at MaxExpiryDays.
func (d Draft) Normalize() Draft {
	d.Code = upper.String(strings.TrimSpace(d.Code))
	d.Description = strings.TrimSpace(d.Description)
	d.ExpiryDays = strings.TrimSpace(d.ExpiryDays)

	if n, err := strconv.Atoi(d.ExpiryDays); err == nil && n > MaxExpiryDays {
		d.ExpiryDays = strconv.Itoa(MaxExpiryDays)
	}

	return d
}

// Empty reports whether nothing was typed into the draft.
func (d Draft) Empty() bool {
	return strings.TrimSpace(d.Code) == "" &&
		strings.TrimSpace(d.Description) == "" &&
		strings.TrimSpace(d.ExpiryDays) == ""
}

// FieldError names a draft field that failed validation.
type FieldError struct {
	Field   string
	Message string
}

type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}

	return "invalid coupon: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidDraft
}

// Validate requires code, description and a positive whole number of expiry
// days no larger than MaxExpiryDays.
func (d Draft) Validate() error {
	var fields []FieldError

	if strings.TrimSpace(d.Code) == "" {
		fields = append(fields, FieldError{Field: "code", Message: "is required"})
	}

	if strings.TrimSpace(d.Description) == "" {
		fields = append(fields, FieldError{Field: "description", Message: "is required"})
	}

	if days := strings.TrimSpace(d.ExpiryDays); days == "" {
		fields = append(fields, FieldError{Field: "expiry_days", Message: "is required"})
	} else if n, err := strconv.Atoi(days); err != nil || n <= 0 {
		fields = append(fields, FieldError{Field: "expiry_days", Message: "must be a positive whole number"})
	} else if n > MaxExpiryDays {
		fields = append(fields, FieldError{Field: "expiry_days", Message: fmt.Sprintf("cannot exceed %d", MaxExpiryDays)})
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	return nil
}

// Build turns a validated draft into the coupon stored with an invoice. The
// stored code carries a random suffix so it cannot be guessed from the draft.
func (d Draft) Build(businessID uuid.UUID, invoiceDate time.Time) (*Coupon, error) {
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}

	days, _ := strconv.Atoi(d.ExpiryDays)

	return &Coupon{
		BusinessID:  businessID,
		Code:        Secure(d.Code),
		Description: d.Description,
		ExpiryDays:  days,
		ExpiryDate:  invoiceDate.AddDate(0, 0, days),
	}, nil
}

const suffixLength = 4

// Secure appends a dash and a random uppercase alphanumeric suffix.
func Secure(code string) string {
	return code + "-" + rand.Text()[:suffixLength]
}

// SameCode compares a presented code with a stored one, ignoring case and
// surrounding space.
func SameCode(presented, stored string) bool {
	return upper.String(strings.TrimSpace(presented)) == stored
}
