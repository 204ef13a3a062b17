package feedback

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("feedback link not found")
	ErrAlreadySubmitted = errors.New("feedback has already been submitted for this invoice")
	ErrInvalid          = errors.New("invalid feedback")
)

// Category names one rated aspect of the service.
type Category string

const (
	Satisfaction  Category = "satisfaction"
	Communication Category = "communication"
	Quality       Category = "quality"
	ValueForMoney Category = "value_for_money"
	Recommend     Category = "recommend"
	Overall       Category = "overall"
)

var Categories = []Category{Satisfaction, Communication, Quality, ValueForMoney, Recommend, Overall}

const (
	MinRating = 1
	MaxRating = 5

	maxTextLength = 2000
)

type Ratings struct {
	Satisfaction  int
	Communication int
	Quality       int
	ValueForMoney int
	Recommend     int
	Overall       int
}

func (r Ratings) Get(c Category) int {
	switch c {
	case Satisfaction:
		return r.Satisfaction
	case Communication:
		return r.Communication
	case Quality:
		return r.Quality
	case ValueForMoney:
		return r.ValueForMoney
	case Recommend:
		return r.Recommend
	case Overall:
		return r.Overall
	}

	return 0
}

type Feedback struct {
	ID         uuid.UUID
	BusinessID uuid.UUID
	InvoiceID  uuid.UUID
	Ratings    Ratings
	Comment    string
	Suggestion string
	Anonymous  bool
	CreatedAt  time.Time
}

// Form is what an end customer sees when opening a feedback link.
type Form struct {
	InvoiceID     uuid.UUID
	BusinessID    uuid.UUID
	BusinessName  string
	InvoiceNumber string
	// CouponTeaser describes the reward unlocked by submitting; empty when
	// the invoice carries no coupon.
	CouponTeaser string
	Submitted    bool
}
