package business

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PlanName identifies a subscription tier.
type PlanName string

const (
	PlanFree     PlanName = "free"
	PlanPro      PlanName = "pro"
	PlanProTrial PlanName = "pro-trial"
)

// TrialDuration is how long a one-off pro trial lasts.
const TrialDuration = 7 * 24 * time.Hour

// Plan is the subscription attached to a business.
type Plan struct {
	Name      PlanName
	StartDate *time.Time
	EndDate   *time.Time
}

// IsPro reports whether the plan grants pro features at now. A pro or trial
// plan whose end date has passed counts as free.
func (p Plan) IsPro(now time.Time) bool {
	if p.Name != PlanPro && p.Name != PlanProTrial {
		return false
	}

	return p.EndDate != nil && p.EndDate.After(now)
}

// ProfileStatus tracks whether onboarding was finished.
type ProfileStatus string

const (
	ProfileIncomplete ProfileStatus = "incomplete"
	ProfileCompleted  ProfileStatus = "completed"
	ProfileSkipped    ProfileStatus = "skipped"
)

// Address is a postal address. Country, state and city cascade: changing a
// higher level clears the levels below it.
type Address struct {
	Country      string
	State        string
	City         string
	LocalAddress string
	Pincode      string
}

func (a Address) WithCountry(country string) Address {
	if a.Country == country {
		return a
	}

	a.Country = country
	a.State = ""
	a.City = ""

	return a
}

func (a Address) WithState(state string) Address {
	if a.State == state {
		return a
	}

	a.State = state
	a.City = ""

	return a
}

func (a Address) WithCity(city string) Address {
	a.City = city
	return a
}

func (a Address) Complete() bool {
	return a.Country != "" && a.State != "" && a.City != "" && a.Pincode != ""
}

// String renders the address on a single line for invoice snapshots.
func (a Address) String() string {
	parts := make([]string, 0, 5)

	for _, p := range []string{a.LocalAddress, a.City, a.State, a.Pincode, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	return strings.Join(parts, ", ")
}

type GSTIN struct {
	Number     string
	HolderName string
	Verified   bool
}

// Business is the tenant that owns invoices, coupons and feedback.
type Business struct {
	ID                uuid.UUID
	Username          string
	Email             string
	PasswordHash      string
	BusinessName      string
	PhoneNumber       string
	Address           Address
	GSTIN             GSTIN
	Plan              Plan
	ProfileStatus     ProfileStatus
	ProTrialUsed      bool
	DailyUploadCount  int
	UploadWindowStart *time.Time
	DataVersion       int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ProfileComplete reports whether every field needed on an invoice is filled.
func (b *Business) ProfileComplete() bool {
	return strings.TrimSpace(b.BusinessName) != "" &&
		strings.TrimSpace(b.PhoneNumber) != "" &&
		b.Address.Complete()
}

// Limits holds the plan-tiered daily invoice quota.
type Limits struct {
	FreeDaily int
	ProDaily  int
	Window    time.Duration
}

func DefaultLimits() Limits {
	return Limits{FreeDaily: 3, ProDaily: 10, Window: 24 * time.Hour}
}

// DailyLimit returns how many invoices the plan may create per window.
func (l Limits) DailyLimit(p Plan, now time.Time) int {
	if p.IsPro(now) {
		return l.ProDaily
	}

	return l.FreeDaily
}

// Features lists the plan-gated capabilities.
type Features struct {
	Coupons       bool `json:"coupons"`
	SalesAnalysis bool `json:"sales_analysis"`
	RatingTrends  bool `json:"rating_trends"`
}

func FeaturesFor(p Plan, now time.Time) Features {
	pro := p.IsPro(now)

	return Features{
		Coupons:       pro,
		SalesAnalysis: pro,
		RatingTrends:  pro,
	}
}
