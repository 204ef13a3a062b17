// Package session holds the client's view of the signed-in business. The
// snapshot is a value; changes arrive as Update intents and are merged by
// Reduce so every screen sees the same state.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/invisifeed/invisifeed/internal/business"
)

type Snapshot struct {
	Token            string
	ExpiresAt        time.Time
	BusinessID       uuid.UUID
	Username         string
	Email            string
	BusinessName     string
	PhoneNumber      string
	Address          business.Address
	GSTIN            business.GSTIN
	Plan             business.Plan
	ProfileStatus    business.ProfileStatus
	ProTrialUsed     bool
	DailyUploadCount int
	DailyLimit       int
}

func (s Snapshot) SignedIn() bool {
	return s.Token != ""
}

func (s Snapshot) IsPro(now time.Time) bool {
	return s.Plan.IsPro(now)
}

func (s Snapshot) ProfileCompleted() bool {
	return s.ProfileStatus == business.ProfileCompleted
}

func (s Snapshot) Features(now time.Time) business.Features {
	return business.FeaturesFor(s.Plan, now)
}

// LimitReached is the client's advisory view of the quota; the server decides.
func (s Snapshot) LimitReached() bool {
	return s.DailyLimit > 0 && s.DailyUploadCount >= s.DailyLimit
}

// Update is an intent to change the snapshot.
type Update interface {
	apply(Snapshot) Snapshot
}

// SignedIn replaces the whole snapshot after a login.
type SignedIn struct {
	Snapshot Snapshot
}

func (u SignedIn) apply(Snapshot) Snapshot {
	return u.Snapshot
}

type SignedOut struct{}

func (SignedOut) apply(Snapshot) Snapshot {
	return Snapshot{}
}

// Refreshed carries a freshly loaded profile. The token is kept.
type Refreshed struct {
	Snapshot Snapshot
}

func (u Refreshed) apply(s Snapshot) Snapshot {
	next := u.Snapshot
	next.Token = s.Token
	next.ExpiresAt = s.ExpiresAt

	return next
}

type ProfileChanged struct {
	BusinessName  string
	PhoneNumber   string
	Address       business.Address
	ProfileStatus business.ProfileStatus
}

func (u ProfileChanged) apply(s Snapshot) Snapshot {
	s.BusinessName = u.BusinessName
	s.PhoneNumber = u.PhoneNumber
	s.Address = u.Address
	s.ProfileStatus = u.ProfileStatus

	return s
}

type GSTINChanged struct {
	GSTIN business.GSTIN
}

func (u GSTINChanged) apply(s Snapshot) Snapshot {
	s.GSTIN = u.GSTIN
	return s
}

// PlanChanged also moves the daily limit, which follows the plan tier.
type PlanChanged struct {
	Plan         business.Plan
	ProTrialUsed bool
	DailyLimit   int
}

func (u PlanChanged) apply(s Snapshot) Snapshot {
	s.Plan = u.Plan
	s.ProTrialUsed = s.ProTrialUsed || u.ProTrialUsed

	if u.DailyLimit > 0 {
		s.DailyLimit = u.DailyLimit
	}

	return s
}

// CounterChanged reports the server's counter after an upload or reset.
type CounterChanged struct {
	Count int
	Limit int
}

func (u CounterChanged) apply(s Snapshot) Snapshot {
	s.DailyUploadCount = u.Count

	if u.Limit > 0 {
		s.DailyLimit = u.Limit
	}

	return s
}

// Reduce applies updates in order. Nil updates are skipped.
func Reduce(s Snapshot, updates ...Update) Snapshot {
	for _, u := range updates {
		if u == nil {
			continue
		}

		s = u.apply(s)
	}

	return s
}
