// Package intake is the client-side invoice intake flow. A Model is a value;
// Controller methods take the current Model and return the next one, so a
// rejected step leaves the caller's Model untouched.
package intake

import (
	"time"

	"github.com/invisifeed/invisifeed/internal/coupon"
	"github.com/invisifeed/invisifeed/internal/invoice"
)

// State is one of Idle, Uploading, Submitting, Success or Failed.
type State interface {
	state()
}

type Idle struct{}

// Uploading means the file passed local checks and the upload request may be sent.
type Uploading struct {
	File File
}

// Submitting means the form passed local checks and the create request may be sent.
type Submitting struct {
	Form Form
}

type Success struct {
	Result invoice.ProcessResult
}

type Failed struct {
	Failure Failure
}

func (Idle) state()       {}
func (Uploading) state()  {}
func (Submitting) state() {}
func (Success) state()    {}
func (Failed) state()     {}

type FailureKind int

const (
	// FailureValidation blocked the request before it was sent.
	FailureValidation FailureKind = iota
	FailureLimit
	FailureProfile
	FailureLocked
	FailureServer
)

type Failure struct {
	Kind    FailureKind
	Message string
	Fields  []invoice.FieldError
	// ResetsIn is set for limit failures reported by the server.
	ResetsIn time.Duration
}

type File struct {
	Name string
	Data []byte
}

func (f File) Size() int64 {
	return int64(len(f.Data))
}

type CouponStatus int

const (
	CouponNone CouponStatus = iota
	CouponEditing
	CouponSaved
)

// CouponDraft is the optional coupon held until an invoice request succeeds.
type CouponDraft struct {
	Status CouponStatus
	Draft  coupon.Draft
	Errors []coupon.FieldError
}

type Model struct {
	State  State
	File   *File
	Coupon CouponDraft
	// EmailSent disables resending the current result.
	EmailSent bool
	// SendingEmail is set while an e-mail request is outstanding.
	SendingEmail  bool
	UpgradePrompt bool
	ProfilePrompt bool
}

func New() Model {
	return Model{State: Idle{}}
}

// InFlight reports whether a request is outstanding.
func (m Model) InFlight() bool {
	switch m.State.(type) {
	case Uploading, Submitting:
		return true
	}

	return false
}

func (m Model) Result() (invoice.ProcessResult, bool) {
	s, ok := m.State.(Success)
	return s.Result, ok
}

func (m Model) Failure() (Failure, bool) {
	f, ok := m.State.(Failed)
	return f.Failure, ok
}
