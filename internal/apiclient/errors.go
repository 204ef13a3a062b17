package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/invisifeed/invisifeed/internal/business"
	"github.com/invisifeed/invisifeed/internal/coupon"
	"github.com/invisifeed/invisifeed/internal/http/respond"
	"github.com/invisifeed/invisifeed/internal/invoice"
)

var (
	ErrUnauthorized = errors.New("session expired, sign in again")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")

	errUnexpected = errors.New("unexpected response")
)

// Error is a non-2xx response. It unwraps to the domain error the code maps
// to, so callers can use errors.Is and errors.As as they would server-side.
type Error struct {
	Status int
	Body   respond.ErrorBody
	cause  error
}

func (e *Error) Error() string {
	if e.Body.Error != "" {
		return e.Body.Error
	}

	return fmt.Sprintf("request failed with status %d", e.Status)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func decodeError(resp *http.Response) error {
	e := &Error{Status: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &e.Body); err != nil {
		e.Body.Error = strings.TrimSpace(string(raw))
		e.cause = errUnexpected

		return e
	}

	e.cause = cause(e.Body)

	return e
}

func cause(b respond.ErrorBody) error {
	switch b.Code {
	case respond.CodeLimit:
		return &invoice.LimitError{Limit: b.Limit, ResetsIn: time.Duration(b.ResetsInSeconds) * time.Second}
	case respond.CodeProfile:
		return business.ErrProfileIncomplete
	case respond.CodeFeature:
		return business.ErrFeatureLocked
	case respond.CodeFileTooLarge:
		return invoice.ErrFileTooLarge
	case respond.CodeUnauthorized:
		return ErrUnauthorized
	case respond.CodeNotFound:
		return ErrNotFound
	case respond.CodeConflict:
		return ErrConflict
	case respond.CodeValidation:
		return validation(b.Fields)
	}

	return errUnexpected
}

// validation splits field errors between the coupon draft and the invoice.
func validation(fields []respond.Field) error {
	var (
		inv []invoice.FieldError
		cpn []coupon.FieldError
	)

	for _, f := range fields {
		if name, ok := strings.CutPrefix(f.Field, "coupon."); ok {
			cpn = append(cpn, coupon.FieldError{Field: name, Message: f.Message})
			continue
		}

		inv = append(inv, invoice.FieldError{Field: f.Field, Message: f.Message})
	}

	switch {
	case len(cpn) > 0 && len(inv) == 0:
		return &coupon.ValidationError{Fields: cpn}
	case len(inv) > 0:
		return &invoice.ValidationError{Fields: inv}
	}

	return invoice.ErrInvalidInvoice
}
