// Package respond writes JSON bodies and maps domain errors to HTTP statuses.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/invisifeed/invisifeed/internal/business"
	"github.com/invisifeed/invisifeed/internal/coupon"
	"github.com/invisifeed/invisifeed/internal/delivery"
	"github.com/invisifeed/invisifeed/internal/feedback"
	"github.com/invisifeed/invisifeed/internal/invoice"
	"github.com/invisifeed/invisifeed/internal/metrics"
)

// Error codes carried in the "code" field of every error body.
const (
	CodeValidation   = "validation_failed"
	CodeLimit        = "limit_reached"
	CodeProfile      = "profile_incomplete"
	CodeFeature      = "feature_locked"
	CodeFileTooLarge = "file_too_large"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeUnauthorized = "unauthorized"
	CodeBadRequest   = "bad_request"
	CodeUnavailable  = "unavailable"
	CodeInternal     = "internal"
)

// Field is one invalid request field.
type Field struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ErrorBody struct {
	Error           string  `json:"error"`
	Code            string  `json:"code"`
	Fields          []Field `json:"fields,omitempty"`
	Limit           int     `json:"limit,omitempty"`
	ResetsInSeconds int64   `json:"resets_in_seconds,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func Fail(w http.ResponseWriter, status int, code, msg string) {
	JSON(w, status, ErrorBody{Error: msg, Code: code})
}

func Invalid(w http.ResponseWriter, msg string, fields []Field) {
	JSON(w, http.StatusBadRequest, ErrorBody{Error: msg, Code: CodeValidation, Fields: fields})
}

// Error classifies err and writes the matching status and body. Unknown
// errors are logged and reported as internal without their message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status, body := Classify(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	JSON(w, status, body)
}

func Classify(err error) (int, ErrorBody) {
	var limitErr *invoice.LimitError
	if errors.As(err, &limitErr) {
		return http.StatusTooManyRequests, ErrorBody{
			Error:           limitErr.Error(),
			Code:            CodeLimit,
			Limit:           limitErr.Limit,
			ResetsInSeconds: int64(limitErr.ResetsIn.Seconds()),
		}
	}

	var invErr *invoice.ValidationError
	if errors.As(err, &invErr) {
		fields := make([]Field, len(invErr.Fields))
		for i, f := range invErr.Fields {
			fields[i] = Field{Field: f.Field, Message: f.Message}
		}

		return http.StatusBadRequest, ErrorBody{Error: "Invoice validation failed", Code: CodeValidation, Fields: fields}
	}

	var couponErr *coupon.ValidationError
	if errors.As(err, &couponErr) {
		fields := make([]Field, len(couponErr.Fields))
		for i, f := range couponErr.Fields {
			fields[i] = Field{Field: "coupon." + f.Field, Message: f.Message}
		}

		return http.StatusBadRequest, ErrorBody{Error: "Coupon validation failed", Code: CodeValidation, Fields: fields}
	}

	switch {
	case errors.Is(err, business.ErrProfileIncomplete):
		return http.StatusForbidden, ErrorBody{Error: err.Error(), Code: CodeProfile}
	case errors.Is(err, business.ErrFeatureLocked):
		return http.StatusForbidden, ErrorBody{Error: err.Error(), Code: CodeFeature}
	case errors.Is(err, business.ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrorBody{Error: err.Error(), Code: CodeUnauthorized}
	case errors.Is(err, invoice.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, ErrorBody{Error: err.Error(), Code: CodeFileTooLarge}
	case errors.Is(err, invoice.ErrNotPDF),
		errors.Is(err, business.ErrInvalidInput),
		errors.Is(err, business.ErrGSTINUnverified),
		errors.Is(err, feedback.ErrInvalid),
		errors.Is(err, metrics.ErrInvalidSelection),
		errors.Is(err, metrics.ErrAmbiguousSelection),
		errors.Is(err, delivery.ErrNoRecipient),
		errors.Is(err, delivery.ErrNoDocument):
		return http.StatusBadRequest, ErrorBody{Error: err.Error(), Code: CodeValidation}
	case errors.Is(err, business.ErrNotFound),
		errors.Is(err, invoice.ErrNotFound),
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, feedback.ErrNotFound):
		return http.StatusNotFound, ErrorBody{Error: err.Error(), Code: CodeNotFound}
	case errors.Is(err, business.ErrUsernameTaken),
		errors.Is(err, business.ErrEmailTaken),
		errors.Is(err, business.ErrTrialUsed),
		errors.Is(err, business.ErrAlreadyPro),
		errors.Is(err, invoice.ErrDuplicateNumber),
		errors.Is(err, coupon.ErrCouponUsed),
		errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrCodeMismatch),
		errors.Is(err, feedback.ErrAlreadySubmitted):
		return http.StatusConflict, ErrorBody{Error: err.Error(), Code: CodeConflict}
	case errors.Is(err, delivery.ErrDisabled):
		return http.StatusServiceUnavailable, ErrorBody{Error: err.Error(), Code: CodeUnavailable}
	}

	return http.StatusInternalServerError, ErrorBody{Error: "internal error", Code: CodeInternal}
}
