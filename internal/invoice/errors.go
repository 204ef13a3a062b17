package invoice

import (
	"errors"
	"strings"
)

var (
	ErrNotFound        = errors.New("invoice not found")
	ErrDuplicateNumber = errors.New("an invoice with this number already exists")
	ErrFileTooLarge    = errors.New("file exceeds the 3MB upload limit")
	ErrNotPDF          = errors.New("only PDF files can be uploaded")
	ErrInvalidInvoice  = errors.New("invalid invoice")
)

type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists the fields that blocked an invoice; it matches ErrInvalidInvoice.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}

	return "invalid invoice: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInvoice
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}
