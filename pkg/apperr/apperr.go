// Package apperr provides the standardized business-error types used
// throughout Farmlink.
//
// Every failure a service can report carries a Kind, a caller-safe message,
// and — for validation failures — a list of field-level errors. Controllers
// map the Kind to an HTTP status with HTTPStatus; anything that is not an
// *Error is treated as KindInternal and never leaks its details to the
// caller.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a business-rule violation.
type Kind int

const (
	// KindInternal is an unexpected failure. Logged server-side, reported
	// to the caller as a generic message.
	KindInternal Kind = iota
	// KindValidation is malformed or missing input, with field detail.
	KindValidation
	// KindNotFound means a referenced entity is absent.
	KindNotFound
	// KindForbidden means the caller lacks the role or ownership required.
	KindForbidden
	// KindInvalidState means the operation is not permitted in the entity's
	// current state (e.g. reviewing a non-delivered order).
	KindInvalidState
	// KindInsufficientInventory means a requested quantity exceeds stock.
	KindInsufficientInventory
	// KindAlreadyExists means a duplicate operation (double review,
	// duplicate account email).
	KindAlreadyExists
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindInvalidState:
		return "invalid_state"
	case KindInsufficientInventory:
		return "insufficient_inventory"
	case KindAlreadyExists:
		return "already_exists"
	default:
		return "internal"
	}
}

// FieldError is one field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the application error type.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is match two *Error values by Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an *Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error that records cause for logs while exposing only
// message to the caller.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Validation creates a validation error from a field→message map, the shape
// pkg/validate produces.
func Validation(fields map[string]string) *Error {
	e := &Error{Kind: KindValidation, Message: "Validation failed"}
	for f, m := range fields {
		e.Fields = append(e.Fields, FieldError{Field: f, Message: m})
	}
	return e
}

// Internal wraps an unexpected failure.
func Internal(message string, cause error) *Error {
	return Wrap(KindInternal, message, cause)
}

// KindOf extracts the Kind from err, defaulting to KindInternal for
// anything that is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error to the response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindInvalidState, KindInsufficientInventory:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindAlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
