// Package response writes the JSON envelope every Farmlink endpoint uses:
// a success flag, an optional message, payload keys at the top level, and
// — for validation failures — a list of field-level errors.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"farmlink/pkg/apperr"
	"farmlink/pkg/logger"
)

// M is a free-form payload merged into the envelope at the top level.
type M map[string]interface{}

func write(w http.ResponseWriter, status int, body M) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

func envelope(success bool, message string, payload M) M {
	body := M{"success": success}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	return body
}

// OK sends a 200 with payload keys merged into the envelope.
func OK(w http.ResponseWriter, payload M) {
	write(w, http.StatusOK, envelope(true, "", payload))
}

// OKMessage sends a 200 with a message and payload.
func OKMessage(w http.ResponseWriter, message string, payload M) {
	write(w, http.StatusOK, envelope(true, message, payload))
}

// Created sends a 201 with a message and payload.
func Created(w http.ResponseWriter, message string, payload M) {
	write(w, http.StatusCreated, envelope(true, message, payload))
}

// Error sends a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, envelope(false, message, nil))
}

// ValidationFailed sends a 400 with the field-level error list.
func ValidationFailed(w http.ResponseWriter, errs map[string]string) {
	fields := make([]apperr.FieldError, 0, len(errs))
	for f, m := range errs {
		fields = append(fields, apperr.FieldError{Field: f, Message: m})
	}
	write(w, http.StatusBadRequest, envelope(false, "Validation failed", M{"errors": fields}))
}

// FromError maps a service error onto the wire. Internal errors are logged
// with their cause and reported to the caller as a generic message;
// business errors pass their message (and field errors) through.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)

	var e *apperr.Error
	if errors.As(err, &e) && e.Kind != apperr.KindInternal {
		body := envelope(false, e.Message, nil)
		if len(e.Fields) > 0 {
			body["errors"] = e.Fields
		}
		write(w, status, body)
		return
	}

	logger.WithCtx(r.Context()).Error("internal error",
		"error", err.Error(),
		"method", r.Method,
		"path", r.URL.Path,
	)
	write(w, status, envelope(false, "Server error", nil))
}

// Unauthorized sends a 401.
func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Unauthorized"
	}
	Error(w, http.StatusUnauthorized, message)
}

// Forbidden sends a 403.
func Forbidden(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Forbidden"
	}
	Error(w, http.StatusForbidden, message)
}

// NotFound sends a 404.
func NotFound(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Not found"
	}
	Error(w, http.StatusNotFound, message)
}
