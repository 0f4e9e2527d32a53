package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound            = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden           = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized        = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict            = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation          = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal            = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss           = New("CACHE_MISS", http.StatusNotFound, "cache miss")
	ErrRateLimited         = New("RATE_LIMITED", http.StatusTooManyRequests, "too many requests")
	ErrNoFieldsToUpdate    = New("NO_FIELDS_TO_UPDATE", http.StatusBadRequest, "no fields to update")
	ErrExportFailure       = New("EXPORT_FAILED", http.StatusInternalServerError, "report export failed")
	ErrEmailDelivery       = New("EMAIL_DELIVERY_FAILED", http.StatusBadGateway, "report email delivery failed")
	ErrNotFoundOrForbidden = New("NOT_FOUND", http.StatusNotFound, "scheduled report not found or access denied")
	ErrTimeout             = New("TIMEOUT", http.StatusGatewayTimeout, "operation timed out")
)

// FromError normalises any error into an *Error. Deadline overruns map to ErrTimeout.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(err, ErrTimeout.Code, ErrTimeout.Status, ErrTimeout.Message)
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// HasCode reports whether err normalises to an *Error carrying code.
func HasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	return FromError(err).Code == code
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
