// Package errors defines the application error type and the sentinel
// categories the HTTP layer maps onto status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the common failure categories.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrConflict      = errors.New("conflict")
	ErrInternal      = errors.New("internal error")
)

// AppError is a structured application error carrying an HTTP status
// mapping. Err holds the sentinel (or the wrapped cause for internal
// errors), so errors.Is keeps working through an AppError.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(code, message string, status int, cause error) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Err: cause}
}

// NotFound creates a 404 error for the named resource.
func NotFound(resource, id string) *AppError {
	return newAppError("NOT_FOUND",
		fmt.Sprintf("%s with id %s not found", resource, id),
		http.StatusNotFound, ErrNotFound)
}

// AlreadyExists creates a 409 error for a uniqueness violation.
func AlreadyExists(resource, field, value string) *AppError {
	return newAppError("ALREADY_EXISTS",
		fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		http.StatusConflict, ErrAlreadyExists)
}

// InvalidInput creates a 400 error with the given message.
func InvalidInput(message string) *AppError {
	return newAppError("INVALID_INPUT", message, http.StatusBadRequest, ErrInvalidInput)
}

// Conflict creates a 409 error with a custom message.
func Conflict(message string) *AppError {
	return newAppError("CONFLICT", message, http.StatusConflict, ErrConflict)
}

// Internal creates a 500 error wrapping the underlying cause. The cause is
// never exposed in the message.
func Internal(err error) *AppError {
	return newAppError("INTERNAL_ERROR", "an internal error occurred", http.StatusInternalServerError, err)
}

// Wrap adds context to an error while preserving its identity for errors.Is.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error: the
// AppError's own status when it is one, the sentinel mapping otherwise, and
// 500 for anything unrecognized.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
