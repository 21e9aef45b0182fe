package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorKind is the closed set of outcomes a gift operation can fail
// with. Every call site switches over these instead of probing error
// shapes.
type ErrorKind int

const (
	KindUnauthenticated ErrorKind = iota + 1
	KindForbidden
	KindValidationFailed
	KindNotFound
	KindStorageFailure
	KindPersistenceFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindValidationFailed:
		return "validation_failed"
	case KindNotFound:
		return "not_found"
	case KindStorageFailure:
		return "storage_failure"
	case KindPersistenceFailure:
		return "persistence_failure"
	default:
		return "unknown"
	}
}

// HTTPStatus maps a kind onto the status the route contract promises.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindValidationFailed:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a tagged domain error. Message is safe to return to the
// caller; Err carries the wrapped cause for logs.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a bare domain error.
func E(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a domain error around an infrastructure cause.
func Wrap(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind of err, or 0 when err is not a domain error.
func KindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

// respondError terminates a request with the status and message the
// error taxonomy prescribes. Anything outside the taxonomy is logged
// and hidden behind a generic 500.
func respondError(c *gin.Context, err error) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Kind.HTTPStatus() >= http.StatusInternalServerError {
			slog.Error("Request failed", slog.String("kind", apiErr.Kind.String()), slog.Any("error", err))
		}
		c.JSON(apiErr.Kind.HTTPStatus(), gin.H{"message": apiErr.Message})
		return
	}
	slog.Error("Request failed with untyped error", slog.Any("error", err))
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
}
