// Package apierror provides the error taxonomy shared by services and handlers,
// plus the standardized response envelopes for the API. All errors returned to
// clients go through this package to ensure consistency and to prevent leaking
// internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"net/http"
)

// Kind classifies a service error for HTTP mapping and caller retry decisions.
type Kind int

const (
	KindInternal Kind = iota
	// KindValidation — malformed or out-of-range input. Rejected before any
	// transaction opens; nothing was mutated.
	KindValidation
	// KindNotFound — unknown customer, product, variation or order.
	KindNotFound
	// KindInsufficientStock — a decrement would take stock below zero.
	// Reported distinctly so callers can partially fulfill or reject.
	KindInsufficientStock
	// KindConflict — concurrent modification detected by the store. Retryable:
	// the caller should retry the entire logical operation from scratch.
	KindConflict
	// KindGateway — payment provider unreachable or declined. Zero ledger effect.
	KindGateway
)

// Error is the canonical service-layer error. It wraps an optional cause so
// errors.Is / errors.As keep working across layers.
type Error struct {
	Kind   Kind
	Detail string
	cause  error
}

func (e *Error) Error() string { return e.Detail }
func (e *Error) Unwrap() error { return e.cause }

func Validation(detail string) *Error { return &Error{Kind: KindValidation, Detail: detail} }
func NotFound(detail string) *Error   { return &Error{Kind: KindNotFound, Detail: detail} }
func InsufficientStock(detail string) *Error {
	return &Error{Kind: KindInsufficientStock, Detail: detail}
}
func Conflict(detail string) *Error { return &Error{Kind: KindConflict, Detail: detail} }
func Gateway(detail string) *Error  { return &Error{Kind: KindGateway, Detail: detail} }
func Internal(detail string) *Error { return &Error{Kind: KindInternal, Detail: detail} }

// Wrap attaches a cause to a taxonomy error.
func Wrap(kind Kind, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, cause: cause}
}

// KindOf extracts the taxonomy kind from any error chain.
// Unknown errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsRetryable reports whether the caller may retry the whole operation.
func IsRetryable(err error) bool { return KindOf(err) == KindConflict }

// HTTPStatus maps an error kind to the status code handlers should return.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindInsufficientStock, KindConflict:
		return http.StatusConflict
	case KindGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail    string `json:"detail"`
	Retryable bool   `json:"retryable,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// FromError builds the response envelope for a service error.
func FromError(err error) *APIError {
	return &APIError{Detail: err.Error(), Retryable: IsRetryable(err)}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation error", Fields: fields}
}
