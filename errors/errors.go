// Package errors provides error handling for the Sakura scheduler.
//
// It re-exports github.com/cockroachdb/errors so every package wraps, annotates
// and inspects errors the same way:
//
//	if err := store.Release(ctx, id); err != nil {
//	    return errors.Wrap(err, "failed to release job")
//	}
//
// The sentinel errors below define the categories the HTTP layer understands.
// Wrap a sentinel to attach a specific reason while keeping the category:
//
//	var ErrQueueFull = errors.Wrap(errors.ErrForbidden, "job queue is full")
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// Hints and details
var (
	WithHint       = crdb.WithHint
	WithHintf      = crdb.WithHintf
	WithDetail     = crdb.WithDetail
	WithDetailf    = crdb.WithDetailf
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Category sentinels. Match them with Is.
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the request was malformed
	ErrInvalidRequest = New("invalid request")

	// ErrUnauthorized indicates the caller is not authenticated
	ErrUnauthorized = New("unauthorized")

	// ErrForbidden indicates the caller failed an eligibility or privilege gate
	ErrForbidden = New("forbidden")

	// ErrConflict indicates the resource already exists or is in use
	ErrConflict = New("resource conflict")

	// ErrServiceUnavailable indicates a dependency is not reachable
	ErrServiceUnavailable = New("service unavailable")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = New("operation timed out")
)

// IsNotFoundError reports whether err is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidRequestError reports whether err is or wraps ErrInvalidRequest.
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// IsConflictError reports whether err is or wraps ErrConflict.
func IsConflictError(err error) bool {
	return err != nil && Is(err, ErrConflict)
}

// IsForbiddenError reports whether err is or wraps ErrForbidden.
func IsForbiddenError(err error) bool {
	return err != nil && Is(err, ErrForbidden)
}

// IsUnauthorizedError reports whether err is or wraps ErrUnauthorized.
func IsUnauthorizedError(err error) bool {
	return err != nil && Is(err, ErrUnauthorized)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrapf(ErrNotFound, format, args...)
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrapf(ErrInvalidRequest, format, args...)
}

// NewConflictError creates a conflict error with a formatted message
func NewConflictError(format string, args ...interface{}) error {
	return Wrapf(ErrConflict, format, args...)
}

// NewForbiddenError creates a forbidden error with a formatted message
func NewForbiddenError(format string, args ...interface{}) error {
	return Wrapf(ErrForbidden, format, args...)
}
