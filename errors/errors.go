// Package errors provides error handling for jobsweep.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging (print with %+v)
//   - Error wrapping and context
//   - User-facing hints
//
// Usage:
//
//	// Wrap with context
//	if err := store.Requeue(ctx, id, update); err != nil {
//	    return errors.Wrap(err, "failed to requeue job")
//	}
//
//	// Classify
//	if errors.IsRemoteCallError(err) {
//	    // count and continue
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Sentinel error kinds. Each kind has its own isolation policy:
// store and config errors abort a run, remote-call errors are counted per
// job, record-shape errors are skipped by the retrier and fatal to the resetter.
var (
	// ErrStoreConnection indicates the document store could not be reached,
	// or a query, cursor or update against it failed
	ErrStoreConnection = New("document store error")

	// ErrRecordShape indicates a job record is missing a required field or
	// holds a value of the wrong type
	ErrRecordShape = New("malformed job record")

	// ErrRemoteCall indicates the retry endpoint returned a non-success status
	// or could not be reached
	ErrRemoteCall = New("retry call failed")

	// ErrInvalidConfig indicates the configuration failed validation
	ErrInvalidConfig = New("invalid configuration")
)

// IsStoreConnectionError checks if an error is or wraps ErrStoreConnection
func IsStoreConnectionError(err error) bool {
	return err != nil && Is(err, ErrStoreConnection)
}

// IsRecordShapeError checks if an error is or wraps ErrRecordShape
func IsRecordShapeError(err error) bool {
	return err != nil && Is(err, ErrRecordShape)
}

// IsRemoteCallError checks if an error is or wraps ErrRemoteCall
func IsRemoteCallError(err error) bool {
	return err != nil && Is(err, ErrRemoteCall)
}

// IsInvalidConfigError checks if an error is or wraps ErrInvalidConfig
func IsInvalidConfigError(err error) bool {
	return err != nil && Is(err, ErrInvalidConfig)
}

// WrapStore marks err as a store error and adds context.
func WrapStore(err error, context string) error {
	if err == nil {
		return nil
	}
	return Wrap(Mark(err, ErrStoreConnection), context)
}

// NewRecordShapeError creates a record-shape error with a formatted message
func NewRecordShapeError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrRecordShape)
}

// NewRemoteCallError creates a remote-call error with a formatted message
func NewRemoteCallError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrRemoteCall)
}

// WrapRemoteCall marks a transport error as a remote-call error
func WrapRemoteCall(err error, context string) error {
	if err == nil {
		return nil
	}
	return Wrap(Mark(err, ErrRemoteCall), context)
}

// NewInvalidConfigError creates a config validation error with a formatted message
func NewInvalidConfigError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrInvalidConfig)
}
