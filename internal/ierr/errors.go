// Package ierr wraps github.com/cockroachdb/errors with the sentinel set
// and fluent builder the accrual engine uses to classify failures per
// spec.md SS7.
package ierr

import "github.com/cockroachdb/errors"

// Sentinel errors used to classify failures across the engine. Most
// packages mark the errors they return with one of these via
// WithError(...).Mark(sentinel); config loading, the postgres transaction
// plumbing, the sentry panic wrapper and the JSON column scanner return
// plain fmt errors instead.
var (
	ErrNotFound              = errors.New("resource not found")
	ErrAlreadyExists         = errors.New("resource already exists")
	ErrValidation            = errors.New("validation error")
	ErrInvalidOperation      = errors.New("invalid operation")
	ErrInvariantViolation    = errors.New("invariant violation")
	ErrSystem                = errors.New("system error")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// Is and As re-export cockroachdb/errors so callers never need two imports.
var (
	Is = errors.Is
	As = errors.As
)

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidation reports whether err is (or wraps) ErrValidation.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsInvariantViolation reports whether err is (or wraps) ErrInvariantViolation.
func IsInvariantViolation(err error) bool { return errors.Is(err, ErrInvariantViolation) }

// IsDependencyUnavailable reports whether err is (or wraps) ErrDependencyUnavailable.
func IsDependencyUnavailable(err error) bool { return errors.Is(err, ErrDependencyUnavailable) }
