package ierr

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrorBuilder provides a fluent interface for building errors but does not
// itself implement the error interface. Mark must be the last call in the
// chain.
type ErrorBuilder struct {
	err error
}

// NewError starts a new error builder chain from a message.
func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.New(msg)}
}

// WithError starts a builder chain wrapping an existing error.
func WithError(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// WithMessage adds internal context to the error.
func (b *ErrorBuilder) WithMessage(msg string) *ErrorBuilder {
	b.err = errors.WithMessage(b.err, msg)
	return b
}

// WithMessagef is WithMessage with formatting. NotFound builds its
// "<resource> not found" message through this rather than pre-formatting
// with fmt.Sprintf; the repositories' "failed to <verb> <resource>"
// messages are fixed strings passed to WithMessage.
func (b *ErrorBuilder) WithMessagef(format string, args ...any) *ErrorBuilder {
	return b.WithMessage(fmt.Sprintf(format, args...))
}

// WithHint adds a human-facing hint to the error.
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.err = errors.WithHint(b.err, hint)
	return b
}

// WithHintf is WithHint with formatting.
func (b *ErrorBuilder) WithHintf(format string, args ...any) *ErrorBuilder {
	b.err = errors.WithHintf(b.err, format, args...)
	return b
}

// WithReportableDetails attaches structured, JSON-serialized details.
func (b *ErrorBuilder) WithReportableDetails(details map[string]any) *ErrorBuilder {
	marshaled, err := json.Marshal(details)
	if err != nil {
		return b
	}
	b.err = errors.WithSafeDetails(b.err, "__json__:%s", errors.Safe(string(marshaled)))
	return b
}

// WithContractID attaches the contract a failure originates from as a
// reportable detail. Every primitive in internal/aggregate and
// internal/accrualengine operates on exactly one contract at a time, so
// this single structured field saves each call site from hand-building
// the same one-entry map.
func (b *ErrorBuilder) WithContractID(id string) *ErrorBuilder {
	return b.WithReportableDetails(map[string]any{"contract_id": id})
}

// Mark marks the error with a sentinel and returns the final error. Must be
// the last call in the chain.
func (b *ErrorBuilder) Mark(reference error) error {
	b.err = errors.Mark(b.err, reference)
	return b.err
}

// Err returns the built error without marking it with a sentinel.
func (b *ErrorBuilder) Err() error {
	return b.err
}

// NotFound builds a terminal ErrNotFound for a missing resource, the one
// shape every repository's Get/GetByContract returns on sql.ErrNoRows
// (e.g. NotFound("contract", id, err)).
func NotFound(resource, id string, cause error) error {
	return WithError(cause).
		WithMessagef("%s not found", resource).
		WithReportableDetails(map[string]any{"resource": resource, "id": id}).
		Mark(ErrNotFound)
}
