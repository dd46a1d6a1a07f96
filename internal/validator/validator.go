// Package validator enforces input-shape validation at the batch boundary
// (spec.md SS7: malformed requests are rejected before they ever reach the
// core).
package validator

import (
	"sync"

	ierr "github.com/fourgeeks/accrual-engine/internal/ierr"
	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

func initValidator() {
	once.Do(func() {
		validate = validator.New()
	})
}

// Get returns the shared *validator.Validate instance.
func Get() *validator.Validate {
	initValidator()
	return validate
}

// ValidateRequest validates req's struct tags and, on failure, returns an
// ierr wrapping ErrValidation with one reportable detail per offending
// field.
func ValidateRequest(req interface{}) error {
	initValidator()

	if err := validate.Struct(req); err != nil {
		details := make(map[string]any)
		var validationErrs validator.ValidationErrors
		if ierr.As(err, &validationErrs) {
			for _, fieldErr := range validationErrs {
				details[fieldErr.Field()] = fieldErr.Error()
			}
		}
		return ierr.WithError(err).
			WithHint("request validation failed").
			WithReportableDetails(details).
			Mark(ierr.ErrValidation)
	}
	return nil
}
