package services

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Failure categories surfaced to callers. Each maps to a distinct HTTP
// status in the handlers; none is retried internally except the single
// bounded retry behind ErrTagConflict.
var (
	ErrNotFound               = errors.New("translation not found")
	ErrDuplicateKeyLocale     = errors.New("a translation with this key and locale already exists")
	ErrConcurrentModification = errors.New("translation was modified by another request")
	ErrTagConflict            = errors.New("tag creation conflicted with a concurrent request")
)

// ValidationError reports a malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// wrapValidation converts validator.Struct failures into the service's
// ValidationError, keeping the first offending field.
func wrapValidation(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return newValidationError(fe.Field(), fmt.Sprintf("failed on the %q constraint", fe.Tag()))
	}
	return newValidationError("", err.Error())
}
