package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrValidation            = errors.New("validation failed")
	ErrInsufficientCredits   = errors.New("insufficient credits")
	ErrAllProvidersExhausted = errors.New("all image providers exhausted")
	ErrUnknownPackage        = errors.New("unknown credit package")
	ErrInvalidSignature      = errors.New("invalid webhook signature")
	ErrDuplicateOperation    = errors.New("duplicate operation")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is lets callers match any ValidationError against ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
