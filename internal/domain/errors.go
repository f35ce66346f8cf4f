package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks malformed input. Returned wrapped in *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized is returned when a scoped operation has no tenant credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound indicates the record is absent for the given id and tenant.
	ErrNotFound = errors.New("not found")
	// ErrConflict signals a uniqueness violation; callers retry as a replace.
	ErrConflict = errors.New("conflict")
	// ErrEnrichment marks a failed content or tenant directory lookup. Never surfaced to callers.
	ErrEnrichment = errors.New("enrichment failed")
	// ErrTimeout indicates a store call exceeded its deadline.
	ErrTimeout = errors.New("store timeout")
	// ErrTransient indicates a store connection problem; retry is up to the caller.
	ErrTransient = errors.New("store unavailable")
)

// Violation describes one broken rule. QuestionIndex and OptionIndex are -1
// when the violation is not tied to a question or option.
type Violation struct {
	Field         string `json:"field"`
	Message       string `json:"message"`
	QuestionIndex int    `json:"questionIndex"`
	OptionIndex   int    `json:"optionIndex"`
}

// ValidationError carries every violation found in one request.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if v.QuestionIndex >= 0 {
			msgs = append(msgs, fmt.Sprintf("questions[%d].%s: %s", v.QuestionIndex, v.Field, v.Message))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a single-violation error for a top level field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Violations: []Violation{{
		Field:         field,
		Message:       message,
		QuestionIndex: -1,
		OptionIndex:   -1,
	}}}
}
