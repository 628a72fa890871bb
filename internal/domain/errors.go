package domain

import "fmt"

// ErrorKind discriminates the error taxonomy: no free-form strings ever
// travel in an error payload, only a kind plus structured context.
type ErrorKind string

const (
	ErrUpstreamUnavailable  ErrorKind = "upstream_unavailable"
	ErrSourceDegraded       ErrorKind = "source_degraded"
	ErrClassificationAmbiguous ErrorKind = "classification_ambiguous"
	ErrValidationFailure    ErrorKind = "validation_failure"
	ErrPredictionGap        ErrorKind = "prediction_gap"
	ErrRepositoryConflict   ErrorKind = "repository_conflict"
	ErrChipUnavailable      ErrorKind = "chip_unavailable"
)

// CoreError is the structured error value every component returns to its
// caller: {kind, component, context}.
type CoreError struct {
	Kind      ErrorKind
	Component string
	Context   map[string]any
}

func (e *CoreError) Error() string {
	return fmt.Sprintf("%s: %s %v", e.Component, e.Kind, e.Context)
}

// NewError builds a CoreError with the given context fields.
func NewError(kind ErrorKind, component string, context map[string]any) *CoreError {
	if context == nil {
		context = map[string]any{}
	}
	return &CoreError{Kind: kind, Component: component, Context: context}
}

// Is supports errors.Is comparisons by kind, ignoring component/context.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
