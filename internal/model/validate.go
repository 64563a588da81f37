package model

import "fmt"

// ValidationError reports a single rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Required returns a ValidationError when value is empty.
func Required(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Reason: "is required"}
	}
	return nil
}

// InRange returns a ValidationError when v is outside [lo, hi].
func InRange(field string, v, lo, hi int) error {
	if v < lo || v > hi {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be between %d and %d", lo, hi)}
	}
	return nil
}
