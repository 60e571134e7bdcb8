package model

import "fmt"

// InputError reports a malformed or missing address on an input record.
// The record is excluded from clustering and counted in diagnostics; it
// never aborts a run.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid input %q: %s", e.Field, e.Reason)
}

// NewInputError creates an InputError for the given field.
func NewInputError(field, reason string) *InputError {
	return &InputError{Field: field, Reason: reason}
}

// ConfigurationError reports missing or invalid startup configuration, such
// as an absent geocoding API key. It is fatal for resolution: the engine
// refuses to attempt any external calls but keeps serving cached markers.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}
