package application

import "errors"

var (
	// ErrNotFound is returned when the requested mentor, session or rule does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrConflict is returned when a requested write would overlap an existing
	// interval, exceed a session's capacity, or duplicate a participant. The
	// operation leaves state unchanged and is never retried by the engine.
	ErrConflict = errors.New("application: scheduling conflict")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
