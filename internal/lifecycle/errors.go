package lifecycle

import (
	"errors"
	"fmt"
)

// ErrNoMatch is returned when a presented credential matches no record.
// It never distinguishes an unknown tenant from a wrong secret.
var ErrNoMatch = errors.New("no matching credential")

// ValidationError reports a missing or blank required field. No side effect
// has occurred when one is returned.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

func requireField(name, value string) error {
	if isBlank(value) {
		return &ValidationError{Field: name}
	}
	return nil
}
