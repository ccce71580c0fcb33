package service

import "fmt"

// ValidationError is returned when a payload fails validation. Nothing is
// sent to the server in that case.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for %q: %s", e.Field, e.Message)
	}
	return e.Message
}

// NotConfiguredError is returned when an optional feature is used without
// its configuration.
type NotConfiguredError struct {
	Feature string
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("%s is not configured", e.Feature)
}
