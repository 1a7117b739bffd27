package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError describes one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidatePort checks that port is a usable TCP port.
func ValidatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return &ValidationError{Field: field, Message: "must be between 1 and 65535"}
	}
	return nil
}

// ValidateLogLevel accepts the zap level names.
func ValidateLogLevel(field, level string) error {
	return ValidateOneOf(field, level, "debug", "info", "warn", "error", "fatal")
}

// ValidateOneOf checks that value is one of allowed.
func ValidateOneOf(field, value string, allowed ...string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return &ValidationError{
		Field:   field,
		Message: "must be one of: " + strings.Join(allowed, ", "),
	}
}

// ValidatePercentage checks that p lies in [0, 100].
func ValidatePercentage(field string, p float64) error {
	if p < 0 || p > 100 {
		return &ValidationError{Field: field, Message: "must be between 0 and 100"}
	}
	return nil
}
