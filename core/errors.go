package core

import (
	"errors"
	"fmt"
	"strings"
)

// Pipeline errors checked with errors.Is.
var (
	ErrMissingRoot   = errors.New("root component is missing from the report")
	ErrInvalidPeriod = errors.New("invalid period")
)

// ValidationError collects every violation found while validating a project.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("Validation failed:")
	for _, m := range e.Messages {
		sb.WriteString("\n  o ")
		sb.WriteString(m)
	}
	return sb.String()
}

// ConfigurationError reports an invalid setting value.
type ConfigurationError struct {
	Property string
	Value    string
	Reason   string
	Err      error // optional sentinel, e.g. ErrInvalidPeriod
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid value '%s' for property '%s': %s", e.Value, e.Property, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
