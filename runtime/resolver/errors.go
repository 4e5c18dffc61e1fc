package resolver

import (
	"errors"
	"fmt"
)

// ErrCanceled is returned when a request was canceled before or while it ran.
var ErrCanceled = errors.New("request canceled")

// ConfigurationError reports a pathway that cannot be executed as
// configured, e.g. a missing model or a prompt leaving no room for input.
type ConfigurationError struct {
	Pathway string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Pathway == "" {
		return fmt.Sprintf("configuration error: %v", e.Reason)
	}
	return fmt.Sprintf("pathway %v: %v", e.Pathway, e.Reason)
}

func newConfigurationError(pathway, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Pathway: pathway, Reason: fmt.Sprintf(format, args...)}
}
