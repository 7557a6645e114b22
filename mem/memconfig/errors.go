package memconfig

import (
	"errors"
	"fmt"
)

// ConfigurationError reports options or system properties that make a memory
// configuration impossible. A configuration that fails with this error must be
// abandoned as a whole.
type ConfigurationError struct {
	// Op is the configuration step that failed.
	Op     string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := "memory configuration"
	if e.Op != "" {
		msg += " (" + e.Op + ")"
	}

	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the underlying error, if any.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsConfigurationError tells if any error in the chain is a
// ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

func configErrorf(op, format string, args ...any) error {
	return &ConfigurationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

func wrapConfigError(op string, err error, format string, args ...any) error {
	return &ConfigurationError{
		Op:     op,
		Reason: fmt.Sprintf(format, args...),
		Err:    err,
	}
}
