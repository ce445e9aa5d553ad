package entity

import (
	"errors"
	"fmt"
)

var (
	// State transition errors.
	ErrStateConflict     = errors.New("conflicting run state transition")
	ErrAlreadyTerminal   = errors.New("run is already in a terminal state")
	ErrNotRunning        = errors.New("run is not running")
	ErrNotReady          = errors.New("run is not ready")
	ErrInvalidTransition = errors.New("invalid run state transition")

	// Product errors.
	ErrProductResolved = errors.New("product availability already resolved")
	ErrEmptyArtifact   = errors.New("artifact path cannot be empty")
)

// ConfigError indicates invalid configuration detected before any run is
// created. It is always fatal to the requested operation.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return e.msg }

// NewConfigError builds a ConfigError with a formatted message.
func NewConfigError(format string, args ...interface{}) error {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
