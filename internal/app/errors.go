package app

import (
	"errors"
	"fmt"
)

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.New("an expiration run is already in progress")

// ErrInvalidRecipient rejects a test send to a malformed address.
var ErrInvalidRecipient = errors.New("invalid recipient email address")

// ConfigurationError means the delivery channel cannot be used as configured.
// It is raised before any external call is attempted.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "delivery channel not usable: " + e.Reason
}

// ScanError ends a run early: course selection or run setup failed.
type ScanError struct {
	Stage string
	Err   error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("expiration scan failed during %s: %v", e.Stage, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// ValidationError wraps bad administrator input.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(format string, args ...any) error {
	return &ValidationError{Err: fmt.Errorf(format, args...)}
}
