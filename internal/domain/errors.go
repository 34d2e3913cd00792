// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrUnsupportedInstrument is returned when a caller asks for an
	// instrument that has no registered scoring strategy.
	ErrUnsupportedInstrument = errors.New("unsupported instrument")

	// ErrUnsupportedDimension is returned when a caller asks for a dimension
	// that does not belong to the requested instrument.
	ErrUnsupportedDimension = errors.New("unsupported dimension")

	// ErrInvalidTransition is returned when a session status change would
	// move backwards or skip a required state.
	ErrInvalidTransition = errors.New("invalid session status transition")

	// ErrSessionClosed is returned when answers are written to a session that
	// already reached a terminal status.
	ErrSessionClosed = errors.New("session is closed")

	// ErrResultRequired is returned when completing a session without a result.
	ErrResultRequired = errors.New("session result is required to complete")

	// ErrConfirmationRequired is returned when completing a session without
	// explicit caller confirmation.
	ErrConfirmationRequired = errors.New("session completion must be confirmed")

	// ErrSessionMismatch is returned when an answer belongs to another session.
	ErrSessionMismatch = errors.New("answer does not belong to session")
)

// ConfigurationError signals caller misuse, such as requesting an instrument
// or dimension the engine does not support. Unlike validation problems in user
// data it is never reported as a ValidationResult.
type ConfigurationError struct {
	Instrument Instrument
	Dimension  string
	Err        error
}

// Error implements the error interface for ConfigurationError.
func (e *ConfigurationError) Error() string {
	if e.Dimension != "" {
		return fmt.Sprintf("configuration error: %v: %q for instrument %q", e.Err, e.Dimension, e.Instrument)
	}
	return fmt.Sprintf("configuration error: %v: %q", e.Err, e.Instrument)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NewUnsupportedInstrumentError builds a ConfigurationError for an unknown instrument.
func NewUnsupportedInstrumentError(instrument Instrument) *ConfigurationError {
	return &ConfigurationError{Instrument: instrument, Err: ErrUnsupportedInstrument}
}

// NewUnsupportedDimensionError builds a ConfigurationError for a dimension
// outside the instrument's enumerated set.
func NewUnsupportedDimensionError(instrument Instrument, dimension string) *ConfigurationError {
	return &ConfigurationError{Instrument: instrument, Dimension: dimension, Err: ErrUnsupportedDimension}
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
