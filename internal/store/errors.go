package store

import (
	"errors"
	"fmt"
)

// Base errors. Entity-specific errors wrap one of these so callers can test
// either the category or the exact case.
var (
	ErrNotFound          = errors.New("entity not found")
	ErrDuplicate         = errors.New("entity already exists")
	ErrInvalidEntity     = errors.New("invalid entity")
	ErrTransactionFailed = errors.New("transaction failed")
)

var (
	ErrSessionNotFound = fmt.Errorf("%w: session", ErrNotFound)
	ErrAnswerNotFound  = fmt.Errorf("%w: answer", ErrNotFound)
	// ErrResultNotFound is a result cache miss.
	ErrResultNotFound = fmt.Errorf("%w: result", ErrNotFound)
	// ErrAnswerExists is returned when an answer ID is stored twice.
	ErrAnswerExists = fmt.Errorf("%w: answer", ErrDuplicate)
)

// IsNotFoundError reports whether err is any "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError reports whether err is any "already exists" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError adds the entity and operation to a backend failure.
type StoreError struct {
	Entity    string
	Operation string
	Message   string
	Err       error
}

func (e *StoreError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Entity, e.Operation, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a StoreError.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{Entity: entity, Operation: operation, Message: message, Err: err}
}
