package core

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")
	// ErrStorage matches every *StorageError via errors.Is.
	ErrStorage = errors.New("storage failure")
	// ErrEmpty reports a valid state with nothing to aggregate.
	ErrEmpty = errors.New("no expenses recorded")
	// ErrNotFound reports a lookup that matched nothing.
	ErrNotFound = errors.New("not found")

	ErrInvalidAmount = errors.New("invalid amount")
	ErrMissingAmount = errors.New("amount is required")
	ErrInvalidDate   = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidYear   = errors.New("invalid year")
	ErrInvalidMonth  = errors.New("invalid month, expected 1-12")
)

// ValidationError describes malformed input for a single field.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// StorageError wraps a failure of the underlying storage engine.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// NewStorageError wraps err, returning nil when err is nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
