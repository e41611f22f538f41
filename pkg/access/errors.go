package access

import (
	"errors"
	"fmt"
)

// ErrDuplicateShare is returned when a share on the same (resource, target)
// already exists. Concurrent duplicate inserts race to exactly one winner;
// callers may treat this error as benign ("already shared").
var ErrDuplicateShare = errors.New("share already exists")

// NotFoundError reports that an explicitly looked-up primary entity is absent
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// NewNotFoundError creates a NotFoundError for the given entity kind and id
func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// ValidationError reports malformed input (bad id, out-of-range pagination)
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for the given field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// StorageError wraps an underlying storage failure. Reads are not retried;
// the wrapped cause propagates to the caller.
type StorageError struct {
	Op    string
	Cause error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure in %s: %v", e.Op, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// storageErr wraps err as a StorageError for the named operation
func storageErr(op string, err error) error {
	return &StorageError{Op: op, Cause: err}
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
