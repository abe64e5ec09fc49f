package reconcile

import (
	"errors"
	"fmt"
)

var (
	ErrParentNotFound        = errors.New("parent not found")
	ErrUnknownChildReference = errors.New("unknown child reference")
	ErrValidation            = errors.New("validation failed")
	ErrStorageFailure        = errors.New("storage failure")
)

// ValidationError reports the submitted item that failed a field check.
type ValidationError struct {
	Index   int
	ID      string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("item %d: %s", e.Index, e.Message)
	}
	return fmt.Sprintf("item %d: %s: %s", e.Index, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// UnknownChildError reports a submitted id that is not a child of the parent.
type UnknownChildError struct {
	Index int
	ID    string
}

func (e *UnknownChildError) Error() string {
	return fmt.Sprintf("item %d: id %q is not a child of this parent", e.Index, e.ID)
}

func (e *UnknownChildError) Unwrap() error { return ErrUnknownChildReference }

// StorageError wraps a failure of the underlying store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorageFailure, e.Err} }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrParentNotFound) || errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrUnknownChildReference) || errors.Is(err, ErrStorageFailure) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
