package core

import (
	"errors"
	"fmt"
)

var (
	ErrMissingField  = errors.New("missing required field")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrNotFound      = errors.New("transaction not found")
)

// ValidationError reports which user-supplied field was rejected. It
// unwraps to one of the Err* sentinels above.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StorageError wraps any failure of the persistence layer.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError returns nil when err is nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsValidation reports whether err is a validation failure the caller can
// recover from by re-prompting.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStorage reports whether err originated in the persistence layer.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// UserMessage maps an error to the text shown to the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingField):
		return "Please fill all required fields."
	case errors.Is(err, ErrInvalidAmount):
		return "Please enter a valid positive number for amount."
	case errors.Is(err, ErrInvalidDate):
		return "Please enter a valid date in YYYY-MM-DD format."
	case errors.Is(err, ErrInvalidType):
		return "Transaction type must be Income or Expense."
	case errors.Is(err, ErrNotFound):
		return "Transaction not found."
	case IsStorage(err):
		return "Could not save changes, please try again."
	default:
		return "Unexpected error."
	}
}
