package reviews

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no review has the requested id.
var ErrNotFound = errors.New("review not found")

// ValidationError reports malformed client input. Message is safe to show
// to the client.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// StorageError wraps a failure to read or write the collection document.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s reviews: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
