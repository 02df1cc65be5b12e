package lifecycle

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a referenced record does not exist.
	ErrNotFound = errors.New("lifecycle: not found")
	// ErrNotAllowed signals the caller is not the party a transition requires.
	ErrNotAllowed = errors.New("lifecycle: caller is not the required party")
	// ErrInvalidInput signals missing or malformed input.
	ErrInvalidInput = errors.New("lifecycle: invalid input")
	// ErrPersistence signals a multi-record update failed and was rolled back.
	ErrPersistence = errors.New("lifecycle: persistence failure")
)

// StateConflictError reports a transition attempted against a record whose
// current status does not permit it.
type StateConflictError struct {
	Current  string
	Expected string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("lifecycle: state conflict: status is %q, expected %q", e.Current, e.Expected)
}

// IsStateConflict reports whether err is (or wraps) a StateConflictError.
func IsStateConflict(err error) bool {
	var sc *StateConflictError
	return errors.As(err, &sc)
}
