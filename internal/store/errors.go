package store

import (
	"errors"
	"fmt"
)

// ErrQuizNotFound is returned when an operation targets a quiz id that
// does not exist or has been soft-deleted.
var ErrQuizNotFound = errors.New("quiz not found")

// PersistenceError wraps a low-level database failure. It is never
// retried here; retries are the caller's responsibility.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("quiz store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// AuthorizationError reports an ownership check failure. It does not
// distinguish a missing record from a foreign one, so callers cannot
// probe for other students' quiz ids.
type AuthorizationError struct {
	QuizID string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("quiz %s not found or not owned by caller", e.QuizID)
}

// ValidationError reports rejected input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }
