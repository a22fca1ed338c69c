package workout

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist or belongs to another user.
	ErrNotFound = errors.New("not found")
	// ErrNoAlternatives is returned when no exercise can replace a candidate.
	ErrNoAlternatives = errors.New("no alternative exercises")
	// ErrNoActiveWorkout is returned when the user has no uncompleted workout to start or resume.
	ErrNoActiveWorkout = errors.New("no active workout")
	// ErrSessionCompleted is returned when a completed session is modified.
	ErrSessionCompleted = errors.New("session completed")
	// ErrCannotMarkWeightAchieved is returned when no set is completed or the weight is already marked achieved today.
	ErrCannotMarkWeightAchieved = errors.New("no completed set or weight already marked achieved")
)

// ValidationError reports a missing or invalid field. It is returned before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StorageError wraps a failure of the underlying store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// storageError wraps err in a StorageError unless it already carries a domain error.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		storageErr    *StorageError
		validationErr *ValidationError
	)
	if errors.As(err, &storageErr) || errors.As(err, &validationErr) ||
		errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoAlternatives) ||
		errors.Is(err, ErrNoActiveWorkout) || errors.Is(err, ErrSessionCompleted) ||
		errors.Is(err, ErrCannotMarkWeightAchieved) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
