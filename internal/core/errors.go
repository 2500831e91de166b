package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the services in this package wraps exactly
// one of these, so callers can branch with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("concurrent modification")
	ErrPersistence       = errors.New("persistence failure")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InvalidTransitionError reports a status change the state machine does not allow.
// Action is set instead of To when the rejected operation is not itself a transition
// (for example editing items of an accepted quote).
type InvalidTransitionError struct {
	Entity string
	ID     string
	From   QuoteStatus
	To     QuoteStatus
	Action string
}

func (e *InvalidTransitionError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s %s cannot be %s in status %s", e.Entity, e.ID, e.Action, e.From)
	}
	return fmt.Sprintf("%s %s cannot move from %s to %s", e.Entity, e.ID, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// NotFoundError reports a missing quote, invoice, payment or user.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError reports a write that lost an optimistic-concurrency race.
type ConflictError struct {
	Entity          string
	ID              string
	ExpectedVersion int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s was modified concurrently (expected version %d)", e.Entity, e.ID, e.ExpectedVersion)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// PersistenceError wraps a failure of the underlying store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

// Unwrap exposes both the kind and the driver error.
func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// persistErr wraps err as a PersistenceError unless it already carries a kind.
func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{ErrValidation, ErrInvalidTransition, ErrNotFound, ErrConflict, ErrPersistence} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return &PersistenceError{Op: op, Err: err}
}
