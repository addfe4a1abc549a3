package interview

import (
	"errors"
	"fmt"

	"phronesis/models"
)

var (
	// ErrInvalidStateTransition is returned when an operation is invoked in a
	// stage that does not accept it. The session is left unchanged.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrSessionNotFound is returned by the registry for unknown ids
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionBusy is returned when a session already has a request in flight
	ErrSessionBusy = errors.New("session is busy")

	// ErrInvalidInput covers unknown archetypes and empty turns
	ErrInvalidInput = errors.New("invalid input")

	// ErrPersistenceFailure wraps result sink errors. It is reported as a
	// warning and never fails the turn.
	ErrPersistenceFailure = errors.New("persistence failure")
)

// TransitionError describes which operation was rejected and in which stage
type TransitionError struct {
	Op     string
	Stage  models.Stage
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: not allowed in stage %s: %s", e.Op, e.Stage, e.Reason)
	}
	return fmt.Sprintf("%s: not allowed in stage %s", e.Op, e.Stage)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}

func transitionErr(op string, stage models.Stage, reason string) error {
	return &TransitionError{Op: op, Stage: stage, Reason: reason}
}
