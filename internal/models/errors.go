package models

import (
	"errors"
	"fmt"
)

var ErrInvalidRequest = errors.New("invalid analysis request")

// ValidationError describes a request or configuration value that violates a bound.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s: %s %s", ErrInvalidRequest, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s %s (got %v)", ErrInvalidRequest, e.Field, e.Reason, e.Value)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }

// ErrIllegalTransition is returned by WorkflowState.Apply for a patch that would
// move the state machine along an edge it does not have.
var ErrIllegalTransition = errors.New("illegal stage transition")

type TransitionError struct {
	From Stage
	To   Stage
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrIllegalTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }
