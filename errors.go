package uat

import (
	"errors"
	"fmt"
)

// RuntimeError represents an operational error that should lead to exit code 2
// Examples include configuration errors, unknown implementers, unwritable results, etc.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError creates a new RuntimeError
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// StepFailureError reports a sub-step that ran and failed (exit code 1)
type StepFailureError struct {
	Message string
}

func (e *StepFailureError) Error() string {
	return fmt.Sprintf("step failure: %s", e.Message)
}

// NewStepFailureError creates a new StepFailureError
func NewStepFailureError(message string) *StepFailureError {
	return &StepFailureError{Message: message}
}

// IsStepFailureError checks if the error is or wraps a StepFailureError
func IsStepFailureError(err error) bool {
	var stepErr *StepFailureError
	return err != nil && errors.As(err, &stepErr)
}
