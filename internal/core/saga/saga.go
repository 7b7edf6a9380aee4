// Package saga runs ordered steps with compensations.
//
// A Saga executes steps one by one. When step n fails, the Undo of steps
// n-1..1 runs in reverse order and the error of step n is returned. Inside an
// atomic transaction (tx.IsAtomic) the rollback replaces the Undo calls.
// Undo failures are logged and collected but never replace the original error.
package saga

import (
	"context"
	"errors"
	"fmt"

	"stockledger/internal/core/tx"
	"stockledger/pkg/logger"
)

// Step is one unit of work and its compensation.
// Undo may be nil for steps that leave nothing behind.
type Step struct {
	Name string
	Do   func(ctx context.Context) error
	Undo func(ctx context.Context) error
}

// Saga accumulates steps. Not safe for concurrent use.
type Saga struct {
	name      string
	completed []Step
}

// New creates an empty saga. Name is used in logs only.
func New(name string) *Saga {
	return &Saga{name: name}
}

// Run executes step.Do. On failure it compensates everything completed so far
// and returns the step's error wrapped in *AbortedError.
func (s *Saga) Run(ctx context.Context, step Step) error {
	if err := step.Do(ctx); err != nil {
		undoErrs := s.compensate(ctx)
		return &AbortedError{Saga: s.name, Step: step.Name, Err: err, UndoErrors: undoErrs}
	}
	s.completed = append(s.completed, step)
	return nil
}

// Abort compensates all completed steps. Used when a failure happens
// outside of a step, e.g. after the last step returned.
func (s *Saga) Abort(ctx context.Context, cause error) error {
	undoErrs := s.compensate(ctx)
	return &AbortedError{Saga: s.name, Step: "", Err: cause, UndoErrors: undoErrs}
}

// Completed returns the number of steps that ran successfully and were not undone.
func (s *Saga) Completed() int {
	return len(s.completed)
}

func (s *Saga) compensate(ctx context.Context) []error {
	// An aborted database transaction rejects further statements; its
	// rollback restores everything the steps wrote.
	if tx.IsAtomic(ctx) {
		if len(s.completed) > 0 {
			logger.Debug(ctx, "saga compensation left to transaction rollback",
				"saga", s.name, "steps", len(s.completed))
		}
		s.completed = nil
		return nil
	}

	// Compensations must run even if the caller's context is done.
	undoCtx := context.WithoutCancel(ctx)

	var errs []error
	for i := len(s.completed) - 1; i >= 0; i-- {
		step := s.completed[i]
		if step.Undo == nil {
			continue
		}
		if err := step.Undo(undoCtx); err != nil {
			logger.Error(ctx, "saga compensation failed",
				"saga", s.name, "step", step.Name, "error", err)
			errs = append(errs, fmt.Errorf("undo %s: %w", step.Name, err))
		}
	}
	s.completed = nil
	return errs
}

// AbortedError reports a failed saga. Unwrap yields the step error so
// callers can keep matching on the original cause.
type AbortedError struct {
	Saga       string
	Step       string
	Err        error
	UndoErrors []error
}

func (e *AbortedError) Error() string {
	msg := fmt.Sprintf("saga %s aborted", e.Saga)
	if e.Step != "" {
		msg += " at " + e.Step
	}
	msg += ": " + e.Err.Error()
	if len(e.UndoErrors) > 0 {
		msg += fmt.Sprintf(" (%d compensation failures)", len(e.UndoErrors))
	}
	return msg
}

func (e *AbortedError) Unwrap() error { return e.Err }

// Clean reports whether every compensation succeeded.
func (e *AbortedError) Clean() bool { return len(e.UndoErrors) == 0 }

// IsClean reports whether err is nil, not a saga abort, or an abort whose
// compensations all succeeded.
func IsClean(err error) bool {
	var aborted *AbortedError
	if errors.As(err, &aborted) {
		return aborted.Clean()
	}
	return true
}
