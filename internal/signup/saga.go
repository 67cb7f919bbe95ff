package signup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// step is one unit of provisioning. undo is nil for best-effort steps.
type step struct {
	name     string
	do       func(ctx context.Context) error
	undo     func(ctx context.Context) error
	optional bool
}

// StepError names the step that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("signup step %s: %v", e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

// ErrCompensation wraps undo failures that left rows behind.
var ErrCompensation = errors.New("signup: compensation failed")

// run executes steps in order. When a required step fails, the undo of every
// completed step runs in reverse. Optional failures are logged and skipped.
func run(ctx context.Context, log *slog.Logger, steps []step) (compensated bool, err error) {
	done := make([]step, 0, len(steps))
	for _, s := range steps {
		if e := s.do(ctx); e != nil {
			if s.optional {
				log.Warn("optional step failed", "step", s.name, "err", e)
				continue
			}
			failure := &StepError{Step: s.name, Err: e}
			log.Error("step failed, compensating", "step", s.name, "err", e)
			return true, errors.Join(failure, undo(ctx, log, done))
		}
		done = append(done, s)
	}
	return false, nil
}

func undo(ctx context.Context, log *slog.Logger, done []step) error {
	// Compensations must run even if the request context is gone.
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		s := done[i]
		if s.undo == nil {
			continue
		}
		if err := s.undo(ctx); err != nil {
			log.Error("compensation failed", "step", s.name, "err", err)
			errs = append(errs, fmt.Errorf("%w: undo %s: %v", ErrCompensation, s.name, err))
		}
	}
	return errors.Join(errs...)
}
