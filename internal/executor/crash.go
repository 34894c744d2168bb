package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/graycon/graycon/internal/seed"
	"github.com/graycon/graycon/internal/tracer"
)

// ErrNoNativeTarget is returned by [Executor.NativeExecute] and
// [Executor.ConfirmTimeout] when the executor was built without a native
// (uninstrumented) session.
var ErrNoNativeTarget = errors.New("executor: no native target configured")

// NativeExecute runs s against the uninstrumented target, bypassing the
// tracer wire protocol entirely. Used to get the target's true exit signal
// when the instrumented run timed out (`core/executor.hpp NativeExecute`).
func (e *Executor) NativeExecute(ctx context.Context, s *seed.Seed) (tracer.Signal, error) {
	if e.native == nil {
		return tracer.Error, ErrNoNativeTarget
	}

	res, err := e.native.Execute(ctx, s.Concretize())
	if err != nil {
		return tracer.Error, fmt.Errorf("executor: running native target: %w", err)
	}

	return res.Signal, nil
}

// ConfirmTimeout re-runs s against the native target to find out whether a
// [tracer.Timeout] from the instrumented run was a real hang or just
// instrumentation overhead pushing the run past --exectimeout
// (fuzz/test_case.cpp `CheckCrash`'s timeout branch).
func (e *Executor) ConfirmTimeout(ctx context.Context, s *seed.Seed) (tracer.Signal, error) {
	return e.NativeExecute(ctx, s)
}

// CheckCrash decides whether one execution is a new, reportable crash,
// folding in the timeout-confirmation re-run when needed
// (`fuzz/test_case.cpp CheckCrash`). It returns the resolved signal
// (possibly updated by a timeout confirmation) alongside the verdict.
func (e *Executor) CheckCrash(ctx context.Context, s *seed.Seed, sig tracer.Signal, gain CoverageGain) (bool, tracer.Signal, error) {
	switch {
	case sig.IsCrash() && gain == NewEdge:
		return true, sig, nil
	case sig.IsTimeout():
		confirmed, err := e.ConfirmTimeout(ctx, s)
		if err != nil {
			return false, sig, err
		}

		return confirmed.IsCrash() && gain == NewEdge, confirmed, nil
	default:
		return false, sig, nil
	}
}
