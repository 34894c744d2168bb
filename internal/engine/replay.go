package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/graycon/graycon/internal/executor"
	"github.com/graycon/graycon/internal/seed"
	"github.com/graycon/graycon/internal/tracer"
)

// ReplayResult reports the outcome of running one saved artifact back
// through the target, for `graycon replay`.
type ReplayResult struct {
	Signal tracer.Signal
	Gain   executor.CoverageGain
	Crash  bool
}

// Replay runs the seed stored at path once through e's executor and
// classifies the outcome with the same crash check a live fuzzing round
// uses, re-running a timeout against the native target (spec.md §4.8).
func (e *Engine) Replay(ctx context.Context, path string) (ReplayResult, error) {
	s, err := LoadSeedFile(path, seed.FileInput(path))
	if err != nil {
		return ReplayResult{}, err
	}

	sig, gain, err := e.exec.GetCoverage(ctx, s)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("engine: replay %s: %w", path, err)
	}

	isCrash, confirmed, err := e.exec.CheckCrash(ctx, s, sig, gain)

	switch {
	case err == nil:
		return ReplayResult{Signal: confirmed, Gain: gain, Crash: isCrash}, nil
	case errors.Is(err, executor.ErrNoNativeTarget):
		return ReplayResult{Signal: sig, Gain: gain, Crash: sig.IsCrash()}, nil
	default:
		return ReplayResult{}, fmt.Errorf("engine: confirm replay outcome: %w", err)
	}
}
