// Package concolic wires the branch-tree builder, inference, solver, and
// executor packages into the per-seed fuzzing round described narratively
// across spec.md §4.5-§4.8: sample the cursor byte across its range, fold
// the resulting traces into a branch tree, select and solve a subset of
// its conditions, then run every solved candidate back through the
// executor to decide what enters the queue or the crash directory.
package concolic

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/graycon/graycon/internal/branch"
	"github.com/graycon/graycon/internal/branchtree"
	"github.com/graycon/graycon/internal/byteval"
	"github.com/graycon/graycon/internal/executor"
	"github.com/graycon/graycon/internal/inference"
	"github.com/graycon/graycon/internal/seed"
	"github.com/graycon/graycon/internal/solver"
	"github.com/graycon/graycon/internal/tracer"
)

// Driver runs concolic-testing rounds against one executor.
type Driver struct {
	Exec   *executor.Executor
	NSpawn int
	NSolve int

	lastTree branch.Tree // the most recently selected-and-repaired tree, for --dump-tree
}

// LastTree returns the selected-and-repaired branch tree built by the most
// recent [Driver.RunRound] call, or nil if RunRound has not run yet or its
// probing produced no traces. Used by --dump-tree; not safe for concurrent
// use alongside RunRound.
func (d *Driver) LastTree() branch.Tree {
	return d.lastTree
}

// New returns a Driver. nspawn and nsolve must already satisfy
// [config.Validate]'s nspawn >= 3 invariant; Driver does not re-check it.
func New(exec *executor.Executor, nspawn, nsolve int) *Driver {
	return &Driver{Exec: exec, NSpawn: nspawn, NSolve: nsolve}
}

// Candidate is one seed produced by a round, alongside the outcome of
// actually running it.
type Candidate struct {
	Seed   *seed.Seed
	Signal tracer.Signal
	Gain   executor.CoverageGain
	Crash  bool
}

// RunRound probes base's cursor byte NSpawn times, builds a branch tree
// from the resulting traces, solves a random NSolve-sized subset of its
// conditions, and runs every solved candidate back through the executor
// (spec.md §4.5-§4.8).
func (d *Driver) RunRound(ctx context.Context, rng *rand.Rand, base *seed.Seed) ([]Candidate, error) {
	traces, err := d.probe(ctx, base)
	if err != nil {
		return nil, err
	}

	if len(traces) == 0 {
		return nil, nil
	}

	infCtx := inference.Context{
		Neighbors: base.QueryNeighborBytes(base.Direction()),
		Source:    base.Source().Kind,
	}

	tree := branchtree.Make(traces, infCtx)
	selected := branch.SelectAndRepair(tree, d.NSolve, rng)
	d.lastTree = selected

	candidates, err := solver.Solve(selected, base)
	if err != nil {
		return nil, fmt.Errorf("concolic: solving branch tree: %w", err)
	}

	return d.evaluate(ctx, candidates)
}

// probe runs base once per sampled value of its cursor byte, returning one
// trace per execution that did not error out. Samples are spread evenly
// across the cursor byte's admissible range (spec.md §4.2's byte bounds
// rule). The original byte is probed only if it happens to be one of those
// evenly spaced values.
func (d *Driver) probe(ctx context.Context, base *seed.Seed) ([]branch.Trace, error) {
	if base.Len() == 0 {
		return nil, nil
	}

	lo, hi := base.CurrentByte().Bounds(base.Source().Kind)

	values := sampleRange(lo, hi, d.NSpawn)

	traces := make([]branch.Trace, 0, len(values))

	for _, v := range values {
		probe := base.WithCurrentByte(byteval.NewSampled(v))

		_, _, trace, err := d.Exec.GetBranchTrace(ctx, probe)
		if err != nil {
			continue
		}

		traces = append(traces, trace)
	}

	return traces, nil
}

// sampleRange returns n values evenly spread across [lo, hi], inclusive of
// both endpoints when n >= 2.
func sampleRange(lo, hi byte, n int) []byte {
	if n <= 1 {
		return []byte{lo}
	}

	span := int(hi) - int(lo)
	out := make([]byte, n)

	for i := range n {
		out[i] = byte(int(lo) + (span*i)/(n-1))
	}

	return out
}

// evaluate runs every candidate seed once, classifying it by coverage gain
// and, for crash/timeout signals, confirming against the native target
// (spec.md §4.8, original_source fuzz/test_case.cpp's CheckCrash).
func (d *Driver) evaluate(ctx context.Context, candidates []*seed.Seed) ([]Candidate, error) {
	out := make([]Candidate, 0, len(candidates))

	for _, cand := range candidates {
		sig, gain, err := d.Exec.GetCoverage(ctx, cand)
		if err != nil {
			return out, fmt.Errorf("concolic: running candidate: %w", err)
		}

		isCrash, confirmedSig, err := d.Exec.CheckCrash(ctx, cand, sig, gain)
		switch {
		case err == nil:
			sig = confirmedSig
		case errors.Is(err, executor.ErrNoNativeTarget):
			// No native target configured: trust the instrumented run's
			// own signal instead of failing the round over it.
			isCrash = false
		default:
			return out, fmt.Errorf("concolic: confirming candidate outcome: %w", err)
		}

		out = append(out, Candidate{Seed: cand, Signal: sig, Gain: gain, Crash: isCrash})
	}

	return out, nil
}
