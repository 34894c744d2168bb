// Package executor is the facade the concolic driver and the queue
// scheduler use to run a candidate seed against the target: it turns a
// [tracer.Session] exchange into a [tracer.Signal] plus a [CoverageGain]
// verdict, and owns the coverage state that verdict is measured against
// (spec.md §4.1, §4.8; original_source fuzz/test_case.cpp, core/executor.hpp).
package executor

import (
	"context"
	"fmt"

	"github.com/graycon/graycon/internal/branch"
	"github.com/graycon/graycon/internal/seed"
	"github.com/graycon/graycon/internal/tracer"
)

// CoverageGain classifies how much new coverage one execution contributed,
// mirroring the three-way distinction in the original typedef.hpp (the
// distilled spec only names a binary "new coverage?" check).
type CoverageGain int

const (
	// NoGain means the execution's edge sequence and path were both
	// already seen.
	NoGain CoverageGain = iota
	// NewPath means the exact sequence of edges is new, but every
	// individual edge in it was already seen.
	NewPath
	// NewEdge means at least one edge in the execution was never seen
	// before.
	NewEdge
)

// Priority is the seed queue priority a [CoverageGain] implies.
type Priority int

const (
	// Favored seeds increased edge coverage.
	Favored Priority = iota
	// Normal seeds increased path coverage without a new edge.
	Normal
)

// PriorityOf derives the queue priority implied by a coverage gain. The
// second return is false for [NoGain], which earns no queue entry at all.
func PriorityOf(gain CoverageGain) (Priority, bool) {
	switch gain {
	case NewEdge:
		return Favored, true
	case NewPath:
		return Normal, true
	case NoGain:
		return 0, false
	default:
		return 0, false
	}
}

// edge is a directed hop between two consecutive branch addresses visited
// in one trace.
type edge struct {
	from, to uint64
}

// Executor runs seeds against an instrumented target and, when needed, a
// second uninstrumented target used only to confirm a timeout's real
// signal (spec.md §4.1, "Timeout confirmation"). Coverage state is owned
// per Executor instance, not package-global, so independent fuzzing runs
// in the same process never share a bitmap.
type Executor struct {
	instrumented *tracer.Session
	native       *tracer.Session

	edgesSeen map[edge]struct{}
	pathsSeen map[string]struct{}
}

// New builds an Executor. native may be nil; [Executor.ConfirmTimeout] and
// [Executor.NativeExecute] return [ErrNoNativeTarget] in that case.
func New(instrumented, native *tracer.Session) *Executor {
	return &Executor{
		instrumented: instrumented,
		native:       native,
		edgesSeen:    make(map[edge]struct{}),
		pathsSeen:    make(map[string]struct{}),
	}
}

// Close releases the executor's tracer sessions.
func (e *Executor) Close() error {
	var errInstr, errNative error

	if e.instrumented != nil {
		errInstr = e.instrumented.Close()
	}

	if e.native != nil {
		errNative = e.native.Close()
	}

	if errInstr != nil {
		return errInstr
	}

	return errNative
}

// GetCoverage runs s once and reports its signal and coverage gain without
// returning the branch trace itself (original_source core/executor.hpp
// `GetCoverage`).
func (e *Executor) GetCoverage(ctx context.Context, s *seed.Seed) (tracer.Signal, CoverageGain, error) {
	sig, gain, _, err := e.GetBranchTrace(ctx, s)

	return sig, gain, err
}

// GetBranchTrace runs s once and returns its signal, coverage gain, and
// full ordered branch trace (`GetBranchTrace`).
func (e *Executor) GetBranchTrace(ctx context.Context, s *seed.Seed) (tracer.Signal, CoverageGain, []branch.Info, error) {
	res, err := e.instrumented.Execute(ctx, s.Concretize())
	if err != nil {
		return tracer.Error, NoGain, nil, fmt.Errorf("executor: running instrumented target: %w", err)
	}

	gain := e.recordCoverage(res.Infos)

	return res.Signal, gain, res.Infos, nil
}

// GetBranchInfo runs s once and returns the single branch record matching
// point, alongside the run's signal and coverage gain (`GetBranchInfo`).
func (e *Executor) GetBranchInfo(ctx context.Context, s *seed.Seed, point branch.Point) (tracer.Signal, CoverageGain, *branch.Info, error) {
	sig, gain, trace, err := e.GetBranchTrace(ctx, s)
	if err != nil {
		return sig, gain, nil, err
	}

	return sig, gain, findPoint(trace, point), nil
}

// GetBranchInfoOnly runs s once and returns only the branch record at
// point, bypassing coverage bookkeeping entirely: the cheap form for probe
// runs, such as try-value sampling, whose coverage does not matter
// (`GetBranchInfoOnly`).
func (e *Executor) GetBranchInfoOnly(ctx context.Context, s *seed.Seed, point branch.Point) (*branch.Info, error) {
	res, err := e.instrumented.Execute(ctx, s.Concretize())
	if err != nil {
		return nil, fmt.Errorf("executor: running instrumented target: %w", err)
	}

	return findPoint(res.Infos, point), nil
}

func findPoint(trace []branch.Info, point branch.Point) *branch.Info {
	for i := range trace {
		if trace[i].Point() == point {
			return &trace[i]
		}
	}

	return nil
}

// recordCoverage folds trace's consecutive address pairs into the
// executor's edge and path sets and returns the resulting gain.
func (e *Executor) recordCoverage(trace []branch.Info) CoverageGain {
	if len(trace) == 0 {
		return NoGain
	}

	newEdge := false
	edges := make([]edge, 0, len(trace)-1)

	for i := 1; i < len(trace); i++ {
		ed := edge{from: trace[i-1].Addr, to: trace[i].Addr}
		edges = append(edges, ed)

		if _, ok := e.edgesSeen[ed]; !ok {
			newEdge = true
		}
	}

	for _, ed := range edges {
		e.edgesSeen[ed] = struct{}{}
	}

	key := pathKey(trace)

	_, pathKnown := e.pathsSeen[key]
	e.pathsSeen[key] = struct{}{}

	switch {
	case newEdge:
		return NewEdge
	case !pathKnown:
		return NewPath
	default:
		return NoGain
	}
}

func pathKey(trace []branch.Info) string {
	buf := make([]byte, 0, len(trace)*8)

	for _, info := range trace {
		buf = append(buf,
			byte(info.Addr>>56), byte(info.Addr>>48), byte(info.Addr>>40), byte(info.Addr>>32),
			byte(info.Addr>>24), byte(info.Addr>>16), byte(info.Addr>>8), byte(info.Addr),
		)
	}

	return string(buf)
}
