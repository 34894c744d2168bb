// Package solver turns a selected-and-repaired [branch.Tree] into concrete
// candidate seeds by walking each inferred condition and committing a
// solved byte (or byte chunk) at the seed's cursor before advancing to the
// next condition in sequence (spec.md §4.6; original_source
// gray_concolic/solve.cpp).
package solver

import (
	"fmt"
	"math/big"

	"github.com/graycon/graycon/internal/bigmath"
	"github.com/graycon/graycon/internal/branch"
	"github.com/graycon/graycon/internal/interval"
	"github.com/graycon/graycon/internal/seed"
)

// Solve walks tree (already filtered and reversed by
// [branch.SelectAndRepair]) starting from base's current cursor and
// returns every candidate seed discovered along the way.
//
// The chunk-solution cache that deduplicates repeated numeric solutions is
// owned by this call alone, matching [chunkCache]'s doc comment.
func Solve(tree branch.Tree, base *seed.Seed) ([]*seed.Seed, error) {
	cache := newChunkCache()

	seeds, err := solveBranchTree(tree, base, cache)
	if err != nil {
		return nil, err
	}

	reversed := make([]*seed.Seed, len(seeds))
	for i, s := range seeds {
		reversed[len(seeds)-1-i] = s
	}

	return reversed, nil
}

func solveBranchTree(t branch.Tree, cur *seed.Seed, cache *chunkCache) ([]*seed.Seed, error) {
	switch n := t.(type) {
	case branch.Straight:
		seeds, _, err := solveBranchSeq(n.Seq, cur, cache)

		return seeds, err

	case branch.Forked:
		seeds, committed, err := solveBranchSeq(n.Seq, cur, cache)
		if err != nil {
			return nil, err
		}

		forkSeeds, err := solveBranchCond(n.Cond, committed, cache)
		if err != nil {
			return nil, err
		}

		seeds = append(seeds, forkSeeds...)

		for _, child := range n.Children {
			childSeeds, err := solveBranchTree(child.Child, committed.Clone(), cache)
			if err != nil {
				return nil, err
			}

			seeds = append(seeds, childSeeds...)
		}

		return seeds, nil

	case branch.Diverge:
		seeds, committed, err := solveBranchSeq(n.Seq, cur, cache)
		if err != nil {
			return nil, err
		}

		for _, sub := range n.Subtrees {
			subSeeds, err := solveBranchTree(sub, committed.Clone(), cache)
			if err != nil {
				return nil, err
			}

			seeds = append(seeds, subSeeds...)
		}

		return seeds, nil

	default:
		return nil, fmt.Errorf("solver: unknown tree node %T", t)
	}
}

// solveBranchSeq folds every entry of seq in order: each solved condition
// is committed onto cur (advancing the cursor past it) before the next
// entry is considered, mirroring the original's chained byte-by-byte
// string solving. It returns every candidate seed produced along the way
// plus the final committed seed, which callers use as the starting point
// for whatever comes after this sequence in the tree.
func solveBranchSeq(seq branch.BranchSeq, cur *seed.Seed, cache *chunkCache) ([]*seed.Seed, *seed.Seed, error) {
	committed := cur
	var seeds []*seed.Seed

	for _, entry := range seq.Branches {
		if entry.Cond == nil {
			if !committed.ProceedCursor(committed.Direction()) {
				break
			}

			continue
		}

		condSeeds, err := solveBranchCond(*entry.Cond, committed, cache)
		if err != nil {
			return nil, nil, err
		}

		seeds = append(seeds, condSeeds...)

		if len(condSeeds) > 0 {
			committed = condSeeds[0]
		}

		if !committed.ProceedCursor(committed.Direction()) {
			break
		}
	}

	return seeds, committed, nil
}

// solveBranchCond dispatches on the inferred condition's concrete form
// (`SolveBranchCond`).
func solveBranchCond(cond branch.ConditionAt, cur *seed.Seed, cache *chunkCache) ([]*seed.Seed, error) {
	switch c := cond.Condition.(type) {
	case *branch.LinEq:
		return solveEquation(c, cur, cache)
	case *branch.LinIneq:
		return solveInequality(c, cur)
	case *branch.Mono:
		return solveMonotonic(c, cur)
	default:
		return nil, fmt.Errorf("solver: unknown condition %T", cond.Condition)
	}
}

// solveEquation dispatches a linear equation to the single-byte or
// multi-byte chunk solver depending on its chunk size
// (`SolveEquation`).
func solveEquation(cond *branch.LinEq, cur *seed.Seed, cache *chunkCache) ([]*seed.Seed, error) {
	if cond.ChunkSize == 1 {
		return solveAsString(cond, cur)
	}

	return solveAsChunk(cond, cur, cache)
}

// solveAsString commits a single solved byte at the cursor
// (`SolveAsString`/`TryStrSol`, specialized to chunk size one).
func solveAsString(cond *branch.LinEq, cur *seed.Seed) ([]*seed.Seed, error) {
	if len(cond.Solutions) == 0 {
		return nil, nil
	}

	s, err := commitChunk(cur, cond.Endian, 1, cond.Solutions[0])
	if err != nil {
		return nil, nil //nolint:nilerr // an out-of-range root is not an error, just no candidate
	}

	return []*seed.Seed{s}, nil
}

// solveAsChunk commits a solved multi-byte chunk at the cursor, skipping
// values already produced earlier in this [Solve] call
// (`SolveAsChunk`/`TryChunkSol`).
func solveAsChunk(cond *branch.LinEq, cur *seed.Seed, cache *chunkCache) ([]*seed.Seed, error) {
	if len(cond.Solutions) == 0 {
		return nil, nil
	}

	root := cond.Solutions[0]
	if cache.seenOrMark(root) {
		return nil, nil
	}

	s, err := commitChunk(cur, cond.Endian, cond.ChunkSize, root)
	if err != nil {
		return nil, nil //nolint:nilerr // an out-of-range root is not an error, just no candidate
	}

	return []*seed.Seed{s}, nil
}

// solveInequality commits one candidate seed per side of the inequality's
// extracted split: one inside the selected range, one inside its
// complement (`SolveInequality` plus `ExtractCond`).
func solveInequality(cond *branch.LinIneq, cur *seed.Seed) ([]*seed.Seed, error) {
	pos, neg, ok := extractCond(cond)
	if !ok {
		return nil, nil
	}

	var seeds []*seed.Seed

	for _, iv := range pos {
		if s, ok := commitMidpoint(cur, iv); ok {
			seeds = append(seeds, s)
		}
	}

	for _, iv := range neg {
		if s, ok := commitMidpoint(cur, iv); ok {
			seeds = append(seeds, s)
		}
	}

	return seeds, nil
}

// solveMonotonic commits the midpoint of the current bracket as the next
// candidate (`SolveMonotonic`/`BinarySearch`/`GetFunctionValue`).
//
// Unlike the original's in-process bisection loop, this produces one
// candidate per call: convergence across rounds happens at the concolic
// driver level, which re-infers a tighter [branch.Mono] from the next
// execution's observed distance before calling Solve again.
func solveMonotonic(cond *branch.Mono, cur *seed.Seed) ([]*seed.Seed, error) {
	mid := new(big.Int).Add(cond.LowerX, cond.UpperX)
	mid.Rsh(mid, 1)

	s, err := commitChunk(cur, bigmath.BE, cond.ByteLen, mid)
	if err != nil {
		return nil, nil //nolint:nilerr // an out-of-range midpoint is not an error, just no candidate
	}

	return []*seed.Seed{s}, nil
}

func commitChunk(cur *seed.Seed, endian bigmath.Endian, size int, value *big.Int) (*seed.Seed, error) {
	bytes, err := bigmath.IntToBytes(endian, size, value)
	if err != nil {
		return nil, fmt.Errorf("solver: encoding chunk: %w", err)
	}

	out := cur.Clone()
	if err := out.FixRun(out.Direction(), bytes); err != nil {
		return nil, fmt.Errorf("solver: committing chunk: %w", err)
	}

	return out, nil
}

// commitMidpoint commits the midpoint value of a [interval.BetweenKind]
// interval at the cursor, as a single byte. Inequality splits in this
// module are always computed over a one-byte MSB universe (spec.md §6
// Open Question 1), so a single byte is always enough.
func commitMidpoint(cur *seed.Seed, iv interval.Interval) (*seed.Seed, bool) {
	lo, hi, ok := iv.Bounds()
	if !ok {
		return nil, false
	}

	mid := new(big.Int).Add(lo, hi)
	mid.Rsh(mid, 1)

	s, err := commitChunk(cur, bigmath.BE, 1, mid)
	if err != nil {
		return nil, false
	}

	return s, true
}
