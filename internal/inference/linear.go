// Package inference implements the linear-equation, linear-inequality, and
// monotonicity detectors of spec.md §4.4, run over small triples of branch
// infos sampled at the same branch point.
package inference

import (
	"math/big"

	"github.com/graycon/graycon/internal/bigmath"
	"github.com/graycon/graycon/internal/branch"
	"github.com/graycon/graycon/internal/byteval"
)

// BranchCombWindow bounds the triple-sampling window of [GenComb] so
// inference stays well short of the O(n³) combination count when many
// samples are available (spec.md §4.4, §9 "Inference windowing" — exposed
// as a build-time constant rather than runtime configuration, per the
// spec's own recommendation).
const BranchCombWindow = 6

// CheckValidTarget rejects a sample set that cannot possibly carry a useful
// inference: fewer than three samples, or every distance equal
// (spec.md §4.4).
func CheckValidTarget(infos []branch.Info) bool {
	if len(infos) < 3 {
		return false
	}

	for _, info := range infos[1:] {
		if info.Distance.Cmp(infos[0].Distance) != 0 {
			return true
		}
	}

	return false
}

// GenComb enumerates candidate triples from infos (assumed sorted ascending
// by TryValue with distinct try_values) using a sliding window of size
// [BranchCombWindow], plus every head paired with two samples drawn from
// each window, so the head's relationship to the rest of the trace is
// always tested without enumerating all C(n,3) combinations.
func GenComb(infos []branch.Info) [][3]branch.Info {
	n := len(infos)
	if n < 3 {
		return nil
	}

	window := BranchCombWindow
	if window > n {
		window = n
	}

	seen := make(map[[3]int]bool)

	var out [][3]branch.Info

	addTriple := func(i, j, k int) {
		key := [3]int{i, j, k}
		if seen[key] {
			return
		}

		seen[key] = true
		out = append(out, [3]branch.Info{infos[i], infos[j], infos[k]})
	}

	for start := 0; start+window <= n; start++ {
		end := start + window
		for i := start; i < end; i++ {
			for j := i + 1; j < end; j++ {
				for k := j + 1; k < end; k++ {
					addTriple(i, j, k)
				}
			}
		}
	}

	for start := 1; start+2 <= n; start++ {
		end := start + window
		if end > n {
			end = n
		}

		for j := start; j < end; j++ {
			for k := j + 1; k < end; k++ {
				addTriple(0, j, k)
			}
		}
	}

	return out
}

// candidateChunkSizes orders the widths to try, preferring the width the
// tracer actually observed for this comparison before exploring the rest
// (spec.md §4.4's "multi-byte chunks are also considered").
func candidateChunkSizes(observedWidth int) []int {
	order := []int{observedWidth, 1, 2, 4, 8}

	out := make([]int, 0, len(order))
	seen := make(map[int]bool)

	for _, w := range order {
		if w >= 1 && !seen[w] {
			seen[w] = true

			out = append(out, w)
		}
	}

	return out
}

func chunkRange(size int, source byteval.Source) (lo, hi *big.Int) {
	if size == 1 {
		if source == byteval.FileInput {
			return big.NewInt(1), big.NewInt(255)
		}

		return big.NewInt(0), big.NewInt(255)
	}

	hi = new(big.Int).Lsh(big.NewInt(1), uint(size)*8) //nolint:gosec // size is a small chunk width
	hi.Sub(hi, big.NewInt(1))

	return big.NewInt(0), hi
}

// chunkXs builds the per-sample x-coordinates for a candidate chunk
// interpretation: the chunk byte at the cursor position is the sample's
// try_value, the remaining bytes come from the fixed neighbor context
// captured when the concolic driver built the branch tree (spec.md §4.5,
// "Context").
func chunkXs(triple [3]branch.Info, neighbors []byte, size int, endian bigmath.Endian) ([3]*big.Int, bool) {
	var xs [3]*big.Int

	if size == 1 {
		for i, info := range triple {
			xs[i] = info.TryValue
		}

		return xs, true
	}

	if len(neighbors) < size {
		return xs, false
	}

	for i, info := range triple {
		chunk := make([]byte, size)
		chunk[0] = byte(info.TryValue.Int64())
		copy(chunk[1:], neighbors[1:size])
		xs[i] = bigmath.BytesToInt(endian, false, chunk)
	}

	return xs, true
}

// fitLinear returns the common rational slope if the three (x, y) points
// lie on one line, and false if they are colinear in x but not y, or if x
// is not distinct (spec.md §4.4).
func fitLinear(xs, ys [3]*big.Int) (*big.Rat, bool) {
	dx1 := new(big.Int).Sub(xs[1], xs[0])
	if dx1.Sign() == 0 {
		return nil, false
	}

	dy1 := new(big.Int).Sub(ys[1], ys[0])
	slope := new(big.Rat).SetFrac(dy1, dx1)

	dx2 := new(big.Int).Sub(xs[2], xs[0])
	dy2 := new(big.Int).Sub(ys[2], ys[0])

	expected := new(big.Rat).Mul(slope, new(big.Rat).SetInt(dx2))
	if expected.Cmp(new(big.Rat).SetInt(dy2)) != 0 {
		return nil, false
	}

	return slope, true
}

// InferLinearEquation fits a linear equation to a branch-info triple,
// trying the observed operand width first and then the remaining chunk
// widths of 1, 2, 4 and 8 bytes (big-endian, then little-endian, for
// multi-byte widths) until one yields an in-range integer root
// (spec.md §4.4, Scenario 1 and Scenario 5).
func InferLinearEquation(triple [3]branch.Info, neighbors []byte, source byteval.Source) (*branch.LinEq, bool) {
	ys := [3]*big.Int{triple[0].Distance, triple[1].Distance, triple[2].Distance}

	for _, size := range candidateChunkSizes(triple[0].Width) {
		endians := []bigmath.Endian{bigmath.BE}
		if size > 1 {
			endians = append(endians, bigmath.LE)
		}

		for _, endian := range endians {
			xs, ok := chunkXs(triple, neighbors, size, endian)
			if !ok {
				continue
			}

			slope, ok := fitLinear(xs, ys)
			if !ok {
				continue
			}

			target := big.NewInt(0)

			root, ok := bigmath.SolveLinear(slope, xs[0], ys[0], target)
			if !ok {
				continue
			}

			lo, hi := chunkRange(size, source)
			if !bigmath.InRange(root, lo, hi) {
				continue
			}

			return &branch.LinEq{
				Linearity: branch.Linearity{Slope: slope, X0: xs[0], Y0: ys[0], Target: target},
				Endian:    endian,
				ChunkSize: size,
				Solutions: []*big.Int{root},
			}, true
		}
	}

	return nil, false
}
