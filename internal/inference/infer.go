package inference

import (
	"github.com/graycon/graycon/internal/branch"
	"github.com/graycon/graycon/internal/byteval"
)

// Context carries the fixed, seed-derived inputs inference needs beyond the
// branch infos themselves: the concrete bytes surrounding the cursor
// (cursor byte first, outward in the seed's enumeration direction, per
// spec.md §4.5 "Context") and the seed's input channel.
type Context struct {
	Neighbors []byte
	Source    byteval.Source
}

// Infer attempts to build a [branch.Condition] from the branch infos
// observed for one branch point across the traces still sharing a common
// prefix (spec.md §4.4).
//
// infos must be sorted ascending by TryValue with distinct try_values.
// Equality comparisons try an exact linear equation first, falling back to
// monotonicity; size comparisons try a linear inequality first, falling
// back to monotonicity as well, since a boundary that is not linear can
// still be approached by bisection.
func Infer(compare branch.CompareKind, infos []branch.Info, ctx Context) (branch.Condition, bool) {
	if !CheckValidTarget(infos) {
		return nil, false
	}

	switch compare {
	case branch.Equality:
		for _, triple := range GenComb(infos) {
			if eq, ok := InferLinearEquation(triple, ctx.Neighbors, ctx.Source); ok {
				return eq, true
			}
		}
	case branch.SignedSize, branch.UnsignedSize:
		if ineq, ok := InferLinearInequality(compare, infos, ctx.Neighbors, ctx.Source); ok {
			return ineq, true
		}
	}

	if mono, ok := InferMonotonic(infos); ok {
		return mono, true
	}

	return nil, false
}
