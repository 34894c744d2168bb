package inference

import (
	"math/big"

	"github.com/graycon/graycon/internal/branch"
)

// InferMonotonic brackets the comparison's constant operand between the
// tightest pair of samples that straddle it, given a consistent
// strictly-increasing or strictly-decreasing tendency across the whole
// sample set (spec.md §4.4, Scenario 3).
//
// The target is the branch's own second operand (the value the cursor byte
// is being compared against), not an externally supplied value: every
// sample at one branch point compares against the same constant.
//
// It folds every sample into the bracket via [updateBracket] rather than
// just taking the triple's endpoints, so a later sample that lies outside
// the current bracket does not widen it back out.
func InferMonotonic(infos []branch.Info) (*branch.Mono, bool) {
	if len(infos) < 3 {
		return nil, false
	}

	tendency := classifyTendency(infos)
	if tendency == branch.Undetermined {
		return nil, false
	}

	byteLen := infos[0].Width
	if byteLen == 0 {
		byteLen = 1
	}

	lo, hi := byteRangeBounds(byteLen)

	mono := &branch.Mono{
		LowerX:   lo,
		UpperX:   hi,
		TargetY:  infos[0].Operand2,
		Tendency: tendency,
		ByteLen:  byteLen,
	}

	for _, info := range infos {
		updateBracket(mono, info.TryValue, info.Distance)
	}

	return mono, true
}

// classifyTendency reports Incr if distance strictly increases with
// try_value across the whole (assumed sorted ascending) sample set, Decr if
// it strictly decreases, and Undetermined otherwise.
func classifyTendency(infos []branch.Info) branch.Tendency {
	incr, decr := true, true

	for i := 1; i < len(infos); i++ {
		switch infos[i].Distance.Cmp(infos[i-1].Distance) {
		case 1:
			decr = false
		case -1:
			incr = false
		default:
			incr, decr = false, false
		}
	}

	switch {
	case incr:
		return branch.Incr
	case decr:
		return branch.Decr
	default:
		return branch.Undetermined
	}
}

// updateBracket tightens mono's bracket with an observed (x, y) point, only
// when doing so narrows the interval (spec.md §4.4).
func updateBracket(mono *branch.Mono, x, y *big.Int) {
	below := y.Cmp(mono.TargetY) < 0
	above := y.Cmp(mono.TargetY) > 0

	if mono.Tendency == branch.Decr {
		below, above = above, below
	}

	switch {
	case below && x.Cmp(mono.LowerX) > 0:
		mono.LowerX = x
		mono.LowerY = y
	case above && x.Cmp(mono.UpperX) < 0:
		mono.UpperX = x
		mono.UpperY = y
	}
}

func byteRangeBounds(byteLen int) (lo, hi *big.Int) {
	hi = new(big.Int).Lsh(big.NewInt(1), uint(byteLen)*8) //nolint:gosec // byteLen is a small chunk width
	hi.Sub(hi, big.NewInt(1))

	return big.NewInt(0), hi
}
