package solver

import (
	"math/big"

	"github.com/graycon/graycon/internal/branch"
	"github.com/graycon/graycon/internal/interval"
)

// msbUniverse returns the inclusive [0, max] range a comparison's
// most-significant byte can take for the given signedness.
func msbUniverse(s branch.Signedness) (lo, hi *big.Int) {
	if s == branch.Unsigned {
		return big.NewInt(0), big.NewInt(255)
	}

	return big.NewInt(0), big.NewInt(127)
}

// boundary picks the single split value separating the two sides of ineq:
// the tight equation's root when one was found, otherwise the midpoint of
// the first observed sign-flip pair (spec.md §4.4, `ExtractSplitPoint`
// preferring tight over loose).
func boundary(ineq *branch.LinIneq) (*big.Int, bool) {
	if ineq.Tight != nil && len(ineq.Tight.Solutions) > 0 {
		return ineq.Tight.Solutions[0], true
	}

	if ineq.Loose != nil && len(ineq.Loose.SplitPoints) > 0 {
		pair := ineq.Loose.SplitPoints[0]
		mid := new(big.Int).Add(pair[0], pair[1])
		mid.Rsh(mid, 1)

		return mid, true
	}

	return nil, false
}

// extractCond splits a linear inequality's MSB universe into the selected
// range and its complement, returning (positive, negative) byte
// constraints.
//
// The reference implementation's `ExtractCond` builds the negative side
// by calling `constraint::Make` on `pos_msb_ranges` a second time instead
// of `neg_msb_ranges`, so both sides end up identical — a bug. This
// builds the negative side as the actual set complement of the positive
// range within the signedness-derived universe instead.
func extractCond(ineq *branch.LinIneq) (pos, neg interval.ByteConstraint, ok bool) {
	sp, ok := boundary(ineq)
	if !ok {
		return nil, nil, false
	}

	lo, hi := msbUniverse(ineq.Signedness)
	if sp.Cmp(lo) < 0 {
		sp = lo
	}

	if sp.Cmp(hi) > 0 {
		sp = hi
	}

	pos = interval.ByteConstraint{interval.Between(sp, hi)}

	neg = interval.ByteConstraint{}

	if sp.Cmp(lo) > 0 {
		below := new(big.Int).Sub(sp, big.NewInt(1))
		neg = append(neg, interval.Between(lo, below))
	}

	return pos, interval.Normalize(neg), true
}
