package inference

import (
	"math/big"

	"github.com/graycon/graycon/internal/bigmath"
	"github.com/graycon/graycon/internal/branch"
	"github.com/graycon/graycon/internal/byteval"
)

// InferLinearInequality builds a [branch.LinIneq] from a size-comparison
// branch point. The tight form reuses [InferLinearEquation] against the
// boundary distance; the loose form records neighboring try_value pairs
// whose distance changes sign (spec.md §4.4, Scenario 2).
//
// It returns false only when neither form could be built.
func InferLinearInequality(
	kind branch.CompareKind,
	infos []branch.Info,
	neighbors []byte,
	source byteval.Source,
) (*branch.LinIneq, bool) {
	var tight *branch.LinEq

	for _, triple := range GenComb(infos) {
		if eq, ok := InferLinearEquation(triple, neighbors, source); ok {
			tight = eq

			break
		}
	}

	loose := inferLooseInequality(infos)

	if tight == nil && loose == nil {
		return nil, false
	}

	return &branch.LinIneq{
		Signedness: kind.Signedness(),
		Tight:      tight,
		Loose:      loose,
	}, true
}

// inferLooseInequality collects up to three adjacent (x, x') pairs whose
// distance sign flips, for use when no exact tight boundary equation could
// be fit (spec.md §3, §4.4).
func inferLooseInequality(infos []branch.Info) *branch.SimpleLinIneq {
	var splits [][2]*big.Int

	for i := 0; i+1 < len(infos) && len(splits) < 3; i++ {
		s1 := branch.SignOf(infos[i].Distance)
		s2 := branch.SignOf(infos[i+1].Distance)

		if s1 != s2 && s1 != branch.Zero && s2 != branch.Zero {
			splits = append(splits, [2]*big.Int{infos[i].TryValue, infos[i+1].TryValue})
		}
	}

	if len(splits) == 0 {
		return nil
	}

	return &branch.SimpleLinIneq{
		Endian:      bigmath.BE,
		ChunkSize:   1,
		SplitPoints: splits,
	}
}
