package inference_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graycon/graycon/internal/bigmath"
	"github.com/graycon/graycon/internal/branch"
	"github.com/graycon/graycon/internal/byteval"
	"github.com/graycon/graycon/internal/inference"
)

func bi(v int64) *big.Int { return big.NewInt(v) }

func infoAt(tryValue, distance int64, width int) branch.Info {
	return branch.Info{
		Addr:     0x1000,
		Compare:  branch.Equality,
		TryValue: bi(tryValue),
		Width:    width,
		Distance: bi(distance),
	}
}

func infoWithTarget(tryValue, distance, operand2 int64, width int) branch.Info {
	info := infoAt(tryValue, distance, width)
	info.Operand2 = bi(operand2)

	return info
}

func TestCheckValidTarget(t *testing.T) {
	t.Parallel()

	assert.False(t, inference.CheckValidTarget(nil))
	assert.False(t, inference.CheckValidTarget([]branch.Info{infoAt(1, 5, 1), infoAt(2, 5, 1), infoAt(3, 5, 1)}))
	assert.True(t, inference.CheckValidTarget([]branch.Info{infoAt(1, 5, 1), infoAt(2, 4, 1), infoAt(3, 3, 1)}))
}

// A strict byte equality compare: distance = try_value - 0x25, observed at
// three try_values. The boundary root must land exactly on 0x25.
func TestInferLinearEquation_SingleByteRoot(t *testing.T) {
	t.Parallel()

	triple := [3]branch.Info{
		infoAt(0x10, 0x10-0x25, 1),
		infoAt(0x20, 0x20-0x25, 1),
		infoAt(0x30, 0x30-0x25, 1),
	}

	eq, ok := inference.InferLinearEquation(triple, nil, byteval.StdInput)
	require.True(t, ok)
	assert.Equal(t, 1, eq.ChunkSize)
	require.Len(t, eq.Solutions, 1)
	assert.Equal(t, int64(0x25), eq.Solutions[0].Int64())
}

// Three points that do not lie on one line must be rejected outright.
func TestInferLinearEquation_NonLinearRejected(t *testing.T) {
	t.Parallel()

	triple := [3]branch.Info{
		infoAt(0x01, 1, 1),
		infoAt(0x02, 4, 1),
		infoAt(0x03, 9, 1),
	}

	_, ok := inference.InferLinearEquation(triple, nil, byteval.StdInput)
	assert.False(t, ok)
}

// A 4-byte little-endian comparison at a cursor whose neighbor bytes are
// fixed: distance is linear in try_value at chunk_size 1, but the implied
// root falls far outside the single-byte range, so the detector must widen
// to chunk_size 4 and solve the whole field.
func TestInferLinearEquation_WidensToMultiByteChunk(t *testing.T) {
	t.Parallel()

	const target = int64(0x74737271)

	// Neighbor bytes as originally sampled: 0x00, 0x00, 0x00 for positions
	// 1..3. try_value occupies position 0, the field's least-significant byte.
	neighbors := []byte{0x00, 0x00, 0x00, 0x00}

	mkSample := func(tryValue int64) branch.Info {
		chunk := tryValue // LE, higher bytes are zero in the neighbor snapshot
		return infoAt(tryValue, chunk-target, 4)
	}

	triple := [3]branch.Info{mkSample(0x10), mkSample(0x20), mkSample(0x30)}

	eq, ok := inference.InferLinearEquation(triple, neighbors, byteval.StdInput)
	require.True(t, ok)
	assert.Equal(t, 4, eq.ChunkSize)
	assert.Equal(t, bigmath.LE, eq.Endian)
	require.Len(t, eq.Solutions, 1)
	assert.Equal(t, target, eq.Solutions[0].Int64())
}

// A signed less-than comparison: distance = try_value - 0x5e, so the tight
// boundary equation should solve directly.
func TestInferLinearInequality_TightBoundary(t *testing.T) {
	t.Parallel()

	infos := make([]branch.Info, 0, 10)
	for i := int64(0); i < 10; i++ {
		tv := i * 13
		infos = append(infos, infoAt(tv, tv-0x5e, 1))
	}

	ineq, ok := inference.InferLinearInequality(branch.SignedSize, infos, nil, byteval.StdInput)
	require.True(t, ok)
	assert.Equal(t, branch.Signed, ineq.Signedness)
	require.NotNil(t, ineq.Tight)
	require.Len(t, ineq.Tight.Solutions, 1)
	assert.Equal(t, int64(0x5e), ineq.Tight.Solutions[0].Int64())
}

// Loose inequality form: no exact line fits, but a sign change between two
// adjacent try_values brackets the boundary.
func TestInferLinearInequality_LooseSplitPoints(t *testing.T) {
	t.Parallel()

	infos := []branch.Info{
		infoAt(0x01, -50, 1),
		infoAt(0x40, -3, 1),
		infoAt(0x41, 200, 1), // non-linear jump, defeats the tight fit
		infoAt(0x80, 900, 1),
	}

	ineq, ok := inference.InferLinearInequality(branch.UnsignedSize, infos, nil, byteval.StdInput)
	require.True(t, ok)
	assert.Equal(t, branch.Unsigned, ineq.Signedness)
	require.NotNil(t, ineq.Loose)
	require.NotEmpty(t, ineq.Loose.SplitPoints)
	assert.Equal(t, int64(0x40), ineq.Loose.SplitPoints[0][0].Int64())
	assert.Equal(t, int64(0x41), ineq.Loose.SplitPoints[0][1].Int64())
}

// A non-linear but monotonic relationship: the tightest bracket around the
// target must come from the two points straddling it, not the outer
// endpoints of the full sample range.
func TestInferMonotonic_TightestBracket(t *testing.T) {
	t.Parallel()

	infos := []branch.Info{
		infoWithTarget(0x30, 0x12, 0x4a, 1),
		infoWithTarget(0x70, 0x4e, 0x4a, 1),
		infoWithTarget(0x90, 0x62, 0x4a, 1),
	}

	mono, ok := inference.InferMonotonic(infos)
	require.True(t, ok)
	assert.Equal(t, branch.Incr, mono.Tendency)
	assert.Equal(t, int64(0x30), mono.LowerX.Int64())
	assert.Equal(t, int64(0x12), mono.LowerY.Int64())
	assert.Equal(t, int64(0x70), mono.UpperX.Int64())
	assert.Equal(t, int64(0x4e), mono.UpperY.Int64())
}

func TestInferMonotonic_InconsistentTendencyRejected(t *testing.T) {
	t.Parallel()

	infos := []branch.Info{
		infoWithTarget(0x10, 5, 6, 1),
		infoWithTarget(0x20, 2, 6, 1),
		infoWithTarget(0x30, 9, 6, 1),
	}

	_, ok := inference.InferMonotonic(infos)
	assert.False(t, ok)
}

func TestInfer_EqualityPrefersLinearEquationOverMonotonic(t *testing.T) {
	t.Parallel()

	infos := []branch.Info{
		infoAt(0x10, 0x10-0x25, 1),
		infoAt(0x20, 0x20-0x25, 1),
		infoAt(0x30, 0x30-0x25, 1),
	}

	cond, ok := inference.Infer(branch.Equality, infos, inference.Context{Source: byteval.StdInput})
	require.True(t, ok)
	_, isLinEq := cond.(*branch.LinEq)
	assert.True(t, isLinEq)
}

func TestInfer_EqualityFallsBackToMonotonic(t *testing.T) {
	t.Parallel()

	infos := []branch.Info{
		infoWithTarget(0x30, 0x12, 0x4a, 1),
		infoWithTarget(0x70, 0x4e, 0x4a, 1),
		infoWithTarget(0x90, 0x62, 0x4a, 1),
	}

	cond, ok := inference.Infer(branch.Equality, infos, inference.Context{
		Source: byteval.StdInput,
	})
	require.True(t, ok)
	_, isMono := cond.(*branch.Mono)
	assert.True(t, isMono)
}
