package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graycon/graycon/internal/branch"
	"github.com/graycon/graycon/internal/tracer"
)

func TestPriorityOf(t *testing.T) {
	p, ok := PriorityOf(NewEdge)
	assert.True(t, ok)
	assert.Equal(t, Favored, p)

	p, ok = PriorityOf(NewPath)
	assert.True(t, ok)
	assert.Equal(t, Normal, p)

	_, ok = PriorityOf(NoGain)
	assert.False(t, ok)
}

func trace(addrs ...uint64) []branch.Info {
	out := make([]branch.Info, len(addrs))
	for i, a := range addrs {
		out[i] = branch.Info{Addr: a}
	}

	return out
}

func TestRecordCoverage_FirstTraceIsNewEdge(t *testing.T) {
	e := New(nil, nil)

	gain := e.recordCoverage(trace(1, 2, 3))
	assert.Equal(t, NewEdge, gain)
}

func TestRecordCoverage_SamePathIsNoGain(t *testing.T) {
	e := New(nil, nil)

	require.Equal(t, NewEdge, e.recordCoverage(trace(1, 2, 3)))
	assert.Equal(t, NoGain, e.recordCoverage(trace(1, 2, 3)))
}

func TestRecordCoverage_NewOrderOfKnownEdgesIsNewPath(t *testing.T) {
	e := New(nil, nil)

	require.Equal(t, NewEdge, e.recordCoverage(trace(1, 2, 3)))
	// 1->2 and 2->3 are known, but 3->1 is not, so this still gains an edge.
	require.Equal(t, NewEdge, e.recordCoverage(trace(1, 2, 3, 1, 2, 3)))
	assert.Equal(t, NoGain, e.recordCoverage(trace(1, 2, 3, 1, 2, 3)))
	// Every edge (2->3, 3->1, 1->2) is now known, but this sequence is not.
	assert.Equal(t, NewPath, e.recordCoverage(trace(2, 3, 1, 2)))
}

func TestRecordCoverage_UnseenEdgeIsNewEdge(t *testing.T) {
	e := New(nil, nil)

	require.Equal(t, NewEdge, e.recordCoverage(trace(1, 2, 3)))
	assert.Equal(t, NewEdge, e.recordCoverage(trace(1, 2, 4)))
}

func TestRecordCoverage_EmptyTraceIsNoGain(t *testing.T) {
	e := New(nil, nil)
	assert.Equal(t, NoGain, e.recordCoverage(nil))
}

func TestFindPoint(t *testing.T) {
	tr := []branch.Info{
		{Addr: 0x10, VisitIndex: 0},
		{Addr: 0x10, VisitIndex: 1},
		{Addr: 0x20, VisitIndex: 0},
	}

	got := findPoint(tr, branch.Point{Addr: 0x10, VisitIndex: 1})
	require.NotNil(t, got)
	assert.Equal(t, uint64(0x10), got.Addr)

	assert.Nil(t, findPoint(tr, branch.Point{Addr: 0x99, VisitIndex: 0}))
}

func TestNativeExecute_NoNativeTarget(t *testing.T) {
	e := New(nil, nil)

	_, err := e.NativeExecute(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoNativeTarget)
}

func TestCheckCrash_NewCrashOnCrashSignalWithNewEdge(t *testing.T) {
	e := New(nil, nil)

	isCrash, sig, err := e.CheckCrash(context.Background(), nil, tracer.SIGSEGV, NewEdge)
	require.NoError(t, err)
	assert.True(t, isCrash)
	assert.Equal(t, tracer.SIGSEGV, sig)
}

func TestCheckCrash_CrashWithoutNewEdgeIsNotReported(t *testing.T) {
	e := New(nil, nil)

	isCrash, _, err := e.CheckCrash(context.Background(), nil, tracer.SIGSEGV, NoGain)
	require.NoError(t, err)
	assert.False(t, isCrash)
}

func TestCheckCrash_TimeoutWithoutNativeTargetPropagatesError(t *testing.T) {
	e := New(nil, nil)

	_, _, err := e.CheckCrash(context.Background(), nil, tracer.Timeout, NewEdge)
	assert.ErrorIs(t, err, ErrNoNativeTarget)
}
