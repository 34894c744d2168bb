package queue

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graycon/graycon/internal/executor"
	"github.com/graycon/graycon/internal/seed"
)

func TestQueue_FavoredPopsBeforeNormal(t *testing.T) {
	q := New()
	q.Push(Item{Priority: executor.Normal})
	q.Push(Item{Priority: executor.Favored})

	item, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, executor.Favored, item.Priority)

	item, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, executor.Normal, item.Priority)

	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestQueue_SamePriorityIsFIFO(t *testing.T) {
	q := New()
	first := Item{Priority: executor.Normal, Seed: &seed.Seed{}}
	second := Item{Priority: executor.Normal, Seed: &seed.Seed{}}

	q.Push(first)
	q.Push(second)

	got1, _ := q.Pop()
	got2, _ := q.Pop()
	assert.Same(t, first.Seed, got1.Seed)
	assert.Same(t, second.Seed, got2.Seed)
}

func TestQueue_LenReflectsBothLanes(t *testing.T) {
	q := New()
	assert.Equal(t, 0, q.Len())

	q.Push(Item{Priority: executor.Favored})
	q.Push(Item{Priority: executor.Normal})
	assert.Equal(t, 2, q.Len())
}

func TestScheduler_ZeroBudgetNeverExpires(t *testing.T) {
	s := NewScheduler(0)
	assert.False(t, s.Expired())
}

func TestScheduler_ExpiresAfterBudget(t *testing.T) {
	fixed := time.Now()
	restore := now
	now = func() time.Time { return fixed }
	defer func() { now = restore }()

	s := NewScheduler(10 * time.Second)
	assert.False(t, s.Expired())

	now = func() time.Time { return fixed.Add(11 * time.Second) }
	assert.True(t, s.Expired())
}

func TestScheduler_RoundStatsResetOnNextRound(t *testing.T) {
	s := NewScheduler(0)
	s.EnableRoundStats()

	s.RecordTestCase()
	s.RecordTestCase()
	assert.Equal(t, 2, s.Snapshot().RoundTestCases)

	s.NextRound()
	assert.Equal(t, 0, s.Snapshot().RoundTestCases)
	assert.Equal(t, 2, s.Snapshot().TotalTestCases)
}

func TestScheduler_DisabledRoundStatsStillCountsTotal(t *testing.T) {
	s := NewScheduler(0)
	s.RecordTestCase()
	assert.Equal(t, 0, s.Snapshot().RoundTestCases)
	assert.Equal(t, 1, s.Snapshot().TotalTestCases)
}

func TestArtifactName_FormatsHexID(t *testing.T) {
	assert.Equal(t, "id:000000", ArtifactName(TestCaseKind, 0))
	assert.Equal(t, "id:0000ff", ArtifactName(CrashKind, 255))
}

func TestArtifactWriter_WritesUnderKindSubdir(t *testing.T) {
	dir := t.TempDir()
	w := NewArtifactWriter(dir)

	path, err := w.Write(CrashKind, 1, []byte("crash bytes"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "crashes", "id:000001"), path)
}

func TestStatsIndex_RecordAndSumRounds(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	idx, err := OpenStatsIndex(ctx, filepath.Join(dir, "stats.sqlite"))
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.RecordRound(ctx, 1, 10, "{}"))
	require.NoError(t, idx.RecordRound(ctx, 2, 5, `{"SIGSEGV":1}`))

	total, err := idx.TotalTestCases(ctx)
	require.NoError(t, err)
	assert.Equal(t, 15, total)
}
