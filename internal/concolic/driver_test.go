package concolic

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graycon/graycon/internal/byteval"
	"github.com/graycon/graycon/internal/executor"
	"github.com/graycon/graycon/internal/seed"
	"github.com/graycon/graycon/internal/tracer"
)

func TestSampleRange_SpreadsEvenlyAcrossBounds(t *testing.T) {
	got := sampleRange(0, 255, 3)
	assert.Equal(t, []byte{0, 127, 255}, got)
}

func TestSampleRange_SingleSampleIsLowBound(t *testing.T) {
	got := sampleRange(10, 20, 1)
	assert.Equal(t, []byte{10}, got)
}

// emptyResponseScript prints a well-formed, record-less tracer response
// frame (the 12-byte all-zero header, no records, no output) to stdout.
const emptyResponseScript = "printf '\\000\\000\\000\\000\\000\\000\\000\\000\\000\\000\\000\\000'"

func newTrivialExecutor(t *testing.T) *executor.Executor {
	t.Helper()

	s, err := tracer.NewSession(context.Background(), tracer.Config{
		Path:    "/bin/sh",
		Args:    []string{"-c", emptyResponseScript},
		Mode:    tracer.SpawnPerCall,
		Timeout: time.Second,
	})
	require.NoError(t, err)

	return executor.New(s, nil)
}

func newSeedFixture(t *testing.T, n int) *seed.Seed {
	t.Helper()

	vals := make([]byteval.Value, n)
	for i := range vals {
		vals[i] = byteval.NewUndecided(0)
	}

	s, err := seed.New(vals, 0, seed.Right, seed.StdInput())
	require.NoError(t, err)

	return s
}

func TestRunRound_TargetWithNoBranchesYieldsNoCandidates(t *testing.T) {
	exec := newTrivialExecutor(t)
	defer exec.Close()

	d := New(exec, 3, 1)
	rng := rand.New(rand.NewSource(1))

	got, err := d.RunRound(context.Background(), rng, newSeedFixture(t, 4))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRunRound_EmptySeedProbesNothing(t *testing.T) {
	exec := newTrivialExecutor(t)
	defer exec.Close()

	d := New(exec, 3, 1)
	rng := rand.New(rand.NewSource(1))

	s, err := seed.New(nil, 0, seed.Right, seed.StdInput())
	require.NoError(t, err)

	got, err := d.RunRound(context.Background(), rng, s)
	require.NoError(t, err)
	assert.Empty(t, got)
}
