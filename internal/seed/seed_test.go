package seed_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graycon/graycon/internal/byteval"
	"github.com/graycon/graycon/internal/seed"
)

func fromBytes(bs ...byte) []byteval.Value {
	out := make([]byteval.Value, len(bs))
	for i, b := range bs {
		out[i] = byteval.NewUntouched(b)
	}

	return out
}

func TestConcretize_MatchesLength(t *testing.T) {
	t.Parallel()

	vals := fromBytes(1, 2, 3)
	vals[1] = byteval.NewFixed(0x42)

	s, err := seed.New(vals, 0, seed.Right, seed.StdInput())
	require.NoError(t, err)

	got := s.Concretize()
	assert.Len(t, got, 3)
	assert.Equal(t, byte(0x42), got[1])
}

func TestProceedCursor_SkipsFixedAndWraps(t *testing.T) {
	t.Parallel()

	vals := []byteval.Value{
		byteval.NewFixed(0),
		byteval.NewUntouched(1),
		byteval.NewFixed(2),
		byteval.NewUntouched(3),
	}

	s, err := seed.New(vals, 1, seed.Right, seed.StdInput())
	require.NoError(t, err)

	ok := s.ProceedCursor(seed.Right)
	require.True(t, ok)
	assert.Equal(t, 3, s.CursorPos())

	ok = s.ProceedCursor(seed.Right)
	require.True(t, ok)
	assert.Equal(t, 1, s.CursorPos(), "wraps back to the only remaining unfixed byte")
}

func TestProceedCursor_NoProgressWhenAllFixed(t *testing.T) {
	t.Parallel()

	vals := []byteval.Value{byteval.NewFixed(0), byteval.NewFixed(1)}

	s, err := seed.New(vals, 0, seed.Right, seed.StdInput())
	require.NoError(t, err)

	err = s.RequireUnfixedCursor()
	require.ErrorIs(t, err, seed.ErrCursorOnFixedByte)

	ok := s.ProceedCursor(seed.Right)
	assert.False(t, ok)
}

func TestQueryUpdateBound_StopsAtFixed(t *testing.T) {
	t.Parallel()

	vals := []byteval.Value{
		byteval.NewUntouched(0),
		byteval.NewUntouched(1),
		byteval.NewFixed(2),
		byteval.NewUntouched(3),
	}

	s, err := seed.New(vals, 0, seed.Right, seed.StdInput())
	require.NoError(t, err)

	assert.Equal(t, 2, s.QueryUpdateBound(seed.Right))
	assert.Equal(t, 1, s.QueryUpdateBound(seed.Left))
}

func TestQueryNeighborBytes_IncludesCursor(t *testing.T) {
	t.Parallel()

	vals := fromBytes(0x10, 0x20, 0x30)

	s, err := seed.New(vals, 1, seed.Right, seed.StdInput())
	require.NoError(t, err)

	got := s.QueryNeighborBytes(seed.Right)
	assert.Equal(t, []byte{0x20, 0x30}, got)
}

func TestConstrainByteAt_ReturnsCopy(t *testing.T) {
	t.Parallel()

	vals := fromBytes(1, 2, 3)

	s, err := seed.New(vals, 0, seed.Right, seed.StdInput())
	require.NoError(t, err)

	cp, err := s.ConstrainByteAt(2, 10, 20)
	require.NoError(t, err)

	assert.Equal(t, byteval.Untouched, s.ByteAt(2).Kind(), "original is unchanged")
	assert.Equal(t, byteval.Interval, cp.ByteAt(2).Kind())
}

func TestFixRun_MutatesInPlace(t *testing.T) {
	t.Parallel()

	vals := fromBytes(0, 0, 0, 0)

	s, err := seed.New(vals, 1, seed.Right, seed.StdInput())
	require.NoError(t, err)

	err = s.FixRun(seed.Right, []byte{0x71, 0x72, 0x73})
	require.NoError(t, err)

	got := s.Concretize()
	assert.Equal(t, []byte{0, 0x71, 0x72, 0x73}, got)
	assert.Equal(t, byteval.Fixed, s.ByteAt(1).Kind())
}

func TestDirectionStay_EnumeratesAsRight(t *testing.T) {
	t.Parallel()

	assert.Equal(t, seed.Right, seed.Stay.EnumerationDirection())
	assert.Equal(t, seed.Left, seed.Left.EnumerationDirection())
}

func TestNew_RejectsOutOfRangeCursor(t *testing.T) {
	t.Parallel()

	_, err := seed.New(fromBytes(1, 2), 5, seed.Right, seed.StdInput())
	require.Error(t, err)
}
