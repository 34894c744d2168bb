package bigmath_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graycon/graycon/internal/bigmath"
)

func TestBytesToInt_Unsigned(t *testing.T) {
	t.Parallel()

	got := bigmath.BytesToInt(bigmath.BE, false, []byte{0xff, 0x00})
	assert.Equal(t, big.NewInt(0xff00), got)
}

func TestBytesToInt_SignedNegative(t *testing.T) {
	t.Parallel()

	got := bigmath.BytesToInt(bigmath.BE, true, []byte{0xff})
	assert.Equal(t, big.NewInt(-1), got)
}

func TestBytesToInt_LittleEndian(t *testing.T) {
	t.Parallel()

	got := bigmath.BytesToInt(bigmath.LE, false, []byte{0x71, 0x72, 0x73, 0x74})
	assert.Equal(t, big.NewInt(0x74737271), got)
}

func TestIntToBytes_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		endian bigmath.Endian
		size   int
		value  int64
	}{
		{bigmath.BE, 1, 0x5e},
		{bigmath.LE, 4, 0x74737271},
		{bigmath.BE, 2, -1},
		{bigmath.LE, 8, -12345},
	} {
		b, err := bigmath.IntToBytes(tc.endian, tc.size, big.NewInt(tc.value))
		require.NoError(t, err)
		require.Len(t, b, tc.size)

		signed := tc.value < 0
		back := bigmath.BytesToInt(tc.endian, signed, b)
		assert.Equal(t, big.NewInt(tc.value), back)
	}
}

func TestIntToBytes_OutOfRange(t *testing.T) {
	t.Parallel()

	_, err := bigmath.IntToBytes(bigmath.BE, 1, big.NewInt(300))
	require.Error(t, err)
}

func TestSolveLinear(t *testing.T) {
	t.Parallel()

	slope := big.NewRat(2, 1)
	x0 := big.NewInt(0x30)
	y0 := big.NewInt(0x60)
	target := big.NewInt(0x4a)

	x, ok := bigmath.SolveLinear(slope, x0, y0, target)
	require.True(t, ok)
	assert.Equal(t, big.NewInt(0x25), x)
}

func TestSolveLinear_NonIntegral(t *testing.T) {
	t.Parallel()

	slope := big.NewRat(3, 1)
	x0 := big.NewInt(0)
	y0 := big.NewInt(0)
	target := big.NewInt(1)

	_, ok := bigmath.SolveLinear(slope, x0, y0, target)
	assert.False(t, ok)
}

func TestSolveLinear_ZeroSlope(t *testing.T) {
	t.Parallel()

	_, ok := bigmath.SolveLinear(big.NewRat(0, 1), big.NewInt(0), big.NewInt(0), big.NewInt(5))
	assert.False(t, ok)
}
