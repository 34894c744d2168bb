// Package bigmath provides the arbitrary-precision integer and rational
// helpers shared by the inference and solver packages.
//
// Branch distances can reflect 64-bit unsigned operand subtractions that
// overflow signed 64-bit, and the slope of an inferred linear relation must
// keep its numerator and denominator separate rather than collapsing to a
// float (spec.md §9). [math/big] is the standard library, but it is the one
// place the spec itself mandates arbitrary precision — there is no
// third-party alternative in the retrieval pack to prefer here.
package bigmath

import (
	"fmt"
	"math/big"
)

// Endian selects the byte order used when interpreting or encoding a
// multi-byte operand chunk. Single-byte chunks ignore endianness
// (spec.md §4.1).
type Endian int

const (
	// BE is the default endianness when producing chunks of two or more
	// bytes (spec.md §4.1).
	BE Endian = iota
	LE
)

// String implements [fmt.Stringer].
func (e Endian) String() string {
	if e == LE {
		return "LE"
	}

	return "BE"
}

// BytesToInt interprets b as an arbitrary-precision integer using the given
// byte order. If signed is true, the high bit is sign-extended
// (spec.md §4.1).
func BytesToInt(endian Endian, signed bool, b []byte) *big.Int {
	ordered := toMSBFirst(endian, b)

	v := new(big.Int).SetBytes(ordered)
	if !signed || len(ordered) == 0 || ordered[0]&0x80 == 0 {
		return v
	}

	bound := new(big.Int).Lsh(big.NewInt(1), uint(len(ordered))*8) //nolint:gosec // len bounded by chunk size

	return v.Sub(v, bound)
}

// IntToBytes encodes v into exactly size bytes using the given byte order,
// producing the two's-complement representation when v is negative. It
// returns an error if v does not fit in size bytes.
func IntToBytes(endian Endian, size int, v *big.Int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("bigmath: size must be positive, got %d", size)
	}

	u := new(big.Int).Set(v)
	if v.Sign() < 0 {
		bound := new(big.Int).Lsh(big.NewInt(1), uint(size)*8) //nolint:gosec // size is a small chunk width
		u.Add(u, bound)
	}

	max := new(big.Int).Lsh(big.NewInt(1), uint(size)*8) //nolint:gosec // size is a small chunk width
	if u.Sign() < 0 || u.Cmp(max) >= 0 {
		return nil, fmt.Errorf("bigmath: %s does not fit in %d bytes", v, size)
	}

	raw := u.Bytes()
	msbFirst := make([]byte, size)
	copy(msbFirst[size-len(raw):], raw)

	return toMSBFirst(endian, msbFirst), nil
}

// toMSBFirst converts between wire order and most-significant-byte-first
// order. The conversion is its own inverse, so it is used for both
// directions.
func toMSBFirst(endian Endian, b []byte) []byte {
	if endian == BE || len(b) <= 1 {
		return b
	}

	rev := make([]byte, len(b))
	for i, c := range b {
		rev[len(b)-1-i] = c
	}

	return rev
}

// SolveLinear returns the x satisfying slope*(x-x0)+y0 == target, or false
// if slope is zero or the solution is not an integer (spec.md §4.4).
func SolveLinear(slope *big.Rat, x0, y0, target *big.Int) (*big.Int, bool) {
	if slope == nil || slope.Sign() == 0 {
		return nil, false
	}

	diff := new(big.Rat).SetInt(new(big.Int).Sub(target, y0))
	x := new(big.Rat).Quo(diff, slope)
	x.Add(x, new(big.Rat).SetInt(x0))

	if !x.IsInt() {
		return nil, false
	}

	return new(big.Int).Set(x.Num()), true
}

// Clamp returns v saturated into [lo, hi].
func Clamp(v, lo, hi *big.Int) *big.Int {
	if v.Cmp(lo) < 0 {
		return new(big.Int).Set(lo)
	}

	if v.Cmp(hi) > 0 {
		return new(big.Int).Set(hi)
	}

	return new(big.Int).Set(v)
}

// InRange reports whether lo <= v <= hi.
func InRange(v, lo, hi *big.Int) bool {
	return v.Cmp(lo) >= 0 && v.Cmp(hi) <= 0
}
