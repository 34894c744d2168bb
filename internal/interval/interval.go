// Package interval implements the interval/constraint algebra of spec.md §3
// and §4.3: intervals, byte-constraints (a disjunction of intervals for one
// byte), and path constraints (a conjunction of byte-constraints), matching
// the flattened Vec-of-Vec representation spec.md §9 allows.
package interval

import "math/big"

// Kind tags an [Interval]'s variant.
type Kind int

const (
	// BottomKind is the absorbing element (no satisfying value).
	BottomKind Kind = iota
	// TopKind is the identity element (every value satisfies it).
	TopKind
	// BetweenKind restricts a value to an inclusive [Lo, Hi] range.
	BetweenKind
)

// Interval is one alternative of a [ByteConstraint] (spec.md §3).
type Interval struct {
	kind   Kind
	lo, hi *big.Int
}

// Top returns the identity interval.
func Top() Interval { return Interval{kind: TopKind} }

// Bottom returns the absorbing interval.
func Bottom() Interval { return Interval{kind: BottomKind} }

// Between returns an interval restricting values to [lo, hi]. If lo > hi,
// the range is empty and [Bottom] is returned instead.
func Between(lo, hi *big.Int) Interval {
	if lo.Cmp(hi) > 0 {
		return Bottom()
	}

	return Interval{kind: BetweenKind, lo: lo, hi: hi}
}

// Kind reports iv's variant.
func (iv Interval) Kind() Kind { return iv.kind }

// Bounds returns iv's range when iv is [BetweenKind].
func (iv Interval) Bounds() (lo, hi *big.Int, ok bool) {
	if iv.kind != BetweenKind {
		return nil, nil, false
	}

	return iv.lo, iv.hi, true
}

// Conjunction combines two intervals per spec.md §4.3:
//
//	Top ∧ x = x;  Bottom ∧ x = Bottom
//	Between(a,b) ∧ Between(c,d) = Between(max(a,c), min(b,d)), or Bottom if empty
func Conjunction(a, b Interval) Interval {
	switch {
	case a.kind == BottomKind || b.kind == BottomKind:
		return Bottom()
	case a.kind == TopKind:
		return b
	case b.kind == TopKind:
		return a
	default:
		lo := a.lo
		if b.lo.Cmp(lo) > 0 {
			lo = b.lo
		}

		hi := a.hi
		if b.hi.Cmp(hi) < 0 {
			hi = b.hi
		}

		return Between(lo, hi)
	}
}

// ByteConstraint is a disjunction of intervals constraining one byte
// (spec.md §3).
type ByteConstraint []Interval

// TopByteConstraint is a byte constraint that admits every value.
func TopByteConstraint() ByteConstraint { return ByteConstraint{Top()} }

// ConjunctionByteConstraint computes the pairwise product of a and b's
// alternatives, then normalizes (spec.md §4.3).
func ConjunctionByteConstraint(a, b ByteConstraint) ByteConstraint {
	product := make(ByteConstraint, 0, len(a)*len(b))

	for _, x := range a {
		for _, y := range b {
			product = append(product, Conjunction(x, y))
		}
	}

	return Normalize(product)
}

// Normalize drops [Bottom] alternatives and collapses to [Top] if any
// alternative is [Top] (spec.md §3, §8).
func Normalize(bc ByteConstraint) ByteConstraint {
	for _, iv := range bc {
		if iv.kind == TopKind {
			return TopByteConstraint()
		}
	}

	out := make(ByteConstraint, 0, len(bc))

	for _, iv := range bc {
		if iv.kind != BottomKind {
			out = append(out, iv)
		}
	}

	return out
}

// Constraint is the per-byte constraint list for a condition (spec.md §3).
type Constraint []ByteConstraint

// TopConstraint is the identity constraint: no bytes are restricted.
func TopConstraint() Constraint { return nil }

// IsTop reports whether c restricts nothing, either because it's empty or
// every byte constraint is [Top].
func (c Constraint) IsTop() bool {
	for _, bc := range c {
		if len(bc) != 1 || bc[0].kind != TopKind {
			return false
		}
	}

	return true
}

// ConjunctionConstraint zips a and b elementwise, filling the shorter side with
// [Top] (spec.md §4.3).
func ConjunctionConstraint(a, b Constraint) Constraint {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}

	out := make(Constraint, n)

	for i := range n {
		x := TopByteConstraint()
		if i < len(a) {
			x = a[i]
		}

		y := TopByteConstraint()
		if i < len(b) {
			y = b[i]
		}

		out[i] = ConjunctionByteConstraint(x, y)
	}

	return out
}

// Make constructs a constraint of the given size where only the
// most-significant byte is restricted to msbRanges; every other byte is
// [Top]. The MSB position depends on endian: BE places it first, LE places
// it last (spec.md §4.3).
func Make(msbRanges ByteConstraint, endianIsLE bool, size int) Constraint {
	out := make(Constraint, size)
	for i := range out {
		out[i] = TopByteConstraint()
	}

	if size == 0 {
		return out
	}

	idx := 0
	if endianIsLE {
		idx = size - 1
	}

	out[idx] = msbRanges

	return out
}
