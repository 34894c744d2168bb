// Package byteval implements the per-byte tagged value described in
// spec.md §3 ("Byte value") and the min/max bound rules of spec.md §4.2.
package byteval

import "fmt"

// Kind tags how a byte in a seed may be interpreted or mutated.
type Kind int

const (
	// Fixed is an immutable concrete byte.
	Fixed Kind = iota
	// Interval is a concrete byte constrained to a [Lo, Hi] range.
	Interval
	// Undecided is a concrete, re-assignable byte.
	Undecided
	// Untouched is the original byte value, never probed.
	Untouched
	// Sampled is a concrete byte produced by a probe.
	Sampled
)

// String implements [fmt.Stringer].
func (k Kind) String() string {
	switch k {
	case Fixed:
		return "Fixed"
	case Interval:
		return "Interval"
	case Undecided:
		return "Undecided"
	case Untouched:
		return "Untouched"
	case Sampled:
		return "Sampled"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Source is the seed's input channel, which determines whether the byte 0
// is an admissible value (spec.md §4.2).
type Source int

const (
	// StdInput feeds the seed to the target's standard input.
	StdInput Source = iota
	// FileInput feeds the seed through a file on disk.
	FileInput
)

// Value is a single tagged byte of a [seed.Seed].
type Value struct {
	kind   Kind
	b      byte
	lo, hi byte
}

// NewFixed returns an immutable concrete byte.
func NewFixed(b byte) Value { return Value{kind: Fixed, b: b} }

// NewInterval returns a byte constrained to [lo, hi]. Panics if lo > hi.
func NewInterval(lo, hi byte) Value {
	if lo > hi {
		panic(fmt.Sprintf("byteval: invalid interval [%d, %d]", lo, hi))
	}

	return Value{kind: Interval, lo: lo, hi: hi, b: lo}
}

// NewUndecided returns a concrete, re-assignable byte.
func NewUndecided(b byte) Value { return Value{kind: Undecided, b: b} }

// NewUntouched returns the original, never-probed byte.
func NewUntouched(b byte) Value { return Value{kind: Untouched, b: b} }

// NewSampled returns a concrete byte produced by a probe.
func NewSampled(b byte) Value { return Value{kind: Sampled, b: b} }

// Kind reports the tag of v.
func (v Value) Kind() Kind { return v.kind }

// Concretize returns the current concrete byte for v. For [Interval] this
// is the low bound until the byte is otherwise assigned.
func (v Value) Concretize() byte {
	if v.kind == Interval {
		return v.lo
	}

	return v.b
}

// Bounds returns the inclusive [lo, hi] range v may take.
//
// [Fixed] yields (v, v). [Interval] yields its recorded range. [Undecided],
// [Untouched] and [Sampled] yield (0, 255) for [StdInput], or (1, 255) for
// [FileInput] since file-backed sinks route the path through a NUL-terminated
// buffer (spec.md §4.2). [Untouched] is not called out separately in the
// spec text but is unfixed like the other two, so it shares their rule.
func (v Value) Bounds(source Source) (lo, hi byte) {
	switch v.kind {
	case Fixed:
		return v.b, v.b
	case Interval:
		return v.lo, v.hi
	case Undecided, Untouched, Sampled:
		if source == FileInput {
			return 1, 255
		}

		return 0, 255
	default:
		panic(fmt.Sprintf("byteval: unknown kind %v", v.kind))
	}
}

// IsUnfixed reports whether v may still be re-assigned: [Interval],
// [Undecided], or [Untouched] (spec.md §3).
func (v Value) IsUnfixed() bool {
	switch v.kind {
	case Interval, Undecided, Untouched:
		return true
	default:
		return false
	}
}

// WithConcrete returns a copy of v with its concrete byte replaced. For
// [Interval], the byte is clamped into the recorded range.
func (v Value) WithConcrete(b byte) Value {
	switch v.kind {
	case Interval:
		if b < v.lo {
			b = v.lo
		}

		if b > v.hi {
			b = v.hi
		}

		v.b = b

		return v
	default:
		v.b = b

		return v
	}
}
