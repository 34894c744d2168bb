// Package seed implements the byte-vector seed model of spec.md §3 and §4.2:
// an ordered sequence of [byteval.Value]s with a cursor, a cursor direction,
// and an input source.
package seed

import (
	"errors"
	"fmt"

	"github.com/graycon/graycon/internal/byteval"
)

// Direction is the side of the cursor that neighbor queries grow toward.
type Direction int

const (
	// Right is the ascending-index growing side.
	Right Direction = iota
	// Left is the descending-index growing side.
	Left
	// Stay means the cursor does not prefer either side. The reference
	// behavior only enumerates Right and Left when encoding a condition
	// into concrete bytes; per spec.md §9's open question, Stay is treated
	// as Right wherever byte-offset enumeration is required.
	Stay
)

// EnumerationDirection resolves Stay to Right for callers that must
// enumerate bytes in one concrete direction (spec.md §9).
func (d Direction) EnumerationDirection() Direction {
	if d == Stay {
		return Right
	}

	return d
}

// Source identifies how the concretized seed reaches the target.
type Source struct {
	Kind byteval.Source
	Path string // only meaningful when Kind == byteval.FileInput
}

// StdInput returns a [Source] that pipes the seed to the target's stdin.
func StdInput() Source { return Source{Kind: byteval.StdInput} }

// FileInput returns a [Source] that writes the seed to path before running
// the target.
func FileInput(path string) Source { return Source{Kind: byteval.FileInput, Path: path} }

// ErrCursorOnFixedByte is the invariant-violation error raised when an
// operation that requires an unfixed cursor byte finds a [byteval.Fixed]
// byte instead (spec.md §4.9, "Cursor pointing at a Fixed byte").
var ErrCursorOnFixedByte = errors.New("seed: cursor is on a fixed byte")

// Seed is the byte-vector input template described in spec.md §3.
type Seed struct {
	bytes  []byteval.Value
	cursor int
	dir    Direction
	source Source
}

// New builds a seed from bytes with the cursor at pos. It returns an error
// if bytes is empty and pos != 0, or if pos is out of range.
func New(bytes []byteval.Value, pos int, dir Direction, source Source) (*Seed, error) {
	if len(bytes) == 0 && pos != 0 {
		return nil, fmt.Errorf("seed: cursor %d on an empty seed", pos)
	}

	if len(bytes) > 0 && (pos < 0 || pos >= len(bytes)) {
		return nil, fmt.Errorf("seed: cursor %d out of range [0, %d)", pos, len(bytes))
	}

	cp := make([]byteval.Value, len(bytes))
	copy(cp, bytes)

	return &Seed{bytes: cp, cursor: pos, dir: dir, source: source}, nil
}

// Len returns the number of bytes in the seed.
func (s *Seed) Len() int { return len(s.bytes) }

// Source returns the seed's input channel.
func (s *Seed) Source() Source { return s.source }

// Direction returns the cursor's current growing direction.
func (s *Seed) Direction() Direction { return s.dir }

// CursorPos returns the cursor's byte index.
func (s *Seed) CursorPos() int { return s.cursor }

// CurrentByte returns the byte value at the cursor.
func (s *Seed) CurrentByte() byteval.Value { return s.bytes[s.cursor] }

// ByteAt returns the byte value at index i.
func (s *Seed) ByteAt(i int) byteval.Value { return s.bytes[i] }

// Concretize returns the raw bytes of the seed.
func (s *Seed) Concretize() []byte {
	out := make([]byte, len(s.bytes))
	for i, v := range s.bytes {
		out[i] = v.Concretize()
	}

	return out
}

// Clone returns a deep, independent copy of s.
func (s *Seed) Clone() *Seed {
	cp := make([]byteval.Value, len(s.bytes))
	copy(cp, s.bytes)

	return &Seed{bytes: cp, cursor: s.cursor, dir: s.dir, source: s.source}
}

// SetCurrentByte replaces the byte value at the cursor in place.
func (s *Seed) SetCurrentByte(v byteval.Value) { s.bytes[s.cursor] = v }

// WithCurrentByte returns a copy of s with the cursor byte replaced.
func (s *Seed) WithCurrentByte(v byteval.Value) *Seed {
	cp := s.Clone()
	cp.bytes[cp.cursor] = v

	return cp
}

// ConstrainByteAt returns a copy of s with byte i constrained to [lo, hi].
// It is an error for i to be out of range.
func (s *Seed) ConstrainByteAt(i int, lo, hi byte) (*Seed, error) {
	if i < 0 || i >= len(s.bytes) {
		return nil, fmt.Errorf("seed: byte index %d out of range [0, %d)", i, len(s.bytes))
	}

	cp := s.Clone()
	cp.bytes[i] = byteval.NewInterval(lo, hi)

	return cp, nil
}

// FixRun replaces values starting at the cursor and moving in dir with
// [byteval.Fixed] tags carrying the given concrete bytes (spec.md §3,
// "fix current bytes"). It mutates s in place.
func (s *Seed) FixRun(dir Direction, values []byte) error {
	step := directionStep(dir)
	i := s.cursor

	for _, b := range values {
		if i < 0 || i >= len(s.bytes) {
			return fmt.Errorf("seed: fix run overruns seed bounds at index %d", i)
		}

		s.bytes[i] = byteval.NewFixed(b)
		i += step
	}

	return nil
}

// ProceedCursor advances the cursor to the next unfixed byte following dir,
// wrapping once if necessary (spec.md §4.2). It reports false ("no
// progress") if every byte is fixed. On success, the seed's direction is
// updated to dir.
func (s *Seed) ProceedCursor(dir Direction) bool {
	dir = dir.EnumerationDirection()
	step := directionStep(dir)
	n := len(s.bytes)

	if n == 0 {
		return false
	}

	for offset := 1; offset <= n; offset++ {
		idx := wrapIndex(s.cursor+step*offset, n)
		if s.bytes[idx].IsUnfixed() {
			s.cursor = idx
			s.dir = dir

			return true
		}
	}

	return false
}

// QueryUpdateBound returns the number of contiguous unfixed bytes reachable
// from the cursor toward dir, stopping at (not including) the first
// [byteval.Fixed] byte or the end of the seed (spec.md §4.2).
func (s *Seed) QueryUpdateBound(dir Direction) int {
	dir = dir.EnumerationDirection()
	step := directionStep(dir)

	count := 0

	for i := s.cursor; i >= 0 && i < len(s.bytes); i += step {
		if s.bytes[i].Kind() == byteval.Fixed {
			break
		}

		count++
	}

	return count
}

// QueryNeighborBytes returns the concrete values of the bytes reachable
// from the cursor toward dir (including the cursor byte itself), up to the
// first fixed byte (spec.md §4.2).
func (s *Seed) QueryNeighborBytes(dir Direction) []byte {
	dir = dir.EnumerationDirection()
	step := directionStep(dir)
	n := s.QueryUpdateBound(dir)

	out := make([]byte, 0, n)
	i := s.cursor

	for range n {
		out = append(out, s.bytes[i].Concretize())
		i += step
	}

	return out
}

// RequireUnfixedCursor returns [ErrCursorOnFixedByte] if the cursor is on a
// fixed byte. Callers invoke this before operations that assume a
// re-assignable cursor byte (spec.md §4.9).
func (s *Seed) RequireUnfixedCursor() error {
	if s.bytes[s.cursor].Kind() == byteval.Fixed {
		return ErrCursorOnFixedByte
	}

	return nil
}

func directionStep(dir Direction) int {
	if dir == Left {
		return -1
	}

	return 1
}

func wrapIndex(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}

	return i
}
