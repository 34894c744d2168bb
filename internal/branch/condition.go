package branch

import (
	"math/big"

	"github.com/graycon/graycon/internal/bigmath"
)

// Condition is one of the three inferred forms described in spec.md §3:
// [LinEq], [LinIneq], or [Mono].
type Condition interface {
	isCondition()
}

// Linearity is the slope·(x−x0)+y0 model for a try_value → distance
// function (spec.md GLOSSARY). The slope is kept as a rational so it never
// collapses to a float (spec.md §9).
type Linearity struct {
	Slope  *big.Rat
	X0, Y0 *big.Int
	Target *big.Int
}

// LinEq is an exact linear equation inferred over three samples
// (spec.md §4.4). Solutions holds up to three integer roots within the
// chunk-size byte range.
type LinEq struct {
	Linearity
	Endian    bigmath.Endian
	ChunkSize int
	Solutions []*big.Int
}

func (LinEq) isCondition() {}

// SimpleLinIneq is the "loose" form of a linear inequality: up to three
// neighboring (x, x') pairs with opposite-sign distances (spec.md §3).
type SimpleLinIneq struct {
	Endian      bigmath.Endian
	ChunkSize   int
	Linearity   Linearity
	SplitPoints [][2]*big.Int
}

// LinIneq is a linear inequality, optionally carrying a tight boundary
// equation and/or a loose neighboring-pair form (spec.md §3, §4.4).
type LinIneq struct {
	Signedness Signedness
	Tight      *LinEq
	Loose      *SimpleLinIneq
}

func (LinIneq) isCondition() {}

// Tendency is the direction of monotonic change (spec.md GLOSSARY).
type Tendency int

const (
	// Incr means y strictly increases with x.
	Incr Tendency = iota
	// Decr means y strictly decreases with x.
	Decr
	// Undetermined means no consistent tendency was observed.
	Undetermined
)

// Mono is an inferred monotonic relationship with a bracket known to
// contain the target (spec.md §3, §4.4).
type Mono struct {
	LowerX, UpperX *big.Int
	LowerY, UpperY *big.Int // nil if not yet observed on that side
	TargetY        *big.Int
	Tendency       Tendency
	ByteLen        int
}

func (Mono) isCondition() {}

// ConditionAt pairs an inferred condition with the branch point it was
// inferred at (spec.md §3, "Branch condition").
type ConditionAt struct {
	Condition Condition
	Point     Point
}
