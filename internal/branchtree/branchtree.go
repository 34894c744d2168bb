// Package branchtree builds the recursive [branch.Tree] out of a batch of
// branch traces sharing a common prefix (spec.md §4.5).
package branchtree

import (
	"sort"

	"github.com/graycon/graycon/internal/branch"
	"github.com/graycon/graycon/internal/inference"
)

// visitCounts tracks how many times each branch address has been visited
// along the path being folded into a tree, so repeated visits to the same
// instruction get distinct [branch.Point]s (spec.md §3 "Branch point").
type visitCounts map[uint64]int

// Make builds a [branch.Tree] out of a batch of branch traces, grouping by
// the first address they visit and discarding groups too small to support
// inference (spec.md §4.5, "make").
func Make(traces []branch.Trace, ctx inference.Context) branch.Tree {
	nonEmpty := make([]branch.Trace, 0, len(traces))

	for _, tr := range traces {
		if len(tr) > 0 {
			nonEmpty = append(nonEmpty, tr)
		}
	}

	groups := groupByAddr(nonEmpty, 0)

	var subtrees []branch.Tree

	for _, g := range groups {
		if len(g) >= 3 {
			subtrees = append(subtrees, makeAux(g, visitCounts{}, ctx))
		}
	}

	if len(subtrees) == 1 {
		return subtrees[0]
	}

	return branch.Diverge{Subtrees: subtrees}
}

// makeAux assumes every trace in traces begins with the same address
// (spec.md §4.5, "make_aux").
func makeAux(traces []branch.Trace, visits visitCounts, ctx inference.Context) branch.Tree {
	remaining, seq := extractStraightSeq(traces, visits, ctx)
	if len(remaining) == 0 {
		return branch.Straight{Seq: seq}
	}

	heads := headInfos(remaining)
	sortByTryValue(heads)

	addr := heads[0].Addr
	point := branch.Point{Addr: addr, VisitIndex: visits[addr]}

	visits[addr]++

	cond, ok := inference.Infer(heads[0].Compare, heads, ctx)
	if !ok {
		return buildDivergeTree(seq, remaining, visits, ctx)
	}

	condAt := branch.ConditionAt{Condition: cond, Point: point}

	if haveSameDistanceSign(remaining) {
		seq = appendSeq(seq, &condAt, branch.SignOf(remaining[0][0].Distance))

		return buildDivergeTree(seq, remaining, visits, ctx)
	}

	return buildForkTree(seq, condAt, remaining, visits, ctx)
}

// extractStraightSeq peels off a straight-line prefix shared by every
// trace, recording one [branch.SeqEntry] per peeled address (each new entry
// goes to the front of the sequence, so it is newest first), and stops at
// the first point where the traces' next addresses disagree (spec.md §4.5,
// "extract_straight_seq").
func extractStraightSeq(traces []branch.Trace, visits visitCounts, ctx inference.Context) ([]branch.Trace, branch.BranchSeq) {
	seq := branch.BranchSeq{}

	for {
		if len(traces) < 3 {
			return nil, seq
		}

		heads := headInfos(traces)
		tails := stepTraces(traces)

		if len(tails) >= 2 && !sameAddr(headInfos(tails)) {
			return traces, seq
		}

		addr := heads[0].Addr
		visitIndex := visits[addr]
		visits[addr]++

		sorted := append([]branch.Info(nil), heads...)
		sortByTryValue(sorted)

		var condAt *branch.ConditionAt

		if cond, ok := inference.Infer(heads[0].Compare, sorted, ctx); ok {
			condAt = &branch.ConditionAt{Condition: cond, Point: branch.Point{Addr: addr, VisitIndex: visitIndex}}
		}

		seq = appendSeq(seq, condAt, branch.SignOf(heads[0].Distance))
		traces = tails

		if len(traces) < 3 {
			return nil, seq
		}
	}
}

// buildDivergeTree groups the traces that survive a branch point by their
// next address and recurses into each group, producing a [branch.Diverge]
// node when no single inferred condition explains the split (spec.md §4.5).
func buildDivergeTree(seq branch.BranchSeq, traces []branch.Trace, visits visitCounts, ctx inference.Context) branch.Tree {
	longer := filterLongerThanOne(traces)
	groups := groupByAddr(longer, 1)

	var subtrees []branch.Tree

	for _, g := range groups {
		if len(g) < 3 {
			continue
		}

		tails := stepTraces(g)
		if len(tails) >= 3 {
			subtrees = append(subtrees, makeAux(tails, visits, ctx))
		}
	}

	if len(subtrees) == 0 {
		return branch.Straight{Seq: seq}
	}

	return branch.Diverge{Seq: seq, Subtrees: subtrees}
}

// buildForkTree groups the traces by the address each one visits next and
// recurses into each group, tagging the resulting subtree with the
// distance sign that led there (spec.md §4.5, "build_fork_tree").
func buildForkTree(
	seq branch.BranchSeq,
	cond branch.ConditionAt,
	traces []branch.Trace,
	visits visitCounts,
	ctx inference.Context,
) branch.Tree {
	longer := filterLongerThanOne(traces)
	groups := groupByAddr(longer, 1)

	var children []branch.ForkChild

	for _, g := range groups {
		sign := branch.SignOf(g[0][0].Distance)
		tails := stepTraces(g)

		var sub branch.Tree = branch.Straight{}
		if len(tails) >= 3 {
			sub = makeAux(tails, visits, ctx)
		}

		children = append(children, branch.ForkChild{Sign: sign, Child: sub})
	}

	return branch.Forked{Seq: seq, Cond: cond, Children: children}
}

func appendSeq(seq branch.BranchSeq, cond *branch.ConditionAt, sign branch.DistanceSign) branch.BranchSeq {
	seq.Length++
	seq.Branches = append([]branch.SeqEntry{{Cond: cond, Sign: sign}}, seq.Branches...)

	return seq
}

func headInfos(traces []branch.Trace) []branch.Info {
	heads := make([]branch.Info, len(traces))
	for i, tr := range traces {
		heads[i] = tr[0]
	}

	return heads
}

func stepTraces(traces []branch.Trace) []branch.Trace {
	out := make([]branch.Trace, 0, len(traces))

	for _, tr := range traces {
		if len(tr) > 1 {
			out = append(out, tr[1:])
		}
	}

	return out
}

func filterLongerThanOne(traces []branch.Trace) []branch.Trace {
	out := make([]branch.Trace, 0, len(traces))

	for _, tr := range traces {
		if len(tr) > 1 {
			out = append(out, tr)
		}
	}

	return out
}

func sameAddr(infos []branch.Info) bool {
	for _, i := range infos[1:] {
		if i.Addr != infos[0].Addr {
			return false
		}
	}

	return true
}

func haveSameDistanceSign(traces []branch.Trace) bool {
	sign := branch.SignOf(traces[0][0].Distance)
	for _, tr := range traces[1:] {
		if branch.SignOf(tr[0].Distance) != sign {
			return false
		}
	}

	return true
}

// groupByAddr groups traces by the address at position idx, preserving the
// order addresses first appear in. Traces shorter than idx+1 are dropped.
func groupByAddr(traces []branch.Trace, idx int) [][]branch.Trace {
	order := make([]uint64, 0)
	byAddr := make(map[uint64][]branch.Trace)

	for _, tr := range traces {
		if len(tr) <= idx {
			continue
		}

		addr := tr[idx].Addr
		if _, ok := byAddr[addr]; !ok {
			order = append(order, addr)
		}

		byAddr[addr] = append(byAddr[addr], tr)
	}

	groups := make([][]branch.Trace, len(order))
	for i, addr := range order {
		groups[i] = byAddr[addr]
	}

	return groups
}

func sortByTryValue(infos []branch.Info) {
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].TryValue.Cmp(infos[j].TryValue) < 0
	})
}
