package branch

import "math/rand"

// SeqEntry is one step of a [BranchSeq]: the observed sign of the step's
// distance, plus the inferred condition when inference succeeded and the
// step survived [SelectAndRepair]'s filtering (spec.md §3, §4.5).
type SeqEntry struct {
	Cond *ConditionAt // nil if inference failed or the step wasn't selected
	Sign DistanceSign
}

// BranchSeq is an ordered prefix of inferred conditions with the observed
// sign of their distance (spec.md §3).
type BranchSeq struct {
	Length   int
	Branches []SeqEntry
}

// Tree is the recursive branch-tree sum type of spec.md §3: [Straight],
// [Forked], or [Diverge].
type Tree interface {
	isTree()
}

// Straight is a tree node with no further branching.
type Straight struct {
	Seq BranchSeq
}

func (Straight) isTree() {}

// ForkChild is one branch of a [Forked] node, tagged with the sign the
// child's leading distance took.
type ForkChild struct {
	Sign  DistanceSign
	Child Tree
}

// Forked is a tree node where a single inferred condition splits execution
// into children by distance sign.
type Forked struct {
	Seq      BranchSeq
	Cond     ConditionAt
	Children []ForkChild
}

func (Forked) isTree() {}

// Diverge is a tree node where traces disagree on the next address without
// a usable inferred condition to explain the split.
type Diverge struct {
	Seq      BranchSeq
	Subtrees []Tree
}

func (Diverge) isTree() {}

// Size counts the (condition, sign) pairs across every [BranchSeq] in the
// tree, excluding the fork condition itself at [Forked] nodes
// (spec.md §4.5, §8).
func Size(t Tree) int {
	switch n := t.(type) {
	case Straight:
		return len(n.Seq.Branches)
	case Forked:
		total := len(n.Seq.Branches)
		for _, c := range n.Children {
			total += Size(c.Child)
		}

		return total
	case Diverge:
		total := len(n.Seq.Branches)
		for _, s := range n.Subtrees {
			total += Size(s)
		}

		return total
	default:
		return 0
	}
}

// Reverse returns a tree with every [BranchSeq]'s entries in reverse order.
// Reverse is its own inverse: Reverse(Reverse(t)) deep-equals t
// (spec.md §8).
func Reverse(t Tree) Tree {
	switch n := t.(type) {
	case Straight:
		return Straight{Seq: reverseSeq(n.Seq)}
	case Forked:
		children := make([]ForkChild, len(n.Children))
		for i, c := range n.Children {
			children[i] = ForkChild{Sign: c.Sign, Child: Reverse(c.Child)}
		}

		return Forked{Seq: reverseSeq(n.Seq), Cond: n.Cond, Children: children}
	case Diverge:
		subtrees := make([]Tree, len(n.Subtrees))
		for i, s := range n.Subtrees {
			subtrees[i] = Reverse(s)
		}

		return Diverge{Seq: reverseSeq(n.Seq), Subtrees: subtrees}
	default:
		return t
	}
}

func reverseSeq(seq BranchSeq) BranchSeq {
	n := len(seq.Branches)
	out := make([]SeqEntry, n)

	for i, e := range seq.Branches {
		out[n-1-i] = e
	}

	return BranchSeq{Length: seq.Length, Branches: out}
}

// SelectAndRepair samples nSolve condition positions uniformly without
// replacement out of Size(t), drops the inferred condition (keeping the
// sign) at every position not selected, and reverses the result so the
// solver processes outer conditions first (spec.md §4.5).
//
// If nSolve is at least Size(t), the tree is returned unfiltered but still
// reversed (spec.md §4.9, "Select set larger than tree size").
func SelectAndRepair(t Tree, nSolve int, rng *rand.Rand) Tree {
	total := Size(t)
	if total == 0 || nSolve >= total {
		return Reverse(t)
	}

	selected := make(map[int]struct{}, nSolve)
	for _, idx := range rng.Perm(total)[:nSolve] {
		selected[idx] = struct{}{}
	}

	counter := 0

	return Reverse(filterTree(t, selected, &counter))
}

func filterTree(t Tree, selected map[int]struct{}, counter *int) Tree {
	switch n := t.(type) {
	case Straight:
		return Straight{Seq: filterSeq(n.Seq, selected, counter)}
	case Forked:
		seq := filterSeq(n.Seq, selected, counter)
		children := make([]ForkChild, len(n.Children))

		for i, c := range n.Children {
			children[i] = ForkChild{Sign: c.Sign, Child: filterTree(c.Child, selected, counter)}
		}

		return Forked{Seq: seq, Cond: n.Cond, Children: children}
	case Diverge:
		seq := filterSeq(n.Seq, selected, counter)
		subtrees := make([]Tree, len(n.Subtrees))

		for i, s := range n.Subtrees {
			subtrees[i] = filterTree(s, selected, counter)
		}

		return Diverge{Seq: seq, Subtrees: subtrees}
	default:
		return t
	}
}

func filterSeq(seq BranchSeq, selected map[int]struct{}, counter *int) BranchSeq {
	out := make([]SeqEntry, len(seq.Branches))

	for i, e := range seq.Branches {
		if _, ok := selected[*counter]; !ok {
			e.Cond = nil
		}

		out[i] = e
		*counter++
	}

	return BranchSeq{Length: seq.Length, Branches: out}
}
