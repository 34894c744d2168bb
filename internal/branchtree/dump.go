package branchtree

import (
	"fmt"
	"io"
	"strings"

	"github.com/graycon/graycon/internal/branch"
)

// Dump writes an indented text rendering of t to w, one line per sequence
// entry and one extra indent level per fork child or divergent subtree.
// Adapted from the original's branch_tree.cpp PrettyPrinter for golden-style
// test assertions; the --dump-tree flag writes JSON and does not use it.
func Dump(w io.Writer, t branch.Tree) {
	dumpNode(w, t, 0)
}

func dumpNode(w io.Writer, t branch.Tree, depth int) {
	switch n := t.(type) {
	case branch.Straight:
		dumpSeq(w, n.Seq, depth)
	case branch.Forked:
		dumpSeq(w, n.Seq, depth)
		fmt.Fprintf(w, "%sfork %s\n", indent(depth), conditionLabel(n.Cond.Condition))

		for _, child := range n.Children {
			fmt.Fprintf(w, "%scase %s:\n", indent(depth+1), child.Sign)
			dumpNode(w, child.Child, depth+2)
		}
	case branch.Diverge:
		dumpSeq(w, n.Seq, depth)
		fmt.Fprintf(w, "%sdiverge (%d subtrees)\n", indent(depth), len(n.Subtrees))

		for i, sub := range n.Subtrees {
			fmt.Fprintf(w, "%ssubtree %d:\n", indent(depth+1), i)
			dumpNode(w, sub, depth+2)
		}
	}
}

func dumpSeq(w io.Writer, seq branch.BranchSeq, depth int) {
	for _, e := range seq.Branches {
		if e.Cond == nil {
			fmt.Fprintf(w, "%s%s (unselected)\n", indent(depth), e.Sign)
			continue
		}

		fmt.Fprintf(w, "%s%s %s @ addr=0x%x#%d\n", indent(depth), e.Sign,
			conditionLabel(e.Cond.Condition), e.Cond.Point.Addr, e.Cond.Point.VisitIndex)
	}
}

func conditionLabel(c branch.Condition) string {
	switch v := c.(type) {
	case *branch.LinEq:
		return fmt.Sprintf("LinEq(target=%s, solutions=%d)", v.Target, len(v.Solutions))
	case *branch.LinIneq:
		return fmt.Sprintf("LinIneq(signedness=%v, tight=%t, loose=%t)", v.Signedness, v.Tight != nil, v.Loose != nil)
	case *branch.Mono:
		return fmt.Sprintf("Mono(tendency=%v, target=%s)", v.Tendency, v.TargetY)
	default:
		return "Condition(?)"
	}
}

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}
