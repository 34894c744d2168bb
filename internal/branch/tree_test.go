package branch_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graycon/graycon/internal/branch"
)

func seqOf(n int) branch.BranchSeq {
	entries := make([]branch.SeqEntry, n)
	for i := range entries {
		entries[i] = branch.SeqEntry{Sign: branch.Positive}
	}

	return branch.BranchSeq{Length: n, Branches: entries}
}

func sampleTree() branch.Tree {
	return branch.Forked{
		Seq: seqOf(2),
		Children: []branch.ForkChild{
			{Sign: branch.Positive, Child: branch.Straight{Seq: seqOf(3)}},
			{Sign: branch.Negative, Child: branch.Diverge{
				Seq: seqOf(1),
				Subtrees: []branch.Tree{
					branch.Straight{Seq: seqOf(2)},
				},
			}},
		},
	}
}

func TestSize_CountsSeqEntriesExcludingForkCondition(t *testing.T) {
	t.Parallel()

	// 2 (top seq) + 3 (straight child) + 1 (diverge seq) + 2 (nested straight) = 8.
	assert.Equal(t, 8, branch.Size(sampleTree()))
}

func TestReverse_IsInvolution(t *testing.T) {
	t.Parallel()

	tree := sampleTree()
	twice := branch.Reverse(branch.Reverse(tree))
	assert.Equal(t, tree, twice)
}

func TestSelectAndRepair_OversizedSelectionReturnsUnfilteredButReversed(t *testing.T) {
	t.Parallel()

	tree := branch.Straight{Seq: seqOf(3)}
	for i := range tree.Seq.Branches {
		tree.Seq.Branches[i].Cond = &branch.ConditionAt{}
	}

	got := branch.SelectAndRepair(tree, 100, rand.New(rand.NewSource(1)))
	straight, ok := got.(branch.Straight)
	require.True(t, ok)

	for _, e := range straight.Seq.Branches {
		assert.NotNil(t, e.Cond)
	}
}

func TestSelectAndRepair_DropsUnselectedConditions(t *testing.T) {
	t.Parallel()

	tree := branch.Straight{Seq: seqOf(10)}
	for i := range tree.Seq.Branches {
		tree.Seq.Branches[i].Cond = &branch.ConditionAt{}
	}

	got := branch.SelectAndRepair(tree, 2, rand.New(rand.NewSource(1)))
	straight, ok := got.(branch.Straight)
	require.True(t, ok)

	kept := 0

	for _, e := range straight.Seq.Branches {
		if e.Cond != nil {
			kept++
		}
	}

	assert.Equal(t, 2, kept)
}
