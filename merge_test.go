package chit

import (
	"testing"

	"github.com/davidad/chit/chit_errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	commitA = testID(31)
	commitB = testID(32)
	commitC = testID(33)
	commitD = testID(34)
	commitE = testID(35)
	commitF = testID(36)
)

// openDiamond loads A->B, A->C, {B,C}->D, B->F plus an unrelated root E.
func openDiamond(t *testing.T) *Chit {
	dir := t.TempDir()
	writePatch(t, dir, testID(61), mkPatch(commitA, nil, testID(1)))
	writePatch(t, dir, testID(62), mkPatch(commitB, []UUID{commitA}, testID(2)))
	writePatch(t, dir, testID(63), mkPatch(commitC, []UUID{commitA}, testID(3)))
	writePatch(t, dir, testID(64), mkPatch(commitD, []UUID{commitB, commitC}))
	writePatch(t, dir, testID(65), mkPatch(commitE, nil, testID(5)))
	writePatch(t, dir, testID(66), mkPatch(commitF, []UUID{commitB}, testID(6)))
	c, err := Open(quietOptions(dir))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func assertLCA(t *testing.T, c *Chit, a, b, want UUID) {
	lca, ok, err := c.LCA(a, b)
	require.NoError(t, err)
	require.True(t, ok)
	wantLuid, _ := c.UUIDToLuid(want)
	assert.Equal(t, wantLuid, lca)
}

func TestLCA_Diamond(t *testing.T) {
	c := openDiamond(t)
	assertLCA(t, c, commitB, commitC, commitA)
	assertLCA(t, c, commitC, commitB, commitA)
	assertLCA(t, c, commitB, commitA, commitA)
	assertLCA(t, c, commitB, commitB, commitB)
	assertLCA(t, c, commitF, commitC, commitA)
	assertLCA(t, c, commitF, commitB, commitB)
	assertLCA(t, c, commitD, commitB, commitB)
	assertLCA(t, c, commitD, commitF, commitB)
	assert.Equal(t, []UUID{testID(1), testID(2), testID(3)}, members(t, c, commitD))
}

func TestLCA_Unrelated(t *testing.T) {
	c := openDiamond(t)
	_, ok, err := c.LCA(commitB, commitE)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = c.LCA(commitB, testID(200))
	assert.ErrorIs(t, err, chit_errors.ErrNotFound)
}

func TestMerge(t *testing.T) {
	c := openDiamond(t)
	require.NoError(t, c.Checkout(commitB))

	base, err := c.MergeBase(commitC)
	require.NoError(t, err)
	assert.Equal(t, commitA, base)
	assert.NoError(t, c.Merge(commitC))
	assert.True(t, c.WorkingPatch().IsEmpty())

	assert.ErrorIs(t, c.Merge(commitE), chit_errors.ErrNoCommonAncestor)
	assert.ErrorIs(t, c.Merge(testID(200)), chit_errors.ErrCommitNotFound)
	assert.ErrorIs(t, c.Merge(testID(1)), chit_errors.ErrCommitNotFound)

	_, err = c.Add()
	require.NoError(t, err)
	err = c.Merge(commitC)
	assert.ErrorIs(t, err, chit_errors.ErrWorkingPatchNotEmpty)
	assert.ErrorIs(t, err, chit_errors.ErrPrecondition)
}

func TestMerge_DetachedHead(t *testing.T) {
	c := openDiamond(t)
	c.working.SourceCommits = []UUID{commitB, commitC}
	err := c.Merge(commitF)
	assert.ErrorIs(t, err, chit_errors.ErrDetachedHead)
	assert.ErrorIs(t, err, chit_errors.ErrPrecondition)

	c.working.SourceCommits = nil
	assert.ErrorIs(t, c.Merge(commitF), chit_errors.ErrDetachedHead)
}
