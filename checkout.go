package chit

import (
	"slices"

	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/davidad/chit/chit_errors"
)

// Checkout makes commit the single source of the working patch and
// resets the working state to its version. Staged edits are never
// discarded: with a non-empty working patch it fails with
// ErrWorkingPatchNotEmpty.
func (c *Chit) Checkout(commit UUID) error {
	v, ok := c.Version(commit)
	if !ok {
		return c.commitNotFound(commit)
	}
	if !c.working.IsEmpty() {
		return chit_errors.ErrWorkingPatchNotEmpty
	}
	c.working.Clear()
	c.working.SourceCommits = append(c.working.SourceCommits, commit)
	c.state = v.Members.Clone()
	return nil
}

// Revert drops the staged edits and rebuilds the working state from the
// working patch's sources.
func (c *Chit) Revert() error {
	state := roaring64.New()
	for _, src := range c.working.SourceCommits {
		v, ok := c.Version(src)
		if !ok {
			return c.commitNotFound(src)
		}
		state.Or(v.Members)
	}
	sources := slices.Clone(c.working.SourceCommits)
	c.working.Clear()
	c.working.SourceCommits = append(c.working.SourceCommits, sources...)
	c.state = state
	return nil
}
