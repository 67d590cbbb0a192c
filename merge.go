package chit

import (
	"fmt"

	"github.com/davidad/chit/chit_errors"
	"github.com/davidad/chit/uid"
	"github.com/davidad/chit/utils"
)

// LCA finds the latest common ancestor of two commits. Each input
// starts a track; commits are visited greatest UUID first, and every
// commit passes the tracks that reached it on to all its parents. The
// first commit reached by both tracks is the answer. Since commit UUIDs
// are time ordered, every descendant of a commit is visited before it.
func (c *Chit) LCA(a, b UUID) (Luid, bool, error) {
	aLuid, ok := c.universe.Lookup(a)
	if !ok {
		return 0, false, c.commitNotFound(a)
	}
	bLuid, ok := c.universe.Lookup(b)
	if !ok {
		return 0, false, c.commitNotFound(b)
	}
	const both = 0b11
	tracks := map[Luid]byte{aLuid: 0b01}
	tracks[bLuid] |= 0b10
	frontier := utils.MaxHeap[string]{}
	frontier.Push(uid.Key(a))
	if bLuid != aLuid {
		frontier.Push(uid.Key(b))
	}
	for frontier.Len() > 0 {
		id := uid.FromKey(frontier.Pop())
		luid, _ := c.universe.Lookup(id)
		reach := tracks[luid]
		if reach == both {
			c.log.Debug("LCA", "a", uid.Base64URL(a), "b", uid.Base64URL(b), "lca", uid.Base64URL(id))
			return luid, true, nil
		}
		for _, der := range c.commits[luid] {
			for _, parent := range der.Sources {
				seen, queued := tracks[parent]
				tracks[parent] = seen | reach
				if !queued {
					frontier.Push(uid.Key(c.resolve(parent)))
				}
			}
		}
	}
	c.log.Debug("LCA", "a", uid.Base64URL(a), "b", uid.Base64URL(b), "lca", "none")
	return 0, false, nil
}

// MergeBase checks that commit can be merged into the working patch and
// returns their common ancestor.
func (c *Chit) MergeBase(commit UUID) (UUID, error) {
	if !c.isCommit(commit) {
		return uid.Nil, c.commitNotFound(commit)
	}
	if !c.working.IsEmpty() {
		return uid.Nil, chit_errors.ErrWorkingPatchNotEmpty
	}
	if len(c.working.SourceCommits) != 1 {
		return uid.Nil, chit_errors.ErrDetachedHead
	}
	head := c.working.SourceCommits[0]
	lca, ok, err := c.LCA(head, commit)
	if err != nil {
		return uid.Nil, err
	}
	if !ok {
		return uid.Nil, fmt.Errorf("%w: %s and %s", chit_errors.ErrNoCommonAncestor,
			uid.Base64URL(head), uid.Base64URL(commit))
	}
	return c.resolve(lca), nil
}

// Merge checks that commit can be merged into the working patch. The
// merged version itself is not built yet.
func (c *Chit) Merge(commit UUID) error {
	_, err := c.MergeBase(commit)
	return err
}

func (c *Chit) isCommit(id UUID) bool {
	luid, ok := c.universe.Lookup(id)
	if !ok {
		return false
	}
	_, ok = c.commits[luid]
	return ok
}
