package chit

import (
	"fmt"

	"github.com/davidad/chit/chit_errors"
	"github.com/davidad/chit/uid"
)

// Add creates a new entity in the working state.
func (c *Chit) Add() (UUID, error) {
	id, err := c.gen.New()
	if err != nil {
		return uid.Nil, err
	}
	luid := c.universe.Insert(id)
	c.state.Add(uint64(luid))
	c.working.Additions.Add(id)
	return id, nil
}

func (c *Chit) live(id UUID) (Luid, error) {
	luid, ok := c.universe.Lookup(id)
	if !ok || !c.state.Contains(uint64(luid)) {
		return 0, fmt.Errorf("%w: %s", chit_errors.ErrNotInWorkingState, uid.Base64URL(id))
	}
	return luid, nil
}

// Remove stages the deletion of an entity. Removing an entity added by
// the working patch just unstages the addition.
func (c *Chit) Remove(id UUID) error {
	luid, err := c.live(id)
	if err != nil {
		return err
	}
	if c.working.Additions.Has(id) {
		delete(c.working.Additions, id)
	} else {
		c.working.Deletions.Add(id)
	}
	c.state.Remove(uint64(luid))
	return nil
}

// Supersede stages that id is replaced by canonical. Both must be alive;
// id leaves the working state unless it is its own canonical. An entity
// added by the working patch is unstaged instead, like Remove does.
func (c *Chit) Supersede(id, canonical UUID) error {
	luid, err := c.live(id)
	if err != nil {
		return err
	}
	if _, err := c.live(canonical); err != nil {
		return err
	}
	if id == canonical {
		c.working.Merges[id] = canonical
		return nil
	}
	if c.working.Additions.Has(id) {
		delete(c.working.Additions, id)
	} else {
		c.working.Merges[id] = canonical
	}
	c.state.Remove(uint64(luid))
	return nil
}

// Commit writes the working patch as a new patch file, materializes the
// new commit and rebases the working patch on it. It returns the patch
// UUID and a copy of the written patch. If the file cannot be written the
// working patch and state are left as they were.
func (c *Chit) Commit() (UUID, *Patch, error) {
	patchID, err := c.gen.New()
	if err != nil {
		return uid.Nil, nil, err
	}
	commitID, err := c.gen.New()
	if err != nil {
		return uid.Nil, nil, err
	}
	p := c.working.Clone()
	p.TargetCommit = commitID
	if err := c.dir.Write(patchID, EncodePatch(p)); err != nil {
		return uid.Nil, nil, err
	}
	patchLuid, _ := c.indexPatch(patchID, p)
	if err := c.processPatch(patchLuid); err != nil {
		return uid.Nil, nil, err
	}
	c.flushIndex()
	CommitsCreated.Inc()

	c.working.Clear()
	c.working.SourceCommits = append(c.working.SourceCommits, commitID)
	if v, ok := c.Version(commitID); ok {
		c.state = v.Members.Clone()
	}
	c.log.Info("committed", "patch", uid.Base64URL(patchID), "commit", uid.Base64URL(commitID))
	return patchID, p.Clone(), nil
}
