package chit

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/davidad/chit/chit_errors"
	"github.com/davidad/chit/uid"
)

// indexPatch registers a decoded patch and the commits it links. It
// reports false when the patch was registered before.
func (c *Chit) indexPatch(id UUID, p *Patch) (Luid, bool) {
	patchLuid := c.universe.Insert(id)
	if _, ok := c.patches[patchLuid]; ok {
		return patchLuid, false
	}
	c.patches[patchLuid] = p
	target := c.universe.Insert(p.TargetCommit)
	sources := make([]Luid, 0, len(p.SourceCommits))
	for _, src := range p.SourceCommits {
		sources = append(sources, c.universe.Insert(src))
	}
	if _, ok := c.commits[target]; !ok {
		c.order = append(c.order, target)
	}
	c.commits[target] = append(c.commits[target], Derivation{Sources: sources, Patch: patchLuid})
	return patchLuid, true
}

// processPatch materializes the target commit of a registered patch,
// materializing the commits it depends on first. Dependencies are found
// through the first derivation of each source commit.
func (c *Chit) processPatch(patchLuid Luid) error {
	stack := []Luid{patchLuid}
	expanded := make(map[Luid]struct{})
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		p, ok := c.patches[top]
		if !ok {
			return fmt.Errorf("%w: patch %s is not loaded", chit_errors.ErrMissingPatch, uid.Base64URL(c.resolve(top)))
		}
		target := c.universe.Insert(p.TargetCommit)
		if _, done := c.versions[target]; done {
			stack = stack[:len(stack)-1]
			delete(expanded, top)
			continue
		}
		if _, seen := expanded[top]; !seen {
			hit, err := c.restoreCheckpoint(target, p)
			if err != nil {
				return err
			}
			if hit {
				stack = stack[:len(stack)-1]
				continue
			}
			expanded[top] = struct{}{}
		}
		dep, err := c.pendingDependency(p)
		if err != nil {
			return err
		}
		if dep == nil {
			if err := c.applyPatch(target, p); err != nil {
				return err
			}
			stack = stack[:len(stack)-1]
			delete(expanded, top)
			continue
		}
		if _, busy := expanded[*dep]; busy {
			return fmt.Errorf("%w: patch %s depends on itself", chit_errors.ErrCyclicHistory, uid.Base64URL(c.resolve(*dep)))
		}
		c.log.Debug("patch depends on an unprocessed commit",
			"patch", uid.Base64URL(c.resolve(top)), "dependency", uid.Base64URL(c.resolve(*dep)))
		stack = append(stack, *dep)
	}
	return nil
}

// pendingDependency finds the patch producing the first source commit
// that has no version yet.
func (c *Chit) pendingDependency(p *Patch) (*Luid, error) {
	for _, src := range p.SourceCommits {
		luid := c.universe.Insert(src)
		if _, ok := c.versions[luid]; ok {
			continue
		}
		ders := c.commits[luid]
		if len(ders) == 0 {
			return nil, fmt.Errorf("%w: %s", chit_errors.ErrMissingPatch, uid.Base64URL(src))
		}
		return &ders[0].Patch, nil
	}
	return nil, nil
}

// applyPatch derives the target version from the cached source versions.
func (c *Chit) applyPatch(target Luid, p *Patch) error {
	members := roaring64.New()
	for _, src := range p.SourceCommits {
		luid, _ := c.universe.Lookup(src)
		members.Or(c.versions[luid].Members)
	}
	for id := range p.Deletions {
		if luid, ok := c.universe.Lookup(id); ok {
			members.Remove(uint64(luid))
		}
	}
	for id, canonical := range p.Merges {
		if id == canonical {
			continue
		}
		if luid, ok := c.universe.Lookup(id); ok {
			members.Remove(uint64(luid))
		}
	}
	for id := range p.Additions {
		members.Add(uint64(c.universe.Insert(id)))
	}
	if c.index != nil {
		if err := c.index.PutVersion(p.TargetCommit, members); err != nil {
			return err
		}
	}
	c.register(target, p, NewVersion(members))
	VersionsMaterialized.Inc()
	return nil
}

func (c *Chit) restoreCheckpoint(target Luid, p *Patch) (bool, error) {
	if c.index == nil {
		return false, nil
	}
	VersionCheckpointLookups.Inc()
	members, ok, err := c.index.Version(p.TargetCommit)
	if err != nil || !ok {
		return false, err
	}
	if !members.IsEmpty() && members.Maximum() >= uint64(c.universe.Len()) {
		c.log.Warn("ignoring version checkpoint beyond the universe", "commit", uid.Base64URL(p.TargetCommit))
		return false, nil
	}
	c.register(target, p, NewVersion(members))
	VersionCheckpointHits.Inc()
	return true, nil
}

func (c *Chit) register(target Luid, p *Patch, v *Version) {
	for _, src := range p.SourceCommits {
		luid, _ := c.universe.Lookup(src)
		delete(c.heads, luid)
		c.consumed[luid] = struct{}{}
	}
	if _, ok := c.consumed[target]; !ok {
		c.heads[target] = struct{}{}
	}
	c.versions[target] = v
}
