package chit

import (
	"maps"
	"slices"

	"github.com/davidad/chit/uid"
)

type UUID = uid.UUID

// UUIDSet is an unordered set of UUIDs.
type UUIDSet map[UUID]struct{}

func NewUUIDSet(ids ...UUID) UUIDSet {
	set := make(UUIDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s UUIDSet) Add(id UUID) { s[id] = struct{}{} }

func (s UUIDSet) Has(id UUID) bool {
	_, ok := s[id]
	return ok
}

// Sorted lists the members in byte order.
func (s UUIDSet) Sorted() []UUID {
	return slices.SortedFunc(maps.Keys(s), uid.Compare)
}

// ContextBinding names an entity at a path of the context tree.
type ContextBinding struct {
	Path   []string
	Target UUID
}

// ContextPatch edits the naming context of a version. It is persisted with
// its patch but not applied yet.
type ContextPatch struct {
	Deletions [][]string
	Additions []ContextBinding
}

func (cp *ContextPatch) IsEmpty() bool {
	return len(cp.Deletions) == 0 && len(cp.Additions) == 0
}

// Patch is the immutable unit of history: it turns the versions of its
// source commits into the version of its target commit. A patch with more
// than one source is a merge.
//
// Once a patch has been written or loaded it must not be modified; the
// working patch of a Chit is the only mutable one.
type Patch struct {
	TargetCommit  UUID
	SourceCommits []UUID
	Deletions     UUIDSet
	Additions     UUIDSet
	// Merges maps an entity to its canonical entity. Mapping to itself
	// means kept, anything else means superseded.
	Merges  map[UUID]UUID
	Context ContextPatch
}

func NewPatch() *Patch {
	return &Patch{
		Deletions: UUIDSet{},
		Additions: UUIDSet{},
		Merges:    map[UUID]UUID{},
	}
}

// Clear resets every field, commits included.
func (p *Patch) Clear() {
	p.TargetCommit = uid.Nil
	p.SourceCommits = p.SourceCommits[:0]
	p.Deletions = UUIDSet{}
	p.Additions = UUIDSet{}
	p.Merges = map[UUID]UUID{}
	p.Context = ContextPatch{}
}

// IsEmpty reports whether no edits are staged. The target and source
// commits do not count.
func (p *Patch) IsEmpty() bool {
	return len(p.Deletions) == 0 && len(p.Additions) == 0 && len(p.Merges) == 0
}

func (p *Patch) IsMerge() bool {
	return len(p.SourceCommits) > 1
}

func (p *Patch) Clone() *Patch {
	c := &Patch{
		TargetCommit:  p.TargetCommit,
		SourceCommits: slices.Clone(p.SourceCommits),
		Deletions:     maps.Clone(p.Deletions),
		Additions:     maps.Clone(p.Additions),
		Merges:        maps.Clone(p.Merges),
	}
	if c.Deletions == nil {
		c.Deletions = UUIDSet{}
	}
	if c.Additions == nil {
		c.Additions = UUIDSet{}
	}
	if c.Merges == nil {
		c.Merges = map[UUID]UUID{}
	}
	for _, path := range p.Context.Deletions {
		c.Context.Deletions = append(c.Context.Deletions, slices.Clone(path))
	}
	for _, b := range p.Context.Additions {
		c.Context.Additions = append(c.Context.Additions, ContextBinding{slices.Clone(b.Path), b.Target})
	}
	return c
}
