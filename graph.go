package chit

import (
	"iter"
	"slices"
)

// CommitEdges yields every commit with the ways it was derived, in
// registration order. The slices are copies.
func (c *Chit) CommitEdges() iter.Seq2[Luid, []Derivation] {
	return func(yield func(Luid, []Derivation) bool) {
		for _, target := range c.order {
			ders := make([]Derivation, 0, len(c.commits[target]))
			for _, d := range c.commits[target] {
				ders = append(ders, Derivation{Sources: slices.Clone(d.Sources), Patch: d.Patch})
			}
			if !yield(target, ders) {
				return
			}
		}
	}
}
