package chit

import (
	"iter"

	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/davidad/chit/uid"
)

type Vlid = uid.Vlid
type Slid = uid.Slid

// Version is the materialized membership of one commit. Versions are
// built once by the materialization engine and never modified after they
// enter the cache.
//
// Coordinates: Members is a bitmap of Luids, and the rank of a Luid in it
// is that entity's Vlid. S0 marks the Vlids that head a subset (a "sort");
// the rank of such a Vlid in S0 numbers the subset, and S0i[n] holds the
// member Vlids of subset n, ranked by Slid. Subsets are not assigned by
// patches yet, so S0 and S0i stay empty.
type Version struct {
	Members *roaring64.Bitmap
	S0      *roaring64.Bitmap
	S0i     []*roaring64.Bitmap
	Ctx     *Context
}

func NewVersion(members *roaring64.Bitmap) *Version {
	if members == nil {
		members = roaring64.New()
	}
	return &Version{
		Members: members,
		S0:      roaring64.New(),
		Ctx:     NewContext(),
	}
}

func (v *Version) Len() int {
	return int(v.Members.GetCardinality())
}

func (v *Version) Contains(luid Luid) bool {
	return v.Members.Contains(uint64(luid))
}

// Luids yields the members in ascending order.
func (v *Version) Luids() iter.Seq[Luid] {
	return bitmapLuids(v.Members)
}

func bitmapLuids(bm *roaring64.Bitmap) iter.Seq[Luid] {
	return func(yield func(Luid) bool) {
		it := bm.Iterator()
		for it.HasNext() {
			if !yield(Luid(it.Next())) {
				return
			}
		}
	}
}

func rankOf(bm *roaring64.Bitmap, x uint64) (uint64, bool) {
	if !bm.Contains(x) {
		return 0, false
	}
	return bm.Rank(x) - 1, true
}

func selectIn(bm *roaring64.Bitmap, n uint64) (uint64, bool) {
	if n >= bm.GetCardinality() {
		return 0, false
	}
	x, err := bm.Select(n)
	return x, err == nil
}

func (v *Version) LuidToVlid(luid Luid) (Vlid, bool) {
	r, ok := rankOf(v.Members, uint64(luid))
	return Vlid(r), ok
}

func (v *Version) VlidToLuid(vlid Vlid) (Luid, bool) {
	x, ok := selectIn(v.Members, uint64(vlid))
	return Luid(x), ok
}

// VlidToS0 numbers a subset by the Vlid that heads it.
func (v *Version) VlidToS0(vlid Vlid) (Slid, bool) {
	r, ok := rankOf(v.S0, uint64(vlid))
	return Slid(r), ok
}

func (v *Version) S0ToVlid(subset Slid) (Vlid, bool) {
	x, ok := selectIn(v.S0, uint64(subset))
	return Vlid(x), ok
}

// SubsetOfVlid finds the subset a member Vlid belongs to.
func (v *Version) SubsetOfVlid(vlid Vlid) (Slid, bool) {
	for n, members := range v.S0i {
		if members.Contains(uint64(vlid)) {
			return Slid(n), true
		}
	}
	return 0, false
}

func (v *Version) SlidToVlid(subset, slid Slid) (Vlid, bool) {
	if uint64(subset) >= uint64(len(v.S0i)) {
		return 0, false
	}
	x, ok := selectIn(v.S0i[subset], uint64(slid))
	return Vlid(x), ok
}

func (v *Version) VlidToSlid(subset Slid, vlid Vlid) (Slid, bool) {
	if uint64(subset) >= uint64(len(v.S0i)) {
		return 0, false
	}
	r, ok := rankOf(v.S0i[subset], uint64(vlid))
	return Slid(r), ok
}

func (v *Version) VlidToSubsetAndSlid(vlid Vlid) (subset, slid Slid, ok bool) {
	if subset, ok = v.SubsetOfVlid(vlid); !ok {
		return
	}
	slid, ok = v.VlidToSlid(subset, vlid)
	return
}

func (v *Version) LuidToSubsetAndSlid(luid Luid) (subset, slid Slid, ok bool) {
	vlid, ok := v.LuidToVlid(luid)
	if !ok {
		return 0, 0, false
	}
	return v.VlidToSubsetAndSlid(vlid)
}
