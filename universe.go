package chit

import (
	"iter"

	"github.com/davidad/chit/uid"
)

type Luid = uid.Luid

// Universe is the append-only, order-preserving map between UUIDs and
// dense Luids. A Luid, once handed out, keeps denoting the same UUID and
// entries are never removed.
type Universe struct {
	ids   []UUID
	index map[UUID]Luid
}

func NewUniverse() *Universe {
	return &Universe{index: make(map[UUID]Luid)}
}

// Insert returns the Luid of id, appending it if it is new.
func (u *Universe) Insert(id UUID) Luid {
	luid, _ := u.InsertFull(id)
	return luid
}

// InsertFull also reports whether id was appended.
func (u *Universe) InsertFull(id UUID) (luid Luid, added bool) {
	if luid, ok := u.index[id]; ok {
		return luid, false
	}
	luid = Luid(len(u.ids))
	u.ids = append(u.ids, id)
	u.index[id] = luid
	return luid, true
}

func (u *Universe) Lookup(id UUID) (Luid, bool) {
	luid, ok := u.index[id]
	return luid, ok
}

func (u *Universe) Resolve(luid Luid) (UUID, bool) {
	if uint64(luid) >= uint64(len(u.ids)) {
		return uid.Nil, false
	}
	return u.ids[luid], true
}

func (u *Universe) Len() int {
	return len(u.ids)
}

// All yields every entry in Luid order.
func (u *Universe) All() iter.Seq2[Luid, UUID] {
	return func(yield func(Luid, UUID) bool) {
		for i, id := range u.ids {
			if !yield(Luid(i), id) {
				return
			}
		}
	}
}

// Since yields the entries appended at or after from.
func (u *Universe) Since(from Luid) iter.Seq2[Luid, UUID] {
	return func(yield func(Luid, UUID) bool) {
		for i := int(from); i < len(u.ids); i++ {
			if !yield(Luid(i), u.ids[i]) {
				return
			}
		}
	}
}
