package chit

import (
	"testing"

	"github.com/davidad/chit/uid"
	"github.com/stretchr/testify/assert"
)

func TestUniverse_AppendOnly(t *testing.T) {
	u := NewUniverse()
	seen := map[UUID]Luid{}
	order := []byte{5, 3, 5, 9, 1, 3, 3, 200, 9}
	for _, n := range order {
		id := testID(n)
		luid := u.Insert(id)
		if prev, ok := seen[id]; ok {
			assert.Equal(t, prev, luid, "re-insert keeps the luid")
		} else {
			assert.Equal(t, Luid(len(seen)), luid, "new ids get the next luid")
			seen[id] = luid
		}
	}
	assert.Equal(t, len(seen), u.Len())
	for id, luid := range seen {
		got, ok := u.Lookup(id)
		assert.True(t, ok)
		assert.Equal(t, luid, got)
		back, ok := u.Resolve(luid)
		assert.True(t, ok)
		assert.Equal(t, id, back)
	}

	_, ok := u.Lookup(testID(77))
	assert.False(t, ok)
	_, ok = u.Resolve(Luid(u.Len()))
	assert.False(t, ok)

	_, added := u.InsertFull(testID(5))
	assert.False(t, added)
	luid, added := u.InsertFull(testID(6))
	assert.True(t, added)
	assert.Equal(t, Luid(5), luid)
}

func TestUniverse_Iterate(t *testing.T) {
	u := NewUniverse()
	for _, n := range []byte{4, 2, 8} {
		u.Insert(testID(n))
	}
	var all []UUID
	for luid, id := range u.All() {
		assert.Equal(t, Luid(len(all)), luid)
		all = append(all, id)
	}
	assert.Equal(t, []UUID{testID(4), testID(2), testID(8)}, all)

	var tail []uid.Luid
	for luid := range u.Since(1) {
		tail = append(tail, luid)
	}
	assert.Equal(t, []uid.Luid{1, 2}, tail)
}
