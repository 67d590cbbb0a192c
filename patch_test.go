package chit

import (
	"encoding/binary"
	"testing"

	"github.com/cespare/xxhash"
	"github.com/davidad/chit/chit_errors"
	"github.com/davidad/chit/protocol"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testID(n byte) UUID {
	return uuid.UUID{0x01, 0x90, 0, 0, 0, 0, 0x70, 0, 0x80, 0, 0, 0, 0, 0, 0, n}
}

func samplePatch() *Patch {
	p := NewPatch()
	p.TargetCommit = testID(9)
	p.SourceCommits = []UUID{testID(7), testID(3)}
	p.Deletions.Add(testID(5))
	p.Deletions.Add(testID(4))
	p.Additions.Add(testID(20))
	p.Additions.Add(testID(11))
	p.Merges[testID(6)] = testID(6)
	p.Merges[testID(2)] = testID(6)
	p.Context.Additions = []ContextBinding{
		{Path: []string{"b"}, Target: testID(11)},
		{Path: []string{"a", "x"}, Target: testID(20)},
	}
	p.Context.Deletions = [][]string{{"old"}}
	return p
}

func TestPatch_ClearIsEmpty(t *testing.T) {
	p := NewPatch()
	assert.True(t, p.IsEmpty())
	p.SourceCommits = append(p.SourceCommits, testID(1))
	p.TargetCommit = testID(2)
	assert.True(t, p.IsEmpty(), "commits are housekeeping")
	p.Additions.Add(testID(3))
	assert.False(t, p.IsEmpty())
	p.Clear()
	assert.True(t, p.IsEmpty())
	assert.Empty(t, p.SourceCommits)
	assert.Equal(t, uuid.Nil, p.TargetCommit)

	p.Merges[testID(1)] = testID(2)
	assert.False(t, p.IsEmpty())
}

func TestPatch_Clone(t *testing.T) {
	p := samplePatch()
	c := p.Clone()
	assert.Equal(t, p, c)
	c.Additions.Add(testID(99))
	c.SourceCommits[0] = testID(98)
	assert.False(t, p.Additions.Has(testID(99)))
	assert.Equal(t, testID(7), p.SourceCommits[0])
}

func TestPatchCodec_RoundTrip(t *testing.T) {
	p := samplePatch()
	data := EncodePatch(p)
	assert.NoError(t, ValidatePatch(data))
	back, err := DecodePatch(data)
	require.NoError(t, err)

	assert.Equal(t, p.TargetCommit, back.TargetCommit)
	assert.Equal(t, p.SourceCommits, back.SourceCommits, "source order is kept")
	assert.Equal(t, p.Deletions, back.Deletions)
	assert.Equal(t, p.Additions, back.Additions)
	assert.Equal(t, p.Merges, back.Merges)
	assert.Equal(t, [][]string{{"old"}}, back.Context.Deletions)
	assert.Equal(t, []ContextBinding{
		{Path: []string{"a", "x"}, Target: testID(20)},
		{Path: []string{"b"}, Target: testID(11)},
	}, back.Context.Additions)

	// decoded patches do not alias the file bytes
	for i := range data {
		data[i] = 0
	}
	assert.Equal(t, testID(9), back.TargetCommit)
}

func TestPatchCodec_Canonical(t *testing.T) {
	a := NewPatch()
	b := NewPatch()
	for i := byte(1); i < 40; i++ {
		a.Additions.Add(testID(i))
		b.Additions.Add(testID(40 - i))
	}
	assert.Equal(t, EncodePatch(a), EncodePatch(b))

	empty := EncodePatch(NewPatch())
	back, err := DecodePatch(empty)
	assert.NoError(t, err)
	assert.True(t, back.IsEmpty())
	assert.Empty(t, back.SourceCommits)
}

func seal(prec []byte) []byte {
	sum := binary.LittleEndian.AppendUint64(nil, xxhash.Sum64(prec))
	return protocol.Append(prec, 'H', sum)
}

func TestPatchCodec_Rejects(t *testing.T) {
	good := EncodePatch(samplePatch())
	flipped := append([]byte{}, good...)
	flipped[20] ^= 0x40

	id1, id4, id5 := testID(1), testID(4), testID(5)
	unsorted := protocol.Record('P',
		protocol.Record('T', make([]byte, 16)),
		protocol.Record('S'),
		protocol.Record('D', id5[:], id4[:]),
		protocol.Record('A'),
		protocol.Record('M'),
		protocol.Record('C'),
	)
	shortTarget := protocol.Record('P',
		protocol.Record('T', make([]byte, 15)),
		protocol.Record('S'),
		protocol.Record('D'),
		protocol.Record('A'),
		protocol.Record('M'),
		protocol.Record('C'),
	)
	repeatedSource := protocol.Record('P',
		protocol.Record('T', make([]byte, 16)),
		protocol.Record('S', id1[:], id1[:]),
		protocol.Record('D'),
		protocol.Record('A'),
		protocol.Record('M'),
		protocol.Record('C'),
	)
	missingContext := protocol.Record('P',
		protocol.Record('T', make([]byte, 16)),
		protocol.Record('S'),
		protocol.Record('D'),
		protocol.Record('A'),
		protocol.Record('M'),
	)
	oddMerges := protocol.Record('P',
		protocol.Record('T', make([]byte, 16)),
		protocol.Record('S'),
		protocol.Record('D'),
		protocol.Record('A'),
		protocol.Record('M', make([]byte, 16)),
		protocol.Record('C'),
	)
	emptyPath := protocol.Record('P',
		protocol.Record('T', make([]byte, 16)),
		protocol.Record('S'),
		protocol.Record('D'),
		protocol.Record('A'),
		protocol.Record('M'),
		protocol.Record('C', protocol.Record('X')),
	)

	cases := map[string][]byte{
		"empty":           nil,
		"garbage":         []byte("not a patch at all"),
		"truncated":       good[:len(good)-3],
		"no checksum":     good[:len(good)-10],
		"flipped":         flipped,
		"trailing":        append(append([]byte{}, good...), 'x'),
		"unsorted":        seal(unsorted),
		"short target":    seal(shortTarget),
		"repeated source": seal(repeatedSource),
		"no context":      seal(missingContext),
		"odd merges":      seal(oddMerges),
		"empty path":      seal(emptyPath),
	}
	for name, data := range cases {
		err := ValidatePatch(data)
		assert.ErrorIs(t, err, chit_errors.ErrValidation, name)
		p, err := DecodePatch(data)
		assert.Nil(t, p, name)
		assert.ErrorIs(t, err, chit_errors.ErrValidation, name)
	}
}
