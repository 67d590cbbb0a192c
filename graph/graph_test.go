package graph

import (
	"iter"
	"testing"

	"github.com/davidad/chit"
	"github.com/davidad/chit/uid"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeHistory struct {
	targets []uid.Luid
	edges   map[uid.Luid][]chit.Derivation
}

func (f *fakeHistory) add(target, patch uid.Luid, sources ...uid.Luid) {
	if f.edges == nil {
		f.edges = make(map[uid.Luid][]chit.Derivation)
	}
	f.targets = append(f.targets, target)
	f.edges[target] = append(f.edges[target], chit.Derivation{Sources: sources, Patch: patch})
}

func (f *fakeHistory) CommitEdges() iter.Seq2[uid.Luid, []chit.Derivation] {
	return func(yield func(uid.Luid, []chit.Derivation) bool) {
		for _, t := range f.targets {
			if !yield(t, f.edges[t]) {
				return
			}
		}
	}
}

func fakeID(luid uid.Luid) uid.UUID {
	return uuid.UUID{15: byte(luid)}
}

func (f *fakeHistory) LuidToUUID(luid uid.Luid) (uid.UUID, bool) {
	return fakeID(luid), true
}

func station(track int, commit, patch uid.Luid) Event {
	return Event{Kind: Station, Track: track, Label: uid.Base64URL(fakeID(commit)) + " <- " + uid.Base64URL(fakeID(patch))}
}

func TestEvents_Linear(t *testing.T) {
	h := &fakeHistory{}
	h.add(1, 100)
	h.add(2, 101, 1)

	events := Events(h)
	assert.Equal(t, []Event{
		{Kind: NoEvent},
		{Kind: StartTrack, Track: 0},
		station(0, 2, 101),
		station(0, 1, 100),
		{Kind: NoEvent},
		{Kind: StopTrack, Track: 0},
		{Kind: NoEvent},
	}, events)

	assert.Equal(t,
		"*  "+events[2].Label+"\n"+
			"*  "+events[3].Label+"\n"+
			"o\n",
		Render(events))
}

func TestEvents_Diamond(t *testing.T) {
	const a, b, c, d = 1, 2, 3, 4
	h := &fakeHistory{}
	h.add(a, 100)
	h.add(b, 101, a)
	h.add(c, 102, a)
	h.add(d, 103, b, c)

	events := Events(h)
	assert.Equal(t, []Event{
		{Kind: NoEvent},
		{Kind: StartTrack, Track: 0},
		station(0, d, 103),
		{Kind: SplitTrack, Track: 0, Other: 1},
		station(1, c, 102),
		station(0, b, 101),
		{Kind: JoinTrack, Track: 0, Other: 1},
		station(1, a, 100),
		{Kind: NoEvent},
		{Kind: StopTrack, Track: 1},
		{Kind: NoEvent},
	}, events)

	assert.Equal(t,
		"*  "+events[2].Label+"\n"+
			"| \\\n"+
			"| *  "+events[4].Label+"\n"+
			"* |  "+events[5].Label+"\n"+
			"/ |\n"+
			"*  "+events[7].Label+"\n"+
			"o\n",
		Render(events))
}

func TestEvents_SharedParent(t *testing.T) {
	// two heads on one root, then a merge of a commit already on a track
	h := &fakeHistory{}
	h.add(1, 100)
	h.add(2, 101, 1)
	h.add(3, 102, 2, 1)

	events := Events(h)
	assert.Equal(t, []Event{
		{Kind: NoEvent},
		{Kind: StartTrack, Track: 0},
		station(0, 3, 102),
		{Kind: SplitTrack, Track: 0, Other: 1},
		station(0, 2, 101),
		{Kind: JoinTrack, Track: 0, Other: 1},
		station(1, 1, 100),
		{Kind: NoEvent},
		{Kind: StopTrack, Track: 1},
		{Kind: NoEvent},
	}, events)
}

func TestEventString(t *testing.T) {
	assert.Equal(t, "SplitTrack(0, 1)", Event{Kind: SplitTrack, Other: 1}.String())
	assert.Equal(t, "StopTrack(2)", Event{Kind: StopTrack, Track: 2}.String())
	assert.Equal(t, "NoEvent", Event{}.String())
}
