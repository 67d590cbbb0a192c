// Package graph lays out a commit history as a metro map: tracks that
// start, carry stations (commits), split at merges and join where
// histories meet. Rows come out newest first.
package graph

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/davidad/chit"
	"github.com/davidad/chit/uid"
)

type Kind byte

const (
	NoEvent Kind = iota
	StartTrack
	StopTrack
	Station
	SplitTrack
	JoinTrack
)

var kindNames = [...]string{"NoEvent", "StartTrack", "StopTrack", "Station", "SplitTrack", "JoinTrack"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Event is one step of the layout. Other is the second track of a split
// or join; Label is set for stations.
type Event struct {
	Kind  Kind
	Track int
	Other int
	Label string
}

func (e Event) String() string {
	switch e.Kind {
	case StartTrack, StopTrack:
		return fmt.Sprintf("%s(%d)", e.Kind, e.Track)
	case Station:
		return fmt.Sprintf("%s(%d, %s)", e.Kind, e.Track, e.Label)
	case SplitTrack, JoinTrack:
		return fmt.Sprintf("%s(%d, %d)", e.Kind, e.Track, e.Other)
	}
	return e.Kind.String()
}

// History is what the layout needs from an engine.
type History interface {
	CommitEdges() iter.Seq2[uid.Luid, []chit.Derivation]
	LuidToUUID(uid.Luid) (uid.UUID, bool)
}

func label(h History, commit, patch uid.Luid) string {
	c, _ := h.LuidToUUID(commit)
	p, _ := h.LuidToUUID(patch)
	return uid.Base64URL(c) + " <- " + uid.Base64URL(p)
}

// Events walks the commits newest first. Only the first derivation of a
// commit is drawn.
func Events(h History) []Event {
	type edge struct {
		commit uid.Luid
		der    chit.Derivation
	}
	var edges []edge
	for commit, ders := range h.CommitEdges() {
		if len(ders) > 0 {
			edges = append(edges, edge{commit, ders[0]})
		}
	}
	slices.Reverse(edges)

	events := make([]Event, 0, len(edges)*3)
	tracks := make(map[uid.Luid]int)
	nTracks := 0
	for _, e := range edges {
		track, ok := tracks[e.commit]
		if !ok {
			track = nTracks
			nTracks++
			tracks[e.commit] = track
			events = append(events, Event{Kind: NoEvent}, Event{Kind: StartTrack, Track: track})
		}
		events = append(events, Event{Kind: Station, Track: track, Label: label(h, e.commit, e.der.Patch)})
		parents := e.der.Sources
		if len(parents) == 0 {
			events = append(events, Event{Kind: NoEvent}, Event{Kind: StopTrack, Track: track}, Event{Kind: NoEvent})
			continue
		}
		for _, parent := range parents[1:] {
			branch := nTracks
			nTracks++
			events = append(events, Event{Kind: SplitTrack, Track: track, Other: branch})
			if existing, ok := tracks[parent]; ok {
				events = append(events, Event{Kind: JoinTrack, Track: branch, Other: existing})
			} else {
				tracks[parent] = branch
			}
		}
		if existing, ok := tracks[parents[0]]; ok {
			events = append(events, Event{Kind: JoinTrack, Track: track, Other: existing})
		} else {
			tracks[parents[0]] = track
		}
	}
	return events
}

// Render draws events as text, one column per live track:
//
//	*    station on this track
//	|    track passing by
//	\    track split off at this row
//	/    track ending by joining another
//	o    track stopping
func Render(events []Event) string {
	var sb strings.Builder
	var columns []int
	row := func(mark map[int]byte, tail string) {
		line := make([]string, len(columns))
		for i, t := range columns {
			ch, ok := mark[t]
			if !ok {
				ch = '|'
			}
			line[i] = string(ch)
		}
		sb.WriteString(strings.TrimRight(strings.Join(line, " "), " "))
		if tail != "" {
			sb.WriteString("  ")
			sb.WriteString(tail)
		}
		sb.WriteByte('\n')
	}
	drop := func(track int) {
		if i := slices.Index(columns, track); i >= 0 {
			columns = slices.Delete(columns, i, i+1)
		}
	}
	for _, e := range events {
		switch e.Kind {
		case StartTrack:
			columns = append(columns, e.Track)
		case Station:
			row(map[int]byte{e.Track: '*'}, e.Label)
		case SplitTrack:
			columns = append(columns, e.Other)
			row(map[int]byte{e.Other: '\\'}, "")
		case JoinTrack:
			row(map[int]byte{e.Track: '/'}, "")
			drop(e.Track)
		case StopTrack:
			row(map[int]byte{e.Track: 'o'}, "")
			drop(e.Track)
		}
	}
	return sb.String()
}
