package chit

import (
	"encoding/binary"
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/cespare/xxhash"
	"github.com/davidad/chit/chit_errors"
	"github.com/davidad/chit/protocol"
	"github.com/davidad/chit/uid"
)

// Patch file layout (all records in explicit, typed TLV form):
//
//	P {                       patch
//	  T  target commit        16 bytes
//	  S  source commits       16*n, in order
//	  D  deletions            16*n, strictly increasing
//	  A  additions            16*n, strictly increasing
//	  M  merges               32*n (entity, canonical), strictly increasing
//	  C {                     context patch
//	    X { N name ... }      ... deleted paths
//	    B { N name ... U id } ... bindings
//	  }
//	}
//	H  xxhash64 of the whole P record, little endian
//
// Sets are written sorted, so equal patches encode to equal bytes.

const uuidLen = 16

func appendUUIDs(into []byte, lit byte, ids []UUID) []byte {
	into = protocol.AppendHeader(into, lit, len(ids)*uuidLen)
	for _, id := range ids {
		into = append(into, id[:]...)
	}
	return into
}

func appendPath(into []byte, path []string) []byte {
	for _, name := range path {
		into = protocol.Append(into, 'N', []byte(name))
	}
	return into
}

// EncodePatch renders the canonical file form of a patch.
func EncodePatch(p *Patch) []byte {
	bookmark, buf := protocol.OpenHeader(nil, 'P')
	buf = protocol.Append(buf, 'T', p.TargetCommit[:])
	buf = appendUUIDs(buf, 'S', p.SourceCommits)
	buf = appendUUIDs(buf, 'D', p.Deletions.Sorted())
	buf = appendUUIDs(buf, 'A', p.Additions.Sorted())

	keys := make([]UUID, 0, len(p.Merges))
	for k := range p.Merges {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, uid.Compare)
	buf = protocol.AppendHeader(buf, 'M', len(keys)*2*uuidLen)
	for _, k := range keys {
		v := p.Merges[k]
		buf = append(buf, k[:]...)
		buf = append(buf, v[:]...)
	}

	cmark, buf := protocol.OpenHeader(buf, 'C')
	for _, path := range sortedPaths(p.Context.Deletions) {
		xmark, b := protocol.OpenHeader(buf, 'X')
		buf = appendPath(b, path)
		protocol.CloseHeader(buf, xmark)
	}
	for _, bind := range sortedBindings(p.Context.Additions) {
		bmark, b := protocol.OpenHeader(buf, 'B')
		buf = appendPath(b, bind.Path)
		buf = protocol.Append(buf, 'U', bind.Target[:])
		protocol.CloseHeader(buf, bmark)
	}
	protocol.CloseHeader(buf, cmark)
	protocol.CloseHeader(buf, bookmark)

	sum := binary.LittleEndian.AppendUint64(nil, xxhash.Sum64(buf))
	return protocol.Append(buf, 'H', sum)
}

func comparePaths(a, b []string) int {
	return slices.Compare(a, b)
}

func sortedPaths(paths [][]string) [][]string {
	sorted := slices.Clone(paths)
	slices.SortFunc(sorted, comparePaths)
	return sorted
}

func sortedBindings(binds []ContextBinding) []ContextBinding {
	sorted := slices.Clone(binds)
	slices.SortFunc(sorted, func(a, b ContextBinding) int {
		return comparePaths(a.Path, b.Path)
	})
	return sorted
}

func invalid(format string, a ...any) error {
	return fmt.Errorf("%w: patch: %s", chit_errors.ErrValidation, fmt.Sprintf(format, a...))
}

// ValidatePatch checks the structure of a patch file without building
// anything from it.
func ValidatePatch(data []byte) error {
	return scanPatch(data, nil)
}

// DecodePatch validates data and only then copies an owned Patch out of it;
// the result shares no memory with data.
func DecodePatch(data []byte) (*Patch, error) {
	if err := scanPatch(data, nil); err != nil {
		return nil, err
	}
	p := NewPatch()
	if err := scanPatch(data, p); err != nil {
		return nil, err
	}
	return p, nil
}

func takeField(lit byte, body []byte) (field, rest []byte, err error) {
	field, rest, err = protocol.TakeWary(lit, body)
	if err != nil {
		return nil, nil, invalid("record %c: %v", lit, err)
	}
	return
}

// takeUUIDs checks a list of n*width bytes, strictly increasing if sorted.
func takeUUIDs(lit byte, body []byte, width int, sorted bool) (list, rest []byte, err error) {
	list, rest, err = takeField(lit, body)
	if err != nil {
		return
	}
	if len(list)%width != 0 {
		return nil, nil, invalid("record %c: length %d is not a multiple of %d", lit, len(list), width)
	}
	if sorted {
		for off := width; off < len(list); off += width {
			prev := list[off-width : off-width+uuidLen]
			cur := list[off : off+uuidLen]
			if string(prev) >= string(cur) {
				return nil, nil, invalid("record %c: entries out of order or repeated", lit)
			}
		}
	}
	return
}

func toUUID(b []byte) (id UUID) {
	copy(id[:], b)
	return
}

func scanPath(lit byte, body []byte, into *[]string) (rest []byte, err error) {
	rest = body
	n := 0
	for len(rest) > 0 && (rest[0]&^protocol.CaseBit) == 'N' {
		var name []byte
		name, rest, err = takeField('N', rest)
		if err != nil {
			return
		}
		if len(name) == 0 || !utf8.Valid(name) {
			return nil, invalid("record %c: bad name", lit)
		}
		if into != nil {
			*into = append(*into, string(name))
		}
		n++
	}
	if n == 0 {
		return nil, invalid("record %c: empty path", lit)
	}
	return
}

func scanContext(body []byte, into *ContextPatch) error {
	rest := body
	var prev []string
	seenBinding := false
	for len(rest) > 0 {
		lit, rec, more, err := protocol.TakeAnyWary(rest)
		if err != nil {
			return invalid("context: %v", err)
		}
		rest = more
		var path []string
		switch lit {
		case 'X':
			if seenBinding {
				return invalid("context: deletion after binding")
			}
			if rec, err = scanPath('X', rec, &path); err != nil {
				return err
			}
			if len(rec) != 0 {
				return invalid("context: trailing bytes in deletion")
			}
		case 'B':
			if !seenBinding {
				seenBinding, prev = true, nil
			}
			if rec, err = scanPath('B', rec, &path); err != nil {
				return err
			}
			var target []byte
			target, rec, err = takeField('U', rec)
			if err != nil {
				return err
			}
			if len(target) != uuidLen || len(rec) != 0 {
				return invalid("context: bad binding target")
			}
			if into != nil {
				into.Additions = append(into.Additions, ContextBinding{path, toUUID(target)})
			}
		default:
			return invalid("context: unexpected record %c", lit)
		}
		if prev != nil && comparePaths(prev, path) >= 0 {
			return invalid("context: paths out of order or repeated")
		}
		prev = path
		if lit == 'X' && into != nil {
			into.Deletions = append(into.Deletions, path)
		}
	}
	return nil
}

// scanPatch walks the whole layout, checking every bound; when into is
// not nil it is filled along the way.
func scanPatch(data []byte, into *Patch) error {
	whole, tail, err := protocol.TakeWary('P', data)
	if err != nil {
		return invalid("envelope: %v", err)
	}
	prec := data[:len(data)-len(tail)]
	sum, tail, err := protocol.TakeWary('H', tail)
	if err != nil {
		return invalid("checksum record: %v", err)
	}
	if len(tail) != 0 {
		return invalid("%d trailing bytes", len(tail))
	}
	if len(sum) != 8 || binary.LittleEndian.Uint64(sum) != xxhash.Sum64(prec) {
		return invalid("checksum mismatch")
	}

	target, rest, err := takeField('T', whole)
	if err != nil {
		return err
	}
	if len(target) != uuidLen {
		return invalid("target commit is %d bytes", len(target))
	}
	sources, rest, err := takeUUIDs('S', rest, uuidLen, false)
	if err != nil {
		return err
	}
	for i := 0; i < len(sources); i += uuidLen {
		for j := 0; j < i; j += uuidLen {
			if string(sources[i:i+uuidLen]) == string(sources[j:j+uuidLen]) {
				return invalid("source commit repeated")
			}
		}
	}
	deletions, rest, err := takeUUIDs('D', rest, uuidLen, true)
	if err != nil {
		return err
	}
	additions, rest, err := takeUUIDs('A', rest, uuidLen, true)
	if err != nil {
		return err
	}
	merges, rest, err := takeUUIDs('M', rest, 2*uuidLen, true)
	if err != nil {
		return err
	}
	cbody, rest, err := takeField('C', rest)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return invalid("unexpected data after context")
	}
	var ctxInto *ContextPatch
	if into != nil {
		ctxInto = &into.Context
	}
	if err = scanContext(cbody, ctxInto); err != nil {
		return err
	}
	if into == nil {
		return nil
	}

	into.TargetCommit = toUUID(target)
	for i := 0; i < len(sources); i += uuidLen {
		into.SourceCommits = append(into.SourceCommits, toUUID(sources[i:]))
	}
	for i := 0; i < len(deletions); i += uuidLen {
		into.Deletions.Add(toUUID(deletions[i:]))
	}
	for i := 0; i < len(additions); i += uuidLen {
		into.Additions.Add(toUUID(additions[i:]))
	}
	for i := 0; i < len(merges); i += 2 * uuidLen {
		into.Merges[toUUID(merges[i:])] = toUUID(merges[i+uuidLen:])
	}
	return nil
}
