/*
Package uid holds the identifier layers used across chit.

A UUID is the global, 128-bit identity of an entity, a commit or a patch.
Everything else is a dense local coordinate over the universe of known UUIDs:

	UUID ──universe──▶ Luid ──version──▶ Vlid ──subset──▶ Slid

Luid is stable for the lifetime of a universe, Vlid is a position inside a
single version's bitmap, Slid a position inside one subset of a version.
The three are distinct types so one can not be passed where another is
expected; the conversions live on chit.Version.
*/
package uid

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/davidad/chit/chit_errors"
	"github.com/google/uuid"
)

type UUID = uuid.UUID

var Nil = uuid.Nil

// Luid is a universe-local id.
type Luid uint64

// Vlid is a version-local id.
type Vlid uint64

// Slid is a subset-local id.
type Slid uint64

// Base64URLLen is the length of an encoded UUID (no padding).
const Base64URLLen = 22

var b64 = base64.RawURLEncoding.Strict()

func Base64URL(id UUID) string {
	return b64.EncodeToString(id[:])
}

// ParseBase64URL decodes a 22-character unpadded url-safe form.
// Non-canonical trailing bits are rejected.
func ParseBase64URL(s string) (id UUID, err error) {
	if len(s) != Base64URLLen {
		return Nil, fmt.Errorf("%w: uuid %q: want %d base64url chars, got %d",
			chit_errors.ErrValidation, s, Base64URLLen, len(s))
	}
	var buf [18]byte
	n, err := b64.Decode(buf[:], []byte(s))
	if err != nil {
		return Nil, fmt.Errorf("%w: uuid %q: %v", chit_errors.ErrValidation, s, err)
	}
	if n != len(id) {
		return Nil, fmt.Errorf("%w: uuid %q: decoded %d bytes", chit_errors.ErrValidation, s, n)
	}
	copy(id[:], buf[:n])
	return id, nil
}

func Compare(a, b UUID) int {
	return bytes.Compare(a[:], b[:])
}

func Less(a, b UUID) bool {
	return Compare(a, b) < 0
}

// Key is an ordered string form of the raw bytes; it sorts like Compare.
func Key(id UUID) string {
	return string(id[:])
}

func FromKey(key string) (id UUID) {
	copy(id[:], key)
	return
}

// Generator mints time-ordered (v7) UUIDs that strictly increase in byte
// order for as long as the generator lives, even when the clock stalls or
// steps back.
type Generator struct {
	lock sync.Mutex
	last UUID
	mint func() (UUID, error)
}

func NewGenerator() *Generator {
	return &Generator{mint: uuid.NewV7}
}

func (g *Generator) New() (UUID, error) {
	g.lock.Lock()
	defer g.lock.Unlock()
	if g.mint == nil {
		g.mint = uuid.NewV7
	}
	id, err := g.mint()
	if err != nil {
		return Nil, err
	}
	if Compare(id, g.last) <= 0 {
		id = successor(g.last)
	}
	g.last = id
	return id, nil
}

// successor bumps the random tail (bytes 9..15, then the low 6 bits of the
// variant byte) so the version and variant bits stay intact.
func successor(id UUID) UUID {
	for i := 15; i > 8; i-- {
		id[i]++
		if id[i] != 0 {
			return id
		}
	}
	id[8] = (id[8] & 0xc0) | ((id[8] + 1) & 0x3f)
	return id
}
