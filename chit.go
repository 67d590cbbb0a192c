// Package chit is a version-control engine for sets of entities. History
// is a DAG of commits linked by immutable patches stored one per file;
// every commit materializes to the set of entities alive in it.
//
// A Chit is not safe for concurrent use. Hosts serialize mutating calls.
package chit

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"runtime"
	"slices"

	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/davidad/chit/chit_errors"
	"github.com/davidad/chit/index"
	"github.com/davidad/chit/storage"
	"github.com/davidad/chit/uid"
	"github.com/davidad/chit/utils"
)

type Options struct {
	// Dir holds the patches/ directory.
	Dir string
	// IndexDir enables the pebble index store when set.
	IndexDir string
	Logger   utils.Logger

	LoadWorkers       int
	VersionCacheSize  int
	QuarantineInvalid bool
}

func (o *Options) SetDefaults() {
	if o.Dir == "" {
		o.Dir = "."
	}
	if o.Logger == nil {
		o.Logger = utils.NewDefaultLogger(slog.LevelWarn)
	}
	if o.LoadWorkers <= 0 {
		o.LoadWorkers = runtime.GOMAXPROCS(0)
	}
	if o.VersionCacheSize <= 0 {
		o.VersionCacheSize = 1024
	}
}

// Derivation is one way of reaching a commit: a patch applied to the
// source commits.
type Derivation struct {
	Sources []Luid
	Patch   Luid
}

type Chit struct {
	opts  Options
	log   utils.Logger
	dir   *storage.PatchDir
	index *index.Store
	gen   *uid.Generator

	universe *Universe
	commits  map[Luid][]Derivation
	// registration order of commits
	order    []Luid
	patches  map[Luid]*Patch
	heads    map[Luid]struct{}
	consumed map[Luid]struct{}
	versions map[Luid]*Version

	working *Patch
	state   *roaring64.Bitmap
}

// New prepares an engine over opts.Dir without reading any patch.
func New(opts Options) (*Chit, error) {
	opts.SetDefaults()
	dir, err := storage.OpenPatchDir(opts.Dir)
	if err != nil {
		return nil, err
	}
	c := &Chit{
		opts:     opts,
		log:      opts.Logger,
		dir:      dir,
		gen:      uid.NewGenerator(),
		universe: NewUniverse(),
		commits:  make(map[Luid][]Derivation),
		patches:  make(map[Luid]*Patch),
		heads:    make(map[Luid]struct{}),
		consumed: make(map[Luid]struct{}),
		versions: make(map[Luid]*Version),
		working:  NewPatch(),
		state:    roaring64.New(),
	}
	if opts.IndexDir != "" {
		if c.index, err = index.Open(opts.IndexDir, opts.VersionCacheSize, c.log); err != nil {
			return nil, err
		}
		ids, err := c.index.Universe()
		if err != nil {
			_ = c.index.Close()
			return nil, err
		}
		for _, id := range ids {
			c.universe.Insert(id)
		}
		c.log.Info("index store opened", "dir", opts.IndexDir, "universe", len(ids))
	}
	return c, nil
}

// Open is New followed by LoadAllPatches.
func Open(opts Options) (*Chit, error) {
	c, err := New(opts)
	if err != nil {
		return nil, err
	}
	if _, err := c.LoadAllPatches(context.Background()); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Chit) Close() error {
	if c.index == nil {
		return nil
	}
	err := c.persistUniverse()
	if cerr := c.index.Close(); err == nil {
		err = cerr
	}
	c.index = nil
	return err
}

func (c *Chit) Logger() utils.Logger {
	return c.log
}

// Index is the index store, nil unless Options.IndexDir was set.
func (c *Chit) Index() *index.Store {
	return c.index
}

func (c *Chit) persistUniverse() error {
	for luid, id := range c.universe.Since(c.index.Stored()) {
		if err := c.index.AppendUniverse(luid, id); err != nil {
			return err
		}
	}
	return nil
}

// flushIndex makes the universe and staged checkpoints durable. Failures
// only cost a slower next load, so they are logged and not returned.
func (c *Chit) flushIndex() {
	if c.index == nil {
		return
	}
	err := c.persistUniverse()
	if err == nil {
		err = c.index.Flush()
	}
	if err != nil {
		c.log.Warn("index store flush failed", "err", err)
	}
}

func (c *Chit) LuidToUUID(luid Luid) (UUID, bool) {
	return c.universe.Resolve(luid)
}

func (c *Chit) UUIDToLuid(id UUID) (Luid, bool) {
	return c.universe.Lookup(id)
}

func (c *Chit) resolve(luid Luid) UUID {
	id, _ := c.universe.Resolve(luid)
	return id
}

func (c *Chit) uuids(luids []Luid) iter.Seq[UUID] {
	return func(yield func(UUID) bool) {
		for _, l := range luids {
			if !yield(c.resolve(l)) {
				return
			}
		}
	}
}

// Commits yields every known target commit in registration order.
func (c *Chit) Commits() iter.Seq[UUID] {
	return c.uuids(c.order)
}

// Heads yields the commits no materialized patch builds on, by Luid.
func (c *Chit) Heads() iter.Seq[UUID] {
	heads := make([]Luid, 0, len(c.heads))
	for l := range c.heads {
		heads = append(heads, l)
	}
	slices.Sort(heads)
	return c.uuids(heads)
}

// List yields the entities of the working state.
func (c *Chit) List() iter.Seq[UUID] {
	return func(yield func(UUID) bool) {
		for l := range bitmapLuids(c.state) {
			if !yield(c.resolve(l)) {
				return
			}
		}
	}
}

func (c *Chit) Count() int {
	return int(c.state.GetCardinality())
}

// WorkingPatch returns a copy of the staged edits.
func (c *Chit) WorkingPatch() *Patch {
	return c.working.Clone()
}

// Version returns the materialized version of a commit. It must not be
// modified.
func (c *Chit) Version(commit UUID) (*Version, bool) {
	luid, ok := c.universe.Lookup(commit)
	if !ok {
		return nil, false
	}
	v, ok := c.versions[luid]
	return v, ok
}

// Patch returns a loaded patch by its UUID. It must not be modified.
func (c *Chit) Patch(id UUID) (*Patch, bool) {
	luid, ok := c.universe.Lookup(id)
	if !ok {
		return nil, false
	}
	p, ok := c.patches[luid]
	return p, ok
}

func (c *Chit) commitNotFound(id UUID) error {
	return fmt.Errorf("%w: %s", chit_errors.ErrCommitNotFound, uid.Base64URL(id))
}
