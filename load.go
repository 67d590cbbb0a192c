package chit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/davidad/chit/chit_errors"
	"github.com/davidad/chit/storage"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/errgroup"
)

// Rejection is a patch file that failed validation.
type Rejection struct {
	File string
	Err  error
}

type LoadReport struct {
	// Registered counts patches seen for the first time.
	Registered int
	// Skipped counts files whose patch was already registered.
	Skipped      int
	Materialized int
	Rejected     []Rejection
}

type decoded struct {
	id    UUID
	patch *Patch
}

// LoadAllPatches scans the patch directory and folds every new patch into
// the history. Files are registered in name order, then every commit
// without a version is materialized, including ones a failed load left
// behind. A load is a no-op for patches already known.
//
// A file that fails validation aborts the load unless
// Options.QuarantineInvalid is set, in which case it is moved aside and
// skipped. Rejected files are listed in the report either way.
func (c *Chit) LoadAllPatches(ctx context.Context) (*LoadReport, error) {
	start := time.Now()
	defer func() { LoadDuration.Observe(time.Since(start).Seconds()) }()

	report := &LoadReport{}
	names, err := c.dir.List()
	if err != nil {
		return report, err
	}
	fresh := make([]string, 0, len(names))
	for _, name := range names {
		id, err := storage.ParseFileName(name)
		if err != nil {
			continue
		}
		if luid, ok := c.universe.Lookup(id); ok {
			if _, ok := c.patches[luid]; ok {
				report.Skipped++
				continue
			}
		}
		fresh = append(fresh, name)
	}

	results := xsync.NewMapOf[string, decoded]()
	failures := xsync.NewMapOf[string, error]()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.LoadWorkers)
	for _, name := range fresh {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			id, _ := storage.ParseFileName(name)
			err := c.dir.Read(name, func(data []byte) error {
				p, err := DecodePatch(data)
				if err != nil {
					return err
				}
				results.Store(name, decoded{id: id, patch: p})
				return nil
			})
			if err != nil {
				if !errors.Is(err, chit_errors.ErrValidation) {
					return err
				}
				failures.Store(name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	for _, name := range fresh {
		if err, ok := failures.Load(name); ok {
			report.Rejected = append(report.Rejected, Rejection{File: name, Err: err})
		}
	}
	PatchesRejected.Add(float64(len(report.Rejected)))
	if len(report.Rejected) > 0 {
		if !c.opts.QuarantineInvalid {
			first := report.Rejected[0]
			return report, fmt.Errorf("load %s: %w", first.File, first.Err)
		}
		for _, rej := range report.Rejected {
			c.log.WarnCtx(ctx, "quarantining invalid patch file", "file", rej.File, "err", rej.Err)
			if err := c.dir.Quarantine(rej.File); err != nil {
				c.log.WarnCtx(ctx, "could not move invalid patch file aside", "file", rej.File, "err", err)
			}
		}
	}

	registered := make([]Luid, 0, len(fresh))
	for i, name := range fresh {
		d, ok := results.Load(name)
		if !ok {
			continue
		}
		c.log.InfoCtx(ctx, "loading patch", "n", i+1, "of", len(fresh), "file", name)
		if luid, added := c.indexPatch(d.id, d.patch); added {
			registered = append(registered, luid)
		}
	}
	report.Registered = len(registered)
	PatchesLoaded.Add(float64(len(registered)))

	before := len(c.versions)
	for _, luid := range c.pendingPatches() {
		if err := c.processPatch(luid); err != nil {
			report.Materialized = len(c.versions) - before
			return report, err
		}
	}
	report.Materialized = len(c.versions) - before
	c.flushIndex()

	if err := c.checkoutLatestHead(); err != nil {
		return report, err
	}
	return report, nil
}

// pendingPatches lists, in registration order, the first patch of every
// commit that has no version yet. A load that failed earlier leaves such
// commits behind.
func (c *Chit) pendingPatches() []Luid {
	var pending []Luid
	for _, target := range c.order {
		if _, ok := c.versions[target]; ok {
			continue
		}
		pending = append(pending, c.commits[target][0].Patch)
	}
	return pending
}

// checkoutLatestHead moves a clean working patch to the greatest head.
func (c *Chit) checkoutLatestHead() error {
	if len(c.heads) == 0 {
		return nil
	}
	if !c.working.IsEmpty() {
		c.log.Info("keeping staged edits, not checking out the latest head")
		return nil
	}
	var latest Luid
	for l := range c.heads {
		latest = max(latest, l)
	}
	return c.Checkout(c.resolve(latest))
}
