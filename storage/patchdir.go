// Package storage keeps one immutable file per patch in a flat directory.
package storage

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/davidad/chit/chit_errors"
	"github.com/davidad/chit/uid"
	"github.com/pkg/errors"
)

const (
	SubDir     = "patches"
	FilePrefix = "patch_"
)

func FileName(id uid.UUID) string {
	return FilePrefix + uid.Base64URL(id)
}

// ParseFileName recovers the patch UUID a file is named after.
func ParseFileName(name string) (uid.UUID, error) {
	rest, ok := strings.CutPrefix(name, FilePrefix)
	if !ok {
		return uid.Nil, errors.Wrap(chit_errors.ErrBadFileName, name)
	}
	id, err := uid.ParseBase64URL(rest)
	if err != nil {
		return uid.Nil, errors.Wrap(chit_errors.ErrBadFileName, name)
	}
	return id, nil
}

type ioError struct {
	cause error
}

func (e *ioError) Error() string { return e.cause.Error() }

// Is lets errors.Is match both the kind and the os error underneath.
func (e *ioError) Is(target error) bool { return target == chit_errors.ErrIO }

func (e *ioError) Unwrap() error { return e.cause }

func ioFail(err error, format string, args ...any) error {
	return &ioError{cause: errors.Wrapf(err, format, args...)}
}

// PatchDir is the patch directory under a root.
type PatchDir struct {
	path string
}

// OpenPatchDir creates <root>/patches when missing.
func OpenPatchDir(root string) (*PatchDir, error) {
	path := filepath.Join(root, SubDir)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, ioFail(err, "create patch directory %s", path)
	}
	return &PatchDir{path: path}, nil
}

func (d *PatchDir) Path() string {
	return d.path
}

// List returns the patch file names in lexicographic order. Entries that
// are not named like patch files are skipped.
func (d *PatchDir) List() ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, ioFail(err, "list %s", d.path)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if _, err := ParseFileName(e.Name()); err != nil {
			continue
		}
		names = append(names, e.Name())
	}
	slices.Sort(names)
	return names, nil
}

// Read hands the file contents to use. The bytes are only valid until use
// returns; anything kept must be copied out.
func (d *PatchDir) Read(name string, use func(data []byte) error) error {
	file, err := os.Open(filepath.Join(d.path, name))
	if err != nil {
		return ioFail(err, "open %s", name)
	}
	defer file.Close()
	data, release, err := mapFile(file)
	if err != nil {
		return ioFail(err, "read %s", name)
	}
	defer release()
	return use(data)
}

// Write stores a new patch file. Patch files are immutable, so an
// existing file is an error.
func (d *PatchDir) Write(id uid.UUID, data []byte) (err error) {
	name := FileName(id)
	path := filepath.Join(d.path, name)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		return ioFail(err, "create %s", name)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = ioFail(cerr, "close %s", name)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	if _, err = file.Write(data); err != nil {
		return ioFail(err, "write %s", name)
	}
	if err = file.Sync(); err != nil {
		return ioFail(err, "sync %s", name)
	}
	return nil
}

// Quarantine moves a rejected file aside so later loads skip it.
func (d *PatchDir) Quarantine(name string) error {
	from := filepath.Join(d.path, name)
	if err := os.Rename(from, from+".rejected"); err != nil {
		return ioFail(err, "quarantine %s", name)
	}
	return nil
}
