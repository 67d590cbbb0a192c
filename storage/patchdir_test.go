package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/davidad/chit/chit_errors"
	"github.com/davidad/chit/uid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileNames(t *testing.T) {
	id, err := uid.NewGenerator().New()
	require.NoError(t, err)
	name := FileName(id)
	assert.Len(t, name, len(FilePrefix)+uid.Base64URLLen)
	back, err := ParseFileName(name)
	require.NoError(t, err)
	assert.Equal(t, id, back)

	for _, bad := range []string{"", "patch_", "patch_short", "commit_" + uid.Base64URL(id), name + ".rejected"} {
		_, err := ParseFileName(bad)
		assert.ErrorIs(t, err, chit_errors.ErrBadFileName, bad)
		assert.ErrorIs(t, err, chit_errors.ErrValidation, bad)
	}
}

func TestWriteReadList(t *testing.T) {
	root := t.TempDir()
	dir, err := OpenPatchDir(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, SubDir), dir.Path())

	gen := uid.NewGenerator()
	a, _ := gen.New()
	b, _ := gen.New()
	require.NoError(t, dir.Write(b, []byte("second")))
	require.NoError(t, dir.Write(a, []byte("first")))
	require.NoError(t, os.WriteFile(filepath.Join(dir.Path(), "README"), []byte("x"), 0o644))

	names, err := dir.List()
	require.NoError(t, err)
	assert.Equal(t, []string{FileName(a), FileName(b)}, names)

	var got string
	require.NoError(t, dir.Read(FileName(b), func(data []byte) error {
		got = string(data)
		return nil
	}))
	assert.Equal(t, "second", got)
}

func TestWriteIsExclusive(t *testing.T) {
	dir, err := OpenPatchDir(t.TempDir())
	require.NoError(t, err)
	id, _ := uid.NewGenerator().New()
	require.NoError(t, dir.Write(id, []byte("one")))

	err = dir.Write(id, []byte("two"))
	assert.ErrorIs(t, err, chit_errors.ErrIO)
	assert.ErrorIs(t, err, os.ErrExist)

	var got string
	require.NoError(t, dir.Read(FileName(id), func(data []byte) error {
		got = string(data)
		return nil
	}))
	assert.Equal(t, "one", got)
}

func TestReadMissing(t *testing.T) {
	dir, err := OpenPatchDir(t.TempDir())
	require.NoError(t, err)
	err = dir.Read("patch_nothere", func([]byte) error { return nil })
	assert.ErrorIs(t, err, chit_errors.ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestQuarantine(t *testing.T) {
	dir, err := OpenPatchDir(t.TempDir())
	require.NoError(t, err)
	id, _ := uid.NewGenerator().New()
	require.NoError(t, dir.Write(id, []byte("junk")))
	require.NoError(t, dir.Quarantine(FileName(id)))

	names, err := dir.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}
