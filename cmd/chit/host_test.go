package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/davidad/chit"
	"github.com/davidad/chit/chit_errors"
	"github.com/davidad/chit/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHost(t *testing.T) (*Host, *bytes.Buffer) {
	c, err := chit.Open(chit.Options{Dir: t.TempDir(), Logger: utils.NewDefaultLogger(slog.LevelError)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	out := &bytes.Buffer{}
	return NewHost(c, out), out
}

func lines(out *bytes.Buffer) []string {
	defer out.Reset()
	return strings.Fields(out.String())
}

func TestHost_AddCommitList(t *testing.T) {
	h, out := newTestHost(t)
	require.NoError(t, h.Exec("add"))
	added := lines(out)
	require.Len(t, added, 1)

	require.NoError(t, h.Exec("status"))
	assert.Equal(t, []string{"+", added[0]}, lines(out))

	require.NoError(t, h.Exec("commit"))
	report := out.String()
	out.Reset()
	assert.Contains(t, report, "+1 -0 ~0")

	require.NoError(t, h.Exec("ls"))
	assert.Equal(t, added, lines(out))
	require.NoError(t, h.Exec("count"))
	assert.Equal(t, []string{"1"}, lines(out))
	require.NoError(t, h.Exec("heads"))
	heads := lines(out)
	require.NoError(t, h.Exec("log"))
	assert.Equal(t, heads, lines(out))

	require.NoError(t, h.Exec("checkout "+heads[0]))
	require.NoError(t, h.Exec("graph"))
	assert.Contains(t, out.String(), heads[0])
}

func TestHost_Errors(t *testing.T) {
	h, out := newTestHost(t)
	assert.ErrorContains(t, h.Exec("frobnicate"), "command unknown")
	assert.ErrorIs(t, h.Exec("checkout"), ErrUsage)
	assert.ErrorIs(t, h.Exec("checkout !!"), chit_errors.ErrValidation)
	assert.ErrorIs(t, h.Exec("checkout AAAAAAAAAAAAAAAAAAAAAA"), chit_errors.ErrNotFound)
	assert.ErrorIs(t, h.Exec("merge AAAAAAAAAAAAAAAAAAAAAA"), chit_errors.ErrCommitNotFound)
	assert.NoError(t, h.Exec(""))

	require.NoError(t, h.Exec("add"))
	id := lines(out)[0]
	require.NoError(t, h.Exec("rm "+id))
	assert.ErrorIs(t, h.Exec("rm "+id), chit_errors.ErrNotFound)
}

func TestHost_Help(t *testing.T) {
	h, out := newTestHost(t)
	require.NoError(t, h.Exec("help"))
	for _, c := range commands {
		assert.Contains(t, out.String(), c.name)
	}
}

func TestHost_Load(t *testing.T) {
	h, out := newTestHost(t)
	require.NoError(t, h.Exec("load"))
	assert.Contains(t, out.String(), "0 new patches")
}
