package utils

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger_DefaultArgs(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, slog.LevelInfo)
	ctx := WithDefaultArgs(context.Background(), "op", "load")
	log.InfoCtx(ctx, "loading patch", "n", 1)
	log.Debug("hidden")
	out := buf.String()
	assert.Contains(t, out, "[chit] loading patch")
	assert.Contains(t, out, "n=1")
	assert.Contains(t, out, "op=load")
	assert.NotContains(t, out, "hidden")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	assert.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
	lvl, err = ParseLevel("warning")
	assert.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)
	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
