package logging

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_CreatesLogDirectoryAndSetsGlobalLevel(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.LogDir = filepath.Join(dir, "logs")
	cfg.Level = "debug"

	require.NoError(t, Init(cfg))
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	assert.DirExists(t, cfg.LogDir)
}

func TestInit_InvalidLevelFallsBackToInfo(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.LogDir = filepath.Join(dir, "logs")
	cfg.Level = "not-a-real-level"

	require.NoError(t, Init(cfg))
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestLevelFilteredWriter_PassesAtOrAboveMinimum(t *testing.T) {
	var buf bytes.Buffer
	w := &levelFilteredWriter{w: &buf, min: zerolog.ErrorLevel}

	n, err := w.WriteLevel(zerolog.ErrorLevel, []byte("error line"))
	require.NoError(t, err)
	assert.Equal(t, len("error line"), n)
	assert.Equal(t, "error line", buf.String())
}

func TestLevelFilteredWriter_DropsBelowMinimum(t *testing.T) {
	var buf bytes.Buffer
	w := &levelFilteredWriter{w: &buf, min: zerolog.ErrorLevel}

	n, err := w.WriteLevel(zerolog.InfoLevel, []byte("info line"))
	require.NoError(t, err)
	assert.Equal(t, len("info line"), n)
	assert.Empty(t, buf.String())
}

func TestLevelFilteredWriter_WriteAlwaysForwards(t *testing.T) {
	var buf bytes.Buffer
	w := &levelFilteredWriter{w: &buf, min: zerolog.ErrorLevel}

	_, err := w.Write([]byte("raw bytes"))
	require.NoError(t, err)
	assert.Equal(t, "raw bytes", buf.String())
}
