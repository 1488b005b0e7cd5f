package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sgf_review/internal/bootstrap"
	"sgf_review/internal/domain/sgf"
)

func TestDefaultOutput(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "games/a_analyzed.sgf", defaultOutput("games/a.sgf"))
	assert.Equal(t, "dir.v1/a_analyzed.sgf", defaultOutput("dir.v1/a"))
}

func TestWriteRecordReplaces(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.sgf")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	game, err := sgf.Parse("(;SZ[19];B[pd])")
	require.NoError(t, err)
	require.NoError(t, writeRecord(path, game))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "B[pd]")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestReviewConfig(t *testing.T) {
	t.Parallel()

	cfg := bootstrap.Default()
	rc := reviewConfig(cfg)
	assert.Equal(t, cfg.VariationsThresh, rc.VariationsThreshold)
	assert.Equal(t, cfg.NodesPerVariation, rc.NodesPerVariation)
	assert.Equal(t, 1000, rc.AnalyzeEnd)
}
