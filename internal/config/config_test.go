package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWhenGraphGenerateSet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partarjan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("graph:\n  generate: true\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 0, cfg.Engine.NumThreads)
	require.Equal(t, 12, cfg.Engine.MapShardBits)
	require.Equal(t, 3, cfg.Engine.BlockedListP)
	require.True(t, cfg.Graph.Generate)
	require.Equal(t, 10000, cfg.Graph.NumVertices)
	require.Equal(t, 4, cfg.Graph.EdgeFactor)
	require.Equal(t, 100, cfg.Graph.ClusterCount)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadMissingPathRequiresGraphPathOrGenerate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partarjan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "graph.path is required")
}

func TestLoadWithoutConfigFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { require.NoError(t, os.Chdir(cwd)) }()

	_, err = Load("")
	require.Error(t, err, "defaults alone don't satisfy graph.path/generate, so Validate must reject this")
	require.Contains(t, err.Error(), "graph.path is required")
}

func TestValidateRejectsNegativeThreads(t *testing.T) {
	c := &Config{Engine: EngineConfig{NumThreads: -1, MapShardBits: 12, BlockedListP: 3}, Graph: GraphConfig{Generate: true}}
	require.Error(t, c.Validate())
}

func TestValidateRejectsOutOfRangeShardBits(t *testing.T) {
	c := &Config{Engine: EngineConfig{MapShardBits: 0, BlockedListP: 3}, Graph: GraphConfig{Generate: true}}
	require.Error(t, c.Validate())

	c.Engine.MapShardBits = 21
	require.Error(t, c.Validate())
}

func TestValidateRejectsOutOfRangeBlockedListP(t *testing.T) {
	c := &Config{Engine: EngineConfig{MapShardBits: 12, BlockedListP: 0}, Graph: GraphConfig{Generate: true}}
	require.Error(t, c.Validate())

	c.Engine.BlockedListP = 11
	require.Error(t, c.Validate())
}

func TestValidateAcceptsExplicitGraphPathWithoutGenerate(t *testing.T) {
	c := &Config{
		Engine: EngineConfig{MapShardBits: 12, BlockedListP: 3},
		Graph:  GraphConfig{Path: "graph.json"},
	}
	require.NoError(t, c.Validate())
}
