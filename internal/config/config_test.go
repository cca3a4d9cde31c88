package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, DefaultDimensions, cfg.Embeddings.Dimensions)
	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
	assert.Equal(t, "all-minilm", cfg.Embeddings.Model)
	assert.InDelta(t, 0.7, cfg.Similarity.RefineThreshold, 1e-9)
	assert.InDelta(t, 0.9, cfg.Similarity.MergeThreshold, 1e-9)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultDimensions, cfg.Embeddings.Dimensions)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
version: 1
notes:
  dir: /vault/notes
embeddings:
  provider: static
  dimensions: 256
similarity:
  merge_threshold: 0.85
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/vault/notes", cfg.Notes.Dir)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
	assert.Equal(t, 256, cfg.Embeddings.Dimensions)
	assert.InDelta(t, 0.85, cfg.Similarity.MergeThreshold, 1e-9)
	// Untouched fields keep defaults
	assert.InDelta(t, 0.7, cfg.Similarity.RefineThreshold, 1e-9)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("TAGVAULT_OLLAMA_HOST", "http://embedbox:11434")
	t.Setenv("TAGVAULT_DATA_DIR", "/tmp/tv-data")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://embedbox:11434", cfg.Embeddings.OllamaHost)
	assert.Equal(t, "/tmp/tv-data", cfg.DataDir)
	assert.Equal(t, filepath.Join("/tmp/tv-data", "ledger.db"), cfg.LedgerPath())
	assert.Equal(t, filepath.Join("/tmp/tv-data", "vectors.gob"), cfg.VectorPath())
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg := NewConfig()
	cfg.Embeddings.Dimensions = 0
	assert.Error(t, cfg.Validate())

	cfg = NewConfig()
	cfg.Embeddings.Provider = "redis"
	assert.Error(t, cfg.Validate())

	cfg = NewConfig()
	cfg.Similarity.MergeThreshold = 1.5
	assert.Error(t, cfg.Validate())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := NewConfig()
	cfg.Notes.Dir = "/vault"
	cfg.Similarity.MaxResults = 10
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/vault", loaded.Notes.Dir)
	assert.Equal(t, 10, loaded.Similarity.MaxResults)
}
