package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 128, cfg.Embedding.MaxBatchSize)
	assert.Equal(t, 3, cfg.Embedding.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Embedding.RetryDelay.Duration())
	assert.Equal(t, "gpt-4o-mini", cfg.Generation.Model)
	assert.Equal(t, 1000, cfg.Generation.MaxTokens)
	assert.InDelta(t, 0.1, cfg.Generation.Temperature, 1e-6)
	assert.Equal(t, 400, cfg.Chunking.TargetTokens)
	assert.Equal(t, 80, cfg.Chunking.OverlapTokens)
	assert.Equal(t, "cl100k_base", cfg.Chunking.Encoding)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 200, cfg.Retrieval.SnippetLength)
	assert.Equal(t, 1536, cfg.Store.Dimension)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
embedding:
  model: text-embedding-3-large
  max_batch_size: 64
chunking:
  target_tokens: 300
  overlap_tokens: 50
store:
  base_path: /tmp/stores
  dimension: 3072
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "text-embedding-3-large", cfg.Embedding.Model)
	assert.Equal(t, 64, cfg.Embedding.MaxBatchSize)
	assert.Equal(t, 300, cfg.Chunking.TargetTokens)
	assert.Equal(t, 50, cfg.Chunking.OverlapTokens)
	assert.Equal(t, "/tmp/stores", cfg.Store.BasePath)
	assert.Equal(t, 3072, cfg.Store.Dimension)
	// Untouched sections keep defaults.
	assert.Equal(t, 5, cfg.Retrieval.TopK)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retrieval:\n  top_k: 3\n"), 0o600))

	t.Setenv("CHATBOT_RETRIEVAL_TOP_K", "8")
	t.Setenv("CHATBOT_EMBEDDING_MODEL", "text-embedding-ada-002")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Retrieval.TopK)
	assert.Equal(t, "text-embedding-ada-002", cfg.Embedding.Model)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Chunking.TargetTokens)
}

func TestLoadRejectsInvalidChunking(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunking:\n  target_tokens: 100\n  overlap_tokens: 100\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap_tokens")
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("sk-very-secret")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "sk-very-secret", s.Value())
	assert.True(t, s.IsSet())

	data, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "very-secret")
}
