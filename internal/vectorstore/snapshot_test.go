package vectorstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildIndex(t *testing.T) *TenantIndex {
	t.Helper()
	ix, err := NewTenantIndex(3)
	require.NoError(t, err)
	require.NoError(t, ix.Upsert([][]float32{
		{1, 0, 0},
		{0, 1, 0},
	}, []Payload{
		{DocumentID: "doc-1", SourceID: "doc-1", ChunkID: "doc-1_0", Text: "first chunk", Metadata: map[string]string{"chunk_index": "0"}},
		{DocumentID: "doc-1", SourceID: "doc-1", ChunkID: "doc-1_1", Text: "second chunk", Metadata: map[string]string{"chunk_index": "1"}},
	}))
	return ix
}

func TestSnapshot_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tenant-a")
	ix := buildIndex(t)

	require.NoError(t, saveSnapshot(dir, ix))
	assert.True(t, snapshotExists(dir))

	loaded, err := loadSnapshot(dir, 3)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, ix.Count(), loaded.Count())

	// Ranking must survive the round trip.
	results, err := loaded.Search([]float32{0, 1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "doc-1_1", results[0].Payload.ChunkID)
	assert.Equal(t, "second chunk", results[0].Payload.Text)
	assert.Equal(t, "1", results[0].Payload.Metadata["chunk_index"])
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-5)
}

func TestSnapshot_AbsentDirectory(t *testing.T) {
	ix, err := loadSnapshot(filepath.Join(t.TempDir(), "nothing-here"), 3)
	require.NoError(t, err)
	assert.Nil(t, ix, "absent snapshot is not an error")
}

func TestSnapshot_PartialPresenceIsCorrupted(t *testing.T) {
	t.Run("missing payloads", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "tenant-a")
		require.NoError(t, saveSnapshot(dir, buildIndex(t)))
		require.NoError(t, os.Remove(filepath.Join(dir, payloadFileName)))

		_, err := loadSnapshot(dir, 3)
		require.ErrorIs(t, err, ErrStoreCorrupted)
	})

	t.Run("missing index", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "tenant-a")
		require.NoError(t, saveSnapshot(dir, buildIndex(t)))
		require.NoError(t, os.Remove(filepath.Join(dir, indexFileName)))

		_, err := loadSnapshot(dir, 3)
		require.ErrorIs(t, err, ErrStoreCorrupted)
	})
}

func TestSnapshot_BadHeader(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tenant-a")
	require.NoError(t, saveSnapshot(dir, buildIndex(t)))

	// Clobber the magic number.
	path := filepath.Join(dir, indexFileName)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	copy(data[:4], []byte{0, 0, 0, 0})
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = loadSnapshot(dir, 3)
	require.ErrorIs(t, err, ErrStoreCorrupted)
}

func TestSnapshot_TruncatedIndex(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tenant-a")
	require.NoError(t, saveSnapshot(dir, buildIndex(t)))

	path := filepath.Join(dir, indexFileName)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-5], 0o644))

	_, err = loadSnapshot(dir, 3)
	require.ErrorIs(t, err, ErrStoreCorrupted)
}

func TestSnapshot_CountMismatch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tenant-a")
	require.NoError(t, saveSnapshot(dir, buildIndex(t)))

	// Drop one payload line so rows and payloads disagree.
	path := filepath.Join(dir, payloadFileName)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := 0
	cut := len(data)
	for i, b := range data {
		if b == '\n' {
			lines++
			if lines == 1 {
				cut = i + 1
			}
		}
	}
	require.NoError(t, os.WriteFile(path, data[:cut], 0o644))

	_, err = loadSnapshot(dir, 3)
	require.ErrorIs(t, err, ErrStoreCorrupted)
}

func TestSnapshot_DimensionMismatch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tenant-a")
	require.NoError(t, saveSnapshot(dir, buildIndex(t)))

	_, err := loadSnapshot(dir, 4)
	require.ErrorIs(t, err, ErrStoreCorrupted)
}

func TestSnapshot_Delete(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tenant-a")
	require.NoError(t, saveSnapshot(dir, buildIndex(t)))
	require.True(t, snapshotExists(dir))

	require.NoError(t, deleteSnapshot(dir))
	assert.False(t, snapshotExists(dir))

	// Deleting an absent store is a no-op.
	require.NoError(t, deleteSnapshot(dir))
}
