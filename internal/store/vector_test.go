package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVectorStore(t *testing.T, dims int) *TagVectorStore {
	t.Helper()
	s, err := NewTagVectorStore(DefaultVectorConfig(dims))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// axisVector returns a unit vector along the given axis.
func axisVector(dims, axis int) []float32 {
	v := make([]float32, dims)
	v[axis] = 1
	return v
}

func TestTagVectorStorePutAndGet(t *testing.T) {
	// Given an empty store
	s := newTestVectorStore(t, 4)
	ctx := context.Background()

	// When storing an embedding
	vec := []float32{0.5, 0.5, 0.5, 0.5}
	require.NoError(t, s.Put(ctx, "golang", vec, "all-minilm"))

	// Then Get returns the raw vector, not a normalized copy
	got, ok := s.Get("golang")
	require.True(t, ok)
	assert.Equal(t, vec, got)

	rec, ok := s.Record("golang")
	require.True(t, ok)
	assert.Equal(t, "all-minilm", rec.Model)
	assert.Equal(t, 4, rec.Dimension)
	assert.Equal(t, 1, s.Count())
}

func TestTagVectorStoreDimensionMismatch(t *testing.T) {
	s := newTestVectorStore(t, 4)
	ctx := context.Background()

	err := s.Put(ctx, "golang", []float32{1, 0}, "all-minilm")
	require.Error(t, err)

	var dimErr ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 4, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Got)

	assert.Equal(t, "dimension mismatch: expected 4, got 2", dimErr.Error())

	_, err = s.Search(ctx, []float32{1, 0}, 5)
	require.Error(t, err)
}

func TestTagVectorStoreSearchOrdering(t *testing.T) {
	// Given three orthogonal tags and one near-duplicate
	s := newTestVectorStore(t, 4)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "alpha", axisVector(4, 0), "m"))
	require.NoError(t, s.Put(ctx, "beta", axisVector(4, 1), "m"))
	require.NoError(t, s.Put(ctx, "gamma", axisVector(4, 2), "m"))
	require.NoError(t, s.Put(ctx, "alpha-like", []float32{0.9, 0.1, 0, 0}, "m"))

	// When searching with alpha's vector
	matches, err := s.Search(ctx, axisVector(4, 0), 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	// Then alpha itself ranks first with similarity 1, its neighbor second
	assert.Equal(t, "alpha", matches[0].Tag)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-5)
	assert.Equal(t, "alpha-like", matches[1].Tag)
	assert.Greater(t, matches[0].Similarity, matches[1].Similarity)
	assert.Greater(t, matches[1].Similarity, matches[2].Similarity)
}

func TestTagVectorStoreSimilarityExactForUnitVectors(t *testing.T) {
	s := newTestVectorStore(t, 2)
	ctx := context.Background()

	// cos(45 degrees) between (1,0) and (1,1)/sqrt(2)
	require.NoError(t, s.Put(ctx, "diag", []float32{0.70710678, 0.70710678}, "m"))

	matches, err := s.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 0.70710678, matches[0].Similarity, 1e-5)
}

func TestTagVectorStoreUpdateReplacesVector(t *testing.T) {
	// Given a stored tag
	s := newTestVectorStore(t, 4)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "golang", axisVector(4, 0), "m"))

	// When overwriting it with a different vector
	require.NoError(t, s.Put(ctx, "golang", axisVector(4, 1), "m"))

	// Then only the new vector is searchable and the tag appears once
	matches, err := s.Search(ctx, axisVector(4, 1), 10)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "golang", matches[0].Tag)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-5)

	seen := 0
	for _, m := range matches {
		if m.Tag == "golang" {
			seen++
		}
	}
	assert.Equal(t, 1, seen)
	assert.Equal(t, 1, s.Count())
}

func TestTagVectorStoreDelete(t *testing.T) {
	s := newTestVectorStore(t, 4)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "alpha", axisVector(4, 0), "m"))
	require.NoError(t, s.Put(ctx, "beta", axisVector(4, 1), "m"))

	require.NoError(t, s.Delete(ctx, "alpha"))
	// Deleting again is a no-op
	require.NoError(t, s.Delete(ctx, "alpha"))
	require.NoError(t, s.Delete(ctx, "never-existed"))

	assert.False(t, s.Has("alpha"))
	assert.True(t, s.Has("beta"))
	assert.Equal(t, 1, s.Count())

	// Deleted tags never surface in search results
	matches, err := s.Search(ctx, axisVector(4, 0), 10)
	require.NoError(t, err)
	for _, m := range matches {
		assert.NotEqual(t, "alpha", m.Tag)
	}
}

func TestTagVectorStoreAllTags(t *testing.T) {
	s := newTestVectorStore(t, 4)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "zeta", axisVector(4, 0), "m"))
	require.NoError(t, s.Put(ctx, "alpha", axisVector(4, 1), "m"))
	require.NoError(t, s.Put(ctx, "mid", axisVector(4, 2), "m"))

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, s.AllTags())
}

func TestTagVectorStoreSaveAndLoad(t *testing.T) {
	// Given a populated store saved to disk
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.gob")
	ctx := context.Background()

	s := newTestVectorStore(t, 4)
	require.NoError(t, s.Put(ctx, "alpha", axisVector(4, 0), "all-minilm"))
	require.NoError(t, s.Put(ctx, "beta", []float32{0.9, 0.1, 0, 0}, "all-minilm"))
	require.NoError(t, s.Save(path))

	// When loading into a fresh store
	loaded := newTestVectorStore(t, 4)
	require.NoError(t, loaded.Load(path))

	// Then records and search behavior survive the round trip
	assert.Equal(t, 2, loaded.Count())
	vec, ok := loaded.Get("beta")
	require.True(t, ok)
	assert.Equal(t, []float32{0.9, 0.1, 0, 0}, vec)

	matches, err := loaded.Search(ctx, axisVector(4, 0), 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "alpha", matches[0].Tag)
	assert.Equal(t, "beta", matches[1].Tag)

	rec, ok := loaded.Record("alpha")
	require.True(t, ok)
	assert.Equal(t, "all-minilm", rec.Model)
}

func TestTagVectorStoreLoadSkipsMismatchedDimensions(t *testing.T) {
	// Given a snapshot written with 4-dimensional vectors
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.gob")
	ctx := context.Background()

	s := newTestVectorStore(t, 4)
	require.NoError(t, s.Put(ctx, "alpha", axisVector(4, 0), "m"))
	require.NoError(t, s.Save(path))

	// When loading into a store configured for a different dimension
	other, err := NewTagVectorStore(DefaultVectorConfig(8))
	require.NoError(t, err)
	defer func() { _ = other.Close() }()
	require.NoError(t, other.Load(path))

	// Then the mismatched record is skipped rather than served
	assert.Equal(t, 0, other.Count())
}

func TestTagVectorStoreLoadIfExistsMissingFile(t *testing.T) {
	s := newTestVectorStore(t, 4)
	require.NoError(t, s.LoadIfExists(filepath.Join(t.TempDir(), "nope.gob")))
	assert.Equal(t, 0, s.Count())
}

func TestTagVectorStoreSearchEmpty(t *testing.T) {
	s := newTestVectorStore(t, 4)
	matches, err := s.Search(context.Background(), axisVector(4, 0), 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
