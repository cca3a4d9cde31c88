// Package store provides the persistence layer for tag data: the vector
// store (HNSW index over tag embeddings) and the usage ledger (SQLite).
package store

import (
	"fmt"
)

// TagEmbedding is one stored embedding record.
type TagEmbedding struct {
	// Tag is the record key. At most one embedding exists per tag.
	Tag string

	// Vector is the embedding, fixed dimension across the deployment.
	Vector []float32

	// Model is the provenance string of the embedding provider.
	Model string

	// Dimension is the vector length, recorded redundantly so records from
	// a different deployment configuration can be rejected on load.
	Dimension int
}

// TagUsage is one usage ledger entry. Count always equals len(Notes); the
// ledger derives it from the notes set rather than storing a counter.
type TagUsage struct {
	Tag   string
	Count int
	Notes []string
}

// Match is a single similarity search result.
type Match struct {
	Tag        string
	Similarity float64
}

// VectorConfig configures the vector store.
type VectorConfig struct {
	// Dimensions is the vector dimension shared by all stored embeddings.
	Dimensions int

	// M is the HNSW max connections per layer.
	M int

	// EfSearch is the HNSW query-time search width. Kept high relative to
	// typical tag vocabulary sizes so search stays exact for small corpora.
	EfSearch int
}

// DefaultVectorConfig returns sensible defaults for the vector store.
func DefaultVectorConfig(dimensions int) VectorConfig {
	return VectorConfig{
		Dimensions: dimensions,
		M:          16,
		EfSearch:   64,
	}
}

// ErrDimensionMismatch indicates a vector dimension mismatch. Vectors are
// never truncated or padded; the wrong length is an input error.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
