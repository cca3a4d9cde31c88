package store

import (
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// TagVectorStore persists one embedding per tag and serves approximate
// k-nearest-neighbor search by cosine similarity via a coder/hnsw graph.
//
// The full records (raw vectors plus provenance) are the durable state; the
// graph is an index rebuilt from them on load. coder/hnsw's CosineDistance
// is exactly 1 - cosine similarity, so reported similarity is 1 - distance.
type TagVectorStore struct {
	mu     sync.RWMutex
	config VectorConfig

	graph   *hnsw.Graph[uint64]
	records map[string]TagEmbedding

	// Tag <-> graph key mapping. Deletion is lazy: the node stays in the
	// graph without a key mapping and is filtered out of results, which
	// sidesteps coder/hnsw graph repair on node removal.
	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64

	closed bool
}

// vectorSnapshot is the gob-persisted form of the store.
type vectorSnapshot struct {
	Config  VectorConfig
	Records map[string]TagEmbedding
}

// NewTagVectorStore creates an empty vector store.
func NewTagVectorStore(cfg VectorConfig) (*TagVectorStore, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("vector store dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 64
	}

	s := &TagVectorStore{
		config:  cfg,
		records: make(map[string]TagEmbedding),
		idMap:   make(map[string]uint64),
		keyMap:  make(map[uint64]string),
	}
	s.graph = s.newGraph()
	return s, nil
}

func (s *TagVectorStore) newGraph() *hnsw.Graph[uint64] {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = s.config.M
	g.EfSearch = s.config.EfSearch
	g.Ml = 0.25
	return g
}

// Put stores or overwrites the embedding for tag. The vector length must
// equal the configured dimension.
func (s *TagVectorStore) Put(ctx context.Context, tag string, vector []float32, model string) error {
	if len(vector) != s.config.Dimensions {
		return ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(vector)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("vector store is closed")
	}

	// Replace: orphan the previous graph node, keep the new one
	if existingKey, exists := s.idMap[tag]; exists {
		delete(s.keyMap, existingKey)
		delete(s.idMap, tag)
	}

	raw := make([]float32, len(vector))
	copy(raw, vector)

	normalized := make([]float32, len(vector))
	copy(normalized, vector)
	normalizeInPlace(normalized)

	key := s.nextKey
	s.nextKey++

	s.graph.Add(hnsw.MakeNode(key, normalized))
	s.idMap[tag] = key
	s.keyMap[key] = tag
	s.records[tag] = TagEmbedding{
		Tag:       tag,
		Vector:    raw,
		Model:     model,
		Dimension: len(raw),
	}

	return nil
}

// Get returns the stored embedding vector for tag, exactly as stored.
func (s *TagVectorStore) Get(tag string) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[tag]
	if !ok || s.closed {
		return nil, false
	}
	vec := make([]float32, len(rec.Vector))
	copy(vec, rec.Vector)
	return vec, true
}

// Record returns the full embedding record for tag.
func (s *TagVectorStore) Record(tag string) (TagEmbedding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[tag]
	if !ok || s.closed {
		return TagEmbedding{}, false
	}
	return rec, true
}

// Search returns up to k stored tags ordered by cosine similarity to query,
// descending. Similarity is reported in [-1, 1].
func (s *TagVectorStore) Search(ctx context.Context, query []float32, k int) ([]Match, error) {
	if len(query) != s.config.Dimensions {
		return nil, ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(query)}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("vector store is closed")
	}
	if len(s.idMap) == 0 {
		return []Match{}, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeInPlace(normalized)

	// Over-fetch to cover lazily deleted graph nodes that still occupy
	// result slots.
	fetch := k + (s.graph.Len() - len(s.idMap))
	nodes := s.graph.Search(normalized, fetch)

	results := make([]Match, 0, k)
	for _, node := range nodes {
		tag, exists := s.keyMap[node.Key]
		if !exists {
			continue // lazily deleted
		}

		distance := s.graph.Distance(normalized, node.Value)
		similarity := 1.0 - float64(distance)
		if similarity > 1 {
			similarity = 1
		} else if similarity < -1 {
			similarity = -1
		}

		results = append(results, Match{Tag: tag, Similarity: similarity})
		if len(results) == k {
			break
		}
	}

	return results, nil
}

// Delete removes the embedding for tag. Deleting an absent tag is a no-op.
func (s *TagVectorStore) Delete(ctx context.Context, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("vector store is closed")
	}

	if key, exists := s.idMap[tag]; exists {
		delete(s.keyMap, key)
		delete(s.idMap, tag)
	}
	delete(s.records, tag)

	return nil
}

// Has reports whether an embedding exists for tag.
func (s *TagVectorStore) Has(tag string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.records[tag]
	return ok && !s.closed
}

// AllTags returns every tag with a stored embedding, sorted.
func (s *TagVectorStore) AllTags() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil
	}

	tags := make([]string, 0, len(s.records))
	for tag := range s.records {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Count returns the number of stored embeddings.
func (s *TagVectorStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0
	}
	return len(s.records)
}

// Dimensions returns the configured vector dimension.
func (s *TagVectorStore) Dimensions() int {
	return s.config.Dimensions
}

// Save persists all records to path atomically (temp file + rename).
func (s *TagVectorStore) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("vector store is closed")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create store file: %w", err)
	}

	snap := vectorSnapshot{Config: s.config, Records: s.records}
	if err := gob.NewEncoder(file).Encode(snap); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("encode vector store: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close store file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Load reads records from path and rebuilds the search graph. Records whose
// dimension does not match the configured dimension are skipped with a
// warning; they are invalid and must not participate in search.
func (s *TagVectorStore) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("vector store is closed")
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open vector store: %w", err)
	}
	defer func() { _ = file.Close() }()

	var snap vectorSnapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return fmt.Errorf("decode vector store: %w", err)
	}

	s.records = make(map[string]TagEmbedding, len(snap.Records))
	s.idMap = make(map[string]uint64, len(snap.Records))
	s.keyMap = make(map[uint64]string, len(snap.Records))
	s.nextKey = 0
	s.graph = s.newGraph()

	for tag, rec := range snap.Records {
		if rec.Dimension != s.config.Dimensions || len(rec.Vector) != s.config.Dimensions {
			slog.Warn("skipping embedding with mismatched dimension",
				slog.String("tag", tag),
				slog.Int("dimension", rec.Dimension),
				slog.Int("expected", s.config.Dimensions))
			continue
		}

		normalized := make([]float32, len(rec.Vector))
		copy(normalized, rec.Vector)
		normalizeInPlace(normalized)

		key := s.nextKey
		s.nextKey++

		s.graph.Add(hnsw.MakeNode(key, normalized))
		s.idMap[tag] = key
		s.keyMap[key] = tag
		s.records[tag] = rec
	}

	return nil
}

// LoadIfExists loads from path when the file exists; a missing file leaves
// the store empty.
func (s *TagVectorStore) LoadIfExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return s.Load(path)
}

// Close releases resources.
func (s *TagVectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.graph = nil
	return nil
}

// normalizeInPlace normalizes a vector to unit length in place.
func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	invMagnitude := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= invMagnitude
	}
}
