package index

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/tagvault/internal/store"
)

// stubEmbedder returns a deterministic vector per tag and can be told to
// fail, either entirely or for specific tags.
type stubEmbedder struct {
	dims     int
	calls    int
	failAll  bool
	failTags map[string]bool
}

func newStubEmbedder(dims int) *stubEmbedder {
	return &stubEmbedder{dims: dims, failTags: make(map[string]bool)}
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.calls++
	if s.failAll || s.failTags[text] {
		return nil, fmt.Errorf("embedder down")
	}
	vec := make([]float32, s.dims)
	for i, r := range text {
		vec[i%s.dims] += float32(r)
	}
	return vec, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int                { return s.dims }
func (s *stubEmbedder) ModelName() string              { return "stub" }
func (s *stubEmbedder) Available(context.Context) bool { return !s.failAll }
func (s *stubEmbedder) Close() error                   { return nil }

type coordFixture struct {
	coord    *Coordinator
	vectors  *store.TagVectorStore
	ledger   *store.UsageLedger
	embedder *stubEmbedder
}

func newCoordFixture(t *testing.T) *coordFixture {
	t.Helper()

	vectors, err := store.NewTagVectorStore(store.DefaultVectorConfig(8))
	require.NoError(t, err)
	t.Cleanup(func() { _ = vectors.Close() })

	ledger, err := store.OpenUsageLedger(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })

	embedder := newStubEmbedder(8)
	return &coordFixture{
		coord:    NewCoordinator(vectors, ledger, embedder, nil),
		vectors:  vectors,
		ledger:   ledger,
		embedder: embedder,
	}
}

func TestSyncNoteRecordsUsageAndEmbeds(t *testing.T) {
	// Given a fresh system
	fx := newCoordFixture(t)
	ctx := context.Background()

	// When a note is tagged
	require.NoError(t, fx.coord.SyncNote(ctx, "note-1", []string{"golang", "testing"}, nil))

	// Then usage and embeddings both exist
	count, err := fx.ledger.Count(ctx, "golang")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.True(t, fx.vectors.Has("golang"))
	assert.True(t, fx.vectors.Has("testing"))
}

func TestSyncNoteSkipsExistingEmbeddings(t *testing.T) {
	fx := newCoordFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.coord.SyncNote(ctx, "note-1", []string{"golang"}, nil))
	callsAfterFirst := fx.embedder.calls

	require.NoError(t, fx.coord.SyncNote(ctx, "note-2", []string{"golang"}, nil))
	assert.Equal(t, callsAfterFirst, fx.embedder.calls)
}

func TestSyncNotePurgesLastUse(t *testing.T) {
	// Given a tag used only by one note
	fx := newCoordFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.coord.SyncNote(ctx, "note-1", []string{"golang", "ephemeral"}, nil))

	// When that note drops the tag
	require.NoError(t, fx.coord.SyncNote(ctx, "note-1",
		[]string{"golang"}, []string{"golang", "ephemeral"}))

	// Then the tag is gone from both stores
	count, err := fx.ledger.Count(ctx, "ephemeral")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.False(t, fx.vectors.Has("ephemeral"))

	// The surviving tag is untouched
	assert.True(t, fx.vectors.Has("golang"))
}

func TestSyncNoteKeepsTagUsedElsewhere(t *testing.T) {
	fx := newCoordFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.coord.SyncNote(ctx, "note-1", []string{"golang"}, nil))
	require.NoError(t, fx.coord.SyncNote(ctx, "note-2", []string{"golang"}, nil))

	// note-1 drops the tag, note-2 still uses it
	require.NoError(t, fx.coord.SyncNote(ctx, "note-1", nil, []string{"golang"}))

	count, err := fx.ledger.Count(ctx, "golang")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.True(t, fx.vectors.Has("golang"))
}

func TestSyncNoteEmbeddingFailureDoesNotFailSync(t *testing.T) {
	// Given an embedder that cannot serve one tag
	fx := newCoordFixture(t)
	ctx := context.Background()
	fx.embedder.failTags["unlucky"] = true

	// When syncing a note using it
	require.NoError(t, fx.coord.SyncNote(ctx, "note-1", []string{"unlucky", "golang"}, nil))

	// Then usage is recorded anyway and only the embedding is missing
	count, err := fx.ledger.Count(ctx, "unlucky")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.False(t, fx.vectors.Has("unlucky"))
	assert.True(t, fx.vectors.Has("golang"))

	// A later backfill picks it up once the embedder recovers
	delete(fx.embedder.failTags, "unlucky")
	embedded, failed, err := fx.coord.Backfill(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, embedded)
	assert.Empty(t, failed)
	assert.True(t, fx.vectors.Has("unlucky"))
}

func TestReseed(t *testing.T) {
	// Given notes to seed from
	fx := newCoordFixture(t)
	ctx := context.Background()

	notes := []NoteTags{
		{NoteID: "note-1", Tags: []string{"golang", "testing"}},
		{NoteID: "note-2", Tags: []string{"golang"}},
		{NoteID: "note-3", Tags: []string{"cooking"}},
	}

	// When reseeding
	summary, err := fx.coord.Reseed(ctx, notes, false)
	require.NoError(t, err)

	// Then stores and summary reflect the assignments
	assert.Equal(t, 3, summary.Notes)
	assert.Equal(t, 3, summary.Tags)
	assert.Equal(t, 4, summary.Assignments)
	assert.Equal(t, 3, summary.Embedded)
	assert.Empty(t, summary.Failed)

	require.NotEmpty(t, summary.TopTags)
	assert.Equal(t, TagCount{Tag: "golang", Count: 2}, summary.TopTags[0])

	count, err := fx.ledger.Count(ctx, "golang")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.True(t, fx.vectors.Has("cooking"))
}

func TestReseedWithFlushDropsStaleTags(t *testing.T) {
	// Given existing state including a tag no current note uses
	fx := newCoordFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.coord.SyncNote(ctx, "old-note", []string{"stale-tag"}, nil))

	// When reseeding with flush
	summary, err := fx.coord.Reseed(ctx, []NoteTags{
		{NoteID: "note-1", Tags: []string{"golang"}},
	}, true)
	require.NoError(t, err)

	// Then the stale tag is gone everywhere
	assert.Equal(t, 1, summary.Tags)
	assert.False(t, fx.vectors.Has("stale-tag"))
	count, err := fx.ledger.Count(ctx, "stale-tag")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.True(t, fx.vectors.Has("golang"))
}

func TestBackfillNothingMissing(t *testing.T) {
	fx := newCoordFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.coord.SyncNote(ctx, "note-1", []string{"golang"}, nil))

	embedded, failed, err := fx.coord.Backfill(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, embedded)
	assert.Empty(t, failed)
}

func TestBackfillReportsFailures(t *testing.T) {
	fx := newCoordFixture(t)
	ctx := context.Background()

	fx.embedder.failAll = true
	require.NoError(t, fx.coord.SyncNote(ctx, "note-1", []string{"golang"}, nil))

	embedded, failed, err := fx.coord.Backfill(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, embedded)
	assert.Equal(t, []string{"golang"}, failed)
}

func TestVerifyDetectsAndRepairs(t *testing.T) {
	// Given one orphan embedding and one missing embedding
	fx := newCoordFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.vectors.Put(ctx, "orphan", make([]float32, 8), "stub"))
	require.NoError(t, fx.ledger.RecordUse(ctx, "missing", "note-1"))

	// When verifying without repair
	report, err := fx.coord.Verify(ctx, false)
	require.NoError(t, err)
	assert.False(t, report.Consistent())
	assert.Equal(t, []string{"orphan"}, report.OrphanVectors)
	assert.Equal(t, []string{"missing"}, report.MissingVectors)
	assert.True(t, fx.vectors.Has("orphan"))

	// When repairing
	report, err = fx.coord.Verify(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Removed)
	assert.Equal(t, 1, report.Embedded)

	// Then a fresh verify is clean
	report, err = fx.coord.Verify(ctx, false)
	require.NoError(t, err)
	assert.True(t, report.Consistent())
	assert.False(t, fx.vectors.Has("orphan"))
	assert.True(t, fx.vectors.Has("missing"))
}
