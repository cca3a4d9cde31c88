package mcp

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tverrors "github.com/Aman-CERP/tagvault/internal/errors"
	"github.com/Aman-CERP/tagvault/internal/similar"
	"github.com/Aman-CERP/tagvault/internal/store"
)

type cannedEmbedder struct {
	dims    int
	vectors map[string][]float32
}

func (c *cannedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec, ok := c.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return vec, nil
}

func (c *cannedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := c.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (c *cannedEmbedder) Dimensions() int                { return c.dims }
func (c *cannedEmbedder) ModelName() string              { return "canned" }
func (c *cannedEmbedder) Available(context.Context) bool { return true }
func (c *cannedEmbedder) Close() error                   { return nil }

func newTestServer(t *testing.T) (*Server, *store.UsageLedger) {
	t.Helper()
	ctx := context.Background()

	vectors, err := store.NewTagVectorStore(store.DefaultVectorConfig(4))
	require.NoError(t, err)
	t.Cleanup(func() { _ = vectors.Close() })

	ledger, err := store.OpenUsageLedger(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })

	seed := map[string][]float32{
		"golang":  {1, 0, 0, 0},
		"go-lang": {0.99, 0.01, 0, 0},
		"cooking": {0, 0, 1, 0},
	}
	for tag, vec := range seed {
		require.NoError(t, vectors.Put(ctx, tag, vec, "canned"))
		require.NoError(t, ledger.RecordUse(ctx, tag, "note-1"))
	}
	require.NoError(t, ledger.RecordUse(ctx, "golang", "note-2"))

	embedder := &cannedEmbedder{dims: 4, vectors: map[string][]float32{}}
	engine := similar.NewEngine(vectors, ledger, embedder, nil)

	server, err := NewServer(engine, ledger, Options{}, nil)
	require.NoError(t, err)
	return server, ledger
}

func TestSimilarTagsHandler(t *testing.T) {
	// Given a seeded vocabulary
	server, _ := newTestServer(t)
	ctx := context.Background()

	// When querying for tags near golang
	_, output, err := server.similarTagsHandler(ctx, nil, SimilarTagsInput{Tag: "golang"})
	require.NoError(t, err)

	// Then the near-duplicate comes back with its usage
	require.Len(t, output.Matches, 1)
	assert.Equal(t, "go-lang", output.Matches[0].Tag)
	assert.Equal(t, 1, output.Matches[0].Usage)
	assert.Greater(t, output.Matches[0].Similarity, 0.7)
}

func TestSimilarTagsHandlerNormalizesInput(t *testing.T) {
	server, _ := newTestServer(t)

	_, output, err := server.similarTagsHandler(context.Background(), nil,
		SimilarTagsInput{Tag: "GoLang "})
	require.NoError(t, err)
	require.Len(t, output.Matches, 1)
	assert.Equal(t, "go-lang", output.Matches[0].Tag)
}

func TestSimilarTagsHandlerUnembeddableTag(t *testing.T) {
	// Given a query tag with no stored vector and an embedder that
	// cannot serve it
	server, _ := newTestServer(t)

	// When querying
	_, output, err := server.similarTagsHandler(context.Background(), nil,
		SimilarTagsInput{Tag: "brand-new-topic"})

	// Then the tool reports no matches rather than a provider error
	require.NoError(t, err)
	assert.Empty(t, output.Matches)
}

func TestSimilarTagsHandlerEmptyTag(t *testing.T) {
	server, _ := newTestServer(t)

	_, _, err := server.similarTagsHandler(context.Background(), nil, SimilarTagsInput{Tag: "  "})
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestSuggestMergesHandler(t *testing.T) {
	server, _ := newTestServer(t)

	_, output, err := server.suggestMergesHandler(context.Background(), nil, SuggestMergesInput{})
	require.NoError(t, err)

	require.Len(t, output.Suggestions, 1)
	assert.Equal(t, "golang", output.Suggestions[0].Keep)
	assert.Equal(t, "go-lang", output.Suggestions[0].Merge)
}

func TestTagUsageHandler(t *testing.T) {
	server, _ := newTestServer(t)

	_, output, err := server.tagUsageHandler(context.Background(), nil, TagUsageInput{Tag: "golang"})
	require.NoError(t, err)

	assert.Equal(t, "golang", output.Tag)
	assert.Equal(t, 2, output.Count)
	assert.Len(t, output.Notes, 2)
}

func TestTagUsageHandlerUnknownTag(t *testing.T) {
	server, _ := newTestServer(t)

	_, output, err := server.tagUsageHandler(context.Background(), nil, TagUsageInput{Tag: "never-used"})
	require.NoError(t, err)

	assert.Equal(t, 0, output.Count)
	assert.Empty(t, output.Notes)
}

func TestMapErrorCategories(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", tverrors.New(tverrors.ErrCodeInvalidTag, "bad tag", nil), ErrCodeInvalidParams},
		{"store", tverrors.StoreError("store broken", nil), ErrCodeStoreUnavailable},
		{"provider", tverrors.ProviderError("embedder down", nil), ErrCodeEmbeddingFailed},
		{"timeout", context.DeadlineExceeded, ErrCodeTimeout},
		{"unknown", fmt.Errorf("mystery"), ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapError(tt.err)
			require.NotNil(t, mapped)
			assert.Equal(t, tt.code, mapped.Code)
		})
	}
}

func TestNewServerRequiresDependencies(t *testing.T) {
	_, err := NewServer(nil, nil, Options{}, nil)
	require.Error(t, err)
}
