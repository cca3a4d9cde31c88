package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryFromCode(t *testing.T) {
	tests := []struct {
		code     string
		category Category
	}{
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeStoreCorrupt, CategoryStore},
		{ErrCodeEmbeddingFailed, CategoryProvider},
		{ErrCodeInvalidTag, CategoryValidation},
		{ErrCodeInternal, CategoryInternal},
	}

	for _, tt := range tests {
		err := New(tt.code, "boom", nil)
		assert.Equal(t, tt.category, err.Category, "code %s", tt.code)
	}
}

func TestNew_DerivesRetryable(t *testing.T) {
	assert.True(t, New(ErrCodeEmbeddingFailed, "provider down", nil).Retryable)
	assert.False(t, New(ErrCodeInvalidTag, "bad tag", nil).Retryable)
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrCodeEmbedderUnavailable, cause)
	require.NotNil(t, err)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "connection refused", err.Message)
}

func TestWrap_NilIsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestIs_MatchesByCode(t *testing.T) {
	a := New(ErrCodeDimensionMismatch, "expected 384, got 768", nil)
	b := New(ErrCodeDimensionMismatch, "different message", nil)

	assert.True(t, stderrors.Is(a, b))
	assert.False(t, stderrors.Is(a, New(ErrCodeInvalidTag, "x", nil)))
}

func TestWithDetail_Chains(t *testing.T) {
	err := New(ErrCodeEmbeddingFailed, "no embedding", nil).
		WithDetail("tag", "productivity").
		WithDetail("step", "backfill").
		WithSuggestion("run 'tagvault backfill' once the embedder is reachable")

	assert.Equal(t, "productivity", err.Details["tag"])
	assert.Equal(t, "backfill", err.Details["step"])
	assert.NotEmpty(t, err.Suggestion)
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(New(ErrCodeStoreCorrupt, "bad index", nil)))
	assert.False(t, IsFatal(New(ErrCodeEmbeddingFailed, "timeout", nil)))
	assert.False(t, IsFatal(nil))
}
