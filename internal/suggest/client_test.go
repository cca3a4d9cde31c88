package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/tagvault/internal/config"
)

func suggestServer(t *testing.T, tags []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.NotEmpty(t, r.Header.Get("anthropic-version"))

		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Tools, 1)
		assert.Equal(t, toolName, req.Tools[0].Name)
		assert.Equal(t, "tool", req.ToolChoice.Type)

		input, err := json.Marshal(map[string][]string{"tags": tags})
		require.NoError(t, err)

		resp := messagesResponse{Content: []contentBlock{
			{Type: "text", Name: ""},
			{Type: "tool_use", Name: toolName, Input: input},
		}}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	t.Setenv("TEST_SUGGEST_KEY", "test-key")

	client, err := NewClient(config.SuggestConfig{
		Endpoint:  endpoint,
		Model:     "test-model",
		APIKeyEnv: "TEST_SUGGEST_KEY",
		Timeout:   5 * time.Second,
	}, nil)
	require.NoError(t, err)
	return client
}

func TestSuggestTags(t *testing.T) {
	// Given a messages API returning a tool call with tags
	server := suggestServer(t, []string{"golang", "unit-testing"})
	defer server.Close()
	client := newTestClient(t, server.URL)

	// When requesting suggestions
	tags, err := client.SuggestTags(context.Background(), "note.md", "Some Go testing notes.")
	require.NoError(t, err)

	// Then the tool input tags come back as-is
	assert.Equal(t, []string{"golang", "unit-testing"}, tags)
}

func TestSuggestTagsSanitizesOutput(t *testing.T) {
	// Given a model that returns sloppy and duplicate tags
	server := suggestServer(t, []string{"Go Lang", "golang", "go_lang", "", "!!!"})
	defer server.Close()
	client := newTestClient(t, server.URL)

	// When requesting suggestions
	tags, err := client.SuggestTags(context.Background(), "note.md", "content")
	require.NoError(t, err)

	// Then tags are normalized, validated, and deduplicated
	assert.Equal(t, []string{"go-lang", "golang"}, tags)
}

func TestSuggestTagsMissingAPIKey(t *testing.T) {
	t.Setenv("TEST_SUGGEST_KEY", "")

	_, err := NewClient(config.SuggestConfig{
		Endpoint:  "http://example.invalid",
		Model:     "test-model",
		APIKeyEnv: "TEST_SUGGEST_KEY",
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEST_SUGGEST_KEY")
}

func TestSuggestTagsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"type": "rate_limit_error", "message": "slow down"}}`)
	}))
	defer server.Close()
	client := newTestClient(t, server.URL)

	_, err := client.SuggestTags(context.Background(), "note.md", "content")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow down")
}

func TestSuggestTagsNoToolUse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"content": [{"type": "text"}]}`)
	}))
	defer server.Close()
	client := newTestClient(t, server.URL)

	_, err := client.SuggestTags(context.Background(), "note.md", "content")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tool use")
}
