// Package suggest obtains tag suggestions for note content from an LLM and
// refines them against the existing vocabulary.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Aman-CERP/tagvault/internal/config"
	"github.com/Aman-CERP/tagvault/internal/errors"
	"github.com/Aman-CERP/tagvault/internal/validate"
)

const (
	toolName         = "suggest_tags"
	maxTokens        = 1024
	anthropicVersion = "2023-06-01"
)

// defaultGuidelines steers suggestions when no custom guidelines file is
// configured.
const defaultGuidelines = `Suggest 3-7 discovery-focused tags for the note.
Prefer topical tags over structural ones. Use lowercase-with-hyphens format.
Reuse broadly applicable concepts rather than inventing one-off tags.`

// Suggester produces candidate tags for note content.
type Suggester interface {
	SuggestTags(ctx context.Context, notePath, content string) ([]string, error)
}

// Client calls a messages API with a forced tool call so the response is
// always a structured tag list rather than free text.
type Client struct {
	endpoint   string
	model      string
	apiKey     string
	guidelines string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds a suggestion client from configuration. The API key is
// read from the environment variable the config names.
func NewClient(cfg config.SuggestConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeSuggestFailed,
			fmt.Sprintf("environment variable %s is not set", cfg.APIKeyEnv), nil).
			WithSuggestion(fmt.Sprintf("export %s=<your API key> or use 'tagvault tag --tags' to supply tags directly", cfg.APIKeyEnv))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		apiKey:     apiKey,
		guidelines: defaultGuidelines,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// SetGuidelines replaces the tagging guidelines included in the prompt.
func (c *Client) SetGuidelines(guidelines string) {
	if guidelines != "" {
		c.guidelines = guidelines
	}
}

type messagesRequest struct {
	Model      string     `json:"model"`
	MaxTokens  int        `json:"max_tokens"`
	Tools      []toolSpec `json:"tools"`
	ToolChoice toolChoice `json:"tool_choice"`
	Messages   []message  `json:"messages"`
}

type toolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type toolChoice struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
	Error   *apiError      `json:"error"`
}

type contentBlock struct {
	Type  string          `json:"type"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// tagSchema constrains the tool input to an array of well-formed tags.
var tagSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"tags": {
			"type": "array",
			"items": {
				"type": "string",
				"pattern": "^[a-z0-9]+(-[a-z0-9]+)*$",
				"description": "Tag in lowercase-with-hyphens format"
			},
			"description": "Array of discovery-focused tags"
		}
	},
	"required": ["tags"]
}`)

// SuggestTags asks the model for tags describing content. Tags that fail
// format validation after normalization are dropped rather than failing the
// whole suggestion.
func (c *Client) SuggestTags(ctx context.Context, notePath, content string) ([]string, error) {
	prompt := fmt.Sprintf(`You are a tagging expert helping organize a markdown note collection.

Here are the tagging guidelines:

%s

Now, analyze this file and suggest appropriate tags:

File: %s

Content:
%s

Use the %s tool to return your suggested tags following the guidelines above.`,
		c.guidelines, notePath, content, toolName)

	reqBody := messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Tools: []toolSpec{{
			Name:        toolName,
			Description: "Suggest tags for a note based on its content",
			InputSchema: tagSchema,
		}},
		ToolChoice: toolChoice{Type: "tool", Name: toolName},
		Messages:   []message{{Role: "user", Content: prompt}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, errors.New(errors.ErrCodeSuggestFailed, "failed to encode suggestion request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.New(errors.ErrCodeSuggestFailed, "failed to build suggestion request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.New(errors.ErrCodeSuggestFailed, "suggestion request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.New(errors.ErrCodeSuggestFailed, "failed to read suggestion response", err)
	}

	var parsed messagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.New(errors.ErrCodeSuggestFailed, "failed to decode suggestion response", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("suggestion API returned status %d", resp.StatusCode)
		if parsed.Error != nil {
			msg = fmt.Sprintf("%s: %s", msg, parsed.Error.Message)
		}
		return nil, errors.New(errors.ErrCodeSuggestFailed, msg, nil)
	}

	for _, block := range parsed.Content {
		if block.Type != "tool_use" || block.Name != toolName {
			continue
		}
		var input struct {
			Tags []string `json:"tags"`
		}
		if err := json.Unmarshal(block.Input, &input); err != nil {
			return nil, errors.New(errors.ErrCodeSuggestFailed, "failed to decode tool input", err)
		}
		return c.sanitize(input.Tags), nil
	}

	return nil, errors.New(errors.ErrCodeSuggestFailed, "no tool use found in response", nil)
}

// sanitize normalizes suggested tags and drops any that remain invalid.
func (c *Client) sanitize(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, raw := range tags {
		tag := validate.Normalize(raw)
		if !validate.IsValidTag(tag) {
			c.logger.Warn("dropping invalid suggested tag", slog.String("tag", raw))
			continue
		}
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
