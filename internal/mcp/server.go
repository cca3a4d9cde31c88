package mcp

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/tagvault/internal/similar"
	"github.com/Aman-CERP/tagvault/internal/store"
	"github.com/Aman-CERP/tagvault/internal/validate"
	"github.com/Aman-CERP/tagvault/pkg/version"
)

// Server exposes the tag vocabulary to MCP clients so an AI assistant can
// check its candidate tags against the existing vocabulary before using
// them.
type Server struct {
	mcp    *mcp.Server
	engine *similar.Engine
	ledger *store.UsageLedger
	logger *slog.Logger

	defaultThreshold float64
	mergeThreshold   float64
	maxResults       int
}

// Options configures the MCP server defaults.
type Options struct {
	// SimilarityThreshold is the default threshold for similar_tags.
	SimilarityThreshold float64
	// MergeThreshold is the default threshold for suggest_merges.
	MergeThreshold float64
	// MaxResults is the default result cap for similar_tags.
	MaxResults int
}

// NewServer creates an MCP server over the similarity engine and ledger.
func NewServer(engine *similar.Engine, ledger *store.UsageLedger, opts Options, logger *slog.Logger) (*Server, error) {
	if engine == nil {
		return nil, errors.New("similarity engine is required")
	}
	if ledger == nil {
		return nil, errors.New("usage ledger is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SimilarityThreshold == 0 {
		opts.SimilarityThreshold = 0.7
	}
	if opts.MergeThreshold == 0 {
		opts.MergeThreshold = similar.DefaultMergeThreshold
	}
	if opts.MaxResults == 0 {
		opts.MaxResults = 5
	}

	s := &Server{
		engine:           engine,
		ledger:           ledger,
		logger:           logger,
		defaultThreshold: opts.SimilarityThreshold,
		mergeThreshold:   opts.MergeThreshold,
		maxResults:       opts.MaxResults,
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "tagvault",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// SimilarTagsInput defines the input schema for the similar_tags tool.
type SimilarTagsInput struct {
	Tag       string  `json:"tag" jsonschema:"the tag to find similar existing tags for"`
	Threshold float64 `json:"threshold,omitempty" jsonschema:"minimum cosine similarity, default 0.7"`
	Max       int     `json:"max,omitempty" jsonschema:"maximum number of results, default 5"`
}

// SimilarTagsOutput defines the output schema for the similar_tags tool.
type SimilarTagsOutput struct {
	Matches []SimilarTagOutput `json:"matches" jsonschema:"existing tags ranked by similarity"`
}

// SimilarTagOutput is one ranked similar tag.
type SimilarTagOutput struct {
	Tag        string  `json:"tag" jsonschema:"the existing tag"`
	Similarity float64 `json:"similarity" jsonschema:"cosine similarity to the query tag"`
	Usage      int     `json:"usage" jsonschema:"how many notes use this tag"`
}

// SuggestMergesInput defines the input schema for the suggest_merges tool.
type SuggestMergesInput struct {
	Threshold float64 `json:"threshold,omitempty" jsonschema:"minimum similarity for a merge pair, default 0.9"`
}

// SuggestMergesOutput defines the output schema for the suggest_merges tool.
type SuggestMergesOutput struct {
	Suggestions []MergeSuggestionOutput `json:"suggestions" jsonschema:"proposed merges, most similar first"`
}

// MergeSuggestionOutput is one proposed merge.
type MergeSuggestionOutput struct {
	Keep       string  `json:"keep" jsonschema:"the tag to keep"`
	Merge      string  `json:"merge" jsonschema:"the tag to fold into keep"`
	Similarity float64 `json:"similarity" jsonschema:"cosine similarity of the pair"`
	KeepUsage  int     `json:"keep_usage" jsonschema:"notes using the kept tag"`
	MergeUsage int     `json:"merge_usage" jsonschema:"notes using the merged tag"`
}

// TagUsageInput defines the input schema for the tag_usage tool.
type TagUsageInput struct {
	Tag string `json:"tag" jsonschema:"the tag to look up usage for"`
}

// TagUsageOutput defines the output schema for the tag_usage tool.
type TagUsageOutput struct {
	Tag   string   `json:"tag" jsonschema:"the queried tag"`
	Count int      `json:"count" jsonschema:"how many notes use the tag"`
	Notes []string `json:"notes" jsonschema:"IDs of the notes using the tag"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "similar_tags",
		Description: "Find existing vocabulary tags semantically similar to a candidate tag. Use this before inventing a new tag: if a close match exists, reuse it instead.",
	}, s.similarTagsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "suggest_merges",
		Description: "Scan the whole tag vocabulary for near-duplicate pairs and propose which tag of each pair to keep. Useful for periodic vocabulary cleanup.",
	}, s.suggestMergesHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "tag_usage",
		Description: "Look up how many notes use a tag and which ones. Returns zero usage for unknown tags.",
	}, s.tagUsageHandler)

	s.logger.Info("MCP tools registered", slog.Int("count", 3))
}

func (s *Server) similarTagsHandler(ctx context.Context, req *mcp.CallToolRequest, input SimilarTagsInput) (
	*mcp.CallToolResult,
	SimilarTagsOutput,
	error,
) {
	tag := validate.Normalize(input.Tag)
	if strings.TrimSpace(tag) == "" {
		return nil, SimilarTagsOutput{}, NewInvalidParamsError("tag parameter is required and must be a non-empty string")
	}

	threshold := input.Threshold
	if threshold == 0 {
		threshold = s.defaultThreshold
	}
	max := input.Max
	if max <= 0 {
		max = s.maxResults
	}

	matches, err := s.engine.FindSimilar(ctx, tag, threshold, max)
	if err != nil {
		return nil, SimilarTagsOutput{}, MapError(err)
	}

	output := SimilarTagsOutput{Matches: make([]SimilarTagOutput, 0, len(matches))}
	for _, m := range matches {
		output.Matches = append(output.Matches, SimilarTagOutput{
			Tag:        m.Tag,
			Similarity: m.Similarity,
			Usage:      m.Usage,
		})
	}
	return nil, output, nil
}

func (s *Server) suggestMergesHandler(ctx context.Context, req *mcp.CallToolRequest, input SuggestMergesInput) (
	*mcp.CallToolResult,
	SuggestMergesOutput,
	error,
) {
	threshold := input.Threshold
	if threshold == 0 {
		threshold = s.mergeThreshold
	}

	suggestions, err := s.engine.SuggestMerges(ctx, threshold)
	if err != nil {
		return nil, SuggestMergesOutput{}, MapError(err)
	}

	output := SuggestMergesOutput{Suggestions: make([]MergeSuggestionOutput, 0, len(suggestions))}
	for _, sg := range suggestions {
		output.Suggestions = append(output.Suggestions, MergeSuggestionOutput{
			Keep:       sg.Keep,
			Merge:      sg.Merge,
			Similarity: sg.Similarity,
			KeepUsage:  sg.KeepUsage,
			MergeUsage: sg.MergeUsage,
		})
	}
	return nil, output, nil
}

func (s *Server) tagUsageHandler(ctx context.Context, req *mcp.CallToolRequest, input TagUsageInput) (
	*mcp.CallToolResult,
	TagUsageOutput,
	error,
) {
	tag := validate.Normalize(input.Tag)
	if strings.TrimSpace(tag) == "" {
		return nil, TagUsageOutput{}, NewInvalidParamsError("tag parameter is required and must be a non-empty string")
	}

	usage, err := s.ledger.Get(ctx, tag)
	if err != nil {
		return nil, TagUsageOutput{}, MapError(err)
	}

	return nil, TagUsageOutput{
		Tag:   usage.Tag,
		Count: usage.Count,
		Notes: usage.Notes,
	}, nil
}

// Run serves MCP over stdio until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server", slog.String("transport", "stdio"))

	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("MCP server stopped gracefully")
	return nil
}
