// Package similar ranks vocabulary tags by semantic closeness and proposes
// merges for near-duplicate tags.
package similar

import (
	"context"
	"log/slog"
	"sort"

	"github.com/Aman-CERP/tagvault/internal/embed"
	"github.com/Aman-CERP/tagvault/internal/errors"
	"github.com/Aman-CERP/tagvault/internal/store"
)

// minCandidates is the floor on how many neighbors are fetched before
// threshold filtering. Fetching more than requested keeps results stable
// when many candidates tie near the threshold.
const minCandidates = 20

// DefaultMergeThreshold is the similarity above which two tags are
// considered near-duplicates worth merging.
const DefaultMergeThreshold = 0.9

// SimilarTag is one ranked result from FindSimilar.
type SimilarTag struct {
	Tag        string  `json:"tag"`
	Similarity float64 `json:"similarity"`
	Usage      int     `json:"usage"`
}

// MergeSuggestion proposes folding Merge into Keep. The more-used tag is
// kept; on equal usage the lexicographically smaller tag is kept so the
// same vocabulary always yields the same proposal.
type MergeSuggestion struct {
	Keep       string  `json:"keep"`
	Merge      string  `json:"merge"`
	Similarity float64 `json:"similarity"`
	KeepUsage  int     `json:"keep_usage"`
	MergeUsage int     `json:"merge_usage"`
}

// Engine answers similarity queries over the stored tag vocabulary.
type Engine struct {
	vectors  *store.TagVectorStore
	ledger   *store.UsageLedger
	embedder embed.Embedder
	logger   *slog.Logger
}

// NewEngine creates a similarity engine over the given stores.
func NewEngine(vectors *store.TagVectorStore, ledger *store.UsageLedger, embedder embed.Embedder, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		vectors:  vectors,
		ledger:   ledger,
		embedder: embedder,
		logger:   logger,
	}
}

// FindSimilar returns up to max stored tags whose similarity to tag is at
// least threshold, ordered by similarity descending with usage count as the
// tie-breaker. The query tag itself is never a result.
//
// A tag already in the vocabulary is queried with its stored vector; an
// unknown tag is embedded on the fly, so candidate tags can be checked
// against the vocabulary before they are ever stored. When the embedding
// provider is down the query cannot be answered; the search degrades to an
// empty result rather than surfacing the provider failure, so callers
// simply see no matches.
func (e *Engine) FindSimilar(ctx context.Context, tag string, threshold float64, max int) ([]SimilarTag, error) {
	if max <= 0 {
		return []SimilarTag{}, nil
	}

	query, ok := e.vectors.Get(tag)
	if !ok {
		var err error
		query, err = e.embedder.Embed(ctx, tag)
		if err != nil {
			e.logger.Warn("could not embed query tag, returning no matches",
				slog.String("tag", tag), slog.String("error", err.Error()))
			return []SimilarTag{}, nil
		}
	}

	fetch := max * 3
	if fetch < minCandidates {
		fetch = minCandidates
	}

	matches, err := e.vectors.Search(ctx, query, fetch)
	if err != nil {
		return nil, errors.New(errors.ErrCodeSearchFailed, "similarity search failed", err)
	}

	counts, err := e.ledger.UsageCounts(ctx)
	if err != nil {
		return nil, errors.StoreError("failed to read usage counts", err)
	}

	results := make([]SimilarTag, 0, max)
	for _, m := range matches {
		if m.Tag == tag {
			continue
		}
		if m.Similarity < threshold {
			continue
		}
		results = append(results, SimilarTag{
			Tag:        m.Tag,
			Similarity: m.Similarity,
			Usage:      counts[m.Tag],
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		if results[i].Usage != results[j].Usage {
			return results[i].Usage > results[j].Usage
		}
		return results[i].Tag < results[j].Tag
	})

	if len(results) > max {
		results = results[:max]
	}
	return results, nil
}

// SuggestMerges scans the whole vocabulary for pairs of tags whose
// similarity is at least threshold and proposes one merge per pair. Each
// unordered pair appears once regardless of which side discovered it.
func (e *Engine) SuggestMerges(ctx context.Context, threshold float64) ([]MergeSuggestion, error) {
	tags := e.vectors.AllTags()
	if len(tags) < 2 {
		return []MergeSuggestion{}, nil
	}

	counts, err := e.ledger.UsageCounts(ctx)
	if err != nil {
		return nil, errors.StoreError("failed to read usage counts", err)
	}

	type pairKey struct{ a, b string }
	seen := make(map[pairKey]float64)

	for _, tag := range tags {
		query, ok := e.vectors.Get(tag)
		if !ok {
			continue
		}

		matches, err := e.vectors.Search(ctx, query, minCandidates)
		if err != nil {
			e.logger.Warn("merge scan search failed, skipping tag",
				slog.String("tag", tag), slog.String("error", err.Error()))
			continue
		}

		for _, m := range matches {
			if m.Tag == tag || m.Similarity < threshold {
				continue
			}
			key := pairKey{a: tag, b: m.Tag}
			if key.a > key.b {
				key.a, key.b = key.b, key.a
			}
			if existing, dup := seen[key]; !dup || m.Similarity > existing {
				seen[key] = m.Similarity
			}
		}
	}

	suggestions := make([]MergeSuggestion, 0, len(seen))
	for key, similarity := range seen {
		keep, merge := key.a, key.b
		if counts[merge] > counts[keep] {
			keep, merge = merge, keep
		}
		suggestions = append(suggestions, MergeSuggestion{
			Keep:       keep,
			Merge:      merge,
			Similarity: similarity,
			KeepUsage:  counts[keep],
			MergeUsage: counts[merge],
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Similarity != suggestions[j].Similarity {
			return suggestions[i].Similarity > suggestions[j].Similarity
		}
		if suggestions[i].Keep != suggestions[j].Keep {
			return suggestions[i].Keep < suggestions[j].Keep
		}
		return suggestions[i].Merge < suggestions[j].Merge
	})

	return suggestions, nil
}
