// Package index keeps the tag vector store and the usage ledger consistent
// with the tags actually present in notes.
//
// The ledger is authoritative for which tags exist: a tag's embedding lives
// exactly as long as some note uses the tag. The coordinator enforces that
// coupling on every note change and can rebuild either side from scratch.
package index

import (
	"context"
	"log/slog"
	"sort"

	"github.com/Aman-CERP/tagvault/internal/embed"
	"github.com/Aman-CERP/tagvault/internal/errors"
	"github.com/Aman-CERP/tagvault/internal/store"
)

// NoteTags is one note's tag assignment, the unit of ledger input.
type NoteTags struct {
	NoteID string
	Tags   []string
}

// Coordinator applies note tag changes to both stores.
type Coordinator struct {
	vectors  *store.TagVectorStore
	ledger   *store.UsageLedger
	embedder embed.Embedder
	logger   *slog.Logger
}

// NewCoordinator creates a coordinator over the given stores.
func NewCoordinator(vectors *store.TagVectorStore, ledger *store.UsageLedger, embedder embed.Embedder, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		vectors:  vectors,
		ledger:   ledger,
		embedder: embedder,
		logger:   logger,
	}
}

// SyncNote reconciles the stores after a note's tags change from prevTags
// to newTags. Tags the note dropped are released; a tag released by its
// last note is purged entirely, embedding included. Tags new to the
// vocabulary get an embedding, best effort: an embedding failure leaves the
// usage recorded for a later Backfill rather than failing the sync.
func (c *Coordinator) SyncNote(ctx context.Context, noteID string, newTags, prevTags []string) error {
	keep := make(map[string]bool, len(newTags))
	for _, tag := range newTags {
		keep[tag] = true
	}

	for _, tag := range prevTags {
		if keep[tag] {
			continue
		}
		if err := c.ledger.ReleaseUse(ctx, tag, noteID); err != nil {
			return err
		}
		count, err := c.ledger.Count(ctx, tag)
		if err != nil {
			return err
		}
		if count == 0 {
			if err := c.vectors.Delete(ctx, tag); err != nil {
				return err
			}
			c.logger.Info("purged unused tag", slog.String("tag", tag))
		}
	}

	for _, tag := range newTags {
		if err := c.ledger.RecordUse(ctx, tag, noteID); err != nil {
			return err
		}
		if err := c.ensureEmbedding(ctx, tag); err != nil {
			c.logger.Warn("embedding deferred for tag",
				slog.String("tag", tag), slog.String("error", err.Error()))
		}
	}

	return nil
}

// ensureEmbedding stores an embedding for tag if none exists.
func (c *Coordinator) ensureEmbedding(ctx context.Context, tag string) error {
	if c.vectors.Has(tag) {
		return nil
	}
	vec, err := c.embedder.Embed(ctx, tag)
	if err != nil {
		return errors.ProviderError("failed to embed tag", err).WithDetail("tag", tag)
	}
	return c.vectors.Put(ctx, tag, vec, c.embedder.ModelName())
}

// ReseedSummary reports what a rebuild produced.
type ReseedSummary struct {
	Notes       int
	Tags        int
	Assignments int
	Embedded    int
	Failed      []string
	TopTags     []TagCount
}

// TagCount pairs a tag with its usage count for summary output.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Reseed rebuilds the ledger from the given note assignments and backfills
// embeddings for every tag in use. With flush, both stores are emptied
// first so stale tags from deleted or renamed notes disappear.
func (c *Coordinator) Reseed(ctx context.Context, notes []NoteTags, flush bool) (*ReseedSummary, error) {
	if flush {
		if err := c.ledger.Flush(ctx); err != nil {
			return nil, err
		}
		for _, tag := range c.vectors.AllTags() {
			if err := c.vectors.Delete(ctx, tag); err != nil {
				return nil, err
			}
		}
	}

	summary := &ReseedSummary{Notes: len(notes)}
	for _, n := range notes {
		for _, tag := range n.Tags {
			if err := c.ledger.RecordUse(ctx, tag, n.NoteID); err != nil {
				return nil, err
			}
			summary.Assignments++
		}
	}

	embedded, failed, err := c.Backfill(ctx)
	if err != nil {
		return nil, err
	}
	summary.Embedded = embedded
	summary.Failed = failed

	counts, err := c.ledger.UsageCounts(ctx)
	if err != nil {
		return nil, err
	}
	summary.Tags = len(counts)
	summary.TopTags = topTags(counts, 10)

	return summary, nil
}

// Backfill embeds every tag the ledger knows but the vector store does not.
// It returns how many embeddings were stored and which tags failed.
func (c *Coordinator) Backfill(ctx context.Context) (embedded int, failed []string, err error) {
	tags, err := c.ledger.AllTags(ctx)
	if err != nil {
		return 0, nil, err
	}

	var missing []string
	for _, tag := range tags {
		if !c.vectors.Has(tag) {
			missing = append(missing, tag)
		}
	}
	if len(missing) == 0 {
		return 0, nil, nil
	}

	for start := 0; start < len(missing); start += embed.DefaultBatchSize {
		end := start + embed.DefaultBatchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[start:end]

		vecs, batchErr := c.embedder.EmbedBatch(ctx, batch)
		if batchErr != nil {
			c.logger.Warn("embedding batch failed",
				slog.Int("size", len(batch)), slog.String("error", batchErr.Error()))
			failed = append(failed, batch...)
			continue
		}

		for i, tag := range batch {
			if putErr := c.vectors.Put(ctx, tag, vecs[i], c.embedder.ModelName()); putErr != nil {
				c.logger.Warn("failed to store embedding",
					slog.String("tag", tag), slog.String("error", putErr.Error()))
				failed = append(failed, tag)
				continue
			}
			embedded++
		}
	}

	return embedded, failed, nil
}

func topTags(counts map[string]int, n int) []TagCount {
	out := make([]TagCount, 0, len(counts))
	for tag, count := range counts {
		out = append(out, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
