package index

import (
	"context"
	"log/slog"
)

// ConsistencyReport lists disagreements between the two stores.
type ConsistencyReport struct {
	// OrphanVectors have an embedding but no note uses them.
	OrphanVectors []string

	// MissingVectors are in use but have no embedding.
	MissingVectors []string

	// Removed and Embedded count what a repair run actually fixed.
	Removed  int
	Embedded int
}

// Consistent reports whether the stores agree.
func (r *ConsistencyReport) Consistent() bool {
	return len(r.OrphanVectors) == 0 && len(r.MissingVectors) == 0
}

// Verify cross-checks the vector store against the ledger. With repair,
// orphan embeddings are deleted and missing ones are backfilled; without
// it, the report only describes what a repair would do.
func (c *Coordinator) Verify(ctx context.Context, repair bool) (*ConsistencyReport, error) {
	inUse, err := c.ledger.AllTags(ctx)
	if err != nil {
		return nil, err
	}
	used := make(map[string]bool, len(inUse))
	for _, tag := range inUse {
		used[tag] = true
	}

	report := &ConsistencyReport{}
	for _, tag := range c.vectors.AllTags() {
		if !used[tag] {
			report.OrphanVectors = append(report.OrphanVectors, tag)
		}
	}
	for _, tag := range inUse {
		if !c.vectors.Has(tag) {
			report.MissingVectors = append(report.MissingVectors, tag)
		}
	}

	if !repair {
		return report, nil
	}

	for _, tag := range report.OrphanVectors {
		if err := c.vectors.Delete(ctx, tag); err != nil {
			return report, err
		}
		report.Removed++
		c.logger.Info("removed orphan embedding", slog.String("tag", tag))
	}

	embedded, failed, err := c.Backfill(ctx)
	if err != nil {
		return report, err
	}
	report.Embedded = embedded
	if len(failed) > 0 {
		c.logger.Warn("some embeddings could not be backfilled",
			slog.Int("count", len(failed)))
	}

	return report, nil
}
