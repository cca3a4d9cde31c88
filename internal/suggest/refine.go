package suggest

import (
	"context"
	"log/slog"

	"github.com/Aman-CERP/tagvault/internal/similar"
)

// DefaultRefineThreshold is the similarity above which a suggested tag is
// replaced by an existing vocabulary tag.
const DefaultRefineThreshold = 0.7

// Refiner folds fresh suggestions into the existing vocabulary: a suggested
// tag close enough to a known tag becomes that known tag, which keeps the
// vocabulary from accumulating near-duplicates.
type Refiner struct {
	engine    *similar.Engine
	threshold float64
	logger    *slog.Logger
}

// NewRefiner creates a refiner using the given similarity engine. A zero or
// negative threshold falls back to the default.
func NewRefiner(engine *similar.Engine, threshold float64, logger *slog.Logger) *Refiner {
	if threshold <= 0 {
		threshold = DefaultRefineThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refiner{engine: engine, threshold: threshold, logger: logger}
}

// Refine maps each suggested tag to its closest existing tag when the
// similarity clears the threshold, keeping the suggestion otherwise.
// Duplicates after replacement collapse, preserving first occurrence order.
// A similarity lookup failure keeps the original suggestion.
func (r *Refiner) Refine(ctx context.Context, suggested []string) []string {
	out := make([]string, 0, len(suggested))
	seen := make(map[string]bool, len(suggested))

	for _, tag := range suggested {
		final := tag

		matches, err := r.engine.FindSimilar(ctx, tag, r.threshold, 1)
		switch {
		case err != nil:
			r.logger.Warn("similarity check failed, keeping suggested tag",
				slog.String("tag", tag), slog.String("error", err.Error()))
		case len(matches) > 0:
			final = matches[0].Tag
			r.logger.Debug("replaced suggested tag with existing tag",
				slog.String("suggested", tag),
				slog.String("existing", final),
				slog.Float64("similarity", matches[0].Similarity))
		}

		if seen[final] {
			continue
		}
		seen[final] = true
		out = append(out, final)
	}

	return out
}
