package embed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Aman-CERP/tagvault/internal/config"
)

// NewFromConfig builds the configured embedder, wrapped in an LRU cache.
//
// Provider "ollama" requires a reachable Ollama instance; when it is not
// reachable the factory falls back to the static embedder with a warning so
// tagging keeps working offline (with reduced semantic quality). Provider
// "static" selects the hash embedder directly.
func NewFromConfig(ctx context.Context, cfg config.EmbeddingsConfig) (Embedder, error) {
	inner, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewCachedEmbedder(inner, cfg.CacheSize), nil
}

func newProvider(ctx context.Context, cfg config.EmbeddingsConfig) (Embedder, error) {
	switch cfg.Provider {
	case "static":
		return NewStaticEmbedder(cfg.Dimensions), nil

	case "ollama":
		e, err := NewOllamaEmbedder(ctx, OllamaConfig{
			Host:       cfg.OllamaHost,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.Timeout,
		})
		if err != nil {
			slog.Warn("ollama unavailable, falling back to static embeddings",
				slog.String("host", cfg.OllamaHost),
				slog.String("error", err.Error()))
			return NewStaticEmbedder(cfg.Dimensions), nil
		}
		return e, nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
}
