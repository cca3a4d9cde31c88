package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/Aman-CERP/tagvault/internal/config"
	"github.com/Aman-CERP/tagvault/internal/embed"
	"github.com/Aman-CERP/tagvault/internal/errors"
	"github.com/Aman-CERP/tagvault/internal/index"
	"github.com/Aman-CERP/tagvault/internal/similar"
	"github.com/Aman-CERP/tagvault/internal/store"
	"github.com/Aman-CERP/tagvault/internal/ui"
)

// app bundles the open stores and services every data-touching command
// needs. Opening acquires the data directory lock; close releases it.
type app struct {
	cfg      *config.Config
	printer  *ui.Printer
	logger   *slog.Logger
	lock     *store.FileLock
	vectors  *store.TagVectorStore
	ledger   *store.UsageLedger
	embedder embed.Embedder
	engine   *similar.Engine
	coord    *index.Coordinator
}

// openApp loads configuration, locks the data directory, and opens both
// stores plus the embedding provider. Callers must defer a.close().
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		printer: ui.NewPrinter(os.Stdout),
		logger:  slog.Default(),
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, errors.StoreError("failed to create data directory", err).
			WithDetail("path", cfg.DataDir)
	}

	a.lock = store.NewFileLock(cfg.LockPath())
	locked, err := a.lock.TryLock()
	if err != nil {
		return nil, errors.StoreError("failed to acquire data directory lock", err).
			WithDetail("path", cfg.LockPath())
	}
	if !locked {
		return nil, errors.New(errors.ErrCodeStoreLocked,
			"another tagvault process holds the data directory", nil).
			WithDetail("path", cfg.LockPath()).
			WithSuggestion("Stop the other process or wait for it to finish")
	}

	vectors, err := store.NewTagVectorStore(store.DefaultVectorConfig(cfg.Embeddings.Dimensions))
	if err != nil {
		a.close()
		return nil, err
	}
	a.vectors = vectors
	if err := vectors.LoadIfExists(cfg.VectorPath()); err != nil {
		a.close()
		return nil, err
	}

	ledger, err := store.OpenUsageLedger(cfg.LedgerPath())
	if err != nil {
		a.close()
		return nil, err
	}
	a.ledger = ledger

	embedder, err := embed.NewFromConfig(ctx, cfg.Embeddings)
	if err != nil {
		a.close()
		return nil, err
	}
	a.embedder = embedder

	a.engine = similar.NewEngine(vectors, ledger, embedder, a.logger)
	a.coord = index.NewCoordinator(vectors, ledger, embedder, a.logger)
	return a, nil
}

// saveVectors persists the vector store to its configured path.
func (a *app) saveVectors() error {
	return a.vectors.Save(a.cfg.VectorPath())
}

// close releases everything openApp acquired. Safe on a partially
// opened app.
func (a *app) close() {
	if a.embedder != nil {
		if err := a.embedder.Close(); err != nil {
			a.logger.Warn("failed to close embedder", "error", err)
		}
	}
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			a.logger.Warn("failed to close usage ledger", "error", err)
		}
	}
	if a.vectors != nil {
		if err := a.vectors.Close(); err != nil {
			a.logger.Warn("failed to close vector store", "error", err)
		}
	}
	if a.lock != nil {
		if err := a.lock.Unlock(); err != nil {
			a.logger.Warn("failed to release lock", "error", err)
		}
	}
}
