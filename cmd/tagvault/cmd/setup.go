package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/tagvault/internal/config"
	"github.com/Aman-CERP/tagvault/internal/embed"
	"github.com/Aman-CERP/tagvault/internal/errors"
	"github.com/Aman-CERP/tagvault/internal/store"
	"github.com/Aman-CERP/tagvault/internal/ui"
)

func newSetupCmd() *cobra.Command {
	var (
		notesDir string
		recreate bool
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Initialize the tagvault data directory and config",
		Long: `Setup creates the data directory, writes a default config file, and
probes the embedding provider. Existing config and stores are left alone
unless --recreate is given, which wipes the vector store and usage ledger.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSetup(cmd.Context(), notesDir, recreate)
		},
	}

	cmd.Flags().StringVar(&notesDir, "notes-dir", "", "Root directory of the note collection")
	cmd.Flags().BoolVar(&recreate, "recreate", false, "Delete existing stores and start fresh")
	return cmd
}

func runSetup(ctx context.Context, notesDir string, recreate bool) error {
	printer := ui.NewPrinter(os.Stdout)
	printer.Header("tagvault setup")

	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if notesDir != "" {
		cfg.Notes.Dir = notesDir
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}
	printer.KeyValue("data dir", cfg.DataDir)
	printer.KeyValue("notes dir", cfg.Notes.Dir)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := cfg.Save(path); err != nil {
			return err
		}
		printer.Success("wrote config to %s", path)
	} else if notesDir != "" {
		if err := cfg.Save(path); err != nil {
			return err
		}
		printer.Success("updated config at %s", path)
	} else {
		printer.Line("config already exists at %s", path)
	}

	if recreate {
		for _, p := range []string{cfg.VectorPath(), cfg.LedgerPath()} {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
		printer.Warning("existing stores removed")
	}

	// Opening the stores once creates their on-disk files and catches
	// corruption early.
	vectors, err := store.NewTagVectorStore(store.DefaultVectorConfig(cfg.Embeddings.Dimensions))
	if err != nil {
		return err
	}
	defer vectors.Close()
	if err := vectors.LoadIfExists(cfg.VectorPath()); err != nil {
		return err
	}
	ledger, err := store.OpenUsageLedger(cfg.LedgerPath())
	if err != nil {
		return err
	}
	defer ledger.Close()
	printer.Success("stores ready (%d tags embedded)", vectors.Count())

	embedder, err := embed.NewFromConfig(ctx, cfg.Embeddings)
	if err != nil {
		return err
	}
	defer embedder.Close()
	// The factory falls back to hash embeddings when ollama is down. For
	// setup that silence is wrong: a vocabulary seeded with hash vectors
	// is useless once the real model comes back.
	if cfg.Embeddings.Provider == "ollama" && embedder.ModelName() == embed.StaticModelName {
		return errors.New(errors.ErrCodeEmbedderUnavailable,
			fmt.Sprintf("ollama is not reachable at %s", cfg.Embeddings.OllamaHost), nil).
			WithSuggestion("Start ollama and pull the embedding model, or set embeddings.provider to \"static\"")
	}
	printer.Success("embedding provider ready (%s, %d dimensions)",
		embedder.ModelName(), embedder.Dimensions())

	return nil
}
