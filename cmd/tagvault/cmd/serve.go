package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/tagvault/internal/mcp"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tag vocabulary over MCP on stdio",
		Long: `Serve exposes similar_tags, suggest_merges, and tag_usage as MCP tools
over stdio, for editors and agents that speak the protocol. The server
runs until the client disconnects or the process is interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	return cmd
}

func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	server, err := mcp.NewServer(a.engine, a.ledger, mcp.Options{
		SimilarityThreshold: a.cfg.Similarity.RefineThreshold,
		MergeThreshold:      a.cfg.Similarity.MergeThreshold,
		MaxResults:          a.cfg.Similarity.MaxResults,
	}, a.logger)
	if err != nil {
		return err
	}

	a.logger.Info("mcp server starting",
		"tags", a.vectors.Count(),
		"dimensions", a.vectors.Dimensions())
	return server.Run(ctx)
}
