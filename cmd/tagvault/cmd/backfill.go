package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

func newBackfillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Embed tags that are in use but missing from the vector store",
		Long: `Backfill finds every tag the ledger knows about that has no stored
embedding and embeds it in batches. Tags end up without embeddings when
the provider was unreachable at tagging time; backfill is how they
catch up.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBackfill(cmd.Context())
		},
	}
	return cmd
}

func runBackfill(ctx context.Context) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	embedded, failed, err := a.coord.Backfill(ctx)
	if err != nil {
		return err
	}
	if embedded > 0 {
		if err := a.saveVectors(); err != nil {
			return err
		}
	}

	if embedded == 0 && len(failed) == 0 {
		a.printer.Line("nothing to backfill, every tag in use has an embedding")
		return nil
	}
	a.printer.Success("embedded %d tags", embedded)
	if len(failed) > 0 {
		a.printer.Warning("still missing: %s", strings.Join(failed, ", "))
	}
	return nil
}
