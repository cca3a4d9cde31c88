package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	var repair bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and store consistency",
		Long: `Doctor verifies that the configuration is usable, the notes directory
exists, the embedding provider responds, and the vector store agrees
with the usage ledger. With --repair, orphan embeddings are removed and
missing ones are backfilled.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd.Context(), repair)
		},
	}

	cmd.Flags().BoolVar(&repair, "repair", false, "Fix inconsistencies instead of only reporting them")
	return cmd
}

func runDoctor(ctx context.Context, repair bool) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	a.printer.Header("tagvault doctor")
	healthy := true

	if info, err := os.Stat(a.cfg.Notes.Dir); err != nil || !info.IsDir() {
		a.printer.Error("notes directory %s is not accessible", a.cfg.Notes.Dir)
		healthy = false
	} else {
		a.printer.Success("notes directory %s", a.cfg.Notes.Dir)
	}

	if a.embedder.Available(ctx) {
		a.printer.Success("embedding provider %s (%d dims)",
			a.embedder.ModelName(), a.embedder.Dimensions())
	} else {
		a.printer.Warning("embedding provider not reachable")
		healthy = false
	}

	if a.embedder.Dimensions() != a.vectors.Dimensions() {
		a.printer.Error("provider produces %d-dimensional vectors but the store holds %d",
			a.embedder.Dimensions(), a.vectors.Dimensions())
		a.printer.Line("run \"tagvault setup --recreate\" after changing embedding models")
		healthy = false
	}

	report, err := a.coord.Verify(ctx, repair)
	if err != nil {
		return err
	}
	switch {
	case report.Consistent() && report.Removed == 0 && report.Embedded == 0:
		a.printer.Success("vector store and usage ledger agree")
	case repair:
		a.printer.Success("repaired: removed %d orphan embeddings, backfilled %d",
			report.Removed, report.Embedded)
		if err := a.saveVectors(); err != nil {
			return err
		}
		if !report.Consistent() {
			a.printer.Warning("still missing embeddings for: %s",
				strings.Join(report.MissingVectors, ", "))
			healthy = false
		}
	default:
		if len(report.OrphanVectors) > 0 {
			a.printer.Warning("%d embeddings belong to tags no note uses: %s",
				len(report.OrphanVectors), strings.Join(report.OrphanVectors, ", "))
		}
		if len(report.MissingVectors) > 0 {
			a.printer.Warning("%d tags in use have no embedding: %s",
				len(report.MissingVectors), strings.Join(report.MissingVectors, ", "))
		}
		a.printer.Line("run \"tagvault doctor --repair\" to fix")
		healthy = false
	}

	a.printer.Rule()
	if healthy {
		a.printer.Success("all checks passed")
		return nil
	}
	a.printer.Warning("some checks failed")
	return nil
}
