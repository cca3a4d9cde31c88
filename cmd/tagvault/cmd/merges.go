package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

func newMergesCmd() *cobra.Command {
	var (
		threshold  float64
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "merges",
		Short: "Suggest near-duplicate tag pairs worth merging",
		Long: `Merges scans every pair of embedded tags and reports those whose
similarity exceeds the threshold. The more used tag of each pair is the
suggested survivor. Nothing is changed; this is advisory output.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMerges(cmd.Context(), threshold, jsonOutput)
		},
	}

	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 0, "Minimum similarity (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runMerges(ctx context.Context, threshold float64, jsonOutput bool) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if threshold == 0 {
		threshold = a.cfg.Similarity.MergeThreshold
	}

	suggestions, err := a.engine.SuggestMerges(ctx, threshold)
	if err != nil {
		return err
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(suggestions)
	}

	if len(suggestions) == 0 {
		a.printer.Line("no tag pairs above %.2f", threshold)
		return nil
	}
	a.printer.Header("merge candidates")
	for _, s := range suggestions {
		a.printer.Merge(s.Keep, s.Merge, s.Similarity, s.KeepUsage, s.MergeUsage)
	}
	return nil
}
