package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/tagvault/internal/validate"
)

func newSimilarCmd() *cobra.Command {
	var (
		threshold  float64
		max        int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "similar <tag>",
		Short: "Find existing tags semantically close to a tag",
		Long: `Similar ranks the existing vocabulary by cosine similarity to the
given tag. The tag itself does not have to exist yet; unknown tags are
embedded on the fly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimilar(cmd.Context(), args[0], threshold, max, jsonOutput)
		},
	}

	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 0, "Minimum similarity (default from config)")
	cmd.Flags().IntVarP(&max, "max", "n", 0, "Maximum results (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runSimilar(ctx context.Context, rawTag string, threshold float64, max int, jsonOutput bool) error {
	tag := validate.Normalize(rawTag)
	if err := validate.CheckTag(tag); err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if threshold == 0 {
		threshold = a.cfg.Similarity.RefineThreshold
	}
	if max == 0 {
		max = a.cfg.Similarity.MaxResults
	}

	matches, err := a.engine.FindSimilar(ctx, tag, threshold, max)
	if err != nil {
		return err
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(matches)
	}

	if len(matches) == 0 {
		a.printer.Line("no tags within %.2f of %q", threshold, tag)
		return nil
	}
	a.printer.Header(fmt.Sprintf("tags similar to %q", tag))
	for _, m := range matches {
		a.printer.Match(m.Tag, m.Similarity, m.Usage)
	}
	return nil
}
