package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/tagvault/internal/index"
)

// statsOutput is the JSON shape of the stats command.
type statsOutput struct {
	Tags          int              `json:"tags"`
	EmbeddedTags  int              `json:"embedded_tags"`
	Notes         int              `json:"notes"`
	Assignments   int              `json:"assignments"`
	TopTags       []index.TagCount `json:"top_tags"`
	VectorBytes   int64            `json:"vector_bytes"`
	LedgerBytes   int64            `json:"ledger_bytes"`
	EmbeddingDims int              `json:"embedding_dimensions"`
	Model         string           `json:"model"`
}

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show vocabulary and store statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runStats(ctx context.Context, jsonOutput bool) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	counts, err := a.ledger.UsageCounts(ctx)
	if err != nil {
		return err
	}
	noteCount, err := a.ledger.NoteCount(ctx)
	if err != nil {
		return err
	}

	assignments := 0
	for _, c := range counts {
		assignments += c
	}

	out := statsOutput{
		Tags:          len(counts),
		EmbeddedTags:  a.vectors.Count(),
		Notes:         noteCount,
		Assignments:   assignments,
		TopTags:       topTagCounts(counts, 10),
		VectorBytes:   fileSize(a.cfg.VectorPath()),
		LedgerBytes:   fileSize(a.cfg.LedgerPath()),
		EmbeddingDims: a.cfg.Embeddings.Dimensions,
		Model:         a.cfg.Embeddings.Model,
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	a.printer.Header("tagvault stats")
	a.printer.KeyValue("tags in use", fmt.Sprintf("%d", out.Tags))
	a.printer.KeyValue("tags embedded", fmt.Sprintf("%d", out.EmbeddedTags))
	a.printer.KeyValue("notes", fmt.Sprintf("%d", out.Notes))
	a.printer.KeyValue("assignments", fmt.Sprintf("%d", out.Assignments))
	a.printer.KeyValue("model", fmt.Sprintf("%s (%d dims)", out.Model, out.EmbeddingDims))
	a.printer.KeyValue("vector store", formatBytes(out.VectorBytes))
	a.printer.KeyValue("usage ledger", formatBytes(out.LedgerBytes))
	if len(out.TopTags) > 0 {
		a.printer.Rule()
		a.printer.Line("most used tags:")
		for _, tc := range out.TopTags {
			a.printer.KeyValue(tc.Tag, fmt.Sprintf("%d notes", tc.Count))
		}
	}
	return nil
}

func topTagCounts(counts map[string]int, n int) []index.TagCount {
	out := make([]index.TagCount, 0, len(counts))
	for tag, count := range counts {
		out = append(out, index.TagCount{Tag: tag, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
