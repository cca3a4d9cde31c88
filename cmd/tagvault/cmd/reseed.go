package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/tagvault/internal/index"
	"github.com/Aman-CERP/tagvault/internal/note"
)

func newReseedCmd() *cobra.Command {
	var flush bool

	cmd := &cobra.Command{
		Use:   "reseed",
		Short: "Rebuild the stores from the note collection",
		Long: `Reseed scans the notes directory and rebuilds the usage ledger from
what the frontmatter actually says, then backfills embeddings for every
tag in use. With --flush both stores are emptied first, so tags that no
note uses anymore disappear entirely.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReseed(cmd.Context(), flush)
		},
	}

	cmd.Flags().BoolVar(&flush, "flush", false, "Empty both stores before rebuilding")
	return cmd
}

func runReseed(ctx context.Context, flush bool) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	a.printer.Header(fmt.Sprintf("reseeding from %s", a.cfg.Notes.Dir))

	result, err := note.Scan(ctx, a.cfg.Notes.Dir, a.logger)
	if err != nil {
		return err
	}
	for _, scanErr := range result.Errors {
		a.printer.Warning("%s: %v", scanErr.Path, scanErr.Err)
	}

	assignments := make([]index.NoteTags, 0, len(result.Notes))
	for _, n := range result.Notes {
		assignments = append(assignments, index.NoteTags{NoteID: n.ID, Tags: n.Tags})
	}

	summary, err := a.coord.Reseed(ctx, assignments, flush)
	if err != nil {
		return err
	}
	if err := a.saveVectors(); err != nil {
		return err
	}

	a.printer.KeyValue("notes", fmt.Sprintf("%d", summary.Notes))
	a.printer.KeyValue("tags", fmt.Sprintf("%d", summary.Tags))
	a.printer.KeyValue("assignments", fmt.Sprintf("%d", summary.Assignments))
	a.printer.KeyValue("embedded", fmt.Sprintf("%d", summary.Embedded))
	if len(summary.Failed) > 0 {
		a.printer.Warning("embedding deferred for: %s", strings.Join(summary.Failed, ", "))
		a.printer.Warning("run \"tagvault backfill\" once the provider is reachable")
	}
	if len(summary.TopTags) > 0 {
		a.printer.Rule()
		a.printer.Line("most used tags:")
		for _, tc := range summary.TopTags {
			a.printer.KeyValue(tc.Tag, fmt.Sprintf("%d notes", tc.Count))
		}
	}
	return nil
}
