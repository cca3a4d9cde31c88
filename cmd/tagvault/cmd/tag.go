package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/tagvault/internal/note"
	"github.com/Aman-CERP/tagvault/internal/suggest"
	"github.com/Aman-CERP/tagvault/internal/validate"
)

func newTagCmd() *cobra.Command {
	var (
		force    bool
		dryRun   bool
		quiet    bool
		override string
	)

	cmd := &cobra.Command{
		Use:   "tag <note>...",
		Short: "Suggest and apply tags to notes",
		Long: `Tag asks the suggestion service for tags for each note, refines them
against the existing vocabulary so near-duplicates collapse onto the
established spelling, writes them into the note's frontmatter, and
updates the stores. With --tags, the given list is used instead of
asking the suggestion service; it still goes through refinement.

Notes already tagged by the current tagging version are skipped unless
--force is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTag(cmd.Context(), args, override, force, dryRun, quiet)
		},
	}

	cmd.Flags().StringVar(&override, "tags", "", "Comma-separated tags to use instead of suggestions")
	cmd.Flags().BoolVar(&force, "force", false, "Re-tag notes even when already current")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would change without writing")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print errors")
	return cmd
}

func runTag(ctx context.Context, paths []string, override string, force, dryRun, quiet bool) error {
	var overrideTags []string
	if override != "" {
		for _, raw := range validate.ParseTagList(override) {
			tag := validate.Normalize(raw)
			if err := validate.CheckTag(tag); err != nil {
				return err
			}
			overrideTags = append(overrideTags, tag)
		}
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	a.printer.SetQuiet(quiet)

	var client *suggest.Client
	if overrideTags == nil {
		client, err = suggest.NewClient(a.cfg.Suggest, a.logger)
		if err != nil {
			return err
		}
	}
	refiner := suggest.NewRefiner(a.engine, a.cfg.Similarity.RefineThreshold, a.logger)

	var tagged, skipped, failed int
	for _, path := range paths {
		n, err := note.Read(path)
		if err != nil {
			a.printer.Error("%s: %v", path, err)
			failed++
			continue
		}

		if !force && n.CurrentFor(note.CurrentAgentVersion) {
			a.printer.Line("%s: up to date, skipping", path)
			skipped++
			continue
		}

		suggested := overrideTags
		if suggested == nil {
			suggested, err = client.SuggestTags(ctx, path, n.Body())
			if err != nil {
				a.printer.Error("%s: %v", path, err)
				failed++
				continue
			}
		}
		tags := refiner.Refine(ctx, suggested)

		if dryRun {
			a.printer.Line("%s: would tag [%s]", path, strings.Join(tags, ", "))
			continue
		}

		prevTags := append([]string(nil), n.Tags...)
		n.SetTags(tags, note.CurrentAgentVersion)
		if err := n.Write(); err != nil {
			a.printer.Error("%s: %v", path, err)
			failed++
			continue
		}
		if err := a.coord.SyncNote(ctx, n.ID, tags, prevTags); err != nil {
			a.printer.Error("%s: %v", path, err)
			failed++
			continue
		}

		a.printer.Success("%s: [%s]", path, strings.Join(tags, ", "))
		tagged++
	}

	if !dryRun && tagged > 0 {
		if err := a.saveVectors(); err != nil {
			return err
		}
	}

	a.printer.Rule()
	a.printer.Line("%d tagged, %d skipped, %d failed", tagged, skipped, failed)

	// Batch tagging is best-effort: partial failure still exits zero as
	// long as at least one note went through.
	if failed > 0 && tagged == 0 {
		return fmt.Errorf("%d of %d notes failed", failed, len(paths))
	}
	return nil
}
