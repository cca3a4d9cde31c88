package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/tagvault/internal/note"
	"github.com/Aman-CERP/tagvault/internal/validate"
)

func newApplyCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "apply <note> <tag>...",
		Short: "Apply explicit tags to a note",
		Long: `Apply writes the given tags into the note's frontmatter and updates
the stores, replacing whatever tags the note had. Tags are normalized
to lowercase kebab-case and validated; no suggestion service is
involved.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd.Context(), args[0], args[1:], dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would change without writing")
	return cmd
}

func runApply(ctx context.Context, path string, rawTags []string, dryRun bool) error {
	tags := make([]string, 0, len(rawTags))
	seen := make(map[string]struct{}, len(rawTags))
	for _, raw := range rawTags {
		tag := validate.Normalize(raw)
		if err := validate.CheckTag(tag); err != nil {
			return err
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	n, err := note.Read(path)
	if err != nil {
		return err
	}

	if dryRun {
		a.printer.Line("%s: would tag [%s]", path, strings.Join(tags, ", "))
		return nil
	}

	prevTags := append([]string(nil), n.Tags...)
	n.SetTags(tags, note.CurrentAgentVersion)
	if err := n.Write(); err != nil {
		return err
	}
	if err := a.coord.SyncNote(ctx, n.ID, tags, prevTags); err != nil {
		return err
	}
	if err := a.saveVectors(); err != nil {
		return err
	}

	a.printer.Success("%s: [%s]", path, strings.Join(tags, ", "))
	return nil
}
