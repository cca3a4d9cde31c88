package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/tagvault/internal/note"
	"github.com/Aman-CERP/tagvault/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the notes directory and keep the stores in sync",
		Long: `Watch follows the notes directory for markdown changes and mirrors
every edit into the stores: new or changed notes have their frontmatter
tags recorded, deleted notes have their usage released. Runs until
interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context())
		},
	}
	return cmd
}

func runWatch(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	w, err := watcher.NewNoteWatcher(watcher.DefaultOptions(), a.logger)
	if err != nil {
		return err
	}
	defer w.Stop()

	started := make(chan error, 1)
	go func() {
		started <- w.Start(ctx, a.cfg.Notes.Dir)
	}()

	a.printer.Header("watching " + a.cfg.Notes.Dir)

	for {
		select {
		case <-ctx.Done():
			a.printer.Line("shutting down")
			return nil
		case err := <-started:
			if err != nil {
				return err
			}
		case err := <-w.Errors():
			a.printer.Warning("watch error: %v", err)
		case batch := <-w.Batches():
			if err := a.applyBatch(ctx, batch); err != nil {
				a.printer.Error("sync failed: %v", err)
			}
		}
	}
}

// applyBatch mirrors a debounced batch of file events into the stores.
func (a *app) applyBatch(ctx context.Context, batch []watcher.NoteEvent) error {
	changed := false
	for _, event := range batch {
		if err := a.applyEvent(ctx, event); err != nil {
			a.printer.Warning("%s: %v", event.Path, err)
			continue
		}
		changed = true
	}
	if changed {
		return a.saveVectors()
	}
	return nil
}

func (a *app) applyEvent(ctx context.Context, event watcher.NoteEvent) error {
	switch event.Operation {
	case watcher.OpDelete:
		noteID := note.SlugFromPath(event.Path)
		prevTags, err := a.ledger.TagsForNote(ctx, noteID)
		if err != nil {
			return err
		}
		if len(prevTags) == 0 {
			return nil
		}
		a.printer.Line("%s deleted, releasing %d tags", event.Path, len(prevTags))
		return a.coord.SyncNote(ctx, noteID, nil, prevTags)
	default:
		n, err := note.Read(event.Path)
		if err != nil {
			return err
		}
		prevTags, err := a.ledger.TagsForNote(ctx, n.ID)
		if err != nil {
			return err
		}
		a.printer.Line("%s %s, %d tags", event.Path, event.Operation, len(n.Tags))
		return a.coord.SyncNote(ctx, n.ID, n.Tags, prevTags)
	}
}
