package note

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ScanError records a note that could not be read during a scan. Scans are
// best-effort: one unreadable note does not abort the rest.
type ScanError struct {
	Path string
	Err  error
}

// ScanResult is the outcome of scanning a notes directory.
type ScanResult struct {
	Notes  []*Note
	Errors []ScanError
}

// Scan walks dir recursively, reading every .md file in parallel. Hidden
// directories (dot-prefixed) are skipped. Notes come back sorted by path so
// repeated scans of the same tree are directly comparable.
func Scan(ctx context.Context, dir string, logger *slog.Logger) (*ScanResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".md") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &ScanResult{Notes: make([]*Note, 0, len(paths))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for _, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			n, err := Read(path)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn("skipping unreadable note",
					slog.String("path", path), slog.String("error", err.Error()))
				result.Errors = append(result.Errors, ScanError{Path: path, Err: err})
				return nil
			}
			result.Notes = append(result.Notes, n)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(result.Notes, func(i, j int) bool {
		return result.Notes[i].Path < result.Notes[j].Path
	})
	sort.Slice(result.Errors, func(i, j int) bool {
		return result.Errors[i].Path < result.Errors[j].Path
	})

	return result, nil
}
