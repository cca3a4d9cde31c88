package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	_ "modernc.org/sqlite"
)

// UsageLedger tracks which notes use which tags, backed by SQLite.
//
// The only table is the (tag, note_id) association; usage counts are always
// derived with COUNT(*) so a tag's count and its note set cannot disagree.
// A tag that no note uses simply has no rows.
type UsageLedger struct {
	mu sync.Mutex
	db *sql.DB
}

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS tag_notes (
	tag     TEXT NOT NULL,
	note_id TEXT NOT NULL,
	PRIMARY KEY (tag, note_id)
);
CREATE INDEX IF NOT EXISTS idx_tag_notes_note ON tag_notes(note_id);
`

// OpenUsageLedger opens (creating if needed) the ledger database at path.
// Pass ":memory:" for an ephemeral ledger.
func OpenUsageLedger(path string) (*UsageLedger, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	// modernc.org/sqlite is not safe for concurrent writers on one file
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping ledger: %w", err)
	}

	if _, err := db.Exec(ledgerSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}

	return &UsageLedger{db: db}, nil
}

// RecordUse records that noteID uses tag. Recording the same pair twice is
// a no-op.
func (l *UsageLedger) RecordUse(ctx context.Context, tag, noteID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO tag_notes (tag, note_id) VALUES (?, ?)`, tag, noteID)
	if err != nil {
		return fmt.Errorf("record use of %q: %w", tag, err)
	}
	return nil
}

// ReleaseUse removes the association between noteID and tag. Releasing an
// absent pair is a no-op. When the last note releases a tag, the tag has no
// remaining state in the ledger.
func (l *UsageLedger) ReleaseUse(ctx context.Context, tag, noteID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.ExecContext(ctx,
		`DELETE FROM tag_notes WHERE tag = ? AND note_id = ?`, tag, noteID)
	if err != nil {
		return fmt.Errorf("release use of %q: %w", tag, err)
	}
	return nil
}

// Get returns the usage record for tag. A tag no note uses yields a record
// with Count 0 and no notes.
func (l *UsageLedger) Get(ctx context.Context, tag string) (TagUsage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.db.QueryContext(ctx,
		`SELECT note_id FROM tag_notes WHERE tag = ? ORDER BY rowid`, tag)
	if err != nil {
		return TagUsage{}, fmt.Errorf("query usage of %q: %w", tag, err)
	}
	defer func() { _ = rows.Close() }()

	usage := TagUsage{Tag: tag}
	for rows.Next() {
		var noteID string
		if err := rows.Scan(&noteID); err != nil {
			return TagUsage{}, fmt.Errorf("scan usage of %q: %w", tag, err)
		}
		usage.Notes = append(usage.Notes, noteID)
	}
	if err := rows.Err(); err != nil {
		return TagUsage{}, fmt.Errorf("iterate usage of %q: %w", tag, err)
	}

	usage.Count = len(usage.Notes)
	return usage, nil
}

// Count returns how many notes use tag.
func (l *UsageLedger) Count(ctx context.Context, tag string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var count int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tag_notes WHERE tag = ?`, tag).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count usage of %q: %w", tag, err)
	}
	return count, nil
}

// AllTags returns every tag at least one note uses, sorted.
func (l *UsageLedger) AllTags(ctx context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.db.QueryContext(ctx,
		`SELECT DISTINCT tag FROM tag_notes ORDER BY tag`)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// UsageCounts returns a map from tag to the number of notes using it, for
// every tag in use.
func (l *UsageLedger) UsageCounts(ctx context.Context) (map[string]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.db.QueryContext(ctx,
		`SELECT tag, COUNT(*) FROM tag_notes GROUP BY tag`)
	if err != nil {
		return nil, fmt.Errorf("query usage counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var tag string
		var count int
		if err := rows.Scan(&tag, &count); err != nil {
			return nil, fmt.Errorf("scan usage count: %w", err)
		}
		counts[tag] = count
	}
	return counts, rows.Err()
}

// TagsForNote returns every tag noteID uses, sorted.
func (l *UsageLedger) TagsForNote(ctx context.Context, noteID string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.db.QueryContext(ctx,
		`SELECT tag FROM tag_notes WHERE note_id = ?`, noteID)
	if err != nil {
		return nil, fmt.Errorf("query tags for note %q: %w", noteID, err)
	}
	defer func() { _ = rows.Close() }()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scan tag for note %q: %w", noteID, err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(tags)
	return tags, nil
}

// NoteCount returns how many distinct notes appear in the ledger.
func (l *UsageLedger) NoteCount(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var count int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT note_id) FROM tag_notes`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return count, nil
}

// Flush removes every association from the ledger.
func (l *UsageLedger) Flush(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.db.ExecContext(ctx, `DELETE FROM tag_notes`); err != nil {
		return fmt.Errorf("flush ledger: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (l *UsageLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}
