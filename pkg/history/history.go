// Package history keeps a durable local cache of terminal upload
// sessions, so past synchronizations are listable without the server.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kickstorm/workspacectl/pkg/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_history (
	session_id   TEXT PRIMARY KEY,
	status       TEXT NOT NULL,
	session_type TEXT NOT NULL DEFAULT 'zip',
	file_count   INTEGER NOT NULL DEFAULT 0,
	total_size   INTEGER NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL,
	completed_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_session_history_completed
	ON session_history (completed_at DESC);
`

// Store is a SQLite-backed history cache. Records are keyed by session
// id; re-recording a session overwrites its row.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the history database at path.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: opening %s: %w", path, err)
	}
	// SQLite serializes writers; a single connection avoids lock
	// contention errors from concurrent recording.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a terminal session. Non-terminal sessions and
// placeholders are ignored: in-flight state belongs to the session
// store, not the durable history.
func (s *Store) Record(sess session.Session) error {
	if sess.Placeholder || !sess.Status.Terminal() {
		return nil
	}

	completed := sess.UpdatedAt
	if sess.FinalizedAt != nil {
		completed = *sess.FinalizedAt
	}

	_, err := s.db.Exec(`
INSERT INTO session_history
	(session_id, status, session_type, file_count, total_size, error, created_at, completed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
	status = excluded.status,
	file_count = excluded.file_count,
	total_size = excluded.total_size,
	error = excluded.error,
	completed_at = excluded.completed_at`,
		sess.ID, string(sess.Status), string(sess.Type), sess.FileCount, sess.TotalSize,
		sess.Error, sess.CreatedAt.UTC().Format(time.RFC3339), completed.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("history: recording session %s: %w", sess.ID, err)
	}
	return nil
}

// RecordSessions records every terminal session in the slice.
func (s *Store) RecordSessions(sessions []session.Session) error {
	for _, sess := range sessions {
		if err := s.Record(sess); err != nil {
			return err
		}
	}
	return nil
}

// Entries returns the most recent history records, newest first.
// A non-positive limit returns everything.
func (s *Store) Entries(limit int) ([]session.HistoryEntry, error) {
	query := `
SELECT status, file_count, error, created_at, completed_at
FROM session_history
ORDER BY completed_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: listing entries: %w", err)
	}
	defer rows.Close()

	var entries []session.HistoryEntry
	for rows.Next() {
		var entry session.HistoryEntry
		var status, created, completed string
		if err := rows.Scan(&status, &entry.FileCount, &entry.Error, &created, &completed); err != nil {
			return nil, fmt.Errorf("history: scanning entry: %w", err)
		}
		entry.Status = session.Status(status)
		entry.CreatedAt, _ = time.Parse(time.RFC3339, created)
		entry.CompletedAt, _ = time.Parse(time.RFC3339, completed)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: reading entries: %w", err)
	}
	return entries, nil
}
