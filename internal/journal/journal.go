// Package journal persists semantic events to SQLite so past sessions can
// be queried with notify history.
package journal

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/grovetools/notify/errors"
	"github.com/grovetools/notify/pkg/events"
)

const ddl = `
CREATE TABLE IF NOT EXISTS events (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  TEXT    NOT NULL,
    kind        TEXT    NOT NULL,
    path        TEXT    NOT NULL,
    from_path   TEXT    NOT NULL DEFAULT '',
    is_dir      INTEGER NOT NULL DEFAULT 0,
    observed_at TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_session ON events (session_id, id);
`

// Entry is one journaled event.
type Entry struct {
	ID      int64        `json:"id"`
	Session string       `json:"session"`
	Event   events.Event `json:"event"`
}

// Filter narrows Recent.
type Filter struct {
	Limit   int
	Kinds   []events.Kind
	Session string
	// PathPrefix matches either path or from_path.
	PathPrefix string
}

// Journal is a SQLite-backed event log. It is safe for concurrent use.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal at path. ":memory:" is accepted.
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.JournalFailed("create directory", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.JournalFailed("open", err)
	}
	// One writer at a time; avoids "database is locked".
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{`PRAGMA journal_mode = WAL`, `PRAGMA synchronous = NORMAL`, ddl} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, errors.JournalFailed("init", err).WithDetail("path", path)
		}
	}
	return &Journal{db: db}, nil
}

// Append records ev for session.
func (j *Journal) Append(ctx context.Context, session string, ev events.Event) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO events (session_id, kind, path, from_path, is_dir, observed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		session,
		ev.Kind,
		ev.Path,
		ev.FromPath,
		ev.Stats.IsDir,
		ev.Stats.ObservedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return errors.JournalFailed("append", err)
	}
	return nil
}

// Recent returns the newest matching entries, oldest first.
func (j *Journal) Recent(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if len(f.Kinds) > 0 {
		marks := make([]string, len(f.Kinds))
		for i, k := range f.Kinds {
			marks[i] = "?"
			args = append(args, string(k))
		}
		where = append(where, "kind IN ("+strings.Join(marks, ", ")+")")
	}
	if f.Session != "" {
		where = append(where, "session_id = ?")
		args = append(args, f.Session)
	}
	if f.PathPrefix != "" {
		// instr counts characters like the stored TEXT does, so multi-byte
		// prefixes match.
		where = append(where, "(instr(path, ?) = 1 OR instr(from_path, ?) = 1)")
		args = append(args, f.PathPrefix, f.PathPrefix)
	}

	query := `SELECT id, session_id, kind, path, from_path, is_dir, observed_at FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.JournalFailed("query", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			observed string
		)
		if err := rows.Scan(&e.ID, &e.Session, &e.Event.Kind, &e.Event.Path, &e.Event.FromPath, &e.Event.Stats.IsDir, &observed); err != nil {
			return nil, errors.JournalFailed("scan", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, observed); err == nil {
			e.Event.Stats.ObservedAt = ts
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.JournalFailed("query", err)
	}

	for i, k := 0, len(out)-1; i < k; i, k = i+1, k-1 {
		out[i], out[k] = out[k], out[i]
	}
	return out, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if err := j.db.Close(); err != nil {
		return errors.JournalFailed("close", err)
	}
	return nil
}
