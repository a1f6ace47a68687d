package store

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"
)

func (s Store) openSQLite(ctx context.Context) (*sql.DB, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", s.sqlitePath())
	if err != nil {
		return nil, err
	}
	// WAL allows the TUI and a CLI invocation to share the index; busy_timeout absorbs short lock waits.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrateSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS boards (
			path TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			settings_json TEXT NOT NULL,
			indexed_at_unixms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS lanes (
			board_path TEXT NOT NULL REFERENCES boards(path) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			title TEXT NOT NULL,
			marks_complete INTEGER NOT NULL,
			PRIMARY KEY(board_path, idx)
		);`,
		`CREATE TABLE IF NOT EXISTS items (
			board_path TEXT NOT NULL REFERENCES boards(path) ON DELETE CASCADE,
			lane_idx INTEGER NOT NULL,
			idx INTEGER NOT NULL,
			lane_title TEXT NOT NULL,
			title TEXT NOT NULL,
			raw_text TEXT NOT NULL,
			checked INTEGER NOT NULL,
			date TEXT,
			time TEXT,
			priority TEXT,
			story_points REAL,
			category TEXT,
			block_id TEXT,
			PRIMARY KEY(board_path, lane_idx, idx)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_items_date ON items(date);`,
		`CREATE INDEX IF NOT EXISTS idx_items_category ON items(category);`,
		`CREATE TABLE IF NOT EXISTS archive (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			board_path TEXT NOT NULL,
			lane_title TEXT NOT NULL,
			raw_text TEXT NOT NULL,
			check_char TEXT NOT NULL,
			archived_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_archive_board ON archive(board_path, id);`,
		`CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			seq INTEGER NOT NULL,
			board_path TEXT NOT NULL,
			type TEXT NOT NULL,
			entity_kind TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			payload_json TEXT NOT NULL,
			issued_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_board ON events(board_path, seq);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
