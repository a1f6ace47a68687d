package store

import (
	"context"
	"database/sql"
	"time"

	"kanban-cli/internal/model"
)

// ArchiveSink writes archived cards to the index. It satisfies state.ArchiveSink.
type ArchiveSink struct {
	Store Store
	Board string
	Ctx   context.Context
}

func (a ArchiveSink) Archive(item model.Item, from model.Lane) error {
	ctx := a.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := a.Store.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	return insertArchive(ctx, db, BoardKey(a.Board), from.Title, item, a.Store.now().UnixMilli())
}

// Retract deletes the newest archive row of each item, matched by its text.
func (a ArchiveSink) Retract(items []model.Item) error {
	ctx := a.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := a.Store.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	key := BoardKey(a.Board)
	for _, it := range items {
		if _, err := db.ExecContext(ctx,
			`DELETE FROM archive WHERE id = (SELECT MAX(id) FROM archive WHERE board_path = ? AND raw_text = ?)`,
			key, it.RawText,
		); err != nil {
			return err
		}
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertArchive(ctx context.Context, db execer, key, lane string, it model.Item, atMs int64) error {
	check := it.CheckChar
	if check == "" {
		check = " "
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO archive(board_path, lane_title, raw_text, check_char, archived_at_unixms) VALUES(?, ?, ?, ?, ?)`,
		key, lane, it.RawText, check, atMs,
	)
	return err
}

type ArchivedRow struct {
	ID         int64     `json:"id"`
	Board      string    `json:"board"`
	Lane       string    `json:"lane,omitempty"`
	RawText    string    `json:"rawText"`
	CheckChar  string    `json:"checkChar"`
	ArchivedAt time.Time `json:"archivedAt"`
}

// Archived lists a board's archived cards in archive order.
func (s Store) Archived(ctx context.Context, boardPath string) ([]ArchivedRow, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	rows, err := db.QueryContext(ctx,
		`SELECT id, board_path, lane_title, raw_text, check_char, archived_at_unixms
		FROM archive WHERE board_path = ? ORDER BY id`, BoardKey(boardPath))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ArchivedRow{}
	for rows.Next() {
		var r ArchivedRow
		var ms int64
		if err := rows.Scan(&r.ID, &r.Board, &r.Lane, &r.RawText, &r.CheckChar, &ms); err != nil {
			return nil, err
		}
		r.ArchivedAt = time.UnixMilli(ms).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
