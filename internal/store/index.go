package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"kanban-cli/internal/model"
)

// Reindex replaces everything the index holds for boardPath with board.
// A nil archive leaves the board's archive rows untouched.
func (s Store) Reindex(ctx context.Context, boardPath string, b model.Board, archive []model.Item) error {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	key := BoardKey(boardPath)
	settingsJSON, err := json.Marshal(b.Settings)
	if err != nil {
		return err
	}
	now := s.now().UnixMilli()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Cascades to lanes and items.
	if _, err := tx.ExecContext(ctx, `DELETE FROM boards WHERE path = ?`, key); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO boards(path, title, settings_json, indexed_at_unixms) VALUES(?, ?, ?, ?)`,
		key, b.Title, string(settingsJSON), now,
	); err != nil {
		return err
	}

	laneStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO lanes(board_path, idx, title, marks_complete) VALUES(?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer laneStmt.Close()
	itemStmt, err := tx.PrepareContext(ctx, `INSERT INTO items(
		board_path, lane_idx, idx, lane_title, title, raw_text, checked,
		date, time, priority, story_points, category, block_id
	) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer itemStmt.Close()

	for li, l := range b.Lanes {
		if _, err := laneStmt.ExecContext(ctx, key, li, l.Title, boolInt(l.ShouldMarkItemsComplete)); err != nil {
			return err
		}
		for ii, it := range l.Items {
			md := it.Metadata
			var date, clock sql.NullString
			if md.Date != nil {
				date = nullString(md.Date.String())
			}
			if md.Time != nil {
				clock = nullString(md.Time.String())
			}
			var points sql.NullFloat64
			if md.StoryPoints != nil {
				points = sql.NullFloat64{Float64: *md.StoryPoints, Valid: true}
			}
			if _, err := itemStmt.ExecContext(ctx,
				key, li, ii, l.Title, it.Title(), it.RawText, boolInt(it.Checked()),
				date, clock, nullString(string(md.Priority)), points, nullString(md.Category), nullString(md.BlockID),
			); err != nil {
				return err
			}
		}
	}

	if archive != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM archive WHERE board_path = ?`, key); err != nil {
			return err
		}
		for _, it := range archive {
			if err := insertArchive(ctx, tx, key, "", it, now); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// Forget drops a board and its archive from the index.
func (s Store) Forget(ctx context.Context, boardPath string) error {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	key := BoardKey(boardPath)
	if _, err := db.ExecContext(ctx, `DELETE FROM boards WHERE path = ?`, key); err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `DELETE FROM archive WHERE board_path = ?`, key)
	return err
}

type BoardRow struct {
	Path      string `json:"path"`
	Title     string `json:"title"`
	Lanes     int    `json:"lanes"`
	Items     int    `json:"items"`
	IndexedAt int64  `json:"indexedAtUnixMs"`
}

func (s Store) Boards(ctx context.Context) ([]BoardRow, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	rows, err := db.QueryContext(ctx, `SELECT b.path, b.title, b.indexed_at_unixms,
		(SELECT COUNT(*) FROM lanes l WHERE l.board_path = b.path),
		(SELECT COUNT(*) FROM items i WHERE i.board_path = b.path)
		FROM boards b ORDER BY b.path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []BoardRow{}
	for rows.Next() {
		var r BoardRow
		if err := rows.Scan(&r.Path, &r.Title, &r.IndexedAt, &r.Lanes, &r.Items); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Filter narrows Query. Zero fields match everything.
type Filter struct {
	Board     string
	Lane      string
	Priority  model.Priority
	Category  string
	DueBefore *model.Date
	Checked   *bool
	Text      string
	Limit     int
}

type ItemRow struct {
	Board       string         `json:"board"`
	Lane        string         `json:"lane"`
	Path        model.Path     `json:"path"`
	Title       string         `json:"title"`
	RawText     string         `json:"rawText"`
	Checked     bool           `json:"checked"`
	Date        string         `json:"date,omitempty"`
	Time        string         `json:"time,omitempty"`
	Priority    model.Priority `json:"priority,omitempty"`
	StoryPoints *float64       `json:"storyPoints,omitempty"`
	Category    string         `json:"category,omitempty"`
	BlockID     string         `json:"blockId,omitempty"`
}

var ErrInvalidFilter = errors.New("invalid filter")

func (s Store) Query(ctx context.Context, f Filter) ([]ItemRow, error) {
	if f.Priority != "" {
		if _, ok := model.ParsePriority(string(f.Priority)); !ok {
			return nil, fmt.Errorf("%w: priority %q", ErrInvalidFilter, f.Priority)
		}
	}
	if f.Limit < 0 {
		return nil, fmt.Errorf("%w: negative limit", ErrInvalidFilter)
	}

	var where []string
	var args []any
	if f.Board != "" {
		where = append(where, "board_path = ?")
		args = append(args, BoardKey(f.Board))
	}
	if f.Lane != "" {
		where = append(where, "lane_title = ?")
		args = append(args, f.Lane)
	}
	if f.Priority != "" {
		where = append(where, "priority = ?")
		args = append(args, string(f.Priority))
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.DueBefore != nil {
		// ISO dates compare correctly as text.
		where = append(where, "date IS NOT NULL AND date < ?")
		args = append(args, f.DueBefore.String())
	}
	if f.Checked != nil {
		where = append(where, "checked = ?")
		args = append(args, boolInt(*f.Checked))
	}
	if t := strings.TrimSpace(f.Text); t != "" {
		where = append(where, "raw_text LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(t)+"%")
	}

	q := `SELECT board_path, lane_title, lane_idx, idx, title, raw_text, checked,
		date, time, priority, story_points, category, block_id FROM items`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY board_path, lane_idx, idx"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ItemRow{}
	for rows.Next() {
		var (
			r                               ItemRow
			laneIdx, idx, checked           int
			date, clock, prio, cat, blockID sql.NullString
			points                          sql.NullFloat64
		)
		if err := rows.Scan(&r.Board, &r.Lane, &laneIdx, &idx, &r.Title, &r.RawText, &checked,
			&date, &clock, &prio, &points, &cat, &blockID); err != nil {
			return nil, err
		}
		r.Path = model.Path{laneIdx, idx}
		r.Checked = checked != 0
		r.Date = date.String
		r.Time = clock.String
		r.Priority = model.Priority(prio.String)
		r.Category = cat.String
		r.BlockID = blockID.String
		if points.Valid {
			v := points.Float64
			r.StoryPoints = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
