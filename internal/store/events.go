package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type EventV1 struct {
	ID         string          `json:"id"`
	Seq        int64           `json:"seq"`
	Board      string          `json:"board"`
	Type       string          `json:"type"`
	EntityKind string          `json:"entityKind"`
	EntityID   string          `json:"entityId"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	IssuedAt   time.Time       `json:"issuedAt"`
}

var ErrInvalidEvent = errors.New("invalid event")

// AppendEvent records a mutation. Seq is assigned per board, starting at 1.
func (s Store) AppendEvent(ctx context.Context, boardPath, typ, entityKind, entityID string, payload any) (EventV1, error) {
	typ = strings.TrimSpace(typ)
	if typ == "" || strings.TrimSpace(entityKind) == "" {
		return EventV1{}, ErrInvalidEvent
	}
	raw := []byte("null")
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return EventV1{}, err
		}
		raw = b
	}

	db, err := s.openSQLite(ctx)
	if err != nil {
		return EventV1{}, err
	}
	defer db.Close()

	key := BoardKey(boardPath)
	ev := EventV1{
		ID:         uuid.NewString(),
		Board:      key,
		Type:       typ,
		EntityKind: entityKind,
		EntityID:   entityID,
		Payload:    raw,
		IssuedAt:   s.now(),
	}
	// One statement so the seq read happens under the write lock.
	if err := db.QueryRowContext(ctx, `INSERT INTO events(
		event_id, seq, board_path, type, entity_kind, entity_id, payload_json, issued_at_unixms
	) VALUES(?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM events WHERE board_path = ?), ?, ?, ?, ?, ?, ?)
	RETURNING seq`,
		ev.ID, key, ev.Board, ev.Type, ev.EntityKind, ev.EntityID, string(ev.Payload), ev.IssuedAt.UnixMilli(),
	).Scan(&ev.Seq); err != nil {
		return EventV1{}, err
	}
	return ev, nil
}

// ReadEvents returns a board's events oldest first. limit <= 0 returns all of them;
// otherwise the newest limit events are returned, still oldest first.
func (s Store) ReadEvents(ctx context.Context, boardPath string, limit int) ([]EventV1, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	q := `SELECT event_id, seq, board_path, type, entity_kind, entity_id, payload_json, issued_at_unixms
		FROM events WHERE board_path = ? ORDER BY seq DESC`
	args := []any{BoardKey(boardPath)}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []EventV1{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func scanEvent(rows *sql.Rows) (EventV1, error) {
	var (
		ev       EventV1
		payload  string
		issuedMs int64
	)
	if err := rows.Scan(&ev.ID, &ev.Seq, &ev.Board, &ev.Type, &ev.EntityKind, &ev.EntityID, &payload, &issuedMs); err != nil {
		return EventV1{}, err
	}
	ev.Payload = json.RawMessage(payload)
	ev.IssuedAt = time.UnixMilli(issuedMs).UTC()
	return ev, nil
}
