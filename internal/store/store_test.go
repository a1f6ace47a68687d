package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"kanban-cli/internal/model"
	"kanban-cli/internal/settings"
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func sampleBoard() model.Board {
	d := model.Date{Year: 2024, Month: time.March, Day: 1}
	late := model.Date{Year: 2024, Month: time.June, Day: 30}
	sp := 3.0
	return model.Board{
		ID:       "b1",
		Title:    "Sprint",
		Settings: settings.Settings{settings.KeyDateTrigger: "@"},
		Lanes: []model.Lane{
			{ID: "l1", Title: "Todo", Items: []model.Item{
				{ID: "i1", RawText: "Buy milk @{2024-03-01} !{high}", CheckChar: " ",
					Metadata: model.Metadata{Date: &d, Priority: model.PriorityHigh}},
				{ID: "i2", RawText: "Write 100% of docs ~{work} #{3}", CheckChar: " ",
					Metadata: model.Metadata{Category: "work", StoryPoints: &sp}},
			}},
			{ID: "l2", Title: "Done", ShouldMarkItemsComplete: true, Items: []model.Item{
				{ID: "i3", RawText: "Ship @{2024-06-30}\nnotes", CheckChar: "x",
					Metadata: model.Metadata{Date: &late, Checked: true, BlockID: ""}},
			}},
		},
	}
}

func TestReindexAndQuery(t *testing.T) {
	ctx := context.Background()
	s := Store{Dir: t.TempDir(), Now: fixedClock(time.UnixMilli(1700000000000))}
	board := filepath.Join(t.TempDir(), "sprint.md")

	if err := s.Reindex(ctx, board, sampleBoard(), nil); err != nil {
		t.Fatalf("Reindex: %v", err)
	}

	all, err := s.Query(ctx, Filter{Board: board})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("rows = %d", len(all))
	}
	if !all[2].Path.Equal(model.Path{1, 0}) || all[2].Title != "Ship @{2024-06-30}" || !all[2].Checked {
		t.Fatalf("row 3 = %+v", all[2])
	}
	if all[1].StoryPoints == nil || *all[1].StoryPoints != 3 {
		t.Fatalf("story points = %v", all[1].StoryPoints)
	}

	due := model.Date{Year: 2024, Month: time.April, Day: 1}
	open := false
	tests := map[string]struct {
		f    Filter
		want []string
	}{
		"priority":   {Filter{Priority: model.PriorityHigh}, []string{"i-Todo-0"}},
		"category":   {Filter{Category: "work"}, []string{"i-Todo-1"}},
		"due before": {Filter{DueBefore: &due}, []string{"i-Todo-0"}},
		"unchecked":  {Filter{Checked: &open}, []string{"i-Todo-0", "i-Todo-1"}},
		"lane":       {Filter{Lane: "Done"}, []string{"i-Done-0"}},
		"text":       {Filter{Text: "100%"}, []string{"i-Todo-1"}},
		"wildcard":   {Filter{Text: "_"}, nil},
		"limit":      {Filter{Limit: 1}, []string{"i-Todo-0"}},
	}
	for name, tc := range tests {
		rows, err := s.Query(ctx, tc.f)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		var got []string
		for _, r := range rows {
			got = append(got, "i-"+r.Lane+"-"+strconv.Itoa(r.Path.Last()))
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("%s (-want +got):\n%s", name, diff)
		}
	}

	if _, err := s.Query(ctx, Filter{Priority: "urgent"}); !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}
}

func TestReindexReplacesPreviousRows(t *testing.T) {
	ctx := context.Background()
	s := Store{Dir: t.TempDir()}
	board := "board.md"

	b := sampleBoard()
	if err := s.Reindex(ctx, board, b, nil); err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	b.Lanes = b.Lanes[:1]
	b.Lanes[0].Items = b.Lanes[0].Items[:1]
	if err := s.Reindex(ctx, board, b, nil); err != nil {
		t.Fatalf("Reindex again: %v", err)
	}
	rows, err := s.Query(ctx, Filter{Board: board})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows after shrink = %d", len(rows))
	}

	boards, err := s.Boards(ctx)
	if err != nil {
		t.Fatalf("Boards: %v", err)
	}
	if len(boards) != 1 || boards[0].Lanes != 1 || boards[0].Items != 1 || boards[0].Title != "Sprint" {
		t.Fatalf("boards = %+v", boards)
	}

	if err := s.Forget(ctx, board); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	rows, _ = s.Query(ctx, Filter{})
	if len(rows) != 0 {
		t.Fatalf("rows after forget = %d", len(rows))
	}
}

func TestArchiveSink(t *testing.T) {
	ctx := context.Background()
	s := Store{Dir: t.TempDir(), Now: fixedClock(time.UnixMilli(1700000000000))}
	sink := ArchiveSink{Store: s, Board: "b.md"}

	lane := model.Lane{Title: "Done"}
	if err := sink.Archive(model.Item{RawText: "first", CheckChar: "x"}, lane); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if err := sink.Archive(model.Item{RawText: "second"}, lane); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	rows, err := s.Archived(ctx, "b.md")
	if err != nil {
		t.Fatalf("Archived: %v", err)
	}
	if len(rows) != 2 || rows[0].RawText != "first" || rows[1].CheckChar != " " || rows[0].Lane != "Done" {
		t.Fatalf("archived = %+v", rows)
	}
	if !rows[0].ArchivedAt.Equal(time.UnixMilli(1700000000000)) {
		t.Fatalf("archivedAt = %v", rows[0].ArchivedAt)
	}

	if err := sink.Retract([]model.Item{{RawText: "second"}}); err != nil {
		t.Fatalf("Retract: %v", err)
	}
	rows, _ = s.Archived(ctx, "b.md")
	if len(rows) != 1 || rows[0].RawText != "first" {
		t.Fatalf("archived after retract = %+v", rows)
	}

	// A reindex with the document's archive replaces the sink's rows.
	if err := s.Reindex(ctx, "b.md", model.Board{Title: "B"}, []model.Item{{RawText: "only", CheckChar: "x"}}); err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	rows, _ = s.Archived(ctx, "b.md")
	if len(rows) != 1 || rows[0].RawText != "only" {
		t.Fatalf("archived after reindex = %+v", rows)
	}
}

func TestEvents(t *testing.T) {
	ctx := context.Background()
	s := Store{Dir: t.TempDir(), Now: fixedClock(time.UnixMilli(1700000000000))}

	for i, typ := range []string{"item.add", "item.move", "lane.add"} {
		ev, err := s.AppendEvent(ctx, "b.md", typ, "item", "i1", map[string]any{"n": i})
		if err != nil {
			t.Fatalf("AppendEvent: %v", err)
		}
		if ev.Seq != int64(i+1) || ev.ID == "" {
			t.Fatalf("event = %+v", ev)
		}
	}
	if _, err := s.AppendEvent(ctx, "other.md", "item.add", "item", "x", nil); err != nil {
		t.Fatalf("AppendEvent other: %v", err)
	}
	if _, err := s.AppendEvent(ctx, "b.md", " ", "item", "x", nil); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}

	all, err := s.ReadEvents(ctx, "b.md", 0)
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	var types []string
	for _, ev := range all {
		types = append(types, ev.Type)
	}
	if diff := cmp.Diff([]string{"item.add", "item.move", "lane.add"}, types); diff != "" {
		t.Fatalf("types (-want +got):\n%s", diff)
	}
	if string(all[1].Payload) != `{"n":1}` {
		t.Fatalf("payload = %s", all[1].Payload)
	}

	last, err := s.ReadEvents(ctx, "b.md", 2)
	if err != nil {
		t.Fatalf("ReadEvents limit: %v", err)
	}
	if len(last) != 2 || last[0].Seq != 2 || last[1].Seq != 3 {
		t.Fatalf("last two = %+v", last)
	}
}

func TestEventsConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	s := Store{Dir: t.TempDir()}
	// Create the schema before the writers race on it.
	if _, err := s.AppendEvent(ctx, "b.md", "seed", "board", "b", nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	const n = 8
	var wg sync.WaitGroup
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AppendEvent(ctx, "b.md", "item.add", "item", "i", nil); err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrent append: %v", err)
	}
	evs, err := s.ReadEvents(ctx, "b.md", 0)
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(evs) != n+1 {
		t.Fatalf("events = %d", len(evs))
	}
	for i, ev := range evs {
		if ev.Seq != int64(i+1) {
			t.Fatalf("seq[%d] = %d", i, ev.Seq)
		}
	}
}

func TestConfigLoadSave(t *testing.T) {
	cfgDir := t.TempDir()
	t.Setenv("KANBAN_CONFIG_DIR", cfgDir)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig missing: %v", err)
	}
	if cfg.DefaultFile != "" || cfg.Settings != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}

	in := &GlobalConfig{
		DefaultFile: "/tmp/board.md",
		Format:      "text",
		Settings:    settings.Settings{settings.KeyPriorityTrigger: "?"},
		TUI:         &TUIConfig{LaneWidth: 30},
	}
	if err := SaveConfig(in); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	got, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Fatalf("config (-want +got):\n%s", diff)
	}
}

func TestConfigJSONCAndValidation(t *testing.T) {
	cfgDir := t.TempDir()
	t.Setenv("KANBAN_CONFIG_DIR", cfgDir)
	path := filepath.Join(cfgDir, "config.json")

	jsonc := "{\n  // where boards live\n  \"defaultFile\": \"b.md\",\n  \"settings\": {\"date-format\": \"DD/MM/YYYY\"},\n}\n"
	if err := os.WriteFile(path, []byte(jsonc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DefaultFile != "b.md" || settings.String(cfg.Settings, settings.KeyDateFormat) != "DD/MM/YYYY" {
		t.Fatalf("config = %+v", cfg)
	}

	if err := os.WriteFile(path, []byte(`{"settings": {"date-trigger": ""}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = LoadConfig()
	var ve *settings.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
