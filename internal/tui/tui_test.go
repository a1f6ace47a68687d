package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"kanban-cli/internal/codec"
	"kanban-cli/internal/model"
	"kanban-cli/internal/settings"
	"kanban-cli/internal/state"
)

type fixture struct {
	m       appModel
	c       *state.Container
	archive *state.ArchiveList
	changes []Change
}

// newFixture builds a board whose lanes hold the given card texts. A lane title ending
// in "!" marks its cards complete on entry.
func newFixture(t *testing.T, lanes ...[]string) *fixture {
	t.Helper()
	cd, err := codec.FromSettings(nil)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	ids := model.NewGenerator()
	b := model.Board{ID: ids.NewID(model.KindBoard), Title: "Demo"}
	names := []string{"Todo", "Doing", "Done!"}
	for i, texts := range lanes {
		title := names[i%len(names)]
		l := model.Lane{ID: ids.NewID(model.KindLane), Title: strings.TrimSuffix(title, "!"), ShouldMarkItemsComplete: strings.HasSuffix(title, "!"), Items: []model.Item{}}
		for _, raw := range texts {
			l.Items = append(l.Items, cd.NewItem(ids, raw, false))
		}
		b.Lanes = append(b.Lanes, l)
	}
	f := &fixture{c: state.New(b), archive: state.NewArchiveList(nil)}
	f.m = newModel(Options{
		Container: f.c,
		Codec:     cd,
		IDs:       ids,
		Archive:   f.archive,
		Save: func(ch Change) error {
			f.changes = append(f.changes, ch)
			return nil
		},
	})
	mm, _ := f.m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	f.m = mm.(appModel)
	return f
}

func (f *fixture) press(keys ...string) {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		mm, _ := f.m.Update(msg)
		f.m = mm.(appModel)
	}
}

func laneTitles(l model.Lane) []string {
	out := make([]string, 0, len(l.Items))
	for _, it := range l.Items {
		out = append(out, it.Title())
	}
	return out
}

func TestNavigationClampsToBoard(t *testing.T) {
	f := newFixture(t, []string{"a", "b"}, []string{"c"}, nil)

	f.press("j", "j", "j")
	if f.m.sel.Lane != 0 || f.m.sel.Item != 1 {
		t.Fatalf("expected selection 0/1 after moving past the end, got %d/%d", f.m.sel.Lane, f.m.sel.Item)
	}
	f.press("l")
	if f.m.sel.Lane != 1 || f.m.sel.Item != 0 {
		t.Fatalf("expected selection 1/0 in the shorter lane, got %d/%d", f.m.sel.Lane, f.m.sel.Item)
	}
	f.press("l", "l", "l")
	if f.m.sel.Lane != 2 || f.m.sel.ItemID != "" {
		t.Fatalf("expected the empty last lane with no card, got lane %d id %q", f.m.sel.Lane, f.m.sel.ItemID)
	}
	f.press("h", "h", "h", "h")
	if f.m.sel.Lane != 0 {
		t.Fatalf("expected the first lane, got %d", f.m.sel.Lane)
	}
}

func TestMoveCardToLaneFollowsSelectionAndCompletes(t *testing.T) {
	f := newFixture(t, []string{"a", "b"}, []string{"c"}, nil)
	f.press("j", "L")

	b := f.c.CurrentTree()
	if got := laneTitles(b.Lanes[1]); strings.Join(got, ",") != "b,c" {
		t.Fatalf("expected b at the top of Doing, got %v", got)
	}
	if f.m.sel.Lane != 1 || f.m.sel.Item != 0 {
		t.Fatalf("expected selection to follow the card to 1/0, got %d/%d", f.m.sel.Lane, f.m.sel.Item)
	}

	f.press("L")
	b = f.c.CurrentTree()
	if len(b.Lanes[2].Items) != 1 || !b.Lanes[2].Items[0].Checked() {
		t.Fatalf("expected the card checked once in Done, got %+v", b.Lanes[2].Items)
	}
	if len(f.changes) != 2 || f.changes[0].Type != "item.move-to-lane" {
		t.Fatalf("expected two saved moves, got %+v", f.changes)
	}
}

func TestReorderWithinLane(t *testing.T) {
	f := newFixture(t, []string{"a", "b", "c"})

	f.press("J")
	if got := strings.Join(laneTitles(f.c.CurrentTree().Lanes[0]), ","); got != "b,a,c" {
		t.Fatalf("after J: %s", got)
	}
	f.press("J", "J")
	if got := strings.Join(laneTitles(f.c.CurrentTree().Lanes[0]), ","); got != "b,c,a" {
		t.Fatalf("J at the bottom must be a no-op: %s", got)
	}
	f.press("t")
	if got := strings.Join(laneTitles(f.c.CurrentTree().Lanes[0]), ","); got != "a,b,c" {
		t.Fatalf("after t: %s", got)
	}
	f.press("K")
	if f.m.sel.Item != 0 {
		t.Fatalf("K at the top must keep the selection, got %d", f.m.sel.Item)
	}
	f.press("b")
	if got := strings.Join(laneTitles(f.c.CurrentTree().Lanes[0]), ","); got != "b,c,a" {
		t.Fatalf("after b: %s", got)
	}
}

func TestNewCardParsesMetadata(t *testing.T) {
	f := newFixture(t, []string{"a"})
	f.press("n", "Ship it @{2024-05-01} !{high}", "enter")

	l := f.c.CurrentTree().Lanes[0]
	if len(l.Items) != 2 {
		t.Fatalf("expected two cards, got %d", len(l.Items))
	}
	it := l.Items[1]
	if it.Metadata.Date == nil || it.Metadata.Date.String() != "2024-05-01" || it.Metadata.Priority != model.PriorityHigh {
		t.Fatalf("expected date and priority on the new card, got %+v", it.Metadata)
	}
	if f.m.sel.ItemID != it.ID {
		t.Fatalf("expected the new card selected")
	}
	if f.m.mode != modeBoard {
		t.Fatalf("expected board mode after enter")
	}
}

func TestEscCancelsInput(t *testing.T) {
	f := newFixture(t, []string{"a"})
	f.press("e", "zzz", "esc")
	if got := f.c.CurrentTree().Lanes[0].Items[0].RawText; got != "a" {
		t.Fatalf("esc must not edit the card, got %q", got)
	}
	if len(f.changes) != 0 {
		t.Fatalf("expected no saves, got %+v", f.changes)
	}
}

func TestEditKeepsMultilineText(t *testing.T) {
	f := newFixture(t, []string{"first\nsecond"})
	f.press("e")
	if got := f.m.input.Value(); got != `first\nsecond` {
		t.Fatalf("expected escaped newline in the input, got %q", got)
	}
	f.press(" third", "enter")
	if got := f.c.CurrentTree().Lanes[0].Items[0].RawText; got != "first\nsecond third" {
		t.Fatalf("unexpected raw text %q", got)
	}
}

func TestDeleteAsksFirst(t *testing.T) {
	f := newFixture(t, []string{"a", "b"})
	f.press("d", "n")
	if len(f.c.CurrentTree().Lanes[0].Items) != 2 {
		t.Fatalf("n must cancel the delete")
	}
	f.press("d", "y")
	if got := laneTitles(f.c.CurrentTree().Lanes[0]); len(got) != 1 || got[0] != "b" {
		t.Fatalf("expected only b left, got %v", got)
	}
	if f.m.sel.Item != 0 || f.m.sel.ItemID == "" {
		t.Fatalf("expected selection on the remaining card")
	}
}

func TestArchiveSendsCardToSink(t *testing.T) {
	f := newFixture(t, []string{"a", "b"}, []string{"c"})
	f.press("a")
	if got := f.archive.Items(); len(got) != 1 || got[0].Title() != "a" {
		t.Fatalf("expected a archived, got %+v", got)
	}
	f.press("l", "A", "y")
	if got := f.archive.Items(); len(got) != 2 {
		t.Fatalf("expected the Doing lane archived too, got %d", len(got))
	}
	if len(f.c.CurrentTree().Lanes[1].Items) != 0 {
		t.Fatalf("expected Doing to be empty")
	}
	last := f.changes[len(f.changes)-1]
	if last.Type != "lane.archive-items" || last.Payload["archived"] != 1 {
		t.Fatalf("unexpected change %+v", last)
	}
}

func TestToggleDuplicateSplit(t *testing.T) {
	f := newFixture(t, []string{"one\ntwo"})
	f.press("x")
	if !f.c.CurrentTree().Lanes[0].Items[0].Checked() {
		t.Fatalf("x must check the card")
	}
	f.press("y")
	l := f.c.CurrentTree().Lanes[0]
	if len(l.Items) != 2 || l.Items[0].ID == l.Items[1].ID {
		t.Fatalf("expected a copy with a new id, got %+v", l.Items)
	}
	if f.m.sel.Item != 1 {
		t.Fatalf("expected the copy selected, got %d", f.m.sel.Item)
	}
	f.press("s")
	if got := laneTitles(f.c.CurrentTree().Lanes[0]); strings.Join(got, ",") != "one,one,two" {
		t.Fatalf("after split: %v", got)
	}
}

func TestLinkAddsBlockIDOnce(t *testing.T) {
	f := newFixture(t, []string{"a"})
	f.press("^")
	it := f.c.CurrentTree().Lanes[0].Items[0]
	if it.Metadata.BlockID == "" || !strings.HasPrefix(f.m.flash, "[[Demo#^") {
		t.Fatalf("expected a block id and a link, got %+v / %q", it.Metadata, f.m.flash)
	}
	saves := len(f.changes)
	f.press("^")
	if len(f.changes) != saves {
		t.Fatalf("a second link must not change the card")
	}
	if f.m.flash != "[[Demo#^"+it.Metadata.BlockID+"]]" {
		t.Fatalf("unexpected link %q", f.m.flash)
	}
}

func TestLaneEdits(t *testing.T) {
	f := newFixture(t, []string{"a"}, []string{"b"})
	f.press("N", "Review", "enter")
	b := f.c.CurrentTree()
	if len(b.Lanes) != 3 || b.Lanes[1].Title != "Review" || f.m.sel.Lane != 1 {
		t.Fatalf("expected Review after Todo and selected, got %d lanes, sel %d", len(b.Lanes), f.m.sel.Lane)
	}
	f.press(">")
	b = f.c.CurrentTree()
	if b.Lanes[2].Title != "Review" || f.m.sel.Lane != 2 {
		t.Fatalf("expected Review last, got %q sel %d", b.Lanes[2].Title, f.m.sel.Lane)
	}
	f.press("R")
	f.m.input.SetValue("")
	f.press("QA", "enter", "C")
	l := f.c.CurrentTree().Lanes[2]
	if l.Title != "QA" || !l.ShouldMarkItemsComplete {
		t.Fatalf("expected QA marking items complete, got %+v", l)
	}
	f.press("<", "<", "<")
	if f.c.CurrentTree().Lanes[0].Title != "QA" {
		t.Fatalf("expected QA first")
	}
}

func TestSaveErrorIsShown(t *testing.T) {
	f := newFixture(t, []string{"a"})
	f.m.opts.Save = func(Change) error { return errors.New("disk full") }
	f.press("x")
	if !f.m.flashErr || !strings.Contains(f.m.flash, "disk full") {
		t.Fatalf("expected the save error in the status line, got %q", f.m.flash)
	}
	if !strings.Contains(f.m.View(), "disk full") {
		t.Fatalf("expected the error in the view")
	}
}

func TestViewShowsLanesAndHelp(t *testing.T) {
	f := newFixture(t, []string{"Write docs @{2024-05-01}"}, []string{"Review"}, nil)
	v := f.m.View()
	for _, want := range []string{"Demo", "Todo (1)", "Doing (1)", "Done (0) ✓", "Write docs", "@2024-05-01", "(empty)"} {
		if !strings.Contains(v, want) {
			t.Fatalf("expected %q in the view:\n%s", want, v)
		}
	}
	if strings.Contains(v, "card to lane left") {
		t.Fatalf("full help must be hidden by default")
	}
	f.press("?")
	if !strings.Contains(f.m.View(), "card to lane left") {
		t.Fatalf("expected full help after ?")
	}
}

func TestViewScrollsLanesToSelection(t *testing.T) {
	f := newFixture(t, []string{"a"}, []string{"b"}, []string{"c"}, []string{"d"}, []string{"e"}, []string{"f"})
	f.m.opts.LaneWidth = 20
	mm, _ := f.m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	f.m = mm.(appModel)
	f.press("l", "l", "l", "l", "l")
	v := f.m.View()
	if !strings.Contains(v, "[ ] f") {
		t.Fatalf("expected the selected lane visible:\n%s", v)
	}
	if !strings.Contains(v, "of 6") {
		t.Fatalf("expected a lane position hint:\n%s", v)
	}
}

func TestBoardChangedMsgRefreshes(t *testing.T) {
	f := newFixture(t, []string{"a"})
	if err := f.c.Apply(func(b model.Board) (model.Board, error) {
		b.Lanes = append([]model.Lane(nil), b.Lanes...)
		b.Lanes[0].Title = "Renamed"
		return b, nil
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	mm, _ := f.m.Update(boardChangedMsg{})
	f.m = mm.(appModel)
	if f.m.board.Lanes[0].Title != "Renamed" {
		t.Fatalf("expected the model to pick up the new tree")
	}
}

func TestCategoryColours(t *testing.T) {
	f := newFixture(t, []string{"Water plants ~{home}"})
	opts := f.m.opts
	opts.Categories = []settings.Category{{Name: "Home", Color: "#00ff00"}, {Name: "work"}}
	m := newModel(opts)

	if _, ok := m.categoryStyle("home"); !ok {
		t.Fatalf("expected a style for home")
	}
	if _, ok := m.categoryStyle("work"); ok {
		t.Fatalf("categories without a colour must not get a style")
	}
	if _, ok := m.categoryStyle(""); ok {
		t.Fatalf("empty category must not match")
	}
	it := m.board.Lanes[0].Items[0]
	lines := m.cardLines(it, 30, false)
	if len(lines) != 2 || !strings.Contains(lines[1], "home") {
		t.Fatalf("expected a badge line naming the category, got %q", lines)
	}
}
