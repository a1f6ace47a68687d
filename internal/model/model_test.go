package model

import (
	"errors"
	"testing"
)

func testBoard() Board {
	return Board{
		ID: "board-1",
		Lanes: []Lane{
			{ID: "lane-a", Title: "A", Items: []Item{{ID: "item-x", RawText: "x"}, {ID: "item-y", RawText: "y"}}},
			{ID: "lane-b", Title: "B"},
		},
	}
}

func TestParsePath(t *testing.T) {
	cases := map[string]Path{
		"":     {},
		"/":    {},
		"0":    {0},
		"1/2":  {1, 2},
		"1.2":  {1, 2},
		"/3/4": {3, 4},
	}
	for in, want := range cases {
		got, err := ParsePath(in)
		if err != nil {
			t.Fatalf("ParsePath(%q) error: %v", in, err)
		}
		if !got.Equal(want) {
			t.Fatalf("ParsePath(%q) = %v; want %v", in, got, want)
		}
	}
	for _, bad := range []string{"a", "1/-2", "1/x"} {
		if _, err := ParsePath(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	if got := (Path{1, 2}).String(); got != "1/2" {
		t.Fatalf("String() = %q", got)
	}
}

func TestResolve(t *testing.T) {
	b := testBoard()

	n, err := Resolve(b, Path{0, 1})
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if n.NodeID() != "item-y" {
		t.Fatalf("expected item-y; got %s", n.NodeID())
	}

	root, err := Resolve(b, Path{})
	if err != nil || root.NodeKind() != KindBoard {
		t.Fatalf("expected board at root; got %v, %v", root, err)
	}

	for _, p := range []Path{{2}, {1, 0}, {0, 2}, {-1}, {0, 0, 0}} {
		_, err := Resolve(b, p)
		if !errors.Is(err, ErrPathOutOfRange) {
			t.Fatalf("Resolve(%v): expected ErrPathOutOfRange; got %v", p, err)
		}
	}

	var pe PathOutOfRangeError
	_, err = Resolve(b, Path{0, 5})
	if !errors.As(err, &pe) {
		t.Fatalf("expected PathOutOfRangeError; got %T", err)
	}
	if pe.Depth != 1 || pe.Index != 5 || pe.Len != 2 {
		t.Fatalf("unexpected error detail: %+v", pe)
	}
}

func TestSiblingsOf(t *testing.T) {
	b := testBoard()
	sibs, err := SiblingsOf(b, Path{0, 0})
	if err != nil {
		t.Fatalf("SiblingsOf error: %v", err)
	}
	if len(sibs) != 2 || sibs[1].NodeID() != "item-y" {
		t.Fatalf("unexpected siblings: %v", sibs)
	}
	lanes, err := SiblingsOf(b, Path{1})
	if err != nil || len(lanes) != 2 {
		t.Fatalf("expected two lanes; got %v, %v", lanes, err)
	}
	if _, err := SiblingsOf(b, Path{}); !errors.Is(err, ErrPathOutOfRange) {
		t.Fatalf("expected root to have no siblings; got %v", err)
	}
}

func TestPathOf(t *testing.T) {
	b := testBoard()
	p, ok := PathOf(b, "item-y")
	if !ok || !p.Equal(Path{0, 1}) {
		t.Fatalf("PathOf(item-y) = %v, %v", p, ok)
	}
	if _, ok := PathOf(b, "nope"); ok {
		t.Fatalf("expected missing id")
	}
}

func TestWithChildren_RejectsWrongKind(t *testing.T) {
	b := testBoard()
	_, err := b.WithChildren([]Node{Item{ID: "item-z"}})
	if !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch; got %v", err)
	}
	_, err = b.Lanes[0].WithChildren([]Node{Lane{ID: "lane-z"}})
	if !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch; got %v", err)
	}
}

func TestItemWithChecked(t *testing.T) {
	it := Item{ID: "item-1", RawText: "a", CheckChar: " "}
	done := it.WithChecked(true)
	if done.CheckChar != DoneChar || !done.Metadata.Checked {
		t.Fatalf("expected checked item; got %+v", done)
	}
	if it.Checked() {
		t.Fatalf("receiver must stay unchanged")
	}
	back := done.WithChecked(false)
	if back.CheckChar != " " || back.Metadata.Checked {
		t.Fatalf("expected unchecked; got %+v", back)
	}
}

func TestGenerator_NeverReissues(t *testing.T) {
	g := NewGenerator()
	g.Observe("item-1")
	calls := 0
	// Deterministic rand: always the same bytes, forcing the counter fallback after the first id.
	g.rand = func(b []byte) (int, error) {
		calls++
		for i := range b {
			b[i] = 7
		}
		return len(b), nil
	}

	seen := map[ID]bool{"item-1": true}
	for i := 0; i < 5; i++ {
		id := g.NewID(KindItem)
		if seen[id] {
			t.Fatalf("id reissued: %s", id)
		}
		seen[id] = true
	}
	if calls == 0 {
		t.Fatalf("expected random source to be consulted")
	}
}

func TestCloneAssignsFreshIDsDeep(t *testing.T) {
	g := NewGenerator()
	b := testBoard()
	g.ObserveTree(b)

	cl := b.Lanes[0].Clone(g).(Lane)
	if cl.ID == b.Lanes[0].ID {
		t.Fatalf("expected new lane id")
	}
	for i := range cl.Items {
		if cl.Items[i].ID == b.Lanes[0].Items[i].ID {
			t.Fatalf("expected new item id at %d", i)
		}
		if cl.Items[i].RawText != b.Lanes[0].Items[i].RawText {
			t.Fatalf("expected same data at %d", i)
		}
	}
}

func TestCloneDropsBlockID(t *testing.T) {
	g := NewGenerator()
	it := Item{ID: "item-1", RawText: "Call mom !{high} ^abc123", CheckChar: " ", Metadata: Metadata{Priority: PriorityHigh, BlockID: "abc123"}}

	cl := it.Clone(g).(Item)
	if cl.RawText != "Call mom !{high}" || cl.Metadata.BlockID != "" {
		t.Fatalf("clone = %+v", cl)
	}
	if cl.Metadata.Priority != PriorityHigh {
		t.Fatalf("clone lost metadata: %+v", cl.Metadata)
	}
	if it.Metadata.BlockID != "abc123" {
		t.Fatalf("original changed: %+v", it)
	}
}
