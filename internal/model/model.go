package model

import (
	"fmt"
	"strings"
	"time"

	"kanban-cli/internal/settings"
)

type NodeKind string

const (
	KindBoard NodeKind = "board"
	KindLane  NodeKind = "lane"
	KindItem  NodeKind = "item"
)

// DoneChar is the check character written for completed items.
const DoneChar = "x"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority accepts exactly low, medium or high.
func ParsePriority(s string) (Priority, bool) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(s), true
	default:
		return "", false
	}
}

// Date is a calendar date without time zone semantics.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return d.Time().Format("2006-01-02")
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = DateOf(t)
	return nil
}

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

func ClockOf(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(b []byte) error {
	t, err := time.Parse("15:04", strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*c = ClockOf(t)
	return nil
}

// Metadata is derived from an item's raw text (plus its check char). It is a cache:
// build items through the codec instead of assigning it directly.
type Metadata struct {
	Date        *Date    `json:"date,omitempty"`
	Time        *Clock   `json:"time,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
	StoryPoints *float64 `json:"storyPoints,omitempty"`
	Category    string   `json:"category,omitempty"`
	Checked     bool     `json:"checked"`
	BlockID     string   `json:"blockId,omitempty"`
}

type Board struct {
	ID       ID                `json:"id"`
	Title    string            `json:"title,omitempty"`
	Settings settings.Settings `json:"settings,omitempty"`
	Lanes    []Lane            `json:"lanes"`
}

type Lane struct {
	ID                      ID     `json:"id"`
	Title                   string `json:"title"`
	ShouldMarkItemsComplete bool   `json:"shouldMarkItemsComplete,omitempty"`
	Items                   []Item `json:"items"`
}

type Item struct {
	ID        ID       `json:"id"`
	RawText   string   `json:"rawText"`
	CheckChar string   `json:"checkChar"`
	Metadata  Metadata `json:"metadata"`
}

func (it Item) Checked() bool {
	c := strings.TrimSpace(it.CheckChar)
	return c != ""
}

// WithChecked flips the check char and keeps Metadata.Checked in sync.
func (it Item) WithChecked(checked bool) Item {
	if checked {
		if !it.Checked() {
			it.CheckChar = DoneChar
		}
	} else {
		it.CheckChar = " "
	}
	it.Metadata.Checked = it.Checked()
	return it
}

// Title is the first line of the raw text.
func (it Item) Title() string {
	first, _, _ := strings.Cut(it.RawText, "\n")
	return strings.TrimSpace(first)
}

func (b Board) NodeID() ID         { return b.ID }
func (b Board) NodeKind() NodeKind { return KindBoard }

func (b Board) Children() []Node {
	out := make([]Node, len(b.Lanes))
	for i := range b.Lanes {
		out[i] = b.Lanes[i]
	}
	return out
}

func (b Board) Accepts(child Node) bool {
	_, ok := child.(Lane)
	return ok
}

func (b Board) WithChildren(children []Node) (Node, error) {
	lanes := make([]Lane, 0, len(children))
	for _, ch := range children {
		l, ok := ch.(Lane)
		if !ok {
			return nil, KindMismatchError{Parent: KindBoard, Child: kindOf(ch)}
		}
		lanes = append(lanes, l)
	}
	b.Lanes = lanes
	return b, nil
}

func (b Board) Clone(ids IDSource) Node {
	out := b
	out.ID = ids.NewID(KindBoard)
	out.Lanes = make([]Lane, len(b.Lanes))
	for i := range b.Lanes {
		out.Lanes[i] = b.Lanes[i].Clone(ids).(Lane)
	}
	return out
}

func (l Lane) NodeID() ID         { return l.ID }
func (l Lane) NodeKind() NodeKind { return KindLane }

func (l Lane) Children() []Node {
	out := make([]Node, len(l.Items))
	for i := range l.Items {
		out[i] = l.Items[i]
	}
	return out
}

func (l Lane) Accepts(child Node) bool {
	_, ok := child.(Item)
	return ok
}

func (l Lane) WithChildren(children []Node) (Node, error) {
	items := make([]Item, 0, len(children))
	for _, ch := range children {
		it, ok := ch.(Item)
		if !ok {
			return nil, KindMismatchError{Parent: KindLane, Child: kindOf(ch)}
		}
		items = append(items, it)
	}
	l.Items = items
	return l, nil
}

func (l Lane) Clone(ids IDSource) Node {
	out := l
	out.ID = ids.NewID(KindLane)
	out.Items = make([]Item, len(l.Items))
	for i := range l.Items {
		out.Items[i] = l.Items[i].Clone(ids).(Item)
	}
	return out
}

func (it Item) NodeID() ID           { return it.ID }
func (it Item) NodeKind() NodeKind   { return KindItem }
func (it Item) Children() []Node     { return nil }
func (it Item) Accepts(ch Node) bool { return false }

func (it Item) WithChildren(children []Node) (Node, error) {
	if len(children) > 0 {
		return nil, KindMismatchError{Parent: KindItem, Child: kindOf(children[0])}
	}
	return it, nil
}

// Clone copies the item under a new identity. A block id names one card, so the copy drops it.
func (it Item) Clone(ids IDSource) Node {
	out := it
	out.ID = ids.NewID(KindItem)
	if ref := it.Metadata.BlockID; ref != "" {
		if body, ok := strings.CutSuffix(it.RawText, "^"+ref); ok {
			out.RawText = strings.TrimRight(body, " \t")
		}
		out.Metadata.BlockID = ""
	}
	if it.Metadata.StoryPoints != nil {
		sp := *it.Metadata.StoryPoints
		out.Metadata.StoryPoints = &sp
	}
	if it.Metadata.Date != nil {
		d := *it.Metadata.Date
		out.Metadata.Date = &d
	}
	if it.Metadata.Time != nil {
		c := *it.Metadata.Time
		out.Metadata.Time = &c
	}
	return out
}

func kindOf(n Node) NodeKind {
	if n == nil {
		return ""
	}
	return n.NodeKind()
}
