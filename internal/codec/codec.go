// Package codec turns an item's raw text into typed metadata and applies single-field edits
// back to the raw text without touching unrelated bytes.
package codec

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"kanban-cli/internal/grammar"
	"kanban-cli/internal/model"
	"kanban-cli/internal/settings"
)

var blockIDRe = regexp.MustCompile(`\s+\^([a-zA-Z0-9-]+)$`)

type Codec struct {
	grammar    *grammar.Grammar
	dateFormat string
	timeFormat string
	dateLayout string
	timeLayout string
}

// New builds a codec over a compiled grammar. Empty formats use YYYY-MM-DD and HH:mm.
func New(g *grammar.Grammar, dateFormat, timeFormat string) *Codec {
	if strings.TrimSpace(dateFormat) == "" {
		dateFormat = "YYYY-MM-DD"
	}
	if strings.TrimSpace(timeFormat) == "" {
		timeFormat = "HH:mm"
	}
	return &Codec{
		grammar:    g,
		dateFormat: dateFormat,
		timeFormat: timeFormat,
		dateLayout: Layout(dateFormat),
		timeLayout: Layout(timeFormat),
	}
}

func FromSettings(s settings.Getter) (*Codec, error) {
	s = settings.WithDefaults(s)
	g, err := grammar.New(grammar.ConfigFrom(s))
	if err != nil {
		return nil, err
	}
	return New(g, settings.String(s, settings.KeyDateFormat), settings.String(s, settings.KeyTimeFormat)), nil
}

func (c *Codec) Grammar() *grammar.Grammar { return c.grammar }

// Decode parses raw into metadata. Checked is left false; it comes from the item's check
// char, not its text.
func (c *Codec) Decode(raw string) model.Metadata {
	var md model.Metadata
	if s, ok := c.find(raw, grammar.KindDate); ok {
		if d, ok := c.parseDate(s); ok {
			md.Date = &d
		}
	}
	if s, ok := c.find(raw, grammar.KindTime); ok {
		if cl, ok := c.parseClock(s); ok {
			md.Time = &cl
		}
	}
	if s, ok := c.find(raw, grammar.KindPriority); ok {
		if p, ok := model.ParsePriority(s); ok {
			md.Priority = p
		}
	}
	if s, ok := c.find(raw, grammar.KindStoryPoints); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			f = 0
		}
		md.StoryPoints = &f
	}
	if s, ok := c.find(raw, grammar.KindCategory); ok {
		md.Category = strings.TrimSpace(s)
	}
	md.BlockID = BlockID(raw)
	return md
}

func (c *Codec) find(raw string, k grammar.Kind) (string, bool) {
	return c.grammar.Matcher(k).Find(raw)
}

func (c *Codec) parseDate(s string) (model.Date, bool) {
	t, err := time.Parse(c.dateLayout, strings.TrimSpace(s))
	if err != nil {
		return model.Date{}, false
	}
	return model.DateOf(t), true
}

func (c *Codec) parseClock(s string) (model.Clock, bool) {
	t, err := time.Parse(c.timeLayout, strings.TrimSpace(s))
	if err != nil {
		return model.Clock{}, false
	}
	return model.ClockOf(t), true
}

// EncodeFieldChange rewrites kind's tag in raw to v, or removes it when v is nil.
//
// A value equal to the currently decoded one returns raw unchanged. An existing tag is
// replaced in place. A new tag joins the trailing run of tags at its canonical position,
// before any block id, so edits to different kinds commute.
func (c *Codec) EncodeFieldChange(raw string, kind grammar.Kind, v *Value) (string, error) {
	if v != nil && v.kind != kind {
		return "", &ValueError{Kind: kind, Input: v.kind.String(), Reason: "value has a different kind"}
	}
	if CurrentValue(c.Decode(raw), kind).equal(v) {
		return raw, nil
	}
	m := c.grammar.Matcher(kind)
	if m == nil {
		return "", &ValueError{Kind: kind, Reason: "unknown field"}
	}
	if v == nil {
		return m.Remove(raw), nil
	}
	content, err := c.render(v)
	if err != nil {
		return "", err
	}
	tag, err := m.Tag(content)
	if err != nil {
		return "", err
	}
	if _, present := m.Match(raw); present {
		return m.Set(raw, content)
	}
	return c.insertTag(raw, kind, tag), nil
}

// StripTag removes kind's first tag even when its content does not decode.
func (c *Codec) StripTag(raw string, kind grammar.Kind) string {
	m := c.grammar.Matcher(kind)
	if m == nil {
		return raw
	}
	return m.Remove(raw)
}

func (c *Codec) insertTag(raw string, kind grammar.Kind, tag string) string {
	body, suffix := raw, ""
	if loc := blockIDRe.FindStringIndex(raw); loc != nil {
		body, suffix = raw[:loc[0]], raw[loc[0]:]
	}

	// Walk back from the end collecting tags separated only by whitespace.
	spans := c.grammar.Spans(body)
	runStart := len(body)
	var run []grammar.KindMatch
	for i := len(spans) - 1; i >= 0; i-- {
		s := spans[i]
		if s.End > runStart || strings.TrimFunc(body[s.End:runStart], unicode.IsSpace) != "" {
			break
		}
		run = append([]grammar.KindMatch{s}, run...)
		runStart = s.Start
	}

	for _, s := range run {
		if s.Kind <= kind {
			continue
		}
		if s.Start == 0 {
			return tag + " " + body[len(s.Boundary):] + suffix
		}
		return body[:s.Start] + " " + tag + body[s.Start:] + suffix
	}
	if body == "" {
		if suffix != "" {
			return tag + suffix
		}
		return tag
	}
	return body + " " + tag + suffix
}

// BlockID returns the trailing ^id reference of raw, if any.
func BlockID(raw string) string {
	m := blockIDRe.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	return m[1]
}

// NewItem builds an item with a fresh identity. Surrounding whitespace of raw is trimmed.
func (c *Codec) NewItem(ids model.IDSource, raw string, checked bool) model.Item {
	it := model.Item{ID: ids.NewID(model.KindItem), CheckChar: " "}
	it = c.UpdateContent(it, strings.TrimSpace(raw))
	return it.WithChecked(checked)
}

// UpdateContent swaps the raw text and recomputes metadata; the identity is kept.
func (c *Codec) UpdateContent(it model.Item, raw string) model.Item {
	it.RawText = raw
	if it.CheckChar == "" {
		it.CheckChar = " "
	}
	md := c.Decode(raw)
	md.Checked = it.Checked()
	it.Metadata = md
	return it
}

// SetField applies EncodeFieldChange to the item and keeps metadata in sync.
func (c *Codec) SetField(it model.Item, kind grammar.Kind, v *Value) (model.Item, error) {
	raw, err := c.EncodeFieldChange(it.RawText, kind, v)
	if err != nil {
		return model.Item{}, err
	}
	return c.UpdateContent(it, raw), nil
}

// ClearField removes kind's tag from the item, including a tag whose content does not
// decode (e.g. "!{urgent}"), which EncodeFieldChange leaves alone.
func (c *Codec) ClearField(it model.Item, kind grammar.Kind) (model.Item, error) {
	if c.grammar.Matcher(kind) == nil {
		return model.Item{}, &ValueError{Kind: kind, Reason: "unknown field"}
	}
	return c.UpdateContent(it, c.StripTag(it.RawText, kind)), nil
}

// EnsureBlockID gives the item a ^id suffix when it has none and returns the id.
func (c *Codec) EnsureBlockID(it model.Item, newID func() string) (model.Item, string) {
	if id := BlockID(it.RawText); id != "" {
		return it, id
	}
	id := newID()
	raw := strings.TrimRightFunc(it.RawText, unicode.IsSpace) + " ^" + id
	return c.UpdateContent(it, raw), id
}

// Refresh re-decodes every item, e.g. after the board's settings changed.
func (c *Codec) Refresh(b model.Board) model.Board {
	lanes := make([]model.Lane, len(b.Lanes))
	for i, l := range b.Lanes {
		items := make([]model.Item, len(l.Items))
		for j, it := range l.Items {
			items[j] = c.UpdateContent(it, it.RawText)
		}
		l.Items = items
		lanes[i] = l
	}
	b.Lanes = lanes
	return b
}

var titleSplitRe = regexp.MustCompile(`[\r\n]+`)

// SplitTitles splits a multi-line card into one title per non-blank line.
func SplitTitles(raw string) []string {
	var out []string
	for _, part := range titleSplitRe.Split(raw, -1) {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// SplitItem builds the replacement items for splitting it by line. Each new item keeps the
// original check state.
func (c *Codec) SplitItem(ids model.IDSource, it model.Item) ([]model.Item, error) {
	titles := SplitTitles(it.RawText)
	if len(titles) == 0 {
		return nil, fmt.Errorf("split %s: no lines", it.ID)
	}
	out := make([]model.Item, len(titles))
	for i, t := range titles {
		n := c.NewItem(ids, t, it.Checked())
		n.CheckChar = it.CheckChar
		out[i] = n
	}
	return out, nil
}
