package codec

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"kanban-cli/internal/grammar"
	"kanban-cli/internal/model"
)

var ErrInvalidValue = errors.New("invalid field value")

type ValueError struct {
	Kind   grammar.Kind
	Input  string
	Reason string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Kind, e.Input, e.Reason)
}

func (e *ValueError) Is(target error) bool { return target == ErrInvalidValue }

// Value is a typed field value; a nil *Value means "remove the tag".
type Value struct {
	kind     grammar.Kind
	date     model.Date
	clock    model.Clock
	priority model.Priority
	points   float64
	category string
}

func Date(d model.Date) *Value         { return &Value{kind: grammar.KindDate, date: d} }
func Time(c model.Clock) *Value        { return &Value{kind: grammar.KindTime, clock: c} }
func Priority(p model.Priority) *Value { return &Value{kind: grammar.KindPriority, priority: p} }
func StoryPoints(f float64) *Value     { return &Value{kind: grammar.KindStoryPoints, points: f} }
func Category(s string) *Value         { return &Value{kind: grammar.KindCategory, category: strings.TrimSpace(s)} }

func (v *Value) Kind() grammar.Kind { return v.kind }

func (v *Value) equal(o *Value) bool {
	if v == nil || o == nil {
		return v == nil && o == nil
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case grammar.KindDate:
		return v.date == o.date
	case grammar.KindTime:
		return v.clock == o.clock
	case grammar.KindPriority:
		return v.priority == o.priority
	case grammar.KindStoryPoints:
		return v.points == o.points
	default:
		return v.category == o.category
	}
}

func (c *Codec) render(v *Value) (string, error) {
	switch v.kind {
	case grammar.KindDate:
		return v.date.Time().Format(c.dateLayout), nil
	case grammar.KindTime:
		t := time.Date(2000, 1, 1, v.clock.Hour, v.clock.Minute, 0, 0, time.UTC)
		return t.Format(c.timeLayout), nil
	case grammar.KindPriority:
		if _, ok := model.ParsePriority(string(v.priority)); !ok {
			return "", &ValueError{Kind: v.kind, Input: string(v.priority), Reason: "want low, medium or high"}
		}
		return string(v.priority), nil
	case grammar.KindStoryPoints:
		if math.IsNaN(v.points) || math.IsInf(v.points, 0) {
			return "", &ValueError{Kind: v.kind, Input: fmt.Sprint(v.points), Reason: "not a finite number"}
		}
		return strconv.FormatFloat(v.points, 'f', -1, 64), nil
	default:
		if v.category == "" {
			return "", &ValueError{Kind: v.kind, Input: v.category, Reason: "empty"}
		}
		return v.category, nil
	}
}

// ParseValue reads user input for kind. Dates and times accept the configured format as well
// as ISO forms.
func (c *Codec) ParseValue(kind grammar.Kind, s string) (*Value, error) {
	in := strings.TrimSpace(s)
	switch kind {
	case grammar.KindDate:
		if d, ok := c.parseDate(in); ok {
			return Date(d), nil
		}
		if t, err := time.Parse("2006-01-02", in); err == nil {
			return Date(model.DateOf(t)), nil
		}
		return nil, &ValueError{Kind: kind, Input: s, Reason: "want " + c.dateFormat}
	case grammar.KindTime:
		if cl, ok := c.parseClock(in); ok {
			return Time(cl), nil
		}
		if t, err := time.Parse("15:04", in); err == nil {
			return Time(model.ClockOf(t)), nil
		}
		return nil, &ValueError{Kind: kind, Input: s, Reason: "want " + c.timeFormat}
	case grammar.KindPriority:
		p, ok := model.ParsePriority(strings.ToLower(in))
		if !ok {
			return nil, &ValueError{Kind: kind, Input: s, Reason: "want low, medium or high"}
		}
		return Priority(p), nil
	case grammar.KindStoryPoints:
		f, err := strconv.ParseFloat(in, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &ValueError{Kind: kind, Input: s, Reason: "not a number"}
		}
		return StoryPoints(f), nil
	case grammar.KindCategory:
		if in == "" {
			return nil, &ValueError{Kind: kind, Input: s, Reason: "empty"}
		}
		return Category(in), nil
	default:
		return nil, &ValueError{Kind: kind, Input: s, Reason: "unknown field"}
	}
}

// CurrentValue is the decoded value of kind in md, or nil when absent.
func CurrentValue(md model.Metadata, kind grammar.Kind) *Value {
	switch kind {
	case grammar.KindDate:
		if md.Date != nil {
			return Date(*md.Date)
		}
	case grammar.KindTime:
		if md.Time != nil {
			return Time(*md.Time)
		}
	case grammar.KindPriority:
		if md.Priority != "" {
			return Priority(md.Priority)
		}
	case grammar.KindStoryPoints:
		if md.StoryPoints != nil {
			return StoryPoints(*md.StoryPoints)
		}
	case grammar.KindCategory:
		if md.Category != "" {
			return Category(md.Category)
		}
	}
	return nil
}
