// Package grammar compiles user-configured trigger strings into matchers for inline
// metadata tags of the form trigger{content}.
//
// A tag is only recognised at the start of the text or right after a whitespace
// character. Each kind is a singleton: when several tags of one kind are present the
// first one wins and the rest are inert text.
package grammar

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

type Kind int

const (
	KindDate Kind = iota
	KindTime
	KindPriority
	KindStoryPoints
	KindCategory
	numKinds
)

// Kinds lists every kind in canonical order. Tags appended to an item's text are kept in
// this order.
var Kinds = []Kind{KindDate, KindTime, KindPriority, KindStoryPoints, KindCategory}

var kindNames = [numKinds]string{"date", "time", "priority", "story-points", "category"}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "points" || s == "storypoints" || s == "sp" {
		s = "story-points"
	}
	for i, name := range kindNames {
		if name == s {
			return Kind(i), true
		}
	}
	return 0, false
}

var (
	ErrInvalidConfig  = errors.New("invalid grammar config")
	ErrInvalidContent = errors.New("invalid tag content")
)

type ConfigError struct {
	Kind    string
	Trigger string
	Reason  string
}

func (e *ConfigError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("invalid trigger %q: %s", e.Trigger, e.Reason)
	}
	return fmt.Sprintf("invalid %s trigger %q: %s", e.Kind, e.Trigger, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }

type ContentError struct {
	Content string
	Reason  string
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("cannot write tag content %q: %s", e.Content, e.Reason)
}

func (e *ContentError) Is(target error) bool { return target == ErrInvalidContent }

type Shape int

const (
	// ShapeBrace is trigger{content}.
	ShapeBrace Shape = iota
	// ShapeLinked is trigger[[content]] or trigger[content](href); used for dates that
	// link to a daily note.
	ShapeLinked
)

type Matcher struct {
	trigger string
	shape   Shape
	re      *regexp.Regexp
}

// Match is one located tag. Start includes the leading boundary character, if any.
type Match struct {
	Start    int
	End      int
	Boundary string
	Content  string
}

func Compile(trigger string) (*Matcher, error) {
	return compile(trigger, ShapeBrace)
}

func CompileLinked(trigger string) (*Matcher, error) {
	return compile(trigger, ShapeLinked)
}

func compile(trigger string, shape Shape) (*Matcher, error) {
	if trigger == "" {
		return nil, &ConfigError{Trigger: trigger, Reason: "empty"}
	}
	if strings.IndexFunc(trigger, unicode.IsSpace) >= 0 {
		return nil, &ConfigError{Trigger: trigger, Reason: "contains whitespace"}
	}
	q := regexp.QuoteMeta(trigger)
	var expr string
	switch shape {
	case ShapeLinked:
		expr = `(^|\s)` + q + `(?:\[\[([^\]]+)\]\]|\[([^\]]+)\]\(([^)]+)\))`
	default:
		expr = `(^|\s)` + q + `\{([^}]+)\}`
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &ConfigError{Trigger: trigger, Reason: err.Error()}
	}
	return &Matcher{trigger: trigger, shape: shape, re: re}, nil
}

func (m *Matcher) Trigger() string { return m.trigger }
func (m *Matcher) Shape() Shape    { return m.shape }

func (m *Matcher) Match(text string) (Match, bool) {
	loc := m.re.FindStringSubmatchIndex(text)
	if loc == nil {
		return Match{}, false
	}
	out := Match{
		Start:    loc[0],
		End:      loc[1],
		Boundary: text[loc[2]:loc[3]],
	}
	switch m.shape {
	case ShapeLinked:
		if loc[4] >= 0 {
			target := text[loc[4]:loc[5]]
			// [[note|alias]] and [[note#heading]] address the note named before the marker.
			if i := strings.IndexAny(target, "|#"); i >= 0 {
				target = target[:i]
			}
			out.Content = target
		} else {
			out.Content = text[loc[6]:loc[7]]
		}
	default:
		out.Content = text[loc[4]:loc[5]]
	}
	return out, true
}

// Find returns the content of the first tag.
func (m *Matcher) Find(text string) (string, bool) {
	mt, ok := m.Match(text)
	if !ok {
		return "", false
	}
	return mt.Content, true
}

// Tag renders a tag for content without any boundary.
func (m *Matcher) Tag(content string) (string, error) {
	if content == "" {
		return "", &ContentError{Content: content, Reason: "empty"}
	}
	switch m.shape {
	case ShapeLinked:
		if strings.ContainsAny(content, "[]") {
			return "", &ContentError{Content: content, Reason: "contains a square bracket"}
		}
		return m.trigger + "[[" + content + "]]", nil
	default:
		if strings.Contains(content, "}") {
			return "", &ContentError{Content: content, Reason: "contains a closing brace"}
		}
		return m.trigger + "{" + content + "}", nil
	}
}

// Set replaces the first tag's content in place, keeping its boundary and every other byte.
// Without a tag, a space and the new tag are appended.
func (m *Matcher) Set(text, content string) (string, error) {
	tag, err := m.Tag(content)
	if err != nil {
		return "", err
	}
	if mt, ok := m.Match(text); ok {
		return text[:mt.Start] + mt.Boundary + tag + text[mt.End:], nil
	}
	if text == "" {
		return tag, nil
	}
	return text + " " + tag, nil
}

// Remove deletes the first tag together with its boundary. Whitespace is trimmed only where
// the removed span touched the start or end of the text.
func (m *Matcher) Remove(text string) string {
	mt, ok := m.Match(text)
	if !ok {
		return text
	}
	return cutSpan(text, mt.Start, mt.End)
}

func cutSpan(text string, start, end int) string {
	left := text[:start]
	right := text[end:]
	if start == 0 {
		right = strings.TrimLeftFunc(right, unicode.IsSpace)
	}
	if end == len(text) {
		left = strings.TrimRightFunc(left, unicode.IsSpace)
	}
	return left + right
}
