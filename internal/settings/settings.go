// Package settings is the key/value settings source consulted by the codec and grammar.
package settings

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	KeyDateTrigger        = "date-trigger"
	KeyTimeTrigger        = "time-trigger"
	KeyPriorityTrigger    = "priority-trigger"
	KeyStoryPointsTrigger = "story-points-trigger"
	KeyCategoryTrigger    = "category-trigger"
	KeyLinkDates          = "link-date-to-daily-note"
	KeyDateFormat         = "date-format"
	KeyTimeFormat         = "time-format"
	KeyCategories         = "categories"
	KeyInsertionMethod    = "new-card-insertion-method"
	KeyPluginMarker       = "kanban-plugin"
)

// Getter is the only view the core has of the host settings store.
type Getter interface {
	Get(key string) (any, bool)
}

// Settings is a plain settings map as stored in a board document.
type Settings map[string]any

func (s Settings) Get(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s[key]
	return v, ok
}

// Defaults returns a fresh copy of the built-in settings.
func Defaults() Settings {
	return Settings{
		KeyDateTrigger:        "@",
		KeyTimeTrigger:        "@@",
		KeyPriorityTrigger:    "!",
		KeyStoryPointsTrigger: "#",
		KeyCategoryTrigger:    "~",
		KeyLinkDates:          false,
		KeyDateFormat:         "YYYY-MM-DD",
		KeyTimeFormat:         "HH:mm",
		KeyInsertionMethod:    "append",
	}
}

// Layered looks keys up in order and returns the first hit.
type Layered []Getter

func (l Layered) Get(key string) (any, bool) {
	for _, g := range l {
		if g == nil {
			continue
		}
		if v, ok := g.Get(key); ok {
			return v, true
		}
	}
	return nil, false
}

// WithDefaults layers g over the built-in defaults.
func WithDefaults(g Getter) Getter {
	return Layered{g, Defaults()}
}

func String(g Getter, key string) string {
	v, ok := g.Get(key)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

func Bool(g Getter, key string) bool {
	v, ok := g.Get(key)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1", "on":
			return true
		}
	}
	return false
}

type Category struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Categories returns the advisory category list. Malformed entries are skipped.
func Categories(g Getter) []Category {
	v, ok := g.Get(KeyCategories)
	if !ok || v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out []Category
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	kept := out[:0]
	for _, c := range out {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name != "" {
			kept = append(kept, c)
		}
	}
	return kept
}

// Merge returns a new map with over applied on top of base.
func Merge(base, over Settings) Settings {
	out := Settings{}
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Fingerprint is a stable string for the given keys' values; equal fingerprints mean the
// values did not change.
func Fingerprint(g Getter, keys ...string) string {
	sorted := append([]string{}, keys...)
	sort.Strings(sorted)
	var b strings.Builder
	for _, k := range sorted {
		v, _ := g.Get(k)
		raw, err := json.Marshal(v)
		if err != nil {
			raw = []byte(fmt.Sprintf("%v", v))
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.Write(raw)
		b.WriteByte(';')
	}
	return b.String()
}
