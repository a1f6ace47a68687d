package grammar

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"kanban-cli/internal/settings"
)

type Config struct {
	Triggers  map[Kind]string
	LinkDates bool
}

var triggerKeys = [numKinds]string{
	settings.KeyDateTrigger,
	settings.KeyTimeTrigger,
	settings.KeyPriorityTrigger,
	settings.KeyStoryPointsTrigger,
	settings.KeyCategoryTrigger,
}

// SettingKey is the settings key holding k's trigger.
func (k Kind) SettingKey() string {
	if k < 0 || k >= numKinds {
		return ""
	}
	return triggerKeys[k]
}

// SettingKeys are the settings the grammar depends on.
func SettingKeys() []string {
	out := append([]string{}, triggerKeys[:]...)
	return append(out, settings.KeyLinkDates)
}

// ConfigFrom reads triggers from g; missing keys fall back to the built-in defaults.
func ConfigFrom(g settings.Getter) Config {
	g = settings.WithDefaults(g)
	cfg := Config{Triggers: map[Kind]string{}, LinkDates: settings.Bool(g, settings.KeyLinkDates)}
	for _, k := range Kinds {
		cfg.Triggers[k] = settings.String(g, k.SettingKey())
	}
	return cfg
}

func (c Config) key() string {
	var b strings.Builder
	for _, k := range Kinds {
		fmt.Fprintf(&b, "%d=%q;", k, c.Triggers[k])
	}
	fmt.Fprintf(&b, "link=%t", c.LinkDates)
	return b.String()
}

// Grammar holds one compiled matcher per kind.
type Grammar struct {
	cfg      Config
	matchers [numKinds]*Matcher
}

func New(cfg Config) (*Grammar, error) {
	g := &Grammar{cfg: Config{Triggers: map[Kind]string{}, LinkDates: cfg.LinkDates}}
	type shapeKey struct {
		trigger string
		shape   Shape
	}
	owner := map[shapeKey]Kind{}
	for _, k := range Kinds {
		trigger := cfg.Triggers[k]
		g.cfg.Triggers[k] = trigger

		var (
			m   *Matcher
			err error
		)
		if k == KindDate && cfg.LinkDates {
			m, err = CompileLinked(trigger)
		} else {
			m, err = Compile(trigger)
		}
		if err != nil {
			if ce, ok := err.(*ConfigError); ok {
				ce.Kind = k.String()
			}
			return nil, err
		}
		sk := shapeKey{trigger: trigger, shape: m.shape}
		if other, dup := owner[sk]; dup {
			return nil, &ConfigError{Kind: k.String(), Trigger: trigger, Reason: "already used by the " + other.String() + " trigger"}
		}
		owner[sk] = k
		g.matchers[k] = m
	}
	return g, nil
}

func (g *Grammar) Config() Config { return g.cfg }

func (g *Grammar) Matcher(k Kind) *Matcher {
	if k < 0 || k >= numKinds {
		return nil
	}
	return g.matchers[k]
}

// Spans lists every kind's first tag in text ordered by position.
func (g *Grammar) Spans(text string) []KindMatch {
	var out []KindMatch
	for _, k := range Kinds {
		if mt, ok := g.matchers[k].Match(text); ok {
			out = append(out, KindMatch{Kind: k, Match: mt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

type KindMatch struct {
	Kind Kind
	Match
}

// Cache keeps the last compiled grammar and recompiles only when the config changes.
type Cache struct {
	mu       sync.Mutex
	key      string
	grammar  *Grammar
	compiles int
}

func (c *Cache) Get(cfg Config) (*Grammar, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := cfg.key()
	if c.grammar != nil && c.key == k {
		return c.grammar, nil
	}
	g, err := New(cfg)
	if err != nil {
		return nil, err
	}
	c.compiles++
	c.key = k
	c.grammar = g
	return g, nil
}

// Compiles reports how many times the cache compiled a grammar.
func (c *Cache) Compiles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compiles
}
