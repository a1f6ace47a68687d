package codec

import (
	"sync"

	"kanban-cli/internal/grammar"
	"kanban-cli/internal/settings"
)

// Cache hands out a codec for a settings source and rebuilds it only when one of the
// settings it depends on changed.
type Cache struct {
	mu       sync.Mutex
	grammars grammar.Cache
	key      string
	codec    *Codec
}

func fingerprintKeys() []string {
	return append(grammar.SettingKeys(), settings.KeyDateFormat, settings.KeyTimeFormat)
}

func (c *Cache) Get(s settings.Getter) (*Codec, error) {
	s = settings.WithDefaults(s)
	key := settings.Fingerprint(s, fingerprintKeys()...)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.codec != nil && c.key == key {
		return c.codec, nil
	}
	g, err := c.grammars.Get(grammar.ConfigFrom(s))
	if err != nil {
		return nil, err
	}
	c.codec = New(g, settings.String(s, settings.KeyDateFormat), settings.String(s, settings.KeyTimeFormat))
	c.key = key
	return c.codec, nil
}

// Compiles reports how many grammars the cache compiled.
func (c *Cache) Compiles() int { return c.grammars.Compiles() }
