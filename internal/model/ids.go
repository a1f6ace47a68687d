package model

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
	"sync"
)

type ID string

type IDSource interface {
	NewID(kind NodeKind) ID
}

// Generator issues prefix-<suffix> ids where suffix is 8 chars of lowercase base32 (~40 bits).
// It remembers every id it issued or observed, so an id is never handed out twice in a
// session even after the node carrying it was deleted.
type Generator struct {
	mu     sync.Mutex
	seen   map[ID]bool
	nextID map[NodeKind]int
	rand   func([]byte) (int, error)
}

func NewGenerator() *Generator {
	return &Generator{
		seen:   map[ID]bool{},
		nextID: map[NodeKind]int{},
		rand:   rand.Read,
	}
}

func (g *Generator) NewID(kind NodeKind) ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i := 0; i < 50; i++ {
		id, err := g.randomID(string(kind))
		if err != nil {
			break
		}
		if !g.seen[id] {
			g.seen[id] = true
			return id
		}
	}
	// crypto/rand failed or kept colliding: fall back to a counter.
	for {
		g.nextID[kind]++
		id := ID(fmt.Sprintf("%s-%d", kind, g.nextID[kind]))
		if !g.seen[id] {
			g.seen[id] = true
			return id
		}
	}
}

// Observe records ids that already exist (e.g. loaded from disk).
func (g *Generator) Observe(ids ...ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range ids {
		if strings.TrimSpace(string(id)) != "" {
			g.seen[id] = true
		}
	}
}

// ObserveTree records every identity in the tree rooted at n.
func (g *Generator) ObserveTree(n Node) {
	var ids []ID
	Walk(n, func(x Node, _ Path) { ids = append(ids, x.NodeID()) })
	g.Observe(ids...)
}

func (g *Generator) randomID(prefix string) (ID, error) {
	var b [5]byte // 40 bits -> 8 base32 chars
	if _, err := g.rand(b[:]); err != nil {
		return "", err
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	suffix := strings.ToLower(enc.EncodeToString(b[:]))
	return ID(prefix + "-" + suffix), nil
}

const blockIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewBlockID returns a short random token usable as a markdown block reference (^token).
func NewBlockID(n int) string {
	if n <= 0 {
		n = 6
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return strings.Repeat("0", n)
	}
	for i := range b {
		b[i] = blockIDAlphabet[int(b[i])%len(blockIDAlphabet)]
	}
	return string(b)
}
