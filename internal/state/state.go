// Package state is the board state container: the single entry point through which every
// edit to the canonical tree passes.
package state

import (
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"kanban-cli/internal/logging"
	"kanban-cli/internal/model"
)

// Updater computes the next tree from the current one. A returned error discards the result.
type Updater func(model.Board) (model.Board, error)

// Listener is called after a successful swap.
type Listener func(prev, next model.Board)

var ErrNilUpdater = errors.New("nil updater")

type Container struct {
	mu        sync.Mutex
	tree      model.Board
	version   uint64
	listeners []subscription
	nextSubID int
	logger    *log.Logger
}

type subscription struct {
	id int
	fn Listener
}

type Option func(*Container)

func WithLogger(l *log.Logger) Option {
	return func(c *Container) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(initial model.Board, opts ...Option) *Container {
	c := &Container{tree: initial, logger: logging.Discard()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Container) CurrentTree() model.Board {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree
}

// Version counts successful swaps.
func (c *Container) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Apply runs u against the current tree and swaps in its result. The lock is held for the
// whole run, so updaters never interleave and each one sees every earlier result.
// Listeners run after the lock is released; they may call Apply themselves.
func (c *Container) Apply(u Updater) error {
	if u == nil {
		return ErrNilUpdater
	}
	c.mu.Lock()
	prev := c.tree
	next, err := u(prev)
	if err != nil {
		version := c.version
		c.mu.Unlock()
		c.logger.Debug("update rejected", "version", version, "err", err)
		return err
	}
	c.tree = next
	c.version++
	version := c.version
	listeners := make([]subscription, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	c.logger.Debug("update applied", "version", version, "lanes", len(next.Lanes))
	for _, s := range listeners {
		s.fn(prev, next)
	}
	return nil
}

// Subscribe registers fn and returns a function that removes it.
func (c *Container) Subscribe(fn Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSubID++
	id := c.nextSubID
	c.listeners = append(c.listeners, subscription{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.listeners {
			if s.id == id {
				c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}
