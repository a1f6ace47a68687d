package gitrepo

import (
	"context"
	"sync"
	"time"
)

// DebouncedCommitter batches rapid saves of one board file into a single commit.
type DebouncedCommitter struct {
	file     string
	board    string
	debounce time.Duration
	onError  func(error)

	mu      sync.Mutex
	timer   *time.Timer
	pending []string
	running bool
	closed  bool
	idle    *sync.Cond
}

type DebouncedCommitterOpts struct {
	File     string
	Board    string
	Debounce time.Duration
	// OnError receives commit failures; commits are best effort.
	OnError func(error)
}

func NewDebouncedCommitter(opts DebouncedCommitterOpts) *DebouncedCommitter {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	d := &DebouncedCommitter{
		file:     opts.File,
		board:    opts.Board,
		debounce: debounce,
		onError:  opts.OnError,
	}
	d.idle = sync.NewCond(&d.mu)
	return d
}

// Notify records one change and restarts the debounce timer.
func (d *DebouncedCommitter) Notify(change string) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.pending = append(d.pending, change)
	if d.timer == nil {
		d.timer = time.AfterFunc(d.debounce, d.onTimer)
		return
	}
	d.timer.Reset(d.debounce)
}

func (d *DebouncedCommitter) onTimer() { d.run(context.Background()) }

func (d *DebouncedCommitter) run(ctx context.Context) {
	d.mu.Lock()
	for d.running {
		d.idle.Wait()
	}
	changes := d.pending
	d.pending = nil
	if len(changes) == 0 {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	_, err := CommitFile(ctx, d.file, CommitMessage(d.board, changes))
	if err != nil && d.onError != nil {
		d.onError(err)
	}

	d.mu.Lock()
	d.running = false
	d.idle.Broadcast()
	d.mu.Unlock()
}

// Close stops the timer and commits whatever is pending.
func (d *DebouncedCommitter) Close(ctx context.Context) {
	if d == nil {
		return
	}
	d.mu.Lock()
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	d.run(ctx)
}
