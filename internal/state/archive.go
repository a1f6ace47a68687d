package state

import (
	"errors"
	"fmt"
	"sync"

	"kanban-cli/internal/model"
	"kanban-cli/internal/mutate"
)

// ArchiveSink receives items taken out of the live tree by an archive operation.
type ArchiveSink interface {
	Archive(item model.Item, from model.Lane) error
}

// ArchiveList keeps archived items in memory, oldest first. It backs the archive section of
// a board document.
type ArchiveList struct {
	mu    sync.Mutex
	items []model.Item
}

func NewArchiveList(existing []model.Item) *ArchiveList {
	return &ArchiveList{items: append([]model.Item(nil), existing...)}
}

func (a *ArchiveList) Archive(item model.Item, _ model.Lane) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = append(a.items, item)
	return nil
}

func (a *ArchiveList) Items() []model.Item {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.Item(nil), a.items...)
}

// Retract drops the newest entry of each item's identity.
func (a *ArchiveList) Retract(items []model.Item) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, it := range items {
		for i := len(a.items) - 1; i >= 0; i-- {
			if a.items[i].ID == it.ID {
				a.items = append(a.items[:i], a.items[i+1:]...)
				break
			}
		}
	}
	return nil
}

// Retractor is implemented by sinks that can take back items they accepted. A failed archive
// retracts what earlier writes accepted, so the items are neither live and archived at once
// nor half archived.
type Retractor interface {
	Retract(items []model.Item) error
}

func retract(sink ArchiveSink, items []model.Item) error {
	r, ok := sink.(Retractor)
	if !ok || len(items) == 0 {
		return nil
	}
	return r.Retract(items)
}

// Sinks fans an archived item out to several sinks in order. On the first error the sinks
// that already took the item retract it.
type Sinks []ArchiveSink

func (s Sinks) Archive(item model.Item, from model.Lane) error {
	for i, sink := range s {
		if sink == nil {
			continue
		}
		if err := sink.Archive(item, from); err != nil {
			return errors.Join(err, s[:i].Retract([]model.Item{item}))
		}
	}
	return nil
}

func (s Sinks) Retract(items []model.Item) error {
	var errs []error
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == nil {
			continue
		}
		if err := retract(s[i], items); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// archiveAll hands items to sink in order. If one fails, the items written before it are
// retracted and the error is returned.
func archiveAll(sink ArchiveSink, items []model.Item, from model.Lane) error {
	if sink == nil {
		return nil
	}
	for i, it := range items {
		if err := sink.Archive(it, from); err != nil {
			err = fmt.Errorf("archive %s: %w", it.ID, err)
			if rerr := retract(sink, items[:i]); rerr != nil {
				err = errors.Join(err, fmt.Errorf("retract: %w", rerr))
			}
			return err
		}
	}
	return nil
}

// ArchiveAt archives the item at path through c and hands it to sink. If the sink fails the
// tree is left unchanged and retractable sinks are rolled back.
func ArchiveAt(c *Container, sink ArchiveSink, at model.Path) (model.Item, error) {
	var archived model.Item
	err := c.Apply(func(b model.Board) (model.Board, error) {
		next, it, err := mutate.ArchiveItem(b, at)
		if err != nil {
			return model.Board{}, err
		}
		if err := archiveAll(sink, []model.Item{it}, b.Lanes[at[0]]); err != nil {
			return model.Board{}, err
		}
		archived = it
		return next, nil
	})
	return archived, err
}

// ArchiveLane archives every item of the lane at path, all or nothing.
func ArchiveLane(c *Container, sink ArchiveSink, lane model.Path) ([]model.Item, error) {
	var archived []model.Item
	err := c.Apply(func(b model.Board) (model.Board, error) {
		next, items, err := mutate.ArchiveLaneItems(b, lane)
		if err != nil {
			return model.Board{}, err
		}
		if err := archiveAll(sink, items, b.Lanes[lane[0]]); err != nil {
			return model.Board{}, err
		}
		archived = items
		return next, nil
	})
	return archived, err
}
