// Package store is the SQLite side index of board documents: a searchable copy of every
// board's cards, the archive sink and an append-only event log. The markdown file stays
// the source of truth; the index can be rebuilt from it at any time.
package store

import (
	"os"
	"path/filepath"
	"time"
)

const indexFileName = "index.sqlite"

type Store struct {
	Dir string

	// Now is the clock used for timestamps; nil means time.Now.
	Now func() time.Time
}

func (s Store) Ensure() error {
	return os.MkdirAll(filepath.Clean(s.Dir), 0o755)
}

func (s Store) sqlitePath() string {
	return filepath.Join(filepath.Clean(s.Dir), indexFileName)
}

func (s Store) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// BoardKey normalises a board file path into the key used by the index.
func BoardKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
