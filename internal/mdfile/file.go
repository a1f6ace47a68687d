package mdfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"kanban-cli/internal/model"
	"kanban-cli/internal/settings"
)

const filePerms = 0o644

// Load reads and parses the board at path. The board title defaults to the file name.
func Load(path string, ids model.IDSource, defaults settings.Getter) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(data, ids, defaults)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if doc.Board.Title == "" {
		doc.Board.Title = TitleFromPath(path)
	}
	return doc, nil
}

// Save formats doc and replaces path atomically.
func Save(path string, doc *Document) error {
	data, err := Format(doc)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	_, statErr := os.Stat(path)
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if os.IsNotExist(statErr) {
		// atomic.WriteFile keeps the temp file's mode for new files.
		if err := os.Chmod(path, filePerms); err != nil {
			return err
		}
	}
	return nil
}

func TitleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// New returns an empty document with the given lanes.
func New(ids model.IDSource, titles ...string) *Document {
	b := model.Board{ID: ids.NewID(model.KindBoard), Settings: settings.Settings{}, Lanes: []model.Lane{}}
	for _, t := range titles {
		b.Lanes = append(b.Lanes, model.Lane{ID: ids.NewID(model.KindLane), Title: t, Items: []model.Item{}})
	}
	return &Document{Frontmatter: map[string]any{settings.KeyPluginMarker: pluginMarker}, Board: b}
}
