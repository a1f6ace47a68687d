package mdfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"kanban-cli/internal/model"
	"kanban-cli/internal/settings"
)

const pluginMarker = "basic"

// Format renders doc. Parse(Format(doc)) yields the same lanes, cards, archive and settings,
// and formatting that result again produces identical bytes.
func Format(doc *Document) ([]byte, error) {
	var buf bytes.Buffer

	front := map[string]any{}
	for k, v := range doc.Frontmatter {
		front[k] = v
	}
	if _, ok := front[settings.KeyPluginMarker]; !ok {
		front[settings.KeyPluginMarker] = pluginMarker
	}
	fm, err := yaml.Marshal(front)
	if err != nil {
		return nil, fmt.Errorf("front matter: %w", err)
	}
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n\n")

	for _, l := range doc.Board.Lanes {
		buf.WriteString("## " + l.Title + "\n\n")
		if l.ShouldMarkItemsComplete {
			buf.WriteString(completeMarker + "\n")
		}
		for _, it := range l.Items {
			writeItem(&buf, it)
		}
		buf.WriteString("\n")
	}

	if len(doc.Archive) > 0 {
		buf.WriteString(archiveRule + "\n\n")
		buf.WriteString("## " + archiveHeading + "\n\n")
		for _, it := range doc.Archive {
			writeItem(&buf, it)
		}
		buf.WriteString("\n")
	}

	s := settings.Merge(settings.Settings{settings.KeyPluginMarker: pluginMarker}, doc.Board.Settings)
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	buf.WriteString(settingsOpen + "\n")
	buf.WriteString(fence + "\n")
	buf.Write(raw)
	buf.WriteString("\n" + fence + "\n")
	buf.WriteString(settingsClose + "\n")
	return buf.Bytes(), nil
}

func writeItem(buf *bytes.Buffer, it model.Item) {
	check := it.CheckChar
	if len([]rune(check)) != 1 {
		check = " "
		if it.Checked() {
			check = model.DoneChar
		}
	}
	lines := strings.Split(it.RawText, "\n")
	buf.WriteString("- [" + check + "] " + lines[0] + "\n")
	for _, l := range lines[1:] {
		buf.WriteString(continuationPad + l + "\n")
	}
}
