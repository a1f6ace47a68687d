// Package mdfile reads and writes the markdown board document: YAML front matter, one
// "## " heading per lane, a "- [ ] " line per card, an optional archive section and a
// trailing settings block.
package mdfile

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"

	"kanban-cli/internal/codec"
	"kanban-cli/internal/model"
	"kanban-cli/internal/settings"
)

const (
	completeMarker  = "**Complete**"
	archiveRule     = "***"
	archiveHeading  = "Archive"
	settingsOpen    = "%% kanban:settings"
	settingsClose   = "%%"
	fence           = "```"
	continuationPad = "    "
)

var itemLineRe = regexp.MustCompile(`^[-*+] \[(.)\](?: (.*))?$`)

// Document is one parsed board file.
type Document struct {
	Frontmatter map[string]any
	Board       model.Board
	Archive     []model.Item
}

type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Parse reads a board document. Identities are issued from ids; item metadata is decoded
// with the document's own settings layered over defaults.
func Parse(src []byte, ids model.IDSource, defaults settings.Getter) (*Document, error) {
	lines := splitLines(src)

	front, body, err := splitFrontmatter(lines)
	if err != nil {
		return nil, err
	}
	body, boardSettings, err := splitSettings(body)
	if err != nil {
		return nil, err
	}
	c, err := codec.FromSettings(settings.Layered{boardSettings, defaults})
	if err != nil {
		return nil, fmt.Errorf("board settings: %w", err)
	}

	doc := &Document{
		Frontmatter: front,
		Board: model.Board{
			ID:       ids.NewID(model.KindBoard),
			Settings: boardSettings,
			Lanes:    []model.Lane{},
		},
	}

	var (
		lane      *model.Lane
		cur       *model.Item
		inArchive bool
		sawRule   bool
	)
	flushItem := func() {
		if cur == nil {
			return
		}
		it := c.UpdateContent(*cur, cur.RawText)
		if inArchive {
			doc.Archive = append(doc.Archive, it)
		} else {
			lane.Items = append(lane.Items, it)
		}
		cur = nil
	}
	flushLane := func() {
		flushItem()
		if lane != nil {
			doc.Board.Lanes = append(doc.Board.Lanes, *lane)
			lane = nil
		}
	}

	for _, ln := range body {
		text := ln.text
		if cur != nil && (strings.HasPrefix(text, continuationPad) || strings.HasPrefix(text, "\t")) {
			if strings.HasPrefix(text, "\t") {
				text = text[1:]
			} else {
				text = text[len(continuationPad):]
			}
			cur.RawText += "\n" + text
			continue
		}
		trimmed := strings.TrimSpace(text)
		switch {
		case trimmed == "":
			flushItem()
		case strings.HasPrefix(text, "## "):
			flushLane()
			title := strings.TrimSpace(text[3:])
			if sawRule && title == archiveHeading {
				inArchive = true
				continue
			}
			if inArchive {
				return nil, &SyntaxError{Line: ln.no, Msg: "lane heading after the archive section"}
			}
			lane = &model.Lane{ID: ids.NewID(model.KindLane), Title: title, Items: []model.Item{}}
		case trimmed == archiveRule:
			flushLane()
			sawRule = true
		case trimmed == completeMarker:
			if lane == nil || len(lane.Items) > 0 || cur != nil {
				return nil, &SyntaxError{Line: ln.no, Msg: completeMarker + " must follow a lane heading"}
			}
			lane.ShouldMarkItemsComplete = true
		default:
			m := itemLineRe.FindStringSubmatch(text)
			if m == nil {
				return nil, &SyntaxError{Line: ln.no, Msg: fmt.Sprintf("unexpected text %q", trimmed)}
			}
			if lane == nil && !inArchive {
				return nil, &SyntaxError{Line: ln.no, Msg: "card outside of a lane"}
			}
			flushItem()
			cur = &model.Item{ID: ids.NewID(model.KindItem), CheckChar: m[1], RawText: m[2]}
		}
	}
	flushLane()
	return doc, nil
}

type line struct {
	no   int
	text string
}

func splitLines(src []byte) []line {
	var out []line
	sc := bufio.NewScanner(bytes.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		out = append(out, line{no: n, text: strings.TrimRight(sc.Text(), "\r")})
	}
	return out
}

func splitFrontmatter(lines []line) (map[string]any, []line, error) {
	front := map[string]any{}
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i].text) == "" {
		i++
	}
	if i >= len(lines) || strings.TrimSpace(lines[i].text) != "---" {
		return front, lines[i:], nil
	}
	start := i + 1
	for j := start; j < len(lines); j++ {
		if strings.TrimSpace(lines[j].text) != "---" {
			continue
		}
		var b strings.Builder
		for _, ln := range lines[start:j] {
			b.WriteString(ln.text)
			b.WriteByte('\n')
		}
		if err := yaml.Unmarshal([]byte(b.String()), &front); err != nil {
			return nil, nil, &SyntaxError{Line: lines[i].no, Msg: "front matter: " + err.Error()}
		}
		if front == nil {
			front = map[string]any{}
		}
		return front, lines[j+1:], nil
	}
	return nil, nil, &SyntaxError{Line: lines[i].no, Msg: "unterminated front matter"}
}

// splitSettings cuts the trailing settings block off body and decodes it. The block is
// read as JSONC so hand edits may carry comments and trailing commas.
func splitSettings(body []line) ([]line, settings.Settings, error) {
	open := -1
	for i := len(body) - 1; i >= 0; i-- {
		if strings.TrimSpace(body[i].text) == settingsOpen {
			open = i
			break
		}
	}
	if open < 0 {
		return body, settings.Settings{}, nil
	}
	var (
		raw     strings.Builder
		inFence bool
		closed  bool
	)
	for _, ln := range body[open+1:] {
		t := strings.TrimSpace(ln.text)
		switch {
		case !inFence && t == fence:
			inFence = true
		case inFence && t == fence:
			inFence = false
		case inFence:
			raw.WriteString(ln.text)
			raw.WriteByte('\n')
		case t == settingsClose:
			closed = true
		case t == "":
		default:
			return nil, nil, &SyntaxError{Line: ln.no, Msg: "unexpected text in settings block"}
		}
	}
	if !closed {
		return nil, nil, &SyntaxError{Line: body[open].no, Msg: "unterminated settings block"}
	}
	s := settings.Settings{}
	if strings.TrimSpace(raw.String()) != "" {
		std, err := hujson.Standardize([]byte(raw.String()))
		if err != nil {
			return nil, nil, &SyntaxError{Line: body[open].no, Msg: "settings: invalid JSONC: " + err.Error()}
		}
		if err := json.Unmarshal(std, &s); err != nil {
			return nil, nil, &SyntaxError{Line: body[open].no, Msg: "settings: " + err.Error()}
		}
	}
	if err := settings.Validate(s); err != nil {
		return nil, nil, err
	}
	return body[:open], s, nil
}
