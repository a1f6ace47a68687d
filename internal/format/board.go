package format

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"kanban-cli/internal/model"
)

const (
	minLaneWidth     = 16
	defaultLaneWidth = 28
	laneGap          = 1
)

var (
	laneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "250", Dark: "240"}).
			Padding(0, 1)
	laneTitleStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "244", Dark: "245"})
	doneStyle      = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.AdaptiveColor{Light: "244", Dark: "245"})
	priorityStyles = map[model.Priority]lipgloss.Style{
		model.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		model.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		model.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("70")),
	}
)

// BoardText renders a board as side-by-side lanes. Width is the terminal width;
// zero or less uses a fixed lane width.
type BoardText struct {
	Board model.Board `json:"board"`
	Width int         `json:"-"`
}

func (bt BoardText) MarshalJSON() ([]byte, error) {
	return json.Marshal(bt.Board)
}

func (bt BoardText) Text() string {
	return RenderBoard(bt.Board, bt.Width)
}

// LaneWidth returns the inner column width used for n lanes in a terminal of the given width.
func LaneWidth(n, width int) int {
	if width <= 0 || n == 0 {
		return defaultLaneWidth
	}
	// Border (2) and padding (2) per lane, plus the gap between lanes.
	w := (width-laneGap*(n-1))/n - 4
	if w < minLaneWidth {
		return minLaneWidth
	}
	return w
}

func RenderBoard(b model.Board, width int) string {
	if len(b.Lanes) == 0 {
		return mutedStyle.Render("(no lanes)")
	}
	inner := LaneWidth(len(b.Lanes), width)
	cols := make([]string, 0, len(b.Lanes)*2)
	for i, l := range b.Lanes {
		if i > 0 {
			cols = append(cols, strings.Repeat(" ", laneGap))
		}
		cols = append(cols, RenderLane(l, i, inner))
	}
	out := lipgloss.JoinHorizontal(lipgloss.Top, cols...)
	if b.Title != "" {
		out = laneTitleStyle.Render(b.Title) + "\n" + out
	}
	return out
}

// RenderLane renders one lane column. Cards are labelled with their paths.
func RenderLane(l model.Lane, index, inner int) string {
	head := fmt.Sprintf("%s (%d)", l.Title, len(l.Items))
	if l.ShouldMarkItemsComplete {
		head += " ✓"
	}
	lines := []string{laneTitleStyle.Render(Truncate(head, inner)), ""}
	if len(l.Items) == 0 {
		lines = append(lines, mutedStyle.Render("(empty)"))
	}
	for j, it := range l.Items {
		lines = append(lines, CardLines(it, model.Path{index, j}, inner)...)
	}
	return laneStyle.Width(inner + 2).Render(strings.Join(lines, "\n"))
}

// CardLines renders a card as a title line plus an optional badge line.
func CardLines(it model.Item, at model.Path, inner int) []string {
	box := "[ ]"
	if it.Checked() {
		box = "[" + it.CheckChar + "]"
	}
	prefix := at.String() + " " + box + " "
	title := Truncate(it.Title(), inner-xansi.StringWidth(prefix))
	if it.Checked() {
		title = doneStyle.Render(title)
	}
	lines := []string{mutedStyle.Render(prefix) + title}
	if b := Badges(it.Metadata); b != "" {
		lines = append(lines, strings.Repeat(" ", xansi.StringWidth(prefix))+Truncate(b, inner-xansi.StringWidth(prefix)))
	}
	return lines
}

// Badges is a one-line summary of an item's metadata.
func Badges(md model.Metadata) string {
	var parts []string
	if md.Date != nil {
		d := "@" + md.Date.String()
		if md.Time != nil {
			d += " " + md.Time.String()
		}
		parts = append(parts, d)
	} else if md.Time != nil {
		parts = append(parts, "@"+md.Time.String())
	}
	if md.Priority != "" {
		p := "!" + string(md.Priority)
		if st, ok := priorityStyles[md.Priority]; ok {
			p = st.Render(p)
		}
		parts = append(parts, p)
	}
	if md.StoryPoints != nil {
		parts = append(parts, "#"+strconv.FormatFloat(*md.StoryPoints, 'f', -1, 64))
	}
	if md.Category != "" {
		parts = append(parts, "~"+md.Category)
	}
	return strings.Join(parts, " ")
}

func Truncate(s string, w int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.TrimSpace(s)
	if w <= 0 {
		return ""
	}
	if xansi.StringWidth(s) <= w {
		return s
	}
	if w <= 1 {
		return "…"
	}
	return xansi.Truncate(s, w, "…")
}

// Table renders rows as left-aligned columns separated by two spaces.
func Table(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = xansi.StringWidth(h)
	}
	for _, r := range rows {
		for i := range header {
			if i < len(r) {
				if w := xansi.StringWidth(r[i]); w > widths[i] {
					widths[i] = w
				}
			}
		}
	}
	var b strings.Builder
	writeRow := func(cells []string, style *lipgloss.Style) {
		for i := range header {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := widths[i] - xansi.StringWidth(cell)
			if style != nil {
				cell = style.Render(cell)
			}
			b.WriteString(cell)
			if i < len(header)-1 {
				b.WriteString(strings.Repeat(" ", pad+2))
			}
		}
		b.WriteString("\n")
	}
	writeRow(header, &laneTitleStyle)
	for _, r := range rows {
		writeRow(r, nil)
	}
	return strings.TrimRight(b.String(), "\n")
}
