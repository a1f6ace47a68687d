package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"kanban-cli/internal/format"
	"kanban-cli/internal/model"
)

const laneGap = 1

func (m appModel) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	header := m.styles.laneTitle.Render(titleOr(m.board.Title, "Board"))
	header += m.styles.muted.Render(fmt.Sprintf("  %d lanes", len(m.board.Lanes)))

	footer := m.footer(width)
	bodyHeight := 0
	if m.height > 0 {
		bodyHeight = m.height - lipgloss.Height(header) - lipgloss.Height(footer) - 1
	}

	return strings.Join([]string{header, m.renderLanes(width, bodyHeight), footer}, "\n")
}

func (m appModel) footer(width int) string {
	var lines []string
	switch m.mode {
	case modeInput:
		lines = append(lines, m.styles.muted.Render(inputLabel(m.purpose)), m.input.View())
	case modeConfirm:
		if m.confirm != nil {
			lines = append(lines, m.styles.err.Render(m.confirm.prompt)+m.styles.muted.Render("  y/n"))
		}
	default:
		if m.flash != "" {
			st := m.styles.status
			if m.flashErr {
				st = m.styles.err
			}
			lines = append(lines, st.Render(xansi.Truncate(m.flash, width, "…")))
		}
	}
	lines = append(lines, m.help.View(m.keys))
	return strings.Join(lines, "\n")
}

func inputLabel(p inputPurpose) string {
	switch p {
	case inputEditItem:
		return "Edit card (enter to save, esc to cancel, \\n for a new line)"
	case inputNewLane:
		return "New lane title"
	case inputRenameLane:
		return "Lane title"
	}
	return "New card (enter to add, esc to cancel)"
}

// laneWindow is the range of lanes that fit the width, keeping the selected lane visible.
func (m appModel) laneWindow(inner, width int) (start, end int) {
	n := len(m.board.Lanes)
	outer := inner + 4
	fit := (width + laneGap) / (outer + laneGap)
	if fit < 1 {
		fit = 1
	}
	if fit >= n {
		return 0, n
	}
	start = m.sel.Lane - fit + 1
	if start < 0 {
		start = 0
	}
	return start, start + fit
}

func (m appModel) laneInner(width int) int {
	if m.opts.LaneWidth > 0 {
		return m.opts.LaneWidth
	}
	return format.LaneWidth(len(m.board.Lanes), width)
}

func (m appModel) renderLanes(width, height int) string {
	if len(m.board.Lanes) == 0 {
		return m.styles.muted.Render("(no lanes; press N to add one)")
	}
	inner := m.laneInner(width)
	start, end := m.laneWindow(inner, width)

	cols := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		if i > start {
			cols = append(cols, strings.Repeat(" ", laneGap))
		}
		cols = append(cols, m.renderLane(i, inner, height))
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, cols...)
	if start > 0 || end < len(m.board.Lanes) {
		row += "\n" + m.styles.muted.Render(fmt.Sprintf("lanes %d-%d of %d", start+1, end, len(m.board.Lanes)))
	}
	return row
}

func (m appModel) renderLane(i, inner, height int) string {
	l := m.board.Lanes[i]
	selectedLane := i == m.sel.Lane

	title := fmt.Sprintf("%s (%d)", l.Title, len(l.Items))
	if l.ShouldMarkItemsComplete {
		title += " ✓"
	}
	lines := []string{m.styles.laneTitle.Render(xansi.Truncate(title, inner, "…"))}

	var body []string
	selStart, selEnd := -1, -1
	for j, it := range l.Items {
		selected := selectedLane && j == m.sel.Item
		card := m.cardLines(it, inner, selected)
		if selected {
			selStart, selEnd = len(body), len(body)+len(card)
		}
		body = append(body, card...)
	}
	if len(l.Items) == 0 {
		body = append(body, m.styles.muted.Render("(empty)"))
	}

	// Borders take two rows, the title one.
	if avail := height - 3; height > 0 && avail > 0 && len(body) > avail {
		off := 0
		if selEnd > avail {
			off = selEnd - avail
		}
		if selStart >= 0 && selStart < off {
			off = selStart
		}
		body = body[off:min(len(body), off+avail)]
	}
	lines = append(lines, body...)

	st := m.styles.lane
	if selectedLane {
		st = m.styles.laneSelected
	}
	return st.Width(inner + 2).Render(strings.Join(lines, "\n"))
}

func (m appModel) cardLines(it model.Item, inner int, selected bool) []string {
	box := "[ ]"
	if it.Checked() {
		box = "[" + it.CheckChar + "]"
	}
	title := xansi.Truncate(box+" "+it.Title(), inner, "…")
	var lines []string
	switch {
	case selected:
		lines = append(lines, m.styles.cardSelected.Width(inner).Render(title))
	case it.Checked():
		lines = append(lines, m.styles.done.Render(title))
	default:
		lines = append(lines, m.styles.card.Render(title))
	}
	if badges := format.Badges(it.Metadata); badges != "" {
		st := m.styles.muted
		if ps, ok := m.styles.priority[string(it.Metadata.Priority)]; ok {
			st = ps
		} else if cs, ok := m.categoryStyle(it.Metadata.Category); ok {
			st = cs
		}
		lines = append(lines, "    "+st.Render(xansi.Truncate(badges, inner-4, "…")))
	}
	return lines
}

func (m appModel) categoryStyle(name string) (lipgloss.Style, bool) {
	if name == "" {
		return lipgloss.Style{}, false
	}
	st, ok := m.categories[strings.ToLower(name)]
	return st, ok
}

func titleOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func truncateTitle(s string, w int) string { return xansi.Truncate(s, w, "…") }
