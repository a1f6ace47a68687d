package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"kanban-cli/internal/settings"
)

type appearanceID string

const (
	appearanceDefault   appearanceID = "default"
	appearanceDracula   appearanceID = "dracula"
	appearanceSolarized appearanceID = "solarized"
	appearanceMono      appearanceID = "mono"
)

var knownAppearances = []appearanceID{appearanceDefault, appearanceDracula, appearanceSolarized, appearanceMono}

// KnownAppearance reports whether id names a palette. The empty id is the default.
func KnownAppearance(id string) bool {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return true
	}
	for _, a := range knownAppearances {
		if string(a) == id {
			return true
		}
	}
	return false
}

type palette struct {
	muted          lipgloss.TerminalColor
	accent         lipgloss.TerminalColor
	cardBorder     lipgloss.TerminalColor
	selectedBorder lipgloss.TerminalColor
	selectedBg     lipgloss.TerminalColor
	selectedFg     lipgloss.TerminalColor
	errorFg        lipgloss.TerminalColor
	priority       map[string]lipgloss.TerminalColor
}

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func paletteFor(id string) palette {
	switch appearanceID(strings.ToLower(strings.TrimSpace(id))) {
	case appearanceDracula:
		return palette{
			muted:          ac("#4b5563", "#9aa0b1"),
			accent:         ac("#7c3aed", "#bd93f9"),
			cardBorder:     ac("#c7c7d1", "#44475a"),
			selectedBorder: ac("#7c3aed", "#ff79c6"),
			selectedBg:     ac("#d7d7cf", "#44475a"),
			selectedFg:     ac("#1f1f1f", "#f8f8f2"),
			errorFg:        ac("#b91c1c", "#ff5555"),
			priority: map[string]lipgloss.TerminalColor{
				"high": ac("#b91c1c", "#ff5555"), "medium": ac("#b45309", "#f1fa8c"), "low": ac("#4b5563", "#6272a4"),
			},
		}
	case appearanceSolarized:
		return palette{
			muted:          ac("#586e75", "#93a1a1"),
			accent:         ac("#268bd2", "#268bd2"),
			cardBorder:     ac("#93a1a1", "#586e75"),
			selectedBorder: ac("#268bd2", "#2aa198"),
			selectedBg:     ac("#eee8d5", "#073642"),
			selectedFg:     ac("#073642", "#eee8d5"),
			errorFg:        ac("#dc322f", "#dc322f"),
			priority: map[string]lipgloss.TerminalColor{
				"high": ac("#dc322f", "#dc322f"), "medium": ac("#b58900", "#b58900"), "low": ac("#586e75", "#839496"),
			},
		}
	case appearanceMono:
		none := lipgloss.NoColor{}
		return palette{
			muted: none, accent: none, cardBorder: none, selectedBorder: none,
			selectedBg: none, selectedFg: none, errorFg: none,
			priority: map[string]lipgloss.TerminalColor{},
		}
	default:
		return palette{
			muted:          ac("#6b7280", "#8a8a8a"),
			accent:         ac("#2563eb", "#62a0ea"),
			cardBorder:     ac("#d0d0d0", "#3a3a3a"),
			selectedBorder: ac("#2563eb", "#62a0ea"),
			selectedBg:     ac("#e5e7eb", "#303030"),
			selectedFg:     ac("#111111", "#f5f5f5"),
			errorFg:        ac("#b91c1c", "#f87171"),
			priority: map[string]lipgloss.TerminalColor{
				"high": ac("#b91c1c", "#f87171"), "medium": ac("#b45309", "#fbbf24"), "low": ac("#6b7280", "#8a8a8a"),
			},
		}
	}
}

type styles struct {
	lane         lipgloss.Style
	laneSelected lipgloss.Style
	laneTitle    lipgloss.Style
	card         lipgloss.Style
	cardSelected lipgloss.Style
	done         lipgloss.Style
	muted        lipgloss.Style
	status       lipgloss.Style
	err          lipgloss.Style
	priority     map[string]lipgloss.Style
}

func newStyles(p palette) styles {
	lane := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.cardBorder).Padding(0, 1)
	s := styles{
		lane:         lane,
		laneSelected: lane.BorderForeground(p.selectedBorder),
		laneTitle:    lipgloss.NewStyle().Bold(true).Foreground(p.accent),
		card:         lipgloss.NewStyle(),
		cardSelected: lipgloss.NewStyle().Background(p.selectedBg).Foreground(p.selectedFg).Bold(true),
		done:         lipgloss.NewStyle().Foreground(p.muted).Strikethrough(true),
		muted:        lipgloss.NewStyle().Foreground(p.muted),
		status:       lipgloss.NewStyle().Foreground(p.muted),
		err:          lipgloss.NewStyle().Foreground(p.errorFg).Bold(true),
		priority:     map[string]lipgloss.Style{},
	}
	for k, c := range p.priority {
		s.priority[k] = lipgloss.NewStyle().Foreground(c)
	}
	return s
}

// categoryStyles maps lower-cased category names to a badge style in their configured colour.
func categoryStyles(cats []settings.Category) map[string]lipgloss.Style {
	out := map[string]lipgloss.Style{}
	for _, c := range cats {
		if strings.TrimSpace(c.Color) == "" {
			continue
		}
		out[strings.ToLower(c.Name)] = lipgloss.NewStyle().Foreground(lipgloss.Color(c.Color))
	}
	return out
}
