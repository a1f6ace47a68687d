package format

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	mdRendererMu sync.Mutex
	// Renderers keyed by style and wrap width. A fixed style avoids WithAutoStyle's terminal queries.
	mdRenderers = map[string]*glamour.TermRenderer{}
)

// RenderMarkdown renders md for a terminal. style is a glamour standard style
// ("dark", "light", "notty", "ascii"); empty picks one from the environment.
func RenderMarkdown(md string, width int, style string) (string, error) {
	if strings.TrimSpace(md) == "" {
		return "", nil
	}
	if width < 20 {
		width = 80
	}
	if style == "" {
		style = MarkdownStyle()
	}

	key := style + ":" + strconv.Itoa(width)
	mdRendererMu.Lock()
	defer mdRendererMu.Unlock()
	r := mdRenderers[key]
	if r == nil {
		var err error
		r, err = glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return "", err
		}
		mdRenderers[key] = r
	}
	out, err := r.Render(md)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n") + "\n", nil
}

// MarkdownStyle follows KANBAN_MD_STYLE, then NO_COLOR, then the terminal background.
func MarkdownStyle() string {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("KANBAN_MD_STYLE"))) {
	case "light":
		return "light"
	case "dark":
		return "dark"
	case "notty", "plain":
		return "notty"
	}
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		return "notty"
	}
	if lipgloss.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

// SetColor switches styled output on or off. Enabled output follows termenv's
// environment detection, which honours CLICOLOR and CLICOLOR_FORCE.
func SetColor(enabled bool) {
	if !enabled || strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.EnvColorProfile())
}
