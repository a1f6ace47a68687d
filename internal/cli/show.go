package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"kanban-cli/internal/format"
	"kanban-cli/internal/mdfile"
	"kanban-cli/internal/model"
)

func newShowCmd(app *App) *cobra.Command {
	var withArchive bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openBoard()
			if err != nil {
				return writeErr(cmd, err)
			}
			b := s.board()
			width := terminalWidth(cmd)
			meta := map[string]any{"file": s.path, "archived": len(s.doc.Archive)}
			var data any = b
			if withArchive {
				data = map[string]any{"board": b, "archive": archiveOrEmpty(s.doc.Archive)}
			}
			return writeOut(cmd, app, envelope{
				Data: data,
				Meta: meta,
				text: func() string {
					out := format.RenderBoard(b, width)
					if withArchive {
						out += "\n" + renderArchive(s.doc.Archive)
					}
					return out
				},
			})
		},
	}
	cmd.Flags().BoolVar(&withArchive, "archive", false, "Include archived cards")
	return cmd
}

func archiveOrEmpty(items []model.Item) []model.Item {
	if items == nil {
		return []model.Item{}
	}
	return items
}

func renderArchive(items []model.Item) string {
	if len(items) == 0 {
		return "Archive: (empty)"
	}
	lines := []string{"Archive:"}
	for _, it := range items {
		box := "[ ]"
		if it.Checked() {
			box = "[" + it.CheckChar + "]"
		}
		lines = append(lines, "  "+box+" "+format.Truncate(it.Title(), 72))
	}
	return strings.Join(lines, "\n")
}

func newExportCmd(app *App) *cobra.Command {
	var render bool
	var width int

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the board as markdown",
		Long:  "Print the board document as written to disk. With --render, render it for the terminal.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openBoard()
			if err != nil {
				return writeErr(cmd, err)
			}
			raw, err := mdfile.Format(s.doc)
			if err != nil {
				return writeErr(cmd, err)
			}
			out := string(raw)
			if render {
				if width <= 0 {
					width = terminalWidth(cmd)
				}
				style := ""
				if app.NoColor {
					style = "notty"
				}
				out, err = format.RenderMarkdown(boardMarkdown(s.board()), width, style)
				if err != nil {
					return writeErr(cmd, err)
				}
			}
			_, err = cmd.OutOrStdout().Write([]byte(out))
			return err
		},
	}
	cmd.Flags().BoolVar(&render, "render", false, "Render markdown for the terminal")
	cmd.Flags().IntVar(&width, "width", 0, "Wrap width for --render (default: terminal width)")
	return cmd
}

// boardMarkdown is a reading view of the board: lane headings and task lists,
// without front matter or the settings block.
func boardMarkdown(b model.Board) string {
	var sb strings.Builder
	if b.Title != "" {
		sb.WriteString("# " + b.Title + "\n\n")
	}
	for _, l := range b.Lanes {
		sb.WriteString("## " + l.Title + "\n\n")
		if len(l.Items) == 0 {
			sb.WriteString("_empty_\n\n")
			continue
		}
		for _, it := range l.Items {
			box := "[ ]"
			if it.Checked() {
				box = "[x]"
			}
			lines := strings.Split(it.RawText, "\n")
			sb.WriteString("- " + box + " " + lines[0] + "\n")
			for _, extra := range lines[1:] {
				sb.WriteString("  " + extra + "\n")
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
