package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"kanban-cli/internal/docs"
	"kanban-cli/internal/format"
)

func newDocsCmd(app *App) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "docs [topic]",
		Short: "Show built-in documentation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				topics := docs.Topics()
				return writeOut(cmd, app, envelope{
					Data: map[string]any{"topics": topics},
					text: func() string { return strings.Join(topics, "\n") },
				})
			}

			topic := args[0]
			body, ok := docs.Get(topic)
			if !ok {
				return writeErr(cmd, fmt.Errorf("unknown docs topic: %q (run `kanban docs` to list topics)", topic))
			}
			if raw {
				_, err := fmt.Fprint(cmd.OutOrStdout(), body)
				return err
			}
			return writeOut(cmd, app, envelope{
				Data: map[string]any{"topic": topic, "markdown": body},
				text: func() string {
					style := ""
					if app.NoColor {
						style = "notty"
					}
					out, err := format.RenderMarkdown(body, terminalWidth(cmd), style)
					if err != nil {
						return body
					}
					return out
				},
			})
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print raw markdown (no envelope)")
	return cmd
}
