package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"kanban-cli/internal/settings"
	"kanban-cli/internal/tui"
)

func newTUICmd(app *App) *cobra.Command {
	var laneWidth int
	var appearance string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the board in an interactive terminal UI",
		Long:  "Open the board in an interactive terminal UI. Every change is saved as it is made.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
				return writeErr(cmd, fmt.Errorf("tui needs an interactive terminal"))
			}
			s, err := app.openBoard()
			if err != nil {
				return writeErr(cmd, err)
			}
			opts := tuiOptions(cmd.Context(), app, s)
			if cmd.Flags().Changed("lane-width") {
				opts.LaneWidth = laneWidth
			}
			if cmd.Flags().Changed("appearance") {
				opts.Appearance = appearance
			}
			if !tui.KnownAppearance(opts.Appearance) {
				return writeErr(cmd, fmt.Errorf("unknown appearance %q", opts.Appearance))
			}
			flush := s.startCommitter()
			defer flush(context.WithoutCancel(cmd.Context()))
			return tui.Run(opts)
		},
	}
	cmd.Flags().IntVar(&laneWidth, "lane-width", 0, "Lane width in cells (default: fit the terminal)")
	cmd.Flags().StringVar(&appearance, "appearance", "", "Palette: default, dracula, solarized, mono")
	return cmd
}

func tuiOptions(ctx context.Context, app *App, s *session) tui.Options {
	opts := tui.Options{
		Container:  s.container,
		Codec:      s.codec,
		IDs:        s.ids,
		Archive:    s.sink(ctx),
		PrependNew: prependNewCards(s.settings()),
		Categories: settings.Categories(s.settings()),
		Logger:     app.logger,
		Save: func(ch tui.Change) error {
			return s.commit(ctx, ch.Type, ch.Kind, ch.ID, ch.Payload)
		},
	}
	if app.cfg != nil && app.cfg.TUI != nil {
		opts.LaneWidth = app.cfg.TUI.LaneWidth
		opts.Appearance = app.cfg.TUI.Appearance
	}
	return opts
}
