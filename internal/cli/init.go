package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"kanban-cli/internal/mdfile"
	"kanban-cli/internal/model"
	"kanban-cli/internal/settings"
	"kanban-cli/internal/store"
)

func newInitCmd(app *App) *cobra.Command {
	var lanes string
	var force, makeDefault bool
	var setFlags []string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new board file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(app.File) == "" {
				return writeErr(cmd, errNoBoardFile)
			}
			if _, err := os.Stat(app.File); err == nil && !force {
				return writeErr(cmd, fmt.Errorf("%s already exists (use --force to overwrite)", app.File))
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return writeErr(cmd, err)
			}

			var titles []string
			for _, t := range strings.Split(lanes, ",") {
				if t = strings.TrimSpace(t); t != "" {
					titles = append(titles, t)
				}
			}
			doc := mdfile.New(model.NewGenerator(), titles...)
			for _, kv := range setFlags {
				k, v, ok := strings.Cut(kv, "=")
				if !ok {
					return writeErr(cmd, fmt.Errorf("invalid --set %q (want key=value)", kv))
				}
				doc.Board.Settings[strings.TrimSpace(k)] = settingValue(strings.TrimSpace(v))
			}
			if err := settings.Validate(doc.Board.Settings); err != nil {
				return writeErr(cmd, err)
			}
			// Fail on bad triggers now rather than on the first load.
			if _, err := app.codecs.Get(settings.Layered{doc.Board.Settings, app.defaults()}); err != nil {
				return writeErr(cmd, err)
			}
			if err := mdfile.Save(app.File, doc); err != nil {
				return writeErr(cmd, err)
			}
			doc.Board.Title = mdfile.TitleFromPath(app.File)
			meta := map[string]any{"file": app.File}
			if makeDefault {
				abs, err := filepath.Abs(app.File)
				if err != nil {
					return writeErr(cmd, err)
				}
				app.cfg.DefaultFile = abs
				if err := store.SaveConfig(app.cfg); err != nil {
					return writeErr(cmd, fmt.Errorf("save global config: %w", err))
				}
				app.logger.Info("default board set", "file", abs)
				meta["default"] = abs
			}
			return writeOut(cmd, app, envelope{
				Data: doc.Board,
				Meta: meta,
				text: func() string { return fmt.Sprintf("created %s with %d lanes", app.File, len(titles)) },
			})
		},
	}

	cmd.Flags().StringVar(&lanes, "lanes", "Todo,Doing,Done", "Comma-separated lane titles")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.Flags().BoolVar(&makeDefault, "default", false, "Record the board as defaultFile in the global config (rewrites the file without comments)")
	cmd.Flags().StringArrayVar(&setFlags, "set", nil, "Board setting key=value (repeatable), e.g. date-trigger=due:")
	return cmd
}

// settingValue keeps "true"/"false" as booleans; everything else stays a string.
func settingValue(v string) any {
	switch v {
	case "true":
		return true
	case "false":
		return false
	}
	return v
}
