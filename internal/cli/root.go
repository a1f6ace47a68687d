package cli

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"kanban-cli/internal/codec"
	"kanban-cli/internal/format"
	"kanban-cli/internal/logging"
	"kanban-cli/internal/store"
)

type App struct {
	File       string
	Index      string
	Format     string
	PrettyJSON bool
	LogLevel   string
	NoColor    bool

	cfg    *store.GlobalConfig
	logger *log.Logger
	codecs codec.Cache
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "kanban",
		Short:        "Markdown kanban boards from the command line",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Create a board and add a card
  kanban init --file sprint.md --lanes Todo,Doing,Done
  kanban items add Todo "Buy milk @{2024-01-01} !{high}" --file sprint.md

  # Show a board (shortcut for: kanban show --file sprint.md)
  kanban sprint.md

  # Interactive board
  kanban tui --file sprint.md
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.prepare(cmd)
	}

	cmd.PersistentFlags().StringVar(&app.File, "file", envOr("KANBAN_FILE", ""), "Board markdown file")
	cmd.PersistentFlags().StringVar(&app.Index, "index", envOr("KANBAN_INDEX", ""), "SQLite index directory (enables events, archive history and query)")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("KANBAN_FORMAT", ""), "Output format (json|yaml|text)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("KANBAN_LOG_LEVEL", "warn"), "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&app.NoColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(newInitCmd(app))
	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newLanesCmd(app))
	cmd.AddCommand(newItemsCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newIndexCmd(app))
	cmd.AddCommand(newQueryCmd(app))
	cmd.AddCommand(newEventsCmd(app))
	cmd.AddCommand(newTUICmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

// prepare fills unset options from the global config. Precedence: flag, env, config, default.
func (app *App) prepare(cmd *cobra.Command) error {
	app.logger = logging.New(cmd.ErrOrStderr(), logging.Options{
		Level:     logging.ParseLevel(app.LogLevel),
		Formatter: logging.ParseFormatter(os.Getenv("KANBAN_LOG_FORMAT")),
	})
	format.SetColor(!app.NoColor)

	cfg, err := store.LoadConfig()
	if err != nil {
		return writeErr(cmd, err)
	}
	app.cfg = cfg
	if app.File == "" {
		app.File = cfg.DefaultFile
	}
	if app.Index == "" {
		app.Index = cfg.IndexDir
	}
	if app.Format == "" {
		app.Format = cfg.Format
	}
	if app.Format == "" {
		app.Format = "json"
	}
	return nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// envelope is the output shape of every command: {"data": ..., "meta": ...}.
// text, when set, is what --format text prints.
type envelope struct {
	Data any            `json:"data"`
	Meta map[string]any `json:"meta,omitempty"`

	text func() string
}

func (e envelope) Text() string {
	if e.text != nil {
		return e.text()
	}
	var buf bytes.Buffer
	if err := format.WriteYAML(&buf, e.Data); err != nil {
		return fmt.Sprint(e.Data)
	}
	return buf.String()
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
