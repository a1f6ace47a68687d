package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"kanban-cli/internal/format"
	"kanban-cli/internal/model"
	"kanban-cli/internal/store"
)

func (app *App) requireStore(command string) (store.Store, error) {
	st, ok := app.store()
	if !ok {
		return store.Store{}, indexRequiredError{command: command}
	}
	return st, nil
}

func newIndexCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Rebuild the SQLite index for the board",
		Long:  "Rebuild the SQLite index for the board from its markdown file. The file stays the source of truth.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.requireStore("index")
			if err != nil {
				return writeErr(cmd, err)
			}
			s, err := app.openBoard()
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := st.Reindex(cmd.Context(), s.path, s.board(), archiveOrEmpty(s.doc.Archive)); err != nil {
				return writeErr(cmd, err)
			}
			app.logger.Info("indexed board", "file", s.path, "dir", st.Dir)
			boards, err := st.Boards(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: boards, text: func() string { return boardsText(boards) }})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "boards",
		Short: "List indexed boards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.requireStore("index boards")
			if err != nil {
				return writeErr(cmd, err)
			}
			boards, err := st.Boards(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: boards, text: func() string { return boardsText(boards) }})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "forget",
		Short: "Drop the board from the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.requireStore("index forget")
			if err != nil {
				return writeErr(cmd, err)
			}
			if strings.TrimSpace(app.File) == "" {
				return writeErr(cmd, errNoBoardFile)
			}
			if err := st.Forget(cmd.Context(), app.File); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: map[string]any{"forgotten": store.BoardKey(app.File)}})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "archived",
		Short: "List the board's archived cards recorded in the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.requireStore("index archived")
			if err != nil {
				return writeErr(cmd, err)
			}
			if strings.TrimSpace(app.File) == "" {
				return writeErr(cmd, errNoBoardFile)
			}
			rows, err := st.Archived(cmd.Context(), app.File)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{
				Data: rows,
				Meta: map[string]any{"count": len(rows)},
				text: func() string {
					var cells [][]string
					for _, r := range rows {
						cells = append(cells, []string{r.ArchivedAt.Format(time.RFC3339), r.Lane, format.Truncate(r.RawText, 60)})
					}
					return format.Table([]string{"ARCHIVED", "LANE", "CARD"}, cells)
				},
			})
		},
	})
	return cmd
}

func boardsText(boards []store.BoardRow) string {
	var cells [][]string
	for _, b := range boards {
		cells = append(cells, []string{b.Title, strconv.Itoa(b.Lanes), strconv.Itoa(b.Items), b.Path})
	}
	return format.Table([]string{"BOARD", "LANES", "ITEMS", "PATH"}, cells)
}

func newQueryCmd(app *App) *cobra.Command {
	var (
		all                bool
		lane, category     string
		priority, text     string
		dueBefore          string
		checked, unchecked bool
		limit              int
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Search indexed cards",
		Long:  "Search cards in the SQLite index. Without --all only the current board is searched.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.requireStore("query")
			if err != nil {
				return writeErr(cmd, err)
			}
			f := store.Filter{
				Lane:     lane,
				Category: category,
				Priority: model.Priority(strings.ToLower(strings.TrimSpace(priority))),
				Text:     text,
				Limit:    limit,
			}
			if !all {
				if strings.TrimSpace(app.File) == "" {
					return writeErr(cmd, errNoBoardFile)
				}
				f.Board = app.File
			}
			if dueBefore != "" {
				t, err := time.Parse("2006-01-02", strings.TrimSpace(dueBefore))
				if err != nil {
					return writeErr(cmd, fmt.Errorf("--due-before: want YYYY-MM-DD: %w", err))
				}
				d := model.DateOf(t)
				f.DueBefore = &d
			}
			switch {
			case checked:
				v := true
				f.Checked = &v
			case unchecked:
				v := false
				f.Checked = &v
			}
			rows, err := st.Query(cmd.Context(), f)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{
				Data: rows,
				Meta: map[string]any{"count": len(rows)},
				text: func() string { return queryText(rows, all) },
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Search every indexed board")
	cmd.Flags().StringVar(&lane, "lane", "", "Lane title")
	cmd.Flags().StringVar(&category, "category", "", "Category")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority (low|medium|high)")
	cmd.Flags().StringVar(&text, "text", "", "Substring of the card text")
	cmd.Flags().StringVar(&dueBefore, "due-before", "", "Only cards dated before YYYY-MM-DD")
	cmd.Flags().BoolVar(&checked, "checked", false, "Only checked cards")
	cmd.Flags().BoolVar(&unchecked, "open", false, "Only unchecked cards")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows (0 = no limit)")
	cmd.MarkFlagsMutuallyExclusive("checked", "open")
	return cmd
}

func queryText(rows []store.ItemRow, withBoard bool) string {
	header := []string{"PATH", "LANE", "TITLE", "DATE", "PRIORITY"}
	if withBoard {
		header = append([]string{"BOARD"}, header...)
	}
	var cells [][]string
	for _, r := range rows {
		row := []string{r.Path.String(), r.Lane, format.Truncate(r.Title, 48), r.Date, string(r.Priority)}
		if withBoard {
			row = append([]string{r.Board}, row...)
		}
		cells = append(cells, row)
	}
	return format.Table(header, cells)
}

func newEventsCmd(app *App) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the board's change log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.requireStore("events")
			if err != nil {
				return writeErr(cmd, err)
			}
			if strings.TrimSpace(app.File) == "" {
				return writeErr(cmd, errNoBoardFile)
			}
			evs, err := st.ReadEvents(cmd.Context(), app.File, limit)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{
				Data: evs,
				text: func() string {
					var cells [][]string
					for _, ev := range evs {
						cells = append(cells, []string{strconv.FormatInt(ev.Seq, 10), ev.IssuedAt.Format(time.RFC3339), ev.Type, ev.EntityID})
					}
					return format.Table([]string{"SEQ", "AT", "TYPE", "ENTITY"}, cells)
				},
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Only the newest N events (0 = all)")
	return cmd
}
