package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"kanban-cli/internal/format"
	"kanban-cli/internal/model"
	"kanban-cli/internal/mutate"
	"kanban-cli/internal/state"
)

func newLanesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lanes",
		Short: "Lane commands",
	}
	cmd.AddCommand(newLanesListCmd(app))
	cmd.AddCommand(newLanesAddCmd(app))
	cmd.AddCommand(newLanesRenameCmd(app))
	cmd.AddCommand(newLanesCompleteCmd(app))
	cmd.AddCommand(newLanesDeleteCmd(app))
	cmd.AddCommand(newLanesMoveCmd(app))
	cmd.AddCommand(newLanesDuplicateCmd(app))
	cmd.AddCommand(newLanesArchiveItemsCmd(app))
	return cmd
}

type laneRow struct {
	Index                   int      `json:"index"`
	ID                      model.ID `json:"id"`
	Title                   string   `json:"title"`
	Items                   int      `json:"items"`
	ShouldMarkItemsComplete bool     `json:"shouldMarkItemsComplete"`
}

func laneRows(b model.Board) []laneRow {
	out := make([]laneRow, 0, len(b.Lanes))
	for i, l := range b.Lanes {
		out = append(out, laneRow{Index: i, ID: l.ID, Title: l.Title, Items: len(l.Items), ShouldMarkItemsComplete: l.ShouldMarkItemsComplete})
	}
	return out
}

func lanesText(rows []laneRow) string {
	var cells [][]string
	for _, r := range rows {
		done := ""
		if r.ShouldMarkItemsComplete {
			done = "yes"
		}
		cells = append(cells, []string{strconv.Itoa(r.Index), r.Title, strconv.Itoa(r.Items), done})
	}
	return format.Table([]string{"#", "LANE", "ITEMS", "COMPLETES"}, cells)
}

func newLanesListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List lanes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openBoard()
			if err != nil {
				return writeErr(cmd, err)
			}
			rows := laneRows(s.board())
			return writeOut(cmd, app, envelope{Data: rows, text: func() string { return lanesText(rows) }})
		},
	}
}

// laneResult is the output of single-lane mutations.
func laneResult(s *session, at model.Path) envelope {
	b := s.board()
	l := b.Lanes[at[0]]
	row := laneRow{Index: at[0], ID: l.ID, Title: l.Title, Items: len(l.Items), ShouldMarkItemsComplete: l.ShouldMarkItemsComplete}
	return envelope{
		Data: row,
		Meta: map[string]any{"file": s.path},
		text: func() string { return lanesText([]laneRow{row}) },
	}
}

func newLanesAddCmd(app *App) *cobra.Command {
	var at int
	var complete bool

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a lane (at the end unless --at is given)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			if title == "" {
				return writeErr(cmd, fmt.Errorf("lane title is required"))
			}
			s, err := app.openBoard()
			if err != nil {
				return writeErr(cmd, err)
			}
			lane := model.Lane{ID: s.ids.NewID(model.KindLane), Title: title, ShouldMarkItemsComplete: complete, Items: []model.Item{}}
			pos := len(s.board().Lanes)
			if cmd.Flags().Changed("at") {
				pos = at
			}
			if err := s.container.Apply(func(b model.Board) (model.Board, error) {
				return mutate.InsertLanes(b, model.Path{pos}, lane)
			}); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.commit(cmd.Context(), "lane.add", model.KindLane, lane.ID, map[string]any{"title": title, "index": pos}); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, laneResult(s, model.Path{pos}))
		},
	}
	cmd.Flags().IntVar(&at, "at", 0, "Insert position (0 = first)")
	cmd.Flags().BoolVar(&complete, "complete", false, "Mark cards moved into this lane as complete")
	return cmd
}

func newLanesRenameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <lane> <title>",
		Short: "Rename a lane",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args[1:], " "))
			if title == "" {
				return writeErr(cmd, fmt.Errorf("lane title is required"))
			}
			return updateLane(cmd, app, args[0], "lane.rename", func(l model.Lane) model.Lane {
				l.Title = title
				return l
			})
		},
	}
}

func newLanesCompleteCmd(app *App) *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   "complete <lane>",
		Short: "Mark cards moved into a lane as complete (--off to stop)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateLane(cmd, app, args[0], "lane.complete", func(l model.Lane) model.Lane {
				l.ShouldMarkItemsComplete = !off
				return l
			})
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "Clear the flag")
	return cmd
}

func updateLane(cmd *cobra.Command, app *App, laneArg, typ string, fn func(model.Lane) model.Lane) error {
	s, err := app.openBoard()
	if err != nil {
		return writeErr(cmd, err)
	}
	at, err := resolveLane(s.board(), laneArg)
	if err != nil {
		return writeErr(cmd, err)
	}
	var updated model.Lane
	if err := s.container.Apply(func(b model.Board) (model.Board, error) {
		updated = fn(b.Lanes[at[0]])
		return mutate.UpdateLane(b, at, updated)
	}); err != nil {
		return writeErr(cmd, err)
	}
	payload := map[string]any{"title": updated.Title, "shouldMarkItemsComplete": updated.ShouldMarkItemsComplete}
	if err := s.commit(cmd.Context(), typ, model.KindLane, updated.ID, payload); err != nil {
		return writeErr(cmd, err)
	}
	return writeOut(cmd, app, laneResult(s, at))
}

func newLanesDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <lane>",
		Short: "Delete a lane and its cards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openBoard()
			if err != nil {
				return writeErr(cmd, err)
			}
			at, err := resolveLane(s.board(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			removed := s.board().Lanes[at[0]]
			if err := s.container.Apply(func(b model.Board) (model.Board, error) {
				return mutate.DeleteEntity(b, at)
			}); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.commit(cmd.Context(), "lane.delete", model.KindLane, removed.ID, map[string]any{"title": removed.Title, "items": len(removed.Items)}); err != nil {
				return writeErr(cmd, err)
			}
			rows := laneRows(s.board())
			return writeOut(cmd, app, envelope{Data: rows, Meta: map[string]any{"deleted": removed.Title}, text: func() string { return lanesText(rows) }})
		},
	}
}

func newLanesMoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "move <lane> <index>",
		Short: "Move a lane to a new position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openBoard()
			if err != nil {
				return writeErr(cmd, err)
			}
			from, err := resolveLane(s.board(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			to, err := strconv.Atoi(strings.TrimSpace(args[1]))
			if err != nil {
				return writeErr(cmd, pathArgError{arg: args[1], want: "a lane index"})
			}
			id := s.board().Lanes[from[0]].ID
			if err := s.container.Apply(func(b model.Board) (model.Board, error) {
				return mutate.MoveEntity(b, from, model.Path{to})
			}); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.commit(cmd.Context(), "lane.move", model.KindLane, id, map[string]any{"from": from[0], "to": to}); err != nil {
				return writeErr(cmd, err)
			}
			at, _ := laneByID(s.board(), id)
			return writeOut(cmd, app, laneResult(s, at))
		},
	}
}

func laneByID(b model.Board, id model.ID) (model.Path, bool) {
	p, _, err := mutate.FindLane(b, id)
	return p, err == nil
}

func newLanesDuplicateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <lane>",
		Short: "Duplicate a lane and its cards next to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openBoard()
			if err != nil {
				return writeErr(cmd, err)
			}
			at, err := resolveLane(s.board(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			var copyAt model.Path
			if err := s.container.Apply(func(b model.Board) (model.Board, error) {
				nb, p, err := mutate.DuplicateEntity(b, at, s.ids)
				copyAt = p
				return nb, err
			}); err != nil {
				return writeErr(cmd, err)
			}
			copied := s.board().Lanes[copyAt[0]]
			if err := s.commit(cmd.Context(), "lane.duplicate", model.KindLane, copied.ID, map[string]any{"from": at[0], "to": copyAt[0]}); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, laneResult(s, copyAt))
		},
	}
}

func newLanesArchiveItemsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "archive-items <lane>",
		Short: "Archive every card in a lane",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openBoard()
			if err != nil {
				return writeErr(cmd, err)
			}
			at, err := resolveLane(s.board(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			lane := s.board().Lanes[at[0]]
			items, err := state.ArchiveLane(s.container, s.sink(cmd.Context()), at)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := s.commit(cmd.Context(), "lane.archive-items", model.KindLane, lane.ID, map[string]any{"archived": len(items)}); err != nil {
				return writeErr(cmd, err)
			}
			archived := archiveOrEmpty(items)
			return writeOut(cmd, app, envelope{
				Data: archived,
				Meta: map[string]any{"lane": lane.Title, "archived": len(items)},
				text: func() string { return fmt.Sprintf("archived %d cards from %s", len(items), lane.Title) },
			})
		},
	}
}
