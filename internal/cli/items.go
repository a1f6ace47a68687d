package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"kanban-cli/internal/format"
	"kanban-cli/internal/grammar"
	"kanban-cli/internal/model"
	"kanban-cli/internal/mutate"
	"kanban-cli/internal/settings"
	"kanban-cli/internal/state"
)

func newItemsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Card commands",
		Long: strings.TrimSpace(`
Card commands. <item> is a lane/index path such as 1/0, or a block reference such as ^a1b2c3.
<lane> is a lane index or title.`),
	}
	cmd.AddCommand(newItemsListCmd(app))
	cmd.AddCommand(newItemsShowCmd(app))
	cmd.AddCommand(newItemsAddCmd(app))
	cmd.AddCommand(newItemsInsertCmd(app))
	cmd.AddCommand(newItemsDeleteCmd(app))
	cmd.AddCommand(newItemsArchiveCmd(app))
	cmd.AddCommand(newItemsDuplicateCmd(app))
	cmd.AddCommand(newItemsSplitCmd(app))
	cmd.AddCommand(newItemsMoveCmd(app))
	cmd.AddCommand(newItemsMoveToLaneCmd(app))
	cmd.AddCommand(newItemsTopCmd(app))
	cmd.AddCommand(newItemsBottomCmd(app))
	cmd.AddCommand(newItemsEditCmd(app))
	cmd.AddCommand(newItemsCheckCmd(app))
	cmd.AddCommand(newItemsSetCmd(app))
	cmd.AddCommand(newItemsLinkCmd(app))
	return cmd
}

type itemRow struct {
	Path model.Path `json:"path"`
	Lane string     `json:"lane"`
	model.Item
}

func itemRowsOf(b model.Board) []itemRow {
	out := []itemRow{}
	for i, l := range b.Lanes {
		for j, it := range l.Items {
			out = append(out, itemRow{Path: model.Path{i, j}, Lane: l.Title, Item: it})
		}
	}
	return out
}

func itemsText(rows []itemRow) string {
	var cells [][]string
	for _, r := range rows {
		box := "[ ]"
		if r.Checked() {
			box = "[" + r.CheckChar + "]"
		}
		cells = append(cells, []string{r.Path.String(), r.Lane, box, format.Truncate(r.Title(), 48), format.Badges(r.Metadata)})
	}
	return format.Table([]string{"PATH", "LANE", "", "TITLE", "META"}, cells)
}

// itemResult is the output of single-card mutations: the card at its current path.
func itemResult(s *session, id model.ID) envelope {
	b := s.board()
	p, it, err := mutate.FindItem(b, id)
	if err != nil {
		return envelope{Data: nil, Meta: map[string]any{"file": s.path}}
	}
	row := itemRow{Path: p, Lane: b.Lanes[p[0]].Title, Item: it}
	return envelope{
		Data: row,
		Meta: map[string]any{"file": s.path},
		text: func() string { return itemsText([]itemRow{row}) },
	}
}

func newItemsListCmd(app *App) *cobra.Command {
	var lane string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openBoard()
			if err != nil {
				return writeErr(cmd, err)
			}
			rows := itemRowsOf(s.board())
			if lane != "" {
				at, err := resolveLane(s.board(), lane)
				if err != nil {
					return writeErr(cmd, err)
				}
				kept := rows[:0]
				for _, r := range rows {
					if r.Path[0] == at[0] {
						kept = append(kept, r)
					}
				}
				rows = kept
			}
			return writeOut(cmd, app, envelope{Data: rows, text: func() string { return itemsText(rows) }})
		},
	}
	cmd.Flags().StringVar(&lane, "lane", "", "Only cards of this lane")
	return cmd
}

func newItemsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <item>",
		Short: "Show a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openBoard()
			if err != nil {
				return writeErr(cmd, err)
			}
			at, err := resolveItem(s.board(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			it := s.board().Lanes[at[0]].Items[at[1]]
			out := itemResult(s, it.ID)
			out.text = func() string {
				return itemsText([]itemRow{out.Data.(itemRow)}) + "\n\n" + it.RawText
			}
			return writeOut(cmd, app, out)
		},
	}
}

// prependNewCards reads new-card-insertion-method; prepend and prepend-compact both add at the top.
func prependNewCards(g settings.Getter) bool {
	return strings.HasPrefix(settings.String(g, settings.KeyInsertionMethod), "prepend")
}

func newItemsAddCmd(app *App) *cobra.Command {
	var checked, top, bottom bool

	cmd := &cobra.Command{
		Use:   "add <lane> <text...>",
		Short: "Add a card to a lane",
		Long: strings.TrimSpace(`
Add a card to a lane. The board's new-card-insertion-method decides top or bottom unless
--top or --bottom is given. Cards added to a lane that completes its cards are checked.`),
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openBoard()
			if err != nil {
				return writeErr(cmd, err)
			}
			lane, err := resolveLane(s.board(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			it := s.codec.NewItem(s.ids, strings.Join(args[1:], " "), checked)
			prepend := prependNewCards(s.settings())
			if top {
				prepend = true
			} else if bottom {
				prepend = false
			}
			if err := s.container.Apply(func(b model.Board) (model.Board, error) {
				return mutate.AddItemsToLane(b, lane, []model.Item{it}, prepend)
			}); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.commit(cmd.Context(), "item.add", model.KindItem, it.ID, map[string]any{"lane": lane[0], "rawText": it.RawText}); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, itemResult(s, it.ID))
		},
	}
	cmd.Flags().BoolVar(&checked, "checked", false, "Create the card checked")
	cmd.Flags().BoolVar(&top, "top", false, "Add at the top of the lane")
	cmd.Flags().BoolVar(&bottom, "bottom", false, "Add at the bottom of the lane")
	cmd.MarkFlagsMutuallyExclusive("top", "bottom")
	return cmd
}

func newItemsInsertCmd(app *App) *cobra.Command {
	var checked bool

	cmd := &cobra.Command{
		Use:   "insert <lane/index> <text...>",
		Short: "Insert a card at an exact position",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openBoard()
			if err != nil {
				return writeErr(cmd, err)
			}
			at, err := resolveInsertPath(s.board(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			it := s.codec.NewItem(s.ids, strings.Join(args[1:], " "), checked)
			if err := s.container.Apply(func(b model.Board) (model.Board, error) {
				return mutate.InsertItems(b, at, []model.Item{it})
			}); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.commit(cmd.Context(), "item.insert", model.KindItem, it.ID, map[string]any{"path": at.String(), "rawText": it.RawText}); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, itemResult(s, it.ID))
		},
	}
	cmd.Flags().BoolVar(&checked, "checked", false, "Create the card checked")
	return cmd
}

// itemCommand is the common shape of commands acting on one existing card.
func itemCommand(app *App, use, short, typ string, args cobra.PositionalArgs,
	run func(ctx context.Context, s *session, at model.Path, it model.Item, args []string) (model.ID, any, error),
) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openBoard()
			if err != nil {
				return writeErr(cmd, err)
			}
			at, err := resolveItem(s.board(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			it := s.board().Lanes[at[0]].Items[at[1]]
			id, payload, err := run(cmd.Context(), s, at, it, args[1:])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := s.commit(cmd.Context(), typ, model.KindItem, id, payload); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, itemResult(s, id))
		},
	}
}

func newItemsDeleteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <item>",
		Short: "Delete a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openBoard()
			if err != nil {
				return writeErr(cmd, err)
			}
			at, err := resolveItem(s.board(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			it := s.board().Lanes[at[0]].Items[at[1]]
			if err := s.container.Apply(func(b model.Board) (model.Board, error) {
				return mutate.DeleteEntity(b, at)
			}); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.commit(cmd.Context(), "item.delete", model.KindItem, it.ID, map[string]any{"path": at.String(), "rawText": it.RawText}); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{
				Data: itemRow{Path: at, Lane: s.board().Lanes[at[0]].Title, Item: it},
				Meta: map[string]any{"deleted": true},
				text: func() string { return "deleted " + at.String() + " " + it.Title() },
			})
		},
	}
	return cmd
}

func newItemsArchiveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <item>",
		Short: "Move a card to the board's archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openBoard()
			if err != nil {
				return writeErr(cmd, err)
			}
			at, err := resolveItem(s.board(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			lane := s.board().Lanes[at[0]].Title
			it, err := state.ArchiveAt(s.container, s.sink(cmd.Context()), at)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := s.commit(cmd.Context(), "item.archive", model.KindItem, it.ID, map[string]any{"lane": lane, "rawText": it.RawText}); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{
				Data: it,
				Meta: map[string]any{"archived": len(s.doc.Archive)},
				text: func() string { return "archived " + it.Title() },
			})
		},
	}
}

func newItemsDuplicateCmd(app *App) *cobra.Command {
	return itemCommand(app, "duplicate <item>", "Duplicate a card right below itself (the copy gets no ^block-id)", "item.duplicate", cobra.ExactArgs(1),
		func(_ context.Context, s *session, at model.Path, it model.Item, _ []string) (model.ID, any, error) {
			var copyAt model.Path
			if err := s.container.Apply(func(b model.Board) (model.Board, error) {
				nb, p, err := mutate.DuplicateEntity(b, at, s.ids)
				copyAt = p
				return nb, err
			}); err != nil {
				return "", nil, err
			}
			copied := s.board().Lanes[copyAt[0]].Items[copyAt[1]]
			return copied.ID, map[string]any{"from": it.ID, "path": copyAt.String()}, nil
		})
}

func newItemsSplitCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "split <item>",
		Short: "Split a multi-line card into one card per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openBoard()
			if err != nil {
				return writeErr(cmd, err)
			}
			at, err := resolveItem(s.board(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			it := s.board().Lanes[at[0]].Items[at[1]]
			parts, err := s.codec.SplitItem(s.ids, it)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := s.container.Apply(func(b model.Board) (model.Board, error) {
				return mutate.SplitItem(b, at, parts)
			}); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.commit(cmd.Context(), "item.split", model.KindItem, it.ID, map[string]any{"into": len(parts)}); err != nil {
				return writeErr(cmd, err)
			}
			b := s.board()
			rows := make([]itemRow, 0, len(parts))
			for i := range parts {
				p := model.Path{at[0], at[1] + i}
				rows = append(rows, itemRow{Path: p, Lane: b.Lanes[at[0]].Title, Item: b.Lanes[at[0]].Items[p[1]]})
			}
			return writeOut(cmd, app, envelope{Data: rows, text: func() string { return itemsText(rows) }})
		},
	}
}

func newItemsMoveCmd(app *App) *cobra.Command {
	return itemCommand(app, "move <item> <lane/index>", "Move a card to an exact position (index counted before removal)", "item.move", cobra.ExactArgs(2),
		func(_ context.Context, s *session, at model.Path, it model.Item, args []string) (model.ID, any, error) {
			to, err := resolveInsertPath(s.board(), args[0])
			if err != nil {
				return "", nil, err
			}
			if err := s.container.Apply(func(b model.Board) (model.Board, error) {
				return mutate.MoveEntity(b, at, to)
			}); err != nil {
				return "", nil, err
			}
			return it.ID, map[string]any{"from": at.String(), "to": to.String()}, nil
		})
}

func newItemsMoveToLaneCmd(app *App) *cobra.Command {
	return itemCommand(app, "move-to-lane <item> <lane>", "Move a card to the top of another lane", "item.move-to-lane", cobra.ExactArgs(2),
		func(_ context.Context, s *session, at model.Path, it model.Item, args []string) (model.ID, any, error) {
			lane, err := resolveLane(s.board(), args[0])
			if err != nil {
				return "", nil, err
			}
			if err := s.container.Apply(func(b model.Board) (model.Board, error) {
				return mutate.MoveItemToLane(b, at, lane[0])
			}); err != nil {
				return "", nil, err
			}
			return it.ID, map[string]any{"from": at.String(), "lane": lane[0]}, nil
		})
}

func newItemsTopCmd(app *App) *cobra.Command {
	return itemCommand(app, "top <item>", "Move a card to the top of its lane", "item.top", cobra.ExactArgs(1),
		func(_ context.Context, s *session, at model.Path, it model.Item, _ []string) (model.ID, any, error) {
			err := s.container.Apply(func(b model.Board) (model.Board, error) {
				return mutate.MoveItemToTop(b, at)
			})
			return it.ID, map[string]any{"from": at.String()}, err
		})
}

func newItemsBottomCmd(app *App) *cobra.Command {
	return itemCommand(app, "bottom <item>", "Move a card to the bottom of its lane", "item.bottom", cobra.ExactArgs(1),
		func(_ context.Context, s *session, at model.Path, it model.Item, _ []string) (model.ID, any, error) {
			err := s.container.Apply(func(b model.Board) (model.Board, error) {
				return mutate.MoveItemToBottom(b, at)
			})
			return it.ID, map[string]any{"from": at.String()}, err
		})
}

func newItemsEditCmd(app *App) *cobra.Command {
	return itemCommand(app, "edit <item> <text...>", "Replace a card's text", "item.edit", cobra.MinimumNArgs(2),
		func(_ context.Context, s *session, at model.Path, it model.Item, args []string) (model.ID, any, error) {
			raw := strings.TrimSpace(strings.Join(args, " "))
			updated := s.codec.UpdateContent(it, raw)
			err := s.container.Apply(func(b model.Board) (model.Board, error) {
				return mutate.UpdateItem(b, at, updated)
			})
			return it.ID, map[string]any{"rawText": raw}, err
		})
}

func newItemsCheckCmd(app *App) *cobra.Command {
	var on, off bool
	cmd := itemCommand(app, "check <item>", "Toggle a card's check box (--on/--off to force)", "item.check", cobra.ExactArgs(1),
		func(_ context.Context, s *session, at model.Path, it model.Item, _ []string) (model.ID, any, error) {
			err := s.container.Apply(func(b model.Board) (model.Board, error) {
				switch {
				case on:
					return mutate.UpdateItem(b, at, it.WithChecked(true))
				case off:
					return mutate.UpdateItem(b, at, it.WithChecked(false))
				default:
					return mutate.ToggleChecked(b, at)
				}
			})
			_, now, _ := mutate.FindItem(s.board(), it.ID)
			return it.ID, map[string]any{"checked": now.Checked()}, err
		})
	cmd.Flags().BoolVar(&on, "on", false, "Check the card")
	cmd.Flags().BoolVar(&off, "off", false, "Uncheck the card")
	cmd.MarkFlagsMutuallyExclusive("on", "off")
	return cmd
}

func newItemsSetCmd(app *App) *cobra.Command {
	var unset bool
	cmd := itemCommand(app, "set <item> <field> [value...]",
		"Set or clear a metadata field (date, time, priority, story-points, category)", "item.set", cobra.MinimumNArgs(2),
		func(_ context.Context, s *session, at model.Path, it model.Item, args []string) (model.ID, any, error) {
			kind, ok := grammar.ParseKind(args[0])
			if !ok {
				return "", nil, fmt.Errorf("unknown field %q (want date, time, priority, story-points or category)", args[0])
			}
			value := strings.TrimSpace(strings.Join(args[1:], " "))
			if unset == (value != "") {
				return "", nil, fmt.Errorf("set %s: give a value or --clear", kind)
			}
			updated := it
			if unset {
				var err error
				if updated, err = s.codec.ClearField(it, kind); err != nil {
					return "", nil, err
				}
			} else {
				v, err := s.codec.ParseValue(kind, value)
				if err != nil {
					return "", nil, err
				}
				if kind == grammar.KindCategory && !knownCategory(s.settings(), value) {
					s.app.logger.Warn("category is not in the board's list", "category", value)
				}
				if updated, err = s.codec.SetField(it, kind, v); err != nil {
					return "", nil, err
				}
			}
			err := s.container.Apply(func(b model.Board) (model.Board, error) {
				return mutate.UpdateItem(b, at, updated)
			})
			return it.ID, map[string]any{"field": kind.String(), "value": value, "rawText": updated.RawText}, err
		})
	cmd.Flags().BoolVar(&unset, "clear", false, "Remove the field's tag")
	return cmd
}

// knownCategory reports whether name is in the board's category list. Without a list every
// category is known.
func knownCategory(g settings.Getter, name string) bool {
	cats := settings.Categories(g)
	if len(cats) == 0 {
		return true
	}
	for _, c := range cats {
		if strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

func newItemsLinkCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link <item>",
		Short: "Print a block link to a card, adding a ^block-id when it has none",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openBoard()
			if err != nil {
				return writeErr(cmd, err)
			}
			at, err := resolveItem(s.board(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			it := s.board().Lanes[at[0]].Items[at[1]]
			updated, blockID := s.codec.EnsureBlockID(it, func() string { return model.NewBlockID(6) })
			if updated.RawText != it.RawText {
				if err := s.container.Apply(func(b model.Board) (model.Board, error) {
					return mutate.UpdateItem(b, at, updated)
				}); err != nil {
					return writeErr(cmd, err)
				}
				if err := s.commit(cmd.Context(), "item.link", model.KindItem, it.ID, map[string]any{"blockId": blockID}); err != nil {
					return writeErr(cmd, err)
				}
			}
			link := fmt.Sprintf("[[%s#^%s]]", s.doc.Board.Title, blockID)
			if s.doc.Board.Title == "" {
				link = fmt.Sprintf("[[#^%s]]", blockID)
			}
			return writeOut(cmd, app, envelope{
				Data: map[string]any{"link": link, "blockId": blockID, "path": at},
				text: func() string { return link },
			})
		},
	}
	return cmd
}
