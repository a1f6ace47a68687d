package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"kanban-cli/internal/model"
	"kanban-cli/internal/mutate"
	"kanban-cli/internal/state"
)

type viewMode int

const (
	modeBoard viewMode = iota
	modeInput
	modeConfirm
)

type inputPurpose int

const (
	inputNewItem inputPurpose = iota
	inputEditItem
	inputNewLane
	inputRenameLane
)

type selection struct {
	Lane int
	Item int
	// ItemID follows the selected card across moves; Item is the fallback once it is gone.
	ItemID model.ID
}

type confirmAction struct {
	prompt string
	run    func(m *appModel)
}

type appModel struct {
	opts   Options
	logger *log.Logger
	keys   keyMap
	help   help.Model
	input  textinput.Model
	styles styles

	// categories holds badge styles by lower-cased category name.
	categories map[string]lipgloss.Style

	board model.Board
	sel   selection

	width  int
	height int

	mode     viewMode
	purpose  inputPurpose
	confirm  *confirmAction
	showHelp bool

	flash    string
	flashErr bool
}

func newModel(opts Options) appModel {
	in := textinput.New()
	in.Prompt = "> "
	in.CharLimit = 0
	m := appModel{
		opts:       opts,
		logger:     loggerOr(opts.Logger),
		keys:       defaultKeyMap(),
		help:       help.New(),
		input:      in,
		styles:     newStyles(paletteFor(opts.Appearance)),
		categories: categoryStyles(opts.Categories),
		board:      opts.Container.CurrentTree(),
	}
	m.clamp()
	return m
}

func (m appModel) Init() tea.Cmd { return nil }

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.input.Width = max(10, msg.Width-4)
		return m, nil
	case boardChangedMsg:
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		switch m.mode {
		case modeInput:
			return m.updateInput(msg)
		case modeConfirm:
			return m.updateConfirm(msg), nil
		}
		return m.updateBoard(msg)
	}
	return m, nil
}

func (m appModel) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.flash = ""
	m.flashErr = false
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit
	case key.Matches(msg, k.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp

	case key.Matches(msg, k.Left):
		m.focusLane(m.sel.Lane - 1)
	case key.Matches(msg, k.Right):
		m.focusLane(m.sel.Lane + 1)
	case key.Matches(msg, k.Up):
		m.focusItem(m.sel.Item - 1)
	case key.Matches(msg, k.Down):
		m.focusItem(m.sel.Item + 1)

	case key.Matches(msg, k.MoveLeft):
		m.moveToLane(m.sel.Lane - 1)
	case key.Matches(msg, k.MoveRight):
		m.moveToLane(m.sel.Lane + 1)
	case key.Matches(msg, k.MoveUp):
		m.moveWithinLane(-1)
	case key.Matches(msg, k.MoveDown):
		m.moveWithinLane(1)
	case key.Matches(msg, k.Top):
		m.withItem("item.top", func(b model.Board, at model.Path, _ model.Item) (model.Board, error) {
			return mutate.MoveItemToTop(b, at)
		})
	case key.Matches(msg, k.Bottom):
		m.withItem("item.bottom", func(b model.Board, at model.Path, _ model.Item) (model.Board, error) {
			return mutate.MoveItemToBottom(b, at)
		})

	case key.Matches(msg, k.New):
		if len(m.board.Lanes) > 0 {
			return m, m.openInput(inputNewItem, "", "New card")
		}
	case key.Matches(msg, k.Edit):
		if it, ok := m.selectedItem(); ok {
			return m, m.openInput(inputEditItem, escapeNewlines(it.RawText), "Edit card")
		}
	case key.Matches(msg, k.Toggle):
		m.withItem("item.check", func(b model.Board, at model.Path, _ model.Item) (model.Board, error) {
			return mutate.ToggleChecked(b, at)
		})
	case key.Matches(msg, k.Duplicate):
		m.duplicate()
	case key.Matches(msg, k.Split):
		m.split()
	case key.Matches(msg, k.Link):
		m.link()
	case key.Matches(msg, k.Archive):
		m.archiveSelected()
	case key.Matches(msg, k.Delete):
		if it, ok := m.selectedItem(); ok {
			m.ask(fmt.Sprintf("Delete %q?", truncateTitle(it.Title(), 40)), func(m *appModel) { m.deleteSelected() })
		}

	case key.Matches(msg, k.NewLane):
		return m, m.openInput(inputNewLane, "", "New lane")
	case key.Matches(msg, k.RenameLane):
		if l, ok := m.selectedLane(); ok {
			return m, m.openInput(inputRenameLane, l.Title, "Rename lane")
		}
	case key.Matches(msg, k.LaneLeft):
		m.moveLane(-1)
	case key.Matches(msg, k.LaneRight):
		m.moveLane(1)
	case key.Matches(msg, k.CompleteLane):
		m.toggleLaneComplete()
	case key.Matches(msg, k.ClearLane):
		if l, ok := m.selectedLane(); ok && len(l.Items) > 0 {
			m.ask(fmt.Sprintf("Archive all %d cards in %s?", len(l.Items), l.Title), func(m *appModel) { m.archiveLane() })
		}
	}
	return m, nil
}

func (m appModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closeInput()
		return m, nil
	case tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		purpose := m.purpose
		m.closeInput()
		if text == "" {
			return m, nil
		}
		m.submit(purpose, text)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m appModel) updateConfirm(msg tea.KeyMsg) appModel {
	action := m.confirm
	m.confirm = nil
	m.mode = modeBoard
	switch msg.String() {
	case "y", "Y", "enter":
		if action != nil {
			action.run(&m)
		}
	default:
		m.flash = "cancelled"
	}
	return m
}

func (m *appModel) openInput(purpose inputPurpose, value, placeholder string) tea.Cmd {
	m.mode = modeInput
	m.purpose = purpose
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *appModel) closeInput() {
	m.mode = modeBoard
	m.input.Blur()
	m.input.SetValue("")
}

func (m *appModel) ask(prompt string, run func(m *appModel)) {
	m.mode = modeConfirm
	m.confirm = &confirmAction{prompt: prompt, run: run}
}

func (m *appModel) submit(purpose inputPurpose, text string) {
	switch purpose {
	case inputNewItem:
		m.addItem(unescapeNewlines(text))
	case inputEditItem:
		raw := unescapeNewlines(text)
		m.withItem("item.edit", func(b model.Board, at model.Path, it model.Item) (model.Board, error) {
			return mutate.UpdateItem(b, at, m.opts.Codec.UpdateContent(it, raw))
		})
	case inputNewLane:
		m.addLane(text)
	case inputRenameLane:
		m.withLane("lane.rename", func(b model.Board, at model.Path, l model.Lane) (model.Board, error) {
			l.Title = text
			return mutate.UpdateLane(b, at, l)
		})
	}
}

// selection

func (m *appModel) refresh() {
	m.board = m.opts.Container.CurrentTree()
	m.clamp()
}

func (m *appModel) clamp() {
	b := m.board
	if len(b.Lanes) == 0 {
		m.sel = selection{}
		return
	}
	if m.sel.ItemID != "" {
		if p, _, err := mutate.FindItem(b, m.sel.ItemID); err == nil {
			m.sel.Lane, m.sel.Item = p[0], p[1]
			return
		}
	}
	m.sel.Lane = clampInt(m.sel.Lane, 0, len(b.Lanes)-1)
	items := b.Lanes[m.sel.Lane].Items
	if len(items) == 0 {
		m.sel.Item = 0
		m.sel.ItemID = ""
		return
	}
	m.sel.Item = clampInt(m.sel.Item, 0, len(items)-1)
	m.sel.ItemID = items[m.sel.Item].ID
}

func (m *appModel) focusLane(i int) {
	m.sel.Lane = i
	m.sel.ItemID = ""
	m.clamp()
}

func (m *appModel) focusItem(i int) {
	m.sel.Item = i
	m.sel.ItemID = ""
	m.clamp()
}

func (m *appModel) focusID(id model.ID) {
	m.sel.ItemID = id
	m.clamp()
}

func (m appModel) selectedLane() (model.Lane, bool) {
	if m.sel.Lane < 0 || m.sel.Lane >= len(m.board.Lanes) {
		return model.Lane{}, false
	}
	return m.board.Lanes[m.sel.Lane], true
}

func (m appModel) selectedItem() (model.Item, bool) {
	l, ok := m.selectedLane()
	if !ok || m.sel.Item < 0 || m.sel.Item >= len(l.Items) {
		return model.Item{}, false
	}
	return l.Items[m.sel.Item], true
}

func (m appModel) selectedPath() model.Path {
	return model.Path{m.sel.Lane, m.sel.Item}
}

// edits

func (m *appModel) apply(ch Change, u state.Updater) bool {
	if err := m.opts.Container.Apply(u); err != nil {
		m.fail(err)
		return false
	}
	m.refresh()
	m.persist(ch)
	return true
}

func (m *appModel) fail(err error) {
	m.logger.Debug("tui change failed", "err", err)
	m.flash = err.Error()
	m.flashErr = true
}

func (m *appModel) withItem(typ string, fn func(model.Board, model.Path, model.Item) (model.Board, error)) {
	it, ok := m.selectedItem()
	if !ok {
		return
	}
	at := m.selectedPath()
	m.apply(Change{Type: typ, Kind: model.KindItem, ID: it.ID, Payload: map[string]any{"at": at.String()}},
		func(b model.Board) (model.Board, error) { return fn(b, at, it) })
}

func (m *appModel) withLane(typ string, fn func(model.Board, model.Path, model.Lane) (model.Board, error)) {
	l, ok := m.selectedLane()
	if !ok {
		return
	}
	at := model.Path{m.sel.Lane}
	m.apply(Change{Type: typ, Kind: model.KindLane, ID: l.ID, Payload: map[string]any{"index": at[0]}},
		func(b model.Board) (model.Board, error) { return fn(b, at, l) })
}

func (m *appModel) moveToLane(lane int) {
	if lane < 0 || lane >= len(m.board.Lanes) {
		return
	}
	m.withItem("item.move-to-lane", func(b model.Board, at model.Path, _ model.Item) (model.Board, error) {
		return mutate.MoveItemToLane(b, at, lane)
	})
}

func (m *appModel) moveWithinLane(delta int) {
	l, ok := m.selectedLane()
	if !ok {
		return
	}
	i := m.sel.Item
	if i+delta < 0 || i+delta >= len(l.Items) {
		return
	}
	to := i + delta
	if delta > 0 {
		// Move reads indexes past the source as if it were already removed.
		to++
	}
	m.withItem("item.move", func(b model.Board, at model.Path, _ model.Item) (model.Board, error) {
		return mutate.MoveEntity(b, at, model.Path{at[0], to})
	})
}

func (m *appModel) moveLane(delta int) {
	i := m.sel.Lane
	if i+delta < 0 || i+delta >= len(m.board.Lanes) {
		return
	}
	to := i + delta
	if delta > 0 {
		to++
	}
	from := model.Path{i}
	id := m.board.Lanes[i].ID
	payload := map[string]any{"from": i, "to": to}
	if m.apply(Change{Type: "lane.move", Kind: model.KindLane, ID: id, Payload: payload}, func(b model.Board) (model.Board, error) {
		return mutate.MoveEntity(b, from, model.Path{to})
	}) {
		if p, _, err := mutate.FindLane(m.board, id); err == nil {
			m.focusLane(p[0])
		}
	}
}

func (m *appModel) toggleLaneComplete() {
	m.withLane("lane.complete", func(b model.Board, at model.Path, l model.Lane) (model.Board, error) {
		l.ShouldMarkItemsComplete = !l.ShouldMarkItemsComplete
		return mutate.UpdateLane(b, at, l)
	})
}

func (m *appModel) addItem(raw string) {
	if _, ok := m.selectedLane(); !ok {
		return
	}
	it := m.opts.Codec.NewItem(m.opts.IDs, raw, false)
	lane := model.Path{m.sel.Lane}
	payload := map[string]any{"lane": lane[0], "rawText": raw}
	if m.apply(Change{Type: "item.add", Kind: model.KindItem, ID: it.ID, Payload: payload}, func(b model.Board) (model.Board, error) {
		return mutate.AddItemsToLane(b, lane, []model.Item{it}, m.opts.PrependNew)
	}) {
		m.focusID(it.ID)
	}
}

func (m *appModel) addLane(title string) {
	l := model.Lane{ID: m.opts.IDs.NewID(model.KindLane), Title: title, Items: []model.Item{}}
	pos := len(m.board.Lanes)
	if len(m.board.Lanes) > 0 {
		pos = m.sel.Lane + 1
	}
	if m.apply(Change{Type: "lane.add", Kind: model.KindLane, ID: l.ID, Payload: map[string]any{"title": title, "index": pos}}, func(b model.Board) (model.Board, error) {
		return mutate.InsertLanes(b, model.Path{pos}, l)
	}) {
		m.focusLane(pos)
	}
}

func (m *appModel) duplicate() {
	it, ok := m.selectedItem()
	if !ok {
		return
	}
	at := m.selectedPath()
	var copyAt model.Path
	if m.apply(Change{Type: "item.duplicate", Kind: model.KindItem, ID: it.ID, Payload: map[string]any{"from": at.String()}}, func(b model.Board) (model.Board, error) {
		nb, p, err := mutate.DuplicateEntity(b, at, m.opts.IDs)
		copyAt = p
		return nb, err
	}) && copyAt != nil {
		m.sel.ItemID = ""
		m.sel.Lane, m.sel.Item = copyAt[0], copyAt[1]
		m.clamp()
	}
}

func (m *appModel) split() {
	it, ok := m.selectedItem()
	if !ok {
		return
	}
	parts, err := m.opts.Codec.SplitItem(m.opts.IDs, it)
	if err != nil {
		m.fail(err)
		return
	}
	at := m.selectedPath()
	m.apply(Change{Type: "item.split", Kind: model.KindItem, ID: it.ID, Payload: map[string]any{"parts": len(parts)}}, func(b model.Board) (model.Board, error) {
		return mutate.SplitItem(b, at, parts)
	})
}

func (m *appModel) link() {
	it, ok := m.selectedItem()
	if !ok {
		return
	}
	updated, blockID := m.opts.Codec.EnsureBlockID(it, func() string { return model.NewBlockID(6) })
	if updated.RawText == it.RawText {
		m.flash = linkText(m.board.Title, blockID)
		return
	}
	at := m.selectedPath()
	if m.apply(Change{Type: "item.link", Kind: model.KindItem, ID: it.ID, Payload: map[string]any{"blockId": blockID}}, func(b model.Board) (model.Board, error) {
		return mutate.UpdateItem(b, at, updated)
	}) && !m.flashErr {
		m.flash = linkText(m.board.Title, blockID)
	}
}

func linkText(title, blockID string) string {
	return "[[" + strings.TrimSpace(title) + "#^" + blockID + "]]"
}

func (m *appModel) archiveSelected() {
	it, ok := m.selectedItem()
	if !ok {
		return
	}
	if _, err := state.ArchiveAt(m.opts.Container, m.opts.Archive, m.selectedPath()); err != nil {
		m.fail(err)
		return
	}
	m.refresh()
	m.persist(Change{Type: "item.archive", Kind: model.KindItem, ID: it.ID, Payload: map[string]any{"title": it.Title()}})
}

func (m *appModel) archiveLane() {
	l, ok := m.selectedLane()
	if !ok {
		return
	}
	items, err := state.ArchiveLane(m.opts.Container, m.opts.Archive, model.Path{m.sel.Lane})
	if err != nil {
		m.fail(err)
		return
	}
	m.refresh()
	m.persist(Change{Type: "lane.archive-items", Kind: model.KindLane, ID: l.ID, Payload: map[string]any{"archived": len(items)}})
}

// persist hands an applied change to Options.Save.
func (m *appModel) persist(ch Change) {
	if m.opts.Save != nil {
		if err := m.opts.Save(ch); err != nil {
			m.fail(fmt.Errorf("save: %w", err))
			return
		}
	}
	m.logger.Debug("tui change", "type", ch.Type, "id", ch.ID)
	m.flash = ch.Type
}

func (m *appModel) deleteSelected() {
	m.withItem("item.delete", func(b model.Board, at model.Path, _ model.Item) (model.Board, error) {
		return mutate.DeleteEntity(b, at)
	})
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// The input line is single-line; a literal \n stands for a line break in card text.
func escapeNewlines(s string) string   { return strings.ReplaceAll(s, "\n", `\n`) }
func unescapeNewlines(s string) string { return strings.ReplaceAll(s, `\n`, "\n") }
