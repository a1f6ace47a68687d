package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Left, Right, Up, Down key.Binding

	MoveLeft, MoveRight key.Binding
	MoveUp, MoveDown    key.Binding
	Top, Bottom         key.Binding

	New, Edit, Toggle key.Binding
	Duplicate, Split  key.Binding
	Archive, Delete   key.Binding
	Link              key.Binding

	NewLane, RenameLane     key.Binding
	LaneLeft, LaneRight     key.Binding
	CompleteLane, ClearLane key.Binding

	Help, Quit key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Left:  key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "lane left")),
		Right: key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "lane right")),
		Up:    key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		Down:  key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),

		MoveLeft:  key.NewBinding(key.WithKeys("H", "shift+left"), key.WithHelp("H", "card to lane left")),
		MoveRight: key.NewBinding(key.WithKeys("L", "shift+right"), key.WithHelp("L", "card to lane right")),
		MoveUp:    key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "card up")),
		MoveDown:  key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "card down")),
		Top:       key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "card to top")),
		Bottom:    key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "card to bottom")),

		New:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new card")),
		Edit:      key.NewBinding(key.WithKeys("e", "enter"), key.WithHelp("e", "edit card")),
		Toggle:    key.NewBinding(key.WithKeys("x", " "), key.WithHelp("x", "toggle done")),
		Duplicate: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "duplicate")),
		Split:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "split lines")),
		Archive:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "archive")),
		Delete:    key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Link:      key.NewBinding(key.WithKeys("^"), key.WithHelp("^", "add block id")),

		NewLane:      key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "new lane")),
		RenameLane:   key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "rename lane")),
		LaneLeft:     key.NewBinding(key.WithKeys("<"), key.WithHelp("<", "move lane left")),
		LaneRight:    key.NewBinding(key.WithKeys(">"), key.WithHelp(">", "move lane right")),
		CompleteLane: key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "toggle lane completes")),
		ClearLane:    key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "archive lane cards")),

		Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Left, k.Down, k.MoveRight, k.New, k.Edit, k.Toggle, k.Archive, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Left, k.Right, k.Up, k.Down},
		{k.MoveLeft, k.MoveRight, k.MoveUp, k.MoveDown, k.Top, k.Bottom},
		{k.New, k.Edit, k.Toggle, k.Duplicate, k.Split, k.Link},
		{k.Archive, k.Delete, k.NewLane, k.RenameLane, k.LaneLeft, k.LaneRight, k.CompleteLane, k.ClearLane},
		{k.Help, k.Quit},
	}
}
