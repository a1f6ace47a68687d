// Package tui is the interactive board: a keyboard front end that issues the same
// mutations as the CLI through the board's state container.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"kanban-cli/internal/codec"
	"kanban-cli/internal/logging"
	"kanban-cli/internal/model"
	"kanban-cli/internal/settings"
	"kanban-cli/internal/state"
)

// Change describes one committed edit, handed to Options.Save.
type Change struct {
	Type    string
	Kind    model.NodeKind
	ID      model.ID
	Payload map[string]any
}

type Options struct {
	Container *state.Container
	Codec     *codec.Codec
	IDs       model.IDSource
	// Archive receives archived cards. Nil drops them.
	Archive state.ArchiveSink
	// Save persists the board after every accepted change. Nil keeps edits in memory.
	Save func(Change) error
	// PrependNew adds new cards at the top of a lane instead of the bottom.
	PrependNew bool
	// LaneWidth fixes the lane width; 0 derives it from the window.
	LaneWidth  int
	Appearance string
	// Categories colours category badges; entries without a colour are ignored.
	Categories []settings.Category
	Logger     *log.Logger
}

// boardChangedMsg tells the model the container swapped its tree.
type boardChangedMsg struct{}

func Run(opts Options) error {
	m := newModel(opts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	// Listeners run inside Apply, which runs inside Update; Send would block the event loop.
	unsubscribe := opts.Container.Subscribe(func(_, _ model.Board) {
		go p.Send(boardChangedMsg{})
	})
	defer unsubscribe()
	_, err := p.Run()
	return err
}

func loggerOr(l *log.Logger) *log.Logger {
	if l == nil {
		return logging.Discard()
	}
	return l
}
