package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"kanban-cli/internal/codec"
	"kanban-cli/internal/gitrepo"
	"kanban-cli/internal/mdfile"
	"kanban-cli/internal/model"
	"kanban-cli/internal/settings"
	"kanban-cli/internal/state"
	"kanban-cli/internal/store"
)

var errNoBoardFile = errors.New("no board file; pass --file, set KANBAN_FILE or defaultFile in the global config")

// session is one loaded board: the document, its state container and codec.
type session struct {
	app       *App
	path      string
	doc       *mdfile.Document
	ids       *model.Generator
	codec     *codec.Codec
	container *state.Container
	archive   *state.ArchiveList
	// committer batches git commits for long-lived sessions; nil commits each save.
	committer *gitrepo.DebouncedCommitter
}

func (app *App) defaults() settings.Getter {
	if app.cfg == nil {
		return nil
	}
	return app.cfg.Settings
}

func (app *App) store() (store.Store, bool) {
	if strings.TrimSpace(app.Index) == "" {
		return store.Store{}, false
	}
	return store.Store{Dir: app.Index}, true
}

func (app *App) openBoard() (*session, error) {
	if strings.TrimSpace(app.File) == "" {
		return nil, errNoBoardFile
	}
	ids := model.NewGenerator()
	doc, err := mdfile.Load(app.File, ids, app.defaults())
	if err != nil {
		return nil, err
	}
	c, err := app.codecs.Get(settings.Layered{doc.Board.Settings, app.defaults()})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", app.File, err)
	}
	s := &session{
		app:     app,
		path:    app.File,
		doc:     doc,
		ids:     ids,
		codec:   c,
		archive: state.NewArchiveList(doc.Archive),
	}
	s.container = state.New(doc.Board, state.WithLogger(app.logger))
	return s, nil
}

func (s *session) board() model.Board { return s.container.CurrentTree() }

func (s *session) settings() settings.Getter {
	return settings.WithDefaults(settings.Layered{s.board().Settings, s.app.defaults()})
}

// sink receives archived cards: the document's archive section, plus the index when enabled.
func (s *session) sink(ctx context.Context) state.ArchiveSink {
	st, ok := s.app.store()
	if !ok {
		return s.archive
	}
	return state.Sinks{s.archive, store.ArchiveSink{Store: st, Board: s.path, Ctx: ctx}}
}

// commit saves the board and records the change in the index.
func (s *session) commit(ctx context.Context, typ string, kind model.NodeKind, entityID model.ID, payload any) error {
	s.doc.Board = s.board()
	s.doc.Archive = s.archive.Items()
	if err := mdfile.Save(s.path, s.doc); err != nil {
		return err
	}
	s.app.logger.Info("saved board", "file", s.path, "change", typ)
	s.gitCommit(ctx, typ)

	st, ok := s.app.store()
	if !ok {
		return nil
	}
	if _, err := st.AppendEvent(ctx, s.path, typ, string(kind), string(entityID), payload); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	if err := st.Reindex(ctx, s.path, s.doc.Board, nil); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	s.app.logger.Debug("indexed board", "file", s.path, "dir", st.Dir)
	return nil
}

func (app *App) autoCommit() bool {
	return app.cfg != nil && app.cfg.Git != nil && app.cfg.Git.AutoCommit
}

// gitCommit commits the board file when auto-commit is on. Failures are logged, not returned:
// the board is already saved.
func (s *session) gitCommit(ctx context.Context, typ string) {
	if !s.app.autoCommit() {
		return
	}
	if s.committer != nil {
		s.committer.Notify(typ)
		return
	}
	committed, err := gitrepo.CommitFile(ctx, s.path, gitrepo.CommitMessage(s.doc.Board.Title, []string{typ}))
	if err != nil {
		s.app.logger.Warn("git commit failed", "file", s.path, "err", err)
		return
	}
	if committed {
		s.app.logger.Debug("committed board", "file", s.path)
	}
}

// startCommitter switches the session to batched commits; the returned func flushes them.
func (s *session) startCommitter() func(context.Context) {
	if !s.app.autoCommit() {
		return func(context.Context) {}
	}
	s.committer = gitrepo.NewDebouncedCommitter(gitrepo.DebouncedCommitterOpts{
		File:     s.path,
		Board:    s.doc.Board.Title,
		Debounce: time.Duration(s.app.cfg.Git.DebounceMs) * time.Millisecond,
		OnError: func(err error) {
			s.app.logger.Warn("git commit failed", "file", s.path, "err", err)
		},
	})
	return s.committer.Close
}

// resolveLane accepts a lane index or a lane title (case-insensitive, first match).
func resolveLane(b model.Board, arg string) (model.Path, error) {
	arg = strings.TrimSpace(arg)
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 0 || n >= len(b.Lanes) {
			return nil, model.PathOutOfRangeError{Path: model.Path{n}, Depth: 0, Index: n, Len: len(b.Lanes)}
		}
		return model.Path{n}, nil
	}
	for i, l := range b.Lanes {
		if strings.EqualFold(strings.TrimSpace(l.Title), arg) {
			return model.Path{i}, nil
		}
	}
	return nil, notFoundError{kind: "lane", id: arg}
}

// resolveItem accepts a lane/index path ("1/0") or a block reference ("^abc123").
func resolveItem(b model.Board, arg string) (model.Path, error) {
	arg = strings.TrimSpace(arg)
	if ref, ok := strings.CutPrefix(arg, "^"); ok {
		for i, l := range b.Lanes {
			for j, it := range l.Items {
				if it.Metadata.BlockID == ref {
					return model.Path{i, j}, nil
				}
			}
		}
		return nil, notFoundError{kind: "item", id: arg}
	}
	p, err := model.ParsePath(arg)
	if err != nil {
		return nil, err
	}
	if len(p) != 2 {
		return nil, pathArgError{arg: arg, want: "lane/index"}
	}
	if _, err := model.Resolve(b, p); err != nil {
		return nil, err
	}
	return p, nil
}

// resolveInsertPath accepts a lane/index path where index may equal the lane's length.
func resolveInsertPath(b model.Board, arg string) (model.Path, error) {
	p, err := model.ParsePath(arg)
	if err != nil {
		return nil, err
	}
	if len(p) != 2 {
		return nil, pathArgError{arg: arg, want: "lane/index"}
	}
	return p, nil
}

// terminalWidth is the stdout width, or 0 when stdout is not a terminal.
func terminalWidth(cmd *cobra.Command) int {
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}
