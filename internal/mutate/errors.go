package mutate

import (
	"errors"
	"fmt"

	"kanban-cli/internal/model"
)

var ErrMoveIntoSelf = errors.New("cannot move a node into itself")

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// WrongKindError is returned when an operation addresses a node of an unexpected kind,
// e.g. archiving a lane path with the item archive.
type WrongKindError struct {
	Path model.Path
	Want model.NodeKind
	Got  model.NodeKind
}

func (e WrongKindError) Error() string {
	return fmt.Sprintf("path %s is a %s, want a %s", e.Path, e.Got, e.Want)
}

func (e WrongKindError) Is(target error) bool { return target == model.ErrKindMismatch }
