package model

import (
	"errors"
	"fmt"
)

var (
	ErrPathOutOfRange = errors.New("path out of range")
	ErrKindMismatch   = errors.New("kind mismatch")
	ErrDuplicateID    = errors.New("duplicate id")
)

// PathOutOfRangeError reports the first path component that did not resolve.
type PathOutOfRangeError struct {
	Path  Path
	Depth int
	Index int
	Len   int
}

func (e PathOutOfRangeError) Error() string {
	if len(e.Path) == 0 {
		return "path out of range: the board has no siblings"
	}
	return fmt.Sprintf("path %s out of range: index %d at depth %d (have %d)", e.Path, e.Index, e.Depth, e.Len)
}

func (e PathOutOfRangeError) Is(target error) bool { return target == ErrPathOutOfRange }

type KindMismatchError struct {
	Parent NodeKind
	Child  NodeKind
}

func (e KindMismatchError) Error() string {
	return fmt.Sprintf("a %s cannot hold a %s", e.Parent, e.Child)
}

func (e KindMismatchError) Is(target error) bool { return target == ErrKindMismatch }

type DuplicateIDError struct {
	ID ID
}

func (e DuplicateIDError) Error() string {
	return fmt.Sprintf("id already present in board: %s", e.ID)
}

func (e DuplicateIDError) Is(target error) bool { return target == ErrDuplicateID }

type PathSyntaxError struct {
	Input string
}

func (e *PathSyntaxError) Error() string {
	return fmt.Sprintf("invalid path %q (expected e.g. 0 or 0/2)", e.Input)
}
