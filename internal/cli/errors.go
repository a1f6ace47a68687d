package cli

import "fmt"

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

type pathArgError struct {
	arg  string
	want string
}

func (e pathArgError) Error() string {
	return fmt.Sprintf("invalid path %q: want %s", e.arg, e.want)
}

type indexRequiredError struct {
	command string
}

func (e indexRequiredError) Error() string {
	return fmt.Sprintf("%s needs the SQLite index; pass --index, set KANBAN_INDEX or indexDir in the global config", e.command)
}
