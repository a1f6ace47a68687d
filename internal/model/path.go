package model

import (
	"strconv"
	"strings"
)

// Node is one entity of the board tree. Implementations are values; WithChildren and
// Clone return modified copies and never touch the receiver.
type Node interface {
	NodeID() ID
	NodeKind() NodeKind
	Children() []Node
	Accepts(child Node) bool
	WithChildren(children []Node) (Node, error)
	// Clone copies the node's data with a fresh identity for it and every descendant.
	Clone(ids IDSource) Node
}

// Path selects a descendant by child index at each depth: [] is the board, [i] lane i,
// [i, j] item j of lane i. Paths are only meaningful against the snapshot they came from.
type Path []int

func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	parts := make([]string, len(p))
	for i, x := range p {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, "/")
}

// ParsePath accepts "/" (root), "2" and "2/5" style paths; "." is accepted as a separator too.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "/" {
		return Path{}, nil
	}
	s = strings.Trim(s, "/")
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '.' })
	out := make(Path, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, &PathSyntaxError{Input: s}
		}
		if n < 0 {
			return nil, &PathSyntaxError{Input: s}
		}
		out = append(out, n)
	}
	return out, nil
}

func (p Path) Clone() Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// Parent drops the final component. The root's parent is the root.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return Path{}
	}
	return p[:len(p)-1].Clone()
}

// Last returns the final component, or -1 for the root.
func (p Path) Last() int {
	if len(p) == 0 {
		return -1
	}
	return p[len(p)-1]
}

// WithLast returns a copy with the final component replaced.
func (p Path) WithLast(i int) Path {
	out := p.Clone()
	if len(out) > 0 {
		out[len(out)-1] = i
	}
	return out
}

// Child returns a copy extended by one component.
func (p Path) Child(i int) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, i)
}

func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether q is an ancestor-or-self path of p.
func (p Path) HasPrefix(q Path) bool {
	if len(q) > len(p) {
		return false
	}
	return p[:len(q)].Equal(q)
}

// Resolve walks path against the children of each node. Any index outside
// [0, len(children)) fails with PathOutOfRangeError.
func Resolve(root Node, path Path) (Node, error) {
	cur := root
	for depth, idx := range path {
		children := cur.Children()
		if idx < 0 || idx >= len(children) {
			return nil, PathOutOfRangeError{Path: path.Clone(), Depth: depth, Index: idx, Len: len(children)}
		}
		cur = children[idx]
	}
	return cur, nil
}

// SiblingsOf returns the children of path's parent, including the node at path itself.
func SiblingsOf(root Node, path Path) ([]Node, error) {
	if len(path) == 0 {
		return nil, PathOutOfRangeError{Path: Path{}, Depth: 0, Index: -1, Len: 0}
	}
	if _, err := Resolve(root, path); err != nil {
		return nil, err
	}
	parent, err := Resolve(root, path.Parent())
	if err != nil {
		return nil, err
	}
	return parent.Children(), nil
}

// PathOf finds the current path of the node with the given identity.
func PathOf(root Node, id ID) (Path, bool) {
	var walk func(n Node, at Path) (Path, bool)
	walk = func(n Node, at Path) (Path, bool) {
		if n.NodeID() == id {
			return at, true
		}
		for i, ch := range n.Children() {
			if p, ok := walk(ch, at.Child(i)); ok {
				return p, true
			}
		}
		return nil, false
	}
	return walk(root, Path{})
}

// Walk visits every node depth-first, parents before children.
func Walk(root Node, fn func(n Node, at Path)) {
	var walk func(n Node, at Path)
	walk = func(n Node, at Path) {
		fn(n, at)
		for i, ch := range n.Children() {
			walk(ch, at.Child(i))
		}
	}
	walk(root, Path{})
}
