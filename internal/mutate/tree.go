// Package mutate holds the pure tree edits behind every board operation.
//
// Every function takes a tree and returns a new one. The input is never modified and
// untouched subtrees are shared with the result. All paths are validated before anything
// is rebuilt, so an error always comes with the input left as it was.
package mutate

import (
	"kanban-cli/internal/model"
)

// Insert places nodes, in order, at the final index of at within its parent. Index
// len(children) appends.
func Insert(root model.Node, at model.Path, nodes ...model.Node) (model.Node, error) {
	parent, err := insertParent(root, at)
	if err != nil {
		return nil, err
	}
	if err := checkInsertable(root, parent, nodes); err != nil {
		return nil, err
	}
	idx := at.Last()
	return edit(root, at.Parent(), func(ch []model.Node) []model.Node {
		return spliced(ch, idx, 0, nodes)
	})
}

// Append adds nodes after the last child of parentPath.
func Append(root model.Node, parentPath model.Path, nodes ...model.Node) (model.Node, error) {
	parent, err := model.Resolve(root, parentPath)
	if err != nil {
		return nil, err
	}
	return Insert(root, parentPath.Child(len(parent.Children())), nodes...)
}

// Prepend adds nodes before the first child of parentPath.
func Prepend(root model.Node, parentPath model.Path, nodes ...model.Node) (model.Node, error) {
	if _, err := model.Resolve(root, parentPath); err != nil {
		return nil, err
	}
	return Insert(root, parentPath.Child(0), nodes...)
}

// Delete removes the node at path and returns it. The root cannot be deleted.
func Delete(root model.Node, at model.Path) (model.Node, model.Node, error) {
	node, err := resolveNonRoot(root, at)
	if err != nil {
		return nil, nil, err
	}
	idx := at.Last()
	out, err := edit(root, at.Parent(), func(ch []model.Node) []model.Node {
		return spliced(ch, idx, 1, nil)
	})
	if err != nil {
		return nil, nil, err
	}
	return out, node, nil
}

// Replace swaps the node at path for nodes; the first takes the original slot.
func Replace(root model.Node, at model.Path, nodes ...model.Node) (model.Node, error) {
	old, err := resolveNonRoot(root, at)
	if err != nil {
		return nil, err
	}
	parent, err := model.Resolve(root, at.Parent())
	if err != nil {
		return nil, err
	}
	// The replaced subtree leaves the tree, so its ids do not count as taken.
	drop := map[model.ID]bool{}
	model.Walk(old, func(n model.Node, _ model.Path) { drop[n.NodeID()] = true })
	if err := checkInsertableExcept(root, parent, nodes, drop); err != nil {
		return nil, err
	}
	idx := at.Last()
	return edit(root, at.Parent(), func(ch []model.Node) []model.Node {
		return spliced(ch, idx, 1, nodes)
	})
}

// Duplicate inserts a deep copy with fresh identities right after the node and returns
// the copy's path.
func Duplicate(root model.Node, at model.Path, ids model.IDSource) (model.Node, model.Path, error) {
	node, err := resolveNonRoot(root, at)
	if err != nil {
		return nil, nil, err
	}
	dst := at.WithLast(at.Last() + 1)
	out, err := Insert(root, dst, node.Clone(ids))
	if err != nil {
		return nil, nil, err
	}
	return out, dst, nil
}

// Move detaches the node at from and inserts it at to. When to lies under from's parent
// past from's index, the index is read as if from had already been removed. A move whose
// effective target equals from returns root unchanged.
func Move(root model.Node, from, to model.Path) (model.Node, error) {
	node, err := resolveNonRoot(root, from)
	if err != nil {
		return nil, err
	}
	parent, err := insertParent(root, to)
	if err != nil {
		return nil, err
	}
	if len(to) > len(from) && to.HasPrefix(from) {
		return nil, ErrMoveIntoSelf
	}
	if !parent.Accepts(node) {
		return nil, model.KindMismatchError{Parent: parent.NodeKind(), Child: node.NodeKind()}
	}

	target := correctedTarget(from, to)
	if target.Equal(from) {
		return root, nil
	}

	idx := from.Last()
	detached, err := edit(root, from.Parent(), func(ch []model.Node) []model.Node {
		return spliced(ch, idx, 1, nil)
	})
	if err != nil {
		return nil, err
	}
	at := target.Last()
	return edit(detached, target.Parent(), func(ch []model.Node) []model.Node {
		return spliced(ch, at, 0, []model.Node{node})
	})
}

// correctedTarget shifts to by one where it runs through from's parent past from.
func correctedTarget(from, to model.Path) model.Path {
	d := len(from) - 1
	target := to.Clone()
	if len(to) > d && to[:d].Equal(from[:d]) && to[d] > from[d] {
		target[d]--
	}
	return target
}

// MoveToTop moves the node to index 0 of its parent.
func MoveToTop(root model.Node, at model.Path) (model.Node, error) {
	if _, err := resolveNonRoot(root, at); err != nil {
		return nil, err
	}
	return Move(root, at, at.WithLast(0))
}

// MoveToBottom moves the node to the last index of its parent.
func MoveToBottom(root model.Node, at model.Path) (model.Node, error) {
	if _, err := resolveNonRoot(root, at); err != nil {
		return nil, err
	}
	parent, err := model.Resolve(root, at.Parent())
	if err != nil {
		return nil, err
	}
	return Move(root, at, at.WithLast(len(parent.Children())))
}

func resolveNonRoot(root model.Node, at model.Path) (model.Node, error) {
	if len(at) == 0 {
		return nil, model.PathOutOfRangeError{Path: model.Path{}, Depth: 0, Index: -1}
	}
	return model.Resolve(root, at)
}

// insertParent validates at as an insertion point: its parent must resolve and its final
// index may be anything from 0 to len(children).
func insertParent(root model.Node, at model.Path) (model.Node, error) {
	if len(at) == 0 {
		return nil, model.PathOutOfRangeError{Path: model.Path{}, Depth: 0, Index: -1}
	}
	parent, err := model.Resolve(root, at.Parent())
	if err != nil {
		return nil, err
	}
	n := len(parent.Children())
	if idx := at.Last(); idx < 0 || idx > n {
		return nil, model.PathOutOfRangeError{Path: at.Clone(), Depth: len(at) - 1, Index: idx, Len: n}
	}
	return parent, nil
}

func checkInsertable(root, parent model.Node, nodes []model.Node) error {
	return checkInsertableExcept(root, parent, nodes, nil)
}

func checkInsertableExcept(root, parent model.Node, nodes []model.Node, free map[model.ID]bool) error {
	taken := map[model.ID]bool{}
	model.Walk(root, func(n model.Node, _ model.Path) {
		if !free[n.NodeID()] {
			taken[n.NodeID()] = true
		}
	})
	for _, n := range nodes {
		if n == nil {
			return model.KindMismatchError{Parent: parent.NodeKind()}
		}
		if !parent.Accepts(n) {
			return model.KindMismatchError{Parent: parent.NodeKind(), Child: n.NodeKind()}
		}
		var bad error
		model.Walk(n, func(x model.Node, _ model.Path) {
			id := x.NodeID()
			if bad != nil {
				return
			}
			if id == "" || taken[id] {
				bad = model.DuplicateIDError{ID: id}
				return
			}
			taken[id] = true
		})
		if bad != nil {
			return bad
		}
	}
	return nil
}

// edit rebuilds the spine from root down to parentPath, replacing that node's children with
// fn's result. Siblings along the way are shared.
func edit(root model.Node, parentPath model.Path, fn func([]model.Node) []model.Node) (model.Node, error) {
	if len(parentPath) == 0 {
		return root.WithChildren(fn(root.Children()))
	}
	children := root.Children()
	i := parentPath[0]
	if i < 0 || i >= len(children) {
		return nil, model.PathOutOfRangeError{Path: parentPath.Clone(), Depth: 0, Index: i, Len: len(children)}
	}
	child, err := edit(children[i], parentPath[1:], fn)
	if err != nil {
		return nil, err
	}
	next := make([]model.Node, len(children))
	copy(next, children)
	next[i] = child
	return root.WithChildren(next)
}

// spliced returns a new slice with del elements at i replaced by ins.
func spliced(list []model.Node, i, del int, ins []model.Node) []model.Node {
	out := make([]model.Node, 0, len(list)-del+len(ins))
	out = append(out, list[:i]...)
	out = append(out, ins...)
	return append(out, list[i+del:]...)
}
