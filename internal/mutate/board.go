package mutate

import (
	"kanban-cli/internal/model"
)

func asBoard(n model.Node, err error) (model.Board, error) {
	if err != nil {
		return model.Board{}, err
	}
	return n.(model.Board), nil
}

func itemNodes(items []model.Item) []model.Node {
	out := make([]model.Node, len(items))
	for i := range items {
		out[i] = items[i]
	}
	return out
}

func itemAt(b model.Board, at model.Path) (model.Item, error) {
	n, err := resolveNonRoot(b, at)
	if err != nil {
		return model.Item{}, err
	}
	it, ok := n.(model.Item)
	if !ok {
		return model.Item{}, WrongKindError{Path: at.Clone(), Want: model.KindItem, Got: n.NodeKind()}
	}
	return it, nil
}

func laneAt(b model.Board, at model.Path) (model.Lane, error) {
	n, err := resolveNonRoot(b, at)
	if err != nil {
		return model.Lane{}, err
	}
	l, ok := n.(model.Lane)
	if !ok {
		return model.Lane{}, WrongKindError{Path: at.Clone(), Want: model.KindLane, Got: n.NodeKind()}
	}
	return l, nil
}

// InsertItems inserts items in order at at; existing items from that index shift right.
func InsertItems(b model.Board, at model.Path, items []model.Item) (model.Board, error) {
	return asBoard(Insert(b, at, itemNodes(items)...))
}

func AppendItems(b model.Board, lane model.Path, items []model.Item) (model.Board, error) {
	return asBoard(Append(b, lane, itemNodes(items)...))
}

func PrependItems(b model.Board, lane model.Path, items []model.Item) (model.Board, error) {
	return asBoard(Prepend(b, lane, itemNodes(items)...))
}

// InsertLanes inserts lanes at board index at[0].
func InsertLanes(b model.Board, at model.Path, lanes ...model.Lane) (model.Board, error) {
	nodes := make([]model.Node, len(lanes))
	for i := range lanes {
		nodes[i] = lanes[i]
	}
	return asBoard(Insert(b, at, nodes...))
}

// DeleteEntity removes the lane or item at path.
func DeleteEntity(b model.Board, at model.Path) (model.Board, error) {
	out, _, err := Delete(b, at)
	return asBoard(out, err)
}

// ArchiveItem removes the item from the live tree and returns it for the archive sink.
func ArchiveItem(b model.Board, at model.Path) (model.Board, model.Item, error) {
	it, err := itemAt(b, at)
	if err != nil {
		return model.Board{}, model.Item{}, err
	}
	out, _, err := Delete(b, at)
	if err != nil {
		return model.Board{}, model.Item{}, err
	}
	return out.(model.Board), it, nil
}

// ArchiveLaneItems empties the lane and returns its former items in order.
func ArchiveLaneItems(b model.Board, lane model.Path) (model.Board, []model.Item, error) {
	l, err := laneAt(b, lane)
	if err != nil {
		return model.Board{}, nil, err
	}
	if len(l.Items) == 0 {
		return b, nil, nil
	}
	out, err := edit(b, lane, func([]model.Node) []model.Node { return nil })
	if err != nil {
		return model.Board{}, nil, err
	}
	archived := make([]model.Item, len(l.Items))
	copy(archived, l.Items)
	return out.(model.Board), archived, nil
}

// DuplicateEntity copies a lane or item right after itself with new identities.
func DuplicateEntity(b model.Board, at model.Path, ids model.IDSource) (model.Board, model.Path, error) {
	out, p, err := Duplicate(b, at, ids)
	if err != nil {
		return model.Board{}, nil, err
	}
	return out.(model.Board), p, nil
}

// SplitItem replaces the item at path with items; the first keeps the slot, the rest follow.
func SplitItem(b model.Board, at model.Path, items []model.Item) (model.Board, error) {
	if _, err := itemAt(b, at); err != nil {
		return model.Board{}, err
	}
	return asBoard(Replace(b, at, itemNodes(items)...))
}

func MoveItemToTop(b model.Board, at model.Path) (model.Board, error) {
	return asBoard(MoveToTop(b, at))
}

func MoveItemToBottom(b model.Board, at model.Path) (model.Board, error) {
	return asBoard(MoveToBottom(b, at))
}

// MoveEntity relocates a lane or item; see Move for the index correction.
func MoveEntity(b model.Board, from, to model.Path) (model.Board, error) {
	return asBoard(Move(b, from, to))
}

// MoveItemToLane moves the item to the top of another lane, marking it done when that lane
// completes its items. Moving into the item's own lane does nothing.
func MoveItemToLane(b model.Board, from model.Path, lane int) (model.Board, error) {
	it, err := itemAt(b, from)
	if err != nil {
		return model.Board{}, err
	}
	dst, err := laneAt(b, model.Path{lane})
	if err != nil {
		return model.Board{}, err
	}
	if from[0] == lane {
		return b, nil
	}
	out, err := MoveEntity(b, from, model.Path{lane, 0})
	if err != nil {
		return model.Board{}, err
	}
	if dst.ShouldMarkItemsComplete && !it.Checked() {
		return UpdateItem(out, model.Path{lane, 0}, it.WithChecked(true))
	}
	return out, nil
}

// UpdateItem replaces the item's data; its identity is kept whatever newItem carries.
func UpdateItem(b model.Board, at model.Path, newItem model.Item) (model.Board, error) {
	old, err := itemAt(b, at)
	if err != nil {
		return model.Board{}, err
	}
	newItem.ID = old.ID
	idx := at.Last()
	return asBoard(edit(b, at.Parent(), func(ch []model.Node) []model.Node {
		return spliced(ch, idx, 1, []model.Node{newItem})
	}))
}

// UpdateLane takes the title and completion flag from lane; identity and items are kept.
func UpdateLane(b model.Board, at model.Path, lane model.Lane) (model.Board, error) {
	old, err := laneAt(b, at)
	if err != nil {
		return model.Board{}, err
	}
	old.Title = lane.Title
	old.ShouldMarkItemsComplete = lane.ShouldMarkItemsComplete
	idx := at.Last()
	return asBoard(edit(b, model.Path{}, func(ch []model.Node) []model.Node {
		return spliced(ch, idx, 1, []model.Node{old})
	}))
}

// AddItemsToLane is the lane's add form: new cards go to the end (or start) and are marked
// done when the lane completes its items.
func AddItemsToLane(b model.Board, lane model.Path, items []model.Item, prepend bool) (model.Board, error) {
	l, err := laneAt(b, lane)
	if err != nil {
		return model.Board{}, err
	}
	if l.ShouldMarkItemsComplete {
		marked := make([]model.Item, len(items))
		for i, it := range items {
			marked[i] = it.WithChecked(true)
		}
		items = marked
	}
	if prepend {
		return PrependItems(b, lane, items)
	}
	return AppendItems(b, lane, items)
}

// ToggleChecked flips the item's check state.
func ToggleChecked(b model.Board, at model.Path) (model.Board, error) {
	it, err := itemAt(b, at)
	if err != nil {
		return model.Board{}, err
	}
	return UpdateItem(b, at, it.WithChecked(!it.Checked()))
}

// FindItem returns the current path of the item with the given identity.
func FindItem(b model.Board, id model.ID) (model.Path, model.Item, error) {
	p, ok := model.PathOf(b, id)
	if !ok || len(p) != 2 {
		return nil, model.Item{}, NotFoundError{Kind: "item", ID: string(id)}
	}
	return p, b.Lanes[p[0]].Items[p[1]], nil
}

// FindLane returns the current path of the lane with the given identity.
func FindLane(b model.Board, id model.ID) (model.Path, model.Lane, error) {
	p, ok := model.PathOf(b, id)
	if !ok || len(p) != 1 {
		return nil, model.Lane{}, NotFoundError{Kind: "lane", ID: string(id)}
	}
	return p, b.Lanes[p[0]], nil
}
