package view

import (
	"log/slog"

	"puzzle-lab/contract"
	"puzzle-lab/domain"
	"puzzle-lab/runtime"
)

const (
	minZoom = 0.1
	maxZoom = 2.0
)

// View is the edit and navigation state machine of one session looking at
// one puzzle. Every mutation goes through the cell store first, then gets
// broadcast through the dispatcher; the view itself only decides which cell
// is targeted and where the selection lands afterwards.
type View struct {
	log        *slog.Logger
	puzzle     *domain.Puzzle
	store      contract.ICellStore
	dispatcher *runtime.Dispatcher
	subscriber *runtime.Subscriber
	user       domain.UserID

	selected  domain.CellRef
	direction domain.Orientation
	zoom      float64
	undo      *UndoLog
}

// New builds a view over an already loaded grid. The grid pointer is only
// used for geometry and navigation, which are immutable after setup; cell
// contents are always read back through the store.
func New(log *slog.Logger, puzzle *domain.Puzzle, store contract.ICellStore,
	dispatcher *runtime.Dispatcher, subscriber *runtime.Subscriber, user domain.UserID) *View {
	return &View{
		log:        log,
		puzzle:     puzzle,
		store:      store,
		dispatcher: dispatcher,
		subscriber: subscriber,
		user:       user,
		selected:   domain.NoCell,
		direction:  domain.Horizontal,
		zoom:       1.0,
		undo:       NewUndoLog(UndoCapacity),
	}
}

func (v *View) Puzzle() domain.PuzzleID       { return v.puzzle.ID }
func (v *View) User() domain.UserID           { return v.user }
func (v *View) Selected() domain.CellRef      { return v.selected }
func (v *View) Direction() domain.Orientation { return v.direction }
func (v *View) Zoom() float64                 { return v.zoom }

// Click selects the non-blocked cell containing the point, if any, and
// announces the new cursor position.
func (v *View) Click(point domain.Point) {
	v.selected = v.puzzle.CellAt(point)
	v.broadcastCursor()
}

// Select places the selection directly, for clients that resolve the cell
// themselves.
func (v *View) Select(ref domain.CellRef) {
	if ref != domain.NoCell && (!v.puzzle.InBounds(ref) || v.puzzle.Cell(ref).IsNull()) {
		return
	}
	v.selected = ref
	v.broadcastCursor()
}

// Move shifts the selection to the nearest playable cell in the given
// direction, clamping at the grid edge.
func (v *View) Move(direction domain.Direction) {
	next := v.puzzle.NextCell(v.selected, direction)
	if next == v.selected {
		return
	}
	v.selected = next
	v.broadcastCursor()
}

// SetDirection switches the typing direction. The cursor is rebroadcast even
// though the cell did not change, so remote viewers see the new arrow.
func (v *View) SetDirection(direction domain.Orientation) {
	if direction == v.direction {
		return
	}
	v.direction = direction
	v.broadcastCursor()
}

func (v *View) ToggleDirection() {
	v.SetDirection(v.direction.Toggle())
}

// TypeLetter writes a letter into the selected cell and advances one step in
// the typing direction. 'J' runs the digraph protocol first: a J typed right
// after an I melts both into the single letter IJ.
func (v *View) TypeLetter(key rune) {
	if v.selected == domain.NoCell {
		return
	}
	character := domain.CharacterFromKey(key)
	if character == domain.None {
		return
	}

	if character == domain.J && v.typeDigraph() {
		return
	}

	v.writeChar(v.selected, character)
	v.selected = v.puzzle.NextCell(v.selected, v.direction.Forward())
	v.broadcastCursor()
}

// typeDigraph handles the 'J' key. If the preceding cell holds an I, it is
// promoted to IJ and the selection stays put. At the end of a word, an I in
// the current cell itself is promoted instead and the selection advances.
// Returns false when no promotion applies and the J is an ordinary letter.
func (v *View) typeDigraph() bool {
	previous := v.puzzle.NextCell(v.selected, v.direction.Backward())
	if previous != v.selected &&
		v.store.CharAt(v.puzzle.ID, previous).Character == domain.I {
		v.writeChar(previous, domain.IJ)
		return true
	}

	next := v.puzzle.ImmediateNextCell(v.selected, v.direction.Forward())
	if next == domain.NoCell &&
		v.store.CharAt(v.puzzle.ID, v.selected).Character == domain.I {
		v.writeChar(v.selected, domain.IJ)
		v.selected = v.puzzle.NextCell(v.selected, v.direction.Forward())
		v.broadcastCursor()
		return true
	}
	return false
}

// Backspace erases backwards. When the preceding cell holds the IJ digraph
// it is demoted to a plain I and the selection does not move, mirroring how
// the digraph was typed as two keystrokes. Otherwise the preceding cell is
// cleared and becomes the selection.
func (v *View) Backspace() {
	if v.selected == domain.NoCell {
		return
	}
	previous := v.puzzle.NextCell(v.selected, v.direction.Backward())
	if previous == v.selected {
		return
	}

	if v.store.CharAt(v.puzzle.ID, previous).Character == domain.IJ {
		v.writeChar(previous, domain.I)
		return
	}

	v.writeChar(previous, domain.None)
	v.selected = previous
	v.broadcastCursor()
}

// Delete clears the selected cell in place.
func (v *View) Delete() {
	if v.selected == domain.NoCell {
		return
	}
	v.writeChar(v.selected, domain.None)
}

// Undo takes back this session's most recent surviving edit. The entry only
// applies if the cell still holds the value this session wrote; a cell
// overwritten remotely since is left alone and the entry is discarded,
// which is the normal outcome of concurrent editing rather than an error.
func (v *View) Undo() bool {
	entry, ok := v.undo.Pop()
	if !ok {
		return false
	}

	current := v.store.CharAt(v.puzzle.ID, entry.Cell)
	if current != entry.After {
		v.log.Debug("Discarding stale undo entry",
			"cell", entry.Cell, "expected", entry.After, "found", current)
		return false
	}

	if _, changed := v.store.UpdateChar(v.puzzle.ID, entry.Cell,
		entry.Before.Character, entry.Before.User); changed {
		v.dispatcher.NotifyCellValueChanged(v.subscriber, v.puzzle.ID, entry.Cell)
	}
	return true
}

func (v *View) ZoomIn()  { v.setZoom(v.zoom + 0.1) }
func (v *View) ZoomOut() { v.setZoom(v.zoom - 0.1) }

func (v *View) setZoom(zoom float64) {
	switch {
	case zoom < minZoom:
		v.zoom = minZoom
	case zoom > maxZoom:
		v.zoom = maxZoom
	default:
		v.zoom = zoom
	}
}

// Close withdraws this session's cursor from the shared table.
func (v *View) Close() {
	v.selected = domain.NoCell
	v.dispatcher.NotifyCursorMoved(v.subscriber, domain.NoPuzzle, v.user,
		domain.NoCell, v.direction)
}

// writeChar funnels every mutation: store first, undo entry only when the
// value actually changed, then broadcast.
func (v *View) writeChar(ref domain.CellRef, character domain.Character) {
	previous, changed := v.store.UpdateChar(v.puzzle.ID, ref, character, v.user)
	if !changed {
		return
	}
	v.undo.Push(UndoEntry{
		Cell:   ref,
		Before: previous,
		After:  domain.CellValue{Character: character, User: v.user},
	})
	v.dispatcher.NotifyCellValueChanged(v.subscriber, v.puzzle.ID, ref)
}

func (v *View) broadcastCursor() {
	v.dispatcher.NotifyCursorMoved(v.subscriber, v.puzzle.ID, v.user,
		v.selected, v.direction)
}
