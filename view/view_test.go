package view

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"puzzle-lab/domain"
	"puzzle-lab/domain/event"
	"puzzle-lab/errors"
	"puzzle-lab/runtime"
)

type memoryRepository struct {
	grids map[domain.PuzzleID]*domain.Puzzle
}

func (r *memoryRepository) Load(id domain.PuzzleID) (*domain.Puzzle, error) {
	grid, ok := r.grids[id]
	if !ok {
		return nil, fmt.Errorf("puzzle %d: %w", id, errors.ErrPuzzleNotFound)
	}
	return grid, nil
}

func (r *memoryRepository) Persist(*domain.Puzzle) error { return nil }

func (r *memoryRepository) Create(puzzle *domain.Puzzle) (domain.PuzzleID, error) {
	r.grids[puzzle.ID] = puzzle
	return puzzle.ID, nil
}

func testGrid(rows, cols int, blocked ...domain.CellRef) *domain.Puzzle {
	p := &domain.Puzzle{ID: 1, Width: cols * 50, Height: rows * 50}
	for r := 0; r < rows; r++ {
		row := make([]domain.Cell, cols)
		for c := 0; c < cols; c++ {
			row[c] = domain.Cell{
				Square: domain.Rect{X: float64(c * 50), Y: float64(r * 50), Width: 50, Height: 50},
				User:   domain.NoUser,
			}
		}
		p.Rows = append(p.Rows, row)
	}
	for _, ref := range blocked {
		p.Rows[ref.Row][ref.Col].Square = domain.Rect{}
	}
	return p
}

type fixture struct {
	store      *runtime.CellStore
	dispatcher *runtime.Dispatcher
	view       *View
	remote     *runtime.Subscriber
}

func newFixture(t *testing.T, grid *domain.Puzzle, user domain.UserID) *fixture {
	t.Helper()
	log := slog.Default()
	store := runtime.NewCellStore(log, &memoryRepository{
		grids: map[domain.PuzzleID]*domain.Puzzle{grid.ID: grid},
	})
	dispatcher := runtime.NewDispatcher(log)

	local := runtime.NewSubscriber(log, 32)
	remote := runtime.NewSubscriber(log, 32)
	dispatcher.Subscribe(local)
	dispatcher.Subscribe(remote)

	loaded, err := store.Grid(grid.ID)
	require.NoError(t, err)

	return &fixture{
		store:      store,
		dispatcher: dispatcher,
		view:       New(log, loaded, store, dispatcher, local, user),
		remote:     remote,
	}
}

func (f *fixture) drainRemote() []event.DomainEvent {
	var events []event.DomainEvent
	for {
		select {
		case e := <-f.remote.Events():
			events = append(events, e)
		default:
			return events
		}
	}
}

func Test_Move_Skips_Blocked_Cells(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, testGrid(10, 10,
		domain.CellRef{Row: 4, Col: 4},
		domain.CellRef{Row: 5, Col: 5},
		domain.CellRef{Row: 3, Col: 2},
	), 1)

	f.view.Select(domain.CellRef{Row: 3, Col: 1})
	f.view.Move(domain.Right)
	req.Equal(domain.CellRef{Row: 3, Col: 3}, f.view.Selected())
}

func Test_Move_Clamps_At_Edge(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, testGrid(3, 3), 1)

	f.view.Select(domain.CellRef{Row: 0, Col: 2})
	f.view.Move(domain.Right)
	req.Equal(domain.CellRef{Row: 0, Col: 2}, f.view.Selected())
	f.view.Move(domain.Up)
	req.Equal(domain.CellRef{Row: 0, Col: 2}, f.view.Selected())
}

func Test_TypeLetter_Advances_And_Broadcasts(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, testGrid(3, 3), 1)

	f.view.Select(domain.CellRef{Row: 0, Col: 0})
	f.drainRemote()

	f.view.TypeLetter('K')
	req.Equal(domain.CellValue{Character: domain.DecodeCharacter("K"), User: 1},
		f.store.CharAt(1, domain.CellRef{Row: 0, Col: 0}))
	req.Equal(domain.CellRef{Row: 0, Col: 1}, f.view.Selected())

	// One cell change plus one cursor move reached the remote session.
	events := f.drainRemote()
	req.Len(events, 2)
	_, isCell := events[0].(event.CellValueChanged)
	req.True(isCell)
	_, isCursor := events[1].(event.CursorMoved)
	req.True(isCursor)
}

func Test_Vertical_Typing_Advances_Down(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, testGrid(3, 3), 1)

	f.view.SetDirection(domain.Vertical)
	f.view.Select(domain.CellRef{Row: 0, Col: 1})
	f.view.TypeLetter('A')
	req.Equal(domain.CellRef{Row: 1, Col: 1}, f.view.Selected())
}

func Test_Digraph_Promotes_Previous_I(t *testing.T) {
	req := require.New(t)
	grid := testGrid(3, 3)
	f := newFixture(t, grid, 2)

	// An older edit by user 1 left an I behind.
	_, changed := f.store.UpdateChar(1, domain.CellRef{Row: 0, Col: 0}, domain.I, 1)
	req.True(changed)

	f.view.Select(domain.CellRef{Row: 0, Col: 1})
	f.view.TypeLetter('J')

	// The previous cell was melted into the digraph; the selection stayed.
	req.Equal(domain.CellValue{Character: domain.IJ, User: 2},
		f.store.CharAt(1, domain.CellRef{Row: 0, Col: 0}))
	req.Equal(domain.CellRef{Row: 0, Col: 1}, f.view.Selected())

	// The undo entry recorded before=(I, 1) and after=(IJ, 2): undoing
	// restores both the character and the original writer.
	req.True(f.view.Undo())
	req.Equal(domain.CellValue{Character: domain.I, User: 1},
		f.store.CharAt(1, domain.CellRef{Row: 0, Col: 0}))
}

func Test_Digraph_At_End_Of_Word(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, testGrid(1, 3), 4)

	// The last cell of the row holds an I and there is nothing after it.
	f.view.Select(domain.CellRef{Row: 0, Col: 2})
	f.view.TypeLetter('I')
	f.view.Select(domain.CellRef{Row: 0, Col: 2})
	f.view.TypeLetter('J')

	req.Equal(domain.IJ, f.store.CharAt(1, domain.CellRef{Row: 0, Col: 2}).Character)
}

func Test_Ordinary_J_Writes_J(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, testGrid(3, 3), 1)

	f.view.Select(domain.CellRef{Row: 1, Col: 1})
	f.view.TypeLetter('J')
	req.Equal(domain.J, f.store.CharAt(1, domain.CellRef{Row: 1, Col: 1}).Character)
	req.Equal(domain.CellRef{Row: 1, Col: 2}, f.view.Selected())
}

func Test_Backspace_Clears_Previous_And_Moves(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, testGrid(3, 3), 1)

	f.view.Select(domain.CellRef{Row: 0, Col: 0})
	f.view.TypeLetter('A')
	req.Equal(domain.CellRef{Row: 0, Col: 1}, f.view.Selected())

	f.view.Backspace()
	req.Equal(domain.None, f.store.CharAt(1, domain.CellRef{Row: 0, Col: 0}).Character)
	req.Equal(domain.CellRef{Row: 0, Col: 0}, f.view.Selected())
}

func Test_Backspace_Demotes_Digraph_In_Place(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, testGrid(3, 3), 2)

	_, changed := f.store.UpdateChar(1, domain.CellRef{Row: 0, Col: 0}, domain.IJ, 1)
	req.True(changed)

	f.view.Select(domain.CellRef{Row: 0, Col: 1})
	f.view.Backspace()

	// IJ demotes to I and the selection does not move.
	req.Equal(domain.CellValue{Character: domain.I, User: 2},
		f.store.CharAt(1, domain.CellRef{Row: 0, Col: 0}))
	req.Equal(domain.CellRef{Row: 0, Col: 1}, f.view.Selected())
}

func Test_Delete_Clears_In_Place(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, testGrid(3, 3), 1)

	f.view.Select(domain.CellRef{Row: 2, Col: 2})
	f.view.TypeLetter('Z')
	f.view.Select(domain.CellRef{Row: 2, Col: 2})
	f.view.Delete()

	req.Equal(domain.None, f.store.CharAt(1, domain.CellRef{Row: 2, Col: 2}).Character)
	req.Equal(domain.CellRef{Row: 2, Col: 2}, f.view.Selected())
}

func Test_Undo_Discards_Stale_Entry(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, testGrid(3, 3), 1)
	cell := domain.CellRef{Row: 0, Col: 0}

	f.view.Select(cell)
	f.view.TypeLetter('A')

	// A remote session overwrites the same cell before the undo.
	_, changed := f.store.UpdateChar(1, cell, domain.DecodeCharacter("B"), 9)
	req.True(changed)

	req.False(f.view.Undo())
	req.Equal(domain.CellValue{Character: domain.DecodeCharacter("B"), User: 9},
		f.store.CharAt(1, cell))
}

func Test_NoOp_Write_Records_No_Undo(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, testGrid(3, 3), 1)
	cell := domain.CellRef{Row: 0, Col: 0}

	f.view.Select(cell)
	f.view.TypeLetter('A')
	f.view.Select(cell)
	f.view.TypeLetter('A')

	// Only the first write is undoable; the second was a no-op.
	req.True(f.view.Undo())
	req.False(f.view.Undo())
}

func Test_Click_Selects_Nearest_Cell(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, testGrid(3, 3, domain.CellRef{Row: 1, Col: 1}), 1)

	f.view.Click(domain.Point{X: 60, Y: 10})
	req.Equal(domain.CellRef{Row: 0, Col: 1}, f.view.Selected())

	// A click on a blocked cell selects nothing.
	f.view.Click(domain.Point{X: 75, Y: 75})
	req.Equal(domain.NoCell, f.view.Selected())
}

func Test_Direction_Toggle_Rebroadcasts_Cursor(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, testGrid(3, 3), 1)

	f.view.Select(domain.CellRef{Row: 1, Col: 1})
	f.drainRemote()

	f.view.ToggleDirection()
	events := f.drainRemote()
	req.Len(events, 1)
	moved, ok := events[0].(event.CursorMoved)
	req.True(ok)
	req.Equal(domain.CellRef{Row: 1, Col: 1}, moved.Cell)
	req.Equal(domain.Vertical, moved.Direction)

	// Toggling to the direction already active announces nothing.
	f.view.SetDirection(domain.Vertical)
	req.Empty(f.drainRemote())
}

func Test_Close_Withdraws_Cursor(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, testGrid(3, 3), 1)

	f.view.Select(domain.CellRef{Row: 1, Col: 1})
	req.Len(f.dispatcher.UserPositions(), 1)

	f.view.Close()
	req.Empty(f.dispatcher.UserPositions())
}

func Test_Zoom_Clamps(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, testGrid(3, 3), 1)

	for i := 0; i < 30; i++ {
		f.view.ZoomIn()
	}
	req.InDelta(2.0, f.view.Zoom(), 1e-9)

	for i := 0; i < 50; i++ {
		f.view.ZoomOut()
	}
	req.InDelta(0.1, f.view.Zoom(), 1e-9)
}
