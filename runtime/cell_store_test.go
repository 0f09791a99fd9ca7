package runtime

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"puzzle-lab/domain"
	"puzzle-lab/errors"
)

// fakeRepository serves grids from memory and counts persist calls, standing
// in for the badger-backed repository.
type fakeRepository struct {
	grids    map[domain.PuzzleID]*domain.Puzzle
	persists int
	failNext bool
}

func newFakeRepository(grids ...*domain.Puzzle) *fakeRepository {
	r := &fakeRepository{grids: make(map[domain.PuzzleID]*domain.Puzzle)}
	for _, g := range grids {
		r.grids[g.ID] = g
	}
	return r
}

func (r *fakeRepository) Load(id domain.PuzzleID) (*domain.Puzzle, error) {
	grid, ok := r.grids[id]
	if !ok {
		return nil, fmt.Errorf("puzzle %d: %w", id, errors.ErrPuzzleNotFound)
	}
	return grid, nil
}

func (r *fakeRepository) Persist(puzzle *domain.Puzzle) error {
	if r.failNext {
		r.failNext = false
		return fmt.Errorf("disk on fire")
	}
	r.persists++
	return nil
}

func (r *fakeRepository) Create(puzzle *domain.Puzzle) (domain.PuzzleID, error) {
	r.grids[puzzle.ID] = puzzle
	return puzzle.ID, nil
}

// openGrid builds a rows x cols grid where every cell is playable except the
// listed blocked refs.
func openGrid(id domain.PuzzleID, rows, cols int, blocked ...domain.CellRef) *domain.Puzzle {
	p := &domain.Puzzle{ID: id, Width: cols * 50, Height: rows * 50}
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

func Test_CellStore_Update_Returns_Previous(t *testing.T) {
	req := require.New(t)
	repo := newFakeRepository(openGrid(1, 3, 3))
	store := NewCellStore(slog.Default(), repo)

	cell := domain.CellRef{Row: 1, Col: 1}
	previous, changed := store.UpdateChar(1, cell, domain.A, 7)
	req.True(changed)
	req.Equal(domain.CellValue{Character: domain.None, User: domain.NoUser}, previous)

	previous, changed = store.UpdateChar(1, cell, domain.DecodeCharacter("B"), 8)
	req.True(changed)
	req.Equal(domain.CellValue{Character: domain.A, User: 7}, previous)

	req.Equal(domain.CellValue{Character: domain.DecodeCharacter("B"), User: 8}, store.CharAt(1, cell))
}

func Test_CellStore_Idempotent_NoOp_Write(t *testing.T) {
	req := require.New(t)
	repo := newFakeRepository(openGrid(1, 3, 3))
	store := NewCellStore(slog.Default(), repo)

	cell := domain.CellRef{Row: 0, Col: 2}
	_, changed := store.UpdateChar(1, cell, domain.A, 7)
	req.True(changed)

	// Same character again: no previous value reported, nothing overwritten.
	_, changed = store.UpdateChar(1, cell, domain.A, 9)
	req.False(changed)
	req.Equal(domain.CellValue{Character: domain.A, User: 7}, store.CharAt(1, cell))
}

func Test_CellStore_Fails_Soft(t *testing.T) {
	req := require.New(t)
	repo := newFakeRepository(openGrid(1, 2, 2, domain.CellRef{Row: 0, Col: 1}))
	store := NewCellStore(slog.Default(), repo)

	empty := domain.CellValue{Character: domain.None, User: domain.NoUser}

	// Unknown puzzle.
	req.Equal(empty, store.CharAt(99, domain.CellRef{Row: 0, Col: 0}))
	_, changed := store.UpdateChar(99, domain.CellRef{Row: 0, Col: 0}, domain.A, 1)
	req.False(changed)
	_, err := store.Grid(99)
	req.ErrorIs(err, errors.ErrPuzzleNotFound)

	// Out of range ref.
	req.Equal(empty, store.CharAt(1, domain.CellRef{Row: 5, Col: 5}))

	// Blocked cell never stores a character.
	_, changed = store.UpdateChar(1, domain.CellRef{Row: 0, Col: 1}, domain.A, 1)
	req.False(changed)
	req.Equal(empty, store.CharAt(1, domain.CellRef{Row: 0, Col: 1}))
}

func Test_CellStore_Final_Flush_After_Terminate(t *testing.T) {
	req := require.New(t)
	repo := newFakeRepository(openGrid(1, 2, 2))
	store := NewCellStore(slog.Default(), repo)

	_, changed := store.UpdateChar(1, domain.CellRef{Row: 0, Col: 0}, domain.A, 1)
	req.True(changed)

	req.NoError(store.Close())
	req.Equal(1, repo.persists)

	// Terminated store refuses everything new.
	empty := domain.CellValue{Character: domain.None, User: domain.NoUser}
	req.Equal(empty, store.CharAt(1, domain.CellRef{Row: 0, Col: 0}))
	_, changed = store.UpdateChar(1, domain.CellRef{Row: 0, Col: 1}, domain.A, 1)
	req.False(changed)
	_, err := store.Grid(1)
	req.ErrorIs(err, errors.ErrStoreTerminated)

	// Periodic sync after termination is a no-op, and a second Close does
	// not flush twice.
	req.NoError(store.Sync(false))
	req.NoError(store.Close())
	req.Equal(1, repo.persists)
}

func Test_CellStore_Periodic_Sync_Reports_Error(t *testing.T) {
	req := require.New(t)
	repo := newFakeRepository(openGrid(1, 2, 2))
	store := NewCellStore(slog.Default(), repo)

	_, changed := store.UpdateChar(1, domain.CellRef{Row: 0, Col: 0}, domain.A, 1)
	req.True(changed)

	repo.failNext = true
	req.Error(store.Sync(false))

	// Next interval retries and succeeds.
	req.NoError(store.Sync(false))
	req.Equal(1, repo.persists)
}
