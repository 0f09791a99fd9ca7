// Package runtime holds the shared-state engine: the authoritative cell
// cache, the cross-session dispatcher and the per-session subscriber.
// It orchestrates propagation between sessions without containing grid rules.
package runtime

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"puzzle-lab/contract"
	"puzzle-lab/domain"
	apperrors "puzzle-lab/errors"
)

// CellStore is the single in-memory authority for puzzle cell contents.
// Grids load lazily from the repository on first access and stay cached for
// the store's lifetime. Writes land in memory under one coarse mutex and
// reach disk through Sync, driven by the periodic flush worker.
//
// A terminated store refuses new reads and writes but still runs one final
// flush, so edits racing with shutdown are never lost silently.
type CellStore struct {
	mu         sync.Mutex
	log        *slog.Logger
	repository contract.IPuzzleRepository
	puzzles    map[domain.PuzzleID]*domain.Puzzle
	terminated atomic.Bool
	closeOnce  sync.Once
}

func NewCellStore(log *slog.Logger, repository contract.IPuzzleRepository) *CellStore {
	return &CellStore{
		log:        log,
		repository: repository,
		puzzles:    make(map[domain.PuzzleID]*domain.Puzzle),
	}
}

// CharAt reads one cell. It fails soft: a terminated store, an unknown
// puzzle or an out-of-range ref all yield the empty value, which callers
// render as "nothing to show".
func (s *CellStore) CharAt(puzzle domain.PuzzleID, ref domain.CellRef) domain.CellValue {
	empty := domain.CellValue{Character: domain.None, User: domain.NoUser}
	if s.terminated.Load() {
		return empty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	grid := s.getPuzzle(puzzle)
	if grid == nil || !grid.InBounds(ref) {
		return empty
	}

	cell := grid.Cell(ref)
	return domain.CellValue{Character: cell.Character, User: cell.User}
}

// UpdateChar overwrites one cell and returns the previous value so the
// caller can record an undo entry. Writing the character already present is
// a no-op and reports changed=false, which keeps retries idempotent and the
// undo log free of empty entries.
func (s *CellStore) UpdateChar(puzzle domain.PuzzleID, ref domain.CellRef,
	c domain.Character, user domain.UserID) (domain.CellValue, bool) {
	if s.terminated.Load() {
		return domain.CellValue{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	grid := s.getPuzzle(puzzle)
	if grid == nil || !grid.InBounds(ref) {
		return domain.CellValue{}, false
	}

	cell := grid.Cell(ref)
	if cell.IsNull() || cell.Character == c {
		return domain.CellValue{}, false
	}

	previous := domain.CellValue{Character: cell.Character, User: cell.User}
	cell.Character = c
	cell.User = user
	return previous, true
}

// Grid exposes the cached grid of one puzzle, loading it if needed. The
// geometry is immutable after setup so callers may navigate it freely; cell
// contents must still be read through CharAt.
func (s *CellStore) Grid(puzzle domain.PuzzleID) (*domain.Puzzle, error) {
	if s.terminated.Load() {
		return nil, apperrors.ErrStoreTerminated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	grid := s.getPuzzle(puzzle)
	if grid == nil {
		return nil, fmt.Errorf("puzzle %d: %w", puzzle, apperrors.ErrPuzzleNotFound)
	}
	return grid, nil
}

// getPuzzle resolves a cached grid or loads it from the repository.
// The caller must hold the mutex. Load I/O under the lock is an accepted
// contention cost: it happens once per puzzle per process.
func (s *CellStore) getPuzzle(id domain.PuzzleID) *domain.Puzzle {
	if grid, ok := s.puzzles[id]; ok {
		return grid
	}
	grid, err := s.repository.Load(id)
	if err != nil {
		s.log.Debug("Puzzle load failed", "puzzle", id, "error", err)
		return nil
	}
	s.puzzles[id] = grid
	return grid
}

// Sync persists every loaded grid. With last=false it is the periodic flush
// and becomes a no-op once the store terminated; with last=true it is the
// shutdown flush and runs regardless. The first persistence error is
// returned after all grids were attempted.
func (s *CellStore) Sync(last bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminated.Load() && !last {
		return nil
	}

	s.log.Debug("Performing global sync", "puzzles", len(s.puzzles), "last", last)

	var firstErr error
	for id, grid := range s.puzzles {
		if err := s.repository.Persist(grid); err != nil {
			s.log.Error("Failed to persist puzzle", "puzzle", id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Terminate marks the store as shutting down. Reads and writes arriving
// after this point (timer callbacks, late session teardown) turn into no-ops
// instead of racing the final flush.
func (s *CellStore) Terminate() {
	s.mu.Lock()
	s.terminated.Store(true)
	s.mu.Unlock()
}

// Close terminates the store and runs the final flush exactly once.
func (s *CellStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.Terminate()
		s.log.Info("Cell store: last sync")
		if err = s.Sync(true); err != nil {
			s.log.Error("An error occurred when syncing", "error", err)
		}
	})
	return err
}
