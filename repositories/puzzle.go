package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"puzzle-lab/domain"
	"puzzle-lab/errors"
)

type PuzzleRepository struct {
	db       *badger.DB
	log      *slog.Logger
	validate *validator.Validate

	seqOnce sync.Once
	seq     *badger.Sequence
	seqErr  error
}

func NewPuzzleRepository(db *badger.DB, log *slog.Logger) *PuzzleRepository {
	return &PuzzleRepository{
		db:       db,
		log:      log,
		validate: validator.New(),
	}
}

// nextID claims the id sequence on first use. Claiming writes a lease, so it
// must not happen before Create is actually called: a read-only viewer
// process shares this repository and never allocates ids.
func (r *PuzzleRepository) nextID() (uint64, error) {
	r.seqOnce.Do(func() {
		r.seq, r.seqErr = r.db.GetSequence([]byte("seq:puzzle"), 16)
	})
	if r.seqErr != nil {
		return 0, fmt.Errorf("puzzle sequence: %w", r.seqErr)
	}
	return r.seq.Next()
}

// Close releases the id sequence. Unclaimed ids in the current lease are
// lost, which only leaves gaps in the numbering.
func (r *PuzzleRepository) Close() error {
	if r.seq == nil {
		return nil
	}
	return r.seq.Release()
}

// puzzleRecord is the wire representation of a stored puzzle. Blocked cells
// serialize as JSON null so the record stays readable next to the image.
type puzzleRecord struct {
	Path     string          `json:"path"`
	Width    int             `json:"width" validate:"gte=0"`
	Height   int             `json:"height" validate:"gte=0"`
	Rotation int             `json:"rotation" validate:"oneof=0 90 180 -90"`
	Rows     [][]*cellRecord `json:"rows"`
}

// User is a pointer so records written before attribution was stored still
// decode: absent means nobody, not solver zero.
type cellRecord struct {
	Rect  [4]float64 `json:"rect"`
	Value string     `json:"value"`
	User  *int64     `json:"user,omitempty"`
}

// Create allocates a fresh id and persists the puzzle under it.
func (r *PuzzleRepository) Create(puzzle *domain.Puzzle) (domain.PuzzleID, error) {
	next, err := r.nextID()
	if err != nil {
		return domain.NoPuzzle, fmt.Errorf("next puzzle id: %w", err)
	}
	puzzle.ID = domain.PuzzleID(next)
	if err := r.Persist(puzzle); err != nil {
		return domain.NoPuzzle, err
	}
	return puzzle.ID, nil
}

func (r *PuzzleRepository) Persist(puzzle *domain.Puzzle) error {
	data, err := json.Marshal(fromPuzzle(puzzle))
	if err != nil {
		return fmt.Errorf("encode puzzle %d: %w", puzzle.ID, err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(puzzleKey(puzzle.ID), data)
	})
}

// Load reads and validates one puzzle record. An unknown id maps to
// ErrPuzzleNotFound so the cell store can fail soft on it.
func (r *PuzzleRepository) Load(id domain.PuzzleID) (*domain.Puzzle, error) {
	var data []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(puzzleKey(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, fmt.Errorf("puzzle %d: %w", id, errors.ErrPuzzleNotFound)
	}
	if err != nil {
		return nil, err
	}

	var record puzzleRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode puzzle %d: %w", id, err)
	}
	if err := r.validate.Struct(&record); err != nil {
		return nil, fmt.Errorf("invalid puzzle record %d: %w", id, err)
	}
	return toPuzzle(id, &record)
}

func puzzleKey(id domain.PuzzleID) []byte {
	return []byte(fmt.Sprintf("puzzle:%019d", id))
}

func fromPuzzle(puzzle *domain.Puzzle) puzzleRecord {
	return puzzleRecord{
		Path:     puzzle.Path,
		Width:    puzzle.Width,
		Height:   puzzle.Height,
		Rotation: puzzle.Rotation.Degrees(),
		Rows: lo.Map(puzzle.Rows, func(row []domain.Cell, _ int) []*cellRecord {
			return lo.Map(row, func(cell domain.Cell, _ int) *cellRecord {
				if cell.IsNull() {
					return nil
				}
				record := &cellRecord{
					Rect: [4]float64{
						cell.Square.X,
						cell.Square.Y,
						cell.Square.Width,
						cell.Square.Height,
					},
					Value: domain.EncodeCharacter(cell.Character),
				}
				if cell.User != domain.NoUser {
					record.User = lo.ToPtr(int64(cell.User))
				}
				return record
			})
		}),
	}
}

func toPuzzle(id domain.PuzzleID, record *puzzleRecord) (*domain.Puzzle, error) {
	rotation, err := domain.RotationFromDegrees(record.Rotation)
	if err != nil {
		return nil, err
	}
	return &domain.Puzzle{
		ID:       id,
		Path:     record.Path,
		Rotation: rotation,
		Width:    record.Width,
		Height:   record.Height,
		Rows: lo.Map(record.Rows, func(row []*cellRecord, _ int) []domain.Cell {
			return lo.Map(row, func(cell *cellRecord, _ int) domain.Cell {
				if cell == nil {
					return domain.Cell{User: domain.NoUser}
				}
				user := domain.NoUser
				if cell.User != nil {
					user = domain.UserID(*cell.User)
				}
				return domain.Cell{
					Square: domain.Rect{
						X:      cell.Rect[0],
						Y:      cell.Rect[1],
						Width:  cell.Rect[2],
						Height: cell.Rect[3],
					},
					Character: domain.DecodeCharacter(cell.Value),
					User:      user,
				}
			})
		}),
	}, nil
}
