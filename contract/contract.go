package contract

import (
	"context"
	"reflect"

	"puzzle-lab/domain"
	"puzzle-lab/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// initialization or lifecycle events, avoiding the need for manual naming
// in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives broadcast events. A post must never block the sender:
// implementations buffer and drop rather than stall a foreign session.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IPuzzleRepository is the durable backing store for puzzle grids.
type IPuzzleRepository interface {
	Load(id domain.PuzzleID) (*domain.Puzzle, error)
	Persist(puzzle *domain.Puzzle) error
	Create(puzzle *domain.Puzzle) (domain.PuzzleID, error)
}

// IUserRepository stores the solver list.
type IUserRepository interface {
	CreateUser(name, color string) (domain.UserID, error)
	UpdateColor(id domain.UserID, color string) error
	GetUsers() ([]domain.User, error)
}

// ICellStore is the in-memory authoritative view of all puzzle cells.
type ICellStore interface {
	CharAt(puzzle domain.PuzzleID, ref domain.CellRef) domain.CellValue
	UpdateChar(puzzle domain.PuzzleID, ref domain.CellRef, c domain.Character, user domain.UserID) (domain.CellValue, bool)
	Grid(puzzle domain.PuzzleID) (*domain.Puzzle, error)
	Sync(last bool) error
}
