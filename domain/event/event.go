// Package event defines the typed payloads broadcast between sessions.
// Events are announcements after the fact: the authoritative value always
// lives in the cell store, and a receiver re-reads it on delivery.
package event

import "puzzle-lab/domain"

type DomainEvent interface {
	PuzzleID() domain.PuzzleID
}

// CellValueChanged announces that a cell was overwritten. It carries no value
// on purpose: by the time it is delivered the value may have changed again,
// so the receiver reads the store instead.
type CellValueChanged struct {
	Puzzle domain.PuzzleID
	Cell   domain.CellRef
}

func (e CellValueChanged) PuzzleID() domain.PuzzleID {
	return e.Puzzle
}

// CursorMoved announces a user's new selection and typing direction.
type CursorMoved struct {
	Puzzle    domain.PuzzleID
	User      domain.UserID
	Cell      domain.CellRef
	Direction domain.Orientation
}

func (e CursorMoved) PuzzleID() domain.PuzzleID {
	return e.Puzzle
}

// UserAdded announces a newly created solver.
type UserAdded struct {
	User  domain.UserID
	Name  string
	Color string
}

func (e UserAdded) PuzzleID() domain.PuzzleID {
	return domain.NoPuzzle
}

// UserChangedColor announces a solver picking a new color.
type UserChangedColor struct {
	User  domain.UserID
	Color string
}

func (e UserChangedColor) PuzzleID() domain.PuzzleID {
	return domain.NoPuzzle
}
