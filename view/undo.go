// Package view holds the per-session presentation state: selection, typing
// direction, zoom and the undo log. One View belongs to exactly one session
// goroutine; nothing here is safe for concurrent use and nothing needs to
// be, since all shared state lives behind the cell store and dispatcher.
package view

import "puzzle-lab/domain"

// UndoCapacity is how many edits a session can take back.
const UndoCapacity = 20

// UndoEntry records one cell overwrite: what was there before and what this
// session wrote. The after value is what makes the optimistic staleness
// check possible on pop.
type UndoEntry struct {
	Cell   domain.CellRef
	Before domain.CellValue
	After  domain.CellValue
}

// UndoLog is a fixed-capacity circular buffer of edits, newest popped first.
// When full, pushing drops the oldest entry.
type UndoLog struct {
	entries []UndoEntry
	start   int
	size    int
}

func NewUndoLog(capacity int) *UndoLog {
	return &UndoLog{entries: make([]UndoEntry, capacity)}
}

func (l *UndoLog) Len() int {
	return l.size
}

// Push appends an entry, overwriting the oldest one when the buffer is full.
func (l *UndoLog) Push(entry UndoEntry) {
	l.entries[(l.start+l.size)%len(l.entries)] = entry
	if l.size < len(l.entries) {
		l.size++
	} else {
		l.start = (l.start + 1) % len(l.entries)
	}
}

// Pop removes and returns the most recent entry, LIFO.
func (l *UndoLog) Pop() (UndoEntry, bool) {
	if l.size == 0 {
		return UndoEntry{}, false
	}
	l.size--
	return l.entries[(l.start+l.size)%len(l.entries)], true
}
