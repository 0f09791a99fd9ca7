package runtime

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"puzzle-lab/domain"
	"puzzle-lab/domain/event"
)

// Dispatcher is the one fan-out point of the whole process. Sessions
// subscribe once and every mutation is posted to all other subscribers'
// mailboxes, never back to the originator.
//
// Two independent mutexes guard the two shared tables: the subscriber set
// and the cursor table. They are never nested and never held while a
// delivery could block, so a handler is free to call back into the
// dispatcher or the cell store without deadlocking.
type Dispatcher struct {
	log *slog.Logger

	subscriberMu sync.Mutex
	subscribers  []*Subscriber

	cursorMu sync.Mutex
	cursors  map[domain.UserID]CursorEntry
}

// CursorEntry is the last known position of one user. A user has a single
// global cursor across all puzzles.
type CursorEntry struct {
	Puzzle    domain.PuzzleID
	User      domain.UserID
	Cell      domain.CellRef
	Direction domain.Orientation
}

func NewDispatcher(log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		log:     log,
		cursors: make(map[domain.UserID]CursorEntry),
	}
}

func (d *Dispatcher) Subscribe(subscriber *Subscriber) {
	d.subscriberMu.Lock()
	defer d.subscriberMu.Unlock()
	d.subscribers = append(d.subscribers, subscriber)
}

// Unsubscribe removes a subscriber by identity. Two subscribers carrying the
// same session id are still distinct destinations.
func (d *Dispatcher) Unsubscribe(subscriber *Subscriber) {
	d.subscriberMu.Lock()
	defer d.subscriberMu.Unlock()
	for i, s := range d.subscribers {
		if s == subscriber {
			d.subscribers = append(d.subscribers[:i], d.subscribers[i+1:]...)
			return
		}
	}
}

// NotifyCellValueChanged fans out a cell mutation to everyone except self.
func (d *Dispatcher) NotifyCellValueChanged(self *Subscriber, puzzle domain.PuzzleID, cell domain.CellRef) {
	d.broadcast(self, event.CellValueChanged{Puzzle: puzzle, Cell: cell})
}

func (d *Dispatcher) NotifyUserAdded(self *Subscriber, user domain.UserID, name, color string) {
	d.broadcast(self, event.UserAdded{User: user, Name: name, Color: color})
}

func (d *Dispatcher) NotifyUserChangedColor(self *Subscriber, user domain.UserID, color string) {
	d.broadcast(self, event.UserChangedColor{User: user, Color: color})
}

// NotifyCursorMoved updates the cursor table, then fans the move out.
// Moving to the sentinel cell removes the entry; if there was no entry to
// remove, the broadcast is suppressed entirely: announcing that an untracked
// user left would only produce spurious "cursor left" refreshes.
func (d *Dispatcher) NotifyCursorMoved(self *Subscriber, puzzle domain.PuzzleID,
	user domain.UserID, cell domain.CellRef, direction domain.Orientation) {
	d.cursorMu.Lock()
	if puzzle == domain.NoPuzzle || cell == domain.NoCell {
		_, tracked := d.cursors[user]
		delete(d.cursors, user)
		d.cursorMu.Unlock()
		if !tracked {
			return
		}
	} else {
		d.cursors[user] = CursorEntry{
			Puzzle:    puzzle,
			User:      user,
			Cell:      cell,
			Direction: direction,
		}
		d.cursorMu.Unlock()
	}

	d.broadcast(self, event.CursorMoved{
		Puzzle:    puzzle,
		User:      user,
		Cell:      cell,
		Direction: direction,
	})
}

// UserPositions returns a snapshot of all tracked cursors, ordered by user
// id. Callers iterate the copy without holding any dispatcher lock.
func (d *Dispatcher) UserPositions() []CursorEntry {
	d.cursorMu.Lock()
	defer d.cursorMu.Unlock()

	entries := make([]CursorEntry, 0, len(d.cursors))
	for _, entry := range d.cursors {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].User < entries[j].User
	})
	return entries
}

// broadcast posts the event to every subscriber except self. Posting is
// non-blocking: a full mailbox drops the event rather than stalling the
// writing session on a slow reader.
func (d *Dispatcher) broadcast(self *Subscriber, e event.DomainEvent) {
	d.subscriberMu.Lock()
	defer d.subscriberMu.Unlock()

	for _, subscriber := range d.subscribers {
		if subscriber == self {
			continue
		}
		if err := subscriber.Consume(context.Background(), e); err != nil {
			d.log.Debug("Dropped event for session",
				"session", subscriber.SessionID(), "error", err)
		}
	}
}
