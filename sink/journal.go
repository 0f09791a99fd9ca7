// Package sink holds consumers of the broadcast stream that are not editing
// sessions. The journal is the only one: an append-only audit trail of every
// shared-state change.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"puzzle-lab/domain"
	"puzzle-lab/domain/event"
	"puzzle-lab/runtime"
)

// Journal appends every broadcast event to a JSON-lines file. It runs as a
// supervised worker over its own subscriber mailbox, so a slow disk degrades
// into dropped journal entries instead of slowing the editors down.
type Journal struct {
	log        *slog.Logger
	subscriber *runtime.Subscriber
	path       string
}

func NewJournal(log *slog.Logger, subscriber *runtime.Subscriber, path string) *Journal {
	return &Journal{log: log, subscriber: subscriber, path: path}
}

type entry struct {
	At        time.Time `json:"at"`
	Kind      string    `json:"kind"`
	Puzzle    int64     `json:"puzzle"`
	User      int64     `json:"user"`
	Row       int       `json:"row"`
	Col       int       `json:"col"`
	Direction string    `json:"direction,omitempty"`
	Name      string    `json:"name,omitempty"`
	Color     string    `json:"color,omitempty"`
}

// Run appends until the context ends, then drains whatever is still queued
// before returning, so a graceful shutdown loses nothing buffered.
func (j *Journal) Run(ctx context.Context) error {
	file, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer file.Close()
	encoder := json.NewEncoder(file)

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case e := <-j.subscriber.Events():
					if err := encoder.Encode(toEntry(e)); err != nil {
						j.log.Warn("Dropping journal entry", "error", err)
					}
				default:
					return nil
				}
			}
		case e := <-j.subscriber.Events():
			if err := encoder.Encode(toEntry(e)); err != nil {
				return fmt.Errorf("writing journal: %w", err)
			}
		}
	}
}

func toEntry(e event.DomainEvent) entry {
	out := entry{At: time.Now().UTC(), Puzzle: int64(e.PuzzleID())}
	switch evt := e.(type) {
	case event.CellValueChanged:
		out.Kind = "cell"
		out.Row = evt.Cell.Row
		out.Col = evt.Cell.Col
	case event.CursorMoved:
		out.Kind = "cursor"
		out.User = int64(evt.User)
		out.Row = evt.Cell.Row
		out.Col = evt.Cell.Col
		if evt.Direction == domain.Vertical {
			out.Direction = "vertical"
		} else {
			out.Direction = "horizontal"
		}
	case event.UserAdded:
		out.Kind = "user-added"
		out.User = int64(evt.User)
		out.Name = evt.Name
		out.Color = evt.Color
	case event.UserChangedColor:
		out.Kind = "user-color"
		out.User = int64(evt.User)
		out.Color = evt.Color
	default:
		out.Kind = "unknown"
	}
	return out
}
