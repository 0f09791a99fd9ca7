package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"puzzle-lab/domain/event"
)

// Subscriber is one session's receiving end of the dispatcher. Events are
// posted into its buffered mailbox and handled later inside the session's
// own goroutine, either by draining Events directly or by running the
// handler pump. The poster never waits for handling to finish.
type Subscriber struct {
	sessionID string
	log       *slog.Logger
	mailbox   chan event.DomainEvent

	onCellValueChanged func(event.CellValueChanged)
	onCursorMoved      func(event.CursorMoved)
	onUserAdded        func(event.UserAdded)
	onUserChangedColor func(event.UserChangedColor)
}

func NewSubscriber(log *slog.Logger, bufferSize int) *Subscriber {
	return &Subscriber{
		sessionID: uuid.NewString(),
		log:       log,
		mailbox:   make(chan event.DomainEvent, bufferSize),
	}
}

func (s *Subscriber) SessionID() string {
	return s.sessionID
}

// Consume is called by the dispatcher from a foreign session. A full
// mailbox drops the event: delivery is fire and forget, and the receiver
// re-reads authoritative state anyway.
func (s *Subscriber) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.mailbox <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("mailbox full, event %T dropped", e)
	}
}

// Events exposes the mailbox for sessions that run their own select loop,
// such as a websocket connection multiplexing client input and broadcasts.
func (s *Subscriber) Events() <-chan event.DomainEvent {
	return s.mailbox
}

// Handler registration. Register before Run; the pump itself is the only
// goroutine that invokes them, in per-destination send order.

func (s *Subscriber) OnCellValueChanged(fn func(event.CellValueChanged)) {
	s.onCellValueChanged = fn
}

func (s *Subscriber) OnCursorMoved(fn func(event.CursorMoved)) {
	s.onCursorMoved = fn
}

func (s *Subscriber) OnUserAdded(fn func(event.UserAdded)) {
	s.onUserAdded = fn
}

func (s *Subscriber) OnUserChangedColor(fn func(event.UserChangedColor)) {
	s.onUserChangedColor = fn
}

// Run drains the mailbox and dispatches to the registered handlers until the
// session context ends. It satisfies contract.Worker so a session can simply
// hand it to the supervisor.
func (s *Subscriber) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-s.mailbox:
			s.Dispatch(e)
		}
	}
}

// Dispatch routes one event to its typed handler.
func (s *Subscriber) Dispatch(e event.DomainEvent) {
	switch evt := e.(type) {
	case event.CellValueChanged:
		if s.onCellValueChanged != nil {
			s.onCellValueChanged(evt)
		}
	case event.CursorMoved:
		if s.onCursorMoved != nil {
			s.onCursorMoved(evt)
		}
	case event.UserAdded:
		if s.onUserAdded != nil {
			s.onUserAdded(evt)
		}
	case event.UserChangedColor:
		if s.onUserChangedColor != nil {
			s.onUserChangedColor(evt)
		}
	default:
		s.log.Debug("Unhandled event", "type", fmt.Sprintf("%T", e))
	}
}
