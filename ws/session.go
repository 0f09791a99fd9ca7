package ws

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"puzzle-lab/contract"
	"puzzle-lab/domain"
	"puzzle-lab/domain/event"
	"puzzle-lab/runtime"
	"puzzle-lab/view"
)

// session is one connected editor. A dedicated reader goroutine feeds client
// commands into a channel; the session loop is the only goroutine that
// touches the view and the only one that writes to the connection, so
// neither needs a lock.
type session struct {
	log        *slog.Logger
	conn       *websocket.Conn
	store      contract.ICellStore
	users      contract.IUserRepository
	dispatcher *runtime.Dispatcher
	subscriber *runtime.Subscriber
	view       *view.View
	user       domain.UserID
	commands   chan ClientFrame
}

// run blocks until the client disconnects or the context ends. The
// subscriber was registered during the handshake; cleanup withdraws the
// cursor and unregisters the mailbox, so other sessions see the user leave.
func (s *session) run(ctx context.Context) error {
	defer func() {
		s.view.Close()
		s.dispatcher.Unsubscribe(s.subscriber)
		_ = s.conn.Close()
	}()

	go s.readPump()

	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-s.commands:
			if !ok {
				s.log.Info("Client disconnected", "user", s.user)
				return nil
			}
			s.apply(frame)
		case e := <-s.subscriber.Events():
			if err := s.forward(e); err != nil {
				return fmt.Errorf("pushing event to client: %w", err)
			}
		}
	}
}

// readPump decodes client frames until the connection drops, then closes the
// command channel to end the session loop.
func (s *session) readPump() {
	defer close(s.commands)
	for {
		var frame ClientFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("Connection dropped", "user", s.user, "error", err)
			}
			return
		}
		s.commands <- frame
	}
}

func (s *session) apply(frame ClientFrame) {
	switch frame.Type {
	case CommandKey:
		s.applyKey(frame.Key)
	case CommandClick:
		s.view.Click(domain.Point{X: frame.X, Y: frame.Y})
	case CommandMove:
		if direction, ok := decodeDirection(frame.Direction); ok {
			s.view.Move(direction)
		}
	case CommandDirection:
		s.applyDirection(frame.Direction)
	case CommandUndo:
		s.view.Undo()
	case CommandColor:
		s.applyColor(frame.Color)
	case CommandZoom:
		if frame.Zoom == "in" {
			s.view.ZoomIn()
		} else {
			s.view.ZoomOut()
		}
	default:
		s.log.Debug("Ignoring unknown command", "type", frame.Type, "user", s.user)
	}
}

func (s *session) applyKey(key string) {
	switch key {
	case "backspace":
		s.view.Backspace()
	case "delete":
		s.view.Delete()
	default:
		if utf8.RuneCountInString(key) == 1 {
			r, _ := utf8.DecodeRuneInString(key)
			s.view.TypeLetter(r)
		}
	}
}

func (s *session) applyDirection(direction string) {
	switch direction {
	case "horizontal":
		s.view.SetDirection(domain.Horizontal)
	case "vertical":
		s.view.SetDirection(domain.Vertical)
	case "toggle":
		s.view.ToggleDirection()
	}
}

func (s *session) applyColor(color string) {
	if err := s.users.UpdateColor(s.user, color); err != nil {
		s.log.Warn("Rejected color change", "user", s.user, "color", color, "error", err)
		return
	}
	s.dispatcher.NotifyUserChangedColor(s.subscriber, s.user, color)
}

// forward translates a broadcast event into a wire frame. Cell events carry
// only the address; the current value is read back from the store here, so a
// burst of writes to one cell collapses into frames that all show the latest
// state.
func (s *session) forward(e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.CellValueChanged:
		value := s.store.CharAt(evt.Puzzle, evt.Cell)
		return s.conn.WriteJSON(ServerFrame{Type: FrameCell, Cell: &CellFrame{
			Puzzle: int64(evt.Puzzle),
			Row:    evt.Cell.Row,
			Col:    evt.Cell.Col,
			Value:  domain.EncodeCharacter(value.Character),
			User:   int64(value.User),
		}})
	case event.CursorMoved:
		return s.conn.WriteJSON(ServerFrame{Type: FrameCursor, Cursor: &CursorFrame{
			Puzzle:    int64(evt.Puzzle),
			User:      int64(evt.User),
			Row:       evt.Cell.Row,
			Col:       evt.Cell.Col,
			Direction: encodeOrientation(evt.Direction),
		}})
	case event.UserAdded:
		return s.conn.WriteJSON(ServerFrame{Type: FrameUser, User: &UserFrame{
			User:  int64(evt.User),
			Name:  evt.Name,
			Color: evt.Color,
		}})
	case event.UserChangedColor:
		return s.conn.WriteJSON(ServerFrame{Type: FrameUser, User: &UserFrame{
			User:  int64(evt.User),
			Color: evt.Color,
		}})
	default:
		return nil
	}
}

func decodeDirection(s string) (domain.Direction, bool) {
	switch s {
	case "up":
		return domain.Up, true
	case "down":
		return domain.Down, true
	case "left":
		return domain.Left, true
	case "right":
		return domain.Right, true
	}
	return domain.Up, false
}
