// Package ws is the websocket transport. Each connection gets its own view
// of one puzzle plus a mailbox on the dispatcher; the wire protocol is small
// JSON frames in both directions.
package ws

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"puzzle-lab/contract"
	"puzzle-lab/domain"
	"puzzle-lab/runtime"
	"puzzle-lab/view"
)

type Server struct {
	log        *slog.Logger
	store      contract.ICellStore
	users      contract.IUserRepository
	dispatcher *runtime.Dispatcher
	bufferSize int
	validate   *validator.Validate
	upgrader   websocket.Upgrader
}

// NewServer wires the transport to the shared state. bufferSize is the
// per-connection mailbox capacity; a session that far behind starts losing
// events rather than slowing everyone else down.
func NewServer(log *slog.Logger, store contract.ICellStore, users contract.IUserRepository,
	dispatcher *runtime.Dispatcher, bufferSize int) *Server {
	return &Server{
		log:        log,
		store:      store,
		users:      users,
		dispatcher: dispatcher,
		bufferSize: bufferSize,
		validate:   validator.New(),
	}
}

// ServeHTTP upgrades the connection and runs the session until it ends. The
// first client frame must be a hello naming the puzzle and either an
// existing user id or a name and color to register a new one.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	sess, err := s.handshake(conn)
	if err != nil {
		s.log.Warn("Handshake failed", "remote", r.RemoteAddr, "error", err)
		_ = conn.Close()
		return
	}

	if err := sess.run(r.Context()); err != nil {
		s.log.Warn("Session ended with error", "user", sess.user, "error", err)
	}
}

func (s *Server) handshake(conn *websocket.Conn) (*session, error) {
	var hello ClientFrame
	if err := conn.ReadJSON(&hello); err != nil {
		return nil, fmt.Errorf("reading hello: %w", err)
	}
	if err := s.validate.Struct(hello); err != nil {
		return nil, fmt.Errorf("malformed hello: %w", err)
	}
	if hello.Type != CommandHello {
		return nil, fmt.Errorf("expected hello, got %q", hello.Type)
	}

	user, err := s.resolveUser(hello)
	if err != nil {
		return nil, err
	}

	grid, err := s.store.Grid(domain.PuzzleID(hello.Puzzle))
	if err != nil {
		return nil, fmt.Errorf("loading puzzle %d: %w", hello.Puzzle, err)
	}

	subscriber := runtime.NewSubscriber(s.log, s.bufferSize)
	sess := &session{
		log:        s.log,
		conn:       conn,
		store:      s.store,
		users:      s.users,
		dispatcher: s.dispatcher,
		subscriber: subscriber,
		view:       view.New(s.log, grid, s.store, s.dispatcher, subscriber, user),
		user:       user,
		commands:   make(chan ClientFrame, s.bufferSize),
	}

	// Subscribed before the welcome goes out: a client that has its snapshot
	// must not miss the first event after it.
	s.dispatcher.Subscribe(subscriber)
	if err := conn.WriteJSON(s.welcome(grid, user)); err != nil {
		s.dispatcher.Unsubscribe(subscriber)
		return nil, fmt.Errorf("sending welcome: %w", err)
	}
	s.log.Info("Client joined", "user", user, "puzzle", grid.ID)
	return sess, nil
}

// resolveUser registers a new user when the hello carries a name, and joins
// the existing id otherwise. Newly registered users are announced to every
// open session; the announcement has no originating subscriber because the
// session does not exist yet.
func (s *Server) resolveUser(hello ClientFrame) (domain.UserID, error) {
	if hello.Name != "" {
		id, err := s.users.CreateUser(hello.Name, hello.Color)
		if err != nil {
			return domain.NoUser, fmt.Errorf("registering user: %w", err)
		}
		s.dispatcher.NotifyUserAdded(nil, id, hello.Name, hello.Color)
		return id, nil
	}

	users, err := s.users.GetUsers()
	if err != nil {
		return domain.NoUser, err
	}
	id := domain.UserID(hello.User)
	if !lo.ContainsBy(users, func(u domain.User) bool { return u.ID == id }) {
		return domain.NoUser, fmt.Errorf("unknown user %d", id)
	}
	return id, nil
}

func (s *Server) welcome(grid *domain.Puzzle, user domain.UserID) ServerFrame {
	cells := make([][]*CellState, len(grid.Rows))
	for r, row := range grid.Rows {
		cells[r] = make([]*CellState, len(row))
		for c := range row {
			ref := domain.CellRef{Row: r, Col: c}
			if grid.Cell(ref).IsNull() {
				continue
			}
			value := s.store.CharAt(grid.ID, ref)
			cells[r][c] = &CellState{
				Value: domain.EncodeCharacter(value.Character),
				User:  int64(value.User),
			}
		}
	}

	users, err := s.users.GetUsers()
	if err != nil {
		s.log.Warn("Listing users for welcome failed", "error", err)
	}

	return ServerFrame{Type: FrameWelcome, Welcome: &WelcomeFrame{
		Puzzle: int64(grid.ID),
		User:   int64(user),
		Cells:  cells,
		Users: lo.Map(users, func(u domain.User, _ int) UserFrame {
			return UserFrame{User: int64(u.ID), Name: u.Name, Color: u.Color}
		}),
		Cursors: lo.Map(s.dispatcher.UserPositions(), func(entry runtime.CursorEntry, _ int) CursorFrame {
			return cursorFrame(entry)
		}),
	}}
}
