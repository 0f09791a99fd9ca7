package ws

import (
	"puzzle-lab/domain"
	"puzzle-lab/runtime"
)

// Client command types.
const (
	CommandHello     = "hello"
	CommandKey       = "key"
	CommandClick     = "click"
	CommandMove      = "move"
	CommandDirection = "direction"
	CommandUndo      = "undo"
	CommandColor     = "color"
	CommandZoom      = "zoom"
)

// Server frame types.
const (
	FrameWelcome = "welcome"
	FrameCell    = "cell"
	FrameCursor  = "cursor"
	FrameUser    = "user"
)

// ClientFrame is one command from a connected editor. The first frame of a
// connection must be a hello; everything after that is an editing command.
type ClientFrame struct {
	Type string `json:"type" validate:"oneof=hello key click move direction undo color zoom"`

	// hello: a non-empty Name registers a new user with the given color;
	// otherwise User joins as an existing id.
	Puzzle int64  `json:"puzzle"`
	User   int64  `json:"user"`
	Name   string `json:"name,omitempty"`
	Color  string `json:"color,omitempty"`

	// key: a letter, "backspace" or "delete".
	Key string `json:"key,omitempty"`

	// click: pixel position in image coordinates.
	X float64 `json:"x"`
	Y float64 `json:"y"`

	// move: "up", "down", "left", "right".
	// direction: "horizontal", "vertical", "toggle".
	// zoom: "in", "out".
	Direction string `json:"direction,omitempty"`
	Zoom      string `json:"zoom,omitempty"`
}

// ServerFrame is one event pushed to a connected editor. Exactly one of the
// payload pointers is set, matching Type.
type ServerFrame struct {
	Type    string        `json:"type"`
	Welcome *WelcomeFrame `json:"welcome,omitempty"`
	Cell    *CellFrame    `json:"cell,omitempty"`
	Cursor  *CursorFrame  `json:"cursor,omitempty"`
	User    *UserFrame    `json:"user,omitempty"`
}

// WelcomeFrame is the initial snapshot: the full grid plus everyone already
// editing. A nil cell is blocked.
type WelcomeFrame struct {
	Puzzle  int64          `json:"puzzle"`
	User    int64          `json:"user"`
	Cells   [][]*CellState `json:"cells"`
	Users   []UserFrame    `json:"users"`
	Cursors []CursorFrame  `json:"cursors"`
}

type CellState struct {
	Value string `json:"value"`
	User  int64  `json:"user"`
}

type CellFrame struct {
	Puzzle int64  `json:"puzzle"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Value  string `json:"value"`
	User   int64  `json:"user"`
}

// CursorFrame reports a cursor position. Row and Col are -1 when the user
// left the grid.
type CursorFrame struct {
	Puzzle    int64  `json:"puzzle"`
	User      int64  `json:"user"`
	Row       int    `json:"row"`
	Col       int    `json:"col"`
	Direction string `json:"direction"`
}

type UserFrame struct {
	User  int64  `json:"user"`
	Name  string `json:"name,omitempty"`
	Color string `json:"color"`
}

func encodeOrientation(o domain.Orientation) string {
	if o == domain.Vertical {
		return "vertical"
	}
	return "horizontal"
}

func cursorFrame(entry runtime.CursorEntry) CursorFrame {
	return CursorFrame{
		Puzzle:    int64(entry.Puzzle),
		User:      int64(entry.User),
		Row:       entry.Cell.Row,
		Col:       entry.Cell.Col,
		Direction: encodeOrientation(entry.Direction),
	}
}
