package domain

// Direction is a single navigation step on the grid.
type Direction int

const (
	Up Direction = iota
	Right
	Down
	Left
)

// Orientation is the typing direction of a solver: letters advance to the
// right when horizontal, downward when vertical.
type Orientation int

const (
	Horizontal Orientation = iota
	Vertical
)

// Forward is the direction a selection advances after typing a letter.
func (o Orientation) Forward() Direction {
	if o == Vertical {
		return Down
	}
	return Right
}

// Backward is the direction backspace travels.
func (o Orientation) Backward() Direction {
	if o == Vertical {
		return Up
	}
	return Left
}

func (o Orientation) Toggle() Orientation {
	if o == Horizontal {
		return Vertical
	}
	return Horizontal
}
