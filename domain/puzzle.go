package domain

// PuzzleID identifies a persisted puzzle. NoPuzzle is the sentinel for
// "no puzzle selected".
type PuzzleID int64

const NoPuzzle PuzzleID = -1

// CellRef addresses one cell inside a puzzle grid.
type CellRef struct {
	Row int
	Col int
}

// NoCell is the sentinel selection: nothing selected, cursor left the grid.
var NoCell = CellRef{Row: -1, Col: -1}

// CellValue is a cell's content together with the user who wrote it.
type CellValue struct {
	Character Character
	User      UserID
}

// Cell is one square of the grid. A cell with a null bounding box is blocked:
// it is skipped during navigation and never stores a character.
type Cell struct {
	Square    Rect
	Character Character
	User      UserID
}

func (c Cell) IsNull() bool {
	return c.Square.IsNull()
}

// Puzzle owns a rectangular row-major grid of cells detected on a scanned
// image. Geometry is immutable once the grid is populated; only Character and
// User of each cell change afterwards, and only through the cell store.
type Puzzle struct {
	ID       PuzzleID
	Path     string
	Rotation Rotation
	Width    int
	Height   int
	Rows     [][]Cell
}

func (p *Puzzle) Cell(ref CellRef) *Cell {
	return &p.Rows[ref.Row][ref.Col]
}

func (p *Puzzle) InBounds(ref CellRef) bool {
	return ref.Row >= 0 && ref.Row < len(p.Rows) &&
		ref.Col >= 0 && ref.Col < len(p.Rows[ref.Row])
}

// NextCell returns the nearest non-blocked cell from ref in the given
// direction, skipping blocked cells. If no such cell exists before the grid
// edge, ref itself is returned (the selection does not move).
func (p *Puzzle) NextCell(ref CellRef, direction Direction) CellRef {
	if ref == NoCell {
		return ref
	}

	dr, dc := direction.delta()
	next := CellRef{Row: ref.Row + dr, Col: ref.Col + dc}
	for p.InBounds(next) && p.Cell(next).IsNull() {
		next.Row += dr
		next.Col += dc
	}
	if !p.InBounds(next) {
		return ref
	}
	return next
}

// ImmediateNextCell returns the directly adjacent cell in the given direction,
// or NoCell if that cell is out of bounds or blocked. Used by the digraph
// handling, which must not skip over blocked cells.
func (p *Puzzle) ImmediateNextCell(ref CellRef, direction Direction) CellRef {
	if ref == NoCell {
		return ref
	}

	dr, dc := direction.delta()
	next := CellRef{Row: ref.Row + dr, Col: ref.Col + dc}
	if !p.InBounds(next) || p.Cell(next).IsNull() {
		return NoCell
	}
	return next
}

// CellAt finds the non-blocked cell whose bounding box contains the point.
// Overlapping boxes are disambiguated by distance to the box center.
func (p *Puzzle) CellAt(point Point) CellRef {
	closest := NoCell
	smallest := -1.0
	for r, row := range p.Rows {
		for c, cell := range row {
			if cell.IsNull() || !cell.Square.Contains(point) {
				continue
			}
			d := Distance(point, cell.Square.Center())
			if closest == NoCell || d < smallest {
				closest = CellRef{Row: r, Col: c}
				smallest = d
			}
		}
	}
	return closest
}

// Rotate turns the puzzle a quarter turn, swapping the pixel dimensions.
func (p *Puzzle) Rotate(clockwise bool) {
	p.Width, p.Height = p.Height, p.Width
	if clockwise {
		p.Rotation = NextClockwise(p.Rotation)
	} else {
		p.Rotation = NextAntiClockwise(p.Rotation)
	}
}

func (d Direction) delta() (dr, dc int) {
	switch d {
	case Up:
		return -1, 0
	case Right:
		return 0, 1
	case Down:
		return 1, 0
	default:
		return 0, -1
	}
}
