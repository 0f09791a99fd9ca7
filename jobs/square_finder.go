// Package jobs holds the long-running detection job that turns a scanned
// puzzle image into a playable grid. The job is a regular worker: start it
// under a context, read progress from its status channel, cancel to abort.
package jobs

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"math"
	"os"

	"puzzle-lab/domain"
)

// Status is a progress report from a running SquareFinder. The channel is
// closed when the job finishes, so a consumer that missed the final Done
// still observes completion.
type Status interface{ isStatus() }

type ReadingImage struct{}
type Processing struct{ QueueSize int }
type PopulatingPuzzle struct{}
type Done struct{}

func (ReadingImage) isStatus()     {}
func (Processing) isStatus()       {}
func (PopulatingPuzzle) isStatus() {}
func (Done) isStatus()             {}

// lightnessThreshold bounds the 3x3-averaged lightness difference between a
// pixel and its flood-fill parent for both to belong to the same square.
const lightnessThreshold = 0.01

// SquareFinder detects the grid of answer squares in a puzzle image. The
// caller points it at one square; the finder flood-fills that square by
// lightness, then walks outwards square by square, accepting neighbours whose
// area is within 30% of the one they were reached from.
type SquareFinder struct {
	log    *slog.Logger
	puzzle *domain.Puzzle
	seed   image.Point
	status chan Status

	squares []foundSquare
}

type foundSquare struct {
	rect domain.Rect
	row  int
	col  int
}

// NewSquareFinder prepares a finder for the given puzzle. The seed is a pixel
// position inside any one answer square, in the coordinates of the image
// after the puzzle's rotation is applied.
func NewSquareFinder(log *slog.Logger, puzzle *domain.Puzzle, seed image.Point) *SquareFinder {
	return &SquareFinder{
		log:    log,
		puzzle: puzzle,
		seed:   seed,
		status: make(chan Status, 16),
	}
}

// Status returns the progress channel. It is closed when Run returns.
func (f *SquareFinder) Status() <-chan Status {
	return f.status
}

// Run executes the detection to completion or cancellation. On success the
// puzzle's rows are replaced with the detected grid.
func (f *SquareFinder) Run(ctx context.Context) error {
	defer close(f.status)

	f.post(ReadingImage{})
	pixels, err := readLightness(f.puzzle.Path, f.puzzle.Rotation)
	if err != nil {
		return fmt.Errorf("reading puzzle image: %w", err)
	}

	f.post(Processing{})
	if err := f.determineSquares(ctx, pixels); err != nil {
		return err
	}

	f.post(PopulatingPuzzle{})
	f.populatePuzzle(pixels)

	f.post(Done{})
	return nil
}

// post delivers a status update without ever blocking the job. Progress
// chatter is dropped when the consumer lags; completion is carried by the
// channel close as well.
func (f *SquareFinder) post(s Status) {
	select {
	case f.status <- s:
	default:
	}
}

// lightnessMap is a per-pixel HSL lightness plane of the rotated image.
type lightnessMap struct {
	w, h  int
	plane []float64
}

func (m *lightnessMap) at(x, y int) float64 {
	return m.plane[y*m.w+x]
}

// averaged is the lightness of the 3x3 block around a pixel. Callers only
// probe at least one pixel away from the image edge.
func (m *lightnessMap) averaged(x, y int) float64 {
	var total float64
	for x0 := x - 1; x0 <= x+1; x0++ {
		for y0 := y - 1; y0 <= y+1; y0++ {
			total += m.at(x0, y0)
		}
	}
	return total / 9.0
}

// readLightness decodes the image at path and returns its lightness plane,
// with the rotation already applied to the pixel coordinates.
func readLightness(path string, rotation domain.Rotation) (*lightnessMap, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return rotatedLightness(img, rotation), nil
}

func rotatedLightness(img image.Image, rotation domain.Rotation) *lightnessMap {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	w, h := srcW, srcH
	if rotation == domain.Clockwise90 || rotation == domain.AntiClockwise90 {
		w, h = h, w
	}

	m := &lightnessMap{w: w, h: h, plane: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sx, sy int
			switch rotation {
			case domain.Clockwise90:
				sx, sy = y, w-1-x
			case domain.Clockwise180:
				sx, sy = srcW-1-x, srcH-1-y
			case domain.AntiClockwise90:
				sx, sy = srcW-1-y, x
			default:
				sx, sy = x, y
			}
			r, g, b, _ := img.At(bounds.Min.X+sx, bounds.Min.Y+sy).RGBA()
			m.plane[y*w+x] = pixelLightness(r, g, b)
		}
	}
	return m
}

// pixelLightness is the L of HSL for 16-bit color channels.
func pixelLightness(r, g, b uint32) float64 {
	max := math.Max(float64(r), math.Max(float64(g), float64(b)))
	min := math.Min(float64(r), math.Min(float64(g), float64(b)))
	return (max + min) / 2.0 / 65535.0
}

// determineSquare flood-fills the square containing (x, y): neighbours join
// when their averaged lightness differs from their parent's by less than the
// threshold. Returns the bounding rectangle of the filled region.
func determineSquare(pixels *lightnessMap, x, y int) domain.Rect {
	visited := make([]bool, pixels.w*pixels.h)
	seedL := pixels.averaged(x, y)

	type queueEl struct {
		x, y int
		l    float64
	}
	queue := []queueEl{
		{x - 1, y, seedL},
		{x, y - 1, seedL},
		{x + 1, y, seedL},
		{x, y + 1, seedL},
	}
	visited[y*pixels.w+x] = true

	minX, maxX := x, x
	minY, maxY := y, y
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]

		if p.x < 1 || p.x >= pixels.w-1 || p.y < 1 || p.y >= pixels.h-1 {
			continue
		}
		if visited[p.y*pixels.w+p.x] {
			continue
		}
		visited[p.y*pixels.w+p.x] = true

		l := pixels.averaged(p.x, p.y)
		if math.Abs(l-p.l) >= lightnessThreshold {
			continue
		}
		queue = append(queue,
			queueEl{p.x - 1, p.y, l},
			queueEl{p.x, p.y - 1, l},
			queueEl{p.x + 1, p.y, l},
			queueEl{p.x, p.y + 1, l},
		)
		minX = min(minX, p.x)
		maxX = max(maxX, p.x)
		minY = min(minY, p.y)
		maxY = max(maxY, p.y)
	}

	return domain.Rect{
		X:      float64(minX),
		Y:      float64(minY),
		Width:  float64(maxX - minX + 1),
		Height: float64(maxY - minY + 1),
	}
}

// determineSquares grows the grid outwards from the seed square. From each
// accepted square it probes one square-width in every direction; a probe
// inside an already accepted square is skipped, and a detected region whose
// area differs from its parent's by more than 30% is rejected, which is what
// stops the walk at the puzzle border.
func (f *SquareFinder) determineSquares(ctx context.Context, pixels *lightnessMap) error {
	first := determineSquare(pixels, f.seed.X, f.seed.Y)
	f.squares = []foundSquare{{rect: first}}

	center := first.Center()
	cx, cy := int(center.X), int(center.Y)
	rw, rh := int(first.Width), int(first.Height)

	type queueEl struct {
		x, y     int
		area     float64
		row, col int
	}
	queue := []queueEl{
		{cx - rw, cy, first.Area(), 0, -1},
		{cx, cy - rh, first.Area(), -1, 0},
		{cx + rw, cy, first.Area(), 0, 1},
		{cx, cy + rh, first.Area(), 1, 0},
	}
	f.post(Processing{QueueSize: len(queue)})

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		p := queue[0]
		queue = queue[1:]
		f.post(Processing{QueueSize: len(queue)})

		if p.x < 1 || p.x >= pixels.w-1 || p.y < 1 || p.y >= pixels.h-1 {
			continue
		}
		if f.covered(domain.Point{X: float64(p.x), Y: float64(p.y)}) {
			continue
		}

		sq := determineSquare(pixels, p.x, p.y)
		area := sq.Area()
		if area < 0.7*p.area || area > 1.3*p.area {
			continue
		}

		f.squares = append(f.squares, foundSquare{rect: sq, row: p.row, col: p.col})

		c := sq.Center()
		ncx, ncy := int(c.X), int(c.Y)
		nrw, nrh := int(sq.Width), int(sq.Height)
		queue = append(queue,
			queueEl{ncx - nrw, ncy, area, p.row, p.col - 1},
			queueEl{ncx, ncy - nrh, area, p.row - 1, p.col},
			queueEl{ncx + nrw, ncy, area, p.row, p.col + 1},
			queueEl{ncx, ncy + nrh, area, p.row + 1, p.col},
		)
		f.post(Processing{QueueSize: len(queue)})
	}
	return nil
}

func (f *SquareFinder) covered(point domain.Point) bool {
	for _, square := range f.squares {
		if square.rect.Contains(point) {
			return true
		}
	}
	return false
}

// populatePuzzle rebuilds the puzzle's rows from the detected squares. Row
// and column indices are relative to the seed square and get normalised to
// start at zero; grid positions no square was found for stay null (blocked).
func (f *SquareFinder) populatePuzzle(pixels *lightnessMap) {
	if len(f.squares) == 0 {
		return
	}

	minRow, maxRow := f.squares[0].row, f.squares[0].row
	minCol, maxCol := f.squares[0].col, f.squares[0].col
	for _, square := range f.squares[1:] {
		minRow = min(minRow, square.row)
		maxRow = max(maxRow, square.row)
		minCol = min(minCol, square.col)
		maxCol = max(maxCol, square.col)
	}

	rows := maxRow - minRow + 1
	cols := maxCol - minCol + 1
	f.puzzle.Rows = make([][]domain.Cell, rows)
	for r := range f.puzzle.Rows {
		row := make([]domain.Cell, cols)
		for c := range row {
			row[c] = domain.Cell{User: domain.NoUser}
		}
		f.puzzle.Rows[r] = row
	}

	for _, square := range f.squares {
		cell := &f.puzzle.Rows[square.row-minRow][square.col-minCol]
		cell.Square = square.rect
	}

	f.puzzle.Width = pixels.w
	f.puzzle.Height = pixels.h
}
