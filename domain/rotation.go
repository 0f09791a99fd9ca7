package domain

import "fmt"

// Rotation is the orientation of the scanned puzzle image, in quarter turns.
type Rotation int

const (
	RotationNone Rotation = iota
	Clockwise90
	Clockwise180
	AntiClockwise90
)

func NextClockwise(r Rotation) Rotation {
	return (r + 1) % 4
}

func NextAntiClockwise(r Rotation) Rotation {
	return (r + 3) % 4
}

// Degrees returns the signed wire representation: 0, 90, 180 or -90.
func (r Rotation) Degrees() int {
	switch r {
	case Clockwise90:
		return 90
	case Clockwise180:
		return 180
	case AntiClockwise90:
		return -90
	default:
		return 0
	}
}

// RotationFromDegrees maps a wire value back to a Rotation. Only the four
// exact values produced by Degrees are valid; anything else is a defect in
// the stored record, not a best-effort input.
func RotationFromDegrees(degrees int) (Rotation, error) {
	switch degrees {
	case 0:
		return RotationNone, nil
	case 90:
		return Clockwise90, nil
	case 180:
		return Clockwise180, nil
	case -90:
		return AntiClockwise90, nil
	default:
		return RotationNone, fmt.Errorf("invalid rotation %d degrees", degrees)
	}
}
