// Package spatial maps the city onto an integer grid and provides the
// distance, travel time and neighborhood primitives used by dispatching.
package spatial

import "fmt"

// Pixel is one cell of the city grid.
type Pixel struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Valid reports whether both coordinates are non-negative.
func (p Pixel) Valid() bool { return p.X >= 0 && p.Y >= 0 }

func (p Pixel) String() string { return fmt.Sprintf("(%d, %d)", p.X, p.Y) }

// Direction enumerates the four one-pixel moves. The order is the tie-break
// order used when choosing a repositioning direction.
type Direction int

const (
	Right Direction = iota
	Up
	Left
	Down
)

// Directions lists every Direction in tie-break order.
var Directions = [...]Direction{Right, Up, Left, Down}

func (d Direction) String() string {
	switch d {
	case Right:
		return "right"
	case Up:
		return "up"
	case Left:
		return "left"
	case Down:
		return "down"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// Move returns the neighbour of p in direction d.
func (p Pixel) Move(d Direction) Pixel {
	switch d {
	case Right:
		return Pixel{p.X + 1, p.Y}
	case Up:
		return Pixel{p.X, p.Y + 1}
	case Left:
		return Pixel{p.X - 1, p.Y}
	case Down:
		return Pixel{p.X, p.Y - 1}
	}
	return p
}

// Distance is the Manhattan distance between two pixels.
func Distance(a, b Pixel) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Neighborhood returns the square window of half-width degree centred on p,
// keeping only cells whose coordinates are both strictly positive. Cells are
// returned column by column in ascending order.
func Neighborhood(p Pixel, degree int) []Pixel {
	if degree < 0 {
		return nil
	}
	out := make([]Pixel, 0, (2*degree+1)*(2*degree+1))
	for x := p.X - degree; x <= p.X+degree; x++ {
		if x <= 0 {
			continue
		}
		for y := p.Y - degree; y <= p.Y+degree; y++ {
			if y <= 0 {
				continue
			}
			out = append(out, Pixel{x, y})
		}
	}
	return out
}

// StepToward moves current one pixel closer to target, closing the
// vertical gap first. It returns current unchanged when both are equal.
func StepToward(current, target Pixel) Pixel {
	switch {
	case target.Y > current.Y:
		return current.Move(Up)
	case target.Y < current.Y:
		return current.Move(Down)
	case target.X > current.X:
		return current.Move(Right)
	case target.X < current.X:
		return current.Move(Left)
	}
	return current
}
