package dispatch

import (
	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/fleetsim/core/model"
	"github.com/kilianp07/fleetsim/core/prediction"
	"github.com/kilianp07/fleetsim/core/spatial"
)

// Move is a one-pixel repositioning of an idle vehicle.
type Move struct {
	VehicleID int
	From      spatial.Pixel
	To        spatial.Pixel
	Direction spatial.Direction
}

// Repositioner climbs the expected demand gradient one pixel at a time.
type Repositioner struct {
	pred   prediction.DemandPredictor
	grid   *spatial.Grid
	degree int
}

// NewRepositioner returns a Repositioner summing demand within degree pixels.
func NewRepositioner(pred prediction.DemandPredictor, grid *spatial.Grid, degree int) *Repositioner {
	return &Repositioner{pred: pred, grid: grid, degree: degree}
}

// Direction returns the side of p with the highest expected demand. Ties go
// to right, then up, left and down. Moves leaving the grid are never chosen.
func (r *Repositioner) Direction(p spatial.Pixel, dayCode, block int) spatial.Direction {
	demand := prediction.DirectionalDemand(r.pred, p, r.degree, dayCode, block)
	for _, d := range spatial.Directions {
		if !p.Move(d).Valid() {
			demand[d] = -1
		}
	}
	return spatial.Directions[floats.MaxIdx(demand[:])]
}

// Step moves every vehicle idle before tick and returns the moves made.
func (r *Repositioner) Step(tick int64, vehicles []*model.Vehicle) []Move {
	now := float64(tick)
	dayCode := model.DayCode(model.DayOfWeekAt(now))
	block := model.TimeBlock(now)
	var moves []Move
	for _, v := range vehicles {
		if v.FreeAt >= now {
			continue
		}
		dir := r.Direction(v.Location, dayCode, block)
		from := v.Location
		to := from.Move(dir)
		v.EmptyReposition(now, to, r.grid.Speed())
		moves = append(moves, Move{VehicleID: v.ID, From: from, To: to, Direction: dir})
	}
	return moves
}
