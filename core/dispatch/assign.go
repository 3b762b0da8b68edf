package dispatch

import (
	"errors"
	"math"

	"github.com/kilianp07/fleetsim/core/model"
	"github.com/kilianp07/fleetsim/core/spatial"
)

// ErrNoVehicle is returned when the fleet is empty.
var ErrNoVehicle = errors.New("no vehicle available")

// Assignment is the outcome of a vehicle selection.
type Assignment struct {
	VehicleID int
	// Delay is the time between the request and the earliest pickup.
	Delay float64
}

// Assigner selects the vehicle able to reach a pickup first.
type Assigner struct {
	grid *spatial.Grid
}

// NewAssigner returns an Assigner using grid for travel times.
func NewAssigner(grid *spatial.Grid) *Assigner {
	return &Assigner{grid: grid}
}

// Select returns the vehicle with the earliest arrival at the pickup of t.
// Vehicles are scanned in ascending id so ties go to the lowest id. A vehicle
// parked on the pickup pixel is taken immediately. Select does not modify
// anything.
func (a *Assigner) Select(t *model.Trip, vehicles []*model.Vehicle) (Assignment, error) {
	if len(vehicles) == 0 {
		return Assignment{}, ErrNoVehicle
	}
	best := Assignment{VehicleID: -1}
	bestArrival := math.Inf(1)
	for _, v := range vehicles {
		travel := a.grid.TravelTime(v.Location, t.Pickup)
		arrival := math.Max(v.FreeAt, t.PickupRequestTime) + travel
		if travel == 0 {
			best, bestArrival = Assignment{VehicleID: v.ID}, arrival
			break
		}
		if arrival < bestArrival {
			best, bestArrival = Assignment{VehicleID: v.ID}, arrival
		}
	}
	if best.VehicleID < 0 {
		return Assignment{}, ErrNoVehicle
	}
	best.Delay = bestArrival - t.PickupRequestTime
	if best.Delay < 0 || math.IsNaN(best.Delay) {
		return Assignment{}, &model.InvariantError{Op: "assign", Reason: "negative time delay", Trip: snapshot(t)}
	}
	return best, nil
}

func snapshot(t *model.Trip) *model.Trip {
	cp := *t
	return &cp
}
