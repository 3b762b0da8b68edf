package model

import (
	"fmt"

	"github.com/kilianp07/fleetsim/core/spatial"
)

// Vehicle is a fleet member. Location and FreeAt describe the last known
// ping: where the vehicle will be and when it becomes idle once its current
// schedule completes.
type Vehicle struct {
	ID         int           `json:"vehicle_id"`
	LatestTrip int           `json:"latest_trip"`
	Location   spatial.Pixel `json:"location"`
	FreeAt     float64       `json:"time_of_last_ping"`

	RepositionDistance int `json:"repositioning_distance"`
	PersonMiles        int `json:"person_miles"`
	VehicleMiles       int `json:"vehicle_miles"`
}

// NewVehicle creates a vehicle that has just completed trip t on its own.
func NewVehicle(id int, t *Trip) *Vehicle {
	return &Vehicle{
		ID:           id,
		LatestTrip:   t.ID,
		Location:     t.Dropoff,
		FreeAt:       t.DropoffTime,
		PersonMiles:  t.PersonMiles(),
		VehicleMiles: t.DirectDistance(),
	}
}

// AddTripToSchedule appends t after the vehicle's current schedule. The empty
// drive to the pickup counts as repositioning.
func (v *Vehicle) AddTripToSchedule(t *Trip) {
	v.RepositionDistance += spatial.Distance(v.Location, t.Pickup)
	v.LatestTrip = t.ID
	v.Location = t.Dropoff
	v.FreeAt = t.DropoffTime
}

// ReplaceLastTrip swaps the vehicle's last scheduled chain for one starting at
// head and ending at tail.
func (v *Vehicle) ReplaceLastTrip(head, tail *Trip) {
	v.LatestTrip = head.ID
	v.Location = tail.Dropoff
	v.FreeAt = tail.DropoffTime
}

// EmptyReposition drives the idle vehicle to target starting at start. It
// returns the distance covered.
func (v *Vehicle) EmptyReposition(start float64, target spatial.Pixel, speed float64) int {
	d := spatial.Distance(v.Location, target)
	v.RepositionDistance += d
	v.Location = target
	v.FreeAt = start + float64(d)/speed
	return d
}

// AddMileage credits a dispatched chain to the vehicle.
func (v *Vehicle) AddMileage(personMiles, vehicleMiles int) {
	v.PersonMiles += personMiles
	v.VehicleMiles += vehicleMiles
}

func (v *Vehicle) String() string {
	return fmt.Sprintf("vehicle %d at %v free=%.1f latest=%d", v.ID, v.Location, v.FreeAt, v.LatestTrip)
}
