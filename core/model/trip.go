// Package model defines the trip and vehicle entities shared by the dispatch
// and simulation packages.
package model

import (
	"fmt"

	"github.com/kilianp07/fleetsim/core/spatial"
)

// Unassigned marks a trip that has no vehicle yet.
const Unassigned = -1

// Trip is a single rider request. Times are seconds since the start of the
// simulated year. Trips sharing a vehicle form a chain through JoinedTripID;
// a trip joined to itself terminates the chain.
type Trip struct {
	ID           int `json:"trip_id"`
	JoinedTripID int `json:"joined_trip_id"`
	VehicleID    int `json:"vehicle_id"`

	Pickup  spatial.Pixel `json:"pickup"`
	Dropoff spatial.Pixel `json:"dropoff"`

	PickupRequestTime   float64 `json:"pickup_request_time"`
	OriginalDropoffTime float64 `json:"original_dropoff_time"`
	PickupTime          float64 `json:"pickup_time"`
	DropoffTime         float64 `json:"dropoff_time"`

	Occupancy int `json:"occupancy"`
	DayOfWeek int `json:"day_of_week"`
}

// NewTrip builds an unassigned trip whose scheduled times equal the requested
// ones and validates it.
func NewTrip(id int, pickup, dropoff spatial.Pixel, requestTime, dropoffTime float64, occupancy, dayOfWeek int) (*Trip, error) {
	t := &Trip{
		ID:                  id,
		JoinedTripID:        id,
		VehicleID:           Unassigned,
		Pickup:              pickup,
		Dropoff:             dropoff,
		PickupRequestTime:   requestTime,
		OriginalDropoffTime: dropoffTime,
		PickupTime:          requestTime,
		DropoffTime:         dropoffTime,
		Occupancy:           occupancy,
		DayOfWeek:           dayOfWeek,
	}
	if err := t.Validate("new trip"); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the trip invariants. op names the operation for the error.
func (t *Trip) Validate(op string) error {
	switch {
	case t.OriginalDropoffTime < t.PickupRequestTime:
		return newTripError(op, "original dropoff time precedes request time", t)
	case t.PickupTime < t.PickupRequestTime:
		return newTripError(op, "pickup time precedes request time", t)
	case t.DropoffTime < t.PickupTime:
		return newTripError(op, "dropoff time precedes pickup time", t)
	case t.Occupancy <= 0:
		return newTripError(op, "occupancy must be positive", t)
	case !t.Pickup.Valid() || !t.Dropoff.Valid():
		return newTripError(op, "pixel outside the grid", t)
	}
	return nil
}

// Terminal reports whether the trip ends its chain.
func (t *Trip) Terminal() bool { return t.JoinedTripID == t.ID }

// Assigned reports whether a vehicle serves the trip.
func (t *Trip) Assigned() bool { return t.VehicleID != Unassigned }

// DirectDistance is the pickup to dropoff distance of the trip alone.
func (t *Trip) DirectDistance() int { return spatial.Distance(t.Pickup, t.Dropoff) }

// PersonMiles weights the direct distance by the number of riders.
func (t *Trip) PersonMiles() int { return t.Occupancy * t.DirectDistance() }

// SetVehicle assigns the trip to a vehicle.
func (t *Trip) SetVehicle(id int) error {
	t.VehicleID = id
	return t.Validate("set vehicle")
}

// IncreaseTimeDelay shifts both scheduled times by delay seconds.
func (t *Trip) IncreaseTimeDelay(delay float64) error {
	t.PickupTime += delay
	t.DropoffTime += delay
	return t.Validate("increase time delay")
}

// SetTimes overwrites the scheduled pickup and dropoff times.
func (t *Trip) SetTimes(pickup, dropoff float64) error {
	t.PickupTime = pickup
	t.DropoffTime = dropoff
	return t.Validate("set times")
}

// Wait is the time a rider waited between request and pickup.
func (t *Trip) Wait() float64 { return t.PickupTime - t.PickupRequestTime }

func (t *Trip) String() string {
	return fmt.Sprintf("trip %d %v->%v veh=%d req=%.1f pu=%.1f do=%.1f occ=%d next=%d",
		t.ID, t.Pickup, t.Dropoff, t.VehicleID, t.PickupRequestTime, t.PickupTime, t.DropoffTime, t.Occupancy, t.JoinedTripID)
}
