package events

import (
	"github.com/kilianp07/fleetsim/core/model"
	"github.com/kilianp07/fleetsim/core/spatial"
)

// VehicleRequested is published when a request is served by a vehicle of its own.
type VehicleRequested struct {
	RunID     string
	TripID    int
	VehicleID int
	Delay     float64
}

func (VehicleRequested) Kind() string { return "vehicle_requested" }

// TripBundled is published when a request joins an open chain.
type TripBundled struct {
	RunID     string
	TripID    int
	VehicleID int
	Origin    spatial.Pixel
	Legs      int
	Distance  int
}

func (TripBundled) Kind() string { return "trip_bundled" }

// ChainDispatched is published when the legs of a chain are released.
type ChainDispatched struct {
	RunID        string
	Tick         int64
	VehicleID    int
	Legs         []model.Trip
	PersonMiles  int
	VehicleMiles int
}

func (ChainDispatched) Kind() string { return "chain_dispatched" }
