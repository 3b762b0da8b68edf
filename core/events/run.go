package events

import "github.com/kilianp07/fleetsim/core/spatial"

// VehicleRepositioned is published for every one-pixel repositioning move.
type VehicleRepositioned struct {
	RunID     string
	VehicleID int
	From      spatial.Pixel
	To        spatial.Pixel
	Direction spatial.Direction
}

func (VehicleRepositioned) Kind() string { return "vehicle_repositioned" }

// RunProgress reports the state of a run's clock.
type RunProgress struct {
	RunID      string
	Tick       int64
	Dispatched int
	Live       int
	Buffered   int
	// Open is the number of chains still accepting riders at their pickup.
	Open int
}

func (RunProgress) Kind() string { return "run_progress" }
