package metrics

import "time"

// ChainDispatch describes one chain released by the dispatch buffer.
type ChainDispatch struct {
	RunID        string
	VehicleID    int
	Legs         int
	Riders       int
	PersonMiles  int
	VehicleMiles int
	// Wait is the occupancy weighted mean wait of the chain's riders in seconds.
	Wait float64
	// SimTime is the simulation clock at dispatch.
	SimTime int64
}

// MetricsSink records dispatched chains for observability purposes.
type MetricsSink interface {
	RecordChainDispatch(ev []ChainDispatch) error
}

// RepositionEvent aggregates the moves of one repositioning round.
type RepositionEvent struct {
	RunID    string
	Moves    int
	Distance int
	SimTime  int64
}

// RepositionRecorder records repositioning rounds.
type RepositionRecorder interface {
	RecordReposition(ev RepositionEvent) error
}

// RunSummaryEvent is emitted once per finished run.
type RunSummaryEvent struct {
	RunID  string
	Params map[string]any
	Failed bool
	Error  string

	Trips             int
	PerOccupantWait   float64
	PerTripReposition float64
	AverageOccupancy  float64
	WeightedCircuity  float64
	Duration          time.Duration
	Time              time.Time
}

// RunSummaryRecorder records run summaries.
type RunSummaryRecorder interface {
	RecordRunSummary(ev RunSummaryEvent) error
}

// RequestEvent describes how one trip request was served.
type RequestEvent struct {
	RunID     string
	TripID    int
	VehicleID int
	Bundled   bool
	// Delay is the time between the request and the earliest pickup. It is
	// zero for bundled requests.
	Delay float64
	Time  time.Time
}

// RequestRecorder records served requests.
type RequestRecorder interface {
	RecordRequest(ev RequestEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordChainDispatch([]ChainDispatch) error { return nil }
func (NopSink) RecordReposition(RepositionEvent) error    { return nil }
func (NopSink) RecordRunSummary(RunSummaryEvent) error    { return nil }
func (NopSink) RecordRequest(RequestEvent) error          { return nil }
