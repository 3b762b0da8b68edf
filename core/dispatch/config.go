package dispatch

import (
	"fmt"
	"math"
)

// MaxStopsLimit bounds the stop count so that the exhaustive route search
// stays tractable (8! orderings).
const MaxStopsLimit = 8

// Params are the tunable parameters of one simulation run.
type Params struct {
	// FleetSize is the number of vehicles bootstrapped from the first requests.
	FleetSize int `json:"fleet_size"`
	// VehicleSize is the seat capacity of every vehicle.
	VehicleSize int `json:"vehicle_size"`
	// DepartureDelay is the minimum number of seconds between a request and
	// the pickup, leaving room for later riders to join.
	DepartureDelay float64 `json:"departure_delay"`
	// MaxCircuity bounds the ratio between the shared and the direct distance
	// of every rider.
	MaxCircuity float64 `json:"max_circuity"`
	// MaxStops bounds the number of distinct dropoffs of a shared route.
	MaxStops int `json:"max_stops"`
	// LocalDemandDegree is the half-width of the repositioning window.
	LocalDemandDegree int `json:"local_demand_degree"`
	// GreedyCommonOrigin enables bundling of requests sharing a pickup pixel.
	GreedyCommonOrigin bool `json:"greedy_common_origin"`
	// InitialBeta is the belief weight of an unseen pixel.
	InitialBeta float64 `json:"initial_beta"`
	// BetaObs is the belief weight of one observation.
	BetaObs float64 `json:"beta_obs"`
	// FreqLEVRS is the repositioning cadence in ticks. Zero disables both
	// repositioning and online learning.
	FreqLEVRS int `json:"freq_levrs"`
}

// SetDefaults fills zero numeric values with the reference experiment
// settings. GreedyCommonOrigin is left untouched.
func (p *Params) SetDefaults() {
	if p.FleetSize == 0 {
		p.FleetSize = 15000
	}
	if p.VehicleSize == 0 {
		p.VehicleSize = 8
	}
	if p.MaxCircuity == 0 {
		p.MaxCircuity = 1.5
	}
	if p.MaxStops == 0 {
		p.MaxStops = 5
	}
	if p.InitialBeta == 0 {
		p.InitialBeta = 10
	}
	if p.BetaObs == 0 {
		p.BetaObs = 1
	}
}

// Validate rejects out of range parameters.
func (p Params) Validate() error {
	switch {
	case p.FleetSize <= 0:
		return fmt.Errorf("fleet_size must be positive, got %d", p.FleetSize)
	case p.VehicleSize <= 0:
		return fmt.Errorf("vehicle_size must be positive, got %d", p.VehicleSize)
	case p.DepartureDelay < 0 || math.IsNaN(p.DepartureDelay):
		return fmt.Errorf("departure_delay must be non-negative, got %v", p.DepartureDelay)
	case !(p.MaxCircuity >= 1):
		return fmt.Errorf("max_circuity must be at least 1, got %v", p.MaxCircuity)
	case p.MaxStops < 1 || p.MaxStops > MaxStopsLimit:
		return fmt.Errorf("max_stops must be within [1, %d], got %d", MaxStopsLimit, p.MaxStops)
	case p.LocalDemandDegree < 0:
		return fmt.Errorf("local_demand_degree must be non-negative, got %d", p.LocalDemandDegree)
	case !(p.InitialBeta > 0) || !(p.BetaObs > 0):
		return fmt.Errorf("initial_beta and beta_obs must be positive, got %v and %v", p.InitialBeta, p.BetaObs)
	case p.FreqLEVRS < 0:
		return fmt.Errorf("freq_levrs must be non-negative, got %d", p.FreqLEVRS)
	}
	return nil
}

// Fields flattens the parameters for structured logging.
func (p Params) Fields() map[string]any {
	return map[string]any{
		"fleet_size":           p.FleetSize,
		"vehicle_size":         p.VehicleSize,
		"departure_delay":      p.DepartureDelay,
		"max_circuity":         p.MaxCircuity,
		"max_stops":            p.MaxStops,
		"local_demand_degree":  p.LocalDemandDegree,
		"greedy_common_origin": p.GreedyCommonOrigin,
		"initial_beta":         p.InitialBeta,
		"beta_obs":             p.BetaObs,
		"freq_levrs":           p.FreqLEVRS,
	}
}
