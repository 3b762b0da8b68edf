// Package report aggregates the performance indicators of a finished run.
package report

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/fleetsim/core/fleet"
	"github.com/kilianp07/fleetsim/core/model"
)

// Summary holds the indicators reported for one run.
type Summary struct {
	Trips  int `json:"trips"`
	Riders int `json:"riders"`
	// PerOccupantWait is the occupancy weighted mean wait in seconds.
	PerOccupantWait float64 `json:"per_occupant_wait"`
	// PerTripReposition is the fleet repositioning distance divided by the
	// number of trips.
	PerTripReposition float64 `json:"per_trip_reposition"`
	// AverageOccupancy is person miles over vehicle miles, repositioning included.
	AverageOccupancy float64 `json:"average_occupancy"`
	// WeightedCircuity is the occupancy weighted mean circuity of every leg.
	WeightedCircuity float64 `json:"weighted_circuity"`

	PersonMiles        int `json:"person_miles"`
	VehicleMiles       int `json:"vehicle_miles"`
	RepositionDistance int `json:"reposition_distance"`
}

// Collector accumulates dispatched chains as they are written.
type Collector struct {
	trips     int
	riders    float64
	waitSum   float64
	circuity  float64
	scratch   []*model.Trip
	waits     []float64
	occupancy []float64
}

// Add accounts for one dispatched chain, legs in visiting order.
func (c *Collector) Add(legs []model.Trip) {
	if len(legs) == 0 {
		return
	}
	c.scratch = c.scratch[:0]
	c.waits = c.waits[:0]
	c.occupancy = c.occupancy[:0]
	for i := range legs {
		c.scratch = append(c.scratch, &legs[i])
		c.waits = append(c.waits, legs[i].Wait())
		c.occupancy = append(c.occupancy, float64(legs[i].Occupancy))
	}
	c.trips += len(legs)
	c.riders += floats.Sum(c.occupancy)
	c.waitSum += floats.Dot(c.waits, c.occupancy)
	c.circuity += floats.Dot(fleet.Circuity(c.scratch), c.occupancy)
}

// Trips returns the number of legs collected so far.
func (c *Collector) Trips() int { return c.trips }

// Summary combines the collected chains with the final fleet counters.
func (c *Collector) Summary(vehicles []model.Vehicle) Summary {
	s := fleetTotals(vehicles)
	s.Trips = c.trips
	s.Riders = int(c.riders)
	if c.riders > 0 {
		s.PerOccupantWait = c.waitSum / c.riders
		s.WeightedCircuity = c.circuity / c.riders
	}
	finish(&s)
	return s
}

// Summarize computes the indicators from a complete trip log. Legs sharing a
// vehicle must appear in visiting order.
func Summarize(legs []model.Trip, vehicles []model.Vehicle) Summary {
	s := fleetTotals(vehicles)
	s.Trips = len(legs)
	if len(legs) == 0 {
		finish(&s)
		return s
	}
	waits := make([]float64, len(legs))
	weights := make([]float64, len(legs))
	for i, t := range legs {
		waits[i] = t.Wait()
		weights[i] = float64(t.Occupancy)
	}
	s.Riders = int(floats.Sum(weights))
	s.PerOccupantWait = stat.Mean(waits, weights)

	var c Collector
	for _, chain := range chains(legs) {
		c.Add(chain)
	}
	s.WeightedCircuity = c.circuity / c.riders
	finish(&s)
	return s
}

// chains splits a trip log into chains by following the joined trip ids.
func chains(legs []model.Trip) [][]model.Trip {
	byID := make(map[int]int, len(legs))
	joined := make(map[int]bool, len(legs))
	for i, t := range legs {
		byID[t.ID] = i
		if !t.Terminal() {
			joined[t.JoinedTripID] = true
		}
	}
	var out [][]model.Trip
	for _, t := range legs {
		if joined[t.ID] {
			continue
		}
		chain := []model.Trip{t}
		for cur := t; !cur.Terminal() && len(chain) <= len(legs); {
			i, ok := byID[cur.JoinedTripID]
			if !ok {
				break
			}
			cur = legs[i]
			chain = append(chain, cur)
		}
		out = append(out, chain)
	}
	return out
}

func fleetTotals(vehicles []model.Vehicle) Summary {
	var s Summary
	for _, v := range vehicles {
		s.PersonMiles += v.PersonMiles
		s.VehicleMiles += v.VehicleMiles
		s.RepositionDistance += v.RepositionDistance
	}
	return s
}

func finish(s *Summary) {
	if s.Trips > 0 {
		s.PerTripReposition = float64(s.RepositionDistance) / float64(s.Trips)
	}
	if driven := s.VehicleMiles + s.RepositionDistance; driven > 0 {
		s.AverageOccupancy = float64(s.PersonMiles) / float64(driven)
	}
}
