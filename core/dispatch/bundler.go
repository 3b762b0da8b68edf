package dispatch

import (
	"errors"
	"fmt"

	"github.com/kilianp07/fleetsim/core/events"
	"github.com/kilianp07/fleetsim/core/fleet"
	"github.com/kilianp07/fleetsim/core/model"
	"github.com/kilianp07/fleetsim/core/spatial"
)

// Rejection reasons reported by Plan.
const (
	RejectNoOpenChain = "no_open_chain"
	RejectStale       = "stale_chain"
	RejectLate        = "late_request"
	RejectCapacity    = "capacity"
	RejectRoute       = "route"
)

// Plan is a proposed extension of the open chain at a pickup pixel.
type Plan struct {
	// Head is the current head of the open chain.
	Head *model.Trip
	// Legs are the legs of the extended chain in visiting order.
	Legs    []*model.Trip
	Vehicle *model.Vehicle
	Route   Route
	// Rejected names the reason the request cannot join, empty when it can.
	Rejected string
}

// Plan evaluates whether t can join the latest open chain at its pickup
// pixel. It does not modify any state.
func (e *Engine) Plan(t *model.Trip) (Plan, error) {
	entry, ok := e.queues.Latest(t.Pickup)
	if !ok {
		return Plan{Rejected: RejectNoOpenChain}, nil
	}
	head, ok := e.trips.Get(entry.TripID)
	if !ok {
		return Plan{}, fmt.Errorf("%w: open chain %d at %v is not live", fleet.ErrBrokenChain, entry.TripID, t.Pickup)
	}
	v, err := e.fleet.Get(head.VehicleID)
	if err != nil {
		return Plan{}, fmt.Errorf("open chain %d: %w", head.ID, err)
	}
	p := Plan{Head: head, Vehicle: v}
	if v.LatestTrip != head.ID {
		p.Rejected = RejectStale
		return p, nil
	}
	if t.PickupRequestTime > head.PickupTime {
		p.Rejected = RejectLate
		return p, nil
	}
	legs, err := e.trips.Chain(head.ID)
	if err != nil {
		return Plan{}, err
	}
	riders := t.Occupancy
	for _, leg := range legs {
		riders += leg.Occupancy
	}
	if riders > e.params.VehicleSize {
		p.Rejected = RejectCapacity
		return p, nil
	}

	candidates := append(append(make([]*model.Trip, 0, len(legs)+1), legs...), t)
	dests := make([]spatial.Pixel, len(candidates))
	for i, c := range candidates {
		dests[i] = c.Dropoff
	}
	route, err := e.router.Best(t.Pickup, dests)
	if errors.Is(err, ErrInfeasible) {
		routeSearches.WithLabelValues("infeasible").Inc()
		p.Rejected = RejectRoute
		return p, nil
	}
	if err != nil {
		return Plan{}, err
	}
	routeSearches.WithLabelValues("feasible").Inc()
	p.Route = route
	p.Legs = make([]*model.Trip, len(route.Order))
	for i, idx := range route.Order {
		p.Legs[i] = candidates[idx]
	}
	for _, leg := range p.Legs {
		if leg.PickupRequestTime > head.PickupTime {
			p.Rejected = RejectLate
			return p, nil
		}
	}
	return p, nil
}

// bundle joins t to the open chain at its pickup pixel when Plan accepts it.
func (e *Engine) bundle(t *model.Trip) (bool, error) {
	p, err := e.Plan(t)
	if err != nil {
		return false, err
	}
	if p.Rejected != "" {
		e.log.Debugw("bundling rejected", map[string]any{"trip_id": t.ID, "reason": p.Rejected, "pickup": t.Pickup.String()})
		return false, nil
	}

	pickup := p.Head.PickupTime
	fleet.Relink(p.Legs)
	if err := e.syncChain(p.Legs, pickup, p.Vehicle.ID); err != nil {
		return false, err
	}
	newHead, tail := p.Legs[0], p.Legs[len(p.Legs)-1]
	p.Vehicle.ReplaceLastTrip(newHead, tail)
	if !e.queues.Replace(t.Pickup, p.Head.ID, OriginEntry{Destination: newHead.Dropoff, TripID: newHead.ID}) {
		return false, fmt.Errorf("origin queue at %v lost chain %d", t.Pickup, p.Head.ID)
	}
	if err := e.buffer.UpdateKey(p.Head.ID, pickup, newHead.ID, newHead.PickupTime); err != nil {
		return false, err
	}

	e.bundled++
	requestsHandled.WithLabelValues("bundled").Inc()
	e.publish(events.TripBundled{RunID: e.runID, TripID: t.ID, VehicleID: p.Vehicle.ID, Origin: t.Pickup, Legs: len(p.Legs), Distance: p.Route.Distance})
	return true, nil
}

// syncChain gives every leg the common pickup time and cumulative dropoff
// times along the visiting order.
func (e *Engine) syncChain(legs []*model.Trip, pickup float64, vehicleID int) error {
	at := pickup
	prev := legs[0].Pickup
	for _, leg := range legs {
		at += e.grid.TravelTime(prev, leg.Dropoff)
		prev = leg.Dropoff
		if err := leg.SetTimes(pickup, at); err != nil {
			return err
		}
		if err := leg.SetVehicle(vehicleID); err != nil {
			return err
		}
	}
	return nil
}
