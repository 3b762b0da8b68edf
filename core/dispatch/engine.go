// Package dispatch assigns vehicles to trip requests, bundles requests that
// share a pickup pixel, buffers scheduled chains until their pickup time and
// repositions idle vehicles toward expected demand.
package dispatch

import (
	"fmt"
	"math"

	"github.com/kilianp07/fleetsim/core/events"
	"github.com/kilianp07/fleetsim/core/fleet"
	"github.com/kilianp07/fleetsim/core/logger"
	"github.com/kilianp07/fleetsim/core/metrics"
	"github.com/kilianp07/fleetsim/core/model"
	"github.com/kilianp07/fleetsim/core/prediction"
	"github.com/kilianp07/fleetsim/core/spatial"
	infralogger "github.com/kilianp07/fleetsim/infra/logger"
	"github.com/kilianp07/fleetsim/internal/eventbus"
)

// LegWriter persists dispatched legs in dispatch order.
type LegWriter interface {
	WriteLegs(legs []model.Trip) error
}

// Options carries the optional collaborators of an Engine.
type Options struct {
	RunID string
	// Predictor enables repositioning when set.
	Predictor prediction.DemandPredictor
	Sink      metrics.MetricsSink
	Bus       *eventbus.TypedBus[events.Event]
	Logger    logger.Logger
	// RouteCache is the number of memoized route searches. Zero disables it.
	RouteCache int
}

// Engine owns the dispatch state of one run: live trips, per-origin queues
// and the dispatch buffer. It is not safe for concurrent use.
type Engine struct {
	params Params
	grid   *spatial.Grid
	fleet  *fleet.Registry
	trips  *fleet.TripLog
	queues *OriginQueues
	buffer *Buffer

	assigner *Assigner
	router   *RouteOptimizer
	mover    *Repositioner

	out   LegWriter
	sink  metrics.MetricsSink
	bus   *eventbus.TypedBus[events.Event]
	log   logger.Logger
	runID string

	dispatched int
	bundled    int
	requested  int
}

// NewEngine wires an engine around an already populated fleet.
func NewEngine(p Params, grid *spatial.Grid, reg *fleet.Registry, out LegWriter, opts Options) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if grid == nil || reg == nil || out == nil {
		return nil, fmt.Errorf("dispatch engine needs a grid, a fleet and a leg writer")
	}
	e := &Engine{
		params:   p,
		grid:     grid,
		fleet:    reg,
		trips:    fleet.NewTripLog(),
		queues:   NewOriginQueues(),
		buffer:   NewBuffer(),
		assigner: NewAssigner(grid),
		router:   NewRouteOptimizer(p.MaxCircuity, p.MaxStops, opts.RouteCache),
		out:      out,
		sink:     opts.Sink,
		bus:      opts.Bus,
		log:      opts.Logger,
		runID:    opts.RunID,
	}
	if opts.Predictor != nil {
		e.mover = NewRepositioner(opts.Predictor, grid, p.LocalDemandDegree)
	}
	if e.sink == nil {
		e.sink = metrics.NopSink{}
	}
	if e.log == nil {
		e.log = infralogger.NopLogger{}
	}
	return e, nil
}

// Trips exposes the live trip log.
func (e *Engine) Trips() *fleet.TripLog { return e.trips }

// Buffer exposes the dispatch buffer.
func (e *Engine) Buffer() *Buffer { return e.buffer }

// Queues exposes the per-origin queues.
func (e *Engine) Queues() *OriginQueues { return e.queues }

// Stats returns the number of dispatched legs, bundled requests and requests
// served by their own vehicle.
func (e *Engine) Stats() (dispatched, bundled, requested int) {
	return e.dispatched, e.bundled, e.requested
}

// Handle admits a new request. It joins an open chain at the same pickup
// pixel when bundling is enabled and feasible, otherwise it receives a
// vehicle of its own.
func (e *Engine) Handle(t *model.Trip) error {
	if err := e.trips.Insert(t); err != nil {
		return err
	}
	if e.params.GreedyCommonOrigin {
		ok, err := e.bundle(t)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return e.requestVehicle(t)
}

func (e *Engine) requestVehicle(t *model.Trip) error {
	a, err := e.assigner.Select(t, e.fleet.All())
	if err != nil {
		return fmt.Errorf("assign trip %d: %w", t.ID, err)
	}
	v, err := e.fleet.Get(a.VehicleID)
	if err != nil {
		return err
	}
	if err := t.SetVehicle(v.ID); err != nil {
		return err
	}
	if err := t.IncreaseTimeDelay(math.Max(a.Delay, e.params.DepartureDelay)); err != nil {
		return err
	}
	v.AddTripToSchedule(t)
	e.buffer.Push(t.ID, t.PickupTime)
	e.queues.Append(t.Pickup, OriginEntry{Destination: t.Dropoff, TripID: t.ID})
	e.requested++
	requestsHandled.WithLabelValues("new_vehicle").Inc()
	e.publish(events.VehicleRequested{RunID: e.runID, TripID: t.ID, VehicleID: v.ID, Delay: a.Delay})
	return nil
}

// Clear releases every chain whose pickup time has been reached at tick.
func (e *Engine) Clear(tick int64) error {
	var batch []metrics.ChainDispatch
	for {
		head, ok := e.buffer.Peek()
		if !ok || int64(math.Floor(head.PickupTime)) > tick {
			break
		}
		ev, err := e.dispatchChain(head, tick)
		if err != nil {
			return err
		}
		batch = append(batch, ev)
	}
	if len(batch) == 0 {
		return nil
	}
	if err := e.sink.RecordChainDispatch(batch); err != nil {
		e.log.Warnf("record chain dispatch: %v", err)
	}
	return nil
}

func (e *Engine) dispatchChain(head BufferEntry, tick int64) (metrics.ChainDispatch, error) {
	legs, err := e.trips.Chain(head.TripID)
	if err != nil {
		return metrics.ChainDispatch{}, fmt.Errorf("dispatch at %d: %w", tick, err)
	}
	v, err := e.fleet.Get(legs[0].VehicleID)
	if err != nil {
		return metrics.ChainDispatch{}, fmt.Errorf("dispatch trip %d: %w", head.TripID, err)
	}
	pm, vm := fleet.PersonMiles(legs), fleet.VehicleMiles(legs)
	v.AddMileage(pm, vm)

	out := make([]model.Trip, len(legs))
	riders := 0
	wait := 0.0
	for i, leg := range legs {
		if err := leg.Validate("dispatch"); err != nil {
			return metrics.ChainDispatch{}, err
		}
		if leg.VehicleID != v.ID {
			return metrics.ChainDispatch{}, &model.InvariantError{Op: "dispatch", Reason: "chain spans vehicles", Trip: snapshot(leg)}
		}
		out[i] = *leg
		riders += leg.Occupancy
		wait += float64(leg.Occupancy) * leg.Wait()
	}
	if !e.queues.Remove(legs[0].Pickup, head.TripID) {
		return metrics.ChainDispatch{}, &model.InvariantError{Op: "dispatch", Reason: "chain missing from its origin queue", Trip: snapshot(legs[0])}
	}
	if err := e.out.WriteLegs(out); err != nil {
		return metrics.ChainDispatch{}, fmt.Errorf("persist chain %d: %w", head.TripID, err)
	}
	for _, leg := range legs {
		e.trips.Delete(leg.ID)
	}
	e.buffer.Pop()

	e.dispatched += len(legs)
	legsDispatched.Add(float64(len(legs)))
	chainLegs.Observe(float64(len(legs)))
	e.publish(events.ChainDispatched{RunID: e.runID, Tick: tick, VehicleID: v.ID, Legs: out, PersonMiles: pm, VehicleMiles: vm})
	return metrics.ChainDispatch{
		RunID:        e.runID,
		VehicleID:    v.ID,
		Legs:         len(legs),
		Riders:       riders,
		PersonMiles:  pm,
		VehicleMiles: vm,
		Wait:         wait / float64(riders),
		SimTime:      tick,
	}, nil
}

// Reposition moves every idle vehicle one pixel toward expected demand. It is
// a no-op when no predictor was configured.
func (e *Engine) Reposition(tick int64) {
	if e.mover == nil {
		return
	}
	moves := e.mover.Step(tick, e.fleet.All())
	if len(moves) == 0 {
		return
	}
	dist := 0
	for _, m := range moves {
		dist += spatial.Distance(m.From, m.To)
		e.publish(events.VehicleRepositioned{RunID: e.runID, VehicleID: m.VehicleID, From: m.From, To: m.To, Direction: m.Direction})
	}
	repositionMoves.Add(float64(len(moves)))
	if rec, ok := e.sink.(metrics.RepositionRecorder); ok {
		if err := rec.RecordReposition(metrics.RepositionEvent{RunID: e.runID, Moves: len(moves), Distance: dist, SimTime: tick}); err != nil {
			e.log.Warnf("record reposition: %v", err)
		}
	}
}

func (e *Engine) publish(ev events.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}
