// Package sim drives a fleet simulation over a time-ordered request stream
// and runs parameter sweeps of independent simulations.
package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/kilianp07/fleetsim/core/belief"
	"github.com/kilianp07/fleetsim/core/dispatch"
	"github.com/kilianp07/fleetsim/core/events"
	"github.com/kilianp07/fleetsim/core/fleet"
	"github.com/kilianp07/fleetsim/core/logger"
	"github.com/kilianp07/fleetsim/core/metrics"
	"github.com/kilianp07/fleetsim/core/model"
	"github.com/kilianp07/fleetsim/core/report"
	"github.com/kilianp07/fleetsim/core/spatial"
	infralogger "github.com/kilianp07/fleetsim/infra/logger"
	"github.com/kilianp07/fleetsim/internal/eventbus"
)

// Options configures a Simulator.
type Options struct {
	RunID  string
	Params dispatch.Params
	Grid   *spatial.Grid
	// Beliefs is the demand model updated online and used for repositioning.
	// A fresh model is created when nil and repositioning is enabled.
	Beliefs *belief.Model
	// Fleet seeds the vehicles instead of bootstrapping them from the first
	// requests. Ids must be dense and start at zero.
	Fleet []model.Vehicle
	// ProgressEvery is the number of ticks between progress reports. Zero
	// disables them.
	ProgressEvery int64
	RouteCache    int
	Sink          metrics.MetricsSink
	Bus           *eventbus.TypedBus[events.Event]
	Logger        logger.Logger
}

// Outcome is the state of a finished run.
type Outcome struct {
	RunID    string
	Vehicles []model.Vehicle
	// Bootstrapped is the number of requests used to create the fleet.
	Bootstrapped int
	Dispatched   int
	Bundled      int
	Requested    int
	Ticks        int64
	Summary      report.Summary
}

// Simulator runs one simulation. It owns every piece of run state and is not
// safe for concurrent use.
type Simulator struct {
	opts    Options
	stream  *checkedStream
	store   ResultStore
	beliefs *belief.Model
	log     logger.Logger

	// pending is the first request not yet due.
	pending *model.Trip
	done    bool
}

// New validates the options and returns a Simulator reading from stream and
// writing to store.
func New(stream RequestStream, store ResultStore, opts Options) (*Simulator, error) {
	if stream == nil || store == nil {
		return nil, errors.New("simulator needs a request stream and a result store")
	}
	if err := opts.Params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if opts.Grid == nil {
		g, err := spatial.NewGrid(spatial.Config{})
		if err != nil {
			return nil, err
		}
		opts.Grid = g
	}
	if opts.Logger == nil {
		opts.Logger = infralogger.NopLogger{}
	}
	s := &Simulator{
		opts:    opts,
		stream:  &checkedStream{src: stream},
		store:   store,
		beliefs: opts.Beliefs,
		log:     opts.Logger,
	}
	if s.beliefs == nil && opts.Params.FreqLEVRS > 0 {
		m, err := belief.New(opts.Params.InitialBeta, opts.Params.BetaObs)
		if err != nil {
			return nil, err
		}
		s.beliefs = m
	}
	return s, nil
}

// Run processes the whole stream. It returns once every request has been
// dispatched, on the first fatal error, or when ctx is cancelled.
func (s *Simulator) Run(ctx context.Context) (Outcome, error) {
	p := s.opts.Params
	collector := &report.Collector{}
	out := collectingWriter{store: s.store, collector: collector}

	reg, tick, boot, err := s.bootstrap(out)
	if err != nil {
		return Outcome{}, err
	}
	engineOpts := dispatch.Options{
		RunID:      s.opts.RunID,
		Sink:       s.opts.Sink,
		Bus:        s.opts.Bus,
		Logger:     s.log,
		RouteCache: s.opts.RouteCache,
	}
	if p.FreqLEVRS > 0 {
		engineOpts.Predictor = s.beliefs
	}
	engine, err := dispatch.NewEngine(p, s.opts.Grid, reg, out, engineOpts)
	if err != nil {
		return Outcome{}, err
	}
	s.log.Infow("simulation started", map[string]any{"run_id": s.opts.RunID, "vehicles": reg.Len(), "start": tick})

	start := tick
	for {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		due, err := s.due(tick)
		if err != nil {
			return Outcome{}, err
		}
		if s.done && due == nil && engine.Buffer().Len() == 0 {
			break
		}
		for i := range due {
			t := &due[i]
			if err := engine.Handle(t); err != nil {
				return Outcome{}, fmt.Errorf("handle request %d at %d: %w", t.ID, tick, err)
			}
			if p.FreqLEVRS > 0 {
				if err := s.beliefs.Observe(t); err != nil {
					return Outcome{}, err
				}
			}
		}
		if err := engine.Clear(tick); err != nil {
			return Outcome{}, err
		}
		if p.FreqLEVRS > 0 && tick%int64(p.FreqLEVRS) == 0 {
			engine.Reposition(tick)
		}
		if every := s.opts.ProgressEvery; every > 0 && (tick-start)%every == 0 {
			s.progress(engine, tick)
		}
		tick = s.nextTick(engine, tick)
	}

	if n := engine.Trips().Len(); n != 0 {
		return Outcome{}, &model.InvariantError{Op: "finish", Reason: fmt.Sprintf("%d trips were never dispatched: %v", n, engine.Trips().IDs())}
	}
	vehicles := reg.Snapshot()
	if err := s.store.WriteFleet(vehicles); err != nil {
		return Outcome{}, fmt.Errorf("persist fleet: %w", err)
	}
	dispatched, bundled, requested := engine.Stats()
	o := Outcome{
		RunID:        s.opts.RunID,
		Vehicles:     vehicles,
		Bootstrapped: boot,
		Dispatched:   dispatched,
		Bundled:      bundled,
		Requested:    requested,
		Ticks:        tick - start,
		Summary:      collector.Summary(vehicles),
	}
	s.log.Infow("simulation finished", map[string]any{
		"run_id":     s.opts.RunID,
		"dispatched": dispatched,
		"bundled":    bundled,
		"ticks":      o.Ticks,
	})
	return o, nil
}

// bootstrap builds the fleet and returns the starting tick. Without a seed
// fleet the first fleet_size requests each create one vehicle and are
// persisted as solo trips.
func (s *Simulator) bootstrap(out collectingWriter) (*fleet.Registry, int64, int, error) {
	if len(s.opts.Fleet) > 0 {
		reg := fleet.NewRegistry(len(s.opts.Fleet))
		for i := range s.opts.Fleet {
			v := s.opts.Fleet[i]
			if err := reg.Add(&v); err != nil {
				return nil, 0, 0, fmt.Errorf("seed fleet: %w", err)
			}
		}
		if err := s.fill(); err != nil {
			return nil, 0, 0, err
		}
		var tick int64
		if s.pending != nil {
			tick = int64(math.Floor(s.pending.PickupRequestTime))
		}
		return reg, tick, 0, nil
	}

	size := s.opts.Params.FleetSize
	reg := fleet.NewRegistry(size)
	var last float64
	for reg.Len() < size {
		t, err := s.stream.Next()
		if errors.Is(err, io.EOF) {
			s.done = true
			break
		}
		if err != nil {
			return nil, 0, 0, fmt.Errorf("bootstrap: %w", err)
		}
		id := reg.Len()
		if err := t.SetVehicle(id); err != nil {
			return nil, 0, 0, err
		}
		if err := reg.Add(model.NewVehicle(id, &t)); err != nil {
			return nil, 0, 0, err
		}
		if err := out.WriteLegs([]model.Trip{t}); err != nil {
			return nil, 0, 0, fmt.Errorf("persist bootstrap trip %d: %w", t.ID, err)
		}
		last = t.PickupRequestTime
	}
	if reg.Len() < size {
		s.log.Warnf("stream ended after %d bootstrap requests, fleet is smaller than %d", reg.Len(), size)
	}
	return reg, int64(math.Floor(last)), reg.Len(), nil
}

// fill reads the next request into pending unless one is already held.
func (s *Simulator) fill() error {
	if s.pending != nil || s.done {
		return nil
	}
	t, err := s.stream.Next()
	if errors.Is(err, io.EOF) {
		s.done = true
		return nil
	}
	if err != nil {
		return err
	}
	s.pending = &t
	return nil
}

// due returns every request whose request time is at or before tick, in
// stream order.
func (s *Simulator) due(tick int64) ([]model.Trip, error) {
	var out []model.Trip
	for {
		if err := s.fill(); err != nil {
			return nil, err
		}
		if s.pending == nil || s.pending.PickupRequestTime > float64(tick) {
			return out, nil
		}
		out = append(out, *s.pending)
		s.pending = nil
	}
}

// nextTick advances the clock. Ticks where nothing can happen are skipped
// when repositioning and progress reports are off.
func (s *Simulator) nextTick(engine *dispatch.Engine, tick int64) int64 {
	next := tick + 1
	if s.opts.Params.FreqLEVRS > 0 || s.opts.ProgressEvery > 0 {
		return next
	}
	target := int64(math.MaxInt64)
	if head, ok := engine.Buffer().Peek(); ok {
		target = int64(math.Floor(head.PickupTime))
	}
	if s.pending != nil {
		target = min(target, int64(math.Ceil(s.pending.PickupRequestTime)))
	}
	if target == math.MaxInt64 {
		return next
	}
	return max(next, target)
}

func (s *Simulator) progress(engine *dispatch.Engine, tick int64) {
	dispatched, _, _ := engine.Stats()
	ev := events.RunProgress{
		RunID:      s.opts.RunID,
		Tick:       tick,
		Dispatched: dispatched,
		Live:       engine.Trips().Len(),
		Buffered:   engine.Buffer().Len(),
		Open:       engine.Queues().Len(),
	}
	s.log.Debugw("simulation progress", map[string]any{
		"run_id":     ev.RunID,
		"tick":       ev.Tick,
		"dispatched": ev.Dispatched,
		"live":       ev.Live,
		"buffered":   ev.Buffered,
		"open":       ev.Open,
	})
	if s.opts.Bus != nil {
		s.opts.Bus.Publish(ev)
	}
}
