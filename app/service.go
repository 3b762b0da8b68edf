package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/kilianp07/fleetsim/config"
	"github.com/kilianp07/fleetsim/core/belief"
	"github.com/kilianp07/fleetsim/core/dispatch"
	"github.com/kilianp07/fleetsim/core/events"
	coremetrics "github.com/kilianp07/fleetsim/core/metrics"
	"github.com/kilianp07/fleetsim/core/sim"
	"github.com/kilianp07/fleetsim/core/spatial"
	"github.com/kilianp07/fleetsim/infra/input"
	"github.com/kilianp07/fleetsim/infra/logger"
	"github.com/kilianp07/fleetsim/infra/metrics"
	"github.com/kilianp07/fleetsim/infra/store"
	"github.com/kilianp07/fleetsim/internal/eventbus"
	"github.com/kilianp07/fleetsim/pkg/export"
)

// eventBuffer absorbs the per request events of a tick.
const eventBuffer = 1024

// Service wires the configured input, result stores and metrics sinks into
// simulation runs.
type Service struct {
	cfg   *config.Config
	grid  *spatial.Grid
	sink  coremetrics.MetricsSink
	bus   *eventbus.TypedBus[events.Event]
	prior *belief.Model
	log   logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	grid, err := spatial.NewGrid(cfg.Grid)
	if err != nil {
		return nil, fmt.Errorf("grid: %w", err)
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	svc := &Service{cfg: cfg, grid: grid, sink: sink, bus: eventbus.NewTypedBuffered[events.Event](eventBuffer), log: logg}
	if svc.prior, err = svc.loadPrior(); err != nil {
		svc.closeSink()
		return nil, err
	}
	return svc, nil
}

func (s *Service) loadPrior() (*belief.Model, error) {
	path := s.cfg.Input.Prior
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Warnf("prior %s not found, beliefs start empty", path)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	p := s.cfg.Simulation.Params
	m, err := belief.ReadPrior(f, p.InitialBeta, p.BetaObs)
	if err != nil {
		return nil, fmt.Errorf("prior %s: %w", path, err)
	}
	s.log.Infof("loaded prior %s with %d pixels", path, m.Len())
	return m, nil
}

// Start serves /metrics when configured and forwards simulation events to
// the sinks. The returned channel is closed once the event collector stopped.
func (s *Service) Start(ctx context.Context) <-chan struct{} {
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	return metrics.StartEventCollector(ctx, s.bus, s.sink)
}

// Runner returns an experiment runner reading the configured input and
// writing to the configured stores.
func (s *Service) Runner() *sim.Runner {
	return &sim.Runner{
		Base: sim.Options{
			Grid:          s.grid,
			ProgressEvery: s.cfg.Simulation.ProgressEvery,
			RouteCache:    s.cfg.Simulation.RouteCache,
			Sink:          s.sink,
			Bus:           s.bus,
			Logger:        logger.New("simulator"),
		},
		Prior:   s.prior,
		NewJob:  s.openJob,
		Workers: s.cfg.Sweep.Workers,
		Logger:  logger.New("sweep"),
	}
}

// jobStore closes the trip file together with the result stores.
type jobStore struct {
	sim.ResultStore
	input io.Closer
}

func (j jobStore) Close() error {
	return errors.Join(j.ResultStore.Close(), j.input.Close())
}

func (s *Service) openJob(_ int, runID string, _ dispatch.Params) (sim.Job, error) {
	r, err := input.Open(s.cfg.Input.Config, s.grid)
	if err != nil {
		return sim.Job{}, err
	}
	st, err := store.New(s.cfg.Output.Stores, runID)
	if err != nil {
		_ = r.Close()
		return sim.Job{}, err
	}
	return sim.Job{Stream: r, Store: jobStore{ResultStore: st, input: r}}, nil
}

// Run executes one simulation with the configured parameters.
func (s *Service) Run(ctx context.Context) (sim.RunResult, error) {
	res := s.Runner().Run(ctx, 0, s.cfg.Simulation.Params)
	if res.Failed() {
		return res, res.Err
	}
	s.log.Infow("run finished", map[string]any{
		"run_id":            res.RunID,
		"trips":             res.Summary.Trips,
		"per_occupant_wait": res.Summary.PerOccupantWait,
		"average_occupancy": res.Summary.AverageOccupancy,
		"duration_ms":       res.Duration.Milliseconds(),
	})
	return res, s.export([]sim.RunResult{res})
}

// Sweep executes every combination of the sweep parameter lists. Failed runs
// are reported in the results; the error is only set when every run failed,
// the context was cancelled or the summary could not be written.
func (s *Service) Sweep(ctx context.Context) ([]sim.RunResult, error) {
	runs := s.cfg.Sweep.Expand(s.cfg.Simulation.Params)
	s.log.Infof("sweeping %d parameter sets", len(runs))
	results := s.Runner().Sweep(ctx, runs)
	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	s.log.Infow("sweep finished", map[string]any{"runs": len(results), "failed": failed})
	if err := s.export(results); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	if failed > 0 && failed == len(results) {
		return results, fmt.Errorf("all %d runs failed", failed)
	}
	return results, nil
}

func (s *Service) export(results []sim.RunResult) error {
	path := s.cfg.Output.SummaryPath
	if path == "" {
		return nil
	}
	if err := export.WriteFile(path, results); err != nil {
		return err
	}
	s.log.Infof("wrote %d summary rows to %s", len(results), path)
	return nil
}

// WritesSummary reports whether run summaries go to a file.
func (s *Service) WritesSummary() bool { return s.cfg.Output.SummaryPath != "" }

// PriorPath is the configured prior file.
func (s *Service) PriorPath() string { return s.cfg.Input.Prior }

// Learn builds a demand prior from the configured trips and writes it to out.
// It returns the number of trips observed.
func (s *Service) Learn(out string) (int, error) {
	r, err := input.Open(s.cfg.Input.Config, s.grid)
	if err != nil {
		return 0, err
	}
	defer func() { _ = r.Close() }()
	p := s.cfg.Simulation.Params
	m, n, err := belief.Learn(r, p.InitialBeta, p.BetaObs)
	if err != nil {
		return n, err
	}
	f, err := os.Create(out)
	if err != nil {
		return n, err
	}
	if err := errors.Join(belief.WritePrior(f, m), f.Close()); err != nil {
		return n, fmt.Errorf("write prior %s: %w", out, err)
	}
	s.log.Infof("learned %d pixels from %d trips into %s", m.Len(), n, out)
	return n, nil
}

// Close stops the event bus and releases the sinks.
func (s *Service) Close() error {
	s.bus.Close()
	s.closeSink()
	return nil
}

func (s *Service) closeSink() {
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
}
