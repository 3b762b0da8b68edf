package sim

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/fleetsim/core/belief"
	"github.com/kilianp07/fleetsim/core/dispatch"
	"github.com/kilianp07/fleetsim/core/logger"
	"github.com/kilianp07/fleetsim/core/metrics"
	"github.com/kilianp07/fleetsim/core/report"
)

// RunResult is the outcome of one experiment. Params is kept for failed runs
// so the offending configuration can be reported.
type RunResult struct {
	Index    int
	RunID    string
	Params   dispatch.Params
	Outcome  Outcome
	Summary  report.Summary
	Duration time.Duration
	Err      error
}

// Failed reports whether the run stopped on an error.
func (r RunResult) Failed() bool { return r.Err != nil }

// ParamGrid lists candidate values per parameter. An empty list keeps the
// base value.
type ParamGrid struct {
	FleetSize          []int     `json:"fleet_size"`
	VehicleSize        []int     `json:"vehicle_size"`
	DepartureDelay     []float64 `json:"departure_delay"`
	MaxCircuity        []float64 `json:"max_circuity"`
	MaxStops           []int     `json:"max_stops"`
	LocalDemandDegree  []int     `json:"local_demand_degree"`
	GreedyCommonOrigin []bool    `json:"greedy_common_origin"`
	InitialBeta        []float64 `json:"initial_beta"`
	BetaObs            []float64 `json:"beta_obs"`
	FreqLEVRS          []int     `json:"freq_levrs"`
}

// Expand returns the cartesian product of g applied to base. Departure delay
// varies slowest and freq_levrs fastest.
func (g ParamGrid) Expand(base dispatch.Params) []dispatch.Params {
	runs := []dispatch.Params{base}
	runs = vary(runs, g.DepartureDelay, func(p *dispatch.Params, v float64) { p.DepartureDelay = v })
	runs = vary(runs, g.FleetSize, func(p *dispatch.Params, v int) { p.FleetSize = v })
	runs = vary(runs, g.MaxCircuity, func(p *dispatch.Params, v float64) { p.MaxCircuity = v })
	runs = vary(runs, g.VehicleSize, func(p *dispatch.Params, v int) { p.VehicleSize = v })
	runs = vary(runs, g.MaxStops, func(p *dispatch.Params, v int) { p.MaxStops = v })
	runs = vary(runs, g.LocalDemandDegree, func(p *dispatch.Params, v int) { p.LocalDemandDegree = v })
	runs = vary(runs, g.GreedyCommonOrigin, func(p *dispatch.Params, v bool) { p.GreedyCommonOrigin = v })
	runs = vary(runs, g.InitialBeta, func(p *dispatch.Params, v float64) { p.InitialBeta = v })
	runs = vary(runs, g.BetaObs, func(p *dispatch.Params, v float64) { p.BetaObs = v })
	runs = vary(runs, g.FreqLEVRS, func(p *dispatch.Params, v int) { p.FreqLEVRS = v })
	return runs
}

func vary[T any](runs []dispatch.Params, values []T, set func(*dispatch.Params, T)) []dispatch.Params {
	if len(values) == 0 {
		return runs
	}
	out := make([]dispatch.Params, 0, len(runs)*len(values))
	for _, r := range runs {
		for _, v := range values {
			p := r
			set(&p, v)
			out = append(out, p)
		}
	}
	return out
}

// Job holds the per-run collaborators of one experiment.
type Job struct {
	Stream RequestStream
	Store  ResultStore
}

// JobFactory opens the stream and store of experiment index.
type JobFactory func(index int, runID string, p dispatch.Params) (Job, error)

// Runner executes experiments sharing a base configuration and a prior
// belief model. The prior is never modified: every run learns on a copy.
type Runner struct {
	// Base carries the options shared by every run. Params, RunID and
	// Beliefs are set per run.
	Base    Options
	Prior   *belief.Model
	NewJob  JobFactory
	Workers int
	Logger  logger.Logger
}

// Run executes experiment index with parameters p.
func (r *Runner) Run(ctx context.Context, index int, p dispatch.Params) (res RunResult) {
	res = RunResult{Index: index, RunID: uuid.NewString(), Params: p}
	started := time.Now()
	defer func() {
		res.Duration = time.Since(started)
		r.record(res)
	}()

	job, err := r.NewJob(index, res.RunID, p)
	if err != nil {
		res.Err = fmt.Errorf("open experiment %d: %w", index, err)
		return res
	}
	opts := r.Base
	opts.Params = p
	opts.RunID = res.RunID
	opts.Beliefs = nil
	if r.Prior != nil && p.FreqLEVRS > 0 {
		opts.Beliefs, err = r.Prior.Clone(p.InitialBeta, p.BetaObs)
		if err != nil {
			res.Err = errors.Join(err, job.Store.Close())
			return res
		}
	}
	s, err := New(job.Stream, job.Store, opts)
	if err != nil {
		res.Err = errors.Join(err, job.Store.Close())
		return res
	}
	out, err := s.Run(ctx)
	res.Err = errors.Join(err, job.Store.Close())
	if err == nil {
		res.Outcome = out
		res.Summary = out.Summary
	}
	return res
}

func (r *Runner) record(res RunResult) {
	rec, ok := r.Base.Sink.(metrics.RunSummaryRecorder)
	if !ok {
		return
	}
	ev := metrics.RunSummaryEvent{
		RunID:             res.RunID,
		Params:            res.Params.Fields(),
		Failed:            res.Failed(),
		Trips:             res.Summary.Trips,
		PerOccupantWait:   res.Summary.PerOccupantWait,
		PerTripReposition: res.Summary.PerTripReposition,
		AverageOccupancy:  res.Summary.AverageOccupancy,
		WeightedCircuity:  res.Summary.WeightedCircuity,
		Duration:          res.Duration,
		Time:              time.Now(),
	}
	if res.Err != nil {
		ev.Error = res.Err.Error()
	}
	if err := rec.RecordRunSummary(ev); err != nil && r.Logger != nil {
		r.Logger.Warnf("record run summary %s: %v", res.RunID, err)
	}
}

// Sweep runs every parameter set on a bounded worker pool and returns the
// results in input order. A failed run is logged with its parameters and
// never stops the others; cancelling ctx aborts the runs still in flight.
func (r *Runner) Sweep(ctx context.Context, runs []dispatch.Params) []RunResult {
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	results := make([]RunResult, len(runs))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(workers)
	for i, p := range runs {
		g.Go(func() error {
			res := r.Run(ctx, i, p)
			if res.Failed() && r.Logger != nil {
				fields := res.Params.Fields()
				fields["index"] = res.Index
				fields["run_id"] = res.RunID
				fields["error"] = res.Err.Error()
				r.Logger.Errorw("experiment failed", fields)
			}
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}
