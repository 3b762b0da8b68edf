package metrics

import (
	"strconv"

	coremetrics "github.com/kilianp07/fleetsim/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records simulation events in Prometheus metrics.
type PromSink struct {
	riders    prometheus.Counter
	wait      prometheus.Histogram
	delay     *prometheus.HistogramVec
	moves     prometheus.Counter
	distance  prometheus.Counter
	runs      *prometheus.CounterVec
	occupancy *prometheus.GaugeVec
}

// NewPromSink registers simulation metrics on the default Prometheus registerer.
// The Prometheus server should be started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		riders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleetsim_riders_dispatched_total",
			Help: "Riders picked up by dispatched chains",
		}),
		wait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fleetsim_chain_wait_seconds",
			Help:    "Occupancy weighted mean wait of dispatched chains",
			Buckets: prometheus.ExponentialBuckets(15, 2, 10),
		}),
		delay: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fleetsim_request_delay_seconds",
			Help:    "Time between a request and the earliest pickup",
			Buckets: prometheus.ExponentialBuckets(15, 2, 10),
		}, []string{"bundled"}),
		moves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleetsim_reposition_rounds_moves_total",
			Help: "Repositioning moves recorded by the sink",
		}),
		distance: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleetsim_reposition_distance_pixels_total",
			Help: "Distance driven while repositioning",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetsim_runs_total",
			Help: "Finished simulation runs",
		}, []string{"failed"}),
		occupancy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fleetsim_run_average_occupancy",
			Help: "Average vehicle occupancy of a finished run",
		}, []string{"run_id"}),
	}
	var err error
	if s.riders, err = register(reg, s.riders); err != nil {
		return nil, err
	}
	if s.wait, err = register(reg, s.wait); err != nil {
		return nil, err
	}
	if s.delay, err = register(reg, s.delay); err != nil {
		return nil, err
	}
	if s.moves, err = register(reg, s.moves); err != nil {
		return nil, err
	}
	if s.distance, err = register(reg, s.distance); err != nil {
		return nil, err
	}
	if s.runs, err = register(reg, s.runs); err != nil {
		return nil, err
	}
	if s.occupancy, err = register(reg, s.occupancy); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the already registered collector when c was registered
// by an earlier sink.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return c, err
		}
		existing, ok := are.ExistingCollector.(C)
		if !ok {
			return c, err
		}
		return existing, nil
	}
	return c, nil
}

// RecordChainDispatch counts riders and observes chain waits.
func (s *PromSink) RecordChainDispatch(evs []coremetrics.ChainDispatch) error {
	for _, ev := range evs {
		s.riders.Add(float64(ev.Riders))
		s.wait.Observe(ev.Wait)
	}
	return nil
}

// RecordRequest observes the pickup delay of a served request.
func (s *PromSink) RecordRequest(ev coremetrics.RequestEvent) error {
	s.delay.WithLabelValues(strconv.FormatBool(ev.Bundled)).Observe(ev.Delay)
	return nil
}

// RecordReposition adds a repositioning round.
func (s *PromSink) RecordReposition(ev coremetrics.RepositionEvent) error {
	s.moves.Add(float64(ev.Moves))
	s.distance.Add(float64(ev.Distance))
	return nil
}

// RecordRunSummary counts the run and exposes its occupancy.
func (s *PromSink) RecordRunSummary(ev coremetrics.RunSummaryEvent) error {
	s.runs.WithLabelValues(strconv.FormatBool(ev.Failed)).Inc()
	if !ev.Failed {
		s.occupancy.WithLabelValues(ev.RunID).Set(ev.AverageOccupancy)
	}
	return nil
}
