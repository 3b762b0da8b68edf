package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsHandled *prometheus.CounterVec
	legsDispatched  prometheus.Counter
	chainLegs       prometheus.Histogram
	routeSearches   *prometheus.CounterVec
	repositionMoves prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Counter, prometheus.Histogram, *prometheus.CounterVec, prometheus.Counter) {
	req := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetsim_requests_total",
			Help: "Trip requests handled, by outcome",
		},
		[]string{"outcome"},
	)
	legs := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetsim_legs_dispatched_total",
			Help: "Number of trip legs released by the dispatch buffer",
		},
	)
	size := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleetsim_chain_legs",
			Help:    "Legs per dispatched chain",
			Buckets: prometheus.LinearBuckets(1, 1, 8),
		},
	)
	route := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetsim_route_searches_total",
			Help: "Shared route searches, by result",
		},
		[]string{"result"},
	)
	moves := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetsim_reposition_moves_total",
			Help: "Number of one-pixel repositioning moves",
		},
	)
	return req, legs, size, route, moves
}

func init() {
	requestsHandled, legsDispatched, chainLegs, routeSearches, repositionMoves = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(requestsHandled, legsDispatched, chainLegs, routeSearches, repositionMoves)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	requestsHandled, legsDispatched, chainLegs, routeSearches, repositionMoves = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
