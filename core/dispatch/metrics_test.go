package dispatch

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRegistration(t *testing.T) {
	ResetMetrics(nil)
	t.Cleanup(func() { ResetMetrics(nil) })
	reg := prometheus.NewRegistry()
	MustRegisterMetrics(reg)
	// touch metrics so they are exported
	requestsHandled.WithLabelValues("bundled").Inc()
	routeSearches.WithLabelValues("feasible").Inc()
	legsDispatched.Inc()
	chainLegs.Observe(2)
	repositionMoves.Inc()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, mf := range mfs {
		names[*mf.Name] = true
	}
	expected := []string{
		"fleetsim_requests_total",
		"fleetsim_legs_dispatched_total",
		"fleetsim_chain_legs",
		"fleetsim_route_searches_total",
		"fleetsim_reposition_moves_total",
	}
	for _, n := range expected {
		if !names[n] {
			t.Errorf("metric %s not registered", n)
		}
	}
}

func TestEngineCountsOutcomes(t *testing.T) {
	ResetMetrics(nil)
	t.Cleanup(func() { ResetMetrics(nil) })
	e, _ := newTestEngine(t, testParams(), Options{}, px(0, 0))
	if err := e.Handle(request(t, 1, px(2, 2), px(5, 2), 0, 1)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := e.Handle(request(t, 2, px(2, 2), px(2, 5), 1, 1)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := e.Clear(10); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if v := testutil.ToFloat64(requestsHandled.WithLabelValues("bundled")); v != 1 {
		t.Errorf("bundled requests = %v, want 1", v)
	}
	if v := testutil.ToFloat64(requestsHandled.WithLabelValues("new_vehicle")); v != 1 {
		t.Errorf("new vehicle requests = %v, want 1", v)
	}
	if v := testutil.ToFloat64(legsDispatched); v != 2 {
		t.Errorf("legs dispatched = %v, want 2", v)
	}
}
