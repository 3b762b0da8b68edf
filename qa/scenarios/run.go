package scenarios

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetsim/core/belief"
	"github.com/kilianp07/fleetsim/core/model"
	"github.com/kilianp07/fleetsim/core/sim"
	"github.com/kilianp07/fleetsim/core/spatial"
	"github.com/kilianp07/fleetsim/infra/logger"
	"github.com/kilianp07/fleetsim/infra/metrics"
)

func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	grid, err := spatial.NewGrid(spatial.Config{Speed: sc.Speed})
	require.NoError(t, err)

	trips := make([]model.Trip, len(sc.Requests))
	for i, r := range sc.Requests {
		trips[i], err = r.ToModel(grid)
		require.NoError(t, err, "request %d", r.ID)
	}
	fleet := make([]model.Vehicle, len(sc.Fleet))
	for i, p := range sc.Fleet {
		fleet[i] = model.Vehicle{ID: i, LatestTrip: model.Unassigned, Location: p.ToModel()}
	}

	params := sc.Params.ToModel()
	var beliefs *belief.Model
	if params.FreqLEVRS > 0 {
		beliefs, err = belief.New(params.InitialBeta, params.BetaObs)
		require.NoError(t, err)
	}

	store := &sim.MemoryStore{}
	s, err := sim.New(sim.NewSliceStream(trips...), store, sim.Options{
		RunID:   sc.Name,
		Params:  params,
		Grid:    grid,
		Beliefs: beliefs,
		Fleet:   fleet,
		Sink:    sink,
		Logger:  logger.NopLogger{},
	})
	require.NoError(t, err)
	out, err := s.Run(context.Background())
	if sc.Expected.Error != "" {
		assert.ErrorContains(t, err, sc.Expected.Error)
		return
	}
	require.NoError(t, err)

	checkLegs(t, sc.Expected.Legs, store.Legs)
	exp := sc.Expected
	if exp.Bundled != nil {
		assert.Equal(t, *exp.Bundled, out.Bundled, "bundled")
	}
	if exp.Requested != nil {
		assert.Equal(t, *exp.Requested, out.Requested, "requested")
	}
	if exp.Trips != nil {
		assert.Equal(t, *exp.Trips, out.Summary.Trips, "trips")
	}
	if exp.Riders != nil {
		assert.Equal(t, *exp.Riders, out.Summary.Riders, "riders")
		// Seeded fleets send every rider through a dispatched chain.
		if out.Bootstrapped == 0 {
			assert.Equal(t, float64(*exp.Riders), counterValue(t, reg, "fleetsim_riders_dispatched_total"))
		}
	}
	for _, ve := range exp.Vehicles {
		require.Less(t, ve.ID, len(out.Vehicles), "vehicle %d", ve.ID)
		v := out.Vehicles[ve.ID]
		if ve.Location != nil {
			assert.Equal(t, ve.Location.ToModel(), v.Location, "vehicle %d location", ve.ID)
		}
		if ve.Reposition != nil {
			assert.Equal(t, *ve.Reposition, v.RepositionDistance, "vehicle %d repositioning", ve.ID)
		}
	}
	for _, be := range exp.Beliefs {
		require.NotNil(t, beliefs, "beliefs need freq_levrs > 0")
		got, ok := beliefs.ExpectedDemand(be.Pixel.ToModel(), be.DayCode, be.Block)
		require.True(t, ok, "pixel %v never observed", be.Pixel)
		assert.InDelta(t, be.Value, got, 1e-9)
	}
}

func checkLegs(t *testing.T, want []LegExpectation, got []model.Trip) {
	t.Helper()
	if want == nil {
		return
	}
	require.Len(t, got, len(want), "dispatched legs")
	for i, w := range want {
		g := got[i]
		assert.Equal(t, w.ID, g.ID, "leg %d id", i)
		assert.Equal(t, w.Vehicle, g.VehicleID, "leg %d vehicle", i)
		if w.Pickup != nil {
			assert.InDelta(t, *w.Pickup, g.PickupTime, 1e-9, "leg %d pickup", i)
		}
		if w.Dropoff != nil {
			assert.InDelta(t, *w.Dropoff, g.DropoffTime, 1e-9, "leg %d dropoff", i)
		}
		if w.Next != nil {
			assert.Equal(t, *w.Next, g.JoinedTripID, "leg %d next", i)
		}
	}
}

func counterValue(t *testing.T, g prometheus.Gatherer, name string) float64 {
	t.Helper()
	mfs, err := g.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		var total float64
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		return total
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}
