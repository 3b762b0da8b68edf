package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/kilianp07/fleetsim/core/belief"
	"github.com/kilianp07/fleetsim/core/dispatch"
	"github.com/kilianp07/fleetsim/core/events"
	"github.com/kilianp07/fleetsim/core/model"
	"github.com/kilianp07/fleetsim/core/spatial"
	"github.com/kilianp07/fleetsim/internal/eventbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func px(x, y int) spatial.Pixel { return spatial.Pixel{X: x, Y: y} }

func req(t *testing.T, id int, from, to spatial.Pixel, at float64, occ int) model.Trip {
	t.Helper()
	tr, err := model.NewTrip(id, from, to, at, at+float64(spatial.Distance(from, to)), occ, 3)
	require.NoError(t, err)
	return *tr
}

func unitGrid(t *testing.T) *spatial.Grid {
	t.Helper()
	g, err := spatial.NewGrid(spatial.Config{Speed: 1})
	require.NoError(t, err)
	return g
}

func params() dispatch.Params {
	p := dispatch.Params{FleetSize: 1, VehicleSize: 4, MaxCircuity: 3, MaxStops: 2, GreedyCommonOrigin: true}
	p.SetDefaults()
	return p
}

func seed(locs ...spatial.Pixel) []model.Vehicle {
	out := make([]model.Vehicle, len(locs))
	for i, l := range locs {
		out[i] = model.Vehicle{ID: i, LatestTrip: model.Unassigned, Location: l}
	}
	return out
}

func run(t *testing.T, opts Options, trips ...model.Trip) (Outcome, *MemoryStore, error) {
	t.Helper()
	store := &MemoryStore{}
	s, err := New(NewSliceStream(trips...), store, opts)
	require.NoError(t, err)
	out, err := s.Run(context.Background())
	return out, store, err
}

func TestRunBundlesCommonOrigin(t *testing.T) {
	opts := Options{Params: params(), Grid: unitGrid(t), Fleet: seed(px(0, 0))}
	out, store, err := run(t, opts,
		req(t, 1, px(2, 2), px(5, 2), 0, 1),
		req(t, 2, px(2, 2), px(2, 5), 1, 2),
	)
	require.NoError(t, err)

	require.Len(t, store.Legs, 2)
	assert.Equal(t, []int{1, 2}, []int{store.Legs[0].ID, store.Legs[1].ID})
	for _, leg := range store.Legs {
		assert.Equal(t, 0, leg.VehicleID)
		assert.Equal(t, 4.0, leg.PickupTime)
	}
	assert.Equal(t, 2, out.Dispatched)
	assert.Equal(t, 1, out.Bundled)
	assert.Equal(t, 1, out.Requested)
	assert.Equal(t, int64(5), out.Ticks)

	require.Len(t, store.Vehicles, 1)
	v := store.Vehicles[0]
	assert.Equal(t, 9, v.PersonMiles)
	assert.Equal(t, 9, v.VehicleMiles)
	assert.Equal(t, 4, v.RepositionDistance)
	assert.Equal(t, 2, out.Summary.Trips)
	assert.Equal(t, 3, out.Summary.Riders)
	assert.InDelta(t, 9.0/13.0, out.Summary.AverageOccupancy, 1e-9)
}

func TestRunCapacityFallsBackToAssignment(t *testing.T) {
	p := params()
	p.MaxCircuity = 2
	out, store, err := run(t, Options{Params: p, Grid: unitGrid(t), Fleet: seed(px(0, 0))},
		req(t, 1, px(2, 2), px(5, 2), 0, 2),
		req(t, 2, px(2, 2), px(2, 5), 1, 3),
	)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Bundled)
	assert.Equal(t, 2, out.Requested)
	require.Len(t, store.Legs, 2)
	assert.Equal(t, 4.0, store.Legs[0].PickupTime)
	assert.Equal(t, 10.0, store.Legs[1].PickupTime)
	assert.True(t, store.Legs[1].Terminal())
}

func TestRunBootstrapsFleet(t *testing.T) {
	p := params()
	p.FleetSize = 2
	out, store, err := run(t, Options{Params: p, Grid: unitGrid(t)},
		req(t, 1, px(1, 1), px(4, 1), 0, 1),
		req(t, 2, px(10, 10), px(10, 13), 5, 1),
		req(t, 3, px(4, 2), px(6, 2), 6, 1),
		req(t, 4, px(10, 12), px(12, 12), 6, 1),
	)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Bootstrapped)
	require.Len(t, store.Legs, 4)

	ids := make([]int, len(store.Legs))
	for i, l := range store.Legs {
		ids[i] = l.ID
	}
	assert.Equal(t, []int{1, 2, 3, 4}, ids)
	assert.Equal(t, 0, store.Legs[0].VehicleID)
	assert.Equal(t, 1, store.Legs[1].VehicleID)
	assert.Equal(t, 0, store.Legs[2].VehicleID)
	assert.Equal(t, 7.0, store.Legs[2].PickupTime)
	assert.Equal(t, 1, store.Legs[3].VehicleID)
	assert.Equal(t, 9.0, store.Legs[3].PickupTime)
	assert.Equal(t, 4, out.Summary.Trips)
	assert.Len(t, out.Vehicles, 2)
}

func TestRunShortStreamShrinksFleet(t *testing.T) {
	p := params()
	p.FleetSize = 5
	out, store, err := run(t, Options{Params: p, Grid: unitGrid(t)},
		req(t, 1, px(1, 1), px(4, 1), 0, 1),
	)
	require.NoError(t, err)
	assert.Len(t, out.Vehicles, 1)
	assert.Len(t, store.Legs, 1)
	assert.Equal(t, 0, out.Dispatched)
}

func TestRunRejectsOutOfOrderStream(t *testing.T) {
	_, _, err := run(t, Options{Params: params(), Grid: unitGrid(t), Fleet: seed(px(0, 0))},
		req(t, 1, px(2, 2), px(5, 2), 5, 1),
		req(t, 2, px(2, 2), px(2, 5), 3, 1),
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInputContract))
}

func TestRunRejectsScheduledRequests(t *testing.T) {
	tr := req(t, 1, px(2, 2), px(5, 2), 5, 1)
	tr.VehicleID = 3
	_, _, err := run(t, Options{Params: params(), Grid: unitGrid(t), Fleet: seed(px(0, 0))}, tr)
	assert.True(t, errors.Is(err, ErrInputContract))
}

func TestRunRepositionsIdleVehicles(t *testing.T) {
	p := params()
	p.FreqLEVRS = 1
	beliefs, err := belief.New(10, 1)
	require.NoError(t, err)
	bus := eventbus.NewTypedBuffered[events.Event](64)
	sub := bus.Subscribe()

	out, _, err := run(t, Options{
		Params:        p,
		Grid:          unitGrid(t),
		Fleet:         seed(px(0, 0), px(30, 30)),
		Beliefs:       beliefs,
		ProgressEvery: 2,
		Bus:           bus,
	}, req(t, 1, px(2, 2), px(5, 2), 0, 1))
	require.NoError(t, err)
	bus.Close()

	// The idle vehicle moves at ticks 1 and 3, each move keeps it busy one second.
	idle := out.Vehicles[1]
	assert.Equal(t, px(32, 30), idle.Location)
	assert.Equal(t, 2, idle.RepositionDistance)

	v, ok := beliefs.ExpectedDemand(px(2, 2), model.Weekday, 0)
	require.True(t, ok)
	assert.InDelta(t, 1.0/11.0, v, 1e-12)

	progress := 0
	for ev := range sub {
		if _, ok := ev.(events.RunProgress); ok {
			progress++
		}
	}
	assert.Equal(t, 3, progress)
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, err := New(NewSliceStream(req(t, 1, px(2, 2), px(5, 2), 0, 1)), &MemoryStore{},
		Options{Params: params(), Grid: unitGrid(t), Fleet: seed(px(0, 0))})
	require.NoError(t, err)
	_, err = s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewValidatesParams(t *testing.T) {
	p := params()
	p.MaxStops = 0
	_, err := New(NewSliceStream(), &MemoryStore{}, Options{Params: p})
	assert.Error(t, err)
	_, err = New(nil, &MemoryStore{}, Options{Params: params()})
	assert.Error(t, err)
}
