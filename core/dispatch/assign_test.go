package dispatch

import (
	"errors"
	"testing"

	"github.com/kilianp07/fleetsim/core/model"
	"github.com/kilianp07/fleetsim/core/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGrid(t *testing.T) *spatial.Grid {
	t.Helper()
	g, err := spatial.NewGrid(spatial.Config{Speed: 1})
	require.NoError(t, err)
	return g
}

func request(t *testing.T, id int, from, to spatial.Pixel, at float64, occ int) *model.Trip {
	t.Helper()
	tr, err := model.NewTrip(id, from, to, at, at+float64(spatial.Distance(from, to)), occ, 2)
	require.NoError(t, err)
	return tr
}

func TestAssignEarliestArrival(t *testing.T) {
	a := NewAssigner(testGrid(t))
	vs := []*model.Vehicle{
		{ID: 0, Location: px(0, 0), FreeAt: 0},   // arrives 100 + 10
		{ID: 1, Location: px(9, 0), FreeAt: 150}, // arrives 150 + 1
		{ID: 2, Location: px(8, 1), FreeAt: 90},  // arrives 100 + 3
	}
	tr := request(t, 1, px(10, 0), px(20, 0), 100, 1)
	got, err := a.Select(tr, vs)
	require.NoError(t, err)
	assert.Equal(t, Assignment{VehicleID: 2, Delay: 3}, got)

	again, err := a.Select(tr, vs)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestAssignTieGoesToLowestID(t *testing.T) {
	a := NewAssigner(testGrid(t))
	vs := []*model.Vehicle{
		{ID: 0, Location: px(4, 0)},
		{ID: 1, Location: px(0, 4)},
	}
	got, err := a.Select(request(t, 1, px(2, 2), px(3, 3), 10, 1), vs)
	require.NoError(t, err)
	assert.Equal(t, 0, got.VehicleID)
	assert.Equal(t, 4.0, got.Delay)
}

func TestAssignVehicleOnPickupPixel(t *testing.T) {
	a := NewAssigner(testGrid(t))
	vs := []*model.Vehicle{
		{ID: 0, Location: px(2, 3), FreeAt: 0},
		{ID: 1, Location: px(2, 2), FreeAt: 40},
		{ID: 2, Location: px(2, 2), FreeAt: 0},
	}
	got, err := a.Select(request(t, 1, px(2, 2), px(3, 3), 10, 1), vs)
	require.NoError(t, err)
	// The first vehicle parked on the pixel wins even though it is busy.
	assert.Equal(t, 1, got.VehicleID)
	assert.Equal(t, 30.0, got.Delay)
}

func TestAssignEmptyFleet(t *testing.T) {
	a := NewAssigner(testGrid(t))
	_, err := a.Select(request(t, 1, px(2, 2), px(3, 3), 10, 1), nil)
	assert.True(t, errors.Is(err, ErrNoVehicle))
}

func TestParamsValidate(t *testing.T) {
	var p Params
	p.SetDefaults()
	p.FleetSize = 10
	require.NoError(t, p.Validate())
	assert.Equal(t, 8, p.VehicleSize)
	assert.Equal(t, 5, p.MaxStops)

	bad := []func(*Params){
		func(p *Params) { p.FleetSize = 0 },
		func(p *Params) { p.VehicleSize = -1 },
		func(p *Params) { p.DepartureDelay = -1 },
		func(p *Params) { p.MaxCircuity = 0.9 },
		func(p *Params) { p.MaxStops = MaxStopsLimit + 1 },
		func(p *Params) { p.LocalDemandDegree = -1 },
		func(p *Params) { p.BetaObs = 0 },
		func(p *Params) { p.FreqLEVRS = -5 },
	}
	for i, mutate := range bad {
		c := p
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	assert.Equal(t, 10, p.Fields()["fleet_size"])
}
