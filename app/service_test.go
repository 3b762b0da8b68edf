package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetsim/config"
	"github.com/kilianp07/fleetsim/core/belief"
	"github.com/kilianp07/fleetsim/core/dispatch"
	"github.com/kilianp07/fleetsim/core/factory"
	"github.com/kilianp07/fleetsim/infra/input"
	"github.com/kilianp07/fleetsim/infra/store"
)

const trips = `trip_id,oX,oY,dX,dY,pickup_request_time,original_dropoff_time,day_of_week,occupancy
1,10,10,12,10,0,4,4,1
2,20,20,20,25,100,109,4,2
3,30,30,33,30,200,206,4,1
`

func testConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "trips.csv")
	require.NoError(t, os.WriteFile(path, []byte(trips), 0o644))
	cfg := &config.Config{
		Simulation: config.SimulationConfig{Params: dispatch.Params{
			FleetSize: 1, VehicleSize: 4, MaxCircuity: 1.5, MaxStops: 3, GreedyCommonOrigin: true,
		}},
		Input: config.InputConfig{Config: input.Config{Path: path}},
	}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg, dir
}

func TestServiceRunWritesStoresAndSummary(t *testing.T) {
	cfg, dir := testConfig(t)
	cfg.Output.Stores = []factory.ModuleConfig{{Type: "jsonl", Conf: map[string]any{"path": filepath.Join(dir, "{run_id}.jsonl")}}}
	cfg.Output.SummaryPath = filepath.Join(dir, "summary.csv")

	svc, err := New(cfg)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	res, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Summary.Trips)
	assert.Equal(t, 4, res.Summary.Riders)

	f, err := os.Open(filepath.Join(dir, res.RunID+".jsonl"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	legs, vehicles, err := store.ReadJSONL(f, res.RunID)
	require.NoError(t, err)
	assert.Len(t, legs, 3)
	assert.Len(t, vehicles, 1)
	assert.FileExists(t, cfg.Output.SummaryPath)
}

func TestServiceSweep(t *testing.T) {
	cfg, dir := testConfig(t)
	cfg.Sweep.FleetSize = []int{1, 2}
	cfg.Sweep.Workers = 2
	cfg.Output.SummaryPath = filepath.Join(dir, "sweep.json")

	svc, err := New(cfg)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	results, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	for i, r := range results {
		assert.False(t, r.Failed(), "run %d: %v", i, r.Err)
		assert.Equal(t, 3, r.Summary.Trips)
	}
	assert.Equal(t, 2, results[1].Params.FleetSize)
	assert.FileExists(t, cfg.Output.SummaryPath)
}

func TestServiceSweepAllFailed(t *testing.T) {
	cfg, dir := testConfig(t)
	cfg.Input.Path = filepath.Join(dir, "missing.csv")
	cfg.Sweep.FleetSize = []int{1, 2}

	svc, err := New(cfg)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	results, err := svc.Sweep(context.Background())
	assert.ErrorContains(t, err, "all 2 runs failed")
	assert.Len(t, results, 2)
}

func TestServiceLearnThenLoadPrior(t *testing.T) {
	cfg, dir := testConfig(t)
	svc, err := New(cfg)
	require.NoError(t, err)
	out := filepath.Join(dir, "priors.csv")
	n, err := svc.Learn(out)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, svc.Close())

	f, err := os.Open(out)
	require.NoError(t, err)
	m, err := belief.ReadPrior(f, 10, 1)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())

	cfg.Input.Prior = out
	svc, err = New(cfg)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	require.NotNil(t, svc.prior)
	assert.Equal(t, 3, svc.prior.Len())
}

func TestServiceMissingPriorIsIgnored(t *testing.T) {
	cfg, dir := testConfig(t)
	cfg.Input.Prior = filepath.Join(dir, "none.csv")
	svc, err := New(cfg)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	assert.Nil(t, svc.prior)
}

func TestServiceStartStopsOnClose(t *testing.T) {
	cfg, _ := testConfig(t)
	svc, err := New(cfg)
	require.NoError(t, err)
	done := svc.Start(context.Background())
	require.NoError(t, svc.Close())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("event collector still running")
	}
}
