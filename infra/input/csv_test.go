package input

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetsim/core/model"
	"github.com/kilianp07/fleetsim/core/sim"
	"github.com/kilianp07/fleetsim/core/spatial"
)

func testGrid(t *testing.T) *spatial.Grid {
	t.Helper()
	g, err := spatial.NewGrid(spatial.Config{})
	require.NoError(t, err)
	return g
}

func readAll(t *testing.T, r sim.RequestStream) []model.Trip {
	t.Helper()
	var out []model.Trip
	for {
		trip, err := r.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, trip)
	}
}

func TestCSVReaderPixelColumns(t *testing.T) {
	data := `trip_id,vehicle_id,oX,oY,dX,dY,pickup_request_time,original_dropoff_time,day_of_week,occupancy
1,7,10,20,12,25,100,140,3,2
2,7,11,20,11,21,100.5,130,3,1.0
`
	r, err := NewCSVReader(strings.NewReader(data), testGrid(t))
	require.NoError(t, err)
	trips := readAll(t, r)
	require.Len(t, trips, 2)

	want, err := model.NewTrip(1, spatial.Pixel{X: 10, Y: 20}, spatial.Pixel{X: 12, Y: 25}, 100, 140, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, *want, trips[0])
	assert.Equal(t, model.Unassigned, trips[0].VehicleID, "vehicle_id column is ignored")
	assert.Equal(t, 1, trips[1].Occupancy)
	assert.Equal(t, 100.5, trips[1].PickupRequestTime)
	assert.NoError(t, r.Close())
}

func TestCSVReaderProjectsCoordinates(t *testing.T) {
	grid := testGrid(t)
	data := `trip_id,pickup_longitude,pickup_latitude,dropoff_longitude,dropoff_latitude,pickup_request_time,original_dropoff_time,occupancy
5,-73.9,40.751,-73.95,40.803,86400,87000,1
`
	r, err := NewCSVReader(strings.NewReader(data), grid)
	require.NoError(t, err)
	trips := readAll(t, r)
	require.Len(t, trips, 1)

	from, err := grid.Project(-73.9, 40.751)
	require.NoError(t, err)
	to, err := grid.Project(-73.95, 40.803)
	require.NoError(t, err)
	assert.Equal(t, from, trips[0].Pickup)
	assert.Equal(t, to, trips[0].Dropoff)
	// 2015-01-02 was a Friday.
	assert.Equal(t, 5, trips[0].DayOfWeek)
}

func TestCSVReaderOutOfRegion(t *testing.T) {
	data := `trip_id,pickup_longitude,pickup_latitude,dropoff_longitude,dropoff_latitude,pickup_request_time,original_dropoff_time,occupancy
5,-80,40.751,-73.95,40.803,0,10,1
`
	r, err := NewCSVReader(strings.NewReader(data), testGrid(t))
	require.NoError(t, err)
	_, err = r.Next()
	assert.ErrorIs(t, err, spatial.ErrOutOfRegion)
	assert.ErrorContains(t, err, "line 2")
}

func TestCSVReaderHeaderErrors(t *testing.T) {
	cases := map[string]string{
		"empty":           "",
		"missing trip id": "oX,oY,dX,dY,pickup_request_time,original_dropoff_time,occupancy\n",
		"no location":     "trip_id,pickup_request_time,original_dropoff_time,occupancy\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewCSVReader(strings.NewReader(data), testGrid(t))
			assert.ErrorIs(t, err, sim.ErrInputContract)
		})
	}
}

func TestCSVReaderRowErrors(t *testing.T) {
	header := "trip_id,oX,oY,dX,dY,pickup_request_time,original_dropoff_time,occupancy\n"
	cases := map[string]string{
		"not a number":      "1,a,0,1,1,0,10,1\n",
		"fractional pixel":  "1,0.5,0,1,1,0,10,1\n",
		"bad time":          "1,0,0,1,1,soon,10,1\n",
		"zero occupancy":    "1,0,0,1,1,0,10,0\n",
		"dropoff too early": "1,0,0,1,1,10,5,1\n",
		"negative pixel":    "1,-1,0,1,1,0,10,1\n",
		"missing field":     "1,0,0,1,1,0,10\n",
		"extra field":       "1,0,0,1,1,0,10,1,9\n",
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			r, err := NewCSVReader(strings.NewReader(header+row), testGrid(t))
			require.NoError(t, err)
			_, err = r.Next()
			assert.ErrorIs(t, err, sim.ErrInputContract)
		})
	}
}

func TestOpenHonoursLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trips.csv")
	data := "trip_id,oX,oY,dX,dY,pickup_request_time,original_dropoff_time,occupancy\n" +
		"1,0,0,1,1,0,10,1\n2,0,0,1,1,1,10,1\n3,0,0,1,1,2,10,1\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	r, err := Open(Config{Path: path, Limit: 2}, testGrid(t))
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	trips := readAll(t, r)
	require.Len(t, trips, 2)
	assert.Equal(t, 2, trips[1].ID)
	// Day of week derived from time zero, 2015-01-01, a Thursday.
	assert.Equal(t, 4, trips[0].DayOfWeek)

	_, err = Open(Config{}, testGrid(t))
	assert.Error(t, err)
	_, err = Open(Config{Path: filepath.Join(t.TempDir(), "missing.csv")}, testGrid(t))
	assert.Error(t, err)
}
