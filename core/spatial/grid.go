package spatial

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// DefaultSpeed is the average Manhattan street speed expressed in pixels per
// second.
const DefaultSpeed = 0.57053355301967001

// ErrOutOfRegion is returned when a coordinate projects outside the grid.
var ErrOutOfRegion = errors.New("coordinate outside the simulated region")

// Config describes the projection from longitude/latitude to pixels and the
// vehicle speed on the grid.
type Config struct {
	// LonShift is added to the longitude before scaling.
	LonShift float64 `json:"lon_shift"`
	// LatShift is added to the latitude before scaling.
	LatShift float64 `json:"lat_shift"`
	// Scale is the number of pixels per degree.
	Scale float64 `json:"scale"`
	// Speed is the vehicle speed in pixels per second.
	Speed float64 `json:"speed"`
	// Bounds optionally restricts accepted coordinates to [min_lon, min_lat, max_lon, max_lat].
	Bounds []float64 `json:"bounds"`
}

// SetDefaults applies the New York City projection.
func (c *Config) SetDefaults() {
	if c.LonShift == 0 {
		c.LonShift = 74.356
	}
	if c.LatShift == 0 {
		c.LatShift = -40.54
	}
	if c.Scale == 0 {
		c.Scale = 200
	}
	if c.Speed == 0 {
		c.Speed = DefaultSpeed
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Scale <= 0 {
		return fmt.Errorf("grid scale must be positive")
	}
	if c.Speed <= 0 {
		return fmt.Errorf("grid speed must be positive")
	}
	if len(c.Bounds) != 0 && len(c.Bounds) != 4 {
		return fmt.Errorf("grid bounds need 4 values, got %d", len(c.Bounds))
	}
	return nil
}

// Grid bundles the projection and the travel speed. A zero Grid is not
// usable; build one with NewGrid.
type Grid struct {
	cfg    Config
	bound  orb.Bound
	bounds bool
}

// NewGrid validates cfg and returns a Grid.
func NewGrid(cfg Config) (*Grid, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &Grid{cfg: cfg}
	if len(cfg.Bounds) == 4 {
		g.bound = orb.Bound{
			Min: orb.Point{cfg.Bounds[0], cfg.Bounds[1]},
			Max: orb.Point{cfg.Bounds[2], cfg.Bounds[3]},
		}
		g.bounds = true
	}
	return g, nil
}

// Speed returns the configured speed in pixels per second.
func (g *Grid) Speed() float64 { return g.cfg.Speed }

// TravelTime returns the seconds needed to drive from a to b.
func (g *Grid) TravelTime(a, b Pixel) float64 {
	return float64(Distance(a, b)) / g.cfg.Speed
}

// Project maps a longitude/latitude pair onto the grid.
func (g *Grid) Project(lon, lat float64) (Pixel, error) {
	return g.ProjectPoint(orb.Point{lon, lat})
}

// ProjectPoint maps an orb point (lon, lat) onto the grid. Coordinates outside
// the optional bounds or landing on a negative pixel are rejected.
func (g *Grid) ProjectPoint(pt orb.Point) (Pixel, error) {
	if math.IsNaN(pt.Lon()) || math.IsNaN(pt.Lat()) {
		return Pixel{}, fmt.Errorf("%w: NaN coordinate", ErrOutOfRegion)
	}
	if g.bounds && !g.bound.Contains(pt) {
		return Pixel{}, fmt.Errorf("%w: %v not within %v", ErrOutOfRegion, pt, g.bound)
	}
	p := Pixel{
		X: int((pt.Lon() + g.cfg.LonShift) * g.cfg.Scale),
		Y: int((pt.Lat() + g.cfg.LatShift) * g.cfg.Scale),
	}
	if !p.Valid() {
		return Pixel{}, fmt.Errorf("%w: lon=%f lat=%f", ErrOutOfRegion, pt.Lon(), pt.Lat())
	}
	return p, nil
}
