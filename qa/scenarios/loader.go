// Package scenarios runs acceptance scenarios described in YAML against the
// simulator.
package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/fleetsim/core/dispatch"
	"github.com/kilianp07/fleetsim/core/model"
	"github.com/kilianp07/fleetsim/core/spatial"
)

type PixelDef struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

func (p PixelDef) ToModel() spatial.Pixel { return spatial.Pixel{X: p.X, Y: p.Y} }

type ParamsDef struct {
	FleetSize          int     `yaml:"fleet_size"`
	VehicleSize        int     `yaml:"vehicle_size"`
	DepartureDelay     float64 `yaml:"departure_delay"`
	MaxCircuity        float64 `yaml:"max_circuity"`
	MaxStops           int     `yaml:"max_stops"`
	LocalDemandDegree  int     `yaml:"local_demand_degree"`
	GreedyCommonOrigin bool    `yaml:"greedy_common_origin"`
	FreqLEVRS          int     `yaml:"freq_levrs"`
}

func (p ParamsDef) ToModel() dispatch.Params {
	out := dispatch.Params{
		FleetSize:          p.FleetSize,
		VehicleSize:        p.VehicleSize,
		DepartureDelay:     p.DepartureDelay,
		MaxCircuity:        p.MaxCircuity,
		MaxStops:           p.MaxStops,
		LocalDemandDegree:  p.LocalDemandDegree,
		GreedyCommonOrigin: p.GreedyCommonOrigin,
		FreqLEVRS:          p.FreqLEVRS,
	}
	out.SetDefaults()
	return out
}

type RequestDef struct {
	ID   int      `yaml:"id"`
	From PixelDef `yaml:"from"`
	To   PixelDef `yaml:"to"`
	At   float64  `yaml:"at"`
	// Dropoff defaults to the direct travel time after At.
	Dropoff   *float64 `yaml:"dropoff,omitempty"`
	Occupancy int      `yaml:"occupancy"`
	DayOfWeek *int     `yaml:"day_of_week,omitempty"`
}

// ToModel builds the request on grid g. Requests default to a Wednesday.
func (r RequestDef) ToModel(g *spatial.Grid) (model.Trip, error) {
	from, to := r.From.ToModel(), r.To.ToModel()
	dropoff := r.At + g.TravelTime(from, to)
	if r.Dropoff != nil {
		dropoff = *r.Dropoff
	}
	dow := 3
	if r.DayOfWeek != nil {
		dow = *r.DayOfWeek
	}
	t, err := model.NewTrip(r.ID, from, to, r.At, dropoff, r.Occupancy, dow)
	if err != nil {
		return model.Trip{}, err
	}
	return *t, nil
}

type LegExpectation struct {
	ID      int      `yaml:"id"`
	Vehicle int      `yaml:"vehicle"`
	Pickup  *float64 `yaml:"pickup,omitempty"`
	Dropoff *float64 `yaml:"dropoff,omitempty"`
	// Next is the trip joined after this one. A leg naming itself ends its chain.
	Next *int `yaml:"next,omitempty"`
}

type VehicleExpectation struct {
	ID         int       `yaml:"id"`
	Location   *PixelDef `yaml:"location,omitempty"`
	Reposition *int      `yaml:"reposition,omitempty"`
}

type BeliefExpectation struct {
	Pixel   PixelDef `yaml:"pixel"`
	DayCode int      `yaml:"day_code"`
	Block   int      `yaml:"block"`
	Value   float64  `yaml:"value"`
}

type Expected struct {
	Error     string               `yaml:"error,omitempty"`
	Legs      []LegExpectation     `yaml:"legs,omitempty"`
	Bundled   *int                 `yaml:"bundled,omitempty"`
	Requested *int                 `yaml:"requested,omitempty"`
	Trips     *int                 `yaml:"trips,omitempty"`
	Riders    *int                 `yaml:"riders,omitempty"`
	Vehicles  []VehicleExpectation `yaml:"vehicles,omitempty"`
	Beliefs   []BeliefExpectation  `yaml:"beliefs,omitempty"`
}

type Scenario struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	Speed       float64      `yaml:"speed,omitempty"`
	Params      ParamsDef    `yaml:"params"`
	Fleet       []PixelDef   `yaml:"fleet,omitempty"`
	Requests    []RequestDef `yaml:"requests"`
	Expected    Expected     `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: scenario has no name", path)
	}
	return &sc, nil
}
