// Package belief maintains the per-pixel demand estimates used to reposition
// idle vehicles. Each pixel keeps a running weighted average of the observed
// occupancy for every (day code, half-hour block) cell.
package belief

import (
	"fmt"
	"sort"

	"github.com/kilianp07/fleetsim/core/model"
	"github.com/kilianp07/fleetsim/core/spatial"
)

// Cell is the estimate of one (pixel, day code, block).
type Cell struct {
	Value float64 `json:"value"`
	Beta  float64 `json:"beta"`
}

// Cells holds every (day code, block) estimate of one pixel.
type Cells [model.DayCodes][model.BlocksPerDay]Cell

// Model maps pixels to their estimates. A Model is not safe for concurrent
// use; give every run its own Clone.
type Model struct {
	initialBeta float64
	betaObs     float64
	cells       map[spatial.Pixel]*Cells
}

// New returns an empty model. initialBeta seeds unseen pixels and betaObs is
// the weight of one observation.
func New(initialBeta, betaObs float64) (*Model, error) {
	if initialBeta <= 0 || betaObs <= 0 {
		return nil, fmt.Errorf("belief weights must be positive (initial=%v obs=%v)", initialBeta, betaObs)
	}
	return &Model{initialBeta: initialBeta, betaObs: betaObs, cells: make(map[spatial.Pixel]*Cells)}, nil
}

// InitialBeta returns the weight given to unseen pixels.
func (m *Model) InitialBeta() float64 { return m.initialBeta }

// BetaObs returns the weight of one observation.
func (m *Model) BetaObs() float64 { return m.betaObs }

// Len returns the number of known pixels.
func (m *Model) Len() int { return len(m.cells) }

func (m *Model) pixel(p spatial.Pixel) *Cells {
	c, ok := m.cells[p]
	if ok {
		return c
	}
	c = new(Cells)
	for d := range c {
		for b := range c[d] {
			c[d][b] = Cell{Value: 0, Beta: m.initialBeta}
		}
	}
	m.cells[p] = c
	return c
}

// Update folds one observation of occupancy riders into the cell of p.
func (m *Model) Update(p spatial.Pixel, dayCode, block, occupancy int) error {
	if err := checkCell(dayCode, block); err != nil {
		return err
	}
	c := &m.pixel(p)[dayCode][block]
	beta := c.Beta + m.betaObs
	c.Value = (c.Value*c.Beta + float64(occupancy)*m.betaObs) / beta
	c.Beta = beta
	return nil
}

// Observe records the pickup of t.
func (m *Model) Observe(t *model.Trip) error {
	return m.Update(t.Pickup, model.DayCode(t.DayOfWeek), model.TimeBlock(t.PickupRequestTime), t.Occupancy)
}

// Cell returns the estimate stored for a cell.
func (m *Model) Cell(p spatial.Pixel, dayCode, block int) (Cell, bool) {
	c, ok := m.cells[p]
	if !ok || checkCell(dayCode, block) != nil {
		return Cell{}, false
	}
	return c[dayCode][block], true
}

// Set overwrites one cell. Other cells of an unseen pixel are initialised as
// for Update.
func (m *Model) Set(p spatial.Pixel, dayCode, block int, c Cell) error {
	if err := checkCell(dayCode, block); err != nil {
		return err
	}
	m.pixel(p)[dayCode][block] = c
	return nil
}

// ExpectedDemand implements prediction.DemandPredictor.
func (m *Model) ExpectedDemand(p spatial.Pixel, dayCode, block int) (float64, bool) {
	c, ok := m.Cell(p, dayCode, block)
	return c.Value, ok
}

// Pixels returns the known pixels sorted by x then y.
func (m *Model) Pixels() []spatial.Pixel {
	out := make([]spatial.Pixel, 0, len(m.cells))
	for p := range m.cells {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return out
}

// Clone returns an independent deep copy using new observation weights.
func (m *Model) Clone(initialBeta, betaObs float64) (*Model, error) {
	cp, err := New(initialBeta, betaObs)
	if err != nil {
		return nil, err
	}
	for p, c := range m.cells {
		dup := *c
		cp.cells[p] = &dup
	}
	return cp, nil
}

func checkCell(dayCode, block int) error {
	if dayCode < 0 || dayCode >= model.DayCodes {
		return fmt.Errorf("day code %d out of range", dayCode)
	}
	if block < 0 || block >= model.BlocksPerDay {
		return fmt.Errorf("time block %d out of range", block)
	}
	return nil
}
