package prediction

import "github.com/kilianp07/fleetsim/core/spatial"

// MockPredictor returns a fixed demand per pixel regardless of day and block.
type MockPredictor struct {
	Demand map[spatial.Pixel]float64
}

// ExpectedDemand returns the configured value for p.
func (m MockPredictor) ExpectedDemand(p spatial.Pixel, dayCode, block int) (float64, bool) {
	_, _ = dayCode, block
	if m.Demand == nil {
		return 0, false
	}
	v, ok := m.Demand[p]
	return v, ok
}
