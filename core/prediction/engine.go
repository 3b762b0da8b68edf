package prediction

import "github.com/kilianp07/fleetsim/core/spatial"

// DemandPredictor forecasts the expected number of riders requesting a pickup
// from a pixel during one half-hour block of a weekday or weekend day.
type DemandPredictor interface {
	// ExpectedDemand returns the forecast and whether the pixel was ever observed.
	ExpectedDemand(p spatial.Pixel, dayCode, block int) (float64, bool)
}

// DirectionalDemand sums the forecasts of the pixels inside the square window
// of half-width degree around center, split by the side of center they lie
// on. The result is indexed by spatial.Direction. A pixel diagonal to center
// counts for two directions.
func DirectionalDemand(pred DemandPredictor, center spatial.Pixel, degree, dayCode, block int) [4]float64 {
	var out [4]float64
	for _, p := range spatial.Neighborhood(center, degree) {
		v, ok := pred.ExpectedDemand(p, dayCode, block)
		if !ok {
			continue
		}
		if p.X > center.X {
			out[spatial.Right] += v
		}
		if p.Y > center.Y {
			out[spatial.Up] += v
		}
		if p.X < center.X {
			out[spatial.Left] += v
		}
		if p.Y < center.Y {
			out[spatial.Down] += v
		}
	}
	return out
}
