package prediction

import (
	"testing"

	"github.com/kilianp07/fleetsim/core/spatial"
)

func TestMockPredictor(t *testing.T) {
	m := MockPredictor{Demand: map[spatial.Pixel]float64{{X: 1, Y: 1}: 0.7}}
	if v, ok := m.ExpectedDemand(spatial.Pixel{X: 1, Y: 1}, 0, 3); !ok || v != 0.7 {
		t.Fatalf("expected configured value, got %v %v", v, ok)
	}
	if _, ok := m.ExpectedDemand(spatial.Pixel{X: 2, Y: 1}, 0, 3); ok {
		t.Fatalf("unknown pixel reported as observed")
	}
	if _, ok := (MockPredictor{}).ExpectedDemand(spatial.Pixel{}, 0, 0); ok {
		t.Fatalf("empty mock reported as observed")
	}
}

func TestDirectionalDemand(t *testing.T) {
	c := spatial.Pixel{X: 5, Y: 5}
	m := MockPredictor{Demand: map[spatial.Pixel]float64{
		{X: 6, Y: 5}: 1,  // right
		{X: 5, Y: 7}: 2,  // up
		{X: 3, Y: 5}: 4,  // left
		{X: 5, Y: 4}: 8,  // down
		{X: 6, Y: 6}: 16, // right and up
		{X: 5, Y: 5}: 32, // centre counts nowhere
		{X: 9, Y: 5}: 64, // outside the window
	}}
	got := DirectionalDemand(m, c, 2, 0, 0)
	want := [4]float64{17, 18, 4, 8}
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
}
