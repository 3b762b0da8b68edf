package sim

import (
	"sync"

	"github.com/kilianp07/fleetsim/core/model"
	"github.com/kilianp07/fleetsim/core/report"
)

// ResultStore persists the output of a run: every dispatched leg in dispatch
// order, then the final fleet counters.
type ResultStore interface {
	WriteLegs(legs []model.Trip) error
	WriteFleet(vehicles []model.Vehicle) error
	Close() error
}

// MemoryStore keeps the results of a run in memory.
type MemoryStore struct {
	mu       sync.Mutex
	Legs     []model.Trip
	Vehicles []model.Vehicle
	Closed   bool
}

// WriteLegs implements ResultStore.
func (m *MemoryStore) WriteLegs(legs []model.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Legs = append(m.Legs, legs...)
	return nil
}

// WriteFleet implements ResultStore.
func (m *MemoryStore) WriteFleet(vehicles []model.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Vehicles = append(m.Vehicles[:0], vehicles...)
	return nil
}

// Close implements ResultStore.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// collectingWriter feeds every persisted chain to a report collector.
type collectingWriter struct {
	store     ResultStore
	collector *report.Collector
}

func (w collectingWriter) WriteLegs(legs []model.Trip) error {
	if err := w.store.WriteLegs(legs); err != nil {
		return err
	}
	w.collector.Add(legs)
	return nil
}
