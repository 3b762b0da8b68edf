// Package store persists simulation results. Every store receives the
// dispatched legs of a run in dispatch order followed by the final fleet
// counters.
package store

import (
	"errors"
	"maps"
	"strings"

	"github.com/kilianp07/fleetsim/core/factory"
	"github.com/kilianp07/fleetsim/core/model"
	"github.com/kilianp07/fleetsim/core/sim"
)

// RunPlaceholder is replaced by the run id in configured paths and topics so
// that the runs of a sweep do not share an output.
const RunPlaceholder = "{run_id}"

var registry = factory.NewRegistry[sim.ResultStore]()

// Register adds a result store factory identified by name.
func Register(name string, f factory.Factory[sim.ResultStore]) error {
	return registry.Register(name, f)
}

// Names lists the registered store types.
func Names() []string { return registry.Names() }

// New creates the stores described by cfgs for the run runID. The run id is
// passed to every factory under the run_id key.
func New(cfgs []factory.ModuleConfig, runID string) (sim.ResultStore, error) {
	if len(cfgs) == 0 {
		return &sim.MemoryStore{}, nil
	}
	stores := make([]sim.ResultStore, 0, len(cfgs))
	for _, c := range cfgs {
		conf := make(map[string]any, len(c.Conf)+1)
		maps.Copy(conf, c.Conf)
		conf["run_id"] = runID
		s, err := registry.Create(factory.ModuleConfig{Type: c.Type, Conf: conf})
		if err != nil {
			closeAll(stores)
			return nil, err
		}
		stores = append(stores, s)
	}
	if len(stores) == 1 {
		return stores[0], nil
	}
	return MultiStore(stores), nil
}

func expand(s, runID string) string {
	return strings.ReplaceAll(s, RunPlaceholder, runID)
}

func closeAll(stores []sim.ResultStore) {
	for _, s := range stores {
		_ = s.Close()
	}
}

// MultiStore writes to several stores. A failing store does not prevent the
// others from receiving the data; the errors are joined.
type MultiStore []sim.ResultStore

// WriteLegs implements sim.ResultStore.
func (m MultiStore) WriteLegs(legs []model.Trip) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.WriteLegs(legs))
	}
	return errors.Join(errs...)
}

// WriteFleet implements sim.ResultStore.
func (m MultiStore) WriteFleet(vehicles []model.Vehicle) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.WriteFleet(vehicles))
	}
	return errors.Join(errs...)
}

// Close implements sim.ResultStore.
func (m MultiStore) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
