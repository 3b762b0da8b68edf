// Package fleet owns the vehicles and the live trips of one simulation run.
// Entities reference each other by integer id and are resolved here.
package fleet

import (
	"fmt"

	"github.com/kilianp07/fleetsim/core/model"
)

// Registry holds the vehicles of a run indexed by id. Vehicle ids are dense
// and start at zero.
type Registry struct {
	vehicles []*model.Vehicle
}

// NewRegistry returns an empty registry with room for size vehicles.
func NewRegistry(size int) *Registry {
	return &Registry{vehicles: make([]*model.Vehicle, 0, size)}
}

// Add registers v. Its id must equal the current fleet size.
func (r *Registry) Add(v *model.Vehicle) error {
	if v.ID != len(r.vehicles) {
		return fmt.Errorf("vehicle id %d out of sequence, expected %d", v.ID, len(r.vehicles))
	}
	r.vehicles = append(r.vehicles, v)
	return nil
}

// Get returns the vehicle with the given id.
func (r *Registry) Get(id int) (*model.Vehicle, error) {
	if id < 0 || id >= len(r.vehicles) {
		return nil, fmt.Errorf("unknown vehicle %d", id)
	}
	return r.vehicles[id], nil
}

// Len returns the fleet size.
func (r *Registry) Len() int { return len(r.vehicles) }

// All returns the vehicles in ascending id order. The slice must not be
// modified.
func (r *Registry) All() []*model.Vehicle { return r.vehicles }

// Snapshot copies every vehicle.
func (r *Registry) Snapshot() []model.Vehicle {
	out := make([]model.Vehicle, len(r.vehicles))
	for i, v := range r.vehicles {
		out[i] = *v
	}
	return out
}
