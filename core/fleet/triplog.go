package fleet

import (
	"errors"
	"fmt"
	"slices"

	"github.com/kilianp07/fleetsim/core/model"
	"github.com/kilianp07/fleetsim/core/spatial"
)

// ErrBrokenChain is returned when a joined-trip chain references a missing
// trip or loops.
var ErrBrokenChain = errors.New("broken trip chain")

// TripLog is the arena of live, undispatched trips.
type TripLog struct {
	trips map[int]*model.Trip
}

// NewTripLog returns an empty log.
func NewTripLog() *TripLog {
	return &TripLog{trips: make(map[int]*model.Trip)}
}

// Insert adds t. Trip ids must be unique among live trips.
func (l *TripLog) Insert(t *model.Trip) error {
	if _, ok := l.trips[t.ID]; ok {
		return fmt.Errorf("duplicate trip id %d", t.ID)
	}
	l.trips[t.ID] = t
	return nil
}

// Get returns the live trip with the given id.
func (l *TripLog) Get(id int) (*model.Trip, bool) {
	t, ok := l.trips[id]
	return t, ok
}

// Delete evicts a trip.
func (l *TripLog) Delete(id int) { delete(l.trips, id) }

// Len returns the number of live trips.
func (l *TripLog) Len() int { return len(l.trips) }

// IDs returns the ids of every live trip in ascending order.
func (l *TripLog) IDs() []int {
	out := make([]int, 0, len(l.trips))
	for id := range l.trips {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Chain walks the joined-trip chain starting at head and returns its legs in
// order. Walking stops at the first self-joined trip.
func (l *TripLog) Chain(head int) ([]*model.Trip, error) {
	var legs []*model.Trip
	id := head
	for {
		t, ok := l.trips[id]
		if !ok {
			return nil, fmt.Errorf("%w: trip %d (chain from %d) not live", ErrBrokenChain, id, head)
		}
		legs = append(legs, t)
		if t.Terminal() {
			return legs, nil
		}
		if len(legs) > len(l.trips) {
			return nil, fmt.Errorf("%w: cycle from trip %d", ErrBrokenChain, head)
		}
		id = t.JoinedTripID
	}
}

// Relink rewrites the joined-trip pointers so legs form one chain in the
// given order.
func Relink(legs []*model.Trip) {
	for i, t := range legs {
		if i == len(legs)-1 {
			t.JoinedTripID = t.ID
			continue
		}
		t.JoinedTripID = legs[i+1].ID
	}
}

// PersonMiles sums occupancy weighted direct distances over a chain.
func PersonMiles(legs []*model.Trip) int {
	total := 0
	for _, t := range legs {
		total += t.PersonMiles()
	}
	return total
}

// VehicleMiles is the distance driven along a chain, starting at the first
// pickup and visiting every dropoff in order.
func VehicleMiles(legs []*model.Trip) int {
	if len(legs) == 0 {
		return 0
	}
	total := 0
	prev := legs[0].Pickup
	for _, t := range legs {
		total += spatial.Distance(prev, t.Dropoff)
		prev = t.Dropoff
	}
	return total
}

// Circuity returns, for every leg, the ratio between the distance the rider
// travels inside the chain and the direct distance. Legs with zero direct
// distance report 1.
func Circuity(legs []*model.Trip) []float64 {
	out := make([]float64, len(legs))
	if len(legs) == 0 {
		return out
	}
	travelled := 0
	prev := legs[0].Pickup
	for i, t := range legs {
		travelled += spatial.Distance(prev, t.Dropoff)
		prev = t.Dropoff
		direct := spatial.Distance(legs[0].Pickup, t.Dropoff)
		if direct == 0 {
			out[i] = 1
			continue
		}
		out[i] = float64(travelled) / float64(direct)
	}
	return out
}
