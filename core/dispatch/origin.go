package dispatch

import "github.com/kilianp07/fleetsim/core/spatial"

// OriginEntry is one vehicle waiting at a pickup pixel with an undispatched
// chain.
type OriginEntry struct {
	Destination spatial.Pixel
	TripID      int
}

// OriginQueues indexes open chains by pickup pixel, oldest first.
type OriginQueues struct {
	queues map[spatial.Pixel][]OriginEntry
}

// NewOriginQueues returns empty queues.
func NewOriginQueues() *OriginQueues {
	return &OriginQueues{queues: make(map[spatial.Pixel][]OriginEntry)}
}

// Append adds an entry at p.
func (q *OriginQueues) Append(p spatial.Pixel, e OriginEntry) {
	q.queues[p] = append(q.queues[p], e)
}

// Latest returns the most recently opened entry at p.
func (q *OriginQueues) Latest(p spatial.Pixel) (OriginEntry, bool) {
	es := q.queues[p]
	if len(es) == 0 {
		return OriginEntry{}, false
	}
	return es[len(es)-1], true
}

// Replace swaps the entry for tripID at p. It reports whether one was found.
func (q *OriginQueues) Replace(p spatial.Pixel, tripID int, e OriginEntry) bool {
	es := q.queues[p]
	for i := range es {
		if es[i].TripID == tripID {
			es[i] = e
			return true
		}
	}
	return false
}

// Remove drops the entry for tripID at p. Empty queues are deleted.
func (q *OriginQueues) Remove(p spatial.Pixel, tripID int) bool {
	es := q.queues[p]
	for i := range es {
		if es[i].TripID != tripID {
			continue
		}
		es = append(es[:i], es[i+1:]...)
		if len(es) == 0 {
			delete(q.queues, p)
		} else {
			q.queues[p] = es
		}
		return true
	}
	return false
}

// Len returns the number of open entries across all pixels.
func (q *OriginQueues) Len() int {
	n := 0
	for _, es := range q.queues {
		n += len(es)
	}
	return n
}
