package dispatch

import (
	"fmt"
	"slices"
	"sort"
)

// BufferEntry identifies the head trip of a scheduled chain and its pickup time.
type BufferEntry struct {
	TripID     int     `json:"trip_id"`
	PickupTime float64 `json:"pickup_time"`
}

// Buffer keeps scheduled chains sorted by pickup time. Entries with equal
// pickup times keep their insertion order.
type Buffer struct {
	entries []BufferEntry
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer { return &Buffer{} }

// Len returns the number of buffered chains.
func (b *Buffer) Len() int { return len(b.entries) }

// Push inserts a chain head after every entry with a pickup time lower than
// or equal to pickupTime.
func (b *Buffer) Push(tripID int, pickupTime float64) {
	i := sort.Search(len(b.entries), func(i int) bool {
		return b.entries[i].PickupTime > pickupTime
	})
	b.entries = slices.Insert(b.entries, i, BufferEntry{TripID: tripID, PickupTime: pickupTime})
}

// Peek returns the earliest entry.
func (b *Buffer) Peek() (BufferEntry, bool) {
	if len(b.entries) == 0 {
		return BufferEntry{}, false
	}
	return b.entries[0], true
}

// Pop removes and returns the earliest entry.
func (b *Buffer) Pop() (BufferEntry, bool) {
	e, ok := b.Peek()
	if ok {
		b.entries = slices.Delete(b.entries, 0, 1)
	}
	return e, ok
}

// UpdateKey replaces the entry (oldID, oldTime) with (newID, newTime) and
// restores the ordering.
func (b *Buffer) UpdateKey(oldID int, oldTime float64, newID int, newTime float64) error {
	i := sort.Search(len(b.entries), func(i int) bool {
		return b.entries[i].PickupTime >= oldTime
	})
	for ; i < len(b.entries) && b.entries[i].PickupTime == oldTime; i++ {
		if b.entries[i].TripID != oldID {
			continue
		}
		if newTime == oldTime {
			b.entries[i].TripID = newID
			return nil
		}
		b.entries = slices.Delete(b.entries, i, i+1)
		b.Push(newID, newTime)
		return nil
	}
	return fmt.Errorf("buffer has no entry for trip %d at %.1f", oldID, oldTime)
}

// list returns a copy of the entries in dispatch order.
func (b *Buffer) list() []BufferEntry {
	return slices.Clone(b.entries)
}

// sorted reports whether pickup times are non-decreasing.
func (b *Buffer) sorted() bool {
	return sort.SliceIsSorted(b.entries, func(i, j int) bool {
		return b.entries[i].PickupTime < b.entries[j].PickupTime
	})
}
