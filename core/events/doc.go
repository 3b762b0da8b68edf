// Package events defines the simulation events emitted on the event bus.
//
// Available event types:
//   - VehicleRequested: a request received its own vehicle
//   - TripBundled: a request joined an open chain at its pickup pixel
//   - ChainDispatched: a scheduled chain left its pickup pixel
//   - VehicleRepositioned: an idle vehicle moved toward demand
//   - RunProgress: periodic clock and queue sizes of a run
package events

// Event is implemented by every simulation event.
type Event interface {
	Kind() string
}
