// Package metrics defines the observability contract of the simulator.
// Sinks like PromSink and InfluxSink (in infra/metrics) record dispatched
// chains, repositioning moves and run summaries, and can be combined with
// NewMultiSink. The factory helpers return a MultiSink automatically when
// multiple sinks are configured.
package metrics
