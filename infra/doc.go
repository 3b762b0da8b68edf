// Package infra contains technical adapters: request readers, result stores,
// MQTT clients and metrics exporters. These packages should depend only on
// the interfaces defined in the core packages.
package infra
