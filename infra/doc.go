// Package infra holds the adapters around the scheduling core: metrics
// exporters, result stores, the MQTT schedule publisher and error
// monitoring. They depend on core types, never the other way round.
package infra
