// Package metrics defines the sinks recording per-job schedule results.
// Implementations such as PromSink and InfluxSink live in infra/metrics and
// register themselves in the factory; NewMetricsSink returns a MultiSink
// when several sinks are configured.
package metrics
