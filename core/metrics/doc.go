// Package metrics defines the recorder interfaces through which the
// scheduling driver, the execution recorder and the reconciliation report
// their activity. Sinks are created from configuration through a factory
// registry; several configured sinks are combined into a MultiSink.
package metrics
