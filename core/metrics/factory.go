package metrics

import "github.com/kilianp07/lsp/core/factory"

var sinks = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink makes a sink type available to NewMetricsSink.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinks.Register(name, f)
}

// SinkTypes lists the registered sink types.
func SinkTypes() []string { return sinks.Names() }

// NewMetricsSink builds the configured sinks. No configuration yields a
// NopSink, several yield a MultiSink. Sinks built before a failing one are
// closed.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	switch len(cfgs) {
	case 0:
		return NopSink{}, nil
	case 1:
		return sinks.Create(cfgs[0])
	}
	m := NewMultiSink()
	for _, c := range cfgs {
		s, err := sinks.Create(c)
		if err != nil {
			Close(m)
			return nil, err
		}
		m.Sinks = append(m.Sinks, s)
	}
	return m, nil
}
