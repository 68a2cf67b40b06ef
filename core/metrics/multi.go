package metrics

// MultiSink fans events out to several sinks. Optional recorders are only
// forwarded to sinks implementing them.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSchedule forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordSchedule(ev ScheduleEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordSchedule(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordTours forwards tour events.
func (m *MultiSink) RecordTours(evs []TourEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(TourRecorder); ok {
			if err := rec.RecordTours(evs); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordConservation forwards conservation violations.
func (m *MultiSink) RecordConservation(ev ConservationEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ConservationRecorder); ok {
			if err := rec.RecordConservation(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordExecution forwards execution feed events.
func (m *MultiSink) RecordExecution(ev ExecutionEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ExecutionRecorder); ok {
			if err := rec.RecordExecution(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordReconciliation forwards reconciliation results.
func (m *MultiSink) RecordReconciliation(evs []ReconciliationEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ReconciliationRecorder); ok {
			if err := rec.RecordReconciliation(evs); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close releases sinks holding connections, descending into MultiSinks.
func Close(s MetricsSink) {
	switch v := s.(type) {
	case *MultiSink:
		for _, inner := range v.Sinks {
			Close(inner)
		}
	case interface{ Close() }:
		v.Close()
	}
}
