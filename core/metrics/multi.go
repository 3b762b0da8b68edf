package metrics

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordChainDispatch forwards the record to all sinks, returning the first error encountered.
func (m *MultiSink) RecordChainDispatch(ev []ChainDispatch) error {
	for _, s := range m.Sinks {
		if err := s.RecordChainDispatch(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordReposition forwards repositioning rounds when supported by the sink.
func (m *MultiSink) RecordReposition(ev RepositionEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(RepositionRecorder); ok {
			if err := rec.RecordReposition(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRunSummary forwards run summaries when supported by the sink.
func (m *MultiSink) RecordRunSummary(ev RunSummaryEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(RunSummaryRecorder); ok {
			if err := rec.RecordRunSummary(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRequest forwards served requests when supported by the sink.
func (m *MultiSink) RecordRequest(ev RequestEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(RequestRecorder); ok {
			if err := rec.RecordRequest(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close releases every sink holding a connection.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
