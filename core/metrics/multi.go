package metrics

import "errors"

// MultiSink fans job results out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordJobResult forwards the result to every sink and joins their errors.
func (m *MultiSink) RecordJobResult(res JobResult) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordJobResult(res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordBatch forwards the summary to the sinks supporting it.
func (m *MultiSink) RecordBatch(sum BatchSummary) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(BatchRecorder); ok {
			if err := r.RecordBatch(sum); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
