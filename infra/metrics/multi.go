package metrics

import (
	"errors"

	coremetrics "shopfloor-planner/core/metrics"
)

// MultiSink fans events out to several sinks, collecting their errors.
type MultiSink struct {
	sinks []coremetrics.MetricsSink
}

// NewMultiSink combines the given sinks into one.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) RecordScheduleRun(ev coremetrics.ScheduleRunEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordScheduleRun(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordSimulation(ev coremetrics.SimulationEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordSimulation(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewSink builds a sink from config: Prometheus and/or InfluxDB, a
// MultiSink when both are enabled, and a NopSink when neither is.
func NewSink(cfg coremetrics.Config) (coremetrics.MetricsSink, error) {
	var sinks []coremetrics.MetricsSink
	if cfg.PrometheusEnabled {
		prom, err := NewPromSink()
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, prom)
	}
	if cfg.InfluxEnabled {
		sinks = append(sinks, NewInfluxSinkWithFallback(cfg))
	}
	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}, nil
	case 1:
		return sinks[0], nil
	default:
		return NewMultiSink(sinks...), nil
	}
}
