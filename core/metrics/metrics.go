// Package metrics defines the sink interface used to record scheduling
// and simulation runs. Implementations live in infra/metrics (Prometheus,
// InfluxDB) and can be combined with a multi-sink; NopSink keeps the core
// free of any observability dependency.
package metrics

import "time"

// ScheduleRunEvent summarises one scheduling run.
type ScheduleRunEvent struct {
	Strategy               string
	HorizonDays            int
	TotalJobs              int
	UnscheduledTasks       int
	TotalChangeoverMinutes float64
	UtilizationPct         float64
	OnTimeDeliveryRate     float64
	OvertimeHours          float64
	ConfidenceScore        float64
	Duration               time.Duration
	Time                   time.Time
}

// SimulationEvent summarises one rush-order simulation.
type SimulationEvent struct {
	ProductSKU  string
	Scenarios   int
	Recommended string
	MeetsTarget bool
	Duration    time.Duration
	Time        time.Time
}

// MetricsSink records engine events for observability purposes.
type MetricsSink interface {
	RecordScheduleRun(ev ScheduleRunEvent) error
	RecordSimulation(ev SimulationEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordScheduleRun(ScheduleRunEvent) error { return nil }

func (NopSink) RecordSimulation(SimulationEvent) error { return nil }
