package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "shopfloor-planner/core/metrics"
)

// PromSink records engine events in Prometheus metrics.
type PromSink struct {
	scheduleRuns    *prometheus.CounterVec
	scheduledJobs   *prometheus.CounterVec
	unscheduled     prometheus.Counter
	utilization     prometheus.Gauge
	onTimeRate      prometheus.Gauge
	confidence      prometheus.Gauge
	runDuration     *prometheus.HistogramVec
	simulationRuns  *prometheus.CounterVec
	simulationCount prometheus.Gauge
}

// NewPromSink registers scheduling metrics on the default Prometheus
// registerer. The /metrics endpoint is served by the API router.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	scheduleRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_runs_total",
		Help: "Total number of schedule generation runs",
	}, []string{"strategy"})
	scheduledJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_jobs_total",
		Help: "Total number of jobs produced by scheduling runs",
	}, []string{"strategy"})
	unscheduled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_unscheduled_tasks_total",
		Help: "Total number of tasks that could not be placed",
	})
	utilization := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schedule_utilization_pct",
		Help: "Line utilization of the last schedule run",
	})
	onTimeRate := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schedule_on_time_delivery_rate",
		Help: "On-time delivery rate of the last schedule run",
	})
	confidence := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schedule_confidence_score",
		Help: "Confidence score of the last schedule run",
	})
	runDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "schedule_run_duration_seconds",
		Help:    "Wall-clock duration of schedule generation runs",
		Buckets: prometheus.DefBuckets,
	}, []string{"strategy"})
	simulationRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_runs_total",
		Help: "Total number of rush-order simulations",
	}, []string{"meets_target"})
	simulationCount := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simulation_scenarios",
		Help: "Scenario count of the last rush-order simulation",
	})

	s := &PromSink{
		scheduleRuns:    scheduleRuns,
		scheduledJobs:   scheduledJobs,
		unscheduled:     unscheduled,
		utilization:     utilization,
		onTimeRate:      onTimeRate,
		confidence:      confidence,
		runDuration:     runDuration,
		simulationRuns:  simulationRuns,
		simulationCount: simulationCount,
	}

	for _, c := range []prometheus.Collector{
		scheduleRuns, scheduledJobs, unscheduled, utilization,
		onTimeRate, confidence, runDuration, simulationRuns, simulationCount,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return s, nil
}

// RecordScheduleRun updates counters, gauges and the duration histogram.
func (s *PromSink) RecordScheduleRun(ev coremetrics.ScheduleRunEvent) error {
	s.scheduleRuns.WithLabelValues(ev.Strategy).Inc()
	s.scheduledJobs.WithLabelValues(ev.Strategy).Add(float64(ev.TotalJobs))
	s.unscheduled.Add(float64(ev.UnscheduledTasks))
	s.utilization.Set(ev.UtilizationPct)
	s.onTimeRate.Set(ev.OnTimeDeliveryRate)
	s.confidence.Set(ev.ConfidenceScore)
	s.runDuration.WithLabelValues(ev.Strategy).Observe(ev.Duration.Seconds())
	return nil
}

// RecordSimulation counts the run and publishes the scenario count.
func (s *PromSink) RecordSimulation(ev coremetrics.SimulationEvent) error {
	label := "false"
	if ev.MeetsTarget {
		label = "true"
	}
	s.simulationRuns.WithLabelValues(label).Inc()
	s.simulationCount.Set(float64(ev.Scenarios))
	return nil
}
