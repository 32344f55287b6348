package plan

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"shopfloor-planner/core/model"
)

// Confidence sub-score weights: data quality, on-time ratio, coverage.
var confidenceWeights = []float64{0.2, 0.5, 0.3}

// runMetrics holds the schedule quality figures computed after
// persistence.
type runMetrics struct {
	onTimeRate     float64
	utilizationPct float64
	overtimeHours  float64
}

func (s *Scheduler) calculateMetrics(jobs []model.Job, lines []model.ProductionLine, startTime, horizonEnd time.Time, tasks []Task) runMetrics {
	if len(jobs) == 0 {
		return runMetrics{}
	}

	taskByItem := taskMap(tasks)
	onTime := 0
	for _, j := range jobs {
		if t, ok := taskByItem[j.OrderItemID]; ok && !j.PlannedEnd.After(t.DueDate) {
			onTime++
		}
	}
	onTimeRate := float64(onTime) / float64(len(jobs)) * 100.0

	horizonHours := horizonEnd.Sub(startTime).Hours()
	availableHours := horizonHours * float64(len(lines))
	busyHours := 0.0
	for _, j := range jobs {
		busyHours += j.Duration().Hours()
	}
	utilization := 0.0
	if availableHours > 0 {
		utilization = busyHours / availableHours * 100.0
	}

	overtime := 0.0
	for _, j := range jobs {
		overtime += s.cal.Overtime(j.PlannedStart, j.PlannedEnd)
	}

	return runMetrics{
		onTimeRate:     round1(onTimeRate),
		utilizationPct: round1(math.Min(utilization, 100.0)),
		overtimeHours:  round1(overtime),
	}
}

// calculateConfidence scores how much the schedule can be trusted, on a
// 0-100 scale: how many products carry a learned cycle time, how many
// jobs finish on time, and how many tasks were placed at all.
func (s *Scheduler) calculateConfidence(jobs []model.Job, tasks []Task) float64 {
	if len(jobs) == 0 || len(tasks) == 0 {
		return 0
	}

	learned := 0
	for _, t := range tasks {
		if t.HasLearnedCycleTime {
			learned++
		}
	}
	dataScore := math.Min(float64(learned)/float64(len(tasks))*100.0, 100.0)

	taskByItem := taskMap(tasks)
	onTime := 0
	for _, j := range jobs {
		if t, ok := taskByItem[j.OrderItemID]; ok && !j.PlannedEnd.After(t.DueDate) {
			onTime++
		}
	}
	onTimeScore := float64(onTime) / float64(len(jobs)) * 100.0

	coverageScore := float64(len(jobs)) / float64(len(tasks)) * 100.0

	confidence := stat.Mean([]float64{dataScore, onTimeScore, coverageScore}, confidenceWeights)
	return round1(clamp(confidence, 0, 100))
}

func taskMap(tasks []Task) map[uuid.UUID]Task {
	m := make(map[uuid.UUID]Task, len(tasks))
	for _, t := range tasks {
		m[t.OrderItemID] = t
	}
	return m
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
