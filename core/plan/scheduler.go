// Package plan implements the three-phase batch scheduler: a rule-based
// sort, a greedy constraint-satisfying assignment over line slots, and a
// pass-through optimization hook reserved for a historical-data pass.
package plan

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"shopfloor-planner/core/calendar"
	"shopfloor-planner/core/logger"
	"shopfloor-planner/core/metrics"
	"shopfloor-planner/core/model"
)

// OrderReader supplies the order and line snapshot a run operates on.
type OrderReader interface {
	// PendingOrders returns pending or confirmed orders with their items
	// and products, optionally limited to the given order IDs.
	PendingOrders(ctx context.Context, orderIDs []uuid.UUID) ([]model.Order, error)
	// ActiveLines returns all lines accepting new jobs.
	ActiveLines(ctx context.Context) ([]model.ProductionLine, error)
}

// JobStore persists the jobs produced by a run.
type JobStore interface {
	// SavePlan marks existing planned jobs for the affected order items as
	// superseded and inserts the new jobs, atomically, so that no order
	// item ever carries two planned jobs at once. It returns the persisted
	// jobs with their assigned IDs.
	SavePlan(ctx context.Context, jobs []model.Job) ([]model.Job, error)
}

// Metadata carries run-level quality figures alongside the jobs.
type Metadata struct {
	OnTimeDeliveryRate float64  `json:"on_time_delivery_rate"`
	OvertimeHours      float64  `json:"overtime_hours"`
	ConfidenceScore    float64  `json:"confidence_score"`
	Strategy           Strategy `json:"strategy"`
	HorizonDays        int      `json:"horizon_days"`
	Phase3Applied      bool     `json:"phase3_applied"`
	Phase3Reason       string   `json:"phase3_reason,omitempty"`
}

// Result is the outcome of one scheduling run.
type Result struct {
	Jobs                   []model.Job `json:"jobs"`
	TotalJobs              int         `json:"total_jobs"`
	TotalChangeoverMinutes float64     `json:"total_changeover_minutes"`
	UtilizationPct         float64     `json:"utilization_pct"`
	Warnings               []string    `json:"warnings"`
	Metadata               Metadata    `json:"metadata"`
}

// lineSlot is the per-line cursor Phase 2 advances as it commits tasks.
type lineSlot struct {
	line           model.ProductionLine
	currentTime    time.Time
	lastProductSKU string
	totalBusyHours float64
	overtimeHours  float64
}

// Scheduler is the three-phase batch engine. It is a pure function of its
// injected collaborators; Now is overridable for deterministic tests.
type Scheduler struct {
	reader  OrderReader
	store   JobStore
	cal     calendar.Calendar
	weights Weights
	log     logger.Logger
	sink    metrics.MetricsSink

	// Now supplies the schedule start time.
	Now func() time.Time
}

// New builds a Scheduler. A nil logger or sink falls back to no-ops.
func New(reader OrderReader, store JobStore, cal calendar.Calendar, cfg Config, log logger.Logger, sink metrics.MetricsSink) *Scheduler {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NopLogger{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Scheduler{
		reader:  reader,
		store:   store,
		cal:     cal,
		weights: cfg.Weights,
		log:     log,
		sink:    sink,
		Now:     time.Now,
	}
}

// GenerateSchedule runs the three phases, persists the resulting jobs and
// returns them with quality metrics. Capacity problems surface as
// warnings; only whole-run preconditions return a SchedulingError.
func (s *Scheduler) GenerateSchedule(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()
	req.SetDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	orders, err := s.reader.PendingOrders(ctx, req.OrderIDs)
	if err != nil {
		return nil, schedulingErrorf("fetch orders: %v", err)
	}
	lines, err := s.reader.ActiveLines(ctx)
	if err != nil {
		return nil, schedulingErrorf("fetch lines: %v", err)
	}

	if len(lines) == 0 {
		return emptyResult(req, "No active production lines configured. Please set up lines before scheduling."), nil
	}
	if len(orders) == 0 {
		return emptyResult(req, "No pending orders found to schedule."), nil
	}
	tasks := buildTasks(orders)
	if len(tasks) == 0 {
		return emptyResult(req, "No schedulable order items found."), nil
	}

	sorted := phase1Sort(tasks)

	now := s.Now().UTC()
	horizonEnd := now.Add(time.Duration(req.HorizonDays) * 24 * time.Hour)
	drafts, warnings, unscheduled := s.phase2Assign(sorted, lines, now, horizonEnd, req.Strategy)

	optimized, phase3 := s.phase3Optimize(drafts)

	persisted, err := s.store.SavePlan(ctx, optimized)
	if err != nil {
		return nil, schedulingErrorf("persist jobs: %v", err)
	}

	run := s.calculateMetrics(persisted, lines, now, horizonEnd, tasks)
	confidence := s.calculateConfidence(persisted, tasks)

	totalChangeover := 0.0
	for _, j := range persisted {
		totalChangeover += j.ChangeoverMinutes
	}

	s.log.Infof("scheduled %d/%d task(s), utilization %.1f%%, confidence %.1f",
		len(persisted), len(tasks), run.utilizationPct, confidence)
	if err := s.sink.RecordScheduleRun(metrics.ScheduleRunEvent{
		Strategy:               string(req.Strategy),
		HorizonDays:            req.HorizonDays,
		TotalJobs:              len(persisted),
		UnscheduledTasks:       unscheduled,
		TotalChangeoverMinutes: totalChangeover,
		UtilizationPct:         run.utilizationPct,
		OnTimeDeliveryRate:     run.onTimeRate,
		OvertimeHours:          run.overtimeHours,
		ConfidenceScore:        confidence,
		Duration:               time.Since(started),
		Time:                   now,
	}); err != nil {
		s.log.Warnf("record schedule run: %v", err)
	}

	return &Result{
		Jobs:                   persisted,
		TotalJobs:              len(persisted),
		TotalChangeoverMinutes: totalChangeover,
		UtilizationPct:         run.utilizationPct,
		Warnings:               warnings,
		Metadata: Metadata{
			OnTimeDeliveryRate: run.onTimeRate,
			OvertimeHours:      run.overtimeHours,
			ConfidenceScore:    confidence,
			Strategy:           req.Strategy,
			HorizonDays:        req.HorizonDays,
			Phase3Applied:      phase3.Applied,
			Phase3Reason:       phase3.Reason,
		},
	}, nil
}

func emptyResult(req Request, warning string) *Result {
	return &Result{
		Jobs:     []model.Job{},
		Warnings: []string{warning},
		Metadata: Metadata{Strategy: req.Strategy, HorizonDays: req.HorizonDays},
	}
}

// phase1Sort orders tasks by priority, then due date. The sort is stable
// so equal tasks keep their arrival order.
func phase1Sort(tasks []Task) []Task {
	sorted := make([]Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return sorted[i].DueDate.Before(sorted[j].DueDate)
	})
	return sorted
}

// phase2Assign greedily commits each task to the best-scoring line slot
// under the calendar and changeover constraints. Tasks with no feasible
// slot are skipped and reported in a capacity warning.
func (s *Scheduler) phase2Assign(tasks []Task, lines []model.ProductionLine, startTime, horizonEnd time.Time, strategy Strategy) ([]model.Job, []string, int) {
	warnings := []string{}
	workStart := s.cal.AlignToWorkStart(startTime)

	slots := make([]*lineSlot, len(lines))
	for i, line := range lines {
		slots[i] = &lineSlot{line: line, currentTime: workStart}
	}

	var jobs []model.Job
	unscheduled := 0

	for _, task := range tasks {
		slot, changeover := s.findBestSlot(task, slots, strategy, horizonEnd)
		if slot == nil {
			unscheduled++
			s.log.Debugw("task unschedulable", map[string]any{
				"order_item_id": task.OrderItemID.String(),
				"product_sku":   task.ProductSKU,
			})
			continue
		}

		jobStart := slot.currentTime.Add(minutesDuration(changeover))
		jobEnd := jobStart.Add(hoursDuration(task.EstimatedHours))

		if jobEnd.After(horizonEnd) {
			warnings = append(warnings, fmt.Sprintf("Order item %s extends beyond planning horizon.", task.OrderItemID))
		}
		overtime := s.cal.Overtime(jobStart, jobEnd)
		if overtime > float64(s.cal.MaxOvertimeHours()) {
			warnings = append(warnings, fmt.Sprintf("Order item %s requires %.1fh overtime (max %dh).",
				task.OrderItemID, overtime, s.cal.MaxOvertimeHours()))
		}
		if jobEnd.After(task.DueDate) {
			warnings = append(warnings, fmt.Sprintf("Order item %s is projected to finish after due date.", task.OrderItemID))
		}

		jobs = append(jobs, model.Job{
			OrderItemID:       task.OrderItemID,
			ProductionLineID:  slot.line.ID,
			ProductID:         task.ProductID,
			PlannedStart:      jobStart,
			PlannedEnd:        jobEnd,
			Quantity:          task.Quantity,
			ChangeoverMinutes: changeover,
			Status:            model.JobStatusPlanned,
			ProductSKU:        task.ProductSKU,
		})

		slot.currentTime = jobEnd
		slot.lastProductSKU = task.ProductSKU
		slot.totalBusyHours += task.EstimatedHours + changeover/60.0
		slot.overtimeHours += overtime
	}

	if unscheduled > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"%d order item(s) could not be scheduled within the planning horizon due to capacity constraints.", unscheduled))
	}
	return jobs, warnings, unscheduled
}

// findBestSlot returns the lowest-scoring feasible slot for a task, or
// nil when no line can take it before the horizon plus overtime margin.
func (s *Scheduler) findBestSlot(task Task, slots []*lineSlot, strategy Strategy, horizonEnd time.Time) (*lineSlot, float64) {
	maxOvertime := time.Duration(s.cal.MaxOvertimeHours()) * time.Hour

	var best *lineSlot
	bestChangeover := 0.0
	bestScore := 0.0

	for _, slot := range slots {
		if !slot.line.Allows(task.ProductSKU) {
			continue
		}
		changeover := slot.line.ChangeoverMinutes(slot.lastProductSKU, task.ProductSKU)

		// Projected finish by plain duration addition; the calendar only
		// shapes the committed interval through Overtime accounting.
		jobStart := slot.currentTime.Add(minutesDuration(changeover))
		jobEnd := jobStart.Add(hoursDuration(task.EstimatedHours))
		if jobEnd.After(horizonEnd.Add(maxOvertime)) {
			continue
		}

		score := s.scoreAssignment(task, slot, changeover, jobEnd, strategy)
		if best == nil || score < bestScore {
			best = slot
			bestChangeover = changeover
			bestScore = score
		}
	}
	return best, bestChangeover
}

// scoreAssignment computes the Phase 2 score for placing a task on a
// slot. Lower is better: earlier finishes win, changeovers and projected
// lateness cost extra, and already-loaded lines are disfavoured.
func (s *Scheduler) scoreAssignment(task Task, slot *lineSlot, changeover float64, jobEnd time.Time, strategy Strategy) float64 {
	score := jobEnd.Sub(scoreEpoch).Hours()
	score += changeover * s.weights.Changeover

	if jobEnd.After(task.DueDate) {
		lateHours := jobEnd.Sub(task.DueDate).Hours()
		score += lateHours * s.weights.Late
	}

	switch strategy {
	case StrategyRush:
		score -= changeover * s.weights.RushChangeoverBonus
	case StrategyEfficiency:
		score += changeover * s.weights.EfficiencyChangeoverPenalty
	}

	score += slot.totalBusyHours * s.weights.Load
	return score
}

// phase3Meta describes whether the optimization hook ran.
type phase3Meta struct {
	Applied bool
	Reason  string
}

// phase3Optimize is the optimization hook. It currently passes the
// Phase 2 schedule through unchanged; a historical-data-informed
// reordering step is planned to slot in here.
func (s *Scheduler) phase3Optimize(jobs []model.Job) ([]model.Job, phase3Meta) {
	return jobs, phase3Meta{Applied: false, Reason: "not yet integrated"}
}

func minutesDuration(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}

func hoursDuration(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
