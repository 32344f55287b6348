// Package simulate implements the rush-order what-if engine. It takes a
// hypothetical rush task plus a snapshot of the open schedule, generates
// append and insert-with-displacement scenarios per eligible line, prunes
// them and recommends one. Nothing it does mutates persisted state.
package simulate

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
	"shopfloor-planner/core/plan"
)

// SnapshotReader supplies the read-only snapshot a simulation runs on.
type SnapshotReader interface {
	// ProductByID fetches a product; found is false when it does not exist.
	ProductByID(ctx context.Context, id uuid.UUID) (model.Product, bool, error)
	// ActiveLines returns all lines accepting new jobs.
	ActiveLines(ctx context.Context) ([]model.ProductionLine, error)
	// OpenJobs returns all planned and in-progress jobs with their product
	// SKUs, ordered by planned start.
	OpenJobs(ctx context.Context) ([]model.Job, error)
}

// RushOrder is the hypothetical task to place into the schedule.
type RushOrder struct {
	ProductID  uuid.UUID `json:"product_id"`
	Quantity   int       `json:"quantity"`
	TargetDate time.Time `json:"target_date"`
	// Priority defaults to 1, the most urgent level.
	Priority int `json:"priority"`
}

// SetDefaults makes an unset priority the most urgent one.
func (r *RushOrder) SetDefaults() {
	if r.Priority == 0 {
		r.Priority = 1
	}
}

// Validate rejects malformed rush orders with a SimulationError.
func (r RushOrder) Validate() error {
	if r.Quantity < 1 {
		return simulationErrorf("quantity must be at least 1, got %d", r.Quantity)
	}
	if r.Priority < 1 || r.Priority > 5 {
		return simulationErrorf("priority must be between 1 and 5, got %d", r.Priority)
	}
	return nil
}

// AffectedOrder records the displacement of one existing job.
type AffectedOrder struct {
	OrderItemID  uuid.UUID `json:"order_item_id"`
	OriginalEnd  time.Time `json:"original_end"`
	NewEnd       time.Time `json:"new_end"`
	DelayMinutes float64   `json:"delay_minutes"`
}

// Scenario is one candidate placement of the rush order.
type Scenario struct {
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	ProductionLineID   uuid.UUID       `json:"production_line_id"`
	ProductionLineName string          `json:"production_line_name"`
	CompletionTime     time.Time       `json:"completion_time"`
	ChangeoverMinutes  float64         `json:"changeover_minutes"`
	ProductionHours    float64         `json:"production_hours"`
	AffectedOrders     []AffectedOrder `json:"affected_orders"`
	OvertimeHours      float64         `json:"overtime_hours"`
	AdditionalCost     float64         `json:"additional_cost"`
	MeetsTarget        bool            `json:"meets_target"`
	Recommendation     bool            `json:"recommendation"`
	Warnings           []string        `json:"warnings"`
}

// RushOrderSummary echoes the interpreted rush order inputs.
type RushOrderSummary struct {
	ProductID                uuid.UUID `json:"product_id"`
	ProductSKU               string    `json:"product_sku"`
	ProductName              string    `json:"product_name"`
	Quantity                 int       `json:"quantity"`
	TargetDate               time.Time `json:"target_date"`
	EstimatedProductionHours float64   `json:"estimated_production_hours"`
}

// Result is the outcome of one simulation run.
type Result struct {
	Scenarios           []Scenario       `json:"scenarios"`
	RushOrder           RushOrderSummary `json:"rush_order"`
	RecommendedScenario string           `json:"recommended_scenario,omitempty"`
	TotalScenarios      int              `json:"total_scenarios"`
}

// Config groups the simulator settings loaded from configuration.
type Config struct {
	// OvertimeCostPerHour prices scenario overtime, in currency per hour.
	OvertimeCostPerHour float64 `json:"overtime_cost_per_hour"`
}

// SetDefaults fills the standard overtime rate.
func (c *Config) SetDefaults() {
	if c.OvertimeCostPerHour == 0 {
		c.OvertimeCostPerHour = 450.0
	}
}

// maxScenarios caps how many candidate placements a run returns.
const maxScenarios = 3

// Simulator is the rush-order what-if engine. Now is overridable for
// deterministic tests.
type Simulator struct {
	reader       SnapshotReader
	cal          calendar.Calendar
	overtimeCost float64
	log          logger.Logger
	sink         metrics.MetricsSink

	// Now anchors "has this job already started" checks.
	Now func() time.Time
}

// New builds a Simulator. A nil logger or sink falls back to no-ops.
func New(reader SnapshotReader, cal calendar.Calendar, cfg Config, log logger.Logger, sink metrics.MetricsSink) *Simulator {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NopLogger{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Simulator{
		reader:       reader,
		cal:          cal,
		overtimeCost: cfg.OvertimeCostPerHour,
		log:          log,
		sink:         sink,
		Now:          time.Now,
	}
}

// SimulateRushOrder generates candidate placements for the rush order and
// recommends one. It returns a SimulationError when the product is
// unknown, no line is eligible, or no placement is feasible at all.
func (s *Simulator) SimulateRushOrder(ctx context.Context, rush RushOrder) (*Result, error) {
	started := time.Now()
	rush.SetDefaults()
	if err := rush.Validate(); err != nil {
		return nil, err
	}

	product, found, err := s.reader.ProductByID(ctx, rush.ProductID)
	if err != nil {
		return nil, simulationErrorf("fetch product: %v", err)
	}
	if !found {
		return nil, simulationErrorf("product %s not found", rush.ProductID)
	}

	lines, err := s.reader.ActiveLines(ctx)
	if err != nil {
		return nil, simulationErrorf("fetch lines: %v", err)
	}
	if len(lines) == 0 {
		return nil, simulationErrorf("no active production lines available")
	}

	existing, err := s.reader.OpenJobs(ctx)
	if err != nil {
		return nil, simulationErrorf("fetch jobs: %v", err)
	}

	productionHours := plan.EstimateHours(rush.Quantity, product.CycleTime(), product.SetupTime, product.YieldRate)
	now := s.Now().UTC()

	var scenarios []Scenario
	for _, line := range lines {
		if !line.Allows(product.SKU) {
			continue
		}
		scenarios = append(scenarios, s.simulateAppend(rush, product, line, existing, productionHours, now))
		scenarios = append(scenarios, s.simulateInsert(rush, product, line, existing, productionHours, now))
	}

	if len(scenarios) == 0 {
		return nil, simulationErrorf("no feasible scenarios found: all production lines are either at capacity or incompatible with the requested product")
	}

	scenarios = s.selectBestScenarios(scenarios, rush.TargetDate)
	recommended := pickRecommendation(scenarios)

	meets := false
	for _, sc := range scenarios {
		if sc.Recommendation {
			meets = sc.MeetsTarget
		}
	}
	if err := s.sink.RecordSimulation(metrics.SimulationEvent{
		ProductSKU:  product.SKU,
		Scenarios:   len(scenarios),
		Recommended: recommended,
		MeetsTarget: meets,
		Duration:    time.Since(started),
		Time:        now,
	}); err != nil {
		s.log.Warnf("record simulation: %v", err)
	}
	s.log.Infof("simulated rush order for %s: %d scenario(s), recommended %q", product.SKU, len(scenarios), recommended)

	return &Result{
		Scenarios: scenarios,
		RushOrder: RushOrderSummary{
			ProductID:                rush.ProductID,
			ProductSKU:               product.SKU,
			ProductName:              product.Name,
			Quantity:                 rush.Quantity,
			TargetDate:               rush.TargetDate,
			EstimatedProductionHours: productionHours,
		},
		RecommendedScenario: recommended,
		TotalScenarios:      len(scenarios),
	}, nil
}

// simulateAppend places the rush order after the line's last open job, so
// no existing order is affected.
func (s *Simulator) simulateAppend(rush RushOrder, product model.Product, line model.ProductionLine, existing []model.Job, productionHours float64, now time.Time) Scenario {
	lineJobs := jobsOnLine(existing, line.ID)
	sort.SliceStable(lineJobs, func(i, j int) bool {
		return lineJobs[i].PlannedEnd.Before(lineJobs[j].PlannedEnd)
	})

	startAfter := now
	lastSKU := ""
	if len(lineJobs) > 0 {
		last := lineJobs[len(lineJobs)-1]
		startAfter = last.PlannedEnd
		lastSKU = last.ProductSKU
	}

	startTime := s.cal.AlignToWorkStart(startAfter)
	changeover := line.ChangeoverMinutes(lastSKU, product.SKU)
	jobStart := startTime.Add(minutesDuration(changeover))
	jobEnd := s.cal.AdvanceWorkHours(jobStart, productionHours)
	overtime := s.cal.Overtime(jobStart, jobEnd)

	sc := Scenario{
		Name:               fmt.Sprintf("Append to %s", line.Name),
		Description:        fmt.Sprintf("Add rush order after all existing jobs on %s. No existing orders are affected.", line.Name),
		ProductionLineID:   line.ID,
		ProductionLineName: line.Name,
		CompletionTime:     jobEnd,
		ChangeoverMinutes:  changeover,
		ProductionHours:    productionHours,
		AffectedOrders:     []AffectedOrder{},
		OvertimeHours:      overtime,
		AdditionalCost:     overtime * s.overtimeCost,
		MeetsTarget:        !jobEnd.After(rush.TargetDate),
		Warnings:           []string{},
	}
	if overtime > float64(s.cal.MaxOvertimeHours()) {
		sc.Warnings = append(sc.Warnings, fmt.Sprintf("Requires %.1fh overtime (max %dh).", overtime, s.cal.MaxOvertimeHours()))
	}
	return sc
}

// simulateInsert places the rush order before the line's first job that
// has not started yet, then cascades: every later job is pushed back
// behind the rush job with the appropriate changeover, re-aligned to work
// hours, and its delay recorded when positive.
func (s *Simulator) simulateInsert(rush RushOrder, product model.Product, line model.ProductionLine, existing []model.Job, productionHours float64, now time.Time) Scenario {
	lineJobs := jobsOnLine(existing, line.ID)
	sort.SliceStable(lineJobs, func(i, j int) bool {
		return lineJobs[i].PlannedStart.Before(lineJobs[j].PlannedStart)
	})

	insertIdx := len(lineJobs)
	for i, job := range lineJobs {
		if job.PlannedStart.After(now) {
			insertIdx = i
			break
		}
	}

	insertTime := s.cal.AlignToWorkStart(now)
	prevSKU := ""
	if insertIdx > 0 {
		prev := lineJobs[insertIdx-1]
		insertTime = s.cal.AlignToWorkStart(prev.PlannedEnd)
		prevSKU = prev.ProductSKU
	}

	changeoverIn := line.ChangeoverMinutes(prevSKU, product.SKU)
	rushStart := insertTime.Add(minutesDuration(changeoverIn))
	rushEnd := s.cal.AdvanceWorkHours(rushStart, productionHours)

	affected := []AffectedOrder{}
	cascadeTime := rushEnd
	for _, job := range lineJobs[insertIdx:] {
		changeoverOut := line.ChangeoverMinutes(product.SKU, job.ProductSKU)
		newStart := s.cal.AlignToWorkStart(cascadeTime.Add(minutesDuration(changeoverOut)))
		newEnd := s.cal.AdvanceWorkHours(newStart, job.Duration().Hours())

		if delay := newEnd.Sub(job.PlannedEnd).Minutes(); delay > 0 {
			affected = append(affected, AffectedOrder{
				OrderItemID:  job.OrderItemID,
				OriginalEnd:  job.PlannedEnd,
				NewEnd:       newEnd,
				DelayMinutes: delay,
			})
		}
		cascadeTime = newEnd
	}

	overtime := s.cal.Overtime(rushStart, rushEnd)
	for _, ao := range affected {
		overtime += s.cal.Overtime(ao.NewEnd.Add(-time.Hour), ao.NewEnd)
	}

	sc := Scenario{
		Name:               fmt.Sprintf("Insert into %s", line.Name),
		Description:        fmt.Sprintf("Insert rush order at earliest slot on %s, pushing back %d existing job(s).", line.Name, len(affected)),
		ProductionLineID:   line.ID,
		ProductionLineName: line.Name,
		CompletionTime:     rushEnd,
		ChangeoverMinutes:  changeoverIn,
		ProductionHours:    productionHours,
		AffectedOrders:     affected,
		OvertimeHours:      overtime,
		AdditionalCost:     overtime * s.overtimeCost,
		MeetsTarget:        !rushEnd.After(rush.TargetDate),
		Warnings:           []string{},
	}

	if len(affected) > 0 {
		maxDelay := 0.0
		for _, ao := range affected {
			if ao.DelayMinutes > maxDelay {
				maxDelay = ao.DelayMinutes
			}
		}
		sc.Warnings = append(sc.Warnings, fmt.Sprintf("Maximum delay to existing orders: %.0f minutes.", maxDelay))
	}
	if overtime > float64(s.cal.MaxOvertimeHours()) {
		sc.Warnings = append(sc.Warnings, fmt.Sprintf("Requires %.1fh overtime (max %dh).", overtime, s.cal.MaxOvertimeHours()))
	}
	return sc
}

// selectBestScenarios scores and prunes candidates down to at most
// maxScenarios, deduplicated by name. Lower score is better.
func (s *Simulator) selectBestScenarios(scenarios []Scenario, targetDate time.Time) []Scenario {
	if len(scenarios) <= maxScenarios {
		return scenarios
	}

	scored := make([]Scenario, len(scenarios))
	copy(scored, scenarios)
	sort.SliceStable(scored, func(i, j int) bool {
		return s.scenarioScore(scored[i], targetDate) < s.scenarioScore(scored[j], targetDate)
	})

	selected := make([]Scenario, 0, maxScenarios)
	seen := make(map[string]struct{})
	for _, sc := range scored {
		if len(selected) >= maxScenarios {
			break
		}
		if _, dup := seen[sc.Name]; dup {
			continue
		}
		selected = append(selected, sc)
		seen[sc.Name] = struct{}{}
	}
	return selected
}

func (s *Simulator) scenarioScore(sc Scenario, targetDate time.Time) float64 {
	score := 0.0
	if !sc.MeetsTarget {
		score += sc.CompletionTime.Sub(targetDate).Hours() * 10.0
	}
	score += float64(len(sc.AffectedOrders)) * 5.0
	for _, ao := range sc.AffectedOrders {
		score += ao.DelayMinutes / 60.0
	}
	score += sc.AdditionalCost / 1000.0
	return score
}

// pickRecommendation flags exactly one scenario: first one that meets the
// target without touching existing orders, then the target-meeting one
// with fewest affected orders and lowest cost, then the earliest
// completion. Returns the flagged scenario's name, or empty when the list
// is empty.
func pickRecommendation(scenarios []Scenario) string {
	if len(scenarios) == 0 {
		return ""
	}

	for i := range scenarios {
		if scenarios[i].MeetsTarget && len(scenarios[i].AffectedOrders) == 0 {
			scenarios[i].Recommendation = true
			return scenarios[i].Name
		}
	}

	best := -1
	for i := range scenarios {
		if !scenarios[i].MeetsTarget {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		bi, bc := len(scenarios[best].AffectedOrders), scenarios[best].AdditionalCost
		ci, cc := len(scenarios[i].AffectedOrders), scenarios[i].AdditionalCost
		if ci < bi || (ci == bi && cc < bc) {
			best = i
		}
	}
	if best >= 0 {
		scenarios[best].Recommendation = true
		return scenarios[best].Name
	}

	best = 0
	for i := range scenarios {
		if scenarios[i].CompletionTime.Before(scenarios[best].CompletionTime) {
			best = i
		}
	}
	scenarios[best].Recommendation = true
	return scenarios[best].Name
}

func jobsOnLine(jobs []model.Job, lineID uuid.UUID) []model.Job {
	var out []model.Job
	for _, j := range jobs {
		if j.ProductionLineID == lineID {
			out = append(out, j)
		}
	}
	return out
}

func minutesDuration(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}
