package plan

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"shopfloor-planner/core/calendar"
	"shopfloor-planner/core/model"
)

type fakeReader struct {
	orders []model.Order
	lines  []model.ProductionLine
	err    error
}

func (f *fakeReader) PendingOrders(ctx context.Context, orderIDs []uuid.UUID) ([]model.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.orders, nil
}

func (f *fakeReader) ActiveLines(ctx context.Context) ([]model.ProductionLine, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.lines, nil
}

type fakeStore struct {
	saved []model.Job
	err   error
}

func (f *fakeStore) SavePlan(ctx context.Context, jobs []model.Job) ([]model.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Job, len(jobs))
	copy(out, jobs)
	for i := range out {
		out[i].ID = uuid.New()
	}
	f.saved = out
	return out, nil
}

func testCalendar() calendar.Calendar {
	cfg := calendar.Config{}
	cfg.SetDefaults()
	return calendar.New(cfg)
}

// 2026-01-05 is a Monday.
func monday(hour int) time.Time {
	return time.Date(2026, time.January, 5, hour, 0, 0, 0, time.UTC)
}

func newProduct(sku string) model.Product {
	return model.Product{
		ID:                uuid.New(),
		SKU:               sku,
		Name:              sku,
		StandardCycleTime: 2.0,
		SetupTime:         30.0,
		YieldRate:         0.95,
	}
}

func newOrder(priority int, due time.Time, products ...model.Product) model.Order {
	order := model.Order{
		ID:           uuid.New(),
		OrderNo:      "ORD-" + uuid.NewString()[:8],
		CustomerName: "Acme",
		DueDate:      due,
		Priority:     priority,
		Status:       model.OrderStatusPending,
	}
	for _, p := range products {
		order.Items = append(order.Items, model.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: p.ID,
			Quantity:  100,
			Product:   p,
		})
	}
	return order
}

func newLine(name string) model.ProductionLine {
	return model.ProductionLine{
		ID:     uuid.New(),
		Name:   name,
		Status: model.LineStatusActive,
	}
}

func newScheduler(reader *fakeReader, store *fakeStore) *Scheduler {
	s := New(reader, store, testCalendar(), Config{}, nil, nil)
	s.Now = func() time.Time { return monday(9) }
	return s
}

func TestGenerateScheduleSingleTask(t *testing.T) {
	product := newProduct("WIDGET-A")
	reader := &fakeReader{
		orders: []model.Order{newOrder(1, monday(9).AddDate(0, 0, 10), product)},
		lines:  []model.ProductionLine{newLine("Line 1")},
	}
	store := &fakeStore{}
	s := newScheduler(reader, store)

	result, err := s.GenerateSchedule(context.Background(), Request{})
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if result.TotalJobs != 1 || len(result.Jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", result.TotalJobs)
	}

	job := result.Jobs[0]
	if job.ChangeoverMinutes != 0 {
		t.Errorf("first job on an empty line should have no changeover, got %v", job.ChangeoverMinutes)
	}
	if !job.PlannedStart.Equal(monday(9)) {
		t.Errorf("PlannedStart = %v, want %v", job.PlannedStart, monday(9))
	}
	if job.Status != model.JobStatusPlanned {
		t.Errorf("Status = %q, want %q", job.Status, model.JobStatusPlanned)
	}

	// 100 units at 95% yield and 2 min cycle, plus 30 min setup.
	wantHours := (100.0/0.95)*2.0/60.0 + 0.5
	if got := job.Duration().Hours(); math.Abs(got-wantHours) > 1e-6 {
		t.Errorf("job duration = %vh, want %vh", got, wantHours)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
	if result.Metadata.ConfidenceScore <= 0 || result.Metadata.ConfidenceScore > 100 {
		t.Errorf("confidence out of range: %v", result.Metadata.ConfidenceScore)
	}
	if len(store.saved) != 1 {
		t.Errorf("expected 1 persisted job, got %d", len(store.saved))
	}
}

func TestGenerateScheduleNoLines(t *testing.T) {
	reader := &fakeReader{orders: []model.Order{newOrder(1, monday(9), newProduct("WIDGET-A"))}}
	s := newScheduler(reader, &fakeStore{})

	result, err := s.GenerateSchedule(context.Background(), Request{})
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if len(result.Jobs) != 0 {
		t.Fatalf("expected no jobs, got %d", len(result.Jobs))
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "No active production lines") {
		t.Fatalf("missing no-lines warning, got %v", result.Warnings)
	}
}

func TestGenerateScheduleNoOrders(t *testing.T) {
	reader := &fakeReader{lines: []model.ProductionLine{newLine("Line 1")}}
	s := newScheduler(reader, &fakeStore{})

	result, err := s.GenerateSchedule(context.Background(), Request{})
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "No pending orders") {
		t.Fatalf("missing no-orders warning, got %v", result.Warnings)
	}
}

func TestGenerateScheduleInvalidRequest(t *testing.T) {
	s := newScheduler(&fakeReader{}, &fakeStore{})

	_, err := s.GenerateSchedule(context.Background(), Request{HorizonDays: 365})
	var schedErr *SchedulingError
	if !errors.As(err, &schedErr) {
		t.Fatalf("expected SchedulingError, got %v", err)
	}

	_, err = s.GenerateSchedule(context.Background(), Request{Strategy: "chaotic"})
	if !errors.As(err, &schedErr) {
		t.Fatalf("expected SchedulingError for unknown strategy, got %v", err)
	}
}

func TestGenerateScheduleChangeoverBetweenProducts(t *testing.T) {
	a := newProduct("WIDGET-A")
	b := newProduct("WIDGET-B")
	line := newLine("Line 1")
	line.Changeover = model.ChangeoverMatrix{"default": 45}

	reader := &fakeReader{
		orders: []model.Order{newOrder(1, monday(9).AddDate(0, 0, 10), a, b)},
		lines:  []model.ProductionLine{line},
	}
	s := newScheduler(reader, &fakeStore{})

	result, err := s.GenerateSchedule(context.Background(), Request{})
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if len(result.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(result.Jobs))
	}

	first, second := result.Jobs[0], result.Jobs[1]
	if second.ChangeoverMinutes != 45 {
		t.Errorf("second job changeover = %v, want 45", second.ChangeoverMinutes)
	}
	gap := second.PlannedStart.Sub(first.PlannedEnd)
	if gap != 45*time.Minute {
		t.Errorf("gap between jobs = %v, want 45m", gap)
	}
	if result.TotalChangeoverMinutes != 45 {
		t.Errorf("TotalChangeoverMinutes = %v, want 45", result.TotalChangeoverMinutes)
	}
}

func TestGenerateScheduleNoOverlapPerLine(t *testing.T) {
	products := []model.Product{
		newProduct("WIDGET-A"), newProduct("WIDGET-B"),
		newProduct("WIDGET-C"), newProduct("WIDGET-D"),
	}
	reader := &fakeReader{
		orders: []model.Order{newOrder(2, monday(9).AddDate(0, 0, 14), products...)},
		lines:  []model.ProductionLine{newLine("Line 1"), newLine("Line 2")},
	}
	s := newScheduler(reader, &fakeStore{})

	result, err := s.GenerateSchedule(context.Background(), Request{HorizonDays: 14})
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if len(result.Jobs) != 4 {
		t.Fatalf("expected 4 jobs, got %d", len(result.Jobs))
	}

	lastEnd := make(map[uuid.UUID]time.Time)
	for _, job := range result.Jobs {
		if prev, ok := lastEnd[job.ProductionLineID]; ok && job.PlannedStart.Before(prev) {
			t.Fatalf("job on line %s starts %v before previous job ends %v",
				job.ProductionLineID, job.PlannedStart, prev)
		}
		if end, ok := lastEnd[job.ProductionLineID]; !ok || job.PlannedEnd.After(end) {
			lastEnd[job.ProductionLineID] = job.PlannedEnd
		}
	}
}

func TestGenerateScheduleRestrictedLine(t *testing.T) {
	product := newProduct("WIDGET-B")
	line := newLine("Line 1")
	line.Allowed = model.ExplicitProducts([]string{"WIDGET-A"})

	reader := &fakeReader{
		orders: []model.Order{newOrder(1, monday(9).AddDate(0, 0, 10), product)},
		lines:  []model.ProductionLine{line},
	}
	s := newScheduler(reader, &fakeStore{})

	result, err := s.GenerateSchedule(context.Background(), Request{})
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if len(result.Jobs) != 0 {
		t.Fatalf("expected no jobs on incompatible line, got %d", len(result.Jobs))
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "could not be scheduled") {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing capacity warning, got %v", result.Warnings)
	}
}

func TestGenerateScheduleLateWarning(t *testing.T) {
	product := newProduct("WIDGET-A")
	reader := &fakeReader{
		orders: []model.Order{newOrder(1, monday(9).AddDate(0, 0, -1), product)},
		lines:  []model.ProductionLine{newLine("Line 1")},
	}
	s := newScheduler(reader, &fakeStore{})

	result, err := s.GenerateSchedule(context.Background(), Request{})
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if len(result.Jobs) != 1 {
		t.Fatalf("an overdue item must still be scheduled, got %d jobs", len(result.Jobs))
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "finish after due date") {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing due-date warning, got %v", result.Warnings)
	}
}

func TestGenerateScheduleStoreFailure(t *testing.T) {
	reader := &fakeReader{
		orders: []model.Order{newOrder(1, monday(9).AddDate(0, 0, 10), newProduct("WIDGET-A"))},
		lines:  []model.ProductionLine{newLine("Line 1")},
	}
	s := newScheduler(reader, &fakeStore{err: errors.New("connection lost")})

	_, err := s.GenerateSchedule(context.Background(), Request{})
	var schedErr *SchedulingError
	if !errors.As(err, &schedErr) {
		t.Fatalf("expected SchedulingError, got %v", err)
	}
}

// tableStore keeps a job table in memory and applies the SavePlan
// contract: planned jobs for re-planned order items become superseded
// before the new jobs land.
type tableStore struct {
	jobs []model.Job
}

func (f *tableStore) SavePlan(ctx context.Context, jobs []model.Job) ([]model.Job, error) {
	replanned := make(map[uuid.UUID]bool, len(jobs))
	for _, j := range jobs {
		replanned[j.OrderItemID] = true
	}
	for i := range f.jobs {
		if replanned[f.jobs[i].OrderItemID] && f.jobs[i].Status == model.JobStatusPlanned {
			f.jobs[i].Status = model.JobStatusSuperseded
		}
	}
	persisted := make([]model.Job, len(jobs))
	copy(persisted, jobs)
	for i := range persisted {
		persisted[i].ID = uuid.New()
	}
	f.jobs = append(f.jobs, persisted...)
	return persisted, nil
}

func TestGenerateScheduleSupersedesPriorPlan(t *testing.T) {
	product := newProduct("WIDGET-A")
	order := newOrder(1, monday(9).AddDate(0, 0, 10), product)
	reader := &fakeReader{
		orders: []model.Order{order},
		lines:  []model.ProductionLine{newLine("Line 1")},
	}
	store := &tableStore{}
	s := New(reader, store, testCalendar(), Config{}, nil, nil)
	s.Now = func() time.Time { return monday(9) }

	for i := 0; i < 2; i++ {
		if _, err := s.GenerateSchedule(context.Background(), Request{}); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
	}

	itemID := order.Items[0].ID
	planned, superseded := 0, 0
	for _, j := range store.jobs {
		if j.OrderItemID != itemID {
			t.Fatalf("unexpected order item %v", j.OrderItemID)
		}
		switch j.Status {
		case model.JobStatusPlanned:
			planned++
		case model.JobStatusSuperseded:
			superseded++
		}
	}
	if planned != 1 {
		t.Errorf("an order item must carry exactly one planned job, got %d", planned)
	}
	if superseded != 1 {
		t.Errorf("the prior plan should be superseded, got %d superseded jobs", superseded)
	}
}

func TestPhase1SortStable(t *testing.T) {
	due := monday(9).AddDate(0, 0, 5)
	tasks := []Task{
		{OrderItemID: uuid.New(), Priority: 2, DueDate: due},
		{OrderItemID: uuid.New(), Priority: 1, DueDate: due.AddDate(0, 0, 1)},
		{OrderItemID: uuid.New(), Priority: 1, DueDate: due},
		{OrderItemID: uuid.New(), Priority: 2, DueDate: due},
	}

	sorted := phase1Sort(tasks)
	if sorted[0].OrderItemID != tasks[2].OrderItemID {
		t.Errorf("earliest due priority-1 task should come first")
	}
	if sorted[1].OrderItemID != tasks[1].OrderItemID {
		t.Errorf("later due priority-1 task should come second")
	}
	// Equal priority and due date keep arrival order.
	if sorted[2].OrderItemID != tasks[0].OrderItemID || sorted[3].OrderItemID != tasks[3].OrderItemID {
		t.Errorf("ties should preserve input order")
	}
}

func TestScoreAssignmentStrategies(t *testing.T) {
	s := newScheduler(&fakeReader{}, &fakeStore{})
	task := Task{DueDate: monday(9).AddDate(0, 0, 10)}
	slot := &lineSlot{}
	jobEnd := monday(13)
	changeover := 45.0

	balanced := s.scoreAssignment(task, slot, changeover, jobEnd, StrategyBalanced)
	rush := s.scoreAssignment(task, slot, changeover, jobEnd, StrategyRush)
	efficiency := s.scoreAssignment(task, slot, changeover, jobEnd, StrategyEfficiency)

	if rush >= balanced {
		t.Errorf("rush should discount changeover: rush %v, balanced %v", rush, balanced)
	}
	if efficiency <= balanced {
		t.Errorf("efficiency should penalise changeover: efficiency %v, balanced %v", efficiency, balanced)
	}
}

func TestScoreAssignmentLatenessDominates(t *testing.T) {
	s := newScheduler(&fakeReader{}, &fakeStore{})
	slot := &lineSlot{}

	onTime := Task{DueDate: monday(17)}
	late := Task{DueDate: monday(12)}
	jobEnd := monday(13)

	if s.scoreAssignment(late, slot, 0, jobEnd, StrategyBalanced) <= s.scoreAssignment(onTime, slot, 0, jobEnd, StrategyBalanced) {
		t.Error("a projected-late placement must score worse than an on-time one")
	}
}

func TestEstimateHours(t *testing.T) {
	got := EstimateHours(100, 2.0, 30.0, 0.95)
	want := (100.0/0.95)*2.0/60.0 + 0.5
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("EstimateHours = %v, want %v", got, want)
	}

	// A zero yield rate is clamped instead of dividing by zero.
	clamped := EstimateHours(10, 1.0, 0, 0)
	if math.IsInf(clamped, 0) || math.IsNaN(clamped) {
		t.Fatalf("EstimateHours with zero yield = %v", clamped)
	}
	if clamped != EstimateHours(10, 1.0, 0, minYieldRate) {
		t.Fatalf("zero yield should clamp to %v", minYieldRate)
	}
}

func TestRequestDefaults(t *testing.T) {
	var req Request
	req.SetDefaults()
	if req.HorizonDays != defaultHorizonDays {
		t.Errorf("HorizonDays = %d, want %d", req.HorizonDays, defaultHorizonDays)
	}
	if req.Strategy != StrategyBalanced {
		t.Errorf("Strategy = %q, want %q", req.Strategy, StrategyBalanced)
	}
	if err := req.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}
