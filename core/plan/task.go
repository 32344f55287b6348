package plan

import (
	"math"
	"time"

	"github.com/google/uuid"

	"shopfloor-planner/core/model"
)

// minYieldRate guards the effective-quantity division against zero or
// nonsense yield rates.
const minYieldRate = 0.01

// Task is the in-memory unit of scheduling: one order item with the
// product data needed to estimate its duration. Tasks are rebuilt from
// order and product records at the start of each run and never mutated.
type Task struct {
	OrderItemID         uuid.UUID
	OrderID             uuid.UUID
	ProductID           uuid.UUID
	ProductSKU          string
	Quantity            int
	DueDate             time.Time
	Priority            int
	CycleTime           float64
	SetupTime           float64
	YieldRate           float64
	HasLearnedCycleTime bool
	EstimatedHours      float64
}

// NewTask derives a Task from an order item and its parent order.
func NewTask(order model.Order, item model.OrderItem) Task {
	p := item.Product
	return Task{
		OrderItemID:         item.ID,
		OrderID:             order.ID,
		ProductID:           p.ID,
		ProductSKU:          p.SKU,
		Quantity:            item.Quantity,
		DueDate:             order.DueDate,
		Priority:            order.Priority,
		CycleTime:           p.CycleTime(),
		SetupTime:           p.SetupTime,
		YieldRate:           p.YieldRate,
		HasLearnedCycleTime: p.HasLearnedCycleTime(),
		EstimatedHours:      EstimateHours(item.Quantity, p.CycleTime(), p.SetupTime, p.YieldRate),
	}
}

// EstimateHours converts a quantity into production hours: the quantity
// inflated by the yield rate times the per-unit cycle time, plus setup.
func EstimateHours(quantity int, cycleTime, setupTime, yieldRate float64) float64 {
	effectiveQty := float64(quantity) / math.Max(yieldRate, minYieldRate)
	return effectiveQty*cycleTime/60.0 + setupTime/60.0
}

// buildTasks flattens pending orders into schedulable tasks.
func buildTasks(orders []model.Order) []Task {
	var tasks []Task
	for _, order := range orders {
		for _, item := range order.Items {
			tasks = append(tasks, NewTask(order, item))
		}
	}
	return tasks
}
