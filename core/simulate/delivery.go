package simulate

import (
	"context"
	"time"

	"github.com/google/uuid"

	"shopfloor-planner/core/plan"
)

// Optimistic and pessimistic spread applied around the base estimate.
const (
	optimisticFactor  = 0.9
	pessimisticFactor = 1.3
)

// DeliveryEstimate is the answer to "when could we ship N units of P".
type DeliveryEstimate struct {
	ProductID           uuid.UUID `json:"product_id"`
	Quantity            int       `json:"quantity"`
	EstimatedCompletion time.Time `json:"estimated_completion"`
	// Confidence is a 0-100 score reflecting cycle-time data quality.
	Confidence float64   `json:"confidence"`
	Earliest   time.Time `json:"earliest"`
	Latest     time.Time `json:"latest"`
	Notes      []string  `json:"notes"`
}

// EstimateDelivery projects completion dates for a hypothetical order of
// the given product and quantity against the current schedule: the
// likely date starts when the least-loaded line frees up, the earliest
// assumes an immediate start at reduced effort, the latest pads the
// effort for changeover and queueing.
func (s *Simulator) EstimateDelivery(ctx context.Context, productID uuid.UUID, quantity int) (*DeliveryEstimate, error) {
	if quantity < 1 {
		return nil, simulationErrorf("quantity must be at least 1, got %d", quantity)
	}

	product, found, err := s.reader.ProductByID(ctx, productID)
	if err != nil {
		return nil, simulationErrorf("fetch product: %v", err)
	}
	if !found {
		return nil, simulationErrorf("product %s not found", productID)
	}

	lines, err := s.reader.ActiveLines(ctx)
	if err != nil {
		return nil, simulationErrorf("fetch lines: %v", err)
	}
	if len(lines) == 0 {
		return nil, simulationErrorf("no active production lines available")
	}

	jobs, err := s.reader.OpenJobs(ctx)
	if err != nil {
		return nil, simulationErrorf("fetch jobs: %v", err)
	}

	productionHours := plan.EstimateHours(quantity, product.CycleTime(), product.SetupTime, product.YieldRate)
	now := s.Now().UTC()

	// Earliest moment any line frees up; a line with no open jobs is free now.
	earliestStart := now
	for i, line := range lines {
		available := now
		for _, j := range jobsOnLine(jobs, line.ID) {
			if j.PlannedEnd.After(available) {
				available = j.PlannedEnd
			}
		}
		if i == 0 || available.Before(earliestStart) {
			earliestStart = available
		}
	}

	alignedStart := s.cal.AlignToWorkStart(earliestStart)
	estimated := s.cal.AdvanceWorkHours(alignedStart, productionHours)

	confidence := 75.0
	notes := []string{}
	if product.HasLearnedCycleTime() {
		confidence = 90.0
		notes = append(notes, "Using learned cycle time from historical data")
	} else {
		notes = append(notes, "Using standard cycle time (no historical data yet)")
	}

	earliest := s.cal.AdvanceWorkHours(s.cal.AlignToWorkStart(now), productionHours*optimisticFactor)
	latest := s.cal.AdvanceWorkHours(alignedStart, productionHours*pessimisticFactor)

	return &DeliveryEstimate{
		ProductID:           productID,
		Quantity:            quantity,
		EstimatedCompletion: estimated,
		Confidence:          confidence,
		Earliest:            earliest,
		Latest:              latest,
		Notes:               notes,
	}, nil
}
