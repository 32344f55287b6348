package model

import (
	"time"

	"github.com/google/uuid"
)

// Job statuses. A job starts out planned and is advanced externally as
// production proceeds; a later scheduling run marks re-planned jobs
// superseded instead of deleting them.
const (
	JobStatusPlanned    = "planned"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
	JobStatusSuperseded = "superseded"
)

// Job is a planned production run of one order item on one line.
// For a given line, planned intervals of non-terminal jobs never overlap.
type Job struct {
	ID               uuid.UUID
	OrderItemID      uuid.UUID
	ProductionLineID uuid.UUID
	ProductID        uuid.UUID
	PlannedStart     time.Time
	PlannedEnd       time.Time
	Quantity         int
	// ChangeoverMinutes is the line downtime incurred before this job.
	ChangeoverMinutes float64
	Status            string
	Notes             string
	// ProductSKU is populated when jobs are fetched joined with their
	// product; it is only needed for changeover arithmetic.
	ProductSKU string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Open reports whether the job still occupies its line.
func (j Job) Open() bool {
	return j.Status == JobStatusPlanned || j.Status == JobStatusInProgress
}

// Duration returns the planned production span.
func (j Job) Duration() time.Duration {
	return j.PlannedEnd.Sub(j.PlannedStart)
}
