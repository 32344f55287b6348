package model

import "github.com/google/uuid"

// Product holds the master data used to estimate production effort.
// Cycle and setup times are expressed in minutes, the yield rate in (0,1].
type Product struct {
	ID                uuid.UUID
	SKU               string
	Name              string
	Description       string
	StandardCycleTime float64
	SetupTime         float64
	YieldRate         float64
	// LearnedCycleTime is derived from actual production data and takes
	// precedence over StandardCycleTime when present.
	LearnedCycleTime *float64
}

// CycleTime returns the learned cycle time when available, otherwise the
// standard one.
func (p Product) CycleTime() float64 {
	if p.LearnedCycleTime != nil {
		return *p.LearnedCycleTime
	}
	return p.StandardCycleTime
}

// HasLearnedCycleTime reports whether actual production data backs the
// cycle time estimate.
func (p Product) HasLearnedCycleTime() bool {
	return p.LearnedCycleTime != nil
}
