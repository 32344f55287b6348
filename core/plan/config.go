package plan

import (
	"time"

	"github.com/google/uuid"
)

// Strategy selects how Phase 2 trades changeover time against finish time.
type Strategy string

const (
	// StrategyBalanced applies no extra adjustment.
	StrategyBalanced Strategy = "balanced"
	// StrategyRush tolerates changeovers in exchange for earlier finishes.
	StrategyRush Strategy = "rush"
	// StrategyEfficiency penalises changeovers more heavily.
	StrategyEfficiency Strategy = "efficiency"
)

func (s Strategy) valid() bool {
	switch s {
	case StrategyBalanced, StrategyRush, StrategyEfficiency:
		return true
	}
	return false
}

// Horizon bounds accepted by Validate.
const (
	minHorizonDays     = 1
	maxHorizonDays     = 90
	defaultHorizonDays = 7
)

// Request parametrises one scheduling run.
type Request struct {
	// OrderIDs limits the run to specific orders; empty means all pending.
	OrderIDs    []uuid.UUID `json:"order_ids"`
	HorizonDays int         `json:"horizon_days"`
	Strategy    Strategy    `json:"strategy"`
}

// SetDefaults fills the horizon and strategy when unset.
func (r *Request) SetDefaults() {
	if r.HorizonDays == 0 {
		r.HorizonDays = defaultHorizonDays
	}
	if r.Strategy == "" {
		r.Strategy = StrategyBalanced
	}
}

// Validate rejects malformed requests with a SchedulingError.
func (r Request) Validate() error {
	if r.HorizonDays < minHorizonDays || r.HorizonDays > maxHorizonDays {
		return schedulingErrorf("horizon_days must be between %d and %d, got %d", minHorizonDays, maxHorizonDays, r.HorizonDays)
	}
	if !r.Strategy.valid() {
		return schedulingErrorf("unknown strategy %q", r.Strategy)
	}
	return nil
}

// Weights are the Phase 2 scoring coefficients. The defaults come from
// the tuned heuristic this engine started from; they are deliberately
// configurable rather than baked into the scoring function.
type Weights struct {
	// Changeover scales the changeover penalty in minutes.
	Changeover float64 `json:"changeover"`
	// Late scales the penalty per projected hour of lateness.
	Late float64 `json:"late"`
	// Load scales the penalty per busy hour already on a line.
	Load float64 `json:"load"`
	// RushChangeoverBonus reduces the changeover penalty under the rush
	// strategy.
	RushChangeoverBonus float64 `json:"rush_changeover_bonus"`
	// EfficiencyChangeoverPenalty inflates the changeover penalty under
	// the efficiency strategy.
	EfficiencyChangeoverPenalty float64 `json:"efficiency_changeover_penalty"`
}

// DefaultWeights returns the tuned scoring coefficients.
func DefaultWeights() Weights {
	return Weights{
		Changeover:                  0.1,
		Late:                        100.0,
		Load:                        0.5,
		RushChangeoverBonus:         0.05,
		EfficiencyChangeoverPenalty: 2.0,
	}
}

// Config groups the scheduler settings loaded from configuration.
type Config struct {
	Weights Weights `json:"weights"`
}

// SetDefaults fills zero weights with the tuned defaults.
func (c *Config) SetDefaults() {
	if c.Weights == (Weights{}) {
		c.Weights = DefaultWeights()
	}
}

// scoreEpoch anchors the finish-time component of the score so that all
// candidates share a common origin.
var scoreEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
