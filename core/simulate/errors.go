package simulate

import "fmt"

// SimulationError reports a simulation that cannot run at all: unknown
// product, no eligible lines, or no feasible placement anywhere. The API
// boundary maps it to a client error response.
type SimulationError struct {
	Reason string
}

func (e *SimulationError) Error() string {
	return "simulation: " + e.Reason
}

func simulationErrorf(format string, args ...any) *SimulationError {
	return &SimulationError{Reason: fmt.Sprintf(format, args...)}
}
