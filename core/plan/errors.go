package plan

import "fmt"

// SchedulingError reports a run that cannot be serviced at all: a
// malformed request or a failed data fetch. Per-task problems are
// returned as warnings instead. The API boundary maps this error to a
// client error response.
type SchedulingError struct {
	Reason string
}

func (e *SchedulingError) Error() string {
	return "scheduling: " + e.Reason
}

func schedulingErrorf(format string, args ...any) *SchedulingError {
	return &SchedulingError{Reason: fmt.Sprintf(format, args...)}
}
