package sim

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the engine. Fatal kinds (config, workload load,
// fatal simulation) propagate to the controller; recoverable kinds
// (allocation, assignment) are folded into the step's info record instead.
var (
	// ErrConfig marks invalid or contradictory configuration. Raised from
	// Configure and Reset.
	ErrConfig = errors.New("config error")

	// ErrWorkloadLoad marks an unreadable or malformed workload trace.
	// Raised from Reset.
	ErrWorkloadLoad = errors.New("workload load error")

	// ErrAllocationFailed marks a VM that no host can accommodate.
	ErrAllocationFailed = errors.New("allocation failed")

	// ErrInvalidAssignment marks an assignment action referencing an
	// unknown, not-running, or over-capacity VM, or an empty queue.
	ErrInvalidAssignment = errors.New("invalid assignment")

	// ErrFatalSimulation marks an unexpected failure inside an event
	// handler. The episode terminates and must be reset.
	ErrFatalSimulation = errors.New("fatal simulation error")

	// ErrClosed marks use of a Gateway after Close.
	ErrClosed = errors.New("gateway closed")
)

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

func workloadErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrWorkloadLoad, fmt.Sprintf(format, args...))
}

func invalidAssignmentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidAssignment, fmt.Sprintf(format, args...))
}

func allocationFailedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAllocationFailed, fmt.Sprintf(format, args...))
}
