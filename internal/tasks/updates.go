package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running
// operation, consumed by the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Completed items so far
	Total   int    // Total items in this batch
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	PhaseResolve Phase = iota
	PhaseRatings
	PhaseScrobbles
	PhaseScan
)

func (p Phase) String() string {
	switch p {
	case PhaseResolve:
		return "resolve_ids"
	case PhaseRatings:
		return "sync_ratings"
	case PhaseScrobbles:
		return "replay_history"
	case PhaseScan:
		return "scan"
	default:
		return ""
	}
}

func (p Phase) label() string {
	switch p {
	case PhaseResolve:
		return "Resolving server ids"
	case PhaseRatings:
		return "Syncing ratings"
	case PhaseScrobbles:
		return "Replaying play history"
	case PhaseScan:
		return "Triggering server scan"
	default:
		return ""
	}
}

func startUpdate(phase Phase, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("%s (%d items)...", phase.label(), total),
	}
}

func completedUpdate(phase Phase, step, total int, out Outcome) ProgressUpdate {
	var marker string
	switch out.Status {
	case StatusSuccess:
		marker = "✓"
	case StatusSkipped:
		marker = "-"
	case StatusFailed:
		marker = "✗"
	}

	message := fmt.Sprintf("[%d/%d] %s %s", step, total, marker, out.Name)
	if out.Reason != "" {
		message = fmt.Sprintf("%s (%s)", message, out.Reason)
	}

	return ProgressUpdate{
		Phase:   phase,
		Step:    step,
		Total:   total,
		Message: message,
		Data:    out,
	}
}
