package medical

import (
	"fmt"
	"time"

	"github.com/alzcare/alzcare/internal/platform/apperr"
)

// transitions lists the forward moves allowed out of each non-terminal status.
var transitions = map[ActionStatus][]ActionStatus{
	StatusPending:    {StatusInProgress, StatusCompleted, StatusCancelled, StatusSkipped},
	StatusInProgress: {StatusCompleted, StatusCancelled, StatusSkipped},
}

func (s ActionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusSkipped
}

// CanTransition reports whether an action may move from one status to
// another. Staying in place is always allowed.
func CanTransition(from, to ActionStatus) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionTo moves the action to status, stamping CompletedDate on
// completion. A same-status call is a no-op and reports changed=false.
func (a *PreventionAction) TransitionTo(status ActionStatus, at time.Time) (changed bool, err error) {
	if a.Status == "" {
		a.Status = StatusPending
	}
	if a.Status == status {
		return false, nil
	}
	if !CanTransition(a.Status, status) {
		return false, apperr.Conflict(fmt.Sprintf("prevention action cannot move from %s to %s", a.Status, status))
	}
	a.Status = status
	if status == StatusCompleted {
		stamp := at
		a.CompletedDate = &stamp
	}
	return true, nil
}

// AdherenceStats summarizes prevention actions by status.
type AdherenceStats struct {
	Total         int     `json:"total_actions"`
	Completed     int     `json:"completed_actions"`
	Pending       int     `json:"pending_actions"`
	InProgress    int     `json:"in_progress_actions"`
	Cancelled     int     `json:"cancelled_actions"`
	Skipped       int     `json:"skipped_actions"`
	AdherenceRate float64 `json:"adherence_rate"`
}

// AdherenceRate is completed/total as a percentage with one decimal, 0 when
// there are no actions.
func AdherenceRate(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round1(float64(completed) * 100 / float64(total))
}

func ComputeAdherence(actions []*PreventionAction) AdherenceStats {
	var st AdherenceStats
	for _, a := range actions {
		st.Total++
		switch a.Status {
		case StatusCompleted:
			st.Completed++
		case StatusInProgress:
			st.InProgress++
		case StatusCancelled:
			st.Cancelled++
		case StatusSkipped:
			st.Skipped++
		default:
			st.Pending++
		}
	}
	st.AdherenceRate = AdherenceRate(st.Completed, st.Total)
	return st
}
