package booking

import (
	"fmt"
	"strings"
)

// Status represents the lifecycle state of a mentoring session.
type Status string

const (
	// StatusScheduled is the initial state assigned when a booking is admitted.
	StatusScheduled Status = "scheduled"
	// StatusInProgress indicates the session has started.
	StatusInProgress Status = "in_progress"
	// StatusCompleted indicates the session finished and notes were recorded.
	StatusCompleted Status = "completed"
	// StatusCancelled indicates the session was cancelled with a reason.
	StatusCancelled Status = "cancelled"
	// StatusNoShow indicates the mentee did not join a scheduled session.
	StatusNoShow Status = "no_show"
)

// ParseStatus converts a wire value into a Status.
func ParseStatus(value string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusScheduled:
		return StatusScheduled, nil
	case StatusInProgress:
		return StatusInProgress, nil
	case StatusCompleted:
		return StatusCompleted, nil
	case StatusCancelled:
		return StatusCancelled, nil
	case StatusNoShow:
		return StatusNoShow, nil
	default:
		return "", fmt.Errorf("booking: unknown status %q", value)
	}
}

// IsTerminal reports whether no further transition is permitted from the status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	default:
		return false
	}
}

// BlocksCalendar reports whether a session in this status holds its interval
// against new bookings. Cancelling or completing a session immediately frees
// its interval.
func (s Status) BlocksCalendar() bool {
	return s == StatusScheduled || s == StatusInProgress
}

// TransitionPayload carries the caller supplied data a transition may require.
type TransitionPayload struct {
	// Notes summarises the session. Required when completing.
	Notes string
	// NextSessionID optionally links a completed session to a follow-up.
	NextSessionID string
	// Reason explains a cancellation. Required when cancelling.
	Reason string
}

// InvalidTransitionError reports a transition rejected by the state machine.
type InvalidTransitionError struct {
	From   Status
	To     Status
	Detail string
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail != "" {
		return fmt.Sprintf("booking: transition %s -> %s rejected: %s", e.From, e.To, e.Detail)
	}
	return fmt.Sprintf("booking: transition %s -> %s rejected", e.From, e.To)
}

var allowedTransitions = map[Status]map[Status]struct{}{
	StatusScheduled: {
		StatusInProgress: {},
		StatusCompleted:  {},
		StatusCancelled:  {},
		StatusNoShow:     {},
	},
	StatusInProgress: {
		StatusCompleted: {},
		StatusCancelled: {},
	},
}

// Transition validates a state change and returns the resulting status.
// Terminal states admit no transitions. Completion requires notes and
// cancellation requires a reason; a missing payload field rejects the
// transition without changing state.
func Transition(from, to Status, payload TransitionPayload) (Status, error) {
	if from.IsTerminal() {
		return from, &InvalidTransitionError{From: from, To: to, Detail: "state is terminal"}
	}

	targets, ok := allowedTransitions[from]
	if !ok {
		return from, &InvalidTransitionError{From: from, To: to, Detail: "unknown source state"}
	}
	if _, ok := targets[to]; !ok {
		return from, &InvalidTransitionError{From: from, To: to}
	}

	switch to {
	case StatusCompleted:
		if strings.TrimSpace(payload.Notes) == "" {
			return from, &InvalidTransitionError{From: from, To: to, Detail: "session notes are required"}
		}
	case StatusCancelled:
		if strings.TrimSpace(payload.Reason) == "" {
			return from, &InvalidTransitionError{From: from, To: to, Detail: "a cancellation reason is required"}
		}
	}

	return to, nil
}
