package application

import (
	"time"

	"github.com/example/mentor-scheduler/internal/booking"
)

// AvailabilityRuleInput captures caller provided rule fields.
type AvailabilityRuleInput struct {
	MentorID         string
	DayOfWeek        *time.Weekday
	SpecificDate     *time.Time
	StartClock       string
	EndClock         string
	RecurringEndDate *time.Time
}

// AvailabilityRule represents a persisted availability rule template.
type AvailabilityRule struct {
	ID               string
	MentorID         string
	DayOfWeek        *time.Weekday
	SpecificDate     *time.Time
	StartClock       string
	EndClock         string
	RecurringEndDate *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// BlockedTimeInput captures caller provided blocked time fields.
type BlockedTimeInput struct {
	MentorID string
	Start    time.Time
	End      time.Time
	IsAllDay bool
	Reason   string
}

// BlockedTime represents a persisted calendar exclusion.
type BlockedTime struct {
	ID        string
	MentorID  string
	Start     time.Time
	End       time.Time
	IsAllDay  bool
	Reason    *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session represents a mentoring session exposed to collaborators.
type Session struct {
	ID                  string
	MentorID            string
	MenteeID            *string
	Start               time.Time
	End                 time.Time
	Status              booking.Status
	Notes               *string
	CancellationReason  *string
	NextSessionID       *string
	MaxParticipants     int
	CurrentParticipants int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// BookingRequest wraps the data required to admit a new session.
type BookingRequest struct {
	MentorID        string
	MenteeID        *string
	Start           time.Time
	End             time.Time
	MaxParticipants int
}

// TransitionParams carries the target state and its required payload fields.
type TransitionParams struct {
	Target        booking.Status
	Notes         string
	Reason        string
	NextSessionID string
}

// Slot is one fixed-size entry of the calendar view produced by
// GetAvailableSlots. Unavailable slots carry the reason the time is taken.
type Slot struct {
	Start     time.Time
	End       time.Time
	Available bool
	Reason    string
}

// Reasons attached to unavailable slots.
const (
	SlotReasonBlocked = "Blocked"
	SlotReasonBooked  = "Booked"
)
