package persistence

import "time"

// AvailabilityRule represents a bookable window template owned by one mentor.
// A rule is either recurring (DayOfWeek with clock times, optionally bounded
// by RecurringEndDate) or bound to a single SpecificDate. Rules are soft
// deleted so past sessions can still reference the period they were booked in.
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
	DeletedAt        *time.Time
}

// Recurring reports whether the rule generates weekly occurrences.
func (r AvailabilityRule) Recurring() bool {
	return r.DayOfWeek != nil && r.SpecificDate == nil
}

// BlockedTime represents an absolute exclusion carved out of a mentor's
// availability.
type BlockedTime struct {
	ID        string
	MentorID  string
	Start     time.Time
	End       time.Time
	IsAllDay  bool
	Reason    *string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// MentoringSession represents a booked session on a mentor's calendar.
// Sessions are never physically deleted; cancellation is a status transition.
type MentoringSession struct {
	ID                  string
	MentorID            string
	MenteeID            *string
	Start               time.Time
	End                 time.Time
	Status              string
	Notes               *string
	CancellationReason  *string
	NextSessionID       *string
	MaxParticipants     int
	CurrentParticipants int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Participant joins a user to a group session. Unique per (session, user)
// while not soft deleted.
type Participant struct {
	ID        string
	SessionID string
	UserID    string
	CreatedAt time.Time
	DeletedAt *time.Time
}

// DateRange bounds list queries to an absolute window.
type DateRange struct {
	From time.Time
	To   time.Time
}
