// Package testfixtures provides deterministic builders for the persistence
// records and application services exercised across the test suites.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/mentor-scheduler/internal/booking"
	"github.com/example/mentor-scheduler/internal/persistence"
)

var (
	ruleCounter    uint64
	blockedCounter uint64
	sessionCounter uint64
)

// referenceTime is a Monday so weekday-based rule fixtures land on it without
// further adjustment.
var referenceTime = time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline date used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceClock returns the reference date at the supplied wall clock time.
func ReferenceClock(hour, minute int) time.Time {
	return referenceTime.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// RuleOption configures a generated availability rule fixture.
type RuleOption func(*persistence.AvailabilityRule)

// NewRuleFixture returns a recurring Monday 09:00-17:00 rule with a unique ID
// and mentor, adjusted by the supplied options.
func NewRuleFixture(opts ...RuleOption) persistence.AvailabilityRule {
	idx := atomic.AddUint64(&ruleCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	weekday := time.Monday
	rule := persistence.AvailabilityRule{
		ID:         fmt.Sprintf("rule-%03d", idx),
		MentorID:   fmt.Sprintf("mentor-%03d", idx),
		DayOfWeek:  &weekday,
		StartClock: "09:00",
		EndClock:   "17:00",
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	for _, opt := range opts {
		opt(&rule)
	}
	return rule
}

// WithRuleID overrides the generated rule ID.
func WithRuleID(id string) RuleOption {
	return func(r *persistence.AvailabilityRule) { r.ID = id }
}

// WithRuleMentor overrides the generated mentor ID.
func WithRuleMentor(mentorID string) RuleOption {
	return func(r *persistence.AvailabilityRule) { r.MentorID = mentorID }
}

// WithRuleClocks overrides the rule's daily window.
func WithRuleClocks(start, end string) RuleOption {
	return func(r *persistence.AvailabilityRule) {
		r.StartClock = start
		r.EndClock = end
	}
}

// WithRuleWeekday makes the rule recur on the supplied weekday.
func WithRuleWeekday(day time.Weekday) RuleOption {
	return func(r *persistence.AvailabilityRule) {
		r.DayOfWeek = &day
		r.SpecificDate = nil
	}
}

// WithRuleSpecificDate converts the rule to a single-date rule.
func WithRuleSpecificDate(date time.Time) RuleOption {
	return func(r *persistence.AvailabilityRule) {
		r.DayOfWeek = nil
		r.RecurringEndDate = nil
		r.SpecificDate = &date
	}
}

// WithRuleEndDate bounds a recurring rule.
func WithRuleEndDate(date time.Time) RuleOption {
	return func(r *persistence.AvailabilityRule) { r.RecurringEndDate = &date }
}

// BlockedTimeOption configures a generated blocked time fixture.
type BlockedTimeOption func(*persistence.BlockedTime)

// NewBlockedTimeFixture returns a one-hour exclusion starting at 12:00 on the
// reference date, adjusted by the supplied options.
func NewBlockedTimeFixture(opts ...BlockedTimeOption) persistence.BlockedTime {
	idx := atomic.AddUint64(&blockedCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	blocked := persistence.BlockedTime{
		ID:        fmt.Sprintf("blocked-%03d", idx),
		MentorID:  fmt.Sprintf("mentor-%03d", idx),
		Start:     ReferenceClock(12, 0),
		End:       ReferenceClock(13, 0),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&blocked)
	}
	return blocked
}

// WithBlockedID overrides the generated blocked time ID.
func WithBlockedID(id string) BlockedTimeOption {
	return func(b *persistence.BlockedTime) { b.ID = id }
}

// WithBlockedMentor overrides the generated mentor ID.
func WithBlockedMentor(mentorID string) BlockedTimeOption {
	return func(b *persistence.BlockedTime) { b.MentorID = mentorID }
}

// WithBlockedWindow overrides the exclusion interval.
func WithBlockedWindow(start, end time.Time) BlockedTimeOption {
	return func(b *persistence.BlockedTime) {
		b.Start = start
		b.End = end
	}
}

// WithBlockedReason attaches a reason to the exclusion.
func WithBlockedReason(reason string) BlockedTimeOption {
	return func(b *persistence.BlockedTime) { b.Reason = &reason }
}

// WithBlockedAllDay expands the exclusion to cover the whole reference date.
func WithBlockedAllDay() BlockedTimeOption {
	return func(b *persistence.BlockedTime) {
		b.IsAllDay = true
		b.Start = referenceTime
		b.End = referenceTime.AddDate(0, 0, 1)
	}
}

// SessionOption configures a generated session fixture.
type SessionOption func(*persistence.MentoringSession)

// NewSessionFixture returns a scheduled one-hour session starting at 10:00 on
// the reference date, adjusted by the supplied options.
func NewSessionFixture(opts ...SessionOption) persistence.MentoringSession {
	idx := atomic.AddUint64(&sessionCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	session := persistence.MentoringSession{
		ID:              fmt.Sprintf("session-%03d", idx),
		MentorID:        fmt.Sprintf("mentor-%03d", idx),
		Start:           ReferenceClock(10, 0),
		End:             ReferenceClock(11, 0),
		Status:          string(booking.StatusScheduled),
		MaxParticipants: 1,
		CreatedAt:       created,
		UpdatedAt:       created,
	}
	for _, opt := range opts {
		opt(&session)
	}
	return session
}

// WithSessionID overrides the generated session ID.
func WithSessionID(id string) SessionOption {
	return func(s *persistence.MentoringSession) { s.ID = id }
}

// WithSessionMentor overrides the generated mentor ID.
func WithSessionMentor(mentorID string) SessionOption {
	return func(s *persistence.MentoringSession) { s.MentorID = mentorID }
}

// WithSessionMentee books the session for the supplied mentee.
func WithSessionMentee(menteeID string) SessionOption {
	return func(s *persistence.MentoringSession) {
		s.MenteeID = &menteeID
		if s.CurrentParticipants == 0 {
			s.CurrentParticipants = 1
		}
	}
}

// WithSessionWindow overrides the booked interval.
func WithSessionWindow(start, end time.Time) SessionOption {
	return func(s *persistence.MentoringSession) {
		s.Start = start
		s.End = end
	}
}

// WithSessionStatus overrides the lifecycle status.
func WithSessionStatus(status booking.Status) SessionOption {
	return func(s *persistence.MentoringSession) { s.Status = string(status) }
}

// WithSessionCapacity sets the participant limit for a group session.
func WithSessionCapacity(max int) SessionOption {
	return func(s *persistence.MentoringSession) { s.MaxParticipants = max }
}
