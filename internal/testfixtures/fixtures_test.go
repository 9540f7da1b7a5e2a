package testfixtures

import (
	"testing"
	"time"

	"github.com/example/mentor-scheduler/internal/booking"
)

func TestRuleFixturesAreDistinct(t *testing.T) {
	first := NewRuleFixture()
	second := NewRuleFixture()

	if first.ID == second.ID {
		t.Fatalf("expected distinct rule IDs, both were %q", first.ID)
	}
	if first.DayOfWeek == nil || *first.DayOfWeek != time.Monday {
		t.Fatalf("expected Monday default, got %v", first.DayOfWeek)
	}
}

func TestRuleFixtureOptions(t *testing.T) {
	date := ReferenceTime().AddDate(0, 0, 3)
	rule := NewRuleFixture(
		WithRuleMentor("mentor-7"),
		WithRuleClocks("13:00", "15:30"),
		WithRuleSpecificDate(date),
	)

	if rule.MentorID != "mentor-7" {
		t.Fatalf("mentor override not applied: %q", rule.MentorID)
	}
	if rule.StartClock != "13:00" || rule.EndClock != "15:30" {
		t.Fatalf("clock override not applied: %s-%s", rule.StartClock, rule.EndClock)
	}
	if rule.DayOfWeek != nil {
		t.Fatal("specific date rule should not keep a weekday")
	}
	if rule.SpecificDate == nil || !rule.SpecificDate.Equal(date) {
		t.Fatalf("specific date not applied: %v", rule.SpecificDate)
	}
}

func TestBlockedTimeFixtureAllDay(t *testing.T) {
	blocked := NewBlockedTimeFixture(WithBlockedAllDay(), WithBlockedReason("conference"))

	if !blocked.IsAllDay {
		t.Fatal("expected all-day exclusion")
	}
	if !blocked.Start.Equal(ReferenceTime()) || !blocked.End.Equal(ReferenceTime().AddDate(0, 0, 1)) {
		t.Fatalf("all-day window not normalised: %v-%v", blocked.Start, blocked.End)
	}
	if blocked.Reason == nil || *blocked.Reason != "conference" {
		t.Fatalf("reason not applied: %v", blocked.Reason)
	}
}

func TestSessionFixtureMentee(t *testing.T) {
	session := NewSessionFixture(WithSessionMentee("mentee-1"), WithSessionCapacity(5))

	if session.MenteeID == nil || *session.MenteeID != "mentee-1" {
		t.Fatalf("mentee not applied: %v", session.MenteeID)
	}
	if session.CurrentParticipants != 1 {
		t.Fatalf("expected booking mentee to count as participant, got %d", session.CurrentParticipants)
	}
	if session.MaxParticipants != 5 {
		t.Fatalf("capacity override not applied: %d", session.MaxParticipants)
	}
	if session.Status != string(booking.StatusScheduled) {
		t.Fatalf("expected scheduled default, got %q", session.Status)
	}
}
