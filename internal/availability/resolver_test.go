package availability

import (
	"errors"
	"testing"
	"time"
)

// 2024-03-11 is a Monday.
var monday = time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)

func mondayAt(t *testing.T, hour, minute int) time.Time {
	t.Helper()
	return time.Date(2024, 3, 11, hour, minute, 0, 0, time.UTC)
}

func weekday(d time.Weekday) *time.Weekday {
	return &d
}

func datePtr(t time.Time) *time.Time {
	return &t
}

func assertFree(t *testing.T, got []FreeInterval, want []FreeInterval) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d free intervals, want %d: %v", len(got), len(want), got)
	}
	for i := range got {
		if got[i].RuleID != want[i].RuleID {
			t.Fatalf("interval %d from rule %q, want %q", i, got[i].RuleID, want[i].RuleID)
		}
		if !got[i].Start.Equal(want[i].Start) || !got[i].End.Equal(want[i].End) {
			t.Fatalf("interval %d = [%v, %v), want [%v, %v)", i, got[i].Start, got[i].End, want[i].Start, want[i].End)
		}
	}
}

func TestResolve_RecurringRuleMinusBlockedTime(t *testing.T) {
	t.Parallel()

	rules := []Rule{{
		ID:         "rule-1",
		DayOfWeek:  weekday(time.Monday),
		StartClock: "09:00",
		EndClock:   "12:00",
	}}
	blocked := []Busy{{
		ID:    "block-1",
		Start: mondayAt(t, 10, 0),
		End:   mondayAt(t, 10, 30),
	}}

	got, err := Resolve(monday, rules, blocked, nil)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	assertFree(t, got, []FreeInterval{
		{RuleID: "rule-1", Start: mondayAt(t, 9, 0), End: mondayAt(t, 10, 0)},
		{RuleID: "rule-1", Start: mondayAt(t, 10, 30), End: mondayAt(t, 12, 0)},
	})
}

func TestResolve_WrongWeekdayContributesNothing(t *testing.T) {
	t.Parallel()

	rules := []Rule{{
		ID:         "rule-1",
		DayOfWeek:  weekday(time.Tuesday),
		StartClock: "09:00",
		EndClock:   "12:00",
	}}

	got, err := Resolve(monday, rules, nil, nil)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no free intervals, got %v", got)
	}
}

func TestResolve_RecurringEndDateBoundsOccurrences(t *testing.T) {
	t.Parallel()

	expired := []Rule{{
		ID:               "rule-1",
		DayOfWeek:        weekday(time.Monday),
		StartClock:       "09:00",
		EndClock:         "12:00",
		RecurringEndDate: datePtr(monday.AddDate(0, 0, -7)),
	}}

	got, err := Resolve(monday, expired, nil, nil)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expired rule must contribute nothing, got %v", got)
	}

	// The boundary day itself is still valid.
	onBoundary := []Rule{{
		ID:               "rule-1",
		DayOfWeek:        weekday(time.Monday),
		StartClock:       "09:00",
		EndClock:         "12:00",
		RecurringEndDate: datePtr(monday),
	}}

	got, err = Resolve(monday, onBoundary, nil, nil)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	assertFree(t, got, []FreeInterval{
		{RuleID: "rule-1", Start: mondayAt(t, 9, 0), End: mondayAt(t, 12, 0)},
	})
}

func TestResolve_SpecificDateRuleAddsToRecurring(t *testing.T) {
	t.Parallel()

	rules := []Rule{
		{ID: "rule-1", DayOfWeek: weekday(time.Monday), StartClock: "09:00", EndClock: "11:00"},
		{ID: "rule-2", SpecificDate: datePtr(monday), StartClock: "14:00", EndClock: "16:00"},
		{ID: "rule-3", SpecificDate: datePtr(monday.AddDate(0, 0, 1)), StartClock: "09:00", EndClock: "10:00"},
	}

	got, err := Resolve(monday, rules, nil, nil)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	assertFree(t, got, []FreeInterval{
		{RuleID: "rule-1", Start: mondayAt(t, 9, 0), End: mondayAt(t, 11, 0)},
		{RuleID: "rule-2", Start: mondayAt(t, 14, 0), End: mondayAt(t, 16, 0)},
	})
}

func TestResolve_OverlappingTemplatesMerge(t *testing.T) {
	t.Parallel()

	rules := []Rule{
		{ID: "rule-1", DayOfWeek: weekday(time.Monday), StartClock: "09:00", EndClock: "11:00"},
		{ID: "rule-2", DayOfWeek: weekday(time.Monday), StartClock: "10:00", EndClock: "12:00"},
	}

	got, err := Resolve(monday, rules, nil, nil)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	assertFree(t, got, []FreeInterval{
		{RuleID: "rule-1", Start: mondayAt(t, 9, 0), End: mondayAt(t, 12, 0)},
	})
}

func TestResolve_SubtractsSessionsAndAllDayBlocks(t *testing.T) {
	t.Parallel()

	rules := []Rule{{
		ID:         "rule-1",
		DayOfWeek:  weekday(time.Monday),
		StartClock: "09:00",
		EndClock:   "17:00",
	}}
	sessions := []Busy{{
		ID:    "session-1",
		Start: mondayAt(t, 13, 0),
		End:   mondayAt(t, 14, 0),
	}}

	got, err := Resolve(monday, rules, nil, sessions)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	assertFree(t, got, []FreeInterval{
		{RuleID: "rule-1", Start: mondayAt(t, 9, 0), End: mondayAt(t, 13, 0)},
		{RuleID: "rule-1", Start: mondayAt(t, 14, 0), End: mondayAt(t, 17, 0)},
	})

	allDay := []Busy{{ID: "block-1", AllDay: true, Start: monday, End: monday}}
	got, err = Resolve(monday, rules, allDay, nil)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("all-day block must clear the calendar, got %v", got)
	}
}

func TestResolve_MalformedClockFails(t *testing.T) {
	t.Parallel()

	rules := []Rule{{
		ID:         "rule-1",
		DayOfWeek:  weekday(time.Monday),
		StartClock: "9 o'clock",
		EndClock:   "12:00",
	}}

	if _, err := Resolve(monday, rules, nil, nil); !errors.Is(err, ErrInvalidClock) {
		t.Fatalf("expected ErrInvalidClock, got %v", err)
	}
}
