package availability

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/mentor-scheduler/internal/interval"
)

// Rule describes one availability window template for a mentor. Either
// DayOfWeek (recurring weekly) or SpecificDate (one-off) is set.
type Rule struct {
	ID               string
	DayOfWeek        *time.Weekday
	SpecificDate     *time.Time
	StartClock       string
	EndClock         string
	RecurringEndDate *time.Time
}

// Busy is an absolute interval already claimed on the calendar, either a
// blocked time or a non-terminal session.
type Busy struct {
	ID     string
	Start  time.Time
	End    time.Time
	AllDay bool
}

// FreeInterval is a contiguous window still open for booking, tagged with the
// rule that contributed it.
type FreeInterval struct {
	RuleID string
	Start  time.Time
	End    time.Time
}

// ErrInvalidClock indicates a rule carries a malformed clock value.
var ErrInvalidClock = errors.New("availability: invalid clock value")

const clockLayout = "15:04"

// ParseClock interprets an HH:MM value on the given calendar day.
func ParseClock(day time.Time, clock string) (time.Time, error) {
	parsed, err := time.Parse(clockLayout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidClock, clock)
	}
	y, m, d := day.UTC().Date()
	return time.Date(y, m, d, parsed.Hour(), parsed.Minute(), 0, 0, time.UTC), nil
}

// DayWindow returns the half-open interval covering the UTC calendar day of t.
func DayWindow(t time.Time) interval.Interval {
	y, m, d := t.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return interval.Interval{Start: start, End: start.AddDate(0, 0, 1)}
}

// Windows expands the rules applying on the target date into merged candidate
// availability windows, before any blocked time or session is subtracted.
// Overlapping or touching templates coalesce into maximal windows.
func Windows(date time.Time, rules []Rule) ([]interval.Tagged, error) {
	day := DayWindow(date)

	windows := make([]interval.Tagged, 0, len(rules))
	for _, rule := range rules {
		applies, err := ruleAppliesOn(rule, day.Start)
		if err != nil {
			return nil, err
		}
		if !applies {
			continue
		}

		start, err := ParseClock(day.Start, rule.StartClock)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
		}
		end, err := ParseClock(day.Start, rule.EndClock)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
		}

		window, err := interval.New(start, end)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
		}
		windows = append(windows, interval.Tagged{ID: rule.ID, Interval: window})
	}

	if len(windows) == 0 {
		return nil, nil
	}

	return interval.Merge(windows), nil
}

// Resolve expands the mentor's rules for the target date, merges the candidate
// windows, and subtracts blocked times followed by booked sessions. The result
// is ordered, non-overlapping and may be empty. Resolve performs no writes.
func Resolve(date time.Time, rules []Rule, blocked []Busy, sessions []Busy) ([]FreeInterval, error) {
	day := DayWindow(date)

	merged, err := Windows(date, rules)
	if err != nil {
		return nil, err
	}
	if len(merged) == 0 {
		return nil, nil
	}

	free := interval.SubtractAll(merged, busyIntervals(blocked, day))
	free = interval.SubtractAll(free, busyIntervals(sessions, day))

	result := make([]FreeInterval, 0, len(free))
	for _, tagged := range free {
		result = append(result, FreeInterval{
			RuleID: tagged.ID,
			Start:  tagged.Interval.Start,
			End:    tagged.Interval.End,
		})
	}
	return result, nil
}

func ruleAppliesOn(rule Rule, dayStart time.Time) (bool, error) {
	switch {
	case rule.SpecificDate != nil:
		return sameDay(*rule.SpecificDate, dayStart), nil
	case rule.DayOfWeek != nil:
		if *rule.DayOfWeek != dayStart.Weekday() {
			return false, nil
		}
		if rule.RecurringEndDate != nil {
			// The rule is invalid for dates after its end date.
			endDay := DayWindow(*rule.RecurringEndDate)
			if dayStart.After(endDay.Start) {
				return false, nil
			}
		}
		return true, nil
	default:
		return false, fmt.Errorf("availability: rule %s has neither day of week nor specific date", rule.ID)
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// BusyIntervals converts busy records into plain intervals clamped to the
// calendar day of date, expanding all-day entries to the whole day.
func BusyIntervals(busy []Busy, date time.Time) []interval.Interval {
	return busyIntervals(busy, DayWindow(date))
}

func busyIntervals(busy []Busy, day interval.Interval) []interval.Interval {
	holes := make([]interval.Interval, 0, len(busy))
	for _, b := range busy {
		hole := interval.Interval{Start: b.Start, End: b.End}
		if b.AllDay {
			hole = day
		}
		if hole.Validate() != nil || !hole.Overlaps(day) {
			continue
		}
		holes = append(holes, hole)
	}
	return holes
}
