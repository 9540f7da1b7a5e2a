package interval

import (
	"errors"
	"sort"
	"time"
)

// Interval represents a half-open time range [Start, End) on the reference clock.
type Interval struct {
	Start time.Time
	End   time.Time
}

// ErrEmptyInterval indicates a zero or negative length interval.
var ErrEmptyInterval = errors.New("interval: end must be after start")

// New constructs a validated interval.
func New(start, end time.Time) (Interval, error) {
	iv := Interval{Start: start, End: end}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// Validate reports whether the interval has positive length.
func (i Interval) Validate() error {
	if !i.End.After(i.Start) {
		return ErrEmptyInterval
	}
	return nil
}

// Duration returns the interval length.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps reports whether two half-open intervals share any instant.
// Intervals that only touch at a boundary do not overlap, so back-to-back
// sessions are legal.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && i.End.After(other.Start)
}

// Contains reports whether other lies entirely within i.
func (i Interval) Contains(other Interval) bool {
	return !other.Start.Before(i.Start) && !other.End.After(i.End)
}

// Touches reports whether the intervals overlap or share a boundary.
func (i Interval) Touches(other Interval) bool {
	return !i.Start.After(other.End) && !i.End.Before(other.Start)
}

// Tagged pairs an interval with the identifier of the record it came from.
type Tagged struct {
	ID       string
	Interval Interval
}

// HasOverlap reports whether candidate overlaps any existing interval other
// than the one identified by excludeID. It is the single conflict primitive
// shared by availability rules, blocked times and mentoring sessions.
func HasOverlap(candidate Interval, existing []Tagged, excludeID string) (Tagged, bool) {
	for _, tagged := range existing {
		if excludeID != "" && tagged.ID == excludeID {
			continue
		}
		if candidate.Overlaps(tagged.Interval) {
			return tagged, true
		}
	}
	return Tagged{}, false
}

// Merge coalesces overlapping or touching intervals into maximal intervals.
// A merged interval keeps the tag of its earliest-starting contributor so the
// result stays traceable to a source record. The input is not modified.
func Merge(intervals []Tagged) []Tagged {
	if len(intervals) <= 1 {
		out := make([]Tagged, len(intervals))
		copy(out, intervals)
		return out
	}

	sorted := make([]Tagged, len(intervals))
	copy(sorted, intervals)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Interval.Start.Equal(sorted[j].Interval.Start) {
			return sorted[i].Interval.End.Before(sorted[j].Interval.End)
		}
		return sorted[i].Interval.Start.Before(sorted[j].Interval.Start)
	})

	merged := make([]Tagged, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if current.Interval.Touches(next.Interval) {
			if next.Interval.End.After(current.Interval.End) {
				current.Interval.End = next.Interval.End
			}
			continue
		}
		merged = append(merged, current)
		current = next
	}
	merged = append(merged, current)

	return merged
}

// Subtract removes the hole from base, yielding zero, one or two fragments.
func Subtract(base Interval, hole Interval) []Interval {
	if !base.Overlaps(hole) {
		return []Interval{base}
	}

	fragments := make([]Interval, 0, 2)
	if hole.Start.After(base.Start) {
		fragments = append(fragments, Interval{Start: base.Start, End: hole.Start})
	}
	if hole.End.Before(base.End) {
		fragments = append(fragments, Interval{Start: hole.End, End: base.End})
	}
	return fragments
}

// SubtractAll removes every hole from every base interval while preserving
// source tags. Fragments of zero length are discarded.
func SubtractAll(bases []Tagged, holes []Interval) []Tagged {
	result := make([]Tagged, len(bases))
	copy(result, bases)

	for _, hole := range holes {
		next := make([]Tagged, 0, len(result))
		for _, base := range result {
			for _, fragment := range Subtract(base.Interval, hole) {
				if fragment.Validate() != nil {
					continue
				}
				next = append(next, Tagged{ID: base.ID, Interval: fragment})
			}
		}
		result = next
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Interval.Start.Before(result[j].Interval.Start)
	})

	return result
}
