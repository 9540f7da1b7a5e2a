package interval

import (
	"errors"
	"testing"
	"time"
)

func at(t *testing.T, hour, minute int) time.Time {
	t.Helper()
	return time.Date(2024, 3, 11, hour, minute, 0, 0, time.UTC)
}

func span(t *testing.T, startHour, startMin, endHour, endMin int) Interval {
	t.Helper()
	return Interval{Start: at(t, startHour, startMin), End: at(t, endHour, endMin)}
}

func TestNew_RejectsEmptyInterval(t *testing.T) {
	t.Parallel()

	if _, err := New(at(t, 10, 0), at(t, 10, 0)); !errors.Is(err, ErrEmptyInterval) {
		t.Fatalf("expected ErrEmptyInterval for zero length, got %v", err)
	}
	if _, err := New(at(t, 10, 0), at(t, 9, 0)); !errors.Is(err, ErrEmptyInterval) {
		t.Fatalf("expected ErrEmptyInterval for inverted bounds, got %v", err)
	}
	if _, err := New(at(t, 9, 0), at(t, 10, 0)); err != nil {
		t.Fatalf("expected valid interval, got %v", err)
	}
}

func TestOverlaps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"identical", span(t, 9, 0, 10, 0), span(t, 9, 0, 10, 0), true},
		{"partial overlap", span(t, 9, 0, 10, 0), span(t, 9, 30, 10, 30), true},
		{"containment", span(t, 9, 0, 12, 0), span(t, 10, 0, 11, 0), true},
		{"adjacent intervals do not overlap", span(t, 9, 0, 10, 0), span(t, 10, 0, 11, 0), false},
		{"disjoint", span(t, 9, 0, 10, 0), span(t, 11, 0, 12, 0), false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.a.Overlaps(tc.b); got != tc.want {
				t.Fatalf("Overlaps(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
			if got := tc.b.Overlaps(tc.a); got != tc.want {
				t.Fatalf("Overlaps is not symmetric for %v / %v", tc.a, tc.b)
			}
		})
	}
}

func TestContains(t *testing.T) {
	t.Parallel()

	outer := span(t, 9, 0, 12, 0)

	if !outer.Contains(span(t, 9, 0, 12, 0)) {
		t.Fatal("interval should contain itself")
	}
	if !outer.Contains(span(t, 10, 0, 11, 0)) {
		t.Fatal("interval should contain an inner interval")
	}
	if outer.Contains(span(t, 8, 30, 9, 30)) {
		t.Fatal("interval should not contain one extending past its start")
	}
	if outer.Contains(span(t, 11, 30, 12, 30)) {
		t.Fatal("interval should not contain one extending past its end")
	}
}

func TestHasOverlap(t *testing.T) {
	t.Parallel()

	existing := []Tagged{
		{ID: "a", Interval: span(t, 9, 0, 10, 0)},
		{ID: "b", Interval: span(t, 11, 0, 12, 0)},
	}

	if hit, ok := HasOverlap(span(t, 9, 30, 10, 30), existing, ""); !ok || hit.ID != "a" {
		t.Fatalf("expected overlap with a, got %v %v", hit, ok)
	}
	if _, ok := HasOverlap(span(t, 10, 0, 11, 0), existing, ""); ok {
		t.Fatal("back-to-back interval must not conflict")
	}
	if _, ok := HasOverlap(span(t, 9, 30, 10, 30), existing, "a"); ok {
		t.Fatal("excluded record must not count as a conflict")
	}
}

func TestMerge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []Tagged
		want  []Tagged
	}{
		{
			name: "overlapping windows coalesce",
			input: []Tagged{
				{ID: "r2", Interval: span(t, 9, 30, 11, 0)},
				{ID: "r1", Interval: span(t, 9, 0, 10, 0)},
			},
			want: []Tagged{{ID: "r1", Interval: span(t, 9, 0, 11, 0)}},
		},
		{
			name: "touching windows coalesce",
			input: []Tagged{
				{ID: "r1", Interval: span(t, 9, 0, 10, 0)},
				{ID: "r2", Interval: span(t, 10, 0, 11, 0)},
			},
			want: []Tagged{{ID: "r1", Interval: span(t, 9, 0, 11, 0)}},
		},
		{
			name: "disjoint windows stay separate",
			input: []Tagged{
				{ID: "r1", Interval: span(t, 9, 0, 10, 0)},
				{ID: "r2", Interval: span(t, 11, 0, 12, 0)},
			},
			want: []Tagged{
				{ID: "r1", Interval: span(t, 9, 0, 10, 0)},
				{ID: "r2", Interval: span(t, 11, 0, 12, 0)},
			},
		},
		{
			name: "contained window is absorbed",
			input: []Tagged{
				{ID: "r1", Interval: span(t, 9, 0, 12, 0)},
				{ID: "r2", Interval: span(t, 10, 0, 11, 0)},
			},
			want: []Tagged{{ID: "r1", Interval: span(t, 9, 0, 12, 0)}},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Merge(tc.input)
			assertTaggedEqual(t, got, tc.want)
		})
	}
}

func TestSubtract(t *testing.T) {
	t.Parallel()

	base := span(t, 9, 0, 12, 0)

	tests := []struct {
		name string
		hole Interval
		want []Interval
	}{
		{"hole in the middle splits in two", span(t, 10, 0, 10, 30), []Interval{span(t, 9, 0, 10, 0), span(t, 10, 30, 12, 0)}},
		{"hole at the start trims the front", span(t, 8, 0, 10, 0), []Interval{span(t, 10, 0, 12, 0)}},
		{"hole at the end trims the back", span(t, 11, 0, 13, 0), []Interval{span(t, 9, 0, 11, 0)}},
		{"covering hole removes everything", span(t, 8, 0, 13, 0), nil},
		{"disjoint hole leaves base intact", span(t, 13, 0, 14, 0), []Interval{base}},
		{"adjacent hole leaves base intact", span(t, 12, 0, 13, 0), []Interval{base}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Subtract(base, tc.hole)
			if len(got) != len(tc.want) {
				t.Fatalf("Subtract returned %d fragments, want %d: %v", len(got), len(tc.want), got)
			}
			for i := range got {
				if !got[i].Start.Equal(tc.want[i].Start) || !got[i].End.Equal(tc.want[i].End) {
					t.Fatalf("fragment %d = %v, want %v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestSubtractAll_KeepsTagsAndOrder(t *testing.T) {
	t.Parallel()

	bases := []Tagged{
		{ID: "r1", Interval: span(t, 9, 0, 12, 0)},
		{ID: "r2", Interval: span(t, 14, 0, 16, 0)},
	}
	holes := []Interval{
		span(t, 10, 0, 10, 30),
		span(t, 15, 30, 17, 0),
	}

	got := SubtractAll(bases, holes)
	want := []Tagged{
		{ID: "r1", Interval: span(t, 9, 0, 10, 0)},
		{ID: "r1", Interval: span(t, 10, 30, 12, 0)},
		{ID: "r2", Interval: span(t, 14, 0, 15, 30)},
	}
	assertTaggedEqual(t, got, want)
}

func assertTaggedEqual(t *testing.T, got, want []Tagged) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d intervals, want %d: %v", len(got), len(want), got)
	}
	for i := range got {
		if got[i].ID != want[i].ID {
			t.Fatalf("interval %d tagged %q, want %q", i, got[i].ID, want[i].ID)
		}
		if !got[i].Interval.Start.Equal(want[i].Interval.Start) || !got[i].Interval.End.Equal(want[i].Interval.End) {
			t.Fatalf("interval %d = %v, want %v", i, got[i].Interval, want[i].Interval)
		}
	}
}
