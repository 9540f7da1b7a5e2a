package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/mentor-scheduler/internal/booking"
	"github.com/example/mentor-scheduler/internal/persistence"
)

type ruleStoreStub struct {
	rules []persistence.AvailabilityRule
	err   error
}

func (s *ruleStoreStub) ListActiveRules(ctx context.Context, mentorID string) ([]persistence.AvailabilityRule, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]persistence.AvailabilityRule, 0, len(s.rules))
	for _, rule := range s.rules {
		if rule.MentorID == mentorID {
			out = append(out, rule)
		}
	}
	return out, nil
}

type blockedStoreStub struct {
	blocked []persistence.BlockedTime
	err     error
}

func (s *blockedStoreStub) ListBlockedTimes(ctx context.Context, mentorID string, dateRange persistence.DateRange) ([]persistence.BlockedTime, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]persistence.BlockedTime, 0, len(s.blocked))
	for _, blocked := range s.blocked {
		if blocked.MentorID == mentorID && blocked.Start.Before(dateRange.To) && blocked.End.After(dateRange.From) {
			out = append(out, blocked)
		}
	}
	return out, nil
}

// sessionStoreStub is safe for concurrent use so racing booking tests can
// share it.
type sessionStoreStub struct {
	mu           sync.Mutex
	sessions     map[string]persistence.MentoringSession
	participants map[string]map[string]persistence.Participant
	insertErr    error
}

func newSessionStoreStub() *sessionStoreStub {
	return &sessionStoreStub{
		sessions:     make(map[string]persistence.MentoringSession),
		participants: make(map[string]map[string]persistence.Participant),
	}
}

func (s *sessionStoreStub) InsertSession(ctx context.Context, session persistence.MentoringSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.sessions[session.ID] = session
	return nil
}

func (s *sessionStoreStub) GetSession(ctx context.Context, id string) (persistence.MentoringSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return persistence.MentoringSession{}, persistence.ErrNotFound
	}
	return session, nil
}

func (s *sessionStoreStub) ListNonTerminalSessions(ctx context.Context, mentorID string, dateRange persistence.DateRange) ([]persistence.MentoringSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]persistence.MentoringSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		if session.MentorID != mentorID || !booking.Status(session.Status).BlocksCalendar() {
			continue
		}
		if session.Start.Before(dateRange.To) && session.End.After(dateRange.From) {
			out = append(out, session)
		}
	}
	return out, nil
}

func (s *sessionStoreStub) ListSessions(ctx context.Context, mentorID string, dateRange persistence.DateRange) ([]persistence.MentoringSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]persistence.MentoringSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		if session.MentorID == mentorID && session.Start.Before(dateRange.To) && session.End.After(dateRange.From) {
			out = append(out, session)
		}
	}
	return out, nil
}

func (s *sessionStoreStub) UpdateSessionStatus(ctx context.Context, session persistence.MentoringSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.sessions[session.ID] = session
	return nil
}

func (s *sessionStoreStub) InsertParticipant(ctx context.Context, participant persistence.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[participant.SessionID]
	if !ok {
		return persistence.ErrNotFound
	}
	rows, ok := s.participants[participant.SessionID]
	if !ok {
		rows = make(map[string]persistence.Participant)
		s.participants[participant.SessionID] = rows
	}
	if _, exists := rows[participant.UserID]; exists {
		return persistence.ErrDuplicate
	}
	rows[participant.UserID] = participant
	session.CurrentParticipants++
	s.sessions[participant.SessionID] = session
	return nil
}

func (s *sessionStoreStub) DeleteParticipant(ctx context.Context, sessionID, userID string, deletedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.participants[sessionID]
	if !ok {
		return persistence.ErrNotFound
	}
	if _, exists := rows[userID]; !exists {
		return persistence.ErrNotFound
	}
	delete(rows, userID)
	session := s.sessions[sessionID]
	session.CurrentParticipants--
	s.sessions[sessionID] = session
	return nil
}

// testMonday is 2024-03-11, a Monday.
var testMonday = time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)

func mondayTime(hour, minute int) time.Time {
	return time.Date(2024, 3, 11, hour, minute, 0, 0, time.UTC)
}

func weekdayPtr(d time.Weekday) *time.Weekday {
	return &d
}

func mondayRule(mentorID string) persistence.AvailabilityRule {
	return persistence.AvailabilityRule{
		ID:         "rule-1",
		MentorID:   mentorID,
		DayOfWeek:  weekdayPtr(time.Monday),
		StartClock: "09:00",
		EndClock:   "12:00",
	}
}

func newTestService(rules *ruleStoreStub, blocked *blockedStoreStub, sessions *sessionStoreStub) *SchedulingService {
	counter := 0
	idGen := func() string {
		counter++
		return fmt.Sprintf("session-%d", counter)
	}
	now := func() time.Time { return mondayTime(8, 0) }
	return NewSchedulingService(rules, blocked, sessions, idGen, now)
}

func TestGetAvailableSlots_BlockedTimeSplitsTheDay(t *testing.T) {
	t.Parallel()

	rules := &ruleStoreStub{rules: []persistence.AvailabilityRule{mondayRule("mentor-1")}}
	blocked := &blockedStoreStub{blocked: []persistence.BlockedTime{{
		ID:       "block-1",
		MentorID: "mentor-1",
		Start:    mondayTime(10, 0),
		End:      mondayTime(10, 30),
	}}}
	svc := newTestService(rules, blocked, newSessionStoreStub())

	slots, err := svc.GetAvailableSlots(context.Background(), "mentor-1", testMonday, 30*time.Minute)
	if err != nil {
		t.Fatalf("GetAvailableSlots returned error: %v", err)
	}

	want := []Slot{
		{Start: mondayTime(9, 0), End: mondayTime(9, 30), Available: true},
		{Start: mondayTime(9, 30), End: mondayTime(10, 0), Available: true},
		{Start: mondayTime(10, 0), End: mondayTime(10, 30), Reason: SlotReasonBlocked},
		{Start: mondayTime(10, 30), End: mondayTime(11, 0), Available: true},
		{Start: mondayTime(11, 0), End: mondayTime(11, 30), Available: true},
		{Start: mondayTime(11, 30), End: mondayTime(12, 0), Available: true},
	}
	assertSlots(t, slots, want)
	assertNoAvailableOverlap(t, slots)
}

func TestGetAvailableSlots_BookedSessionsAreLabeled(t *testing.T) {
	t.Parallel()

	rules := &ruleStoreStub{rules: []persistence.AvailabilityRule{mondayRule("mentor-1")}}
	sessions := newSessionStoreStub()
	sessions.sessions["existing"] = persistence.MentoringSession{
		ID:       "existing",
		MentorID: "mentor-1",
		Start:    mondayTime(11, 0),
		End:      mondayTime(12, 0),
		Status:   string(booking.StatusScheduled),
	}
	svc := newTestService(rules, &blockedStoreStub{}, sessions)

	slots, err := svc.GetAvailableSlots(context.Background(), "mentor-1", testMonday, time.Hour)
	if err != nil {
		t.Fatalf("GetAvailableSlots returned error: %v", err)
	}

	want := []Slot{
		{Start: mondayTime(9, 0), End: mondayTime(10, 0), Available: true},
		{Start: mondayTime(10, 0), End: mondayTime(11, 0), Available: true},
		{Start: mondayTime(11, 0), End: mondayTime(12, 0), Reason: SlotReasonBooked},
	}
	assertSlots(t, slots, want)
}

func TestGetAvailableSlots_NoAvailabilityIsValid(t *testing.T) {
	t.Parallel()

	svc := newTestService(&ruleStoreStub{}, &blockedStoreStub{}, newSessionStoreStub())

	slots, err := svc.GetAvailableSlots(context.Background(), "mentor-1", testMonday, 0)
	if err != nil {
		t.Fatalf("GetAvailableSlots returned error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %v", slots)
	}
}

func TestRequestBooking_AdmitsAndAssignsScheduledState(t *testing.T) {
	t.Parallel()

	rules := &ruleStoreStub{rules: []persistence.AvailabilityRule{mondayRule("mentor-1")}}
	sessions := newSessionStoreStub()
	svc := newTestService(rules, &blockedStoreStub{}, sessions)

	mentee := "mentee-1"
	session, err := svc.RequestBooking(context.Background(), BookingRequest{
		MentorID:        "mentor-1",
		MenteeID:        &mentee,
		Start:           mondayTime(9, 0),
		End:             mondayTime(9, 30),
		MaxParticipants: 1,
	})
	if err != nil {
		t.Fatalf("RequestBooking returned error: %v", err)
	}
	if session.Status != booking.StatusScheduled {
		t.Fatalf("new session status = %s, want %s", session.Status, booking.StatusScheduled)
	}
	if session.CurrentParticipants != 1 {
		t.Fatalf("pre-assigned mentee should count as participant, got %d", session.CurrentParticipants)
	}

	stored, err := sessions.GetSession(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("session was not persisted: %v", err)
	}
	if stored.Status != string(booking.StatusScheduled) {
		t.Fatalf("persisted status = %s", stored.Status)
	}
}

func TestRequestBooking_ValidationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		req   BookingRequest
		field string
	}{
		{
			name:  "end before start",
			req:   BookingRequest{MentorID: "m", Start: mondayTime(10, 0), End: mondayTime(9, 0), MaxParticipants: 1},
			field: "time",
		},
		{
			name:  "zero length",
			req:   BookingRequest{MentorID: "m", Start: mondayTime(10, 0), End: mondayTime(10, 0), MaxParticipants: 1},
			field: "time",
		},
		{
			name:  "spans midnight",
			req:   BookingRequest{MentorID: "m", Start: mondayTime(23, 0), End: mondayTime(23, 0).Add(2 * time.Hour), MaxParticipants: 1},
			field: "time",
		},
		{
			name:  "missing mentor",
			req:   BookingRequest{Start: mondayTime(9, 0), End: mondayTime(10, 0), MaxParticipants: 1},
			field: "mentor_id",
		},
		{
			name:  "no seats",
			req:   BookingRequest{MentorID: "m", Start: mondayTime(9, 0), End: mondayTime(10, 0)},
			field: "max_participants",
		},
	}

	svc := newTestService(&ruleStoreStub{}, &blockedStoreStub{}, newSessionStoreStub())

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.RequestBooking(context.Background(), tc.req)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := vErr.FieldErrors[tc.field]; !ok {
				t.Fatalf("expected error on field %q, got %v", tc.field, vErr.FieldErrors)
			}
		})
	}
}

func TestRequestBooking_RejectsPartialCoverage(t *testing.T) {
	t.Parallel()

	rules := &ruleStoreStub{rules: []persistence.AvailabilityRule{mondayRule("mentor-1")}}
	blocked := &blockedStoreStub{blocked: []persistence.BlockedTime{{
		ID:       "block-1",
		MentorID: "mentor-1",
		Start:    mondayTime(10, 0),
		End:      mondayTime(10, 30),
	}}}
	sessions := newSessionStoreStub()
	svc := newTestService(rules, blocked, sessions)

	// 09:30-10:15 straddles the blocked window; it must be rejected outright,
	// never truncated.
	_, err := svc.RequestBooking(context.Background(), BookingRequest{
		MentorID:        "mentor-1",
		Start:           mondayTime(9, 30),
		End:             mondayTime(10, 15),
		MaxParticipants: 1,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if len(sessions.sessions) != 0 {
		t.Fatal("rejected booking must not be persisted")
	}
}

func TestRequestBooking_AdjacentSessionsBothSucceed(t *testing.T) {
	t.Parallel()

	rules := &ruleStoreStub{rules: []persistence.AvailabilityRule{mondayRule("mentor-1")}}
	svc := newTestService(rules, &blockedStoreStub{}, newSessionStoreStub())

	first := BookingRequest{MentorID: "mentor-1", Start: mondayTime(9, 0), End: mondayTime(9, 30), MaxParticipants: 1}
	if _, err := svc.RequestBooking(context.Background(), first); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	second := BookingRequest{MentorID: "mentor-1", Start: mondayTime(9, 30), End: mondayTime(10, 0), MaxParticipants: 1}
	if _, err := svc.RequestBooking(context.Background(), second); err != nil {
		t.Fatalf("back-to-back booking failed: %v", err)
	}

	overlapping := BookingRequest{MentorID: "mentor-1", Start: mondayTime(9, 15), End: mondayTime(9, 45), MaxParticipants: 1}
	if _, err := svc.RequestBooking(context.Background(), overlapping); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for overlapping booking, got %v", err)
	}
}

func TestRequestBooking_ConcurrentOverlappingRequests(t *testing.T) {
	t.Parallel()

	rules := &ruleStoreStub{rules: []persistence.AvailabilityRule{mondayRule("mentor-1")}}
	sessions := newSessionStoreStub()
	svc := newTestService(rules, &blockedStoreStub{}, sessions)

	const attempts = 8
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RequestBooking(context.Background(), BookingRequest{
				MentorID:        "mentor-1",
				Start:           mondayTime(9, 0),
				End:             mondayTime(10, 0),
				MaxParticipants: 1,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, conflicted := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrConflict):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if succeeded != 1 {
		t.Fatalf("exactly one racing request must win, got %d", succeeded)
	}
	if conflicted != attempts-1 {
		t.Fatalf("losing requests must fail with Conflict, got %d", conflicted)
	}
	if len(sessions.sessions) != 1 {
		t.Fatalf("store holds %d sessions, want 1", len(sessions.sessions))
	}
}

func TestTransitionSession_CancellationFreesTheInterval(t *testing.T) {
	t.Parallel()

	rules := &ruleStoreStub{rules: []persistence.AvailabilityRule{mondayRule("mentor-1")}}
	sessions := newSessionStoreStub()
	svc := newTestService(rules, &blockedStoreStub{}, sessions)

	req := BookingRequest{MentorID: "mentor-1", Start: mondayTime(9, 0), End: mondayTime(10, 0), MaxParticipants: 1}
	created, err := svc.RequestBooking(context.Background(), req)
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	if _, err := svc.RequestBooking(context.Background(), req); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict while session holds interval, got %v", err)
	}

	cancelled, err := svc.TransitionSession(context.Background(), created.ID, TransitionParams{
		Target: booking.StatusCancelled,
		Reason: "mentee requested",
	})
	if err != nil {
		t.Fatalf("cancellation failed: %v", err)
	}
	if cancelled.Status != booking.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}
	if cancelled.CancellationReason == nil || *cancelled.CancellationReason != "mentee requested" {
		t.Fatalf("cancellation reason not recorded: %v", cancelled.CancellationReason)
	}

	if _, err := svc.RequestBooking(context.Background(), req); err != nil {
		t.Fatalf("interval must be bookable again after cancellation: %v", err)
	}

	slots, err := svc.GetAvailableSlots(context.Background(), "mentor-1", testMonday, time.Hour)
	if err != nil {
		t.Fatalf("GetAvailableSlots returned error: %v", err)
	}
	if slots[0].Available || slots[0].Reason != SlotReasonBooked {
		t.Fatalf("rebooked slot should show as booked, got %+v", slots[0])
	}
}

func TestTransitionSession_CompletionRequiresNotes(t *testing.T) {
	t.Parallel()

	rules := &ruleStoreStub{rules: []persistence.AvailabilityRule{mondayRule("mentor-1")}}
	sessions := newSessionStoreStub()
	svc := newTestService(rules, &blockedStoreStub{}, sessions)

	created, err := svc.RequestBooking(context.Background(), BookingRequest{
		MentorID: "mentor-1", Start: mondayTime(9, 0), End: mondayTime(10, 0), MaxParticipants: 1,
	})
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	_, err = svc.TransitionSession(context.Background(), created.ID, TransitionParams{Target: booking.StatusCompleted})
	var invalid *booking.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}

	completed, err := svc.TransitionSession(context.Background(), created.ID, TransitionParams{
		Target:        booking.StatusCompleted,
		Notes:         "covered interview prep",
		NextSessionID: "session-99",
	})
	if err != nil {
		t.Fatalf("completion failed: %v", err)
	}
	if completed.Notes == nil || *completed.Notes != "covered interview prep" {
		t.Fatalf("notes not recorded: %v", completed.Notes)
	}
	if completed.NextSessionID == nil || *completed.NextSessionID != "session-99" {
		t.Fatalf("next session reference not recorded: %v", completed.NextSessionID)
	}

	// Terminal states admit nothing further.
	_, err = svc.TransitionSession(context.Background(), created.ID, TransitionParams{Target: booking.StatusCancelled, Reason: "late"})
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError from terminal state, got %v", err)
	}
}

func TestTransitionSession_UnknownSession(t *testing.T) {
	t.Parallel()

	svc := newTestService(&ruleStoreStub{}, &blockedStoreStub{}, newSessionStoreStub())

	_, err := svc.TransitionSession(context.Background(), "missing", TransitionParams{Target: booking.StatusInProgress})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddParticipant_CapacityAndDuplicates(t *testing.T) {
	t.Parallel()

	rules := &ruleStoreStub{rules: []persistence.AvailabilityRule{mondayRule("mentor-1")}}
	sessions := newSessionStoreStub()
	svc := newTestService(rules, &blockedStoreStub{}, sessions)

	created, err := svc.RequestBooking(context.Background(), BookingRequest{
		MentorID: "mentor-1", Start: mondayTime(9, 0), End: mondayTime(10, 0), MaxParticipants: 2,
	})
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	first, err := svc.AddParticipant(context.Background(), created.ID, "user-1")
	if err != nil {
		t.Fatalf("first join failed: %v", err)
	}
	if first.CurrentParticipants != 1 {
		t.Fatalf("participants = %d, want 1", first.CurrentParticipants)
	}

	if _, err := svc.AddParticipant(context.Background(), created.ID, "user-1"); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate join must conflict, got %v", err)
	}

	second, err := svc.AddParticipant(context.Background(), created.ID, "user-2")
	if err != nil {
		t.Fatalf("second join failed: %v", err)
	}
	if second.CurrentParticipants != 2 {
		t.Fatalf("participants = %d, want 2", second.CurrentParticipants)
	}

	if _, err := svc.AddParticipant(context.Background(), created.ID, "user-3"); !errors.Is(err, ErrConflict) {
		t.Fatalf("join beyond capacity must conflict, got %v", err)
	}

	after, err := svc.sessions.GetSession(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if after.CurrentParticipants != 2 {
		t.Fatalf("failed join must not change the counter, got %d", after.CurrentParticipants)
	}

	removed, err := svc.RemoveParticipant(context.Background(), created.ID, "user-1")
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if removed.CurrentParticipants != 1 {
		t.Fatalf("participants after removal = %d, want 1", removed.CurrentParticipants)
	}
}

func TestAddParticipant_TerminalSessionRejected(t *testing.T) {
	t.Parallel()

	rules := &ruleStoreStub{rules: []persistence.AvailabilityRule{mondayRule("mentor-1")}}
	sessions := newSessionStoreStub()
	svc := newTestService(rules, &blockedStoreStub{}, sessions)

	created, err := svc.RequestBooking(context.Background(), BookingRequest{
		MentorID: "mentor-1", Start: mondayTime(9, 0), End: mondayTime(10, 0), MaxParticipants: 5,
	})
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if _, err := svc.TransitionSession(context.Background(), created.ID, TransitionParams{Target: booking.StatusCancelled, Reason: "closed"}); err != nil {
		t.Fatalf("cancellation failed: %v", err)
	}

	if _, err := svc.AddParticipant(context.Background(), created.ID, "user-1"); !errors.Is(err, ErrConflict) {
		t.Fatalf("join on terminal session must conflict, got %v", err)
	}
}

func assertSlots(t *testing.T, got, want []Slot) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d slots, want %d: %v", len(got), len(want), got)
	}
	for i := range got {
		if !got[i].Start.Equal(want[i].Start) || !got[i].End.Equal(want[i].End) {
			t.Fatalf("slot %d = [%v, %v), want [%v, %v)", i, got[i].Start, got[i].End, want[i].Start, want[i].End)
		}
		if got[i].Available != want[i].Available || got[i].Reason != want[i].Reason {
			t.Fatalf("slot %d labeled %+v, want %+v", i, got[i], want[i])
		}
	}
}

func assertNoAvailableOverlap(t *testing.T, slots []Slot) {
	t.Helper()
	for i, a := range slots {
		if !a.Available {
			continue
		}
		for _, b := range slots[i+1:] {
			if !b.Available {
				continue
			}
			if a.Start.Before(b.End) && a.End.After(b.Start) {
				t.Fatalf("available slots overlap: %+v and %+v", a, b)
			}
		}
	}
}
