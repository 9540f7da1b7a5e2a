package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/mentor-scheduler/internal/availability"
	"github.com/example/mentor-scheduler/internal/booking"
	"github.com/example/mentor-scheduler/internal/interval"
	"github.com/example/mentor-scheduler/internal/persistence"
)

// RuleStore captures the availability rule reads needed by the scheduler.
type RuleStore interface {
	ListActiveRules(ctx context.Context, mentorID string) ([]persistence.AvailabilityRule, error)
}

// BlockedTimeStore captures the blocked time reads needed by the scheduler.
type BlockedTimeStore interface {
	ListBlockedTimes(ctx context.Context, mentorID string, dateRange persistence.DateRange) ([]persistence.BlockedTime, error)
}

// SessionStore captures the session persistence interactions needed by the scheduler.
type SessionStore interface {
	InsertSession(ctx context.Context, session persistence.MentoringSession) error
	GetSession(ctx context.Context, id string) (persistence.MentoringSession, error)
	ListNonTerminalSessions(ctx context.Context, mentorID string, dateRange persistence.DateRange) ([]persistence.MentoringSession, error)
	ListSessions(ctx context.Context, mentorID string, dateRange persistence.DateRange) ([]persistence.MentoringSession, error)
	UpdateSessionStatus(ctx context.Context, session persistence.MentoringSession) error
	InsertParticipant(ctx context.Context, participant persistence.Participant) error
	DeleteParticipant(ctx context.Context, sessionID, userID string, deletedAt time.Time) error
}

// SchedulingService composes the availability resolver, conflict checker and
// booking state machine to answer slot queries and to admit, reject and drive
// mentoring sessions.
type SchedulingService struct {
	rules       RuleStore
	blocked     BlockedTimeStore
	sessions    SessionStore
	idGenerator func() string
	now         func() time.Time
	granularity time.Duration
	locks       *mentorLocks
	cache       *slotCache
	logger      *slog.Logger
}

// DefaultSlotGranularity is used when a caller does not request a slot size.
const DefaultSlotGranularity = 30 * time.Minute

// NewSchedulingService wires dependencies for scheduling operations.
func NewSchedulingService(rules RuleStore, blocked BlockedTimeStore, sessions SessionStore, idGenerator func() string, now func() time.Time) *SchedulingService {
	return NewSchedulingServiceWithLogger(rules, blocked, sessions, idGenerator, now, 0, 0, nil)
}

// NewSchedulingServiceWithLogger wires dependencies together with the slot
// view defaults and a base logger. Zero values fall back to
// DefaultSlotGranularity and the cache's own TTL default.
func NewSchedulingServiceWithLogger(rules RuleStore, blocked BlockedTimeStore, sessions SessionStore, idGenerator func() string, now func() time.Time, granularity time.Duration, cacheTTL time.Duration, logger *slog.Logger) *SchedulingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if granularity <= 0 {
		granularity = DefaultSlotGranularity
	}
	return &SchedulingService{
		rules:       rules,
		blocked:     blocked,
		sessions:    sessions,
		idGenerator: idGenerator,
		now:         now,
		granularity: granularity,
		locks:       newMentorLocks(),
		cache:       newSlotCache(cacheTTL, 0, now),
		logger:      defaultLogger(logger),
	}
}

// GetAvailableSlots slices the mentor's resolved free time for the date into
// fixed-size labeled slots. Slots inside an availability window that are taken
// carry the reason the time is unavailable; time outside every window is not
// part of the view.
func (s *SchedulingService) GetAvailableSlots(ctx context.Context, mentorID string, date time.Time, granularity time.Duration) ([]Slot, error) {
	if s == nil {
		return nil, fmt.Errorf("SchedulingService is nil")
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(mentorID) == "" {
		vErr.add("mentor_id", "mentor id is required")
	}
	if granularity < 0 {
		vErr.add("granularity", "granularity must be positive")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}
	if granularity == 0 {
		granularity = s.granularity
	}

	key := buildSlotCacheKey(mentorID, date, granularity)
	if slots, ok := s.cache.Get(key); ok {
		return slots, nil
	}

	calendar, err := s.loadCalendar(ctx, mentorID, date)
	if err != nil {
		return nil, err
	}

	windows, err := availability.Windows(date, calendar.rules)
	if err != nil {
		return nil, err
	}

	slots := sliceSlots(windows, calendar.blockedIntervals(date), calendar.sessionIntervals(date), granularity)
	s.cache.Store(key, mentorID, slots)

	return slots, nil
}

// RequestBooking admits or rejects a new session request. The availability
// check and the session insert run under the mentor's lock so two racing
// overlapping requests cannot both commit; the persistence layer re-checks the
// interval inside its transaction as a backstop.
func (s *SchedulingService) RequestBooking(ctx context.Context, req BookingRequest) (Session, error) {
	if s == nil {
		return Session{}, fmt.Errorf("SchedulingService is nil")
	}

	logger := serviceLogger(ctx, s.logger, "scheduling", "request_booking", "mentor_id", req.MentorID)

	vErr := &ValidationError{}
	if strings.TrimSpace(req.MentorID) == "" {
		vErr.add("mentor_id", "mentor id is required")
	}
	requested := interval.Interval{Start: req.Start, End: req.End}
	if requested.Validate() != nil {
		vErr.add("time", "end must be after start")
	} else if !availability.DayWindow(req.Start).Contains(requested) {
		// Availability is defined per day; a request spanning midnight is invalid.
		vErr.add("time", "session must start and end on the same day")
	}
	if req.MaxParticipants < 1 {
		vErr.add("max_participants", "at least one participant seat is required")
	}
	if vErr.HasErrors() {
		return Session{}, vErr
	}

	release := s.locks.acquire(req.MentorID)
	defer release()

	calendar, err := s.loadCalendar(ctx, req.MentorID, req.Start)
	if err != nil {
		return Session{}, err
	}

	free, err := availability.Resolve(req.Start, calendar.rules, calendar.blocked, calendar.sessionBusy())
	if err != nil {
		return Session{}, err
	}

	if !coveredByFree(requested, free) {
		logger.InfoContext(ctx, "booking rejected", "reason", "outside availability", "error_kind", ErrorKind(ErrConflict))
		return Session{}, fmt.Errorf("%w: requested interval is not covered by the mentor's availability", ErrConflict)
	}

	if hit, ok := interval.HasOverlap(requested, calendar.sessionTagged(), ""); ok {
		logger.InfoContext(ctx, "booking rejected", "reason", "session overlap", "session_id", hit.ID, "error_kind", ErrorKind(ErrConflict))
		return Session{}, fmt.Errorf("%w: interval overlaps session %s", ErrConflict, hit.ID)
	}

	now := s.now()
	record := persistence.MentoringSession{
		ID:              s.idGenerator(),
		MentorID:        req.MentorID,
		MenteeID:        req.MenteeID,
		Start:           req.Start,
		End:             req.End,
		Status:          string(booking.StatusScheduled),
		MaxParticipants: req.MaxParticipants,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.MenteeID != nil && *req.MenteeID != "" {
		record.CurrentParticipants = 1
	}

	if err := s.sessions.InsertSession(ctx, record); err != nil {
		return Session{}, mapSessionRepoError(err)
	}

	s.cache.InvalidateMentor(req.MentorID)
	logger.InfoContext(ctx, "booking admitted", "session_id", record.ID)

	return toDomainSession(record), nil
}

// TransitionSession drives the booking state machine for the session and
// persists the outcome. Invalid transitions leave the session untouched.
func (s *SchedulingService) TransitionSession(ctx context.Context, sessionID string, params TransitionParams) (Session, error) {
	if s == nil {
		return Session{}, fmt.Errorf("SchedulingService is nil")
	}
	if strings.TrimSpace(sessionID) == "" {
		vErr := &ValidationError{}
		vErr.add("session_id", "session id is required")
		return Session{}, vErr
	}

	record, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, mapSessionRepoError(err)
	}

	current, err := booking.ParseStatus(record.Status)
	if err != nil {
		return Session{}, err
	}

	next, err := booking.Transition(current, params.Target, booking.TransitionPayload{
		Notes:         params.Notes,
		NextSessionID: params.NextSessionID,
		Reason:        params.Reason,
	})
	if err != nil {
		return Session{}, err
	}

	record.Status = string(next)
	record.UpdatedAt = s.now()
	switch next {
	case booking.StatusCompleted:
		notes := params.Notes
		record.Notes = &notes
		if params.NextSessionID != "" {
			nextID := params.NextSessionID
			record.NextSessionID = &nextID
		}
	case booking.StatusCancelled:
		reason := params.Reason
		record.CancellationReason = &reason
	}

	if err := s.sessions.UpdateSessionStatus(ctx, record); err != nil {
		return Session{}, mapSessionRepoError(err)
	}

	// A terminal transition frees the interval for future bookings.
	s.cache.InvalidateMentor(record.MentorID)

	logger := serviceLogger(ctx, s.logger, "scheduling", "transition_session", "session_id", sessionID)
	logger.InfoContext(ctx, "session transitioned", "from", string(current), "to", string(next))

	return toDomainSession(record), nil
}

// AddParticipant joins a user to a group session, guarding capacity and
// duplicate membership under the mentor's lock.
func (s *SchedulingService) AddParticipant(ctx context.Context, sessionID, userID string) (Session, error) {
	if s == nil {
		return Session{}, fmt.Errorf("SchedulingService is nil")
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(sessionID) == "" {
		vErr.add("session_id", "session id is required")
	}
	if strings.TrimSpace(userID) == "" {
		vErr.add("user_id", "user id is required")
	}
	if vErr.HasErrors() {
		return Session{}, vErr
	}

	record, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, mapSessionRepoError(err)
	}

	release := s.locks.acquire(record.MentorID)
	defer release()

	// Re-read under the lock; a concurrent join may have advanced the counter.
	record, err = s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, mapSessionRepoError(err)
	}

	status, err := booking.ParseStatus(record.Status)
	if err != nil {
		return Session{}, err
	}
	if status.IsTerminal() {
		return Session{}, fmt.Errorf("%w: session %s is no longer open", ErrConflict, sessionID)
	}
	if record.CurrentParticipants >= record.MaxParticipants {
		return Session{}, fmt.Errorf("%w: session %s is full", ErrConflict, sessionID)
	}

	participant := persistence.Participant{
		ID:        s.idGenerator(),
		SessionID: sessionID,
		UserID:    userID,
		CreatedAt: s.now(),
	}
	if err := s.sessions.InsertParticipant(ctx, participant); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return Session{}, fmt.Errorf("%w: user %s already joined session %s", ErrConflict, userID, sessionID)
		}
		return Session{}, mapSessionRepoError(err)
	}

	record, err = s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, mapSessionRepoError(err)
	}

	return toDomainSession(record), nil
}

// RemoveParticipant removes a user from a session, decrementing the counter.
func (s *SchedulingService) RemoveParticipant(ctx context.Context, sessionID, userID string) (Session, error) {
	if s == nil {
		return Session{}, fmt.Errorf("SchedulingService is nil")
	}

	record, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, mapSessionRepoError(err)
	}

	release := s.locks.acquire(record.MentorID)
	defer release()

	if err := s.sessions.DeleteParticipant(ctx, sessionID, userID, s.now()); err != nil {
		return Session{}, mapSessionRepoError(err)
	}

	record, err = s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, mapSessionRepoError(err)
	}

	return toDomainSession(record), nil
}

// ListSessions returns the mentor's sessions within the range, regardless of status.
func (s *SchedulingService) ListSessions(ctx context.Context, mentorID string, from, to time.Time) ([]Session, error) {
	if s == nil {
		return nil, fmt.Errorf("SchedulingService is nil")
	}
	records, err := s.sessions.ListSessions(ctx, mentorID, persistence.DateRange{From: from, To: to})
	if err != nil {
		return nil, mapSessionRepoError(err)
	}
	sessions := make([]Session, 0, len(records))
	for _, record := range records {
		sessions = append(sessions, toDomainSession(record))
	}
	return sessions, nil
}

// InvalidateMentorCalendar drops cached slot views for the mentor. Callers
// that mutate availability rules or blocked times use it to keep the calendar
// view fresh.
func (s *SchedulingService) InvalidateMentorCalendar(mentorID string) {
	if s == nil {
		return
	}
	s.cache.InvalidateMentor(mentorID)
}

// mentorCalendar bundles the three collections availability resolution needs.
type mentorCalendar struct {
	rules    []availability.Rule
	blocked  []availability.Busy
	sessions []persistence.MentoringSession
}

func (s *SchedulingService) loadCalendar(ctx context.Context, mentorID string, date time.Time) (mentorCalendar, error) {
	day := availability.DayWindow(date)
	dateRange := persistence.DateRange{From: day.Start, To: day.End}

	ruleRecords, err := s.rules.ListActiveRules(ctx, mentorID)
	if err != nil {
		return mentorCalendar{}, fmt.Errorf("list availability rules: %w", err)
	}

	blockedRecords, err := s.blocked.ListBlockedTimes(ctx, mentorID, dateRange)
	if err != nil {
		return mentorCalendar{}, fmt.Errorf("list blocked times: %w", err)
	}

	sessionRecords, err := s.sessions.ListNonTerminalSessions(ctx, mentorID, dateRange)
	if err != nil {
		return mentorCalendar{}, fmt.Errorf("list sessions: %w", err)
	}

	calendar := mentorCalendar{sessions: sessionRecords}
	for _, record := range ruleRecords {
		calendar.rules = append(calendar.rules, availability.Rule{
			ID:               record.ID,
			DayOfWeek:        record.DayOfWeek,
			SpecificDate:     record.SpecificDate,
			StartClock:       record.StartClock,
			EndClock:         record.EndClock,
			RecurringEndDate: record.RecurringEndDate,
		})
	}
	for _, record := range blockedRecords {
		calendar.blocked = append(calendar.blocked, availability.Busy{
			ID:     record.ID,
			Start:  record.Start,
			End:    record.End,
			AllDay: record.IsAllDay,
		})
	}
	return calendar, nil
}

func (c mentorCalendar) sessionBusy() []availability.Busy {
	busy := make([]availability.Busy, 0, len(c.sessions))
	for _, session := range c.sessions {
		busy = append(busy, availability.Busy{ID: session.ID, Start: session.Start, End: session.End})
	}
	return busy
}

func (c mentorCalendar) sessionTagged() []interval.Tagged {
	tagged := make([]interval.Tagged, 0, len(c.sessions))
	for _, session := range c.sessions {
		tagged = append(tagged, interval.Tagged{
			ID:       session.ID,
			Interval: interval.Interval{Start: session.Start, End: session.End},
		})
	}
	return tagged
}

func (c mentorCalendar) blockedIntervals(date time.Time) []interval.Interval {
	return availability.BusyIntervals(c.blocked, date)
}

func (c mentorCalendar) sessionIntervals(date time.Time) []interval.Interval {
	return availability.BusyIntervals(c.sessionBusy(), date)
}

// sliceSlots walks each merged availability window in fixed steps and labels
// every slot. A slot taken by a blocked time wins over one taken by a session
// when both overlap. Tails shorter than the granularity are dropped.
func sliceSlots(windows []interval.Tagged, blocked, booked []interval.Interval, granularity time.Duration) []Slot {
	slots := make([]Slot, 0)
	for _, window := range windows {
		for start := window.Interval.Start; !start.Add(granularity).After(window.Interval.End); start = start.Add(granularity) {
			slot := interval.Interval{Start: start, End: start.Add(granularity)}
			switch {
			case overlapsAny(slot, blocked):
				slots = append(slots, Slot{Start: slot.Start, End: slot.End, Reason: SlotReasonBlocked})
			case overlapsAny(slot, booked):
				slots = append(slots, Slot{Start: slot.Start, End: slot.End, Reason: SlotReasonBooked})
			default:
				slots = append(slots, Slot{Start: slot.Start, End: slot.End, Available: true})
			}
		}
	}
	return slots
}

func overlapsAny(candidate interval.Interval, existing []interval.Interval) bool {
	for _, iv := range existing {
		if candidate.Overlaps(iv) {
			return true
		}
	}
	return false
}

// coveredByFree reports whether the requested interval fits entirely inside a
// single resolved free interval. Partial coverage is a conflict, never a
// silent truncation.
func coveredByFree(requested interval.Interval, free []availability.FreeInterval) bool {
	for _, f := range free {
		window := interval.Interval{Start: f.Start, End: f.End}
		if window.Contains(requested) {
			return true
		}
	}
	return false
}

func toDomainSession(record persistence.MentoringSession) Session {
	return Session{
		ID:                  record.ID,
		MentorID:            record.MentorID,
		MenteeID:            record.MenteeID,
		Start:               record.Start,
		End:                 record.End,
		Status:              booking.Status(record.Status),
		Notes:               record.Notes,
		CancellationReason:  record.CancellationReason,
		NextSessionID:       record.NextSessionID,
		MaxParticipants:     record.MaxParticipants,
		CurrentParticipants: record.CurrentParticipants,
		CreatedAt:           record.CreatedAt,
		UpdatedAt:           record.UpdatedAt,
	}
}

func mapSessionRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrConflict):
		return fmt.Errorf("%w: a concurrent booking took the interval", ErrConflict)
	case errors.Is(err, persistence.ErrDuplicate):
		return fmt.Errorf("%w: duplicate record", ErrConflict)
	}
	return err
}
