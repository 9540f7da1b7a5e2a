package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/mentor-scheduler/internal/availability"
	"github.com/example/mentor-scheduler/internal/interval"
	"github.com/example/mentor-scheduler/internal/persistence"
)

// RuleRepository captures the rule persistence interactions needed by the service.
type RuleRepository interface {
	InsertRule(ctx context.Context, rule persistence.AvailabilityRule) error
	UpdateRule(ctx context.Context, rule persistence.AvailabilityRule) error
	GetRule(ctx context.Context, id string) (persistence.AvailabilityRule, error)
	ListActiveRules(ctx context.Context, mentorID string) ([]persistence.AvailabilityRule, error)
	SoftDeleteRule(ctx context.Context, id string, deletedAt time.Time) error
}

// BlockedTimeRepository captures the blocked time persistence interactions
// needed by the service.
type BlockedTimeRepository interface {
	InsertBlockedTime(ctx context.Context, blocked persistence.BlockedTime) error
	UpdateBlockedTime(ctx context.Context, blocked persistence.BlockedTime) error
	GetBlockedTime(ctx context.Context, id string) (persistence.BlockedTime, error)
	ListBlockedTimes(ctx context.Context, mentorID string, dateRange persistence.DateRange) ([]persistence.BlockedTime, error)
	SoftDeleteBlockedTime(ctx context.Context, id string, deletedAt time.Time) error
}

// CalendarInvalidator drops cached calendar views after availability writes.
type CalendarInvalidator interface {
	InvalidateMentorCalendar(mentorID string)
}

// AvailabilityService manages a mentor's availability rules and blocked times,
// rejecting writes that would overlap existing templates or exclusions.
type AvailabilityService struct {
	rules       RuleRepository
	blocked     BlockedTimeRepository
	invalidator CalendarInvalidator
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewAvailabilityService wires dependencies for availability management.
func NewAvailabilityService(rules RuleRepository, blocked BlockedTimeRepository, invalidator CalendarInvalidator, idGenerator func() string, now func() time.Time) *AvailabilityService {
	return NewAvailabilityServiceWithLogger(rules, blocked, invalidator, idGenerator, now, nil)
}

// NewAvailabilityServiceWithLogger wires dependencies and a base logger.
func NewAvailabilityServiceWithLogger(rules RuleRepository, blocked BlockedTimeRepository, invalidator CalendarInvalidator, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AvailabilityService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AvailabilityService{
		rules:       rules,
		blocked:     blocked,
		invalidator: invalidator,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// CreateRule validates and stores a new availability rule template.
func (s *AvailabilityService) CreateRule(ctx context.Context, input AvailabilityRuleInput) (AvailabilityRule, error) {
	if s == nil {
		return AvailabilityRule{}, fmt.Errorf("AvailabilityService is nil")
	}

	window, err := validateRuleInput(input)
	if err != nil {
		return AvailabilityRule{}, err
	}

	if err := s.ensureRuleDoesNotOverlap(ctx, input, window, ""); err != nil {
		return AvailabilityRule{}, err
	}

	now := s.now()
	record := persistence.AvailabilityRule{
		ID:               s.idGenerator(),
		MentorID:         input.MentorID,
		DayOfWeek:        input.DayOfWeek,
		SpecificDate:     input.SpecificDate,
		StartClock:       input.StartClock,
		EndClock:         input.EndClock,
		RecurringEndDate: input.RecurringEndDate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.rules.InsertRule(ctx, record); err != nil {
		return AvailabilityRule{}, mapAvailabilityRepoError(err)
	}

	s.invalidateCalendar(input.MentorID)
	serviceLogger(ctx, s.logger, "availability", "create_rule", "mentor_id", input.MentorID).
		InfoContext(ctx, "availability rule created", "rule_id", record.ID)

	return toDomainRule(record), nil
}

// UpdateRule validates and stores changes to an existing rule, excluding the
// rule itself from the overlap check.
func (s *AvailabilityService) UpdateRule(ctx context.Context, ruleID string, input AvailabilityRuleInput) (AvailabilityRule, error) {
	if s == nil {
		return AvailabilityRule{}, fmt.Errorf("AvailabilityService is nil")
	}

	existing, err := s.rules.GetRule(ctx, ruleID)
	if err != nil {
		return AvailabilityRule{}, mapAvailabilityRepoError(err)
	}
	if input.MentorID == "" {
		input.MentorID = existing.MentorID
	}

	window, err := validateRuleInput(input)
	if err != nil {
		return AvailabilityRule{}, err
	}

	if err := s.ensureRuleDoesNotOverlap(ctx, input, window, ruleID); err != nil {
		return AvailabilityRule{}, err
	}

	existing.DayOfWeek = input.DayOfWeek
	existing.SpecificDate = input.SpecificDate
	existing.StartClock = input.StartClock
	existing.EndClock = input.EndClock
	existing.RecurringEndDate = input.RecurringEndDate
	existing.UpdatedAt = s.now()

	if err := s.rules.UpdateRule(ctx, existing); err != nil {
		return AvailabilityRule{}, mapAvailabilityRepoError(err)
	}

	s.invalidateCalendar(existing.MentorID)
	return toDomainRule(existing), nil
}

// DeleteRule soft deletes a rule; history stays available for past sessions.
func (s *AvailabilityService) DeleteRule(ctx context.Context, ruleID string) error {
	if s == nil {
		return fmt.Errorf("AvailabilityService is nil")
	}
	existing, err := s.rules.GetRule(ctx, ruleID)
	if err != nil {
		return mapAvailabilityRepoError(err)
	}
	if err := s.rules.SoftDeleteRule(ctx, ruleID, s.now()); err != nil {
		return mapAvailabilityRepoError(err)
	}
	s.invalidateCalendar(existing.MentorID)
	return nil
}

// ListRules returns the mentor's active rules.
func (s *AvailabilityService) ListRules(ctx context.Context, mentorID string) ([]AvailabilityRule, error) {
	if s == nil {
		return nil, fmt.Errorf("AvailabilityService is nil")
	}
	records, err := s.rules.ListActiveRules(ctx, mentorID)
	if err != nil {
		return nil, mapAvailabilityRepoError(err)
	}
	rules := make([]AvailabilityRule, 0, len(records))
	for _, record := range records {
		rules = append(rules, toDomainRule(record))
	}
	return rules, nil
}

// CreateBlockedTime validates and stores a new calendar exclusion. Blocked
// times for the same mentor must not overlap each other.
func (s *AvailabilityService) CreateBlockedTime(ctx context.Context, input BlockedTimeInput) (BlockedTime, error) {
	if s == nil {
		return BlockedTime{}, fmt.Errorf("AvailabilityService is nil")
	}

	candidate, err := validateBlockedInput(&input)
	if err != nil {
		return BlockedTime{}, err
	}

	if err := s.ensureBlockedDoesNotOverlap(ctx, input.MentorID, candidate, ""); err != nil {
		return BlockedTime{}, err
	}

	now := s.now()
	record := persistence.BlockedTime{
		ID:        s.idGenerator(),
		MentorID:  input.MentorID,
		Start:     input.Start,
		End:       input.End,
		IsAllDay:  input.IsAllDay,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if reason := strings.TrimSpace(input.Reason); reason != "" {
		record.Reason = &reason
	}

	if err := s.blocked.InsertBlockedTime(ctx, record); err != nil {
		return BlockedTime{}, mapAvailabilityRepoError(err)
	}

	s.invalidateCalendar(input.MentorID)
	serviceLogger(ctx, s.logger, "availability", "create_blocked_time", "mentor_id", input.MentorID).
		InfoContext(ctx, "blocked time created", "blocked_time_id", record.ID)

	return toDomainBlocked(record), nil
}

// UpdateBlockedTime validates and stores changes to an exclusion, excluding
// the record itself from the overlap check.
func (s *AvailabilityService) UpdateBlockedTime(ctx context.Context, blockedID string, input BlockedTimeInput) (BlockedTime, error) {
	if s == nil {
		return BlockedTime{}, fmt.Errorf("AvailabilityService is nil")
	}

	existing, err := s.blocked.GetBlockedTime(ctx, blockedID)
	if err != nil {
		return BlockedTime{}, mapAvailabilityRepoError(err)
	}
	if input.MentorID == "" {
		input.MentorID = existing.MentorID
	}

	candidate, err := validateBlockedInput(&input)
	if err != nil {
		return BlockedTime{}, err
	}

	if err := s.ensureBlockedDoesNotOverlap(ctx, input.MentorID, candidate, blockedID); err != nil {
		return BlockedTime{}, err
	}

	existing.Start = input.Start
	existing.End = input.End
	existing.IsAllDay = input.IsAllDay
	existing.Reason = nil
	if reason := strings.TrimSpace(input.Reason); reason != "" {
		existing.Reason = &reason
	}
	existing.UpdatedAt = s.now()

	if err := s.blocked.UpdateBlockedTime(ctx, existing); err != nil {
		return BlockedTime{}, mapAvailabilityRepoError(err)
	}

	s.invalidateCalendar(existing.MentorID)
	return toDomainBlocked(existing), nil
}

// DeleteBlockedTime soft deletes an exclusion.
func (s *AvailabilityService) DeleteBlockedTime(ctx context.Context, blockedID string) error {
	if s == nil {
		return fmt.Errorf("AvailabilityService is nil")
	}
	existing, err := s.blocked.GetBlockedTime(ctx, blockedID)
	if err != nil {
		return mapAvailabilityRepoError(err)
	}
	if err := s.blocked.SoftDeleteBlockedTime(ctx, blockedID, s.now()); err != nil {
		return mapAvailabilityRepoError(err)
	}
	s.invalidateCalendar(existing.MentorID)
	return nil
}

// ListBlockedTimes returns the mentor's active exclusions within the range.
func (s *AvailabilityService) ListBlockedTimes(ctx context.Context, mentorID string, from, to time.Time) ([]BlockedTime, error) {
	if s == nil {
		return nil, fmt.Errorf("AvailabilityService is nil")
	}
	records, err := s.blocked.ListBlockedTimes(ctx, mentorID, persistence.DateRange{From: from, To: to})
	if err != nil {
		return nil, mapAvailabilityRepoError(err)
	}
	blocked := make([]BlockedTime, 0, len(records))
	for _, record := range records {
		blocked = append(blocked, toDomainBlocked(record))
	}
	return blocked, nil
}

func (s *AvailabilityService) invalidateCalendar(mentorID string) {
	if s.invalidator != nil {
		s.invalidator.InvalidateMentorCalendar(mentorID)
	}
}

// ensureRuleDoesNotOverlap rejects a rule whose clock window overlaps another
// active rule that can generate occurrences on the same calendar day.
func (s *AvailabilityService) ensureRuleDoesNotOverlap(ctx context.Context, input AvailabilityRuleInput, window interval.Interval, excludeID string) error {
	existing, err := s.rules.ListActiveRules(ctx, input.MentorID)
	if err != nil {
		return mapAvailabilityRepoError(err)
	}

	comparable := make([]interval.Tagged, 0, len(existing))
	for _, rule := range existing {
		if !rulesShareDay(input, rule) {
			continue
		}
		start, err := availability.ParseClock(referenceDay, rule.StartClock)
		if err != nil {
			continue
		}
		end, err := availability.ParseClock(referenceDay, rule.EndClock)
		if err != nil {
			continue
		}
		comparable = append(comparable, interval.Tagged{ID: rule.ID, Interval: interval.Interval{Start: start, End: end}})
	}

	if hit, ok := interval.HasOverlap(window, comparable, excludeID); ok {
		return fmt.Errorf("%w: rule overlaps availability rule %s", ErrConflict, hit.ID)
	}
	return nil
}

func (s *AvailabilityService) ensureBlockedDoesNotOverlap(ctx context.Context, mentorID string, candidate interval.Interval, excludeID string) error {
	existing, err := s.blocked.ListBlockedTimes(ctx, mentorID, persistence.DateRange{From: candidate.Start, To: candidate.End})
	if err != nil {
		return mapAvailabilityRepoError(err)
	}

	tagged := make([]interval.Tagged, 0, len(existing))
	for _, blocked := range existing {
		tagged = append(tagged, interval.Tagged{ID: blocked.ID, Interval: interval.Interval{Start: blocked.Start, End: blocked.End}})
	}

	if hit, ok := interval.HasOverlap(candidate, tagged, excludeID); ok {
		return fmt.Errorf("%w: interval overlaps blocked time %s", ErrConflict, hit.ID)
	}
	return nil
}

// referenceDay anchors clock comparisons between rules. Any fixed day works
// because only the clock components matter.
var referenceDay = time.Date(2000, time.January, 3, 0, 0, 0, 0, time.UTC)

func validateRuleInput(input AvailabilityRuleInput) (interval.Interval, error) {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.MentorID) == "" {
		vErr.add("mentor_id", "mentor id is required")
	}

	switch {
	case input.DayOfWeek == nil && input.SpecificDate == nil:
		vErr.add("schedule", "either a day of week or a specific date is required")
	case input.DayOfWeek != nil && input.SpecificDate != nil:
		vErr.add("schedule", "a rule cannot be both recurring and date specific")
	}
	if input.RecurringEndDate != nil && input.DayOfWeek == nil {
		vErr.add("recurring_end_date", "only recurring rules can have an end date")
	}

	start, startErr := availability.ParseClock(referenceDay, input.StartClock)
	if startErr != nil {
		vErr.add("start_time", "must be a valid HH:MM clock value")
	}
	end, endErr := availability.ParseClock(referenceDay, input.EndClock)
	if endErr != nil {
		vErr.add("end_time", "must be a valid HH:MM clock value")
	}

	window := interval.Interval{Start: start, End: end}
	if startErr == nil && endErr == nil && window.Validate() != nil {
		vErr.add("time", "end time must be after start time")
	}

	if vErr.HasErrors() {
		return interval.Interval{}, vErr
	}
	return window, nil
}

func validateBlockedInput(input *BlockedTimeInput) (interval.Interval, error) {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.MentorID) == "" {
		vErr.add("mentor_id", "mentor id is required")
	}

	if input.IsAllDay {
		// An all-day block spans the whole calendar day of its start.
		day := availability.DayWindow(input.Start)
		input.Start = day.Start
		input.End = day.End
	}

	candidate := interval.Interval{Start: input.Start, End: input.End}
	if candidate.Validate() != nil {
		vErr.add("time", "end must be after start")
	}

	if vErr.HasErrors() {
		return interval.Interval{}, vErr
	}
	return candidate, nil
}

// rulesShareDay reports whether the candidate rule and an existing rule can
// generate windows on the same calendar day.
func rulesShareDay(input AvailabilityRuleInput, rule persistence.AvailabilityRule) bool {
	switch {
	case input.DayOfWeek != nil && rule.DayOfWeek != nil:
		return *input.DayOfWeek == *rule.DayOfWeek
	case input.DayOfWeek != nil && rule.SpecificDate != nil:
		return rule.SpecificDate.UTC().Weekday() == *input.DayOfWeek
	case input.SpecificDate != nil && rule.DayOfWeek != nil:
		return input.SpecificDate.UTC().Weekday() == *rule.DayOfWeek
	case input.SpecificDate != nil && rule.SpecificDate != nil:
		return availability.DayWindow(*input.SpecificDate).Start.Equal(availability.DayWindow(*rule.SpecificDate).Start)
	default:
		return false
	}
}

func toDomainRule(record persistence.AvailabilityRule) AvailabilityRule {
	return AvailabilityRule{
		ID:               record.ID,
		MentorID:         record.MentorID,
		DayOfWeek:        record.DayOfWeek,
		SpecificDate:     record.SpecificDate,
		StartClock:       record.StartClock,
		EndClock:         record.EndClock,
		RecurringEndDate: record.RecurringEndDate,
		CreatedAt:        record.CreatedAt,
		UpdatedAt:        record.UpdatedAt,
	}
}

func toDomainBlocked(record persistence.BlockedTime) BlockedTime {
	return BlockedTime{
		ID:        record.ID,
		MentorID:  record.MentorID,
		Start:     record.Start,
		End:       record.End,
		IsAllDay:  record.IsAllDay,
		Reason:    record.Reason,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

func mapAvailabilityRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate), errors.Is(err, persistence.ErrConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
