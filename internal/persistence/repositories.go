package persistence

import (
	"context"
	"time"
)

// AvailabilityRuleRepository stores mentor availability rule templates.
type AvailabilityRuleRepository interface {
	InsertRule(ctx context.Context, rule AvailabilityRule) error
	UpdateRule(ctx context.Context, rule AvailabilityRule) error
	GetRule(ctx context.Context, id string) (AvailabilityRule, error)
	// ListActiveRules returns rules for the mentor that are not soft deleted.
	ListActiveRules(ctx context.Context, mentorID string) ([]AvailabilityRule, error)
	// SoftDeleteRule marks the rule deleted without removing history.
	SoftDeleteRule(ctx context.Context, id string, deletedAt time.Time) error
}

// BlockedTimeRepository stores ad-hoc exclusions on a mentor's calendar.
type BlockedTimeRepository interface {
	InsertBlockedTime(ctx context.Context, blocked BlockedTime) error
	UpdateBlockedTime(ctx context.Context, blocked BlockedTime) error
	GetBlockedTime(ctx context.Context, id string) (BlockedTime, error)
	ListBlockedTimes(ctx context.Context, mentorID string, dateRange DateRange) ([]BlockedTime, error)
	SoftDeleteBlockedTime(ctx context.Context, id string, deletedAt time.Time) error
}

// SessionRepository stores mentoring sessions and their participants.
type SessionRepository interface {
	// InsertSession writes the session after re-checking, inside the same
	// transaction, that no non-terminal session for the mentor overlaps the
	// requested interval. A concurrent winner surfaces as ErrConflict.
	InsertSession(ctx context.Context, session MentoringSession) error
	GetSession(ctx context.Context, id string) (MentoringSession, error)
	// ListNonTerminalSessions returns sessions whose status still holds its
	// interval (scheduled or in progress) within the range.
	ListNonTerminalSessions(ctx context.Context, mentorID string, dateRange DateRange) ([]MentoringSession, error)
	ListSessions(ctx context.Context, mentorID string, dateRange DateRange) ([]MentoringSession, error)
	// UpdateSessionStatus persists a state transition and its payload fields.
	UpdateSessionStatus(ctx context.Context, session MentoringSession) error

	// InsertParticipant adds the row and increments the session counter in one
	// transaction; duplicates surface as ErrDuplicate and a full session as
	// ErrConflict.
	InsertParticipant(ctx context.Context, participant Participant) error
	// DeleteParticipant soft deletes the row and decrements the counter.
	DeleteParticipant(ctx context.Context, sessionID, userID string, deletedAt time.Time) error
	ListParticipants(ctx context.Context, sessionID string) ([]Participant, error)
}
