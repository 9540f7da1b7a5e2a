package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/mentor-scheduler/internal/booking"
	"github.com/example/mentor-scheduler/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository using SQLite.
type SessionRepository struct {
	pool  *ConnectionPool
	retry *RetryHelper
}

// NewSessionRepository creates a SQLite session repository.
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{
		pool:  pool,
		retry: NewRetryHelper(DefaultRetryConfig()),
	}
}

// InsertSession writes the session after re-checking inside the transaction
// that no non-terminal session for the mentor overlaps the interval. The
// check closes the race left open when two processes share the database.
func (r *SessionRepository) InsertSession(ctx context.Context, session persistence.MentoringSession) error {
	if session.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			var overlapping int
			err := tx.QueryRow(`
				SELECT COUNT(*)
				FROM mentoring_sessions
				WHERE mentor_id = ? AND status IN (?, ?)
				  AND start_at < ? AND end_at > ?
			`,
				session.MentorID,
				string(booking.StatusScheduled),
				string(booking.StatusInProgress),
				formatTime(session.End),
				formatTime(session.Start),
			).Scan(&overlapping)
			if err != nil {
				return mapError(err)
			}
			if overlapping > 0 {
				return fmt.Errorf("%w: interval already taken", persistence.ErrConflict)
			}

			_, err = tx.Exec(`
				INSERT INTO mentoring_sessions
					(id, mentor_id, mentee_id, start_at, end_at, status, notes,
					 cancellation_reason, next_session_id, max_participants,
					 current_participants, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				session.ID,
				session.MentorID,
				session.MenteeID,
				formatTime(session.Start),
				formatTime(session.End),
				session.Status,
				session.Notes,
				session.CancellationReason,
				session.NextSessionID,
				session.MaxParticipants,
				session.CurrentParticipants,
				formatTime(session.CreatedAt),
				formatTime(session.UpdatedAt),
			)
			if err != nil {
				return mapError(err)
			}

			if session.MenteeID != nil {
				_, err = tx.Exec(`
					INSERT INTO session_participants (id, session_id, user_id, created_at)
					VALUES (?, ?, ?, ?)
				`,
					session.ID+":"+*session.MenteeID,
					session.ID,
					*session.MenteeID,
					formatTime(session.CreatedAt),
				)
				if err != nil {
					return mapError(err)
				}
			}
			return nil
		})
	})
}

// GetSession retrieves a session by ID.
func (r *SessionRepository) GetSession(ctx context.Context, id string) (persistence.MentoringSession, error) {
	query := sessionSelect + ` WHERE id = ?`
	return scanSession(r.pool.db.QueryRowContext(ctx, query, id))
}

// ListNonTerminalSessions returns sessions whose status still holds its
// interval within the range.
func (r *SessionRepository) ListNonTerminalSessions(ctx context.Context, mentorID string, dateRange persistence.DateRange) ([]persistence.MentoringSession, error) {
	query := sessionSelect + `
		WHERE mentor_id = ? AND status IN (?, ?)
		  AND start_at < ? AND end_at > ?
		ORDER BY start_at ASC, id ASC
	`
	return r.querySessions(ctx, query,
		mentorID,
		string(booking.StatusScheduled),
		string(booking.StatusInProgress),
		formatTime(dateRange.To),
		formatTime(dateRange.From),
	)
}

// ListSessions returns every session for the mentor within the range,
// terminal ones included.
func (r *SessionRepository) ListSessions(ctx context.Context, mentorID string, dateRange persistence.DateRange) ([]persistence.MentoringSession, error) {
	query := sessionSelect + `
		WHERE mentor_id = ? AND start_at < ? AND end_at > ?
		ORDER BY start_at ASC, id ASC
	`
	return r.querySessions(ctx, query, mentorID, formatTime(dateRange.To), formatTime(dateRange.From))
}

// UpdateSessionStatus persists a state transition and its payload fields.
func (r *SessionRepository) UpdateSessionStatus(ctx context.Context, session persistence.MentoringSession) error {
	query := `
		UPDATE mentoring_sessions
		SET status = ?, notes = ?, cancellation_reason = ?, next_session_id = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.pool.db.ExecContext(ctx, query,
		session.Status,
		session.Notes,
		session.CancellationReason,
		session.NextSessionID,
		formatTime(session.UpdatedAt),
		session.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireRowAffected(result)
}

// InsertParticipant adds the participant row and increments the session
// counter in one transaction. The partial unique index rejects active
// duplicates; a full session fails the counter check constraint.
func (r *SessionRepository) InsertParticipant(ctx context.Context, participant persistence.Participant) error {
	if participant.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			var maxParticipants, currentParticipants int
			err := tx.QueryRow(
				`SELECT max_participants, current_participants FROM mentoring_sessions WHERE id = ?`,
				participant.SessionID,
			).Scan(&maxParticipants, &currentParticipants)
			if err != nil {
				return mapError(err)
			}
			if currentParticipants >= maxParticipants {
				return fmt.Errorf("%w: session is full", persistence.ErrConflict)
			}

			_, err = tx.Exec(`
				INSERT INTO session_participants (id, session_id, user_id, created_at)
				VALUES (?, ?, ?, ?)
			`,
				participant.ID,
				participant.SessionID,
				participant.UserID,
				formatTime(participant.CreatedAt),
			)
			if err != nil {
				return mapError(err)
			}

			_, err = tx.Exec(
				`UPDATE mentoring_sessions SET current_participants = current_participants + 1 WHERE id = ?`,
				participant.SessionID,
			)
			return mapError(err)
		})
	})
}

// DeleteParticipant soft deletes the participant row and decrements the
// session counter.
func (r *SessionRepository) DeleteParticipant(ctx context.Context, sessionID, userID string, deletedAt time.Time) error {
	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			result, err := tx.Exec(`
				UPDATE session_participants
				SET deleted_at = ?
				WHERE session_id = ? AND user_id = ? AND deleted_at IS NULL
			`, formatTime(deletedAt), sessionID, userID)
			if err != nil {
				return mapError(err)
			}
			if err := requireRowAffected(result); err != nil {
				return err
			}

			_, err = tx.Exec(
				`UPDATE mentoring_sessions SET current_participants = current_participants - 1 WHERE id = ?`,
				sessionID,
			)
			return mapError(err)
		})
	})
}

// ListParticipants returns the session's active participants.
func (r *SessionRepository) ListParticipants(ctx context.Context, sessionID string) ([]persistence.Participant, error) {
	query := `
		SELECT id, session_id, user_id, created_at
		FROM session_participants
		WHERE session_id = ? AND deleted_at IS NULL
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.pool.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var participants []persistence.Participant
	for rows.Next() {
		var participant persistence.Participant
		var createdAt string
		if err := rows.Scan(&participant.ID, &participant.SessionID, &participant.UserID, &createdAt); err != nil {
			return nil, mapError(err)
		}
		if participant.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		participants = append(participants, participant)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return participants, nil
}

const sessionSelect = `
	SELECT id, mentor_id, mentee_id, start_at, end_at, status, notes,
	       cancellation_reason, next_session_id, max_participants,
	       current_participants, created_at, updated_at
	FROM mentoring_sessions
`

func (r *SessionRepository) querySessions(ctx context.Context, query string, args ...any) ([]persistence.MentoringSession, error) {
	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var sessions []persistence.MentoringSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return sessions, nil
}

func scanSession(row rowScanner) (persistence.MentoringSession, error) {
	var session persistence.MentoringSession
	var menteeID, notes, cancellationReason, nextSessionID sql.NullString
	var startAt, endAt, createdAt, updatedAt string

	err := row.Scan(
		&session.ID,
		&session.MentorID,
		&menteeID,
		&startAt,
		&endAt,
		&session.Status,
		&notes,
		&cancellationReason,
		&nextSessionID,
		&session.MaxParticipants,
		&session.CurrentParticipants,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.MentoringSession{}, mapError(err)
	}

	session.MenteeID = nullableString(menteeID)
	session.Notes = nullableString(notes)
	session.CancellationReason = nullableString(cancellationReason)
	session.NextSessionID = nullableString(nextSessionID)

	if session.Start, err = parseTime(startAt); err != nil {
		return persistence.MentoringSession{}, fmt.Errorf("failed to parse start_at: %w", err)
	}
	if session.End, err = parseTime(endAt); err != nil {
		return persistence.MentoringSession{}, fmt.Errorf("failed to parse end_at: %w", err)
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.MentoringSession{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.MentoringSession{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return session, nil
}

func nullableString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	return &value.String
}
