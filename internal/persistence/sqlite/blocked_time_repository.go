package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/mentor-scheduler/internal/persistence"
)

// BlockedTimeRepository implements persistence.BlockedTimeRepository using SQLite.
type BlockedTimeRepository struct {
	pool *ConnectionPool
}

// NewBlockedTimeRepository creates a SQLite blocked time repository.
func NewBlockedTimeRepository(pool *ConnectionPool) *BlockedTimeRepository {
	return &BlockedTimeRepository{pool: pool}
}

// InsertBlockedTime stores a new calendar exclusion.
func (r *BlockedTimeRepository) InsertBlockedTime(ctx context.Context, blocked persistence.BlockedTime) error {
	if blocked.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO blocked_times
			(id, mentor_id, start_at, end_at, is_all_day, reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.pool.db.ExecContext(ctx, query,
		blocked.ID,
		blocked.MentorID,
		formatTime(blocked.Start),
		formatTime(blocked.End),
		blocked.IsAllDay,
		blocked.Reason,
		formatTime(blocked.CreatedAt),
		formatTime(blocked.UpdatedAt),
	)
	return mapError(err)
}

// UpdateBlockedTime stores changes to an existing exclusion.
func (r *BlockedTimeRepository) UpdateBlockedTime(ctx context.Context, blocked persistence.BlockedTime) error {
	query := `
		UPDATE blocked_times
		SET start_at = ?, end_at = ?, is_all_day = ?, reason = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := r.pool.db.ExecContext(ctx, query,
		formatTime(blocked.Start),
		formatTime(blocked.End),
		blocked.IsAllDay,
		blocked.Reason,
		formatTime(blocked.UpdatedAt),
		blocked.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireRowAffected(result)
}

// GetBlockedTime retrieves an active exclusion by ID.
func (r *BlockedTimeRepository) GetBlockedTime(ctx context.Context, id string) (persistence.BlockedTime, error) {
	query := `
		SELECT id, mentor_id, start_at, end_at, is_all_day, reason, created_at, updated_at
		FROM blocked_times
		WHERE id = ? AND deleted_at IS NULL
	`
	return scanBlockedTime(r.pool.db.QueryRowContext(ctx, query, id))
}

// ListBlockedTimes returns the mentor's active exclusions overlapping the range.
func (r *BlockedTimeRepository) ListBlockedTimes(ctx context.Context, mentorID string, dateRange persistence.DateRange) ([]persistence.BlockedTime, error) {
	query := `
		SELECT id, mentor_id, start_at, end_at, is_all_day, reason, created_at, updated_at
		FROM blocked_times
		WHERE mentor_id = ? AND deleted_at IS NULL
		  AND start_at < ? AND end_at > ?
		ORDER BY start_at ASC, id ASC
	`
	rows, err := r.pool.db.QueryContext(ctx, query, mentorID, formatTime(dateRange.To), formatTime(dateRange.From))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var blocked []persistence.BlockedTime
	for rows.Next() {
		record, err := scanBlockedTime(rows)
		if err != nil {
			return nil, err
		}
		blocked = append(blocked, record)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return blocked, nil
}

// SoftDeleteBlockedTime marks an exclusion as deleted while keeping the row.
func (r *BlockedTimeRepository) SoftDeleteBlockedTime(ctx context.Context, id string, deletedAt time.Time) error {
	result, err := r.pool.db.ExecContext(ctx,
		`UPDATE blocked_times SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		formatTime(deletedAt), id,
	)
	if err != nil {
		return mapError(err)
	}
	return requireRowAffected(result)
}

func scanBlockedTime(row rowScanner) (persistence.BlockedTime, error) {
	var blocked persistence.BlockedTime
	var reason sql.NullString
	var startAt, endAt, createdAt, updatedAt string

	err := row.Scan(
		&blocked.ID,
		&blocked.MentorID,
		&startAt,
		&endAt,
		&blocked.IsAllDay,
		&reason,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.BlockedTime{}, mapError(err)
	}

	if reason.Valid {
		blocked.Reason = &reason.String
	}
	if blocked.Start, err = parseTime(startAt); err != nil {
		return persistence.BlockedTime{}, fmt.Errorf("failed to parse start_at: %w", err)
	}
	if blocked.End, err = parseTime(endAt); err != nil {
		return persistence.BlockedTime{}, fmt.Errorf("failed to parse end_at: %w", err)
	}
	if blocked.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.BlockedTime{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if blocked.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.BlockedTime{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return blocked, nil
}
