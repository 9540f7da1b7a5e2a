package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/mentor-scheduler/internal/persistence"
)

// RuleRepository implements persistence.AvailabilityRuleRepository using SQLite.
type RuleRepository struct {
	pool *ConnectionPool
}

// NewRuleRepository creates a SQLite availability rule repository.
func NewRuleRepository(pool *ConnectionPool) *RuleRepository {
	return &RuleRepository{pool: pool}
}

// InsertRule stores a new availability rule.
func (r *RuleRepository) InsertRule(ctx context.Context, rule persistence.AvailabilityRule) error {
	if rule.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO availability_rules
			(id, mentor_id, day_of_week, specific_date, start_clock, end_clock,
			 recurring_end_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.pool.db.ExecContext(ctx, query,
		rule.ID,
		rule.MentorID,
		weekdayValue(rule.DayOfWeek),
		timePtrValue(rule.SpecificDate),
		rule.StartClock,
		rule.EndClock,
		timePtrValue(rule.RecurringEndDate),
		formatTime(rule.CreatedAt),
		formatTime(rule.UpdatedAt),
	)
	return mapError(err)
}

// UpdateRule stores changes to an existing rule.
func (r *RuleRepository) UpdateRule(ctx context.Context, rule persistence.AvailabilityRule) error {
	query := `
		UPDATE availability_rules
		SET day_of_week = ?, specific_date = ?, start_clock = ?, end_clock = ?,
		    recurring_end_date = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := r.pool.db.ExecContext(ctx, query,
		weekdayValue(rule.DayOfWeek),
		timePtrValue(rule.SpecificDate),
		rule.StartClock,
		rule.EndClock,
		timePtrValue(rule.RecurringEndDate),
		formatTime(rule.UpdatedAt),
		rule.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireRowAffected(result)
}

// GetRule retrieves an active rule by ID.
func (r *RuleRepository) GetRule(ctx context.Context, id string) (persistence.AvailabilityRule, error) {
	query := `
		SELECT id, mentor_id, day_of_week, specific_date, start_clock, end_clock,
		       recurring_end_date, created_at, updated_at
		FROM availability_rules
		WHERE id = ? AND deleted_at IS NULL
	`
	return scanRule(r.pool.db.QueryRowContext(ctx, query, id))
}

// ListActiveRules returns the mentor's rules that have not been deleted.
func (r *RuleRepository) ListActiveRules(ctx context.Context, mentorID string) ([]persistence.AvailabilityRule, error) {
	query := `
		SELECT id, mentor_id, day_of_week, specific_date, start_clock, end_clock,
		       recurring_end_date, created_at, updated_at
		FROM availability_rules
		WHERE mentor_id = ? AND deleted_at IS NULL
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.pool.db.QueryContext(ctx, query, mentorID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var rules []persistence.AvailabilityRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return rules, nil
}

// SoftDeleteRule marks a rule as deleted while keeping the row.
func (r *RuleRepository) SoftDeleteRule(ctx context.Context, id string, deletedAt time.Time) error {
	result, err := r.pool.db.ExecContext(ctx,
		`UPDATE availability_rules SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		formatTime(deletedAt), id,
	)
	if err != nil {
		return mapError(err)
	}
	return requireRowAffected(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (persistence.AvailabilityRule, error) {
	var rule persistence.AvailabilityRule
	var dayOfWeek sql.NullInt64
	var specificDate, recurringEndDate sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&rule.ID,
		&rule.MentorID,
		&dayOfWeek,
		&specificDate,
		&rule.StartClock,
		&rule.EndClock,
		&recurringEndDate,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.AvailabilityRule{}, mapError(err)
	}

	if dayOfWeek.Valid {
		day := time.Weekday(dayOfWeek.Int64)
		rule.DayOfWeek = &day
	}
	if rule.SpecificDate, err = parseTimePtr(specificDate); err != nil {
		return persistence.AvailabilityRule{}, fmt.Errorf("failed to parse specific_date: %w", err)
	}
	if rule.RecurringEndDate, err = parseTimePtr(recurringEndDate); err != nil {
		return persistence.AvailabilityRule{}, fmt.Errorf("failed to parse recurring_end_date: %w", err)
	}
	if rule.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.AvailabilityRule{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if rule.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.AvailabilityRule{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return rule, nil
}

func requireRowAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// Timestamps are stored as RFC3339 UTC text. The fixed format keeps lexical
// and chronological ordering identical, which the overlap queries rely on.

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339, value)
}

func timePtrValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTimePtr(value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func weekdayValue(day *time.Weekday) any {
	if day == nil {
		return nil
	}
	return int64(*day)
}
