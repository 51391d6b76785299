package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/sandeepkv93/zenith/internal/model"
)

// sqliteTimeLayout is fixed width so stored timestamps order correctly as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const taskColumns = `id, title, description, is_completed, completed_date, due_date, created_at, updated_at,
	energy_level, priority, location_id, location_reminder_enabled, reminder_triggered, is_archived,
	remote_id, last_synced_at, pending_sync, is_snoozed, snooze_until, snooze_count`

type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// OpenSQLite opens the database at path, applies migrations and returns a
// ready repository. Foreign keys are enabled per connection through the DSN.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := MigrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) CreateTask(ctx context.Context, in model.Task) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (title, description, is_completed, completed_date, due_date, created_at, updated_at,
			energy_level, priority, location_id, location_reminder_enabled, reminder_triggered, is_archived,
			remote_id, last_synced_at, pending_sync, is_snoozed, snooze_until, snooze_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Title, in.Description, boolInt(in.IsCompleted), nullTime(in.CompletedDate), nullTime(in.DueDate),
		mustTime(in.CreatedAt), mustTime(in.UpdatedAt), string(in.EnergyLevel), string(in.Priority),
		nullInt64(in.LocationID), boolInt(in.LocationReminderEnabled), boolInt(in.ReminderTriggered), boolInt(in.IsArchived),
		nullString(in.RemoteID), nullTime(in.LastSyncedAt), boolInt(in.PendingSync), boolInt(in.IsSnoozed),
		nullTime(in.SnoozeUntil), in.SnoozeCount,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id int64) (model.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Task{}, ErrNotFound
		}
		return model.Task{}, err
	}
	return task, nil
}

func (r *SQLiteRepository) UpdateTask(ctx context.Context, in model.Task) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, is_completed = ?, completed_date = ?, due_date = ?, updated_at = ?,
			energy_level = ?, priority = ?, location_id = ?, location_reminder_enabled = ?, reminder_triggered = ?,
			is_archived = ?, remote_id = ?, last_synced_at = ?, pending_sync = ?, is_snoozed = ?, snooze_until = ?,
			snooze_count = ?
		WHERE id = ?`,
		in.Title, in.Description, boolInt(in.IsCompleted), nullTime(in.CompletedDate), nullTime(in.DueDate),
		mustTime(in.UpdatedAt), string(in.EnergyLevel), string(in.Priority), nullInt64(in.LocationID),
		boolInt(in.LocationReminderEnabled), boolInt(in.ReminderTriggered), boolInt(in.IsArchived),
		nullString(in.RemoteID), nullTime(in.LastSyncedAt), boolInt(in.PendingSync), boolInt(in.IsSnoozed),
		nullTime(in.SnoozeUntil), in.SnoozeCount, in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, filter TaskListFilter) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	clauses := make([]string, 0, 6)
	args := make([]any, 0, 8)
	if filter.Completed != nil {
		clauses = append(clauses, "is_completed = ?")
		args = append(args, boolInt(*filter.Completed))
	}
	if filter.Archived != nil {
		clauses = append(clauses, "is_archived = ?")
		args = append(args, boolInt(*filter.Archived))
	}
	if filter.Snoozed != nil {
		clauses = append(clauses, "is_snoozed = ?")
		args = append(args, boolInt(*filter.Snoozed))
	}
	if filter.LocationID != nil {
		clauses = append(clauses, "location_id = ?")
		args = append(args, *filter.LocationID)
	}
	if filter.ReminderEnabled != nil {
		clauses = append(clauses, "location_reminder_enabled = ?")
		args = append(args, boolInt(*filter.ReminderEnabled))
	}
	if q := strings.TrimSpace(filter.TitleContains); q != "" {
		clauses = append(clauses, "(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)")
		like := "%" + strings.ToLower(q) + "%"
		args = append(args, like, like)
	}
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	return r.queryTasks(ctx, query, args...)
}

func (r *SQLiteRepository) queryTasks(ctx context.Context, query string, args ...any) ([]model.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(sqliteTimeLayout)
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(sqliteTimeLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func parseNullableInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	out := v.Int64
	return &out
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	} else if offset > 0 {
		sql += " LIMIT -1"
	}
	if offset > 0 {
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (model.Task, error) {
	var out model.Task
	var completed, archived, pending, snoozed, reminderEnabled, triggered int
	var completedDate, dueDate, lastSynced, snoozeUntil, remoteID sql.NullString
	var created, updated string
	var energy, priority string
	var locationID sql.NullInt64
	if err := s.Scan(
		&out.ID, &out.Title, &out.Description, &completed, &completedDate, &dueDate, &created, &updated,
		&energy, &priority, &locationID, &reminderEnabled, &triggered, &archived,
		&remoteID, &lastSynced, &pending, &snoozed, &snoozeUntil, &out.SnoozeCount,
	); err != nil {
		return model.Task{}, err
	}
	var err error
	if out.CreatedAt, err = parseRequiredTime(created); err != nil {
		return model.Task{}, err
	}
	if out.UpdatedAt, err = parseRequiredTime(updated); err != nil {
		return model.Task{}, err
	}
	if out.CompletedDate, err = parseNullableTime(completedDate); err != nil {
		return model.Task{}, err
	}
	if out.DueDate, err = parseNullableTime(dueDate); err != nil {
		return model.Task{}, err
	}
	if out.LastSyncedAt, err = parseNullableTime(lastSynced); err != nil {
		return model.Task{}, err
	}
	if out.SnoozeUntil, err = parseNullableTime(snoozeUntil); err != nil {
		return model.Task{}, err
	}
	out.IsCompleted = completed == 1
	out.IsArchived = archived == 1
	out.PendingSync = pending == 1
	out.IsSnoozed = snoozed == 1
	out.LocationReminderEnabled = reminderEnabled == 1
	out.ReminderTriggered = triggered == 1
	out.EnergyLevel = model.EnergyLevel(energy)
	out.Priority = model.Priority(priority)
	out.LocationID = parseNullableInt64(locationID)
	out.RemoteID = remoteID.String
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
