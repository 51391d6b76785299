package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sandeepkv93/zenith/internal/model"
)

// UpsertTasks applies pulled tasks keyed by local id. Remote values win over
// local ones, the row is marked as not pending and a location id that does not
// exist locally is stored as NULL.
func (r *SQLiteRepository) UpsertTasks(ctx context.Context, in []model.Task) error {
	if len(in) == 0 {
		return nil
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO tasks (id, title, description, is_completed, completed_date, due_date, created_at, updated_at,
				energy_level, priority, location_id, location_reminder_enabled, reminder_triggered, is_archived,
				remote_id, last_synced_at, pending_sync, is_snoozed, snooze_until, snooze_count)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, (SELECT id FROM locations WHERE id = ?), ?, ?, ?, ?, ?, 0, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				description = excluded.description,
				is_completed = excluded.is_completed,
				completed_date = excluded.completed_date,
				due_date = excluded.due_date,
				created_at = excluded.created_at,
				updated_at = excluded.updated_at,
				energy_level = excluded.energy_level,
				priority = excluded.priority,
				location_id = excluded.location_id,
				location_reminder_enabled = excluded.location_reminder_enabled,
				reminder_triggered = excluded.reminder_triggered,
				is_archived = excluded.is_archived,
				remote_id = excluded.remote_id,
				last_synced_at = excluded.last_synced_at,
				pending_sync = 0,
				is_snoozed = excluded.is_snoozed,
				snooze_until = excluded.snooze_until,
				snooze_count = excluded.snooze_count`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, t := range in {
			if _, err := stmt.ExecContext(ctx,
				t.ID, t.Title, t.Description, boolInt(t.IsCompleted), nullTime(t.CompletedDate), nullTime(t.DueDate),
				mustTime(t.CreatedAt), mustTime(t.UpdatedAt), string(t.EnergyLevel), string(t.Priority),
				nullInt64(t.LocationID), boolInt(t.LocationReminderEnabled), boolInt(t.ReminderTriggered),
				boolInt(t.IsArchived), nullString(t.RemoteID), nullTime(t.LastSyncedAt), boolInt(t.IsSnoozed),
				nullTime(t.SnoozeUntil), t.SnoozeCount,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListTasksPendingSince returns tasks awaiting push that changed after the
// watermark.
func (r *SQLiteRepository) ListTasksPendingSince(ctx context.Context, since time.Time) ([]model.Task, error) {
	w := mustTime(since)
	return r.queryTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE pending_sync = 1 AND (updated_at > ? OR created_at > ?)
		ORDER BY id ASC`, w, w)
}

func (r *SQLiteRepository) MarkTaskSynced(ctx context.Context, id int64, remoteID string, syncedAt, version time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET remote_id = ?, last_synced_at = ?,
			pending_sync = CASE WHEN updated_at = ? THEN 0 ELSE pending_sync END
		WHERE id = ?`,
		nullString(remoteID), mustTime(syncedAt), mustTime(version), id,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM sync_meta WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (r *SQLiteRepository) SetMeta(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_meta (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, mustTime(time.Now()),
	)
	return err
}

func (r *SQLiteRepository) DeleteMeta(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_meta WHERE key = ?`, key)
	return err
}
