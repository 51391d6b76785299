package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sandeepkv93/zenith/internal/model"
)

const focusColumns = `id, start_time, end_time, duration_minutes, planned_minutes, is_active, created_at, updated_at,
	remote_id, pending_sync, last_synced_at`

func (r *SQLiteRepository) CreateFocusSession(ctx context.Context, in model.FocusSession) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO focus_sessions (start_time, end_time, duration_minutes, planned_minutes, is_active,
			created_at, updated_at, remote_id, pending_sync, last_synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		mustTime(in.StartTime), nullTime(in.EndTime), nullInt64(in.DurationMinutes), nullInt64(in.PlannedMinutes),
		boolInt(in.IsActive), mustTime(in.CreatedAt), mustTime(in.UpdatedAt), nullString(in.RemoteID),
		boolInt(in.PendingSync), nullTime(in.LastSyncedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrActiveSessionExists
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) GetFocusSession(ctx context.Context, id int64) (model.FocusSession, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+focusColumns+` FROM focus_sessions WHERE id = ?`, id)
	return scanFocusRow(row)
}

func (r *SQLiteRepository) GetActiveFocusSession(ctx context.Context) (model.FocusSession, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+focusColumns+` FROM focus_sessions WHERE is_active = 1 LIMIT 1`)
	return scanFocusRow(row)
}

func (r *SQLiteRepository) UpdateFocusSession(ctx context.Context, in model.FocusSession) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE focus_sessions
		SET start_time = ?, end_time = ?, duration_minutes = ?, planned_minutes = ?, is_active = ?, updated_at = ?,
			remote_id = ?, pending_sync = ?, last_synced_at = ?
		WHERE id = ?`,
		mustTime(in.StartTime), nullTime(in.EndTime), nullInt64(in.DurationMinutes), nullInt64(in.PlannedMinutes),
		boolInt(in.IsActive), mustTime(in.UpdatedAt), nullString(in.RemoteID), boolInt(in.PendingSync),
		nullTime(in.LastSyncedAt), in.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrActiveSessionExists
		}
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteFocusSession(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM focus_sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListFocusSessions(ctx context.Context, filter FocusSessionListFilter) ([]model.FocusSession, error) {
	query := `SELECT ` + focusColumns + ` FROM focus_sessions`
	args := make([]any, 0, 3)
	if filter.Active != nil {
		query += ` WHERE is_active = ?`
		args = append(args, boolInt(*filter.Active))
	}
	query += ` ORDER BY start_time DESC, id DESC`
	query += applyPagination(&args, filter.Limit, filter.Offset)
	return r.queryFocusSessions(ctx, query, args...)
}

// UpsertFocusSessions writes pulled sessions keyed by local id. A remote
// session marked active is skipped when a different local session is already
// active, so at most one active session exists at any time.
func (r *SQLiteRepository) UpsertFocusSessions(ctx context.Context, in []model.FocusSession) (int, error) {
	if len(in) == 0 {
		return 0, nil
	}
	skipped := 0
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		skipped = 0
		for _, s := range in {
			if s.IsActive {
				var others int
				if err := tx.QueryRowContext(ctx,
					`SELECT COUNT(1) FROM focus_sessions WHERE is_active = 1 AND id != ?`, s.ID,
				).Scan(&others); err != nil {
					return err
				}
				if others > 0 {
					skipped++
					continue
				}
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO focus_sessions (id, start_time, end_time, duration_minutes, planned_minutes, is_active,
					created_at, updated_at, remote_id, pending_sync, last_synced_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
				ON CONFLICT(id) DO UPDATE SET
					start_time = excluded.start_time,
					end_time = excluded.end_time,
					duration_minutes = excluded.duration_minutes,
					planned_minutes = excluded.planned_minutes,
					is_active = excluded.is_active,
					created_at = excluded.created_at,
					updated_at = excluded.updated_at,
					remote_id = excluded.remote_id,
					pending_sync = 0,
					last_synced_at = excluded.last_synced_at`,
				s.ID, mustTime(s.StartTime), nullTime(s.EndTime), nullInt64(s.DurationMinutes), nullInt64(s.PlannedMinutes),
				boolInt(s.IsActive), mustTime(s.CreatedAt), mustTime(s.UpdatedAt), nullString(s.RemoteID), nullTime(s.LastSyncedAt),
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return skipped, nil
}

func (r *SQLiteRepository) ListFocusSessionsPendingSince(ctx context.Context, since time.Time) ([]model.FocusSession, error) {
	w := mustTime(since)
	return r.queryFocusSessions(ctx, `
		SELECT `+focusColumns+` FROM focus_sessions
		WHERE pending_sync = 1 AND (updated_at > ? OR created_at > ?)
		ORDER BY id ASC`, w, w)
}

// MarkFocusSessionSynced records a successful push. The pending flag is only
// cleared when the row still carries the pushed version, so an edit made
// during the push stays pending.
func (r *SQLiteRepository) MarkFocusSessionSynced(ctx context.Context, id int64, remoteID string, syncedAt, version time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE focus_sessions
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

func (r *SQLiteRepository) queryFocusSessions(ctx context.Context, query string, args ...any) ([]model.FocusSession, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.FocusSession, 0)
	for rows.Next() {
		s, scanErr := scanFocusSession(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanFocusRow(row *sql.Row) (model.FocusSession, error) {
	s, err := scanFocusSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.FocusSession{}, ErrNotFound
		}
		return model.FocusSession{}, err
	}
	return s, nil
}

func scanFocusSession(s scanner) (model.FocusSession, error) {
	var out model.FocusSession
	var start, created, updated string
	var end, remoteID, lastSynced sql.NullString
	var duration, planned sql.NullInt64
	var active, pending int
	if err := s.Scan(&out.ID, &start, &end, &duration, &planned, &active, &created, &updated,
		&remoteID, &pending, &lastSynced); err != nil {
		return model.FocusSession{}, err
	}
	var err error
	if out.StartTime, err = parseRequiredTime(start); err != nil {
		return model.FocusSession{}, err
	}
	if out.CreatedAt, err = parseRequiredTime(created); err != nil {
		return model.FocusSession{}, err
	}
	if out.UpdatedAt, err = parseRequiredTime(updated); err != nil {
		return model.FocusSession{}, err
	}
	if out.EndTime, err = parseNullableTime(end); err != nil {
		return model.FocusSession{}, err
	}
	if out.LastSyncedAt, err = parseNullableTime(lastSynced); err != nil {
		return model.FocusSession{}, err
	}
	out.DurationMinutes = parseNullableInt64(duration)
	out.PlannedMinutes = parseNullableInt64(planned)
	out.IsActive = active == 1
	out.PendingSync = pending == 1
	out.RemoteID = remoteID.String
	return out, nil
}
