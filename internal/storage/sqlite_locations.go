package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sandeepkv93/zenith/internal/model"
)

const locationColumns = `id, name, latitude, longitude, radius, address`

func (r *SQLiteRepository) CreateLocation(ctx context.Context, in model.Location) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO locations (name, latitude, longitude, radius, address)
		VALUES (?, ?, ?, ?, ?)`,
		in.Name, in.Latitude, in.Longitude, in.Radius, nullString(in.Address),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) GetLocation(ctx context.Context, id int64) (model.Location, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+locationColumns+` FROM locations WHERE id = ?`, id)
	loc, err := scanLocation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Location{}, ErrNotFound
		}
		return model.Location{}, err
	}
	return loc, nil
}

func (r *SQLiteRepository) UpdateLocation(ctx context.Context, in model.Location) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE locations SET name = ?, latitude = ?, longitude = ?, radius = ?, address = ?
		WHERE id = ?`,
		in.Name, in.Latitude, in.Longitude, in.Radius, nullString(in.Address), in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

// DeleteLocation removes the location. Tasks pointing at it survive with the
// binding and its reminder cleared, stamped at and queued for the next push.
func (r *SQLiteRepository) DeleteLocation(ctx context.Context, id int64, at time.Time) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
UPDATE tasks SET location_id = NULL, location_reminder_enabled = 0, reminder_triggered = 0,
	updated_at = ?, pending_sync = 1
WHERE location_id = ?`, mustTime(at), id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM locations WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return checkRowsAffected(res)
	})
}

func (r *SQLiteRepository) ListLocations(ctx context.Context, filter LocationListFilter) ([]model.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations ORDER BY name ASC, id ASC`
	args := make([]any, 0, 2)
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Location, 0)
	for rows.Next() {
		loc, scanErr := scanLocation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

// UpsertLocations writes pulled locations keyed by their local id. Remote
// values replace local ones.
func (r *SQLiteRepository) UpsertLocations(ctx context.Context, in []model.Location) error {
	if len(in) == 0 {
		return nil
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO locations (id, name, latitude, longitude, radius, address)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				latitude = excluded.latitude,
				longitude = excluded.longitude,
				radius = excluded.radius,
				address = excluded.address`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, loc := range in {
			if _, err := stmt.ExecContext(ctx, loc.ID, loc.Name, loc.Latitude, loc.Longitude, loc.Radius, nullString(loc.Address)); err != nil {
				return err
			}
		}
		return nil
	})
}

func scanLocation(s scanner) (model.Location, error) {
	var out model.Location
	var address sql.NullString
	if err := s.Scan(&out.ID, &out.Name, &out.Latitude, &out.Longitude, &out.Radius, &address); err != nil {
		return model.Location{}, err
	}
	out.Address = address.String
	return out, nil
}
