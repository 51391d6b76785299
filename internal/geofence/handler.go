// Package geofence reacts to entering and leaving saved locations by raising
// the location reminders of tasks bound to them.
package geofence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sandeepkv93/zenith/internal/model"
	"github.com/sandeepkv93/zenith/internal/storage"
	"github.com/sandeepkv93/zenith/internal/tasks"
)

type Store interface {
	storage.TaskStore
	storage.LocationStore
}

type Handler struct {
	store    Store
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewHandler(store Store, notifier Notifier, logger *slog.Logger, now func() time.Time) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	return &Handler{store: store, notifier: notifier, logger: logger.With("component", "geofence"), now: now}
}

// OnEnter marks every open task with an armed reminder at the location as
// triggered and notifies once per task. Tasks already triggered are skipped.
// It returns the number of notifications raised.
func (h *Handler) OnEnter(ctx context.Context, locationID int64) (int, error) {
	loc, err := h.store.GetLocation(ctx, locationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.logger.Debug("enter event for unknown location", "location_id", locationID)
			return 0, nil
		}
		return 0, fmt.Errorf("load location: %w", err)
	}
	candidates, err := h.reminderTasks(ctx, locationID)
	if err != nil {
		return 0, err
	}
	raised := 0
	for _, t := range candidates {
		if !t.IsActive() || t.ReminderTriggered {
			continue
		}
		next := tasks.MarkReminderTriggered(t, h.now())
		if err := h.store.UpdateTask(ctx, next); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return raised, fmt.Errorf("mark reminder triggered: %w", err)
		}
		n := Notification{
			Title:      "You're at " + loc.Name,
			Body:       t.Title,
			TaskID:     t.ID,
			LocationID: loc.ID,
		}
		if err := h.notifier.Notify(ctx, n); err != nil {
			h.logger.Warn("notify failed", "task_id", t.ID, "location_id", loc.ID, "err", err)
		}
		raised++
	}
	h.logger.Info("entered location", "location_id", locationID, "reminders", raised)
	return raised, nil
}

// OnExit re-arms the reminders of tasks at the location so the next visit
// notifies again.
func (h *Handler) OnExit(ctx context.Context, locationID int64) (int, error) {
	candidates, err := h.reminderTasks(ctx, locationID)
	if err != nil {
		return 0, err
	}
	reset := 0
	for _, t := range candidates {
		if !t.ReminderTriggered {
			continue
		}
		if err := h.store.UpdateTask(ctx, tasks.ResetReminder(t, h.now())); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return reset, fmt.Errorf("reset reminder: %w", err)
		}
		reset++
	}
	h.logger.Info("left location", "location_id", locationID, "reset", reset)
	return reset, nil
}

func (h *Handler) reminderTasks(ctx context.Context, locationID int64) ([]model.Task, error) {
	out, err := h.store.ListTasks(ctx, storage.TaskListFilter{
		LocationID:      storage.Int64(locationID),
		ReminderEnabled: storage.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("list location tasks: %w", err)
	}
	return out, nil
}
