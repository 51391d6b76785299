// Package tasks holds the task state engine: pure transitions over a
// model.Task and the Service that applies them against the store.
package tasks

import (
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/zenith/internal/model"
)

var ErrSnoozeInPast = errors.New("tasks: snooze time must be in the future")

// touch refreshes UpdatedAt and marks the task for the next push. UpdatedAt
// never moves backwards and never drops below CreatedAt.
func touch(t model.Task, now time.Time) model.Task {
	if now.After(t.UpdatedAt) {
		t.UpdatedAt = now
	}
	if t.UpdatedAt.Before(t.CreatedAt) {
		t.UpdatedAt = t.CreatedAt
	}
	t.PendingSync = true
	return t
}

// Complete marks the task done. Completing a completed task re-applies the
// same fields.
func Complete(t model.Task, completedDate, now time.Time) model.Task {
	t.IsCompleted = true
	t.CompletedDate = &completedDate
	return touch(t, now)
}

func Reopen(t model.Task, now time.Time) model.Task {
	t.IsCompleted = false
	t.CompletedDate = nil
	return touch(t, now)
}

func Archive(t model.Task, now time.Time) model.Task {
	t.IsArchived = true
	return touch(t, now)
}

func Unarchive(t model.Task, now time.Time) model.Task {
	t.IsArchived = false
	return touch(t, now)
}

func Snooze(t model.Task, until, now time.Time) (model.Task, error) {
	if !until.After(now) {
		return t, fmt.Errorf("%w: %s is not after %s", ErrSnoozeInPast, until.Format(time.RFC3339), now.Format(time.RFC3339))
	}
	t.IsSnoozed = true
	t.SnoozeUntil = &until
	t.SnoozeCount++
	return touch(t, now), nil
}

func Unsnooze(t model.Task, now time.Time) model.Task {
	t.IsSnoozed = false
	t.SnoozeUntil = nil
	return touch(t, now)
}

// SnoozeExpired reports whether a snoozed, open task is due to wake at now.
func SnoozeExpired(t model.Task, now time.Time) bool {
	return t.IsSnoozed && !t.IsCompleted && !t.IsArchived && t.SnoozeUntil != nil && !t.SnoozeUntil.After(now)
}

func ChangePriority(t model.Task, p model.Priority, now time.Time) (model.Task, error) {
	if !p.IsValid() {
		return t, fmt.Errorf("%w: %q", model.ErrInvalidPriority, p)
	}
	t.Priority = p
	return touch(t, now), nil
}

func ChangeEnergy(t model.Task, e model.EnergyLevel, now time.Time) (model.Task, error) {
	if !e.IsValid() {
		return t, fmt.Errorf("%w: %q", model.ErrInvalidEnergy, e)
	}
	t.EnergyLevel = e
	return touch(t, now), nil
}

// SetLocationReminder binds the task to a location. Disabling the reminder or
// moving it to another location clears the triggered flag.
func SetLocationReminder(t model.Task, locationID *int64, enabled bool, now time.Time) model.Task {
	moved := (t.LocationID == nil) != (locationID == nil) ||
		(t.LocationID != nil && locationID != nil && *t.LocationID != *locationID)
	t.LocationID = locationID
	t.LocationReminderEnabled = enabled && locationID != nil
	if !t.LocationReminderEnabled || moved {
		t.ReminderTriggered = false
	}
	return touch(t, now)
}

func MarkReminderTriggered(t model.Task, now time.Time) model.Task {
	if !t.LocationReminderEnabled {
		return t
	}
	t.ReminderTriggered = true
	return touch(t, now)
}

func ResetReminder(t model.Task, now time.Time) model.Task {
	if !t.ReminderTriggered {
		return t
	}
	t.ReminderTriggered = false
	return touch(t, now)
}
