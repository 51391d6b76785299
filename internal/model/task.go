package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidEnergy   = errors.New("model: invalid energy level")
	ErrInvalidPriority = errors.New("model: invalid task priority")
	ErrInvalidTask     = errors.New("model: invalid task")
)

// EnergyLevel is the capacity a task requires. Levels are ordered LOW < MEDIUM < HIGH.
type EnergyLevel string

const (
	EnergyLow    EnergyLevel = "LOW"
	EnergyMedium EnergyLevel = "MEDIUM"
	EnergyHigh   EnergyLevel = "HIGH"
)

func (e EnergyLevel) IsValid() bool {
	switch e {
	case EnergyLow, EnergyMedium, EnergyHigh:
		return true
	default:
		return false
	}
}

// Rank returns the ordinal of the level, or -1 for an unknown level.
func (e EnergyLevel) Rank() int {
	switch e {
	case EnergyLow:
		return 0
	case EnergyMedium:
		return 1
	case EnergyHigh:
		return 2
	default:
		return -1
	}
}

func ParseEnergyLevel(raw string) (EnergyLevel, error) {
	e := EnergyLevel(strings.ToUpper(strings.TrimSpace(raw)))
	if !e.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidEnergy, raw)
	}
	return e, nil
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	default:
		return -1
	}
}

func ParsePriority(raw string) (Priority, error) {
	p := Priority(strings.ToUpper(strings.TrimSpace(raw)))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, raw)
	}
	return p, nil
}

type Task struct {
	ID                      int64
	Title                   string `validate:"required"`
	Description             string
	IsCompleted             bool
	CompletedDate           *time.Time
	DueDate                 *time.Time
	CreatedAt               time.Time `validate:"required"`
	UpdatedAt               time.Time `validate:"required"`
	EnergyLevel             EnergyLevel
	Priority                Priority
	LocationID              *int64
	LocationReminderEnabled bool
	ReminderTriggered       bool
	IsArchived              bool
	RemoteID                string
	LastSyncedAt            *time.Time
	PendingSync             bool
	IsSnoozed               bool
	SnoozeUntil             *time.Time
	SnoozeCount             int `validate:"gte=0"`
}

// IsActive reports whether the task belongs in active views: not completed,
// not archived and not snoozed.
func (t Task) IsActive() bool {
	return !t.IsCompleted && !t.IsArchived && !t.IsSnoozed
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTask, err)
	}
	if !t.EnergyLevel.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidEnergy, t.EnergyLevel)
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	if t.IsSnoozed != (t.SnoozeUntil != nil) {
		return fmt.Errorf("%w: snooze_until must be set exactly when snoozed", ErrInvalidTask)
	}
	if t.ReminderTriggered && !t.LocationReminderEnabled {
		return fmt.Errorf("%w: reminder triggered without location reminder enabled", ErrInvalidTask)
	}
	if t.CompletedDate != nil && !t.IsCompleted {
		return fmt.Errorf("%w: completed_date must be nil when task is not completed", ErrInvalidTask)
	}
	if t.UpdatedAt.Before(t.CreatedAt) {
		return fmt.Errorf("%w: updated_at before created_at", ErrInvalidTask)
	}
	return nil
}
