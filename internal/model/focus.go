package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidFocusSession = errors.New("model: invalid focus session")

type FocusSession struct {
	ID        int64
	StartTime time.Time `validate:"required"`
	EndTime   *time.Time
	// DurationMinutes is the elapsed length, set when the session ends.
	DurationMinutes *int64
	// PlannedMinutes is the requested length; nil means indefinite.
	PlannedMinutes *int64
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	RemoteID       string
	PendingSync    bool
	LastSyncedAt   *time.Time
}

func (s FocusSession) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFocusSession, err)
	}
	if s.IsActive && (s.EndTime != nil || s.DurationMinutes != nil) {
		return fmt.Errorf("%w: active session must not have end_time or duration", ErrInvalidFocusSession)
	}
	if !s.IsActive && (s.EndTime == nil || s.DurationMinutes == nil) {
		return fmt.Errorf("%w: ended session requires end_time and duration", ErrInvalidFocusSession)
	}
	if s.PlannedMinutes != nil && *s.PlannedMinutes <= 0 {
		return fmt.Errorf("%w: planned duration must be positive", ErrInvalidFocusSession)
	}
	return nil
}

// ActivityType is a coarse activity label reported by the activity classifier.
type ActivityType string

const (
	ActivityStill   ActivityType = "STILL"
	ActivityWalking ActivityType = "WALKING"
	ActivityDriving ActivityType = "DRIVING"
	ActivityUnknown ActivityType = "UNKNOWN"
)

func (a ActivityType) IsValid() bool {
	switch a {
	case ActivityStill, ActivityWalking, ActivityDriving, ActivityUnknown:
		return true
	default:
		return false
	}
}

// ParseActivity maps classifier labels onto activity types. Unrecognised
// labels map to ActivityUnknown.
func ParseActivity(label string) ActivityType {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "still":
		return ActivityStill
	case "in_vehicle", "driving":
		return ActivityDriving
	case "on_foot", "walking":
		return ActivityWalking
	default:
		return ActivityUnknown
	}
}
