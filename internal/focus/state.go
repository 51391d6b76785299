// Package focus manages focus sessions. The store's active-session flag is
// the source of truth and every transition re-reads it first.
package focus

import (
	"time"

	"github.com/sandeepkv93/zenith/internal/model"
)

// State is either Inactive or Active.
type State interface {
	isState()
}

type Inactive struct{}

func (Inactive) isState() {}

// Active describes the running session. DurationMinutes is nil for an
// indefinite session.
type Active struct {
	SessionID       int64
	StartTime       time.Time
	DurationMinutes *int64
	Activity        model.ActivityType
}

func (Active) isState() {}

// Remaining returns the time left in the session. ok is false for an
// indefinite session. An overrun session reports zero and stays active.
func (a Active) Remaining(now time.Time) (remaining time.Duration, ok bool) {
	if a.DurationMinutes == nil {
		return 0, false
	}
	left := a.EndsAt().Sub(now)
	if left < 0 {
		left = 0
	}
	return left, true
}

// EndsAt is the planned end of the session, or the zero time when indefinite.
func (a Active) EndsAt() time.Time {
	if a.DurationMinutes == nil {
		return time.Time{}
	}
	return a.StartTime.Add(time.Duration(*a.DurationMinutes) * time.Minute)
}

func (a Active) Expired(now time.Time) bool {
	left, ok := a.Remaining(now)
	return ok && left == 0
}

func activeFrom(s model.FocusSession, activity model.ActivityType) Active {
	var planned *int64
	if s.PlannedMinutes != nil {
		v := *s.PlannedMinutes
		planned = &v
	}
	if activity == "" {
		activity = model.ActivityUnknown
	}
	return Active{
		SessionID:       s.ID,
		StartTime:       s.StartTime,
		DurationMinutes: planned,
		Activity:        activity,
	}
}
