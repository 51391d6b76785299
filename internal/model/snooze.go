package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidSnoozeOption = errors.New("model: invalid snooze option")

type SnoozeOption string

const (
	SnoozeOneHour       SnoozeOption = "1h"
	SnoozeThreeHours    SnoozeOption = "3h"
	SnoozeUntilTomorrow SnoozeOption = "tomorrow"
	SnoozeUntilNextWeek SnoozeOption = "week"
)

func ParseSnoozeOption(raw string) (SnoozeOption, error) {
	o := SnoozeOption(strings.ToLower(strings.TrimSpace(raw)))
	switch o {
	case SnoozeOneHour, SnoozeThreeHours, SnoozeUntilTomorrow, SnoozeUntilNextWeek:
		return o, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSnoozeOption, raw)
	}
}

// Until returns the time a task snoozed at now should reappear.
// "tomorrow" means 09:00 the next day in now's location.
func (o SnoozeOption) Until(now time.Time) (time.Time, error) {
	switch o {
	case SnoozeOneHour:
		return now.Add(time.Hour), nil
	case SnoozeThreeHours:
		return now.Add(3 * time.Hour), nil
	case SnoozeUntilTomorrow:
		y, m, d := now.AddDate(0, 0, 1).Date()
		return time.Date(y, m, d, 9, 0, 0, 0, now.Location()), nil
	case SnoozeUntilNextWeek:
		return now.AddDate(0, 0, 7), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidSnoozeOption, o)
	}
}
