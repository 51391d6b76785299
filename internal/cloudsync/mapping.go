package cloudsync

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/zenith/internal/model"
)

var errMalformed = errors.New("cloudsync: malformed document")

// Remote documents mirror the local schema minus pendingSync and
// lastSyncedAt, which stay local.

func taskFields(t model.Task) map[string]any {
	return map[string]any{
		"id":                      t.ID,
		"title":                   t.Title,
		"description":             t.Description,
		"isCompleted":             t.IsCompleted,
		"completedDate":           timeOrNil(t.CompletedDate),
		"dueDate":                 timeOrNil(t.DueDate),
		"createdAt":               t.CreatedAt.UTC(),
		"updatedAt":               t.UpdatedAt.UTC(),
		"energyLevel":             string(t.EnergyLevel),
		"priority":                string(t.Priority),
		"locationId":              int64OrNil(t.LocationID),
		"locationReminderEnabled": t.LocationReminderEnabled,
		"reminderTriggered":       t.ReminderTriggered,
		"isArchived":              t.IsArchived,
		"isSnoozed":               t.IsSnoozed,
		"snoozeUntil":             timeOrNil(t.SnoozeUntil),
		"snoozeCount":             int64(t.SnoozeCount),
	}
}

// taskFromDocument maps a pulled document. id and title are required;
// unknown energy and priority values fall back to MEDIUM and LOW, and missing
// timestamps fall back to now.
func taskFromDocument(doc Document, now time.Time) (model.Task, error) {
	f := doc.Fields
	id, ok := fieldInt64(f, "id")
	if !ok || id <= 0 {
		return model.Task{}, fmt.Errorf("%w: task %q has no id", errMalformed, doc.ID)
	}
	title, ok := fieldString(f, "title")
	if !ok || strings.TrimSpace(title) == "" {
		return model.Task{}, fmt.Errorf("%w: task %q has no title", errMalformed, doc.ID)
	}
	description, _ := fieldString(f, "description")

	energy, err := model.ParseEnergyLevel(stringOr(f, "energyLevel", ""))
	if err != nil {
		energy = model.EnergyMedium
	}
	priority, err := model.ParsePriority(stringOr(f, "priority", ""))
	if err != nil {
		priority = model.PriorityLow
	}

	created := timeOr(f, "createdAt", now)
	updated := timeOr(f, "updatedAt", now)
	if updated.Before(created) {
		updated = created
	}
	synced := now

	t := model.Task{
		ID:                      id,
		Title:                   title,
		Description:             description,
		IsCompleted:             fieldBool(f, "isCompleted"),
		DueDate:                 fieldTime(f, "dueDate"),
		CreatedAt:               created,
		UpdatedAt:               updated,
		EnergyLevel:             energy,
		Priority:                priority,
		LocationReminderEnabled: fieldBool(f, "locationReminderEnabled"),
		IsArchived:              fieldBool(f, "isArchived"),
		RemoteID:                doc.ID,
		LastSyncedAt:            &synced,
		PendingSync:             false,
	}
	if v, ok := fieldInt64(f, "locationId"); ok {
		t.LocationID = &v
	}
	if t.IsCompleted {
		t.CompletedDate = fieldTime(f, "completedDate")
	}
	if t.LocationReminderEnabled {
		t.ReminderTriggered = fieldBool(f, "reminderTriggered")
	}
	if until := fieldTime(f, "snoozeUntil"); until != nil && fieldBool(f, "isSnoozed") {
		t.IsSnoozed = true
		t.SnoozeUntil = until
	}
	if n, ok := fieldInt64(f, "snoozeCount"); ok && n > 0 {
		t.SnoozeCount = int(n)
	}
	if err := t.Validate(); err != nil {
		return model.Task{}, fmt.Errorf("%w: task %q: %v", errMalformed, doc.ID, err)
	}
	return t, nil
}

func locationFields(l model.Location) map[string]any {
	fields := map[string]any{
		"id":        l.ID,
		"name":      l.Name,
		"latitude":  l.Latitude,
		"longitude": l.Longitude,
		"radius":    l.Radius,
		"address":   nil,
	}
	if l.Address != "" {
		fields["address"] = l.Address
	}
	return fields
}

func locationFromDocument(doc Document) (model.Location, error) {
	f := doc.Fields
	id, ok := fieldInt64(f, "id")
	if !ok || id <= 0 {
		return model.Location{}, fmt.Errorf("%w: location %q has no id", errMalformed, doc.ID)
	}
	name, ok := fieldString(f, "name")
	if !ok || strings.TrimSpace(name) == "" {
		return model.Location{}, fmt.Errorf("%w: location %q has no name", errMalformed, doc.ID)
	}
	lat, okLat := fieldFloat(f, "latitude")
	lng, okLng := fieldFloat(f, "longitude")
	if !okLat || !okLng {
		return model.Location{}, fmt.Errorf("%w: location %q has no coordinates", errMalformed, doc.ID)
	}
	radius, _ := fieldFloat(f, "radius")
	address, _ := fieldString(f, "address")
	loc := model.Location{
		ID:        id,
		Name:      name,
		Latitude:  lat,
		Longitude: lng,
		Radius:    radius,
		Address:   address,
	}.WithDefaults()
	if err := loc.Validate(); err != nil {
		return model.Location{}, fmt.Errorf("%w: location %q: %v", errMalformed, doc.ID, err)
	}
	return loc, nil
}

func focusFields(s model.FocusSession) map[string]any {
	return map[string]any{
		"id":             s.ID,
		"startTime":      s.StartTime.UTC(),
		"endTime":        timeOrNil(s.EndTime),
		"duration":       int64OrNil(s.DurationMinutes),
		"plannedMinutes": int64OrNil(s.PlannedMinutes),
		"isActive":       s.IsActive,
		"createdAt":      s.CreatedAt.UTC(),
		"updatedAt":      s.UpdatedAt.UTC(),
	}
}

// focusFromDocument maps a pulled session. id and startTime are required and
// a missing isActive reads as active.
func focusFromDocument(doc Document, now time.Time) (model.FocusSession, error) {
	f := doc.Fields
	id, ok := fieldInt64(f, "id")
	if !ok || id <= 0 {
		return model.FocusSession{}, fmt.Errorf("%w: focus session %q has no id", errMalformed, doc.ID)
	}
	start := fieldTime(f, "startTime")
	if start == nil {
		return model.FocusSession{}, fmt.Errorf("%w: focus session %q has no start time", errMalformed, doc.ID)
	}
	active := true
	if v, ok := f["isActive"].(bool); ok {
		active = v
	}
	created := timeOr(f, "createdAt", now)
	updated := timeOr(f, "updatedAt", now)
	if updated.Before(created) {
		updated = created
	}
	synced := now
	s := model.FocusSession{
		ID:           id,
		StartTime:    *start,
		EndTime:      fieldTime(f, "endTime"),
		IsActive:     active,
		CreatedAt:    created,
		UpdatedAt:    updated,
		RemoteID:     doc.ID,
		LastSyncedAt: &synced,
	}
	if v, ok := fieldInt64(f, "duration"); ok {
		s.DurationMinutes = &v
	}
	if v, ok := fieldInt64(f, "plannedMinutes"); ok && v > 0 {
		s.PlannedMinutes = &v
	}
	if err := s.Validate(); err != nil {
		return model.FocusSession{}, fmt.Errorf("%w: focus session %q: %v", errMalformed, doc.ID, err)
	}
	return s, nil
}

func timeOrNil(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC()
}

func int64OrNil(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func fieldString(f map[string]any, key string) (string, bool) {
	v, ok := f[key].(string)
	return v, ok
}

func stringOr(f map[string]any, key, fallback string) string {
	if v, ok := fieldString(f, key); ok {
		return v
	}
	return fallback
}

func fieldBool(f map[string]any, key string) bool {
	v, _ := f[key].(bool)
	return v
}

func fieldInt64(f map[string]any, key string) (int64, bool) {
	switch v := f[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func fieldFloat(f map[string]any, key string) (float64, bool) {
	switch v := f[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// fieldTime accepts Firestore timestamps, epoch milliseconds and RFC 3339
// strings.
func fieldTime(f map[string]any, key string) *time.Time {
	var out time.Time
	switch v := f[key].(type) {
	case time.Time:
		out = v
	case *time.Time:
		if v == nil {
			return nil
		}
		out = *v
	case int64:
		out = time.UnixMilli(v)
	case float64:
		out = time.UnixMilli(int64(v))
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil
		}
		out = parsed
	default:
		return nil
	}
	out = out.UTC()
	return &out
}

func timeOr(f map[string]any, key string, fallback time.Time) time.Time {
	if v := fieldTime(f, key); v != nil {
		return *v
	}
	return fallback
}
