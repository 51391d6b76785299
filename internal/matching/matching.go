// Package matching selects tasks that fit the user's current energy or the
// time of day. Every function here is pure.
package matching

import (
	"sort"

	"github.com/sandeepkv93/zenith/internal/model"
)

// ByEnergyLevel returns the active tasks that fit the requested energy.
//
// LOW keeps tasks at or below LOW, MEDIUM keeps MEDIUM tasks only and HIGH
// keeps every active task. The MEDIUM rule is an exact match, not "at or
// below"; callers relying on that should not assume the three levels nest.
func ByEnergyLevel(tasks []model.Task, level model.EnergyLevel) []model.Task {
	active := Active(tasks)
	switch level {
	case model.EnergyLow:
		out := filter(active, func(t model.Task) bool {
			return t.EnergyLevel.Rank() <= model.EnergyLow.Rank()
		})
		sort.SliceStable(out, func(i, j int) bool {
			ri, rj := out[i].EnergyLevel.Rank(), out[j].EnergyLevel.Rank()
			if ri != rj {
				return ri < rj
			}
			return dueThenPriorityLess(out[i], out[j])
		})
		return out
	case model.EnergyMedium:
		out := filter(active, func(t model.Task) bool {
			return t.EnergyLevel == model.EnergyMedium
		})
		SortByDueThenPriority(out)
		return out
	case model.EnergyHigh:
		SortByDueThenPriority(active)
		return active
	default:
		return []model.Task{}
	}
}

// Bucket is the task selection suggested for an hour of the day.
type Bucket string

const (
	BucketLow    Bucket = "LOW"
	BucketMedium Bucket = "MEDIUM"
	BucketAll    Bucket = "ALL"
)

// BucketForHour is the static hour lookup table: 5-8 and 15-18 suggest
// MEDIUM, 9-14 suggests everything and the remaining hours suggest LOW.
func BucketForHour(hour int) Bucket {
	switch {
	case hour >= 5 && hour <= 8:
		return BucketMedium
	case hour >= 9 && hour <= 14:
		return BucketAll
	case hour >= 15 && hour <= 18:
		return BucketMedium
	default:
		return BucketLow
	}
}

// Energy maps a bucket onto the energy level whose selection it uses.
func (b Bucket) Energy() model.EnergyLevel {
	switch b {
	case BucketAll:
		return model.EnergyHigh
	case BucketMedium:
		return model.EnergyMedium
	default:
		return model.EnergyLow
	}
}

func SuggestByHourOfDay(tasks []model.Task, hour int) []model.Task {
	return ByEnergyLevel(tasks, BucketForHour(hour).Energy())
}

// Active drops completed, archived and snoozed tasks. The input is not modified.
func Active(tasks []model.Task) []model.Task {
	return filter(tasks, model.Task.IsActive)
}

// SortByDueThenPriority orders tasks by due date ascending with undated tasks
// last, then by priority from HIGH to LOW, then by id.
func SortByDueThenPriority(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return dueThenPriorityLess(tasks[i], tasks[j])
	})
}

func dueThenPriorityLess(a, b model.Task) bool {
	switch {
	case a.DueDate == nil && b.DueDate != nil:
		return false
	case a.DueDate != nil && b.DueDate == nil:
		return true
	case a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
		return a.DueDate.Before(*b.DueDate)
	}
	if pa, pb := a.Priority.Rank(), b.Priority.Rank(); pa != pb {
		return pa > pb
	}
	return a.ID < b.ID
}

func filter(tasks []model.Task, keep func(model.Task) bool) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
