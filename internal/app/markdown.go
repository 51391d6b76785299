package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/zenith/internal/cloudsync"
	"github.com/sandeepkv93/zenith/internal/model"
	"github.com/sandeepkv93/zenith/internal/tasks"
)

// TaskTable renders tasks as a markdown table for the detail pane.
func TaskTable(list []model.Task, now time.Time) string {
	if len(list) == 0 {
		return "_No tasks._\n"
	}
	var b strings.Builder
	b.WriteString("| # | Title | Energy | Priority | Due | State |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, t := range list {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s |\n",
			t.ID, escapeCell(t.Title), t.EnergyLevel, t.Priority, dueLabel(t.DueDate, now), TaskState(t))
	}
	return b.String()
}

// TaskState is a short label for a task's lifecycle position.
func TaskState(t model.Task) string {
	switch {
	case t.IsArchived:
		return "archived"
	case t.IsCompleted:
		return "done"
	case t.IsSnoozed && t.SnoozeUntil != nil:
		return "snoozed until " + t.SnoozeUntil.Local().Format("Jan 2 15:04")
	case t.ReminderTriggered:
		return "nearby"
	default:
		return "open"
	}
}

func dueLabel(due *time.Time, now time.Time) string {
	if due == nil {
		return "-"
	}
	d := due.Local()
	label := d.Format("Mon Jan 2")
	if d.Before(now) {
		label += " (overdue)"
	}
	return label
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func StatsMarkdown(s tasks.Stats, focusMinutesWeek int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%d** tasks: %d active, %d done, %d snoozed, %d archived.\n\n",
		s.Total, s.Active, s.Completed, s.Snoozed, s.Archived)
	fmt.Fprintf(&b, "Completion rate: **%.0f%%**. Focus this week: **%d min**.\n\n", s.CompletionRate()*100, focusMinutesWeek)
	b.WriteString("| Level | Energy | Priority |\n|---|---|---|\n")
	levels := []struct {
		e model.EnergyLevel
		p model.Priority
	}{
		{model.EnergyHigh, model.PriorityHigh},
		{model.EnergyMedium, model.PriorityMedium},
		{model.EnergyLow, model.PriorityLow},
	}
	for _, l := range levels {
		fmt.Fprintf(&b, "| %s | %d | %d |\n", l.e, s.ByEnergy[l.e], s.ByPriority[l.p])
	}
	return b.String()
}

func SyncTable(snap cloudsync.Snapshot) string {
	if len(snap.Results) == 0 {
		return "_No sync has run yet._\n"
	}
	var b strings.Builder
	b.WriteString("| Collection | Pulled | Dropped | Pushed | Failed |\n|---|---|---|---|---|\n")
	for _, r := range snap.Results {
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %d |\n", r.Collection, r.Pulled, r.Dropped, r.Pushed, r.Failed)
	}
	if !snap.LastGood.IsZero() {
		fmt.Fprintf(&b, "\nLast good sync: %s\n", snap.LastGood.Local().Format("Jan 2 15:04:05"))
	}
	return b.String()
}

func LocationTable(list []model.Location) string {
	if len(list) == 0 {
		return "_No locations._\n"
	}
	var b strings.Builder
	b.WriteString("| # | Name | Latitude | Longitude | Radius |\n|---|---|---|---|---|\n")
	for _, l := range list {
		fmt.Fprintf(&b, "| %d | %s | %.5f | %.5f | %.0fm |\n", l.ID, escapeCell(l.Name), l.Latitude, l.Longitude, l.Radius)
	}
	return b.String()
}
