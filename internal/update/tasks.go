package update

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/zenith/internal/app"
	"github.com/sandeepkv93/zenith/internal/model"
	"github.com/sandeepkv93/zenith/internal/views"
)

func (m Model) handleTasksKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.Cursor < len(m.Tasks)-1 {
			m.Cursor++
		}
		return m, nil
	case "k", "up":
		if m.Cursor > 0 {
			m.Cursor--
		}
		return m, nil
	}

	t, ok := m.selectedTask()
	if !ok {
		return m, nil
	}
	var input string
	switch msg.String() {
	case "c", "enter":
		input = fmt.Sprintf("complete %d", t.ID)
	case "x":
		input = fmt.Sprintf("archive %d", t.ID)
	case "z":
		input = fmt.Sprintf("snooze %d %s", t.ID, model.SnoozeOneHour)
	case "Z":
		input = fmt.Sprintf("snooze %d %s", t.ID, model.SnoozeUntilTomorrow)
	case "p":
		input = fmt.Sprintf("priority %d %s", t.ID, nextPriority(t.Priority))
	case "e":
		input = fmt.Sprintf("energy %d %s", t.ID, nextEnergy(t.EnergyLevel))
	case "D":
		input = fmt.Sprintf("delete %d", t.ID)
	default:
		return m, nil
	}
	return m, executeCmd(m.ctx, m.app, input)
}

func (m Model) renderTasksView() string {
	return views.RenderTaskPanel(views.TaskPanelData{
		Title:   "active tasks",
		Rows:    toRows(m.Tasks, m.now()),
		Cursor:  m.Cursor,
		Empty:   "(nothing active, add one with /add <title>)",
		Actions: "[j/k]move [c]complete [x]archive [z/Z]snooze [p]priority [e]energy [D]delete",
	})
}

func (m Model) renderTaskDetail() string {
	t, ok := m.selectedTask()
	if !ok {
		return views.TaskDetail(nil)
	}
	row := toRow(t, m.now())
	return views.TaskDetail(&row)
}

func toRows(list []model.Task, now time.Time) []views.TaskRow {
	out := make([]views.TaskRow, 0, len(list))
	for _, t := range list {
		out = append(out, toRow(t, now))
	}
	return out
}

func toRow(t model.Task, now time.Time) views.TaskRow {
	row := views.TaskRow{
		ID:       t.ID,
		Title:    t.Title,
		Energy:   string(t.EnergyLevel),
		Priority: string(t.Priority),
		State:    app.TaskState(t),
	}
	if t.DueDate != nil {
		row.Due = t.DueDate.Local().Format("Mon Jan 2")
		row.Overdue = t.DueDate.Before(now) && !t.IsCompleted
	}
	return row
}

func nextPriority(p model.Priority) model.Priority {
	switch p {
	case model.PriorityLow:
		return model.PriorityMedium
	case model.PriorityMedium:
		return model.PriorityHigh
	default:
		return model.PriorityLow
	}
}

func nextEnergy(e model.EnergyLevel) model.EnergyLevel {
	switch e {
	case model.EnergyLow:
		return model.EnergyMedium
	case model.EnergyMedium:
		return model.EnergyHigh
	default:
		return model.EnergyLow
	}
}
