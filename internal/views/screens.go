package views

import (
	"fmt"
	"strings"
)

type TaskRow struct {
	ID       int64
	Title    string
	Energy   string
	Priority string
	Due      string
	State    string
	Overdue  bool
}

type TaskPanelData struct {
	Title   string
	Rows    []TaskRow
	Cursor  int
	Empty   string
	Actions string
}

type EnergyPanelData struct {
	Hour        int
	Bucket      string
	Suggestions []TaskRow
	Selected    string
	ByLevel     []TaskRow
}

type FocusPanelData struct {
	Active       bool
	SessionID    int64
	Since        string
	Remaining    string
	Expired      bool
	Activity     string
	ProgressView string
	WeekMinutes  int64
	History      []string
}

type AccountPanelData struct {
	SignedIn   bool
	Email      string
	Remote     string
	SyncStatus string
	SyncError  string
	LastGood   string
	SpinView   string
	FormView   string
}

type HelpPanelData struct {
	CurrentView string
	Bindings    []string
	HelpView    string
}

func RenderTaskPanel(data TaskPanelData) string {
	var b strings.Builder
	b.WriteString(data.Title + ":\n")
	if data.Actions != "" {
		b.WriteString("actions: " + data.Actions + "\n")
	}
	if len(data.Rows) == 0 {
		empty := data.Empty
		if empty == "" {
			empty = "(no tasks)"
		}
		b.WriteString(empty)
		return strings.TrimSpace(b.String())
	}
	for i, row := range data.Rows {
		cursor := " "
		if i == data.Cursor {
			cursor = ">"
		}
		b.WriteString(fmt.Sprintf("%s %s #%d %s", cursor, badge(row), row.ID, row.Title))
		if row.Due != "" {
			b.WriteString(" due:" + row.Due)
		}
		if row.State != "" && row.State != "open" {
			b.WriteString(" [" + row.State + "]")
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// TaskDetail renders the selected task for the side pane.
func TaskDetail(row *TaskRow) string {
	if row == nil {
		return "details:\n(no selection)"
	}
	return fmt.Sprintf("details:\nid: %d\ntitle: %s\nenergy: %s\npriority: %s\ndue: %s\nstate: %s",
		row.ID, row.Title, row.Energy, row.Priority, orDash(row.Due), row.State)
}

func RenderEnergyPanel(data EnergyPanelData) string {
	var b strings.Builder
	b.WriteString("energy:\n")
	b.WriteString(fmt.Sprintf("hour %02d suits %s tasks\n", data.Hour, strings.ToLower(data.Bucket)))
	b.WriteString("actions: [l]low [m]medium [h]high\n\nsuggested now:\n")
	writeRows(&b, data.Suggestions)
	if data.Selected != "" {
		b.WriteString(fmt.Sprintf("\nfor %s energy:\n", strings.ToLower(data.Selected)))
		writeRows(&b, data.ByLevel)
	}
	return strings.TrimSpace(b.String())
}

func RenderFocusPanel(data FocusPanelData) string {
	var b strings.Builder
	b.WriteString("focus:\n")
	if !data.Active {
		b.WriteString("state: idle\n")
	} else {
		b.WriteString(fmt.Sprintf("session: #%d since %s\n", data.SessionID, data.Since))
		switch {
		case data.Expired:
			b.WriteString("timer: time is up\n")
		case data.Remaining != "":
			b.WriteString("timer: " + data.Remaining + " left\n")
		default:
			b.WriteString("timer: open-ended\n")
		}
		if data.ProgressView != "" {
			b.WriteString("progress: " + data.ProgressView + "\n")
		}
		if data.Activity != "" {
			b.WriteString("activity: " + data.Activity + "\n")
		}
	}
	b.WriteString(fmt.Sprintf("focused this week: %d min\n", data.WeekMinutes))
	b.WriteString("actions: [space]start/stop [s]stop\n")
	if len(data.History) > 0 {
		b.WriteString("\nrecent:\n")
		for _, h := range data.History {
			b.WriteString("- " + h + "\n")
		}
	}
	return strings.TrimSpace(b.String())
}

func RenderAccountPanel(data AccountPanelData) string {
	var b strings.Builder
	b.WriteString("account:\n")
	b.WriteString("remote: " + data.Remote + "\n")
	if data.SignedIn {
		b.WriteString("signed in as " + data.Email + "\n")
		b.WriteString("actions: [S]sync now [o]sign out\n")
	} else {
		b.WriteString("not signed in\n")
		b.WriteString("actions: [tab]field [enter]sign in [ctrl+n]sign up\n")
		if data.FormView != "" {
			b.WriteString(data.FormView + "\n")
		}
	}
	status := data.SyncStatus
	if data.SpinView != "" {
		status = data.SpinView + " " + status
	}
	b.WriteString("\nsync: " + status + "\n")
	if data.LastGood != "" {
		b.WriteString("last good: " + data.LastGood + "\n")
	}
	if data.SyncError != "" {
		b.WriteString("error: " + data.SyncError + "\n")
	}
	return strings.TrimSpace(b.String())
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return "command: " + input
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help:\n%s view:\n%s\n%s",
		strings.ToLower(data.CurrentView),
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
	)
}

func writeRows(b *strings.Builder, rows []TaskRow) {
	if len(rows) == 0 {
		b.WriteString("  (none)\n")
		return
	}
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("  %s #%d %s\n", badge(row), row.ID, row.Title))
	}
}

func badge(row TaskRow) string {
	if row.Overdue || row.Priority == "HIGH" {
		return "[RED]"
	}
	if row.Priority == "MEDIUM" {
		return "[YELLOW]"
	}
	return "[GREEN]"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
