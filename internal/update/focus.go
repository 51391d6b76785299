package update

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/zenith/internal/focus"
	"github.com/sandeepkv93/zenith/internal/views"
)

func (m Model) handleFocusKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case " ":
		if _, active := m.Focus.(focus.Active); active {
			return m, executeCmd(m.ctx, m.app, "focus stop")
		}
		return m, executeCmd(m.ctx, m.app, fmt.Sprintf("focus start %d", m.app.Config.FocusMinutes))
	case "s":
		return m, executeCmd(m.ctx, m.app, "focus stop")
	}
	return m, nil
}

func (m Model) renderFocusView() string {
	now := m.now()
	data := views.FocusPanelData{WeekMinutes: m.WeekFocusMinutes}
	for _, s := range m.FocusHistory {
		var took int64
		if s.DurationMinutes != nil {
			took = *s.DurationMinutes
		}
		data.History = append(data.History, fmt.Sprintf("%s  %d min", s.StartTime.Local().Format("Mon Jan 2 15:04"), took))
	}

	active, ok := m.Focus.(focus.Active)
	if !ok {
		return views.RenderFocusPanel(data)
	}
	data.Active = true
	data.SessionID = active.SessionID
	data.Since = active.StartTime.Local().Format("15:04")
	data.Activity = strings.ToLower(string(active.Activity))
	if remaining, bounded := active.Remaining(now); bounded {
		data.Expired = remaining == 0
		data.Remaining = formatDuration(remaining)
		total := time.Duration(*active.DurationMinutes) * time.Minute
		if total > 0 {
			data.ProgressView = m.focusProgress.ViewAs(1 - float64(remaining)/float64(total))
		}
	}
	return views.RenderFocusPanel(data)
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
