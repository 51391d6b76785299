package update

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/zenith/internal/cloudsync"
	"github.com/sandeepkv93/zenith/internal/views"
)

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.reload(),
		waitForTaskChangesCmd(m.app.Tasks.Changes()),
		waitForFocusCmd(m.app.Focus.Changes()),
		tickCmd(),
	}
	if m.app.Sync != nil {
		cmds = append(cmds, waitForSyncCmd(m.app.Sync.Updates()))
	}
	return tea.Batch(cmds...)
}

func (m Model) reload() tea.Cmd {
	return loadCmd(m.ctx, m.app, m.EnergyFilter, m.now())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(typed)
	case tea.WindowSizeMsg:
		m.Width = typed.Width
		return m, nil
	case dataLoadedMsg:
		if typed.err != nil {
			m.LastError = typed.err
			m.Status = StatusBar{Text: typed.err.Error(), IsError: true}
			return m, nil
		}
		m.Tasks = typed.tasks
		m.clampCursor()
		m.Bucket = typed.bucket
		m.Suggestions = typed.suggestions
		m.ByLevel = typed.byLevel
		m.Focus = typed.focus
		m.FocusHistory = typed.history
		m.WeekFocusMinutes = typed.weekMinutes
		return m, nil
	case tasksChangedMsg:
		return m, tea.Batch(m.reload(), waitForTaskChangesCmd(m.app.Tasks.Changes()))
	case focusChangedMsg:
		m.Focus = typed.state
		return m, tea.Batch(m.reload(), waitForFocusCmd(m.app.Focus.Changes()))
	case syncUpdateMsg:
		m.Sync = typed.snap
		next := []tea.Cmd{waitForSyncCmd(m.app.Sync.Updates())}
		if typed.snap.Status == cloudsync.StatusSyncing && !m.spinnerActive {
			m.spinnerActive = true
			next = append(next, m.syncSpinner.Tick)
		}
		if typed.snap.Status != cloudsync.StatusSyncing {
			m.spinnerActive = false
			// pulled records do not pass through the task service
			next = append(next, m.reload())
		}
		return m, tea.Batch(next...)
	case spinner.TickMsg:
		if m.spinnerActive {
			var cmd tea.Cmd
			m.syncSpinner, cmd = m.syncSpinner.Update(typed)
			return m, cmd
		}
		return m, nil
	case tickMsg:
		return m, tickCmd()
	case commandDoneMsg:
		if typed.err != nil {
			m.LastError = typed.err
			m.Status = StatusBar{Text: describeErr(typed.err), IsError: true}
			return m, nil
		}
		m.Status = StatusBar{Text: typed.result.Message}
		m.Output = typed.result.Body
		return m, m.reload()
	case authDoneMsg:
		return m.onAuthDone(typed)
	case SwitchViewMsg:
		if isKnownView(typed.View) {
			m.CurrentView = typed.View
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keyStr := msg.String()
	if keyStr == "ctrl+c" {
		m.Quitting = true
		return m, tea.Quit
	}
	if m.Palette.Active {
		return m.handlePaletteKey(msg)
	}
	if m.CurrentView == ViewAccount && m.User == nil {
		// the sign-in form captures typing
		return m.handleAccountFormKey(msg)
	}

	switch keyStr {
	case "/":
		m.Palette.Active = true
		m.Palette.Input = ""
		m.commandInput.SetValue("")
		m.commandInput.Focus()
		return m, nil
	case m.Keys.Tasks:
		m.CurrentView = ViewTasks
		return m, nil
	case m.Keys.Energy:
		m.CurrentView = ViewEnergy
		return m, nil
	case m.Keys.Focus:
		m.CurrentView = ViewFocus
		return m, nil
	case m.Keys.Account:
		m.CurrentView = ViewAccount
		m.focusForm()
		return m, nil
	case m.Keys.Reload:
		return m, m.reload()
	case m.Keys.Help:
		m.HelpVisible = !m.HelpVisible
		return m, nil
	case m.Keys.Quit:
		m.Quitting = true
		return m, tea.Quit
	}

	switch m.CurrentView {
	case ViewTasks:
		return m.handleTasksKey(msg)
	case ViewEnergy:
		return m.handleEnergyKey(msg)
	case ViewFocus:
		return m.handleFocusKey(msg)
	case ViewAccount:
		return m.handleAccountKey(msg)
	}
	return m, nil
}

func (m Model) View() string {
	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = "status: error: " + m.Status.Text
		} else {
			status = "status: " + m.Status.Text
		}
	}

	var left, right string
	switch m.CurrentView {
	case ViewTasks:
		left = m.renderTasksView()
		right = m.renderTaskDetail()
	case ViewEnergy:
		left = m.renderEnergyView()
	case ViewFocus:
		left = m.renderFocusView()
	case ViewAccount:
		left = m.renderAccountView()
	}
	right = joinNonEmpty(right, views.RenderCommandPalette(m.Palette.Active, m.commandInput.View()))
	right = joinNonEmpty(right, views.RenderMarkdown(m.Output, views.PaneWidth(m.Width)))
	right = joinNonEmpty(right, m.renderHelpIfVisible())

	tabs := make([]string, len(allViews))
	active := 0
	for i, v := range allViews {
		tabs[i] = fmt.Sprintf("%d %s", i+1, v)
		if v == m.CurrentView {
			active = i
		}
	}

	return views.RenderApp(views.AppData{
		Header:      m.header(),
		Tabs:        tabs,
		ActiveTab:   active,
		LeftPane:    left,
		RightPane:   right,
		StatusLine:  status,
		StatusError: m.Status.IsError,
		Footer:      fmt.Sprintf("keys: 1-4 views | / cmd | %s reload | %s help | %s quit", m.Keys.Reload, m.Keys.Help, m.Keys.Quit),
		Width:       m.Width,
	})
}

func (m Model) header() string {
	who := "offline"
	if m.User != nil {
		who = m.User.Email
	}
	sync := "sync disabled"
	if m.app.Sync != nil {
		sync = "sync " + string(m.Sync.Status)
		if m.spinnerActive {
			sync = m.syncSpinner.View() + " " + sync
		}
	}
	return fmt.Sprintf("zenith | %s | %s | %d active", who, sync, len(m.Tasks))
}

func isKnownView(v View) bool {
	for _, known := range allViews {
		if v == known {
			return true
		}
	}
	return false
}

func joinNonEmpty(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "\n\n" + b
	}
}
