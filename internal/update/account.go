package update

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/zenith/internal/views"
)

func (m *Model) focusForm() {
	if m.User != nil {
		return
	}
	if m.formField == 0 {
		m.emailInput.Focus()
		m.passwordInput.Blur()
	} else {
		m.passwordInput.Focus()
		m.emailInput.Blur()
	}
}

func (m Model) handleAccountFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.emailInput.Blur()
		m.passwordInput.Blur()
		m.CurrentView = ViewTasks
		return m, nil
	case "tab", "shift+tab":
		m.formField = 1 - m.formField
		m.focusForm()
		return m, nil
	case "enter", "ctrl+n":
		email := strings.TrimSpace(m.emailInput.Value())
		password := m.passwordInput.Value()
		if email == "" || password == "" {
			m.Status = StatusBar{Text: "email and password are required", IsError: true}
			return m, nil
		}
		m.Status = StatusBar{Text: "signing in..."}
		return m, signInCmd(m.ctx, m.app, email, password, msg.String() == "ctrl+n")
	}

	var cmd tea.Cmd
	if m.formField == 0 {
		m.emailInput, cmd = m.emailInput.Update(msg)
	} else {
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	}
	return m, cmd
}

func (m Model) handleAccountKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "S":
		if m.app.Sync == nil {
			m.Status = StatusBar{Text: "sync is disabled", IsError: true}
			return m, nil
		}
		return m, executeCmd(m.ctx, m.app, "sync")
	case "o":
		return m, signOutCmd(m.ctx, m.app)
	}
	return m, nil
}

func (m Model) onAuthDone(msg authDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.LastError = msg.err
		m.Status = StatusBar{Text: msg.err.Error(), IsError: true}
		return m, nil
	}
	if msg.signedOut {
		m.User = nil
		m.formField = 0
		m.focusForm()
		m.Status = StatusBar{Text: "signed out"}
		return m, nil
	}
	m.User = msg.user
	m.passwordInput.SetValue("")
	m.emailInput.Blur()
	m.passwordInput.Blur()
	m.Status = StatusBar{Text: "signed in as " + msg.user.Email}
	return m, m.reload()
}

func (m Model) renderAccountView() string {
	data := views.AccountPanelData{
		SignedIn:   m.User != nil,
		Remote:     string(m.app.Config.Remote),
		SyncStatus: string(m.Sync.Status),
	}
	if m.User != nil {
		data.Email = m.User.Email
	} else {
		data.FormView = m.emailInput.View() + "\n" + m.passwordInput.View()
	}
	if m.app.Sync == nil {
		data.SyncStatus = "disabled"
	}
	if m.spinnerActive {
		data.SpinView = m.syncSpinner.View()
	}
	if m.Sync.Err != nil {
		data.SyncError = m.Sync.Err.Error()
	}
	if !m.Sync.LastGood.IsZero() {
		data.LastGood = m.Sync.LastGood.Local().Format("Jan 2 15:04:05")
	}
	return views.RenderAccountPanel(data)
}
