package update

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/sandeepkv93/zenith/internal/commands"
	"github.com/sandeepkv93/zenith/internal/views"
)

type KeyBinding struct {
	Key    string
	Action string
}

type helpKeyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k helpKeyMap) FullHelp() [][]key.Binding { return k.full }

func (m Model) renderHelpIfVisible() string {
	if !m.HelpVisible {
		return ""
	}
	bindings := m.helpBindings()
	var plain []string
	for _, kb := range m.viewBindings() {
		plain = append(plain, fmt.Sprintf("- %s: %s", kb.Key, kb.Action))
	}
	names := make([]string, 0, len(commands.Types))
	for _, t := range commands.Types {
		names = append(names, string(t))
	}
	plain = append(plain, "commands: "+strings.Join(names, ", "))
	return views.RenderHelpPanel(views.HelpPanelData{
		CurrentView: string(m.CurrentView),
		Bindings:    plain,
		HelpView: m.helpModel.View(helpKeyMap{
			short: bindings,
			full:  [][]key.Binding{bindings},
		}),
	})
}

func (m Model) globalBindings() []KeyBinding {
	return []KeyBinding{
		{Key: m.Keys.Tasks, Action: "tasks"},
		{Key: m.Keys.Energy, Action: "energy"},
		{Key: m.Keys.Focus, Action: "focus"},
		{Key: m.Keys.Account, Action: "account"},
		{Key: "/", Action: "command"},
		{Key: m.Keys.Help, Action: "help"},
		{Key: m.Keys.Quit, Action: "quit"},
	}
}

func (m Model) viewBindings() []KeyBinding {
	switch m.CurrentView {
	case ViewTasks:
		return []KeyBinding{
			{Key: "j/k", Action: "move selection"},
			{Key: "c", Action: "complete"},
			{Key: "x", Action: "archive"},
			{Key: "z/Z", Action: "snooze 1h / until tomorrow"},
			{Key: "p/e", Action: "cycle priority / energy"},
			{Key: "D", Action: "delete"},
		}
	case ViewEnergy:
		return []KeyBinding{{Key: "l/m/h", Action: "list tasks for low/medium/high energy"}}
	case ViewFocus:
		return []KeyBinding{
			{Key: "space", Action: "start or stop a session"},
			{Key: "s", Action: "stop"},
		}
	case ViewAccount:
		if m.User == nil {
			return []KeyBinding{
				{Key: "tab", Action: "switch field"},
				{Key: "enter", Action: "sign in"},
				{Key: "ctrl+n", Action: "sign up"},
				{Key: "esc", Action: "leave form"},
			}
		}
		return []KeyBinding{
			{Key: "S", Action: "sync now"},
			{Key: "o", Action: "sign out"},
		}
	default:
		return []KeyBinding{{Key: "-", Action: "no contextual bindings"}}
	}
}

func (m Model) helpBindings() []key.Binding {
	out := make([]key.Binding, 0, len(m.globalBindings())+len(m.viewBindings()))
	for _, kb := range m.globalBindings() {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	for _, kb := range m.viewBindings() {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	return out
}
