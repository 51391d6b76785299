// Package update is the bubbletea host screen for zenith.
package update

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/sandeepkv93/zenith/internal/app"
	"github.com/sandeepkv93/zenith/internal/auth"
	"github.com/sandeepkv93/zenith/internal/cloudsync"
	"github.com/sandeepkv93/zenith/internal/focus"
	"github.com/sandeepkv93/zenith/internal/matching"
	"github.com/sandeepkv93/zenith/internal/model"
)

type View string

const (
	ViewTasks   View = "Tasks"
	ViewEnergy  View = "Energy"
	ViewFocus   View = "Focus"
	ViewAccount View = "Account"
)

var allViews = []View{ViewTasks, ViewEnergy, ViewFocus, ViewAccount}

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Tasks   string
	Energy  string
	Focus   string
	Account string
	Reload  string
	Help    string
	Quit    string
}

type PaletteState struct {
	Active bool
	Input  string
}

type Model struct {
	CurrentView View
	Tasks       []model.Task
	Cursor      int

	Bucket       matching.Bucket
	Suggestions  []model.Task
	EnergyFilter model.EnergyLevel
	ByLevel      []model.Task

	Focus            focus.State
	FocusHistory     []model.FocusSession
	WeekFocusMinutes int64

	Sync cloudsync.Snapshot
	User *auth.User

	Palette     PaletteState
	Output      string // markdown body of the last command
	HelpVisible bool
	Status      StatusBar
	Keys        GlobalKeyMap
	Quitting    bool
	Width       int
	LastError   error

	app *app.App
	ctx context.Context
	now func() time.Time

	commandInput  textinput.Model
	emailInput    textinput.Model
	passwordInput textinput.Model
	formField     int
	focusProgress progress.Model
	syncSpinner   spinner.Model
	spinnerActive bool
	helpModel     help.Model
}

// NewModel builds the host screen over a. now defaults to time.Now.
func NewModel(ctx context.Context, a *app.App, now func() time.Time) Model {
	if now == nil {
		now = time.Now
	}
	m := Model{
		CurrentView: ViewTasks,
		Focus:       focus.Inactive{},
		Sync:        cloudsync.Snapshot{Status: cloudsync.StatusIdle},
		Keys: GlobalKeyMap{
			Tasks:   "1",
			Energy:  "2",
			Focus:   "3",
			Account: "4",
			Reload:  "r",
			Help:    "?",
			Quit:    "q",
		},
		app: a,
		ctx: ctx,
		now: now,
	}
	if u, err := a.Auth.Current(); err == nil {
		m.User = &u
	}
	m.initBubbleComponents()
	return m
}

func (m *Model) initBubbleComponents() {
	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 48

	m.emailInput = textinput.New()
	m.emailInput.Prompt = "email> "
	m.emailInput.CharLimit = 254
	m.emailInput.Width = 36

	m.passwordInput = textinput.New()
	m.passwordInput.Prompt = "password> "
	m.passwordInput.EchoMode = textinput.EchoPassword
	m.passwordInput.CharLimit = 128
	m.passwordInput.Width = 36

	m.focusProgress = progress.New(progress.WithDefaultGradient(), progress.WithWidth(32))

	m.syncSpinner = spinner.New()
	m.syncSpinner.Spinner = spinner.Dot

	m.helpModel = help.New()
}

func (m Model) selectedTask() (model.Task, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.Tasks) {
		return model.Task{}, false
	}
	return m.Tasks[m.Cursor], true
}

func (m *Model) clampCursor() {
	if m.Cursor >= len(m.Tasks) {
		m.Cursor = len(m.Tasks) - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
}
