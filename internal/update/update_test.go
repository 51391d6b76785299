package update

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/zenith/internal/app"
	"github.com/sandeepkv93/zenith/internal/auth"
	"github.com/sandeepkv93/zenith/internal/config"
	"github.com/sandeepkv93/zenith/internal/focus"
	"github.com/sandeepkv93/zenith/internal/geofence"
	"github.com/sandeepkv93/zenith/internal/model"
	"github.com/sandeepkv93/zenith/internal/tasks"
)

var testNow = time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)

type quietNotifier struct{}

func (quietNotifier) Notify(context.Context, geofence.Notification) error { return nil }

func newTestModel(t *testing.T) Model {
	t.Helper()
	cfg := config.DefaultRuntimeConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "update-test.db")
	cfg.SyncInterval = 0

	now := func() time.Time { return testNow }
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := app.New(context.Background(), cfg, logger,
		app.WithClock(now),
		app.WithAuthProvider(auth.LocalProvider{}),
		app.WithNotifier(quietNotifier{}),
	)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() {
		if err := a.Close(); err != nil {
			t.Errorf("close app: %v", err)
		}
	})
	return NewModel(context.Background(), a, now)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drive feeds the result of cmd back into the model until the chain ends.
func drive(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for i := 0; cmd != nil && i < 8; i++ {
		msg := cmd()
		if msg == nil {
			break
		}
		if _, batch := msg.(tea.BatchMsg); batch {
			break
		}
		updated, next := m.Update(msg)
		m = updated.(Model)
		cmd = next
	}
	return m
}

func press(t *testing.T, m Model, msg tea.KeyMsg) Model {
	t.Helper()
	updated, cmd := m.Update(msg)
	return drive(t, updated.(Model), cmd)
}

func addTask(t *testing.T, m Model, title string, energy model.EnergyLevel) model.Task {
	t.Helper()
	task, err := m.app.Tasks.Add(context.Background(), tasks.Draft{Title: title, EnergyLevel: energy})
	if err != nil {
		t.Fatalf("add %q: %v", title, err)
	}
	return task
}

func TestNewModelDefaults(t *testing.T) {
	m := newTestModel(t)
	if m.CurrentView != ViewTasks {
		t.Fatalf("expected default view %q, got %q", ViewTasks, m.CurrentView)
	}
	if m.Keys.Quit != "q" {
		t.Fatalf("expected quit key q, got %q", m.Keys.Quit)
	}
	if m.User != nil {
		t.Fatalf("expected no signed-in user, got %+v", m.User)
	}
	if _, ok := m.Focus.(focus.Inactive); !ok {
		t.Fatalf("expected inactive focus, got %T", m.Focus)
	}
}

func TestUpdateKeySwitchesView(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, runes("2"))
	if m.CurrentView != ViewEnergy {
		t.Fatalf("expected energy view, got %q", m.CurrentView)
	}
	m = press(t, m, runes("3"))
	if m.CurrentView != ViewFocus {
		t.Fatalf("expected focus view, got %q", m.CurrentView)
	}
}

func TestUpdateSwitchViewMsg(t *testing.T) {
	m := newTestModel(t)
	updated, _ := m.Update(SwitchViewMsg{View: ViewFocus})
	next := updated.(Model)
	if next.CurrentView != ViewFocus {
		t.Fatalf("expected focus view, got %q", next.CurrentView)
	}
	updated, _ = next.Update(SwitchViewMsg{View: View("Unknown")})
	next = updated.(Model)
	if next.CurrentView != ViewFocus {
		t.Fatalf("expected view unchanged for unknown view, got %q", next.CurrentView)
	}
}

func TestUpdateQuitKey(t *testing.T) {
	m := newTestModel(t)
	updated, cmd := m.Update(runes("q"))
	if !updated.(Model).Quitting {
		t.Fatal("expected quitting flag")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}

func TestPaletteAddsTaskAndReloads(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, runes("/"))
	if !m.Palette.Active {
		t.Fatal("expected palette to open")
	}
	updated, _ := m.Update(runes("add Write report e:high p:high"))
	m = updated.(Model)
	if m.Palette.Input != "add Write report e:high p:high" {
		t.Fatalf("expected palette input to track typing, got %q", m.Palette.Input)
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.Palette.Active {
		t.Fatal("expected palette to close after enter")
	}
	if m.Status.IsError || !strings.Contains(m.Status.Text, "Write report") {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
	if len(m.Tasks) != 1 || m.Tasks[0].EnergyLevel != model.EnergyHigh {
		t.Fatalf("expected reloaded high-energy task, got %+v", m.Tasks)
	}
	if !strings.Contains(m.View(), "Write report") {
		t.Fatal("expected task in rendered view")
	}
}

func TestPaletteEscapeAndBadCommand(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, runes("/"))
	updated, _ := m.Update(runes("complete"))
	m = updated.(Model)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.Palette.Active || m.Palette.Input != "" {
		t.Fatalf("expected closed empty palette, got %+v", m.Palette)
	}

	m = press(t, m, runes("/"))
	updated, _ = m.Update(runes("explode now"))
	m = updated.(Model)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.Status.IsError {
		t.Fatalf("expected error status for unknown command, got %+v", m.Status)
	}
	if m.LastError == nil {
		t.Fatal("expected last error to be recorded")
	}
}

func TestTaskKeysCompleteSelectedTask(t *testing.T) {
	m := newTestModel(t)
	addTask(t, m, "first", model.EnergyLow)
	addTask(t, m, "second", model.EnergyLow)
	m = drive(t, m, m.reload())
	if len(m.Tasks) != 2 {
		t.Fatalf("expected two tasks, got %d", len(m.Tasks))
	}

	m = press(t, m, runes("j"))
	m = press(t, m, runes("k"))
	m = press(t, m, runes("j"))
	if m.Cursor != 1 {
		t.Fatalf("expected cursor 1, got %d", m.Cursor)
	}
	target, _ := m.selectedTask()

	m = press(t, m, runes("c"))
	if m.Status.IsError {
		t.Fatalf("complete failed: %s", m.Status.Text)
	}
	if len(m.Tasks) != 1 {
		t.Fatalf("expected one active task after complete, got %d", len(m.Tasks))
	}
	if m.Cursor != 0 {
		t.Fatalf("expected cursor clamped to 0, got %d", m.Cursor)
	}
	done, err := m.app.Repo.GetTask(context.Background(), target.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if !done.IsCompleted {
		t.Fatalf("expected task #%d completed", target.ID)
	}
}

func TestTaskKeysCycleEnergy(t *testing.T) {
	m := newTestModel(t)
	task := addTask(t, m, "tune", model.EnergyLow)
	m = drive(t, m, m.reload())

	m = press(t, m, runes("e"))
	if m.Status.IsError {
		t.Fatalf("energy change failed: %s", m.Status.Text)
	}
	got, err := m.app.Repo.GetTask(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.EnergyLevel != nextEnergy(model.EnergyLow) {
		t.Fatalf("expected energy %q, got %q", nextEnergy(model.EnergyLow), got.EnergyLevel)
	}
}

func TestEnergyViewFiltersByLevel(t *testing.T) {
	m := newTestModel(t)
	addTask(t, m, "inbox zero", model.EnergyLow)
	addTask(t, m, "design doc", model.EnergyMedium)

	m = press(t, m, runes("2"))
	m = press(t, m, runes("m"))
	if m.EnergyFilter != model.EnergyMedium {
		t.Fatalf("expected medium filter, got %q", m.EnergyFilter)
	}
	if len(m.ByLevel) != 1 || m.ByLevel[0].Title != "design doc" {
		t.Fatalf("expected only the medium-energy task, got %+v", m.ByLevel)
	}
	if !strings.Contains(m.View(), "design doc") {
		t.Fatal("expected filtered task in energy view")
	}

	m = press(t, m, runes("h"))
	if len(m.ByLevel) != 2 {
		t.Fatalf("expected high energy to list every active task, got %d", len(m.ByLevel))
	}
}

func TestFocusKeysStartAndStop(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, runes("3"))

	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	active, ok := m.Focus.(focus.Active)
	if !ok {
		t.Fatalf("expected active focus, got %T (status %+v)", m.Focus, m.Status)
	}
	if active.DurationMinutes == nil || *active.DurationMinutes != int64(m.app.Config.FocusMinutes) {
		t.Fatalf("expected configured duration, got %v", active.DurationMinutes)
	}
	if !strings.Contains(m.View(), "25:00") {
		t.Fatalf("expected full remaining time in view:\n%s", m.View())
	}

	m = press(t, m, runes("s"))
	if _, ok := m.Focus.(focus.Inactive); !ok {
		t.Fatalf("expected inactive focus after stop, got %T", m.Focus)
	}
	if len(m.FocusHistory) != 1 {
		t.Fatalf("expected one finished session, got %d", len(m.FocusHistory))
	}
}

func TestAccountFormSignsInAndOut(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, runes("4"))
	if m.CurrentView != ViewAccount {
		t.Fatalf("expected account view, got %q", m.CurrentView)
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.Status.IsError {
		t.Fatal("expected validation error for empty form")
	}

	updated, _ := m.Update(runes("ada@example.com"))
	m = updated.(Model)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	updated, _ = m.Update(runes("secret"))
	m = updated.(Model)
	if m.emailInput.Value() != "ada@example.com" || m.passwordInput.Value() != "secret" {
		t.Fatalf("unexpected form values %q / %q", m.emailInput.Value(), m.passwordInput.Value())
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.User == nil || m.User.Email != "ada@example.com" {
		t.Fatalf("expected signed-in user, got %+v (status %+v)", m.User, m.Status)
	}
	if m.passwordInput.Value() != "" {
		t.Fatal("expected password cleared after sign in")
	}

	m = press(t, m, runes("o"))
	if m.User != nil {
		t.Fatalf("expected signed out, got %+v", m.User)
	}
	if _, err := m.app.Auth.Current(); err == nil {
		t.Fatal("expected session cleared")
	}
}

func TestAccountSyncDisabledWithoutRemote(t *testing.T) {
	m := newTestModel(t)
	if _, err := m.app.Auth.SignIn(context.Background(), "ada@example.com", "pw"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	u, _ := m.app.Auth.Current()
	m.User = &u
	m.CurrentView = ViewAccount

	m = press(t, m, runes("S"))
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "disabled") {
		t.Fatalf("expected sync disabled status, got %+v", m.Status)
	}
	if !strings.Contains(m.View(), "sync: disabled") {
		t.Fatal("expected disabled sync in account panel")
	}
}

func TestHelpToggleListsViewBindings(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, runes("?"))
	if !m.HelpVisible {
		t.Fatal("expected help visible")
	}
	out := m.View()
	for _, want := range []string{"help:", "complete", "commands:", "snooze"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in help view:\n%s", want, out)
		}
	}
	m = press(t, m, runes("?"))
	if m.HelpVisible {
		t.Fatal("expected help hidden")
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00"},
		{-time.Second, "00:00"},
		{90 * time.Second, "01:30"},
		{25*time.Minute + 500*time.Millisecond, "25:00"},
	}
	for _, tc := range cases {
		if got := formatDuration(tc.in); got != tc.want {
			t.Fatalf("formatDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
