package update

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/zenith/internal/app"
	"github.com/sandeepkv93/zenith/internal/auth"
	"github.com/sandeepkv93/zenith/internal/cloudsync"
	"github.com/sandeepkv93/zenith/internal/commands"
	"github.com/sandeepkv93/zenith/internal/focus"
	"github.com/sandeepkv93/zenith/internal/matching"
	"github.com/sandeepkv93/zenith/internal/model"
)

const historySize = 5

type SwitchViewMsg struct {
	View View
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type AppErrorMsg struct {
	Err error
}

type dataLoadedMsg struct {
	tasks       []model.Task
	bucket      matching.Bucket
	suggestions []model.Task
	byLevel     []model.Task
	focus       focus.State
	history     []model.FocusSession
	weekMinutes int64
	err         error
}

type tasksChangedMsg struct{}

type focusChangedMsg struct {
	state focus.State
}

type syncUpdateMsg struct {
	snap cloudsync.Snapshot
}

type commandDoneMsg struct {
	result commands.Result
	err    error
}

type authDoneMsg struct {
	user      *auth.User
	signedOut bool
	err       error
}

type tickMsg time.Time

func loadCmd(ctx context.Context, a *app.App, energy model.EnergyLevel, now time.Time) tea.Cmd {
	return func() tea.Msg {
		var out dataLoadedMsg
		var err error
		if out.tasks, err = a.Tasks.Active(ctx); err != nil {
			return dataLoadedMsg{err: err}
		}
		if out.bucket, out.suggestions, err = a.Tasks.Suggest(ctx); err != nil {
			return dataLoadedMsg{err: err}
		}
		if energy != "" {
			if out.byLevel, err = a.Tasks.ByEnergy(ctx, energy); err != nil {
				return dataLoadedMsg{err: err}
			}
		}
		if out.focus, err = a.Focus.Current(ctx); err != nil {
			return dataLoadedMsg{err: err}
		}
		history, err := a.Focus.History(ctx, 0)
		if err != nil {
			return dataLoadedMsg{err: err}
		}
		out.weekMinutes = focus.TotalMinutes(history, now.AddDate(0, 0, -7))
		if len(history) > historySize {
			history = history[:historySize]
		}
		out.history = history
		return out
	}
}

func executeCmd(ctx context.Context, a *app.App, input string) tea.Cmd {
	return func() tea.Msg {
		res, err := a.Execute(ctx, input)
		return commandDoneMsg{result: res, err: err}
	}
}

func signInCmd(ctx context.Context, a *app.App, email, password string, signUp bool) tea.Cmd {
	return func() tea.Msg {
		var (
			u   auth.User
			err error
		)
		if signUp {
			u, err = a.SignUp(ctx, email, password)
		} else {
			u, err = a.SignIn(ctx, email, password)
		}
		if err != nil {
			return authDoneMsg{err: err}
		}
		return authDoneMsg{user: &u}
	}
}

func signOutCmd(ctx context.Context, a *app.App) tea.Cmd {
	return func() tea.Msg {
		if err := a.SignOut(ctx); err != nil {
			return authDoneMsg{err: err}
		}
		return authDoneMsg{signedOut: true}
	}
}

func waitForTaskChangesCmd(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return tasksChangedMsg{}
	}
}

func waitForFocusCmd(ch <-chan focus.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return focusChangedMsg{state: s}
	}
}

func waitForSyncCmd(ch <-chan cloudsync.Snapshot) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return syncUpdateMsg{snap: s}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func describeErr(err error) string {
	var ce *commands.CommandError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}
