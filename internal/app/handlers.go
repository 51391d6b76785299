package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/zenith/internal/cloudsync"
	"github.com/sandeepkv93/zenith/internal/commands"
	"github.com/sandeepkv93/zenith/internal/focus"
	"github.com/sandeepkv93/zenith/internal/matching"
	"github.com/sandeepkv93/zenith/internal/model"
	"github.com/sandeepkv93/zenith/internal/scheduler"
	"github.com/sandeepkv93/zenith/internal/storage"
	"github.com/sandeepkv93/zenith/internal/tasks"
)

// Execute parses and runs one slash command.
func (a *App) Execute(ctx context.Context, input string) (commands.Result, error) {
	cmd, err := commands.Parse(input)
	if err != nil {
		return commands.Result{}, err
	}
	res, err := commands.Execute(cmd, a.Handlers(ctx))
	if err != nil {
		a.logger.Debug("command failed", "command", cmd.Type, "err", err)
	}
	return res, err
}

func (a *App) Handlers(ctx context.Context) commands.Handlers {
	return commands.Handlers{
		Add: func(args commands.AddArgs) (commands.Result, error) {
			t, err := a.Tasks.Add(ctx, tasks.Draft{
				Title:       args.Title,
				DueDate:     args.Due,
				EnergyLevel: args.Energy,
				Priority:    args.Priority,
			})
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("Added #%d %q (%s energy, %s priority)", t.ID, t.Title, t.EnergyLevel, t.Priority)}, nil
		},
		Complete:  a.taskOp(ctx, "Completed", a.Tasks.Complete),
		Reopen:    a.taskOp(ctx, "Reopened", a.Tasks.Reopen),
		Archive:   a.taskOp(ctx, "Archived", a.Tasks.Archive),
		Unarchive: a.taskOp(ctx, "Unarchived", a.Tasks.Unarchive),
		Delete:    a.taskOp(ctx, "Deleted", a.Tasks.Delete),
		Unsnooze:  a.taskOp(ctx, "Unsnoozed", a.Tasks.Unsnooze),
		Snooze: func(args commands.SnoozeArgs) (commands.Result, error) {
			t, ok, err := a.lookup(ctx, args.ID)
			if err != nil {
				return commands.Result{}, err
			}
			if !ok {
				return missingTask(args.ID), nil
			}
			now := a.now()
			var until time.Time
			switch {
			case args.Until != nil:
				until = *args.Until
			case args.For > 0:
				until = now.Add(args.For)
			default:
				if until, err = args.Option.Until(now.Local()); err != nil {
					return commands.Result{}, err
				}
			}
			if err := a.Tasks.Snooze(ctx, args.ID, until); err != nil {
				return commands.Result{}, err
			}
			a.armSnooze(args.ID, until)
			return commands.Result{Message: fmt.Sprintf("Snoozed #%d %q until %s", t.ID, t.Title, until.Local().Format("Mon Jan 2 15:04"))}, nil
		},
		Priority: func(args commands.PriorityArgs) (commands.Result, error) {
			t, ok, err := a.lookup(ctx, args.ID)
			if err != nil {
				return commands.Result{}, err
			}
			if !ok {
				return missingTask(args.ID), nil
			}
			if err := a.Tasks.ChangePriority(ctx, args.ID, args.Priority); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("#%d %q priority %s -> %s", t.ID, t.Title, t.Priority, args.Priority)}, nil
		},
		Energy: func(args commands.EnergyArgs) (commands.Result, error) {
			t, ok, err := a.lookup(ctx, args.ID)
			if err != nil {
				return commands.Result{}, err
			}
			if !ok {
				return missingTask(args.ID), nil
			}
			if err := a.Tasks.ChangeEnergy(ctx, args.ID, args.Energy); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("#%d %q energy %s -> %s", t.ID, t.Title, t.EnergyLevel, args.Energy)}, nil
		},
		Suggest: func(args commands.SuggestArgs) (commands.Result, error) {
			if args.Energy != "" {
				list, err := a.Tasks.ByEnergy(ctx, args.Energy)
				if err != nil {
					return commands.Result{}, err
				}
				return commands.Result{
					Message: fmt.Sprintf("%d task(s) for %s energy", len(list), args.Energy),
					Body:    TaskTable(list, a.now()),
				}, nil
			}
			bucket, list, err := a.Tasks.Suggest(ctx)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{
				Message: fmt.Sprintf("%d suggestion(s) for this hour (%s)", len(list), bucketLabel(bucket)),
				Body:    TaskTable(list, a.now()),
			}, nil
		},
		Focus: func(args commands.FocusArgs) (commands.Result, error) {
			return a.focusCommand(ctx, args)
		},
		Sync: func(args commands.SyncArgs) (commands.Result, error) {
			return a.syncCommand(ctx, args)
		},
		Show: func(args commands.ShowArgs) (commands.Result, error) {
			return a.showCommand(ctx, args)
		},
		Activity: func(args commands.ActivityArgs) (commands.Result, error) {
			return a.activityCommand(ctx, args)
		},
		Location: func(args commands.LocationArgs) (commands.Result, error) {
			return a.locationCommand(ctx, args)
		},
		Remind: func(args commands.RemindArgs) (commands.Result, error) {
			return a.remindCommand(ctx, args)
		},
		At: func(args commands.AtArgs) (commands.Result, error) {
			return a.atCommand(ctx, args)
		},
	}
}

// lookup reports ok=false with a nil error when the task is gone. A task
// deleted elsewhere is not a failure, the command just has nothing to do.
func (a *App) lookup(ctx context.Context, id int64) (model.Task, bool, error) {
	t, err := a.Tasks.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		a.logger.Debug("task not found, ignoring command", "task_id", id)
		return model.Task{}, false, nil
	}
	if err != nil {
		return model.Task{}, false, err
	}
	return t, true, nil
}

func missingTask(id int64) commands.Result {
	return commands.Result{Message: fmt.Sprintf("Task #%d not found, nothing to do", id)}
}

func (a *App) taskOp(ctx context.Context, verb string, fn func(context.Context, int64) error) func(commands.TaskArgs) (commands.Result, error) {
	return func(args commands.TaskArgs) (commands.Result, error) {
		t, ok, err := a.lookup(ctx, args.ID)
		if err != nil {
			return commands.Result{}, err
		}
		if !ok {
			return missingTask(args.ID), nil
		}
		if err := fn(ctx, args.ID); err != nil {
			return commands.Result{}, err
		}
		// any transition other than snooze leaves no pending expiry
		a.disarmSnooze(args.ID)
		return commands.Result{Message: fmt.Sprintf("%s #%d %q", verb, t.ID, t.Title)}, nil
	}
}

func (a *App) focusCommand(ctx context.Context, args commands.FocusArgs) (commands.Result, error) {
	minutes := args.Minutes
	if minutes == 0 && args.Action == commands.FocusStart {
		minutes = int64(a.Config.FocusMinutes)
	}
	switch args.Action {
	case commands.FocusStart, commands.FocusToggle:
		var (
			state focus.State
			err   error
		)
		if args.Action == commands.FocusStart {
			state, err = a.Focus.Start(ctx, minutes)
		} else {
			state, err = a.Focus.Toggle(ctx, minutes)
		}
		if err != nil {
			return commands.Result{}, err
		}
		a.armFocus(state)
		return commands.Result{Message: DescribeFocus(state, a.now())}, nil
	case commands.FocusStop:
		session, err := a.Focus.Stop(ctx)
		if errors.Is(err, focus.ErrNoActiveSession) {
			return commands.Result{Message: "No focus session is running"}, nil
		}
		if err != nil {
			return commands.Result{}, err
		}
		a.Wake.Cancel(scheduler.FocusKey(session.ID))
		var took int64
		if session.DurationMinutes != nil {
			took = *session.DurationMinutes
		}
		return commands.Result{Message: fmt.Sprintf("Focus session ended after %d min", took)}, nil
	default:
		state, err := a.Focus.Current(ctx)
		if err != nil {
			return commands.Result{}, err
		}
		return commands.Result{Message: DescribeFocus(state, a.now())}, nil
	}
}

func (a *App) syncCommand(ctx context.Context, args commands.SyncArgs) (commands.Result, error) {
	if a.Sync == nil {
		return commands.Result{}, ErrSyncDisabled
	}
	var status cloudsync.Status
	if args.Collection == "" {
		status = a.Sync.SyncAll(ctx)
	} else {
		var err error
		if status, err = a.Sync.SyncCollection(ctx, args.Collection); err != nil {
			return commands.Result{}, err
		}
	}
	snap := a.Sync.Snapshot()
	if status != cloudsync.StatusSuccess {
		if snap.Err != nil {
			return commands.Result{}, fmt.Errorf("sync %s: %w", status, snap.Err)
		}
		return commands.Result{}, fmt.Errorf("sync %s", status)
	}
	return commands.Result{Message: "Sync complete", Body: SyncTable(snap)}, nil
}

func (a *App) showCommand(ctx context.Context, args commands.ShowArgs) (commands.Result, error) {
	now := a.now()
	var (
		list []model.Task
		err  error
	)
	switch args.Subject {
	case "active":
		list, err = a.Tasks.Active(ctx)
	case "today":
		list, err = a.Tasks.Today(ctx)
	case "upcoming":
		list, err = a.Tasks.Upcoming(ctx)
	case "archived":
		list, err = a.Tasks.Archived(ctx)
	case "completed":
		list, err = a.Tasks.Completed(ctx)
	case "search":
		list, err = a.Tasks.Search(ctx, args.Query)
	case "widget":
		list, err = a.Tasks.ActiveTasksForWidget(ctx)
	case "stats":
		stats, err := a.Tasks.Stats(ctx)
		if err != nil {
			return commands.Result{}, err
		}
		history, err := a.Focus.History(ctx, 0)
		if err != nil {
			return commands.Result{}, err
		}
		week := focus.TotalMinutes(history, now.AddDate(0, 0, -7))
		return commands.Result{Message: "Task statistics", Body: StatsMarkdown(stats, week)}, nil
	case "focus":
		state, err := a.Focus.Current(ctx)
		if err != nil {
			return commands.Result{}, err
		}
		return commands.Result{Message: DescribeFocus(state, now)}, nil
	case "sync":
		if a.Sync == nil {
			return commands.Result{Message: "Sync is disabled"}, nil
		}
		snap := a.Sync.Snapshot()
		return commands.Result{Message: "Sync status: " + string(snap.Status), Body: SyncTable(snap)}, nil
	default:
		return commands.Result{}, fmt.Errorf("show: unknown subject %q", args.Subject)
	}
	if err != nil {
		return commands.Result{}, err
	}
	return commands.Result{
		Message: fmt.Sprintf("%d %s task(s)", len(list), args.Subject),
		Body:    TaskTable(list, now),
	}, nil
}

func bucketLabel(b matching.Bucket) string {
	switch b {
	case matching.BucketLow:
		return "low energy hours"
	case matching.BucketMedium:
		return "medium energy hours"
	default:
		return "peak hours"
	}
}

// DescribeFocus renders a one-line focus status.
func DescribeFocus(state focus.State, now time.Time) string {
	active, ok := state.(focus.Active)
	if !ok {
		return "Focus: idle"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Focus: session #%d since %s", active.SessionID, active.StartTime.Local().Format("15:04"))
	if remaining, bounded := active.Remaining(now); bounded {
		if remaining == 0 {
			b.WriteString(", time is up")
		} else {
			fmt.Fprintf(&b, ", %s left", remaining.Truncate(time.Second))
		}
	}
	if active.Activity != "" && active.Activity != model.ActivityUnknown {
		fmt.Fprintf(&b, " (%s)", strings.ToLower(string(active.Activity)))
	}
	return b.String()
}
