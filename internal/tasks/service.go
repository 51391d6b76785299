package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sandeepkv93/zenith/internal/matching"
	"github.com/sandeepkv93/zenith/internal/model"
	"github.com/sandeepkv93/zenith/internal/storage"
)

// Draft carries the user supplied fields of a new task.
type Draft struct {
	Title                   string
	Description             string
	DueDate                 *time.Time
	EnergyLevel             model.EnergyLevel
	Priority                model.Priority
	LocationID              *int64
	LocationReminderEnabled bool
}

// Service applies task transitions against the store. Transitions on a task
// that no longer exists are absorbed: they log at debug level and return nil.
type Service struct {
	repo    storage.TaskStore
	logger  *slog.Logger
	now     func() time.Time
	changes chan struct{}
}

func NewService(repo storage.TaskStore, logger *slog.Logger, now func() time.Time) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:    repo,
		logger:  logger.With("component", "tasks"),
		now:     now,
		changes: make(chan struct{}, 1),
	}
}

// Changes receives a signal after any successful write. Signals coalesce.
func (s *Service) Changes() <-chan struct{} {
	return s.changes
}

func (s *Service) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

func (s *Service) Add(ctx context.Context, d Draft) (model.Task, error) {
	now := s.now()
	t := model.Task{
		Title:                   strings.TrimSpace(d.Title),
		Description:             d.Description,
		DueDate:                 d.DueDate,
		EnergyLevel:             d.EnergyLevel,
		Priority:                d.Priority,
		LocationID:              d.LocationID,
		LocationReminderEnabled: d.LocationReminderEnabled && d.LocationID != nil,
		CreatedAt:               now,
		UpdatedAt:               now,
		PendingSync:             true,
	}
	if t.EnergyLevel == "" {
		t.EnergyLevel = model.EnergyMedium
	}
	if t.Priority == "" {
		t.Priority = model.PriorityLow
	}
	if err := t.Validate(); err != nil {
		return model.Task{}, err
	}
	id, err := s.repo.CreateTask(ctx, t)
	if err != nil {
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}
	t.ID = id
	s.logger.Debug("task added", "task_id", id)
	s.notify()
	return t, nil
}

// Update stores edited fields of an existing task and marks it for push.
func (s *Service) Update(ctx context.Context, t model.Task) error {
	current, err := s.repo.GetTask(ctx, t.ID)
	if err != nil {
		return s.absorb(err, "update", t.ID)
	}
	t.CreatedAt = current.CreatedAt
	t.UpdatedAt = current.UpdatedAt
	t.RemoteID = current.RemoteID
	t.LastSyncedAt = current.LastSyncedAt
	t = touch(t, s.now())
	if err := t.Validate(); err != nil {
		return err
	}
	if err := s.repo.UpdateTask(ctx, t); err != nil {
		return s.absorb(err, "update", t.ID)
	}
	s.notify()
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteTask(ctx, id); err != nil {
		return s.absorb(err, "delete", id)
	}
	s.notify()
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (model.Task, error) {
	return s.repo.GetTask(ctx, id)
}

func (s *Service) Complete(ctx context.Context, id int64) error {
	return s.apply(ctx, "complete", id, func(t model.Task, now time.Time) (model.Task, error) {
		return Complete(t, now, now), nil
	})
}

func (s *Service) Reopen(ctx context.Context, id int64) error {
	return s.apply(ctx, "reopen", id, func(t model.Task, now time.Time) (model.Task, error) {
		return Reopen(t, now), nil
	})
}

func (s *Service) Archive(ctx context.Context, id int64) error {
	return s.apply(ctx, "archive", id, func(t model.Task, now time.Time) (model.Task, error) {
		return Archive(t, now), nil
	})
}

func (s *Service) Unarchive(ctx context.Context, id int64) error {
	return s.apply(ctx, "unarchive", id, func(t model.Task, now time.Time) (model.Task, error) {
		return Unarchive(t, now), nil
	})
}

// Snooze hides the task until the given time. A time that is not in the
// future is rejected with ErrSnoozeInPast before anything is written.
func (s *Service) Snooze(ctx context.Context, id int64, until time.Time) error {
	return s.apply(ctx, "snooze", id, func(t model.Task, now time.Time) (model.Task, error) {
		return Snooze(t, until, now)
	})
}

func (s *Service) SnoozeFor(ctx context.Context, id int64, option model.SnoozeOption) error {
	until, err := option.Until(s.now())
	if err != nil {
		return err
	}
	return s.Snooze(ctx, id, until)
}

func (s *Service) Unsnooze(ctx context.Context, id int64) error {
	return s.apply(ctx, "unsnooze", id, func(t model.Task, now time.Time) (model.Task, error) {
		return Unsnooze(t, now), nil
	})
}

func (s *Service) ChangePriority(ctx context.Context, id int64, p model.Priority) error {
	return s.apply(ctx, "change_priority", id, func(t model.Task, now time.Time) (model.Task, error) {
		return ChangePriority(t, p, now)
	})
}

func (s *Service) ChangeEnergy(ctx context.Context, id int64, e model.EnergyLevel) error {
	return s.apply(ctx, "change_energy", id, func(t model.Task, now time.Time) (model.Task, error) {
		return ChangeEnergy(t, e, now)
	})
}

func (s *Service) SetLocationReminder(ctx context.Context, id int64, locationID *int64, enabled bool) error {
	return s.apply(ctx, "set_location_reminder", id, func(t model.Task, now time.Time) (model.Task, error) {
		return SetLocationReminder(t, locationID, enabled, now), nil
	})
}

// ExpireSnoozes wakes every snoozed open task whose snooze time has passed
// and returns how many were woken.
func (s *Service) ExpireSnoozes(ctx context.Context, now time.Time) (int, error) {
	snoozed, err := s.repo.ListTasks(ctx, storage.TaskListFilter{
		Snoozed:   storage.Bool(true),
		Completed: storage.Bool(false),
		Archived:  storage.Bool(false),
	})
	if err != nil {
		return 0, fmt.Errorf("list snoozed tasks: %w", err)
	}
	woken := 0
	for _, t := range snoozed {
		if !SnoozeExpired(t, now) {
			continue
		}
		next := Unsnooze(t, now)
		if err := s.repo.UpdateTask(ctx, next); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return woken, fmt.Errorf("unsnooze task %d: %w", t.ID, err)
		}
		woken++
	}
	if woken > 0 {
		s.logger.Info("snoozes expired", "count", woken)
		s.notify()
	}
	return woken, nil
}

// NextSnoozeExpiry returns the earliest pending snooze time, if any.
func (s *Service) NextSnoozeExpiry(ctx context.Context) (*time.Time, error) {
	snoozed, err := s.repo.ListTasks(ctx, storage.TaskListFilter{
		Snoozed:   storage.Bool(true),
		Completed: storage.Bool(false),
		Archived:  storage.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	var next *time.Time
	for _, t := range snoozed {
		if t.SnoozeUntil == nil {
			continue
		}
		if next == nil || t.SnoozeUntil.Before(*next) {
			v := *t.SnoozeUntil
			next = &v
		}
	}
	return next, nil
}

func (s *Service) All(ctx context.Context) ([]model.Task, error) {
	return s.repo.ListTasks(ctx, storage.TaskListFilter{})
}

func (s *Service) Active(ctx context.Context) ([]model.Task, error) {
	all, err := s.repo.ListTasks(ctx, storage.TaskListFilter{
		Completed: storage.Bool(false),
		Archived:  storage.Bool(false),
		Snoozed:   storage.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// ActiveTasksForWidget returns active tasks ordered by due date with undated
// tasks last, then by priority.
func (s *Service) ActiveTasksForWidget(ctx context.Context) ([]model.Task, error) {
	active, err := s.Active(ctx)
	if err != nil {
		return nil, err
	}
	matching.SortByDueThenPriority(active)
	return active, nil
}

func (s *Service) ByEnergy(ctx context.Context, level model.EnergyLevel) ([]model.Task, error) {
	active, err := s.Active(ctx)
	if err != nil {
		return nil, err
	}
	return matching.ByEnergyLevel(active, level), nil
}

// Suggest returns the tasks suggested for the hour of the service clock.
func (s *Service) Suggest(ctx context.Context) (matching.Bucket, []model.Task, error) {
	active, err := s.Active(ctx)
	if err != nil {
		return "", nil, err
	}
	hour := s.now().Hour()
	return matching.BucketForHour(hour), matching.SuggestByHourOfDay(active, hour), nil
}

func (s *Service) Search(ctx context.Context, query string) ([]model.Task, error) {
	if strings.TrimSpace(query) == "" {
		return []model.Task{}, nil
	}
	return s.repo.ListTasks(ctx, storage.TaskListFilter{TitleContains: query, Archived: storage.Bool(false)})
}

// Today returns active tasks due on the calendar day of the service clock.
func (s *Service) Today(ctx context.Context) ([]model.Task, error) {
	start, end := dayBounds(s.now())
	return s.dueBetween(ctx, &start, &end)
}

// Upcoming returns active tasks due after today.
func (s *Service) Upcoming(ctx context.Context) ([]model.Task, error) {
	_, end := dayBounds(s.now())
	return s.dueBetween(ctx, &end, nil)
}

func (s *Service) Archived(ctx context.Context) ([]model.Task, error) {
	return s.repo.ListTasks(ctx, storage.TaskListFilter{Archived: storage.Bool(true)})
}

func (s *Service) Completed(ctx context.Context) ([]model.Task, error) {
	return s.repo.ListTasks(ctx, storage.TaskListFilter{Completed: storage.Bool(true), Archived: storage.Bool(false)})
}

func (s *Service) dueBetween(ctx context.Context, from, to *time.Time) ([]model.Task, error) {
	active, err := s.Active(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Task, 0, len(active))
	for _, t := range active {
		if t.DueDate == nil {
			continue
		}
		if from != nil && t.DueDate.Before(*from) {
			continue
		}
		if to != nil && !t.DueDate.Before(*to) {
			continue
		}
		out = append(out, t)
	}
	matching.SortByDueThenPriority(out)
	return out, nil
}

func dayBounds(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}

type transition func(t model.Task, now time.Time) (model.Task, error)

func (s *Service) apply(ctx context.Context, op string, id int64, fn transition) error {
	current, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return s.absorb(err, op, id)
	}
	next, err := fn(current, s.now())
	if err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	if err := s.repo.UpdateTask(ctx, next); err != nil {
		return s.absorb(err, op, id)
	}
	s.notify()
	return nil
}

func (s *Service) absorb(err error, op string, id int64) error {
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Debug("task not found, ignoring", "op", op, "task_id", id)
		return nil
	}
	return fmt.Errorf("%s task %d: %w", op, id, err)
}
