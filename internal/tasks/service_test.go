package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/sandeepkv93/zenith/internal/model"
	"github.com/sandeepkv93/zenith/internal/storage"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func setupService(t *testing.T) (*Service, *storage.SQLiteRepository, *clock) {
	t.Helper()
	repo, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "tasks-test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	c := &clock{now: t0}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, logger, c.Now), repo, c
}

func TestAddDefaultsAndValidation(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	got, err := svc.Add(ctx, Draft{Title: "  Buy milk  "})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if got.ID == 0 || got.Title != "Buy milk" || got.EnergyLevel != model.EnergyMedium || got.Priority != model.PriorityLow {
		t.Fatalf("unexpected defaults: %#v", got)
	}
	if !got.PendingSync || !got.CreatedAt.Equal(t0) || !got.UpdatedAt.Equal(t0) {
		t.Fatalf("new task must be pending with timestamps set: %#v", got)
	}

	if _, err := svc.Add(ctx, Draft{Title: "   "}); !errors.Is(err, model.ErrInvalidTask) {
		t.Fatalf("expected ErrInvalidTask for blank title, got %v", err)
	}
	if _, err := svc.Add(ctx, Draft{Title: "x", EnergyLevel: "MAX"}); !errors.Is(err, model.ErrInvalidEnergy) {
		t.Fatalf("expected ErrInvalidEnergy, got %v", err)
	}

	select {
	case <-svc.Changes():
	default:
		t.Fatal("expected a change signal after add")
	}
}

func TestMissingTaskIsAbsorbed(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	ops := map[string]func() error{
		"complete":  func() error { return svc.Complete(ctx, 404) },
		"archive":   func() error { return svc.Archive(ctx, 404) },
		"snooze":    func() error { return svc.Snooze(ctx, 404, t0.Add(time.Hour)) },
		"unsnooze":  func() error { return svc.Unsnooze(ctx, 404) },
		"priority":  func() error { return svc.ChangePriority(ctx, 404, model.PriorityHigh) },
		"delete":    func() error { return svc.Delete(ctx, 404) },
		"update":    func() error { return svc.Update(ctx, model.Task{ID: 404, Title: "gone"}) },
		"unarchive": func() error { return svc.Unarchive(ctx, 404) },
	}
	for name, op := range ops {
		if err := op(); err != nil {
			t.Fatalf("%s on missing task should be absorbed, got %v", name, err)
		}
	}
}

func TestSnoozeExpiryScenario(t *testing.T) {
	svc, _, c := setupService(t)
	ctx := context.Background()

	task, err := svc.Add(ctx, Draft{Title: "Call mom"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.Snooze(ctx, task.ID, t0.Add(time.Hour)); err != nil {
		t.Fatalf("snooze: %v", err)
	}

	widget, err := svc.ActiveTasksForWidget(ctx)
	if err != nil {
		t.Fatalf("widget: %v", err)
	}
	if len(widget) != 0 {
		t.Fatalf("snoozed task should be hidden, got %#v", widget)
	}

	next, err := svc.NextSnoozeExpiry(ctx)
	if err != nil || next == nil || !next.Equal(t0.Add(time.Hour)) {
		t.Fatalf("unexpected next expiry %v err=%v", next, err)
	}

	c.now = t0.Add(2 * time.Hour)
	woken, err := svc.ExpireSnoozes(ctx, c.now)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if woken != 1 {
		t.Fatalf("expected 1 woken task, got %d", woken)
	}
	widget, err = svc.ActiveTasksForWidget(ctx)
	if err != nil {
		t.Fatalf("widget after expiry: %v", err)
	}
	if len(widget) != 1 || widget[0].IsSnoozed || widget[0].SnoozeUntil != nil || widget[0].SnoozeCount != 1 {
		t.Fatalf("expected task to reappear unsnoozed, got %#v", widget)
	}
}

func TestExpireSnoozesLeavesFutureAndArchived(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	future, _ := svc.Add(ctx, Draft{Title: "later"})
	archived, _ := svc.Add(ctx, Draft{Title: "archived"})
	if err := svc.Snooze(ctx, future.ID, t0.Add(5*time.Hour)); err != nil {
		t.Fatalf("snooze future: %v", err)
	}
	if err := svc.Snooze(ctx, archived.ID, t0.Add(time.Hour)); err != nil {
		t.Fatalf("snooze archived: %v", err)
	}
	if err := svc.Archive(ctx, archived.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}

	woken, err := svc.ExpireSnoozes(ctx, t0.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if woken != 0 {
		t.Fatalf("expected nothing woken, got %d", woken)
	}
}

func TestSnoozeInPastRejectedBeforeWrite(t *testing.T) {
	svc, repo, _ := setupService(t)
	ctx := context.Background()

	task, _ := svc.Add(ctx, Draft{Title: "no time travel"})
	if err := svc.Snooze(ctx, task.ID, t0.Add(-time.Minute)); !errors.Is(err, ErrSnoozeInPast) {
		t.Fatalf("expected ErrSnoozeInPast, got %v", err)
	}
	got, err := repo.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.IsSnoozed || got.SnoozeCount != 0 {
		t.Fatalf("rejected snooze was written: %#v", got)
	}
}

func TestSnoozeForTomorrow(t *testing.T) {
	svc, repo, _ := setupService(t)
	ctx := context.Background()

	task, _ := svc.Add(ctx, Draft{Title: "tomorrow"})
	if err := svc.SnoozeFor(ctx, task.ID, model.SnoozeUntilTomorrow); err != nil {
		t.Fatalf("snooze for: %v", err)
	}
	got, _ := repo.GetTask(ctx, task.ID)
	want := time.Date(2026, 4, 3, 9, 0, 0, 0, time.UTC)
	if got.SnoozeUntil == nil || !got.SnoozeUntil.Equal(want) {
		t.Fatalf("want snooze until %s, got %v", want, got.SnoozeUntil)
	}
}

func TestUpdateKeepsSyncMetadata(t *testing.T) {
	svc, repo, c := setupService(t)
	ctx := context.Background()

	task, _ := svc.Add(ctx, Draft{Title: "draft"})
	if err := repo.MarkTaskSynced(ctx, task.ID, "remote-1", t0, t0); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	c.now = t0.Add(time.Minute)
	task.Title = "final"
	task.RemoteID = ""
	if err := svc.Update(ctx, task); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := repo.GetTask(ctx, task.ID)
	if got.Title != "final" || got.RemoteID != "remote-1" || !got.PendingSync || !got.UpdatedAt.Equal(c.now) {
		t.Fatalf("unexpected updated task: %#v", got)
	}
}

func TestTodayUpcomingAndSearch(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	today := t0.Add(3 * time.Hour)
	tomorrow := t0.Add(26 * time.Hour)
	yesterday := t0.Add(-26 * time.Hour)
	a, _ := svc.Add(ctx, Draft{Title: "Pay rent", DueDate: &today})
	b, _ := svc.Add(ctx, Draft{Title: "Plan trip", DueDate: &tomorrow})
	_, _ = svc.Add(ctx, Draft{Title: "Overdue thing", DueDate: &yesterday})
	_, _ = svc.Add(ctx, Draft{Title: "Someday"})

	got, err := svc.Today(ctx)
	if err != nil || len(got) != 1 || got[0].ID != a.ID {
		t.Fatalf("today: %#v err=%v", got, err)
	}
	got, err = svc.Upcoming(ctx)
	if err != nil || len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("upcoming: %#v err=%v", got, err)
	}
	got, err = svc.Search(ctx, "p")
	if err != nil || len(got) != 2 {
		t.Fatalf("search: %#v err=%v", got, err)
	}
	got, err = svc.Search(ctx, "  ")
	if err != nil || len(got) != 0 {
		t.Fatalf("blank search should return nothing: %#v err=%v", got, err)
	}
}

func TestSuggestUsesClockHour(t *testing.T) {
	svc, _, c := setupService(t)
	ctx := context.Background()

	_, _ = svc.Add(ctx, Draft{Title: "low", EnergyLevel: model.EnergyLow})
	_, _ = svc.Add(ctx, Draft{Title: "medium", EnergyLevel: model.EnergyMedium})
	_, _ = svc.Add(ctx, Draft{Title: "high", EnergyLevel: model.EnergyHigh})

	c.now = time.Date(2026, 4, 2, 22, 0, 0, 0, time.UTC)
	bucket, got, err := svc.Suggest(ctx)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if bucket != "LOW" || len(got) != 1 || got[0].Title != "low" {
		t.Fatalf("unexpected night suggestion %s %#v", bucket, got)
	}
}

func TestStats(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	a, _ := svc.Add(ctx, Draft{Title: "a", EnergyLevel: model.EnergyHigh, Priority: model.PriorityHigh})
	b, _ := svc.Add(ctx, Draft{Title: "b", EnergyLevel: model.EnergyLow})
	c, _ := svc.Add(ctx, Draft{Title: "c"})
	_, _ = svc.Add(ctx, Draft{Title: "d"})
	_ = svc.Complete(ctx, a.ID)
	_ = svc.Archive(ctx, b.ID)
	_ = svc.Snooze(ctx, c.ID, t0.Add(time.Hour))

	st, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Total != 4 || st.Completed != 1 || st.Archived != 1 || st.Snoozed != 1 || st.Active != 1 {
		t.Fatalf("unexpected stats: %#v", st)
	}
	if st.ByEnergy[model.EnergyMedium] != 1 || st.ByPriority[model.PriorityLow] != 1 {
		t.Fatalf("unexpected distributions: %#v", st)
	}
	if rate := st.CompletionRate(); rate < 0.33 || rate > 0.34 {
		t.Fatalf("unexpected completion rate %f", rate)
	}
}
