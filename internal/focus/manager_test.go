package focus

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

var t0 = time.Date(2026, 5, 4, 14, 0, 0, 0, time.UTC)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func setupManager(t *testing.T) (*Manager, *storage.SQLiteRepository, *clock) {
	t.Helper()
	repo, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "focus-test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	c := &clock{now: t0}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(repo, logger, c.Now), repo, c
}

func TestExpiredSessionStaysActive(t *testing.T) {
	m, _, c := setupManager(t)
	ctx := context.Background()

	state, err := m.Start(ctx, 25)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	active, ok := state.(Active)
	if !ok || active.DurationMinutes == nil || *active.DurationMinutes != 25 {
		t.Fatalf("unexpected start state: %#v", state)
	}

	c.now = t0.Add(30 * time.Minute)
	current, err := m.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	active, ok = current.(Active)
	if !ok {
		t.Fatalf("expired session must remain active, got %#v", current)
	}
	remaining, bounded := active.Remaining(c.now)
	if !bounded || remaining != 0 || !active.Expired(c.now) {
		t.Fatalf("expected zero remaining, got %s bounded=%v", remaining, bounded)
	}
}

func TestRefreshPublishesWithoutStopping(t *testing.T) {
	m, _, c := setupManager(t)
	ctx := context.Background()

	if _, err := m.Start(ctx, 25); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-m.Changes()

	c.now = t0.Add(40 * time.Minute)
	state, err := m.Refresh(ctx)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, ok := state.(Active); !ok {
		t.Fatalf("refresh must not end the session, got %#v", state)
	}
	select {
	case published := <-m.Changes():
		active, ok := published.(Active)
		if !ok || !active.Expired(c.now) {
			t.Fatalf("expected expired active state, got %#v", published)
		}
	default:
		t.Fatal("expected refresh to publish")
	}
	history, err := m.History(ctx, 0)
	if err != nil || len(history) != 0 {
		t.Fatalf("expected no ended sessions, got %+v err=%v", history, err)
	}
}

func TestRemainingBeforeExpiryAndIndefinite(t *testing.T) {
	planned := int64(25)
	a := Active{StartTime: t0, DurationMinutes: &planned}
	if left, ok := a.Remaining(t0.Add(10 * time.Minute)); !ok || left != 15*time.Minute {
		t.Fatalf("want 15m left, got %s ok=%v", left, ok)
	}
	if !a.EndsAt().Equal(t0.Add(25 * time.Minute)) {
		t.Fatalf("unexpected end: %s", a.EndsAt())
	}
	indefinite := Active{StartTime: t0}
	if _, ok := indefinite.Remaining(t0.Add(10 * time.Hour)); ok {
		t.Fatal("indefinite session has no remaining time")
	}
	if indefinite.Expired(t0.Add(10 * time.Hour)) {
		t.Fatal("indefinite session never expires")
	}
}

func TestStartWhileActiveIsNoop(t *testing.T) {
	m, repo, c := setupManager(t)
	ctx := context.Background()

	first, err := m.Start(ctx, 25)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	c.now = t0.Add(5 * time.Minute)
	second, err := m.Start(ctx, 50)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	a, b := first.(Active), second.(Active)
	if a.SessionID != b.SessionID || !b.StartTime.Equal(t0) || *b.DurationMinutes != 25 {
		t.Fatalf("existing session overwritten: %#v vs %#v", a, b)
	}
	all, err := repo.ListFocusSessions(ctx, storage.FocusSessionListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected a single session row, got %d", len(all))
	}
}

func TestStopRecordsTruncatedMinutes(t *testing.T) {
	m, repo, c := setupManager(t)
	ctx := context.Background()

	if _, err := m.Start(ctx, 0); err != nil {
		t.Fatalf("start: %v", err)
	}
	c.now = t0.Add(12*time.Minute + 59*time.Second)
	ended, err := m.Stop(ctx)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if ended.IsActive || ended.DurationMinutes == nil || *ended.DurationMinutes != 12 || !ended.PendingSync {
		t.Fatalf("unexpected ended session: %#v", ended)
	}
	stored, err := repo.GetFocusSession(ctx, ended.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.EndTime == nil || !stored.EndTime.Equal(c.now) || stored.PlannedMinutes != nil {
		t.Fatalf("unexpected stored session: %#v", stored)
	}
	if err := stored.Validate(); err != nil {
		t.Fatalf("stored session invalid: %v", err)
	}

	if _, err := m.Stop(ctx); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestTransitionsReadTheStore(t *testing.T) {
	m, repo, c := setupManager(t)
	ctx := context.Background()

	// A session started elsewhere is picked up before start.
	planned := int64(45)
	id, err := repo.CreateFocusSession(ctx, model.FocusSession{
		StartTime: t0, PlannedMinutes: &planned, IsActive: true, CreatedAt: t0, UpdatedAt: t0, PendingSync: true,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	state, err := m.Start(ctx, 10)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if a, ok := state.(Active); !ok || a.SessionID != id || *a.DurationMinutes != 45 {
		t.Fatalf("expected the stored session, got %#v", state)
	}

	// A session ended elsewhere turns the manager inactive.
	c.now = t0.Add(time.Minute)
	session, _ := repo.GetFocusSession(ctx, id)
	mins := int64(1)
	session.IsActive = false
	session.EndTime = &c.now
	session.DurationMinutes = &mins
	session.UpdatedAt = c.now
	if err := repo.UpdateFocusSession(ctx, session); err != nil {
		t.Fatalf("end elsewhere: %v", err)
	}
	state, err = m.Current(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if _, ok := state.(Inactive); !ok {
		t.Fatalf("expected inactive, got %#v", state)
	}
}

func TestToggle(t *testing.T) {
	m, _, c := setupManager(t)
	ctx := context.Background()

	state, err := m.Toggle(ctx, 25)
	if err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if _, ok := state.(Active); !ok {
		t.Fatalf("expected active, got %#v", state)
	}
	c.now = t0.Add(time.Minute)
	state, err = m.Toggle(ctx, 25)
	if err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if _, ok := state.(Inactive); !ok {
		t.Fatalf("expected inactive, got %#v", state)
	}
	history, err := m.History(ctx, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || TotalMinutes(history, t0) != 1 {
		t.Fatalf("unexpected history: %#v", history)
	}
}

func TestActivityDetectedThreshold(t *testing.T) {
	m, _, _ := setupManager(t)
	ctx := context.Background()

	if applied, err := m.ActivityDetected(ctx, "walking", 90); err != nil || applied {
		t.Fatalf("no session: applied=%v err=%v", applied, err)
	}
	if _, err := m.Start(ctx, 25); err != nil {
		t.Fatalf("start: %v", err)
	}
	if applied, _ := m.ActivityDetected(ctx, "in_vehicle", 74); applied {
		t.Fatal("label below threshold must be ignored")
	}
	state, _ := m.Current(ctx)
	if a := state.(Active); a.Activity != model.ActivityUnknown {
		t.Fatalf("activity changed below threshold: %s", a.Activity)
	}
	if applied, _ := m.ActivityDetected(ctx, "in_vehicle", 75); !applied {
		t.Fatal("label at threshold must apply")
	}
	state, _ = m.Current(ctx)
	a := state.(Active)
	if a.Activity != model.ActivityDriving || a.DurationMinutes == nil || *a.DurationMinutes != 25 {
		t.Fatalf("activity update changed more than the activity: %#v", a)
	}
}

func TestChangesCarryLatestState(t *testing.T) {
	m, _, _ := setupManager(t)
	ctx := context.Background()

	if _, err := m.Start(ctx, 25); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := m.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	select {
	case s := <-m.Changes():
		if _, ok := s.(Inactive); !ok {
			t.Fatalf("expected latest state inactive, got %#v", s)
		}
	default:
		t.Fatal("expected a state change")
	}
}
