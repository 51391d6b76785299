package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sandeepkv93/zenith/internal/model"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "zenith-test.db")
	repo, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func parseRFC3339(t *testing.T, value string) time.Time {
	t.Helper()
	out, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	return out
}

func newTask(title string, at time.Time) model.Task {
	return model.Task{
		Title:       title,
		EnergyLevel: model.EnergyMedium,
		Priority:    model.PriorityLow,
		CreatedAt:   at,
		UpdatedAt:   at,
		PendingSync: true,
	}
}

func TestTaskCRUDAndList(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	created := parseRFC3339(t, "2026-02-09T12:00:00Z")
	due := created.Add(48 * time.Hour)

	task := newTask("Write schema", created)
	task.Description = "Design storage layout"
	task.Priority = model.PriorityHigh
	task.EnergyLevel = model.EnergyHigh
	task.DueDate = &due
	id, err := repo.CreateTask(ctx, task)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	task.ID = id

	got, err := repo.GetTask(ctx, id)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Title != task.Title || got.Priority != model.PriorityHigh || got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Fatalf("unexpected task get result: %#v", got)
	}
	if !got.PendingSync || got.RemoteID != "" || got.LocationID != nil {
		t.Fatalf("unexpected sync fields: %#v", got)
	}

	completedAt := created.Add(time.Hour)
	task.Title = "Write schema v2"
	task.IsCompleted = true
	task.CompletedDate = &completedAt
	task.UpdatedAt = completedAt
	if err := repo.UpdateTask(ctx, task); err != nil {
		t.Fatalf("update task: %v", err)
	}

	done, err := repo.ListTasks(ctx, TaskListFilter{Completed: Bool(true)})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(done) != 1 || done[0].ID != id || done[0].Title != "Write schema v2" {
		t.Fatalf("unexpected completed list: %#v", done)
	}
	open, err := repo.ListTasks(ctx, TaskListFilter{Completed: Bool(false)})
	if err != nil {
		t.Fatalf("list open tasks: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("expected no open tasks, got %#v", open)
	}

	if err := repo.DeleteTask(ctx, id); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if _, err := repo.GetTask(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.UpdateTask(ctx, task); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update of missing task, got %v", err)
	}
	if err := repo.DeleteTask(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListTasksFiltersAndPagination(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	base := parseRFC3339(t, "2026-02-09T12:00:00Z")

	titles := []string{"Buy milk", "Call plumber", "Milk the budget review", "Archive me"}
	for i, title := range titles {
		task := newTask(title, base.Add(time.Duration(i)*time.Minute))
		if title == "Archive me" {
			task.IsArchived = true
		}
		if _, err := repo.CreateTask(ctx, task); err != nil {
			t.Fatalf("create %q: %v", title, err)
		}
	}

	matches, err := repo.ListTasks(ctx, TaskListFilter{TitleContains: "MILK"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 2 || matches[0].Title != "Milk the budget review" {
		t.Fatalf("unexpected search result: %#v", matches)
	}

	archived, err := repo.ListTasks(ctx, TaskListFilter{Archived: Bool(true)})
	if err != nil {
		t.Fatalf("list archived: %v", err)
	}
	if len(archived) != 1 || archived[0].Title != "Archive me" {
		t.Fatalf("unexpected archived list: %#v", archived)
	}

	page, err := repo.ListTasks(ctx, TaskListFilter{Offset: 3})
	if err != nil {
		t.Fatalf("offset without limit: %v", err)
	}
	if len(page) != 1 || page[0].Title != "Buy milk" {
		t.Fatalf("unexpected offset page: %#v", page)
	}
	page, err = repo.ListTasks(ctx, TaskListFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("limit+offset: %v", err)
	}
	if len(page) != 2 || page[0].Title != "Milk the budget review" {
		t.Fatalf("unexpected limited page: %#v", page)
	}
}

func TestListTasksPendingSinceUsesWatermark(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	watermark := parseRFC3339(t, "2026-02-09T12:00:00.5Z")

	before := newTask("before", parseRFC3339(t, "2026-02-09T12:00:00.25Z"))
	exact := newTask("exact", watermark)
	after := newTask("after", parseRFC3339(t, "2026-02-09T12:00:00.500000001Z"))
	synced := newTask("synced", parseRFC3339(t, "2026-02-09T13:00:00Z"))
	synced.PendingSync = false
	for _, task := range []model.Task{before, exact, after, synced} {
		if _, err := repo.CreateTask(ctx, task); err != nil {
			t.Fatalf("create %q: %v", task.Title, err)
		}
	}

	pending, err := repo.ListTasksPendingSince(ctx, watermark)
	if err != nil {
		t.Fatalf("pending since: %v", err)
	}
	if len(pending) != 1 || pending[0].Title != "after" {
		t.Fatalf("expected only the task newer than the watermark, got %#v", pending)
	}

	all, err := repo.ListTasksPendingSince(ctx, time.Time{})
	if err != nil {
		t.Fatalf("pending since epoch: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 pending tasks, got %d", len(all))
	}
}

func TestMarkTaskSyncedKeepsConcurrentEditPending(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	created := parseRFC3339(t, "2026-02-09T12:00:00Z")
	syncedAt := created.Add(time.Minute)

	id, err := repo.CreateTask(ctx, newTask("push me", created))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.MarkTaskSynced(ctx, id, "doc-1", syncedAt, created); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	got, err := repo.GetTask(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PendingSync || got.RemoteID != "doc-1" || got.LastSyncedAt == nil || !got.LastSyncedAt.Equal(syncedAt) {
		t.Fatalf("unexpected synced task: %#v", got)
	}

	got.UpdatedAt = created.Add(2 * time.Minute)
	got.PendingSync = true
	if err := repo.UpdateTask(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := repo.MarkTaskSynced(ctx, id, "doc-1", syncedAt, created); err != nil {
		t.Fatalf("mark stale version: %v", err)
	}
	got, err = repo.GetTask(ctx, id)
	if err != nil {
		t.Fatalf("get after stale mark: %v", err)
	}
	if !got.PendingSync {
		t.Fatal("expected edit made after the pushed version to stay pending")
	}

	if err := repo.MarkTaskSynced(ctx, 9999, "x", syncedAt, created); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing task, got %v", err)
	}
}

func TestUpsertTasksRemoteWins(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	created := parseRFC3339(t, "2026-02-09T12:00:00Z")

	locID, err := repo.CreateLocation(ctx, model.Location{Name: "Home", Latitude: 1, Longitude: 2, Radius: 100})
	if err != nil {
		t.Fatalf("create location: %v", err)
	}

	localID, err := repo.CreateTask(ctx, newTask("local title", created))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	syncedAt := created.Add(time.Hour)
	missingLoc := int64(4242)
	remote := []model.Task{
		{
			ID: localID, Title: "remote title", EnergyLevel: model.EnergyLow, Priority: model.PriorityHigh,
			CreatedAt: created, UpdatedAt: created.Add(time.Minute), LocationID: &locID,
			RemoteID: "doc-a", LastSyncedAt: &syncedAt,
		},
		{
			ID: 77, Title: "from another device", EnergyLevel: model.EnergyHigh, Priority: model.PriorityMedium,
			CreatedAt: created, UpdatedAt: created, LocationID: &missingLoc,
			RemoteID: "doc-b", LastSyncedAt: &syncedAt,
		},
	}
	if err := repo.UpsertTasks(ctx, remote); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := repo.GetTask(ctx, localID)
	if err != nil {
		t.Fatalf("get local: %v", err)
	}
	if got.Title != "remote title" || got.PendingSync || got.RemoteID != "doc-a" || got.LocationID == nil || *got.LocationID != locID {
		t.Fatalf("remote values not applied: %#v", got)
	}

	inserted, err := repo.GetTask(ctx, 77)
	if err != nil {
		t.Fatalf("get inserted: %v", err)
	}
	if inserted.LocationID != nil {
		t.Fatalf("expected unknown location to be cleared, got %v", *inserted.LocationID)
	}
	if inserted.PendingSync {
		t.Fatal("pulled task must not be pending")
	}

	nextID, err := repo.CreateTask(ctx, newTask("after pull", created))
	if err != nil {
		t.Fatalf("create after pull: %v", err)
	}
	if nextID <= 77 {
		t.Fatalf("expected new ids to continue after pulled ids, got %d", nextID)
	}
}

func TestDeleteLocationClearsTaskReference(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	created := parseRFC3339(t, "2026-02-09T12:00:00Z")

	locID, err := repo.CreateLocation(ctx, model.Location{Name: "Office", Latitude: 10, Longitude: 20, Radius: 50, Address: "1 Main St"})
	if err != nil {
		t.Fatalf("create location: %v", err)
	}
	task := newTask("file report", created)
	task.LocationID = &locID
	task.LocationReminderEnabled = true
	id, err := repo.CreateTask(ctx, task)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	atOffice, err := repo.ListTasks(ctx, TaskListFilter{LocationID: Int64(locID), ReminderEnabled: Bool(true)})
	if err != nil {
		t.Fatalf("list by location: %v", err)
	}
	if len(atOffice) != 1 || atOffice[0].ID != id {
		t.Fatalf("unexpected location tasks: %#v", atOffice)
	}

	loc, err := repo.GetLocation(ctx, locID)
	if err != nil {
		t.Fatalf("get location: %v", err)
	}
	if loc.Address != "1 Main St" || loc.Radius != 50 {
		t.Fatalf("unexpected location: %#v", loc)
	}
	loc.Name = "HQ"
	if err := repo.UpdateLocation(ctx, loc); err != nil {
		t.Fatalf("update location: %v", err)
	}

	if err := repo.MarkTaskSynced(ctx, id, "remote-1", created, created); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	deletedAt := created.Add(time.Hour)
	if err := repo.DeleteLocation(ctx, locID, deletedAt); err != nil {
		t.Fatalf("delete location: %v", err)
	}
	got, err := repo.GetTask(ctx, id)
	if err != nil {
		t.Fatalf("task should survive location delete: %v", err)
	}
	if got.LocationID != nil {
		t.Fatalf("expected cleared location, got %v", *got.LocationID)
	}
	if got.LocationReminderEnabled || got.ReminderTriggered {
		t.Fatalf("reminder should be cleared with the location: %#v", got)
	}
	if !got.PendingSync || !got.UpdatedAt.Equal(deletedAt) {
		t.Fatalf("task should be touched and pending, got pending=%v updated=%s", got.PendingSync, got.UpdatedAt)
	}
	pending, err := repo.ListTasksPendingSince(ctx, created)
	if err != nil {
		t.Fatalf("pending since: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != id {
		t.Fatalf("expected orphaned task in push set, got %#v", pending)
	}
	if _, err := repo.GetLocation(ctx, locID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteLocation(ctx, locID, deletedAt); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestUpsertLocations(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	if err := repo.UpsertLocations(ctx, []model.Location{
		{ID: 5, Name: "Gym", Latitude: 1, Longitude: 1, Radius: 100},
		{ID: 6, Name: "Cafe", Latitude: 2, Longitude: 2, Radius: 30},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.UpsertLocations(ctx, []model.Location{{ID: 5, Name: "Gym (new)", Latitude: 1, Longitude: 1, Radius: 120}}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	locs, err := repo.ListLocations(ctx, LocationListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(locs) != 2 || locs[0].Name != "Cafe" || locs[1].Name != "Gym (new)" || locs[1].Radius != 120 {
		t.Fatalf("unexpected locations: %#v", locs)
	}
}

func TestFocusSessionSingleActive(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	start := parseRFC3339(t, "2026-02-09T09:00:00Z")
	planned := int64(25)

	active := model.FocusSession{StartTime: start, PlannedMinutes: &planned, IsActive: true, CreatedAt: start, UpdatedAt: start, PendingSync: true}
	id, err := repo.CreateFocusSession(ctx, active)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := repo.CreateFocusSession(ctx, active); !errors.Is(err, ErrActiveSessionExists) {
		t.Fatalf("expected ErrActiveSessionExists, got %v", err)
	}

	got, err := repo.GetActiveFocusSession(ctx)
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if got.ID != id || got.PlannedMinutes == nil || *got.PlannedMinutes != 25 {
		t.Fatalf("unexpected active session: %#v", got)
	}

	end := start.Add(25 * time.Minute)
	minutes := int64(25)
	got.IsActive = false
	got.EndTime = &end
	got.DurationMinutes = &minutes
	got.UpdatedAt = end
	if err := repo.UpdateFocusSession(ctx, got); err != nil {
		t.Fatalf("end session: %v", err)
	}
	if _, err := repo.GetActiveFocusSession(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no active session, got %v", err)
	}

	if _, err := repo.CreateFocusSession(ctx, active); err != nil {
		t.Fatalf("new session after ending previous: %v", err)
	}
	all, err := repo.ListFocusSessions(ctx, FocusSessionListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(all))
	}
	ended, err := repo.ListFocusSessions(ctx, FocusSessionListFilter{Active: Bool(false)})
	if err != nil {
		t.Fatalf("list ended: %v", err)
	}
	if len(ended) != 1 || ended[0].DurationMinutes == nil || *ended[0].DurationMinutes != 25 {
		t.Fatalf("unexpected ended sessions: %#v", ended)
	}
}

func TestUpsertFocusSessionsSkipsConflictingActive(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	start := parseRFC3339(t, "2026-02-09T09:00:00Z")

	localID, err := repo.CreateFocusSession(ctx, model.FocusSession{StartTime: start, IsActive: true, CreatedAt: start, UpdatedAt: start, PendingSync: true})
	if err != nil {
		t.Fatalf("create local: %v", err)
	}

	end := start.Add(-time.Hour)
	mins := int64(30)
	remote := []model.FocusSession{
		{ID: 40, StartTime: start.Add(-time.Minute), IsActive: true, CreatedAt: start, UpdatedAt: start, RemoteID: "r-active"},
		{ID: 41, StartTime: start.Add(-90 * time.Minute), EndTime: &end, DurationMinutes: &mins, CreatedAt: start, UpdatedAt: start, RemoteID: "r-done"},
	}
	skipped, err := repo.UpsertFocusSessions(ctx, remote)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if skipped != 1 {
		t.Fatalf("expected one skipped session, got %d", skipped)
	}
	active, err := repo.GetActiveFocusSession(ctx)
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if active.ID != localID {
		t.Fatalf("local active session replaced: %#v", active)
	}
	if _, err := repo.GetFocusSession(ctx, 41); err != nil {
		t.Fatalf("ended remote session missing: %v", err)
	}
	if _, err := repo.GetFocusSession(ctx, 40); !errors.Is(err, ErrNotFound) {
		t.Fatalf("conflicting active session should not be stored, got %v", err)
	}

	pending, err := repo.ListFocusSessionsPendingSince(ctx, time.Time{})
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != localID {
		t.Fatalf("unexpected pending sessions: %#v", pending)
	}
	if err := repo.MarkFocusSessionSynced(ctx, localID, "r-local", start, start); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	pending, err = repo.ListFocusSessionsPendingSince(ctx, time.Time{})
	if err != nil {
		t.Fatalf("pending after mark: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected nothing pending, got %#v", pending)
	}
}

func TestMetaStore(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	if _, ok, err := repo.GetMeta(ctx, "sync.watermark.tasks"); err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}
	if err := repo.SetMeta(ctx, "sync.watermark.tasks", "a"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := repo.SetMeta(ctx, "sync.watermark.tasks", "b"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	value, ok, err := repo.GetMeta(ctx, "sync.watermark.tasks")
	if err != nil || !ok || value != "b" {
		t.Fatalf("unexpected meta value=%q ok=%v err=%v", value, ok, err)
	}
	if err := repo.DeleteMeta(ctx, "sync.watermark.tasks"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := repo.GetMeta(ctx, "sync.watermark.tasks"); ok {
		t.Fatal("expected key removed")
	}
}
