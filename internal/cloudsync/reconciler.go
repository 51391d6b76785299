package cloudsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/zenith/internal/model"
	"github.com/sandeepkv93/zenith/internal/storage"
)

const watermarkKeyPrefix = "sync.watermark."

// Result summarizes one reconcile of a collection.
type Result struct {
	Collection string
	RunID      string
	Pulled     int
	Dropped    int
	Skipped    int
	Pushed     int
	Failed     int
	Watermark  time.Time
}

// Reconciler runs pull-then-push for one collection at a time. It holds no
// state between calls; the watermark lives in the local store.
type Reconciler struct {
	local    storage.SyncStore
	remote   DocumentStore
	identity Identity
	logger   *slog.Logger
	now      func() time.Time
}

func NewReconciler(local storage.SyncStore, remote DocumentStore, identity Identity, logger *slog.Logger, now func() time.Time) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Reconciler{
		local:    local,
		remote:   remote,
		identity: identity,
		logger:   logger.With("component", "cloudsync"),
		now:      now,
	}
}

// Sync reconciles one collection. It fails fast with ErrUnauthenticated when
// nobody is signed in. A failed pull returns an error wrapping ErrPullFailed
// and nothing is pushed. Individual push failures are logged and counted in
// the result; the watermark still advances past them.
func (r *Reconciler) Sync(ctx context.Context, collection string) (Result, error) {
	uid, ok := r.identity.UserID()
	if !ok || uid == "" {
		return Result{Collection: collection}, ErrUnauthenticated
	}
	res := Result{Collection: collection, RunID: uuid.NewString()}
	log := r.logger.With("collection", collection, "sync_run", res.RunID)
	path := CollectionPath(uid, collection)

	watermark, err := r.Watermark(ctx, collection)
	if err != nil {
		return res, err
	}
	startedAt := r.now()

	switch collection {
	case CollectionTasks:
		err = r.syncTasks(ctx, log, path, watermark, &res)
	case CollectionLocations:
		err = r.syncLocations(ctx, log, path, &res)
	case CollectionFocusSessions:
		err = r.syncFocusSessions(ctx, log, path, watermark, &res)
	default:
		return res, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	if err != nil {
		log.Warn("sync aborted", "err", err)
		return res, err
	}

	// never move backwards, even if the clock did
	next := startedAt
	if next.Before(watermark) {
		next = watermark
	}
	if err := r.local.SetMeta(ctx, watermarkKeyPrefix+collection, next.UTC().Format(time.RFC3339Nano)); err != nil {
		return res, fmt.Errorf("store watermark: %w", err)
	}
	res.Watermark = next
	log.Info("sync finished",
		"pulled", res.Pulled, "dropped", res.Dropped, "skipped", res.Skipped,
		"pushed", res.Pushed, "failed", res.Failed)
	return res, nil
}

// Watermark returns the last successful sync time of collection, or the zero
// time when it has never synced.
func (r *Reconciler) Watermark(ctx context.Context, collection string) (time.Time, error) {
	raw, ok, err := r.local.GetMeta(ctx, watermarkKeyPrefix+collection)
	if err != nil {
		return time.Time{}, fmt.Errorf("load watermark: %w", err)
	}
	if !ok {
		return time.Time{}, nil
	}
	w, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		r.logger.Warn("unreadable watermark, syncing from scratch", "collection", collection, "value", raw)
		return time.Time{}, nil
	}
	return w, nil
}

// ResetWatermarks forgets every collection's last sync time.
func (r *Reconciler) ResetWatermarks(ctx context.Context) error {
	for _, c := range Collections {
		if err := r.local.DeleteMeta(ctx, watermarkKeyPrefix+c); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) pull(ctx context.Context, path string) ([]Document, error) {
	docs, err := r.remote.List(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPullFailed, err)
	}
	return docs, nil
}

func (r *Reconciler) syncTasks(ctx context.Context, log *slog.Logger, path string, watermark time.Time, res *Result) error {
	docs, err := r.pull(ctx, path)
	if err != nil {
		return err
	}
	now := r.now()
	pulled := make([]model.Task, 0, len(docs))
	for _, doc := range docs {
		t, mapErr := taskFromDocument(doc, now)
		if mapErr != nil {
			res.Dropped++
			log.Warn("dropping remote task", "doc_id", doc.ID, "err", mapErr)
			continue
		}
		pulled = append(pulled, t)
	}
	if err := r.local.UpsertTasks(ctx, pulled); err != nil {
		return fmt.Errorf("%w: upsert tasks: %w", ErrPullFailed, err)
	}
	res.Pulled = len(pulled)

	pending, err := r.local.ListTasksPendingSince(ctx, watermark)
	if err != nil {
		return fmt.Errorf("list pending tasks: %w", err)
	}
	for _, t := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		docID := t.RemoteID
		if docID == "" {
			docID = strconv.FormatInt(t.ID, 10)
		}
		if err := r.remote.Set(ctx, path, docID, taskFields(t)); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			res.Failed++
			log.Warn("push task failed", "task_id", t.ID, "err", err)
			continue
		}
		if err := r.local.MarkTaskSynced(ctx, t.ID, docID, r.now(), t.UpdatedAt); err != nil && !errors.Is(err, storage.ErrNotFound) {
			res.Failed++
			log.Warn("mark task synced failed", "task_id", t.ID, "err", err)
			continue
		}
		res.Pushed++
	}
	return nil
}

// syncLocations pushes every location on each run since locations carry no
// change tracking.
func (r *Reconciler) syncLocations(ctx context.Context, log *slog.Logger, path string, res *Result) error {
	docs, err := r.pull(ctx, path)
	if err != nil {
		return err
	}
	pulled := make([]model.Location, 0, len(docs))
	for _, doc := range docs {
		loc, mapErr := locationFromDocument(doc)
		if mapErr != nil {
			res.Dropped++
			log.Warn("dropping remote location", "doc_id", doc.ID, "err", mapErr)
			continue
		}
		pulled = append(pulled, loc)
	}
	if err := r.local.UpsertLocations(ctx, pulled); err != nil {
		return fmt.Errorf("%w: upsert locations: %w", ErrPullFailed, err)
	}
	res.Pulled = len(pulled)

	all, err := r.local.ListLocations(ctx, storage.LocationListFilter{})
	if err != nil {
		return fmt.Errorf("list locations: %w", err)
	}
	for _, loc := range all {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.remote.Set(ctx, path, strconv.FormatInt(loc.ID, 10), locationFields(loc)); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			res.Failed++
			log.Warn("push location failed", "location_id", loc.ID, "err", err)
			continue
		}
		res.Pushed++
	}
	return nil
}

func (r *Reconciler) syncFocusSessions(ctx context.Context, log *slog.Logger, path string, watermark time.Time, res *Result) error {
	docs, err := r.pull(ctx, path)
	if err != nil {
		return err
	}
	now := r.now()
	pulled := make([]model.FocusSession, 0, len(docs))
	for _, doc := range docs {
		s, mapErr := focusFromDocument(doc, now)
		if mapErr != nil {
			res.Dropped++
			log.Warn("dropping remote focus session", "doc_id", doc.ID, "err", mapErr)
			continue
		}
		pulled = append(pulled, s)
	}
	skipped, err := r.local.UpsertFocusSessions(ctx, pulled)
	if err != nil {
		return fmt.Errorf("%w: upsert focus sessions: %w", ErrPullFailed, err)
	}
	if skipped > 0 {
		log.Warn("skipped remote active sessions that conflict with the local active session", "count", skipped)
	}
	res.Skipped = skipped
	res.Pulled = len(pulled) - skipped

	pending, err := r.local.ListFocusSessionsPendingSince(ctx, watermark)
	if err != nil {
		return fmt.Errorf("list pending focus sessions: %w", err)
	}
	for _, s := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		docID := s.RemoteID
		var pushErr error
		if docID == "" {
			docID, pushErr = r.remote.Add(ctx, path, focusFields(s))
		} else {
			pushErr = r.remote.Set(ctx, path, docID, focusFields(s))
		}
		if pushErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			res.Failed++
			log.Warn("push focus session failed", "session_id", s.ID, "err", pushErr)
			continue
		}
		if err := r.local.MarkFocusSessionSynced(ctx, s.ID, docID, r.now(), s.UpdatedAt); err != nil && !errors.Is(err, storage.ErrNotFound) {
			res.Failed++
			log.Warn("mark focus session synced failed", "session_id", s.ID, "err", err)
			continue
		}
		res.Pushed++
	}
	return nil
}
