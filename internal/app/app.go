// Package app wires the zenith components together and owns their lifetime.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sandeepkv93/zenith/internal/auth"
	"github.com/sandeepkv93/zenith/internal/cloudsync"
	"github.com/sandeepkv93/zenith/internal/config"
	"github.com/sandeepkv93/zenith/internal/focus"
	"github.com/sandeepkv93/zenith/internal/geofence"
	"github.com/sandeepkv93/zenith/internal/jobs"
	"github.com/sandeepkv93/zenith/internal/scheduler"
	"github.com/sandeepkv93/zenith/internal/storage"
	"github.com/sandeepkv93/zenith/internal/tasks"
)

const (
	jobSnoozeExpiry = "snooze-expiry"
	jobPeriodicSync = "periodic-sync"

	firestoreProbeAddress = "firestore.googleapis.com:443"
)

var ErrSyncDisabled = errors.New("app: sync is disabled")

// App holds every component. Sync and Reconciler are nil when no remote is
// configured.
type App struct {
	Config     config.RuntimeConfig
	Repo       *storage.SQLiteRepository
	Tasks      *tasks.Service
	Focus      *focus.Manager
	Auth       *auth.Session
	Reconciler *cloudsync.Reconciler
	Sync       *cloudsync.Manager
	Locations  *geofence.Registry
	Geofence   *geofence.Handler
	Tracker    *geofence.Tracker
	Wake       *scheduler.Engine
	Jobs       *jobs.Runner

	logger  *slog.Logger
	now     func() time.Time
	closers []io.Closer

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
	closeErr  error
}

type options struct {
	now          func() time.Time
	remote       cloudsync.DocumentStore
	connectivity cloudsync.Connectivity
	provider     auth.Provider
	notifier     geofence.Notifier
}

type Option func(*options)

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithRemote replaces the configured document store and connectivity probe.
func WithRemote(store cloudsync.DocumentStore, conn cloudsync.Connectivity) Option {
	return func(o *options) {
		o.remote = store
		o.connectivity = conn
	}
}

func WithAuthProvider(p auth.Provider) Option {
	return func(o *options) { o.provider = p }
}

func WithNotifier(n geofence.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// New opens the store and builds every component. Nothing runs in the
// background until Start.
func New(ctx context.Context, cfg config.RuntimeConfig, logger *slog.Logger, opts ...Option) (a *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	repo, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	a = &App{
		Config:  cfg,
		Repo:    repo,
		logger:  logger.With("component", "app"),
		now:     o.now,
		closers: []io.Closer{repo},
	}
	defer func() {
		if err != nil {
			_ = a.closeResources()
		}
	}()

	a.Tasks = tasks.NewService(repo, logger, o.now)
	a.Focus = focus.NewManager(repo, logger, o.now)

	provider := o.provider
	if provider == nil {
		if provider, err = a.buildProvider(ctx); err != nil {
			return nil, err
		}
	}
	a.Auth = auth.NewSession(provider, repo, logger)
	if err := a.Auth.Restore(ctx); err != nil {
		return nil, err
	}

	remote, conn := o.remote, o.connectivity
	if remote == nil {
		if remote, conn, err = a.buildRemote(ctx); err != nil {
			return nil, err
		}
	}
	if remote != nil {
		a.Reconciler = cloudsync.NewReconciler(repo, remote, a.Auth, logger, o.now)
		a.Sync = cloudsync.NewManager(a.Reconciler, conn, logger)
	}

	notifier := o.notifier
	if notifier == nil {
		if notifier, err = a.buildNotifier(ctx, logger); err != nil {
			return nil, err
		}
	}
	a.Locations = geofence.NewRegistry(repo, o.now)
	a.Geofence = geofence.NewHandler(repo, notifier, logger, o.now)
	a.Tracker = geofence.NewTracker(a.Locations, a.Geofence)

	a.Wake = scheduler.NewEngine(cfg.SchedulerBuffer)
	a.Jobs = jobs.NewRunner(logger)
	a.ctx, a.cancel = context.WithCancel(context.Background())
	return a, nil
}

func (a *App) buildProvider(ctx context.Context) (auth.Provider, error) {
	if a.Config.Remote == config.RemoteFirestore && a.Config.FirebaseAPIKey != "" {
		return auth.NewFirebaseProvider(ctx, a.Config.FirebaseAPIKey, a.Config.FirebaseProjectID, a.Config.FirebaseCredentials)
	}
	return auth.LocalProvider{}, nil
}

func (a *App) buildRemote(ctx context.Context) (cloudsync.DocumentStore, cloudsync.Connectivity, error) {
	switch a.Config.Remote {
	case config.RemoteFirestore:
		store, err := cloudsync.OpenFirestore(ctx, a.Config.FirebaseProjectID, a.Config.FirebaseCredentials)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, store)
		return store, cloudsync.DialProbe{Address: firestoreProbeAddress, Timeout: 3 * time.Second}, nil
	case config.RemoteMemory:
		return cloudsync.NewMemoryStore(), cloudsync.NewSwitch(true), nil
	default:
		return nil, nil, nil
	}
}

func (a *App) buildNotifier(ctx context.Context, logger *slog.Logger) (geofence.Notifier, error) {
	out := geofence.Multi{geofence.LogNotifier{Logger: logger}}
	if a.Config.DesktopNotification {
		out = append(out, geofence.NewDesktopNotifier())
	}
	if a.Config.Remote == config.RemoteFirestore && len(a.Config.FCMTokens) > 0 {
		fcm, err := geofence.NewFCMNotifier(ctx, a.Config.FirebaseProjectID, a.Config.FirebaseCredentials, a.Config.FCMTokens, logger)
		if err != nil {
			return nil, err
		}
		out = append(out, fcm)
	}
	return out, nil
}

// Start expires overdue snoozes, arms wake-ups for pending expiries and
// starts the background jobs.
func (a *App) Start(ctx context.Context) error {
	var err error
	a.startOnce.Do(func() {
		if _, err = a.Tasks.ExpireSnoozes(ctx, a.now()); err != nil {
			return
		}
		a.Wake.Start()
		a.wg.Add(1)
		go a.wakeLoop()

		if err = a.armSnoozes(ctx); err != nil {
			return
		}
		var state focus.State
		if state, err = a.Focus.Current(ctx); err != nil {
			return
		}
		a.armFocus(state)

		if err = a.Jobs.Every(jobSnoozeExpiry, a.Config.SnoozePollInterval, a.pollSnoozes); err != nil {
			return
		}
		if a.Sync != nil && a.Config.SyncInterval > 0 {
			if err = a.Jobs.Every(jobPeriodicSync, a.Config.SyncInterval, a.periodicSync); err != nil {
				return
			}
		}
		a.Jobs.Start()
		a.logger.Info("started", "remote", a.Config.Remote, "db", a.Config.DBPath)
	})
	return err
}

// Close stops background work and releases the store and remote clients.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		a.Jobs.Stop()
		if a.Sync != nil {
			a.Sync.Close()
		}
		a.Wake.Stop()
		a.cancel()
		a.wg.Wait()
		a.closeErr = a.closeResources()
	})
	return a.closeErr
}

func (a *App) closeResources() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) SignIn(ctx context.Context, email, password string) (auth.User, error) {
	u, err := a.Auth.SignIn(ctx, email, password)
	if err != nil {
		return auth.User{}, err
	}
	if a.Sync != nil {
		a.Sync.Trigger()
	}
	return u, nil
}

func (a *App) SignUp(ctx context.Context, email, password string) (auth.User, error) {
	u, err := a.Auth.SignUp(ctx, email, password)
	if err != nil {
		return auth.User{}, err
	}
	if a.Sync != nil {
		a.Sync.Trigger()
	}
	return u, nil
}

// SignOut forgets the user and the sync watermarks so the next account
// starts with a full pull.
func (a *App) SignOut(ctx context.Context) error {
	if err := a.Auth.SignOut(ctx); err != nil {
		return err
	}
	if a.Reconciler != nil {
		if err := a.Reconciler.ResetWatermarks(ctx); err != nil {
			return fmt.Errorf("reset watermarks: %w", err)
		}
	}
	return nil
}

// ObserveLocation feeds a device position to the geofence tracker.
func (a *App) ObserveLocation(ctx context.Context, lat, lng float64) (entered, exited []int64, err error) {
	return a.Tracker.Observe(ctx, lat, lng)
}

func (a *App) pollSnoozes(ctx context.Context) error {
	if _, err := a.Tasks.ExpireSnoozes(ctx, a.now()); err != nil {
		return err
	}
	// remote pulls may have snoozed tasks this process never saw
	return a.armSnoozes(ctx)
}

func (a *App) periodicSync(ctx context.Context) error {
	if _, ok := a.Auth.UserID(); !ok {
		return nil
	}
	status := a.Sync.SyncAll(ctx)
	if status == cloudsync.StatusFailed {
		return a.Sync.Snapshot().Err
	}
	return nil
}

func (a *App) wakeLoop() {
	defer a.wg.Done()
	for ev := range a.Wake.C() {
		a.handleWake(a.ctx, ev)
	}
}

func (a *App) handleWake(ctx context.Context, ev scheduler.WakeEvent) {
	log := a.logger.With("wake", ev.Key)
	switch ev.Kind {
	case scheduler.KindSnoozeExpiry:
		if _, err := a.Tasks.ExpireSnoozes(ctx, a.now()); err != nil {
			log.Warn("snooze expiry failed", "err", err)
		}
	case scheduler.KindFocusExpiry:
		// the session stays active until a caller stops it; observers only
		// learn that its time is up
		state, err := a.Focus.Refresh(ctx)
		if err != nil {
			log.Warn("focus expiry refresh failed", "err", err)
			return
		}
		active, ok := state.(focus.Active)
		if !ok || scheduler.FocusKey(active.SessionID) != ev.Key {
			return
		}
		if active.Expired(a.now()) {
			log.Info("focus time is up", "session_id", active.SessionID)
		}
	default:
		log.Warn("unknown wake event", "kind", ev.Kind)
	}
}

func (a *App) armSnoozes(ctx context.Context) error {
	snoozed, err := a.Repo.ListTasks(ctx, storage.TaskListFilter{
		Snoozed:   storage.Bool(true),
		Completed: storage.Bool(false),
		Archived:  storage.Bool(false),
	})
	if err != nil {
		return fmt.Errorf("list snoozed tasks: %w", err)
	}
	for _, t := range snoozed {
		if t.SnoozeUntil != nil {
			a.armSnooze(t.ID, *t.SnoozeUntil)
		}
	}
	return nil
}

func (a *App) armSnooze(taskID int64, until time.Time) {
	a.schedule(scheduler.WakeEvent{Key: scheduler.SnoozeKey(taskID), Kind: scheduler.KindSnoozeExpiry, TriggerAt: until})
}

func (a *App) disarmSnooze(taskID int64) {
	a.Wake.Cancel(scheduler.SnoozeKey(taskID))
}

func (a *App) armFocus(state focus.State) {
	active, ok := state.(focus.Active)
	if !ok || active.DurationMinutes == nil {
		return
	}
	a.schedule(scheduler.WakeEvent{Key: scheduler.FocusKey(active.SessionID), Kind: scheduler.KindFocusExpiry, TriggerAt: active.EndsAt()})
}

func (a *App) schedule(ev scheduler.WakeEvent) {
	if err := a.Wake.Schedule(ev); err != nil && !errors.Is(err, scheduler.ErrEngineStopped) {
		a.logger.Warn("schedule wake-up failed", "wake", ev.Key, "err", err)
	}
}
