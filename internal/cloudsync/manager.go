package cloudsync

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Status is the user visible sync indicator.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusOffline Status = "offline"
)

// Connectivity reports whether the remote store is reachable.
type Connectivity interface {
	Online(ctx context.Context) bool
}

type Snapshot struct {
	Status   Status
	Err      error
	LastRun  time.Time
	LastGood time.Time
	Results  []Result
}

// Manager serializes sync per collection, tracks status and owns the
// goroutines it starts. Close cancels in-flight work and waits for it.
type Manager struct {
	rec    *Reconciler
	conn   Connectivity
	logger *slog.Logger
	now    func() time.Time
	group  singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	// flights counts shared reconciles; they outlive the caller that started them
	flights sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	snap    Snapshot
	running int
	updates chan Snapshot
}

func NewManager(rec *Reconciler, conn Connectivity, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		rec:     rec,
		conn:    conn,
		logger:  logger.With("component", "cloudsync.manager"),
		now:     rec.now,
		ctx:     ctx,
		cancel:  cancel,
		snap:    Snapshot{Status: StatusIdle},
		updates: make(chan Snapshot, 1),
	}
}

// Updates receives the latest snapshot after each status change. Only the
// newest undelivered snapshot is kept.
func (m *Manager) Updates() <-chan Snapshot {
	return m.updates
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.snap
	out.Results = append([]Result(nil), m.snap.Results...)
	return out
}

// SyncAll reconciles every collection in order and returns the final status.
// Concurrent calls share the in-flight reconcile of each collection.
func (m *Manager) SyncAll(ctx context.Context) Status {
	return m.run(ctx, Collections)
}

// SyncCollection reconciles a single collection.
func (m *Manager) SyncCollection(ctx context.Context, collection string) (Status, error) {
	if !slices.Contains(Collections, collection) {
		return m.Snapshot().Status, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	return m.run(ctx, []string{collection}), nil
}

func (m *Manager) run(ctx context.Context, collections []string) Status {
	ctx, stop := m.bind(ctx)
	defer stop()

	if m.conn != nil && !m.conn.Online(ctx) {
		m.report(StatusOffline, ErrOffline)
		return StatusOffline
	}
	if uid, ok := m.rec.identity.UserID(); !ok || uid == "" {
		m.report(StatusFailed, ErrUnauthenticated)
		return StatusFailed
	}

	m.begin()
	results := make([]Result, 0, len(collections))
	var firstErr error
	for _, collection := range collections {
		if err := ctx.Err(); err != nil {
			firstErr = err
			break
		}
		v, err, shared := m.share(ctx, collection)
		res, _ := v.(Result)
		results = append(results, res)
		if shared {
			m.logger.Debug("joined in-flight sync", "collection", collection)
		}
		if err != nil {
			m.logger.Warn("collection sync failed", "collection", collection, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	status := StatusSuccess
	if firstErr != nil {
		status = StatusFailed
	}
	m.finish(status, firstErr, results)
	return status
}

// share joins or starts the reconcile of collection. The reconcile runs on a
// context that only Close cancels, so a waiter that gives up does not fail
// the others sharing the flight.
func (m *Manager) share(ctx context.Context, collection string) (any, error, bool) {
	ch := m.group.DoChan(collection, func() (any, error) {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return Result{Collection: collection}, context.Canceled
		}
		m.flights.Add(1)
		m.mu.Unlock()
		defer m.flights.Done()

		flightCtx, stop := m.bind(context.WithoutCancel(ctx))
		defer stop()
		return m.rec.Sync(flightCtx, collection)
	})
	select {
	case r := <-ch:
		return r.Val, r.Err, r.Shared
	case <-ctx.Done():
		return Result{Collection: collection}, ctx.Err(), false
	}
}

// Trigger starts SyncAll in the background and returns immediately.
func (m *Manager) Trigger() {
	select {
	case <-m.ctx.Done():
		return
	default:
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.SyncAll(m.ctx)
	}()
}

// Close cancels in-flight syncs and waits for background goroutines.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()
	m.wg.Wait()
	m.flights.Wait()
}

// bind derives a context cancelled by either the caller or Close.
func (m *Manager) bind(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	unhook := context.AfterFunc(m.ctx, cancel)
	return ctx, func() {
		unhook()
		cancel()
	}
}

func (m *Manager) begin() {
	m.mu.Lock()
	m.running++
	m.snap.Status = StatusSyncing
	m.snap.Err = nil
	snap := m.snap
	m.mu.Unlock()
	m.publish(snap)
}

func (m *Manager) finish(status Status, err error, results []Result) {
	m.mu.Lock()
	m.running--
	now := m.now()
	m.snap.LastRun = now
	m.snap.Results = results
	if status == StatusSuccess {
		m.snap.LastGood = now
	}
	if m.running > 0 {
		// the last SyncAll to finish reports the status
		m.mu.Unlock()
		return
	}
	m.snap.Status = status
	m.snap.Err = err
	snap := m.snap
	m.mu.Unlock()
	m.publish(snap)
}

// report records an outcome reached before any I/O started.
func (m *Manager) report(status Status, err error) {
	m.mu.Lock()
	if m.running > 0 {
		m.mu.Unlock()
		return
	}
	m.snap.Status = status
	m.snap.Err = err
	m.snap.LastRun = m.now()
	snap := m.snap
	m.mu.Unlock()
	m.publish(snap)
}

func (m *Manager) publish(s Snapshot) {
	select {
	case <-m.updates:
	default:
	}
	select {
	case m.updates <- s:
	default:
	}
}
