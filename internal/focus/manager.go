package focus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sandeepkv93/zenith/internal/model"
	"github.com/sandeepkv93/zenith/internal/storage"
)

// ActivityConfidenceThreshold is the minimum classifier confidence, in
// percent, for an activity label to be applied.
const ActivityConfidenceThreshold = 75

var ErrNoActiveSession = errors.New("focus: no active session")

type Manager struct {
	mu     sync.Mutex
	store  storage.FocusSessionStore
	logger *slog.Logger
	now    func() time.Time

	// activity is kept in memory only and belongs to activitySession.
	activity        model.ActivityType
	activitySession int64

	changes chan State
}

func NewManager(store storage.FocusSessionStore, logger *slog.Logger, now func() time.Time) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Manager{
		store:   store,
		logger:  logger.With("component", "focus"),
		now:     now,
		changes: make(chan State, 1),
	}
}

// Changes receives the latest state after each transition. Only the most
// recent undelivered state is kept.
func (m *Manager) Changes() <-chan State {
	return m.changes
}

// Current reads the active session from the store.
func (m *Manager) Current(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(ctx)
}

// Refresh re-reads the store and publishes the result on Changes without
// changing the session. An expired session stays Active.
func (m *Manager) Refresh(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	m.publish(state)
	return state, nil
}

// Start opens a session of durationMinutes, or an indefinite one when
// durationMinutes is not positive. Starting while a session is active leaves
// that session untouched and returns it.
func (m *Manager) Start(ctx context.Context, durationMinutes int64) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	if active, ok := current.(Active); ok {
		m.logger.Debug("focus session already active", "session_id", active.SessionID)
		return active, nil
	}

	now := m.now()
	session := model.FocusSession{
		StartTime:   now,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
		PendingSync: true,
	}
	if durationMinutes > 0 {
		session.PlannedMinutes = &durationMinutes
	}
	if err := session.Validate(); err != nil {
		return nil, err
	}
	id, err := m.store.CreateFocusSession(ctx, session)
	if err != nil {
		if errors.Is(err, storage.ErrActiveSessionExists) {
			// lost a race with another writer; report whatever is active now
			return m.load(ctx)
		}
		return nil, fmt.Errorf("create focus session: %w", err)
	}
	session.ID = id
	m.activity = model.ActivityUnknown
	m.activitySession = id

	state := activeFrom(session, m.activity)
	m.logger.Info("focus session started", "session_id", id, "planned_minutes", durationMinutes)
	m.publish(state)
	return state, nil
}

// Stop ends the active session, recording its elapsed whole minutes.
func (m *Manager) Stop(ctx context.Context) (model.FocusSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.store.GetActiveFocusSession(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.FocusSession{}, ErrNoActiveSession
		}
		return model.FocusSession{}, fmt.Errorf("load active session: %w", err)
	}

	now := m.now()
	elapsed := int64(now.Sub(session.StartTime) / time.Minute)
	if elapsed < 0 {
		elapsed = 0
	}
	session.EndTime = &now
	session.DurationMinutes = &elapsed
	session.IsActive = false
	session.PendingSync = true
	if now.After(session.UpdatedAt) {
		session.UpdatedAt = now
	}
	if err := session.Validate(); err != nil {
		return model.FocusSession{}, err
	}
	if err := m.store.UpdateFocusSession(ctx, session); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.FocusSession{}, ErrNoActiveSession
		}
		return model.FocusSession{}, fmt.Errorf("end focus session: %w", err)
	}
	m.activity = ""
	m.activitySession = 0

	m.logger.Info("focus session ended", "session_id", session.ID, "duration_minutes", elapsed)
	m.publish(Inactive{})
	return session, nil
}

// Toggle stops an active session or starts a new one.
func (m *Manager) Toggle(ctx context.Context, durationMinutes int64) (State, error) {
	current, err := m.Current(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := current.(Active); ok {
		if _, err := m.Stop(ctx); err != nil && !errors.Is(err, ErrNoActiveSession) {
			return nil, err
		}
		return Inactive{}, nil
	}
	return m.Start(ctx, durationMinutes)
}

// ActivityDetected records the classifier label on the active session. Labels
// below ActivityConfidenceThreshold, or arriving while no session is active,
// are ignored. It reports whether the label was applied.
func (m *Manager) ActivityDetected(ctx context.Context, label string, confidence int) (bool, error) {
	if confidence < ActivityConfidenceThreshold {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.load(ctx)
	if err != nil {
		return false, err
	}
	active, ok := current.(Active)
	if !ok {
		return false, nil
	}
	m.activity = model.ParseActivity(label)
	m.activitySession = active.SessionID
	active.Activity = m.activity
	m.publish(active)
	return true, nil
}

// History returns ended sessions, most recent first.
func (m *Manager) History(ctx context.Context, limit int) ([]model.FocusSession, error) {
	return m.store.ListFocusSessions(ctx, storage.FocusSessionListFilter{Active: storage.Bool(false), Limit: limit})
}

// TotalMinutes sums the recorded duration of ended sessions that started on
// or after since.
func TotalMinutes(sessions []model.FocusSession, since time.Time) int64 {
	var total int64
	for _, s := range sessions {
		if s.IsActive || s.DurationMinutes == nil || s.StartTime.Before(since) {
			continue
		}
		total += *s.DurationMinutes
	}
	return total
}

func (m *Manager) load(ctx context.Context) (State, error) {
	session, err := m.store.GetActiveFocusSession(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Inactive{}, nil
		}
		return nil, fmt.Errorf("load active session: %w", err)
	}
	activity := model.ActivityUnknown
	if m.activitySession == session.ID && m.activity != "" {
		activity = m.activity
	}
	return activeFrom(session, activity), nil
}

func (m *Manager) publish(s State) {
	select {
	case <-m.changes:
	default:
	}
	select {
	case m.changes <- s:
	default:
	}
}
