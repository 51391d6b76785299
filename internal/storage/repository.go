package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sandeepkv93/zenith/internal/model"
)

var (
	ErrNotFound            = errors.New("storage: not found")
	ErrActiveSessionExists = errors.New("storage: another focus session is already active")
)

type TaskStore interface {
	CreateTask(ctx context.Context, in model.Task) (int64, error)
	GetTask(ctx context.Context, id int64) (model.Task, error)
	UpdateTask(ctx context.Context, in model.Task) error
	DeleteTask(ctx context.Context, id int64) error
	ListTasks(ctx context.Context, filter TaskListFilter) ([]model.Task, error)
}

type LocationStore interface {
	CreateLocation(ctx context.Context, in model.Location) (int64, error)
	GetLocation(ctx context.Context, id int64) (model.Location, error)
	UpdateLocation(ctx context.Context, in model.Location) error
	DeleteLocation(ctx context.Context, id int64, at time.Time) error
	ListLocations(ctx context.Context, filter LocationListFilter) ([]model.Location, error)
}

type FocusSessionStore interface {
	CreateFocusSession(ctx context.Context, in model.FocusSession) (int64, error)
	GetFocusSession(ctx context.Context, id int64) (model.FocusSession, error)
	GetActiveFocusSession(ctx context.Context) (model.FocusSession, error)
	UpdateFocusSession(ctx context.Context, in model.FocusSession) error
	DeleteFocusSession(ctx context.Context, id int64) error
	ListFocusSessions(ctx context.Context, filter FocusSessionListFilter) ([]model.FocusSession, error)
}

// SyncStore is the local side of the cloud reconciler.
type SyncStore interface {
	UpsertTasks(ctx context.Context, in []model.Task) error
	ListTasksPendingSince(ctx context.Context, since time.Time) ([]model.Task, error)
	MarkTaskSynced(ctx context.Context, id int64, remoteID string, syncedAt, version time.Time) error

	UpsertLocations(ctx context.Context, in []model.Location) error
	ListLocations(ctx context.Context, filter LocationListFilter) ([]model.Location, error)

	UpsertFocusSessions(ctx context.Context, in []model.FocusSession) (skipped int, err error)
	ListFocusSessionsPendingSince(ctx context.Context, since time.Time) ([]model.FocusSession, error)
	MarkFocusSessionSynced(ctx context.Context, id int64, remoteID string, syncedAt, version time.Time) error

	GetMeta(ctx context.Context, key string) (string, bool, error)
	SetMeta(ctx context.Context, key, value string) error
	DeleteMeta(ctx context.Context, key string) error
}

type Repository interface {
	TaskStore
	LocationStore
	FocusSessionStore
	SyncStore
}
