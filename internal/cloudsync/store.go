// Package cloudsync reconciles the local store with a per-user remote
// document store: pull the whole collection, upsert it locally, then push
// records changed since the last successful sync.
package cloudsync

import (
	"context"
	"errors"
)

const (
	CollectionTasks         = "tasks"
	CollectionLocations     = "locations"
	CollectionFocusSessions = "focusSessions"
)

// Collections lists every synced collection in sync order. Locations go
// first so pulled tasks can reference them.
var Collections = []string{CollectionLocations, CollectionTasks, CollectionFocusSessions}

var (
	ErrUnauthenticated   = errors.New("cloudsync: user is not signed in")
	ErrOffline           = errors.New("cloudsync: network unavailable")
	ErrPullFailed        = errors.New("cloudsync: pull failed")
	ErrUnknownCollection = errors.New("cloudsync: unknown collection")
)

type Document struct {
	ID     string
	Fields map[string]any
}

// DocumentStore is the remote side of sync. Set replaces the whole document.
type DocumentStore interface {
	List(ctx context.Context, collection string) ([]Document, error)
	Set(ctx context.Context, collection, id string, fields map[string]any) error
	Add(ctx context.Context, collection string, fields map[string]any) (string, error)
}

// Identity reports the signed-in user.
type Identity interface {
	UserID() (string, bool)
}

func CollectionPath(uid, collection string) string {
	return "users/" + uid + "/" + collection
}
