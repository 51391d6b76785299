package geofence

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sandeepkv93/zenith/internal/model"
	"github.com/sandeepkv93/zenith/internal/storage"
)

// Registry manages saved locations.
type Registry struct {
	store storage.LocationStore
	now   func() time.Time
}

func NewRegistry(store storage.LocationStore, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{store: store, now: now}
}

func (r *Registry) Add(ctx context.Context, loc model.Location) (model.Location, error) {
	loc = loc.WithDefaults()
	if err := loc.Validate(); err != nil {
		return model.Location{}, err
	}
	id, err := r.store.CreateLocation(ctx, loc)
	if err != nil {
		return model.Location{}, fmt.Errorf("create location: %w", err)
	}
	loc.ID = id
	return loc, nil
}

func (r *Registry) Update(ctx context.Context, loc model.Location) error {
	loc = loc.WithDefaults()
	if err := loc.Validate(); err != nil {
		return err
	}
	if err := r.store.UpdateLocation(ctx, loc); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("update location: %w", err)
	}
	return nil
}

// Delete removes the location. Tasks bound to it lose the binding and their
// reminder, and are queued for sync.
func (r *Registry) Delete(ctx context.Context, id int64) error {
	if err := r.store.DeleteLocation(ctx, id, r.now().UTC()); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete location: %w", err)
	}
	return nil
}

func (r *Registry) Get(ctx context.Context, id int64) (model.Location, error) {
	return r.store.GetLocation(ctx, id)
}

func (r *Registry) List(ctx context.Context) ([]model.Location, error) {
	return r.store.ListLocations(ctx, storage.LocationListFilter{})
}

const earthRadiusMeters = 6371000.0

// DistanceMeters is the great-circle distance between two coordinates.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a)))
}

// Tracker turns position fixes into enter and exit events for the handler.
type Tracker struct {
	registry *Registry
	handler  *Handler

	mu     sync.Mutex
	inside map[int64]bool
}

func NewTracker(registry *Registry, handler *Handler) *Tracker {
	return &Tracker{registry: registry, handler: handler, inside: make(map[int64]bool)}
}

// Observe compares a position against every saved location and dispatches
// the resulting transitions. It returns the ids entered and exited.
func (t *Tracker) Observe(ctx context.Context, lat, lng float64) (entered, exited []int64, err error) {
	locs, err := t.registry.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[int64]bool, len(locs))
	for _, loc := range locs {
		seen[loc.ID] = true
		in := DistanceMeters(lat, lng, loc.Latitude, loc.Longitude) <= loc.Radius
		switch {
		case in && !t.inside[loc.ID]:
			if _, err := t.handler.OnEnter(ctx, loc.ID); err != nil {
				return entered, exited, err
			}
			t.inside[loc.ID] = true
			entered = append(entered, loc.ID)
		case !in && t.inside[loc.ID]:
			if _, err := t.handler.OnExit(ctx, loc.ID); err != nil {
				return entered, exited, err
			}
			delete(t.inside, loc.ID)
			exited = append(exited, loc.ID)
		}
	}
	for id := range t.inside {
		if !seen[id] {
			delete(t.inside, id)
		}
	}
	return entered, exited, nil
}
