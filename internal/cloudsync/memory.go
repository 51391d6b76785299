package cloudsync

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process DocumentStore. Failures can be injected per
// collection path or per document.
type MemoryStore struct {
	mu       sync.Mutex
	docs     map[string]map[string]map[string]any
	listErr  map[string]error
	writeErr map[string]error
	calls    int
}

var _ DocumentStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:     make(map[string]map[string]map[string]any),
		listErr:  make(map[string]error),
		writeErr: make(map[string]error),
	}
}

func (m *MemoryStore) List(ctx context.Context, collection string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err := m.listErr[collection]; err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(m.docs[collection]))
	for id := range m.docs[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, Document{ID: id, Fields: maps.Clone(m.docs[collection][id])})
	}
	return out, nil
}

func (m *MemoryStore) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err := m.writeErr[collection+"/"+id]; err != nil {
		return err
	}
	m.put(collection, id, fields)
	return nil
}

func (m *MemoryStore) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err := m.writeErr[collection+"/"]; err != nil {
		return "", err
	}
	id := uuid.NewString()
	m.put(collection, id, fields)
	return id, nil
}

// Put stores a document directly, bypassing failure injection.
func (m *MemoryStore) Put(collection, id string, fields map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(collection, id, fields)
}

// Get returns a copy of a stored document.
func (m *MemoryStore) Get(collection, id string) (map[string]any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[collection][id]
	return maps.Clone(doc), ok
}

func (m *MemoryStore) Len(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs[collection])
}

// FailList makes List on collection return err. A nil err clears it.
func (m *MemoryStore) FailList(collection string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.listErr, collection)
		return
	}
	m.listErr[collection] = err
}

// FailWrite makes writes of document id in collection return err. An empty
// id targets Add.
func (m *MemoryStore) FailWrite(collection, id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := collection + "/" + id
	if err == nil {
		delete(m.writeErr, key)
		return
	}
	m.writeErr[key] = err
}

// Calls counts List, Set and Add invocations.
func (m *MemoryStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MemoryStore) put(collection, id string, fields map[string]any) {
	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string]map[string]any)
	}
	m.docs[collection][id] = maps.Clone(fields)
}
