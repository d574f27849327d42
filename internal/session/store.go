package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"eligicert/internal/notify"
	"eligicert/internal/page"
)

var (
	ErrNotFound = errors.New("session not found")
	// ErrConflict is returned by Update when the session kept changing
	// underneath it.
	ErrConflict = errors.New("session changed concurrently")
)

// UpdateFunc mutates a session in place. Returning an error leaves the stored
// state untouched. It may run more than once and must not block.
type UpdateFunc func(st *State) error

// State is everything kept for one visitor between requests.
type State struct {
	Page   page.Snapshot         `json:"page"`
	Toasts []notify.Notification `json:"toasts,omitempty"`
}

// Store keeps session state for at most its TTL.
type Store interface {
	Load(ctx context.Context, id string) (State, error)
	Save(ctx context.Context, id string, st State) error
	// Update is an atomic read-modify-write of one session. A missing session
	// starts from the zero State.
	Update(ctx context.Context, id string, fn UpdateFunc) (State, error)
	Delete(ctx context.Context, id string) error
}

type memEntry struct {
	state   State
	expires time.Time
}

// MemoryStore is an in-process Store. Expired entries are swept on access.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memEntry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, entries: map[string]memEntry{}}
}

func (m *MemoryStore) Load(_ context.Context, id string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	e, ok := m.entries[id]
	if !ok {
		return State{}, ErrNotFound
	}
	return e.state, nil
}

func (m *MemoryStore) Save(_ context.Context, id string, st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = memEntry{state: st, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Update(_ context.Context, id string, fn UpdateFunc) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	st := m.entries[id].state
	if err := fn(&st); err != nil {
		return State{}, err
	}
	m.entries[id] = memEntry{state: st, expires: m.now().Add(m.ttl)}
	return st, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

// Len reports the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	return len(m.entries)
}

func (m *MemoryStore) sweepLocked() {
	now := m.now()
	for id, e := range m.entries {
		if now.After(e.expires) {
			delete(m.entries, id)
		}
	}
}
