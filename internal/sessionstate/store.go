// Package sessionstate publishes snapshots of live engine sessions and the
// host's own readiness.
package sessionstate

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is the published view of one session.
type Snapshot struct {
	ID          string    `json:"id"`
	Host        string    `json:"host,omitempty"`
	Mode        string    `json:"mode"`
	State       string    `json:"state"`
	Pending     int       `json:"pending"`
	Remote      string    `json:"remote,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store keeps the latest snapshot per session id.
type Store interface {
	Put(ctx context.Context, s Snapshot) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (Snapshot, bool, error)
	List(ctx context.Context) ([]Snapshot, error)
}

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Snapshot
}

// NewMemoryStore returns an in-process Store.
func NewMemoryStore() Store {
	return &memoryStore{sessions: map[string]Snapshot{}}
}

func (m *memoryStore) Put(_ context.Context, s Snapshot) error {
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) Get(_ context.Context, id string) (Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok, nil
}

func (m *memoryStore) List(_ context.Context) ([]Snapshot, error) {
	m.mu.RLock()
	out := make([]Snapshot, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sortSnapshots(out)
	return out, nil
}

func sortSnapshots(s []Snapshot) {
	sort.Slice(s, func(i, j int) bool {
		if !s[i].ConnectedAt.Equal(s[j].ConnectedAt) {
			return s[i].ConnectedAt.Before(s[j].ConnectedAt)
		}
		return s[i].ID < s[j].ID
	})
}

var status atomic.Value
var draining atomic.Bool

func init() {
	status.Store("not_ready")
}

// SetHostStatus sets the host status string reported by the health endpoint.
func SetHostStatus(s string) {
	status.Store(s)
}

// HostStatus returns the current host status.
func HostStatus() string {
	if v, ok := status.Load().(string); ok {
		return v
	}
	return "unknown"
}

// StartDrain marks the host as draining. New engine connections are refused.
func StartDrain() {
	draining.Store(true)
	SetHostStatus("draining")
}

// IsDraining reports whether the host is draining.
func IsDraining() bool {
	return draining.Load()
}

// StopDrain clears the draining flag.
func StopDrain() {
	draining.Store(false)
	SetHostStatus("not_ready")
}
