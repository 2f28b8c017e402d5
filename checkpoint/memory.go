// Package checkpoint provides conversation state stores and backend selection.
//
// The in-memory store keeps state for the lifetime of the process. Durable
// stores live in the sqlstore sub-package; Open picks one from a backend
// string.
package checkpoint

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/toolmesh/core"
)

// InMemoryStore is a volatile CheckpointStore storing checkpoints in a process
// local map. It is safe for concurrent access. Checkpoints are cloned on the
// way in and out to prevent external mutation of internal state.
type InMemoryStore struct {
	mu      sync.RWMutex
	threads map[string]*core.Checkpoint
	now     func() time.Time
}

var _ core.CheckpointStore = (*InMemoryStore)(nil)

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{threads: make(map[string]*core.Checkpoint), now: time.Now}
}

// Get returns a clone of the thread's checkpoint, or nil when none exists.
func (s *InMemoryStore) Get(ctx context.Context, cfg core.ThreadConfig) (*core.Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.threads[cfg.ThreadID].Clone(), nil
}

// Put stores a clone of cp under the thread id, preserving the original
// creation time across updates.
func (s *InMemoryStore) Put(ctx context.Context, cfg core.ThreadConfig, cp *core.Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stored := cp.Clone()
	stored.ThreadID = cfg.ThreadID

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if prev, ok := s.threads[cfg.ThreadID]; ok {
		stored.CreatedAt = prev.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	s.threads[cfg.ThreadID] = stored

	return nil
}

// Delete removes a thread's checkpoint.
func (s *InMemoryStore) Delete(_ context.Context, cfg core.ThreadConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.threads, cfg.ThreadID)

	return nil
}

// Close is a no-op; state is simply dropped with the store.
func (s *InMemoryStore) Close() error { return nil }
