package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/toolmesh/core"
)

// StubStore is a CheckpointStore whose responses are controlled by the test.
// Threads seeded via Seed report existing state; GetErr/PutErr inject failures.
type StubStore struct {
	mu      sync.Mutex
	threads map[string]*core.Checkpoint
	GetErr  error
	PutErr  error
	Gets    int
	Puts    int
	Closed  bool
}

var _ core.CheckpointStore = (*StubStore)(nil)

// NewStubStore returns an empty stub.
func NewStubStore() *StubStore {
	return &StubStore{threads: make(map[string]*core.Checkpoint)}
}

// Seed marks a thread as already having state.
func (s *StubStore) Seed(cp *core.Checkpoint) *StubStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[cp.ThreadID] = cp.Clone()
	return s
}

// Get implements core.CheckpointStore.
func (s *StubStore) Get(_ context.Context, cfg core.ThreadConfig) (*core.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Gets++
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	return s.threads[cfg.ThreadID].Clone(), nil
}

// Put implements core.CheckpointStore.
func (s *StubStore) Put(_ context.Context, cfg core.ThreadConfig, cp *core.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Puts++
	if s.PutErr != nil {
		return s.PutErr
	}
	s.threads[cfg.ThreadID] = cp.Clone()
	return nil
}

// Close implements core.CheckpointStore.
func (s *StubStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// Stored returns the current state of a thread.
func (s *StubStore) Stored(threadID string) *core.Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threads[threadID].Clone()
}
