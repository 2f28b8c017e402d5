package core

import (
	"context"
	"slices"
	"time"
)

// ThreadConfig identifies the conversation a checkpoint belongs to. ThreadID
// is opaque and supplied by the caller.
type ThreadConfig struct {
	ThreadID string
}

// Checkpoint is the persisted state of one conversation thread.
type Checkpoint struct {
	ThreadID  string    `json:"thread_id"`
	Messages  []Content `json:"messages"`
	Knowledge []string  `json:"knowledge,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep enough copy that callers can append to Messages and
// Knowledge without affecting the original.
func (c *Checkpoint) Clone() *Checkpoint {
	if c == nil {
		return nil
	}

	msgs := make([]Content, len(c.Messages))
	for i, m := range c.Messages {
		msgs[i] = m.Clone()
	}

	return &Checkpoint{
		ThreadID:  c.ThreadID,
		Messages:  msgs,
		Knowledge: slices.Clone(c.Knowledge),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// CheckpointStore persists conversation state keyed by thread id. Get returns
// (nil, nil) when the thread has no state yet. Implementations must be safe
// for concurrent use.
type CheckpointStore interface {
	Get(ctx context.Context, cfg ThreadConfig) (*Checkpoint, error)
	Put(ctx context.Context, cfg ThreadConfig, cp *Checkpoint) error
	Close() error
}
