package checkpoint

import (
	"context"
	"strings"

	"github.com/hupe1980/toolmesh/checkpoint/sqlstore"
	"github.com/hupe1980/toolmesh/core"
)

// BackendLocal selects the in-memory store.
const BackendLocal = "local"

// Open returns the store for backend: "" or "local" yields an InMemoryStore,
// anything else is treated as a database DSN and opened with sqlstore.Open.
// A durable backend that cannot be reached is an error; there is no fallback
// to the in-memory store.
func Open(ctx context.Context, backend string) (core.CheckpointStore, error) {
	b := strings.TrimSpace(backend)
	if b == "" || strings.EqualFold(b, BackendLocal) {
		return NewInMemoryStore(), nil
	}

	store, err := sqlstore.Open(ctx, b)
	if err != nil {
		return nil, err
	}

	return store, nil
}

// IsDurable reports whether backend selects a persistent store.
func IsDurable(backend string) bool {
	b := strings.TrimSpace(backend)
	return b != "" && !strings.EqualFold(b, BackendLocal)
}
