package core

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/hupe1980/toolmesh/logging"
)

// AgentContext is the explicit mutable state an agent instance shares with
// its tools. It replaces implicit per-instance scratch state: every factory
// receives the same *AgentContext and tools read or mutate it through the
// accessor methods.
//
// RuntimeParams hold arbitrary key/value scratch data. Knowledge is an append
// only list of fragments that tools discover while executing; it is surfaced
// to the model during selection and in the rendered instruction.
//
// Knowledge is per conversation: ForThread derives a view that shares the
// params and logger but keeps its own fragments, so facts remembered on one
// thread never reach another.
//
// All methods are safe for concurrent use.
type AgentContext struct {
	params *paramStore

	mu        sync.RWMutex
	knowledge []string
	logger    logging.Logger
}

type paramStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewAgentContext returns an empty context. A nil logger is replaced by a
// NoOpLogger.
func NewAgentContext(logger logging.Logger) *AgentContext {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	return &AgentContext{
		params: &paramStore{values: make(map[string]any)},
		logger: logger,
	}
}

// ForThread returns a view sharing params and logger with c. Its knowledge
// starts as c's fragments followed by restored, and additions stay local to
// the view.
func (c *AgentContext) ForThread(restored []string) *AgentContext {
	view := &AgentContext{
		params:    c.params,
		logger:    c.logger,
		knowledge: c.Knowledge(),
	}
	view.MergeKnowledge(restored)

	return view
}

type agentContextKey struct{}

// ContextWithAgentContext attaches ac to ctx. Tools invoked with the returned
// context receive ac instead of the context they were instantiated with.
func ContextWithAgentContext(ctx context.Context, ac *AgentContext) context.Context {
	return context.WithValue(ctx, agentContextKey{}, ac)
}

// AgentContextFrom returns the AgentContext attached to ctx, if any.
func AgentContextFrom(ctx context.Context) (*AgentContext, bool) {
	ac, ok := ctx.Value(agentContextKey{}).(*AgentContext)
	return ac, ok && ac != nil
}

// Logger returns the logger tools should use.
func (c *AgentContext) Logger() logging.Logger { return c.logger }

// Param returns a runtime parameter.
func (c *AgentContext) Param(key string) (any, bool) {
	c.params.mu.RLock()
	defer c.params.mu.RUnlock()

	v, ok := c.params.values[key]

	return v, ok
}

// SetParam stores a runtime parameter, replacing any previous value.
func (c *AgentContext) SetParam(key string, value any) {
	c.params.mu.Lock()
	defer c.params.mu.Unlock()

	c.params.values[key] = value
}

// Params returns a copy of all runtime parameters.
func (c *AgentContext) Params() map[string]any {
	c.params.mu.RLock()
	defer c.params.mu.RUnlock()

	return maps.Clone(c.params.values)
}

// AddKnowledge appends a knowledge fragment. Empty fragments and exact
// duplicates are ignored.
func (c *AgentContext) AddKnowledge(fragment string) {
	if fragment == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if slices.Contains(c.knowledge, fragment) {
		return
	}

	c.knowledge = append(c.knowledge, fragment)
}

// Knowledge returns a snapshot of the accumulated fragments in insertion order.
func (c *AgentContext) Knowledge() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return slices.Clone(c.knowledge)
}

// MergeKnowledge appends fragments restored from a checkpoint.
func (c *AgentContext) MergeKnowledge(fragments []string) {
	for _, f := range fragments {
		c.AddKnowledge(f)
	}
}
