package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/toolmesh/core"
)

// Registration is anything the registry can instantiate against an agent
// context. IndexedTool and AlwaysOnClient are the two variants; they differ
// only in how the registry decides whether to instantiate them.
type Registration interface {
	// Label identifies the registration in logs and errors.
	Label() string

	// Instantiate runs the underlying factory.
	Instantiate(ctx context.Context, agentCtx *core.AgentContext) (Bundle, error)
}

// IndexedTool is an opt-in registration selected by its position in the
// full tool list.
type IndexedTool struct {
	Name    string
	Factory Factory
}

var _ Registration = IndexedTool{}

// NewIndexedTool wraps a descriptor and implementation as an IndexedTool.
func NewIndexedTool(desc core.Descriptor, fn Func) IndexedTool {
	return IndexedTool{Name: desc.Name, Factory: CreateTool(desc, fn)}
}

// Label returns the registration name.
func (t IndexedTool) Label() string { return t.Name }

// Instantiate runs the factory.
func (t IndexedTool) Instantiate(ctx context.Context, agentCtx *core.AgentContext) (Bundle, error) {
	if t.Factory == nil {
		return Bundle{}, fmt.Errorf("tool %q has no factory", t.Name)
	}
	return t.Factory(ctx, agentCtx)
}

// AlwaysOnClient is a stateful bundle that is instantiated for every agent,
// typically a remote connection exposing several tools.
type AlwaysOnClient struct {
	Name    string
	Factory Factory
}

var _ Registration = AlwaysOnClient{}

// Label returns the client name.
func (c AlwaysOnClient) Label() string { return c.Name }

// Instantiate runs the factory.
func (c AlwaysOnClient) Instantiate(ctx context.Context, agentCtx *core.AgentContext) (Bundle, error) {
	if c.Factory == nil {
		return Bundle{}, fmt.Errorf("client %q has no factory", c.Name)
	}
	return c.Factory(ctx, agentCtx)
}
