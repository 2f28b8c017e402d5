package cli

import (
	"context"
	"fmt"

	"github.com/hupe1980/toolmesh"
	"github.com/hupe1980/toolmesh/agent"
	"github.com/hupe1980/toolmesh/client/mcp"
	"github.com/hupe1980/toolmesh/config"
	"github.com/hupe1980/toolmesh/logging"
	"github.com/hupe1980/toolmesh/tool"
	"github.com/hupe1980/toolmesh/tools/builtin"
)

// newLogger builds the process logger from the log section.
func newLogger(cfg config.LogConfig) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	return logging.New(logging.Config{Level: level, Format: cfg.Format, Component: "toolmesh"}), nil
}

// mcpClients turns the configured MCP servers into always-on registrations.
func mcpClients(servers []config.MCPServerConfig) ([]tool.AlwaysOnClient, error) {
	clients := make([]tool.AlwaysOnClient, 0, len(servers))

	for _, s := range servers {
		connect, err := mcp.Dial(s.Command, s.Args, s.URL)
		if err != nil {
			return nil, fmt.Errorf("clients.mcp %q: %w", s.Name, err)
		}
		clients = append(clients, mcp.NewAlwaysOnClient(s.Name, connect))
	}

	return clients, nil
}

// newAgent wires a facade Agent from configuration. The agent is returned
// uninitialized.
func newAgent(ctx context.Context, cfg *config.Config, logger logging.Logger, approver agent.Approver) (*toolmesh.Agent, error) {
	m, err := newModel(ctx, cfg.Model)
	if err != nil {
		return nil, err
	}

	clients, err := mcpClients(cfg.Clients.MCP)
	if err != nil {
		return nil, err
	}

	return toolmesh.New(func(o *toolmesh.Options) {
		o.Name = cfg.Agent.Name
		o.Instruction = cfg.Agent.Instruction
		o.Model = m
		o.CheckpointBackend = cfg.Checkpoint.Backend
		o.Tools = builtin.All()
		o.SelectedTools = cfg.Tools.Enabled
		o.Clients = clients
		o.SelectionThreshold = cfg.Agent.Threshold
		o.MaxSteps = cfg.Agent.MaxSteps
		o.Approver = approver
		o.Logger = logger
	}), nil
}
