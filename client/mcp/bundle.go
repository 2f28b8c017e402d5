package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/tool"
)

// ConnectFunc opens a session when the registry instantiates the client.
type ConnectFunc func(ctx context.Context) (Session, error)

// Stdio returns a ConnectFunc that spawns command.
func Stdio(command string, args []string, opts ...ClientOption) ConnectFunc {
	return func(ctx context.Context) (Session, error) {
		return ConnectStdio(ctx, command, args, opts...)
	}
}

// HTTP returns a ConnectFunc for a streamable HTTP endpoint.
func HTTP(url string, opts ...ClientOption) ConnectFunc {
	return func(ctx context.Context) (Session, error) {
		return ConnectHTTP(ctx, url, opts...)
	}
}

// Dial picks the transport from the server settings: url selects streamable
// HTTP, command selects stdio.
func Dial(command string, args []string, url string, opts ...ClientOption) (ConnectFunc, error) {
	switch {
	case url != "" && command != "":
		return nil, errors.New("mcp: set either command or url, not both")
	case url != "":
		return HTTP(url, opts...), nil
	case command != "":
		return Stdio(command, args, opts...), nil
	default:
		return nil, errors.New("mcp: command or url is required")
	}
}

// NewAlwaysOnClient returns a client registration that connects on
// instantiation and exports every remote tool. A connection or listing
// failure fails the registry load. The session is closed with the registry.
func NewAlwaysOnClient(name string, connect ConnectFunc) tool.AlwaysOnClient {
	return tool.AlwaysOnClient{
		Name: name,
		Factory: func(ctx context.Context, agentCtx *core.AgentContext) (tool.Bundle, error) {
			if connect == nil {
				return tool.Bundle{}, fmt.Errorf("mcp client %q: no connector", name)
			}

			session, err := connect(ctx)
			if err != nil {
				return tool.Bundle{}, fmt.Errorf("mcp client %q: %w", name, err)
			}

			b, err := bundle(ctx, session, agentCtx)
			if err != nil {
				_ = session.Close()
				return tool.Bundle{}, fmt.Errorf("mcp client %q: %w", name, err)
			}

			if agentCtx != nil {
				agentCtx.Logger().Info("mcp.client.connected", "client", name, "tools", len(b.Tools))
			}

			return b, nil
		},
	}
}

func bundle(ctx context.Context, session Session, agentCtx *core.AgentContext) (tool.Bundle, error) {
	remote, err := session.ListTools(ctx)
	if err != nil {
		return tool.Bundle{}, fmt.Errorf("list tools: %w", err)
	}

	b := tool.Bundle{
		Schema:  make(core.DescriptorMap, len(remote)),
		Closers: []func() error{session.Close},
	}

	for _, rt := range remote {
		desc, err := Descriptor(rt)
		if err != nil {
			return tool.Bundle{}, err
		}

		part, err := tool.CreateTool(desc, remoteCall(session, rt.Name))(ctx, agentCtx)
		if err != nil {
			return tool.Bundle{}, err
		}

		b.Tools = append(b.Tools, part.Tools...)
		b.Schema[desc.Name] = desc
	}

	return b, nil
}

// Descriptor converts an MCP tool definition into a capability descriptor.
func Descriptor(t mcpgo.Tool) (core.Descriptor, error) {
	var raw []byte
	if len(t.RawInputSchema) > 0 {
		raw = t.RawInputSchema
	} else {
		encoded, err := json.Marshal(t.InputSchema)
		if err != nil {
			return core.Descriptor{}, fmt.Errorf("tool %q: encode schema: %w", t.Name, err)
		}
		raw = encoded
	}

	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return core.Descriptor{}, fmt.Errorf("tool %q: decode schema: %w", t.Name, err)
	}
	if schema == nil {
		schema = map[string]any{}
	}
	if typ, _ := schema["type"].(string); typ == "" {
		schema["type"] = "object"
	}

	desc := core.Descriptor{
		Name:        t.Name,
		Description: t.Description,
		Schema:      schema,
	}

	return desc, desc.Validate()
}

func remoteCall(session Session, name string) tool.Func {
	return func(ctx context.Context, args map[string]any, _ *core.AgentContext) (any, error) {
		res, err := session.CallTool(ctx, name, args)
		if err != nil {
			return nil, err
		}
		return resultOutput(res)
	}
}

func resultOutput(res *mcpgo.CallToolResult) (any, error) {
	if res == nil {
		return nil, errors.New("mcp tool result is nil")
	}

	text := textContent(res.Content)

	if res.IsError {
		if text == "" {
			text = "remote tool failed"
		}
		return nil, errors.New(text)
	}

	if res.StructuredContent != nil {
		return res.StructuredContent, nil
	}

	return text, nil
}

func textContent(items []mcpgo.Content) string {
	var parts []string
	for _, item := range items {
		switch c := item.(type) {
		case mcpgo.TextContent:
			parts = append(parts, c.Text)
		case *mcpgo.TextContent:
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, "\n")
}
