package tool

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/internal/util"
)

// Func is the implementation signature wrapped by FunctionTool. agentCtx is
// the agent's shared mutable context; implementations may read and write its
// params and knowledge.
type Func func(ctx context.Context, args map[string]any, agentCtx *core.AgentContext) (any, error)

// FunctionTool is a generic adapter that exposes a plain Go function as a tool.
//
// Responsibilities:
//   - Holds the descriptor and its compiled JSON schema
//   - Validates model supplied arguments against that schema before execution
//   - Invokes the wrapped function with the bound *core.AgentContext
//   - Converts validation failures, returned errors and panics into textual
//     "Error: ..." results so a failing tool never aborts the conversation
//
// A FunctionTool has no internal mutable state after construction and is safe
// for concurrent use; the agent context it mutates carries its own lock.
type FunctionTool struct {
	desc     core.Descriptor
	fn       Func
	agentCtx *core.AgentContext
	schema   *jsonschema.Schema
}

var _ Tool = (*FunctionTool)(nil)

// NewFunctionTool binds fn to agentCtx. It fails when the descriptor is
// incomplete or its schema does not compile.
func NewFunctionTool(desc core.Descriptor, fn Func, agentCtx *core.AgentContext) (*FunctionTool, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	if fn == nil {
		return nil, fmt.Errorf("tool %q: implementation is nil", desc.Name)
	}

	if agentCtx == nil {
		agentCtx = core.NewAgentContext(nil)
	}

	sch, err := compileSchema(desc.Schema)
	if err != nil {
		return nil, fmt.Errorf("tool %q: invalid schema: %w", desc.Name, err)
	}

	return &FunctionTool{
		desc:     desc,
		fn:       fn,
		agentCtx: agentCtx,
		schema:   sch,
	}, nil
}

// Name returns the tool name.
func (t *FunctionTool) Name() string { return t.desc.Name }

// Descriptor returns the model-facing declaration.
func (t *FunctionTool) Descriptor() core.Descriptor { return t.desc }

// Call validates args then invokes the wrapped function.
//
// Result semantics:
//
//	success            -> value returned by the function
//	schema violation   -> "Error: invalid arguments for <tool>: <detail>"
//	returned error     -> "Error: <message>"
//	panic              -> "Error: panic: <value>"
//
// An AgentContext carried by ctx (core.ContextWithAgentContext) takes the
// place of the one bound at instantiation.
func (t *FunctionTool) Call(ctx context.Context, args map[string]any) (result any) {
	agentCtx := t.agentCtx
	if scoped, ok := core.AgentContextFrom(ctx); ok {
		agentCtx = scoped
	}

	logger := agentCtx.Logger()
	start := time.Now()

	logger.Debug("tool.call.start", "tool", t.desc.Name)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("tool.call.panic", "tool", t.desc.Name, "recover", r, "stack", string(debug.Stack()))
			result = ErrorResult(NewToolError(t.desc.Name, fmt.Sprintf("panic: %v", r), CodePanic))
		}
	}()

	if err := validateArgs(t.schema, args); err != nil {
		logger.Warn("tool.call.validation_failed", "tool", t.desc.Name, "error", err.Error())

		return ErrorResult(NewToolError(
			t.desc.Name,
			fmt.Sprintf("invalid arguments for %s: %v", t.desc.Name, err),
			CodeValidation,
		))
	}

	out, err := t.fn(ctx, args, agentCtx)
	if err != nil {
		logger.Error("tool.call.error", "tool", t.desc.Name, "error", err.Error())

		return ErrorResult(err)
	}

	logger.Info("tool.call.success", "tool", t.desc.Name, "duration_ms", time.Since(start).Milliseconds())

	return out
}

// Bundle is what a factory produces: executables plus their descriptors keyed
// by name. Closers are released when the owning registry is closed.
type Bundle struct {
	Tools   []Tool
	Schema  core.DescriptorMap
	Closers []func() error
}

// Validate checks that the executable names and descriptor keys are the same set.
func (b Bundle) Validate() error {
	seen := make(map[string]struct{}, len(b.Tools))

	for _, t := range b.Tools {
		if t == nil {
			return fmt.Errorf("bundle contains a nil tool")
		}

		if _, ok := b.Schema[t.Name()]; !ok {
			return fmt.Errorf("tool %q has no descriptor", t.Name())
		}

		seen[t.Name()] = struct{}{}
	}

	for name := range b.Schema {
		if _, ok := seen[name]; !ok {
			return fmt.Errorf("descriptor %q has no executable", name)
		}
	}

	return nil
}

// Factory instantiates a bundle bound to an agent context.
type Factory func(ctx context.Context, agentCtx *core.AgentContext) (Bundle, error)

// CreateTool returns a factory that, when invoked, binds fn to the agent
// context and yields exactly one executable with a single-entry descriptor map.
//
// Example:
//
//	factory := tool.CreateTool(core.Descriptor{
//	  Name:        "calculate_sum",
//	  Description: "Calculate the sum of two numbers",
//	  Schema: map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"a", "b"},
//	  },
//	}, func(ctx context.Context, args map[string]any, _ *core.AgentContext) (any, error) {
//	  return args["a"].(float64) + args["b"].(float64), nil
//	})
func CreateTool(desc core.Descriptor, fn Func) Factory {
	return func(_ context.Context, agentCtx *core.AgentContext) (Bundle, error) {
		t, err := NewFunctionTool(desc, fn, agentCtx)
		if err != nil {
			return Bundle{}, err
		}

		return Bundle{
			Tools:  []Tool{t},
			Schema: core.DescriptorMap{desc.Name: desc},
		}, nil
	}
}

// CreateToolFromStruct derives the schema from a struct using reflection (see
// util.CreateSchema for the supported tags).
func CreateToolFromStruct(name, description string, argsStruct any, fn Func) Factory {
	return CreateTool(core.Descriptor{
		Name:        name,
		Description: description,
		Schema:      util.CreateSchema(argsStruct),
	}, fn)
}
