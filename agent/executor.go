package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/logging"
	"github.com/hupe1980/toolmesh/model"
	"github.com/hupe1980/toolmesh/tool"
)

// DefaultMaxSteps bounds the number of model round trips per Invoke.
const DefaultMaxSteps = 8

// ErrMaxSteps is returned when the model keeps requesting tools past MaxSteps.
var ErrMaxSteps = fmt.Errorf("agent: %w", core.ErrStepLimit)

// Approver confirms calls to tools whose descriptor sets RequiresApproval.
type Approver interface {
	Approve(ctx context.Context, call core.FunctionCall, desc core.Descriptor) (bool, error)
}

// ApproverFunc adapts a function to the Approver interface.
type ApproverFunc func(ctx context.Context, call core.FunctionCall, desc core.Descriptor) (bool, error)

// Approve implements Approver.
func (f ApproverFunc) Approve(ctx context.Context, call core.FunctionCall, desc core.Descriptor) (bool, error) {
	return f(ctx, call, desc)
}

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	// MaxSteps bounds model round trips per Invoke. Zero means DefaultMaxSteps.
	MaxSteps int
	// MaxParallel bounds concurrent tool calls within one step. Values below 2
	// execute calls sequentially. Responses keep the order of the calls.
	MaxParallel int
	// Approver is consulted for approval-required tools. Without one such
	// calls are refused.
	Approver Approver
	// AgentContext is the agent-wide context. Each Invoke derives a thread
	// view from it; the view's knowledge is stored with the checkpoint.
	AgentContext *core.AgentContext
	Logger       logging.Logger
}

// Result is the outcome of one Invoke.
type Result struct {
	// Text is the text of the final assistant message.
	Text string
	// Messages holds the contents appended to the thread by this call,
	// input included.
	Messages []core.Content
	// Steps is the number of model round trips taken.
	Steps int
}

// Executor is the executable agent handle: it binds a model, a fixed set of
// tools and a checkpoint store, and runs the tool-call loop for one thread.
type Executor struct {
	model model.Model
	store core.CheckpointStore
	tools map[string]tool.Tool
	defs  []model.ToolDefinition
	opts  ExecutorOptions
}

// NewExecutor binds m, tools and store. Tool names must be unique.
func NewExecutor(m model.Model, tools []tool.Tool, store core.CheckpointStore, optFns ...func(o *ExecutorOptions)) (*Executor, error) {
	opts := ExecutorOptions{
		MaxSteps: DefaultMaxSteps,
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	if m == nil {
		return nil, errors.New("agent: model is required")
	}
	if store == nil {
		return nil, errors.New("agent: checkpoint store is required")
	}

	e := &Executor{
		model: m,
		store: store,
		tools: make(map[string]tool.Tool, len(tools)),
		defs:  make([]model.ToolDefinition, 0, len(tools)),
		opts:  opts,
	}

	for _, t := range tools {
		if t == nil {
			return nil, errors.New("agent: nil tool")
		}
		if _, dup := e.tools[t.Name()]; dup {
			return nil, fmt.Errorf("agent: duplicate tool %q", t.Name())
		}
		e.tools[t.Name()] = t
		e.defs = append(e.defs, model.DefinitionFromDescriptor(t.Descriptor()))
	}

	return e, nil
}

// ToolNames returns the bound tool names in binding order.
func (e *Executor) ToolNames() []string {
	names := make([]string, len(e.defs))
	for i, d := range e.defs {
		names[i] = d.Function.Name
	}
	return names
}

// Invoke appends input to the thread's history, runs the model until it
// answers without tool calls, and persists the resulting checkpoint.
//
// The checkpoint is loaded before the first model call. Nothing is persisted
// when Invoke fails.
func (e *Executor) Invoke(ctx context.Context, cfg core.ThreadConfig, input []core.Content) (*Result, error) {
	if cfg.ThreadID == "" {
		return nil, errors.New("agent: thread id is required")
	}

	cp, err := e.store.Get(ctx, cfg)
	if err != nil {
		return nil, core.NewError(core.KindCheckpoint, "load", err)
	}

	return e.Resume(ctx, cfg, cp, input)
}

// Resume is Invoke for a caller that already loaded the thread's checkpoint.
// A nil cp starts a new thread. cp is not modified.
//
// With ExecutorOptions.AgentContext set, tools run against a thread view of
// it (see core.AgentContext.ForThread) and the view's knowledge is persisted.
func (e *Executor) Resume(ctx context.Context, cfg core.ThreadConfig, cp *core.Checkpoint, input []core.Content) (*Result, error) {
	if cfg.ThreadID == "" {
		return nil, errors.New("agent: thread id is required")
	}

	if cp == nil {
		cp = &core.Checkpoint{ThreadID: cfg.ThreadID}
	} else {
		cp = cp.Clone()
	}

	var threadCtx *core.AgentContext
	if e.opts.AgentContext != nil {
		threadCtx = e.opts.AgentContext.ForThread(cp.Knowledge)
		ctx = core.ContextWithAgentContext(ctx, threadCtx)
	}

	history := make([]core.Content, 0, len(cp.Messages)+len(input)+2)
	history = append(history, cp.Messages...)
	start := len(history)
	for _, c := range input {
		history = append(history, c.Clone())
	}

	limiter := core.NewStepLimiter(e.opts.MaxSteps)
	log := e.opts.Logger

	log.Debug("agent.invoke.start",
		"thread_id", cfg.ThreadID,
		"history", start,
		"tools", len(e.defs),
	)

	var text string

	for {
		if err := limiter.Take(); err != nil {
			log.Warn("agent.invoke.max_steps", "thread_id", cfg.ThreadID, "max_steps", e.opts.MaxSteps)
			return nil, fmt.Errorf("%w after %d steps", ErrMaxSteps, limiter.Count())
		}

		resp, err := model.Collect(ctx, e.model, model.Request{
			Contents: slices.Clone(history),
			Tools:    e.defs,
		})
		if err != nil {
			return nil, core.NewError(core.KindModel, "generate", err)
		}

		msg := assignCallIDs(resp.Content)
		if msg.Role == "" {
			msg.Role = core.RoleAssistant
		}
		history = append(history, msg)

		calls := msg.FunctionCalls()
		if len(calls) == 0 {
			text = msg.Text()
			break
		}

		history = append(history, core.Content{
			Role:  core.RoleTool,
			Parts: e.executeCalls(ctx, calls),
		})
	}

	cp.Messages = history
	if threadCtx != nil {
		cp.Knowledge = threadCtx.Knowledge()
	}

	if err := e.store.Put(ctx, cfg, cp); err != nil {
		return nil, core.NewError(core.KindCheckpoint, "save", err)
	}

	log.Debug("agent.invoke.complete",
		"thread_id", cfg.ThreadID,
		"steps", limiter.Count(),
		"messages", len(history),
	)

	return &Result{
		Text:     text,
		Messages: slices.Clone(history[start:]),
		Steps:    limiter.Count(),
	}, nil
}

// assignCallIDs gives every function call without an id a fresh one so
// responses can be matched to calls by providers that require it.
func assignCallIDs(c core.Content) core.Content {
	out := c.Clone()
	for i, p := range out.Parts {
		if fc, ok := p.(core.FunctionCallPart); ok && fc.FunctionCall.ID == "" {
			fc.FunctionCall.ID = "call_" + uuid.NewString()
			out.Parts[i] = fc
		}
	}
	return out
}

// executeCalls runs calls, possibly in parallel, and returns one response
// part per call in call order.
func (e *Executor) executeCalls(ctx context.Context, calls []core.FunctionCall) []core.Part {
	parts := make([]core.Part, len(calls))

	maxPar := e.opts.MaxParallel
	if maxPar < 2 || len(calls) == 1 {
		for i, fc := range calls {
			parts[i] = e.executeCall(ctx, fc)
		}
		return parts
	}

	if maxPar > len(calls) {
		maxPar = len(calls)
	}

	var wg sync.WaitGroup

	sem := make(chan struct{}, maxPar)

	for i, fc := range calls {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, fc core.FunctionCall) {
			defer wg.Done()
			defer func() { <-sem }()

			parts[idx] = e.executeCall(ctx, fc)
		}(i, fc)
	}

	wg.Wait()

	return parts
}

func (e *Executor) executeCall(ctx context.Context, fc core.FunctionCall) core.Part {
	log := e.opts.Logger
	start := time.Now()

	result := e.callTool(ctx, fc)

	log.Info("agent.function.executed",
		"function", fc.Name,
		"function_call_id", fc.ID,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", tool.IsErrorResult(result),
	)

	return core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{
		ID:       fc.ID,
		Name:     fc.Name,
		Response: result,
	}}
}

func (e *Executor) callTool(ctx context.Context, fc core.FunctionCall) any {
	impl, ok := e.tools[fc.Name]
	if !ok {
		return tool.ErrorResult(tool.NewToolError(fc.Name, fmt.Sprintf("tool %s is not available", fc.Name), tool.CodeNotFound))
	}

	desc := impl.Descriptor()
	if desc.RequiresApproval {
		if msg, ok := e.approve(ctx, fc, desc); !ok {
			return tool.ErrorResult(tool.NewToolError(fc.Name, msg, tool.CodeDenied))
		}
	}

	args := map[string]any{}
	if fc.Arguments != "" {
		if err := json.Unmarshal([]byte(fc.Arguments), &args); err != nil {
			return tool.ErrorResult(tool.NewToolError(fc.Name,
				fmt.Sprintf("invalid arguments for %s: %v", fc.Name, err), tool.CodeValidation))
		}
		if args == nil {
			args = map[string]any{}
		}
	}

	return impl.Call(ctx, args)
}

func (e *Executor) approve(ctx context.Context, fc core.FunctionCall, desc core.Descriptor) (string, bool) {
	if e.opts.Approver == nil {
		return fmt.Sprintf("tool %s requires approval", fc.Name), false
	}

	ok, err := e.opts.Approver.Approve(ctx, fc, desc)
	if err != nil {
		e.opts.Logger.Warn("agent.function.approval_failed", "function", fc.Name, "error", err.Error())
		return fmt.Sprintf("approval for %s failed: %v", fc.Name, err), false
	}
	if !ok {
		return fmt.Sprintf("tool %s was not approved", fc.Name), false
	}

	return "", true
}
